package polygon

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type mockAggregatesClient struct {
	candles    []types.Candle
	err        error
	ticker     string
	multiplier int
	timespan   models.Timespan
	from       time.Time
	to         time.Time
	limit      int
}

func (m *mockAggregatesClient) ListAggs(_ context.Context, ticker string, multiplier int, timespan models.Timespan, from, to time.Time, limit int) ([]types.Candle, error) {
	m.ticker = ticker
	m.multiplier = multiplier
	m.timespan = timespan
	m.from = from
	m.to = to
	m.limit = limit

	return m.candles, m.err
}

type PolygonConnectorTestSuite struct {
	suite.Suite
	client    *mockAggregatesClient
	connector *Connector
	now       time.Time
}

func TestPolygonConnectorSuite(t *testing.T) {
	suite.Run(t, new(PolygonConnectorTestSuite))
}

func (suite *PolygonConnectorTestSuite) SetupTest() {
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.client = &mockAggregatesClient{}                               //nolint:exhaustruct
	suite.connector = newWithClient(Config{APIKey: "key"}, suite.client) //nolint:exhaustruct
	suite.connector.now = func() time.Time { return suite.now }
}

func hourlyCandles(start time.Time, closes ...float64) []types.Candle {
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c - 1,
			High:      c + 1,
			Low:       c - 2,
			Close:     c,
			Volume:    10,
		}
	}

	return candles
}

func (suite *PolygonConnectorTestSuite) TestConfig() {
	suite.Error((&Config{}).Validate())                                    //nolint:exhaustruct
	suite.Error((&Config{APIKey: "k", Market: "forex"}).Validate())        //nolint:exhaustruct
	suite.NoError((&Config{APIKey: "k", Market: MarketStocks}).Validate()) //nolint:exhaustruct

	_, err := New(Config{}) //nolint:exhaustruct
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *PolygonConnectorTestSuite) TestTickerMapping() {
	ticker, err := suite.connector.toTicker("BTC/USD")
	suite.NoError(err)
	suite.Equal("X:BTCUSD", ticker)

	stocks := newWithClient(Config{APIKey: "k", Market: MarketStocks}, suite.client) //nolint:exhaustruct
	ticker, err = stocks.toTicker("AAPL/USD")
	suite.NoError(err)
	suite.Equal("AAPL", ticker)

	_, err = suite.connector.toTicker("BTCUSD")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSymbol))
}

func (suite *PolygonConnectorTestSuite) TestGetOHLCV() {
	tests := []struct {
		name           string
		timeframe      types.Timeframe
		since          time.Time
		limit          int
		returned       int
		expectSpan     models.Timespan
		expectMult     int
		expectFrom     time.Time
		expectReturned int
	}{
		{
			name:           "explicit since",
			timeframe:      types.Timeframe4h,
			since:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			limit:          100,
			returned:       5,
			expectSpan:     models.Hour,
			expectMult:     4,
			expectFrom:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			expectReturned: 5,
		},
		{
			name:           "latest candles trimmed to limit",
			timeframe:      types.Timeframe1h,
			since:          time.Time{},
			limit:          3,
			returned:       5,
			expectSpan:     models.Hour,
			expectMult:     1,
			expectFrom:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			expectReturned: 3,
		},
		{
			name:           "five minute bars",
			timeframe:      types.Timeframe5m,
			since:          time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			limit:          0,
			returned:       2,
			expectSpan:     models.Minute,
			expectMult:     5,
			expectFrom:     time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			expectReturned: 2,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.client.candles = hourlyCandles(suite.now.Add(-5*time.Hour), make([]float64, tc.returned)...)

			candles, err := suite.connector.GetOHLCV(context.Background(), "ETH/USD", tc.timeframe, tc.since, tc.limit)
			suite.NoError(err)
			suite.Len(candles, tc.expectReturned)
			suite.Equal("X:ETHUSD", suite.client.ticker)
			suite.Equal(tc.expectSpan, suite.client.timespan)
			suite.Equal(tc.expectMult, suite.client.multiplier)
			suite.Equal(tc.expectFrom, suite.client.from)
			suite.Equal(suite.now, suite.client.to)
		})
	}
}

func (suite *PolygonConnectorTestSuite) TestGetOHLCV_Errors() {
	_, err := suite.connector.GetOHLCV(context.Background(), "ETH/USD", types.Timeframe("2h"), time.Time{}, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))

	suite.client.err = fmt.Errorf("status code 429: too many requests")
	_, err = suite.connector.GetOHLCV(context.Background(), "ETH/USD", types.Timeframe1h, time.Time{}, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeRateLimited))

	suite.client.err = fmt.Errorf("status code 401: unknown API key")
	_, err = suite.connector.GetOHLCV(context.Background(), "ETH/USD", types.Timeframe1h, time.Time{}, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeAuthFailed))

	suite.client.err = fmt.Errorf("dial tcp: connection refused")
	_, err = suite.connector.GetOHLCV(context.Background(), "ETH/USD", types.Timeframe1h, time.Time{}, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeConnectivity))
}

func (suite *PolygonConnectorTestSuite) TestGetTicker() {
	suite.client.candles = hourlyCandles(suite.now.Add(-3*time.Hour), 100, 102, 110)

	ticker, err := suite.connector.GetTicker(context.Background(), "BTC/USD")
	suite.NoError(err)
	suite.Equal("polygon", ticker.Exchange)
	suite.InDelta(110.0, ticker.Last, 1e-9)
	suite.InDelta(110.0, ticker.Mid(), 1e-9)
	suite.InDelta(30.0, ticker.Volume24h, 1e-9)
	// first open is 99, last close 110
	suite.InDelta((110.0-99.0)/99.0*100, ticker.Change24h, 1e-9)

	suite.client.candles = nil
	_, err = suite.connector.GetTicker(context.Background(), "BTC/USD")
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *PolygonConnectorTestSuite) TestTradingIsUnsupported() {
	ctx := context.Background()

	_, err := suite.connector.CreateOrder(ctx, types.OrderRequest{Symbol: "BTC/USD", Type: types.OrderTypeMarket, Side: types.OrderSideBuy, Amount: 1}) //nolint:exhaustruct
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))

	_, err = suite.connector.GetBalance(ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))

	_, err = suite.connector.GetOrderBook(ctx, "BTC/USD", 10)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))

	suite.True(errors.HasCode(suite.connector.CancelOrder(ctx, "1", "BTC/USD"), errors.ErrCodeUnsupported))
	suite.True(errors.IsPermanent(suite.connector.SetLeverage(ctx, "BTC/USD", 2)))
	suite.NoError(suite.connector.Connect(ctx))
	suite.Zero(suite.connector.Fees().TakerPercentage)
}
