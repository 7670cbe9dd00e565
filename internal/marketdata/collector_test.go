package marketdata

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/mocks"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CollectorTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	venue     *mocks.MockConnector
	series    *mocks.MockTimeSeries
	repo      *mocks.MockRepository
	collector *Collector
	now       time.Time
}

func TestCollectorSuite(t *testing.T) {
	suite.Run(t, new(CollectorTestSuite))
}

func (suite *CollectorTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.venue = mocks.NewMockConnector(suite.ctrl)
	suite.series = mocks.NewMockTimeSeries(suite.ctrl)
	suite.repo = mocks.NewMockRepository(suite.ctrl)
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	suite.venue.EXPECT().Name().Return("binance").AnyTimes()

	registry := connector.NewRegistry(logger.NewNopLogger())
	suite.Require().NoError(registry.Register(suite.venue))

	config := DefaultConfig()
	config.DefaultInterval = time.Hour

	var err error
	suite.collector, err = NewCollector(config, registry, suite.series, suite.repo, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.collector.now = func() time.Time { return suite.now }
}

func (suite *CollectorTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *CollectorTestSuite) ticker(symbol string, last float64) types.Ticker {
	return types.Ticker{
		Exchange:  "binance",
		Symbol:    symbol,
		Last:      last,
		Bid:       last - 1,
		Ask:       last + 1,
		Volume24h: 100,
		Change24h: 1,
		Timestamp: suite.now,
	}
}

func (suite *CollectorTestSuite) candles(n int, timeframe types.Timeframe) []types.Candle {
	candles := make([]types.Candle, n)
	start := suite.now.Add(-time.Duration(n) * timeframe.Duration())

	for i := range candles {
		price := 100 + float64(i)
		candles[i] = types.Candle{
			Timestamp: start.Add(time.Duration(i) * timeframe.Duration()),
			Open:      price,
			High:      price + 2,
			Low:       price - 2,
			Close:     price + 1,
			Volume:    10,
		}
	}

	return candles
}

func (suite *CollectorTestSuite) TestNewCollector_Validation() {
	config := DefaultConfig()
	config.CandleLimit = 0

	_, err := NewCollector(config, connector.NewRegistry(logger.NewNopLogger()), suite.series, nil, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = NewCollector(DefaultConfig(), nil, suite.series, nil, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *CollectorTestSuite) TestStartCollection_RejectsBadInput() {
	ctx := context.Background()

	_, err := suite.collector.StartCollection(ctx, "binance", nil, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = suite.collector.StartCollection(ctx, "binance", []string{"BTCUSDT"}, 0)
	suite.Error(err)

	_, err = suite.collector.StartCollection(ctx, "kraken", []string{"BTC/USDT"}, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeConnectorNotFound))
}

func (suite *CollectorTestSuite) TestCollectionTick_FansOutAndSkipsFailingSymbol() {
	ctx := context.Background()
	persisted := make(chan []types.MarketSnapshot, 1)

	suite.venue.EXPECT().Connect(gomock.Any()).Return(nil)
	suite.venue.EXPECT().GetTicker(gomock.Any(), "BTC/USDT").Return(suite.ticker("BTC/USDT", 42000), nil)
	suite.venue.EXPECT().GetTicker(gomock.Any(), "ETH/USDT").Return(types.Ticker{}, errors.New(errors.ErrCodeConnectivity, "reset")) //nolint:exhaustruct
	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1m, time.Time{}, 5).Return(suite.candles(5, types.Timeframe1m), nil)
	suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1m, gomock.Len(5)).Return(5, nil)
	suite.series.EXPECT().WriteSnapshots(gomock.Any(), gomock.Len(1)).Return(1, nil)
	suite.repo.EXPECT().SaveSnapshots(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, snapshots []types.MarketSnapshot) (int, error) {
			persisted <- snapshots

			return len(snapshots), nil
		})

	groupID, err := suite.collector.StartCollection(ctx, "binance", []string{"BTC/USDT", "ETH/USDT"}, 0)
	suite.Require().NoError(err)

	select {
	case snapshots := <-persisted:
		suite.Require().Len(snapshots, 1)
		suite.Equal("binance", snapshots[0].Exchange)
		suite.Equal(42000.0, snapshots[0].Price)
	case <-time.After(5 * time.Second):
		suite.FailNow("collection tick did not persist snapshots")
	}

	suite.Eventually(func() bool {
		groups := suite.collector.Groups()

		return len(groups) == 1 && groups[0].Collected == 1 && groups[0].Failures == 1
	}, 5*time.Second, 10*time.Millisecond)

	// served from the price cache filled by the tick
	price, err := suite.collector.GetLatestPrice(ctx, "binance", "BTC/USDT")
	suite.NoError(err)
	suite.Equal(42000.0, price)

	suite.venue.EXPECT().Disconnect(gomock.Any()).Return(nil)
	suite.NoError(suite.collector.StopCollection(ctx, groupID))
	suite.Empty(suite.collector.Groups())

	err = suite.collector.StopCollection(ctx, groupID)
	suite.True(errors.HasCode(err, errors.ErrCodeCollectionNotFound))
}

func (suite *CollectorTestSuite) TestCollectOnce_SkipsWhileTickInFlight() {
	ctx := context.Background()
	entered := make(chan struct{})
	unblock := make(chan struct{})

	suite.venue.EXPECT().Connect(gomock.Any()).Return(nil)
	suite.venue.EXPECT().GetTicker(gomock.Any(), "BTC/USDT").DoAndReturn(
		func(_ context.Context, _ string) (types.Ticker, error) {
			close(entered)
			<-unblock

			return types.Ticker{}, errors.New(errors.ErrCodeConnectivity, "timeout") //nolint:exhaustruct
		})

	groupID, err := suite.collector.StartCollection(ctx, "binance", []string{"BTC/USDT"}, 0)
	suite.Require().NoError(err)

	<-entered

	ran, err := suite.collector.CollectOnce(groupID)
	suite.NoError(err)
	suite.False(ran)

	suite.venue.EXPECT().Disconnect(gomock.Any()).Return(nil)

	stopped := make(chan error, 1)
	go func() { stopped <- suite.collector.StopCollection(ctx, groupID) }()

	close(unblock)

	select {
	case err := <-stopped:
		suite.NoError(err)
	case <-time.After(5 * time.Second):
		suite.FailNow("stop did not wait for the in-flight tick")
	}
}

func (suite *CollectorTestSuite) TestGetOHLCV_StoreThenVenueThenCache() {
	ctx := context.Background()
	fresh := suite.candles(3, types.Timeframe1h)

	// the store only has one candle, so the venue is asked
	suite.series.EXPECT().Candles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 3).Return(fresh[2:], nil)
	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, time.Time{}, 3).Return(fresh, nil)
	suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, fresh).Return(3, nil)

	candles, err := suite.collector.GetOHLCV(ctx, "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 3)
	suite.Require().NoError(err)
	suite.Equal(fresh, candles)

	// cached window answers smaller requests without touching store or venue
	candles, err = suite.collector.GetOHLCV(ctx, "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 2)
	suite.Require().NoError(err)
	suite.Equal(fresh[1:], candles)
}

func (suite *CollectorTestSuite) TestGetOHLCV_CachedWindowIsACopy() {
	ctx := context.Background()
	fresh := suite.candles(3, types.Timeframe1h)
	want := slices.Clone(fresh[1:])

	suite.series.EXPECT().Candles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 3).Return(nil, nil)
	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, time.Time{}, 3).Return(fresh, nil)
	suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, fresh).Return(3, nil)

	_, err := suite.collector.GetOHLCV(ctx, "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 3)
	suite.Require().NoError(err)

	candles, err := suite.collector.GetOHLCV(ctx, "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 2)
	suite.Require().NoError(err)

	candles[0].Close = -1
	_ = append(candles[:1], candles[0])

	candles, err = suite.collector.GetOHLCV(ctx, "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 2)
	suite.Require().NoError(err)
	suite.Equal(want, candles)
}

func (suite *CollectorTestSuite) TestGetOHLCV_FreshStoreAvoidsVenue() {
	stored := suite.candles(4, types.Timeframe1h)
	suite.series.EXPECT().Candles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 4).Return(stored, nil)

	candles, err := suite.collector.GetOHLCV(context.Background(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 4)
	suite.NoError(err)
	suite.Equal(stored, candles)
}

func (suite *CollectorTestSuite) TestGetOHLCV_StaleStoreFallsBackToVenue() {
	stale := suite.candles(2, types.Timeframe1h)
	for i := range stale {
		stale[i].Timestamp = stale[i].Timestamp.Add(-24 * time.Hour)
	}

	live := suite.candles(2, types.Timeframe1h)

	suite.series.EXPECT().Candles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 2).Return(stale, nil)
	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, time.Time{}, 2).Return(live, nil)
	suite.series.EXPECT().WriteCandles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, live).Return(2, nil)

	candles, err := suite.collector.GetOHLCV(context.Background(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 2)
	suite.NoError(err)
	suite.Equal(live, candles)
}

func (suite *CollectorTestSuite) TestGetOHLCV_Errors() {
	_, err := suite.collector.GetOHLCV(context.Background(), "binance", "BTC/USDT", "3m", time.Time{}, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))

	suite.series.EXPECT().Candles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 10).Return(nil, nil)
	suite.venue.EXPECT().GetOHLCV(gomock.Any(), "BTC/USDT", types.Timeframe1h, time.Time{}, 10).
		Return(nil, errors.New(errors.ErrCodeRateLimited, "slow down"))

	_, err = suite.collector.GetOHLCV(context.Background(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *CollectorTestSuite) TestGetLatestPrice_StoredSnapshotThenVenue() {
	ctx := context.Background()

	recent := types.SnapshotFromTicker(suite.ticker("BTC/USDT", 41000))
	suite.series.EXPECT().LatestSnapshot(gomock.Any(), "binance", "BTC/USDT").Return(optional.Some(recent), nil)

	price, err := suite.collector.GetLatestPrice(ctx, "binance", "BTC/USDT")
	suite.NoError(err)
	suite.Equal(41000.0, price)

	stale := types.SnapshotFromTicker(suite.ticker("ETH/USDT", 2000))
	stale.Timestamp = suite.now.Add(-time.Hour)
	suite.series.EXPECT().LatestSnapshot(gomock.Any(), "binance", "ETH/USDT").Return(optional.Some(stale), nil)
	suite.venue.EXPECT().GetTicker(gomock.Any(), "ETH/USDT").Return(suite.ticker("ETH/USDT", 2100), nil)

	price, err = suite.collector.GetLatestPrice(ctx, "binance", "ETH/USDT")
	suite.NoError(err)
	suite.Equal(2100.0, price)
}

func (suite *CollectorTestSuite) TestGetMarketStats_FromStore() {
	since := suite.now.Add(-24 * time.Hour)
	suite.series.EXPECT().Stats(gomock.Any(), "binance", "BTC/USDT", since).Return(
		optional.Some(types.MarketStats{Mean: 100, Min: 90, Max: 110, Volume: 5000, ChangePct: 2, Samples: 1440}), nil) //nolint:exhaustruct

	stats, err := suite.collector.GetMarketStats(context.Background(), "binance", "BTC/USDT", 24*time.Hour)
	suite.NoError(err)
	suite.Equal("BTC/USDT", stats.Symbol)
	suite.Equal(24*time.Hour, stats.Period)
	suite.Equal(1440, stats.Samples)
}

func (suite *CollectorTestSuite) TestGetMarketStats_FallsBackToCandles() {
	candles := suite.candles(24, types.Timeframe1h)

	suite.series.EXPECT().Stats(gomock.Any(), "binance", "BTC/USDT", gomock.Any()).Return(optional.None[types.MarketStats](), nil)
	suite.series.EXPECT().Candles(gomock.Any(), "binance", "BTC/USDT", types.Timeframe1h, time.Time{}, 24).Return(candles, nil)

	stats, err := suite.collector.GetMarketStats(context.Background(), "binance", "BTC/USDT", 24*time.Hour)
	suite.Require().NoError(err)
	suite.Equal(24, stats.Samples)
	suite.InDelta(240.0, stats.Volume, 1e-9)
	suite.InDelta(98.0, stats.Min, 1e-9)
	suite.InDelta(125.0, stats.Max, 1e-9)
	// closes run 101..124
	suite.InDelta(112.5, stats.Mean, 1e-9)
	suite.InDelta(24.0, stats.ChangePct, 1e-9)

	_, err = suite.collector.GetMarketStats(context.Background(), "binance", "BTC/USDT", 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *CollectorTestSuite) TestStatsTimeframe() {
	//nolint:exhaustruct
	tests := []struct {
		name     string
		period   time.Duration
		expected types.Timeframe
	}{
		{name: "one hour", period: time.Hour, expected: types.Timeframe1m},
		{name: "six hours", period: 6 * time.Hour, expected: types.Timeframe5m},
		{name: "one day", period: 24 * time.Hour, expected: types.Timeframe1h},
		{name: "one month", period: 30 * 24 * time.Hour, expected: types.Timeframe1d},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, statsTimeframe(tc.period))
		})
	}
}
