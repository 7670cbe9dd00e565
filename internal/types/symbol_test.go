package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SymbolTestSuite struct {
	suite.Suite
}

func TestSymbolSuite(t *testing.T) {
	suite.Run(t, new(SymbolTestSuite))
}

func (suite *SymbolTestSuite) TestParseSymbol() {
	tests := []struct {
		name      string
		symbol    string
		base      string
		quote     string
		expectErr bool
	}{
		{name: "canonical", symbol: "BTC/USDT", base: "BTC", quote: "USDT"},
		{name: "lower case", symbol: "eth/btc", base: "ETH", quote: "BTC"},
		{name: "venue native", symbol: "BTCUSDT", expectErr: true},
		{name: "missing quote", symbol: "BTC/", expectErr: true},
		{name: "too many parts", symbol: "A/B/C", expectErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			base, quote, err := ParseSymbol(tc.symbol)
			if tc.expectErr {
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidSymbol))

				return
			}

			suite.NoError(err)
			suite.Equal(tc.base, base)
			suite.Equal(tc.quote, quote)
		})
	}
}

func (suite *SymbolTestSuite) TestTimeframe() {
	tf, err := ParseTimeframe("4h")
	suite.NoError(err)
	suite.Equal(Timeframe4h, tf)
	suite.Equal(int64(4*3600), int64(tf.Duration().Seconds()))

	_, err = ParseTimeframe("2h")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (suite *SymbolTestSuite) TestOrderRequestValidate() {
	valid := OrderRequest{Symbol: "BTC/USDT", Type: OrderTypeMarket, Side: OrderSideBuy, Amount: 0.5} //nolint:exhaustruct
	suite.NoError(valid.Validate())

	limitWithoutPrice := OrderRequest{Symbol: "BTC/USDT", Type: OrderTypeLimit, Side: OrderSideBuy, Amount: 1} //nolint:exhaustruct
	suite.True(errors.HasCode(limitWithoutPrice.Validate(), errors.ErrCodeInvalidOrder))

	limit := limitWithoutPrice
	limit.Price = optional.Some(100.0)
	suite.NoError(limit.Validate())

	stop := OrderRequest{Symbol: "BTC/USDT", Type: OrderTypeStopLoss, Side: OrderSideSell, Amount: 1} //nolint:exhaustruct
	suite.Error(stop.Validate())
}

func (suite *SymbolTestSuite) TestOrderBookDepth() {
	book := OrderBook{ //nolint:exhaustruct
		Bids: []PriceLevel{{Price: 100, Quantity: 1}, {Price: 99, Quantity: 2}},
		Asks: []PriceLevel{{Price: 101, Quantity: 1}},
	}
	suite.InDelta(100, book.BidDepthValue(1), 1e-9)
	suite.InDelta(298, book.BidDepthValue(0), 1e-9)
	suite.InDelta(101, book.BestAsk().Unwrap().Price, 1e-9)
	suite.True(OrderBook{}.BestBid().IsNone()) //nolint:exhaustruct
}

func (suite *SymbolTestSuite) TestSignalClampsStrength() {
	signal := NewSignal("s1", "binance", "BTC/USDT", SignalActionBuy, 1.7, time.Time{})
	suite.InDelta(1, signal.Strength, 1e-9)
	suite.NotEmpty(signal.ID)
	suite.False(signal.Timestamp.IsZero())
	suite.NoError(signal.Validate())
}
