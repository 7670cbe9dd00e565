package marketmaking

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type MarketMakingTestSuite struct {
	suite.Suite
	ctx      context.Context
	strategy *Strategy
	now      time.Time
}

func TestMarketMakingSuite(t *testing.T) {
	suite.Run(t, new(MarketMakingTestSuite))
}

func (suite *MarketMakingTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	//nolint:exhaustruct
	cfg := types.StrategyConfig{
		ID:       "mm1",
		Type:     Type,
		Exchange: "binance",
		Symbols:  []string{"BTC/USDT"},
		Parameters: map[string]any{
			"max_inventory":         2,
			"volatility_multiplier": 0,
			"volatility_period":     3,
		},
	}

	s, err := New(strategy.Dependencies{Config: cfg}) //nolint:exhaustruct
	suite.Require().NoError(err)
	suite.strategy = s.(*Strategy)
}

func (suite *MarketMakingTestSuite) data(bid, ask float64) types.MarketData {
	return types.MarketData{
		Candles: []types.Candle{{Timestamp: suite.now, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1}},
		Ticker:  optional.None[types.Ticker](),
		OrderBook: optional.Some(types.OrderBook{
			Exchange: "binance",
			Symbol:   "BTC/USDT",
			Bids:     []types.PriceLevel{{Price: bid, Quantity: 1}},
			Asks:     []types.PriceLevel{{Price: ask, Quantity: 1}},
		}),
	}
}

func (suite *MarketMakingTestSuite) TestComputeQuote() {
	quote, err := suite.strategy.ComputeQuote(99.9, 100.1, []float64{100, 100, 100})
	suite.Require().NoError(err)

	suite.InDelta(100, quote.Mid, 1e-9)
	suite.InDelta(0.2, quote.MarketSpreadPercent, 1e-9)
	suite.InDelta(0.2, quote.QuoteSpreadPercent, 1e-9)
	suite.InDelta(99.9, quote.Bid, 1e-9)
	suite.InDelta(100.1, quote.Ask, 1e-9)
	suite.InDelta(4, quote.MarketSpreadToMinimum, 1e-9)
}

func (suite *MarketMakingTestSuite) TestVolatilityWidensSpread() {
	//nolint:exhaustruct
	cfg := types.StrategyConfig{ID: "mm1", Parameters: map[string]any{"volatility_multiplier": 2, "volatility_period": 3}}
	s, err := New(strategy.Dependencies{Config: cfg}) //nolint:exhaustruct
	suite.Require().NoError(err)

	calm, err := s.(*Strategy).ComputeQuote(99.9, 100.1, []float64{100, 100, 100, 100})
	suite.Require().NoError(err)

	wild, err := s.(*Strategy).ComputeQuote(99.9, 100.1, []float64{100, 110, 95, 105})
	suite.Require().NoError(err)

	suite.Greater(wild.VolatilityPercent, 0.0)
	suite.Greater(wild.QuoteSpreadPercent, calm.QuoteSpreadPercent)
	suite.Less(wild.Bid, calm.Bid)
	suite.Greater(wild.Ask, calm.Ask)
}

func (suite *MarketMakingTestSuite) TestAnalyze() {
	tests := []struct {
		name string
		bid, ask  float64
		inventory float64
		expected  optional.Option[types.SignalAction]
		strength  float64
	}{
		{name: "tight market is skipped", bid: 99.99, ask: 100.01, expected: optional.None[types.SignalAction]()},
		{name: "empty inventory buys", bid: 99.95, ask: 100.05, expected: optional.Some(types.SignalActionBuy), strength: 1},
		{name: "half inventory sells", bid: 99.97, ask: 100.03, inventory: 1, expected: optional.Some(types.SignalActionSell), strength: 0.6},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.SetupTest()

			if tc.inventory > 0 {
				//nolint:exhaustruct
				suite.strategy.OnTrade(types.Trade{Symbol: "BTC/USDT", Side: types.OrderSideBuy, Quantity: tc.inventory})
			}

			signal, err := suite.strategy.Analyze(suite.ctx, "binance", "BTC/USDT", suite.data(tc.bid, tc.ask))
			suite.Require().NoError(err)
			suite.Equal(tc.expected.IsSome(), signal.IsSome())

			if tc.expected.IsSome() {
				suite.Equal(tc.expected.Unwrap(), signal.Unwrap().Action)
				suite.InDelta(tc.strength, signal.Unwrap().Strength, 1e-9)
				suite.Equal(suite.now, signal.Unwrap().Timestamp)
				suite.InDelta(tc.inventory, signal.Unwrap().Analysis["inventory"], 1e-9)
			}
		})
	}
}

func (suite *MarketMakingTestSuite) TestInventoryFromTrades() {
	//nolint:exhaustruct
	trades := []types.Trade{
		{Symbol: "BTC/USDT", Side: types.OrderSideBuy, Quantity: 0.5},
		{Symbol: "BTC/USDT", Side: types.OrderSideBuy, Quantity: 0.25},
		{Symbol: "BTC/USDT", Side: types.OrderSideSell, Quantity: 0.5},
		{Symbol: "ETH/USDT", Side: types.OrderSideSell, Quantity: 1},
	}

	for _, trade := range trades {
		suite.strategy.OnTrade(trade)
	}

	suite.InDelta(0.25, suite.strategy.Inventory("BTC/USDT"), 1e-9)
	suite.Zero(suite.strategy.Inventory("ETH/USDT"))
}

func (suite *MarketMakingTestSuite) TestNoBook() {
	data := types.MarketData{Candles: nil, Ticker: optional.None[types.Ticker](), OrderBook: optional.None[types.OrderBook]()}

	_, err := suite.strategy.Analyze(suite.ctx, "binance", "BTC/USDT", data)
	suite.Equal(errors.ErrCodeInsufficientData, errors.GetCode(err))
}

func (suite *MarketMakingTestSuite) TestTickerFallback() {
	data := types.MarketData{
		Candles: nil,
		//nolint:exhaustruct
		Ticker:    optional.Some(types.Ticker{Bid: 99.9, Ask: 100.1, Last: 100, Timestamp: suite.now}),
		OrderBook: optional.None[types.OrderBook](),
	}

	signal, err := suite.strategy.Analyze(suite.ctx, "binance", "BTC/USDT", data)
	suite.Require().NoError(err)
	suite.Equal(types.SignalActionBuy, signal.Unwrap().Action)
}
