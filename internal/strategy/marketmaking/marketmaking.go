// Package marketmaking quotes around the mid price and leans buy or sell
// from the inventory it has accumulated.
package marketmaking

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/indicator"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	Type    = "marketmaking"
	Version = "1.0.0"
)

// Params configures quoting and inventory limits.
type Params struct {
	SpreadPercentage          float64 `mapstructure:"spread_percentage" json:"spread_percentage" jsonschema:"title=Base quote spread in percent,default=0.2" validate:"gt=0"`
	MinMarketSpreadPercentage float64 `mapstructure:"min_market_spread_percentage" json:"min_market_spread_percentage" jsonschema:"title=Skip markets tighter than this spread in percent,default=0.05" validate:"gt=0"`
	MaxInventory              float64 `mapstructure:"max_inventory" json:"max_inventory" jsonschema:"title=Maximum base inventory,default=1" validate:"gt=0"`
	OrderAmount               float64 `mapstructure:"order_amount" json:"order_amount" jsonschema:"title=Base amount per quote,default=0.01" validate:"gt=0"`
	VolatilityMultiplier      float64 `mapstructure:"volatility_multiplier" json:"volatility_multiplier" jsonschema:"title=Spread widening per percent of volatility,default=1" validate:"gte=0"`
	VolatilityPeriod          int     `mapstructure:"volatility_period" json:"volatility_period" jsonschema:"title=Candles used for volatility,default=20" validate:"gt=1"`
}

// DefaultParams returns the default quoting parameters.
func DefaultParams() Params {
	return Params{
		SpreadPercentage:          0.2,
		MinMarketSpreadPercentage: 0.05,
		MaxInventory:              1,
		OrderAmount:               0.01,
		VolatilityMultiplier:      1,
		VolatilityPeriod:          20,
	}
}

// Definition registers the strategy.
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:         Type,
		Version:      Version,
		Description:  "Quotes around the mid with a volatility widened spread and balances inventory",
		Params:       DefaultParams(),
		Factory:      New,
		Backtestable: true,
	}
}

// Quote is the two sided quote computed for one analysis call.
type Quote struct {
	Mid                   float64
	Bid                   float64
	Ask                   float64
	MarketSpreadPercent   float64
	QuoteSpreadPercent    float64
	VolatilityPercent     float64
	MarketSpreadToMinimum float64
}

// Strategy is the market maker. Inventory per symbol is the only state and
// it changes only through OnTrade.
type Strategy struct {
	params Params
	deps   strategy.Dependencies
	logger *logger.Logger

	mu        sync.Mutex
	inventory map[string]float64
}

// New builds the strategy from its config parameters.
func New(deps strategy.Dependencies) (strategy.Strategy, error) {
	params := DefaultParams()
	if err := strategy.DecodeParams(deps.Config.Parameters, &params); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Strategy{
		params:    params,
		deps:      deps,
		logger:    log.Named(Type),
		mu:        sync.Mutex{},
		inventory: make(map[string]float64),
	}, nil
}

func (s *Strategy) Name() string {
	return Type
}

func (s *Strategy) Initialize(_ context.Context) error {
	return nil
}

func (s *Strategy) Cleanup(_ context.Context) error {
	return nil
}

func (s *Strategy) Lookback() int {
	return s.params.VolatilityPeriod + 1
}

// Inventory returns the base amount held for symbol.
func (s *Strategy) Inventory(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inventory[symbol]
}

// OnTrade folds a confirmed fill into the inventory.
func (s *Strategy) OnTrade(trade types.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := decimal.NewFromFloat(s.inventory[trade.Symbol])
	qty := decimal.NewFromFloat(trade.Quantity)

	if trade.Side == types.OrderSideBuy {
		held = held.Add(qty)
	} else {
		held = decimal.Max(decimal.Zero, held.Sub(qty))
	}

	s.inventory[trade.Symbol] = held.InexactFloat64()
}

// ComputeQuote derives the quote from top of book and recent closes.
func (s *Strategy) ComputeQuote(bid, ask float64, closes []float64) (Quote, error) {
	var q Quote

	if bid <= 0 || ask <= 0 || ask < bid {
		return q, errors.Newf(errors.ErrCodeInsufficientData, "no usable top of book: bid %v ask %v", bid, ask)
	}

	window := closes
	if len(window) > s.params.VolatilityPeriod+1 {
		window = window[len(window)-s.params.VolatilityPeriod-1:]
	}

	hundred := decimal.NewFromInt(100)
	mid := decimal.NewFromFloat(bid).Add(decimal.NewFromFloat(ask)).Div(decimal.NewFromInt(2))
	marketSpread := decimal.NewFromFloat(ask).Sub(decimal.NewFromFloat(bid)).Div(mid).Mul(hundred)
	volatility := decimal.NewFromFloat(indicator.StdDev(indicator.Returns(window))).Mul(hundred)
	quoteSpread := decimal.NewFromFloat(s.params.SpreadPercentage).
		Add(volatility.Mul(decimal.NewFromFloat(s.params.VolatilityMultiplier)))
	half := quoteSpread.Div(decimal.NewFromInt(200))

	q.Mid = mid.InexactFloat64()
	q.Bid = mid.Mul(decimal.NewFromInt(1).Sub(half)).InexactFloat64()
	q.Ask = mid.Mul(decimal.NewFromInt(1).Add(half)).InexactFloat64()
	q.MarketSpreadPercent = marketSpread.InexactFloat64()
	q.QuoteSpreadPercent = quoteSpread.InexactFloat64()
	q.VolatilityPercent = volatility.InexactFloat64()
	q.MarketSpreadToMinimum = marketSpread.Div(decimal.NewFromFloat(s.params.MinMarketSpreadPercentage)).InexactFloat64()

	return q, nil
}

func topOfBook(data types.MarketData) (float64, float64) {
	if data.OrderBook.IsSome() {
		book := data.OrderBook.Unwrap()

		bid, ask := book.BestBid(), book.BestAsk()
		if bid.IsSome() && ask.IsSome() {
			return bid.Unwrap().Price, ask.Unwrap().Price
		}
	}

	if data.Ticker.IsSome() {
		ticker := data.Ticker.Unwrap()

		return ticker.Bid, ticker.Ask
	}

	return 0, 0
}

// Analyze buys while inventory is under half the maximum and sells above
// it. Markets tighter than the minimum spread are left alone.
func (s *Strategy) Analyze(_ context.Context, exchange, symbol string, data types.MarketData) (optional.Option[types.TradingSignal], error) {
	none := optional.None[types.TradingSignal]()

	bid, ask := topOfBook(data)

	quote, err := s.ComputeQuote(bid, ask, types.Closes(data.Candles))
	if err != nil {
		return none, err
	}

	if quote.MarketSpreadPercent < s.params.MinMarketSpreadPercentage {
		s.logger.Debug("market too tight to quote",
			zap.String("symbol", symbol),
			zap.Float64("spread_pct", quote.MarketSpreadPercent),
		)

		return none, nil
	}

	inventory := s.Inventory(symbol)
	action := types.SignalActionBuy

	if inventory >= s.params.MaxInventory/2 {
		action = types.SignalActionSell
	}

	timestamp := s.now(data)
	signal := types.NewSignal(s.deps.Config.ID, exchange, symbol, action, 0.5*quote.MarketSpreadToMinimum, timestamp)
	signal.IndicatorsUsed = []string{"spread", "volatility", "inventory"}
	signal.Analysis = map[string]any{
		"mid":               quote.Mid,
		"bid_quote":         quote.Bid,
		"ask_quote":         quote.Ask,
		"market_spread_pct": quote.MarketSpreadPercent,
		"quote_spread_pct":  quote.QuoteSpreadPercent,
		"volatility_pct":    quote.VolatilityPercent,
		"inventory":         inventory,
		"order_amount":      s.params.OrderAmount,
	}

	return optional.Some(signal), nil
}

func (s *Strategy) now(data types.MarketData) time.Time {
	if data.Ticker.IsSome() && !data.Ticker.Unwrap().Timestamp.IsZero() {
		return data.Ticker.Unwrap().Timestamp
	}

	if len(data.Candles) > 0 {
		return data.Candles[len(data.Candles)-1].Timestamp
	}

	return time.Time{}
}

var (
	_ strategy.Strategy          = (*Strategy)(nil)
	_ strategy.ExecutionObserver = (*Strategy)(nil)
	_ strategy.LookbackProvider  = (*Strategy)(nil)
)
