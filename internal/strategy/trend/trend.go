// Package trend implements a moving average crossover strategy with an
// optional RSI filter and advisor confirmation.
package trend

import (
	"context"
	"math"

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
	Type    = "trend"
	Version = "1.0.0"
)

// Params configures the crossover.
type Params struct {
	FastPeriod    int     `mapstructure:"fast_period" json:"fast_period" jsonschema:"title=Fast SMA period,default=10,minimum=1" validate:"gt=0,ltfield=SlowPeriod"`
	SlowPeriod    int     `mapstructure:"slow_period" json:"slow_period" jsonschema:"title=Slow SMA period,default=30,minimum=2" validate:"gt=1"`
	RSIPeriod     int     `mapstructure:"rsi_period" json:"rsi_period" jsonschema:"title=RSI period,default=14,minimum=1" validate:"gt=0"`
	RSIOverbought float64 `mapstructure:"rsi_overbought" json:"rsi_overbought" jsonschema:"title=RSI overbought level,default=70" validate:"gt=0,lte=100,gtfield=RSIOversold"`
	RSIOversold   float64 `mapstructure:"rsi_oversold" json:"rsi_oversold" jsonschema:"title=RSI oversold level,default=30" validate:"gte=0,lt=100"`
	UseRSIFilter  bool    `mapstructure:"use_rsi_filter" json:"use_rsi_filter" jsonschema:"title=Drop crosses into overbought or oversold RSI,default=false"`
	UseAdvisor    bool    `mapstructure:"use_advisor" json:"use_advisor" jsonschema:"title=Ask the decision advisor to confirm signals,default=false"`
	// Zero leaves the stop to the risk manager.
	StopLossPercentage   float64 `mapstructure:"stop_loss_percentage" json:"stop_loss_percentage" jsonschema:"title=Stop loss distance in percent,default=0" validate:"gte=0,lt=100"`
	TakeProfitPercentage float64 `mapstructure:"take_profit_percentage" json:"take_profit_percentage" jsonschema:"title=Take profit distance in percent,default=0" validate:"gte=0"`
}

// DefaultParams returns the default crossover parameters.
func DefaultParams() Params {
	return Params{
		FastPeriod:           10,
		SlowPeriod:           30,
		RSIPeriod:            14,
		RSIOverbought:        70,
		RSIOversold:          30,
		UseRSIFilter:         false,
		UseAdvisor:           false,
		StopLossPercentage:   0,
		TakeProfitPercentage: 0,
	}
}

// Definition registers the strategy.
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:         Type,
		Version:      Version,
		Description:  "Buys on a fast/slow SMA golden cross and sells on a death cross",
		Params:       DefaultParams(),
		Factory:      New,
		Backtestable: true,
	}
}

// Strategy is the crossover strategy. It keeps no state between calls.
type Strategy struct {
	params     Params
	deps       strategy.Dependencies
	indicators indicator.IndicatorRegistry
	logger     *logger.Logger
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

	indicators := deps.Indicators
	if indicators == nil {
		indicators = indicator.NewDefaultRegistry()
	}

	return &Strategy{
		params:     params,
		deps:       deps,
		indicators: indicators,
		logger:     log.Named(Type),
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

// Lookback covers the slow average, the previous bar and the RSI window.
func (s *Strategy) Lookback() int {
	return max(s.params.SlowPeriod, s.params.RSIPeriod) + 2
}

// Params returns the decoded parameters.
func (s *Strategy) Params() Params {
	return s.params
}

type crossover struct {
	fast, slow         float64
	prevFast, prevSlow float64
}

func (c crossover) golden() bool {
	return c.prevFast <= c.prevSlow && c.fast > c.slow
}

func (c crossover) death() bool {
	return c.prevFast >= c.prevSlow && c.fast < c.slow
}

// separation is the distance between the averages in percent of the slow one.
func (c crossover) separation() float64 {
	if c.slow == 0 {
		return 0
	}

	return math.Abs(c.fast-c.slow) / c.slow * 100
}

func (s *Strategy) crossover(closes []float64) (crossover, error) {
	var c crossover

	required := s.params.SlowPeriod + 1
	if len(closes) < required {
		return c, errors.InsufficientData("crossover", required, len(closes))
	}

	var err error

	previous := closes[:len(closes)-1]

	if c.fast, err = indicator.SMA(closes, s.params.FastPeriod); err != nil {
		return c, err
	}

	if c.slow, err = indicator.SMA(closes, s.params.SlowPeriod); err != nil {
		return c, err
	}

	if c.prevFast, err = indicator.SMA(previous, s.params.FastPeriod); err != nil {
		return c, err
	}

	if c.prevSlow, err = indicator.SMA(previous, s.params.SlowPeriod); err != nil {
		return c, err
	}

	return c, nil
}

// Analyze emits buy on a golden cross and sell on a death cross of the
// latest bar. Bars without a fresh cross yield no signal.
func (s *Strategy) Analyze(ctx context.Context, exchange, symbol string, data types.MarketData) (optional.Option[types.TradingSignal], error) {
	none := optional.None[types.TradingSignal]()
	closes := types.Closes(data.Candles)

	c, err := s.crossover(closes)
	if err != nil {
		return none, err
	}

	var action types.SignalAction

	switch {
	case c.golden():
		action = types.SignalActionBuy
	case c.death():
		action = types.SignalActionSell
	default:
		return none, nil
	}

	indicatorsUsed := []string{"sma_fast", "sma_slow"}
	rsi, rsiErr := indicator.RSI(closes, s.params.RSIPeriod)

	if s.params.UseRSIFilter {
		if rsiErr != nil {
			return none, rsiErr
		}

		indicatorsUsed = append(indicatorsUsed, "rsi")

		if action == types.SignalActionBuy && rsi > s.params.RSIOverbought {
			return none, nil
		}

		if action == types.SignalActionSell && rsi < s.params.RSIOversold {
			return none, nil
		}
	}

	price := data.CurrentPrice()
	timestamp := data.Candles[len(data.Candles)-1].Timestamp
	strength := 0.6 + math.Min(0.4, c.separation()*0.1)

	signal := types.NewSignal(s.deps.Config.ID, exchange, symbol, action, strength, timestamp)
	signal.IndicatorsUsed = indicatorsUsed
	signal.Analysis = map[string]any{
		"sma_fast":       c.fast,
		"sma_slow":       c.slow,
		"separation_pct": c.separation(),
		"price":          price,
	}

	if rsiErr == nil {
		signal.Analysis["rsi"] = rsi
	}

	s.applyStops(&signal, price)

	if s.params.UseAdvisor && s.deps.Advisor != nil {
		s.consult(ctx, &signal, data, c, rsi, rsiErr == nil)
	}

	return optional.Some(signal), nil
}

func (s *Strategy) applyStops(signal *types.TradingSignal, price float64) {
	if price <= 0 {
		return
	}

	direction := decimal.NewFromInt(1)
	if signal.Action == types.SignalActionSell {
		direction = decimal.NewFromInt(-1)
	}

	p := decimal.NewFromFloat(price)
	hundred := decimal.NewFromInt(100)

	if s.params.StopLossPercentage > 0 {
		offset := decimal.NewFromFloat(s.params.StopLossPercentage).Div(hundred).Mul(direction)
		signal.StopLoss = optional.Some(p.Mul(decimal.NewFromInt(1).Sub(offset)).InexactFloat64())
	}

	if s.params.TakeProfitPercentage > 0 {
		offset := decimal.NewFromFloat(s.params.TakeProfitPercentage).Div(hundred).Mul(direction)
		signal.TakeProfit = optional.Some(p.Mul(decimal.NewFromInt(1).Add(offset)).InexactFloat64())
	}
}

// consult asks the advisor about the signal. Agreement raises strength by up
// to a tenth; anything else scales it down by half the advisor's confidence.
func (s *Strategy) consult(ctx context.Context, signal *types.TradingSignal, data types.MarketData, c crossover, rsi float64, hasRSI bool) {
	input := DecisionContext(signal.Exchange, signal.Symbol, data, s.indicators.Snapshot(data.Candles))
	input.TechnicalIndicators["sma_fast"] = c.fast
	input.TechnicalIndicators["sma_slow"] = c.slow

	if hasRSI {
		input.TechnicalIndicators["rsi"] = rsi
	}

	decision, err := s.deps.Advisor.Decide(ctx, input)
	if err != nil {
		s.logger.Warn("advisor unavailable, keeping signal", zap.String("symbol", signal.Symbol), zap.Error(err))

		return
	}

	if decision.Action == signal.Action {
		signal.Strength = types.Clamp01(signal.Strength + 0.1*decision.Confidence)
	} else {
		signal.Strength = types.Clamp01(signal.Strength * (1 - decision.Confidence/2))
	}

	signal.IndicatorsUsed = append(signal.IndicatorsUsed, "advisor")
	signal.Analysis["advisor_action"] = string(decision.Action)
	signal.Analysis["advisor_confidence"] = decision.Confidence
	signal.Analysis["advisor_source"] = decision.Source

	if signal.StopLoss.IsNone() && decision.StopLoss.IsSome() {
		signal.StopLoss = decision.StopLoss
	}

	if signal.TakeProfit.IsNone() && decision.TakeProfit.IsSome() {
		signal.TakeProfit = decision.TakeProfit
	}
}

// DecisionContext builds advisor input from one analysis call.
func DecisionContext(exchange, symbol string, data types.MarketData, indicators map[string]float64) types.DecisionContext {
	if indicators == nil {
		indicators = map[string]float64{}
	}

	input := types.DecisionContext{
		Symbol:              symbol,
		Exchange:            exchange,
		CurrentPrice:        data.CurrentPrice(),
		PriceChange24h:      0,
		Volume24h:           0,
		Volatility:          indicator.StdDev(indicator.Returns(types.Closes(data.Candles))),
		TechnicalIndicators: indicators,
		OrderBook:           types.OrderBookSummary{BidDepth: 0, AskDepth: 0, Spread: 0},
		Portfolio:           optional.None[types.PortfolioSummary](),
		RecentPerformance:   optional.None[types.PerformanceSummary](),
	}

	if data.Ticker.IsSome() {
		ticker := data.Ticker.Unwrap()
		input.PriceChange24h = ticker.Change24h
		input.Volume24h = ticker.Volume24h

		if ticker.Ask > 0 && ticker.Bid > 0 {
			input.OrderBook.Spread = ticker.Ask - ticker.Bid
		}
	}

	if data.OrderBook.IsSome() {
		book := data.OrderBook.Unwrap()
		input.OrderBook.BidDepth = book.BidDepthValue(0)
		input.OrderBook.AskDepth = book.AskDepthValue(0)

		bid, ask := book.BestBid(), book.BestAsk()
		if bid.IsSome() && ask.IsSome() {
			input.OrderBook.Spread = ask.Unwrap().Price - bid.Unwrap().Price
		}
	}

	return input
}

var (
	_ strategy.Strategy         = (*Strategy)(nil)
	_ strategy.LookbackProvider = (*Strategy)(nil)
)
