package arbitrage

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TriangularType    = "arbitrage/triangular"
	TriangularVersion = "1.0.0"
)

// TriangularParams configures the three-leg search.
type TriangularParams struct {
	// Paths are three-symbol cycles such as BTC/USDT, ETH/BTC, ETH/USDT.
	Paths               [][]string    `mapstructure:"paths" json:"paths" jsonschema:"title=Three leg symbol paths" validate:"required,min=1,dive,len=3,dive,required"`
	StartAmount         float64       `mapstructure:"start_amount" json:"start_amount" jsonschema:"title=Notional in the start asset,default=1000" validate:"gt=0"`
	SlippagePercentage  float64       `mapstructure:"slippage_percentage" json:"slippage_percentage" jsonschema:"title=Assumed slippage per leg in percent,default=0.05" validate:"gte=0,lt=100"`
	MinProfitPercentage float64       `mapstructure:"min_profit_percentage" json:"min_profit_percentage" jsonschema:"title=Minimum net round trip return in percent,default=0" validate:"gte=0"`
	FeePercentage       float64       `mapstructure:"fee_percentage" json:"fee_percentage" jsonschema:"title=Fee per leg when the venue is unknown,default=0.1" validate:"gte=0,lt=100"`
	Interval            time.Duration `mapstructure:"interval" json:"interval" jsonschema:"title=Scan interval,default=10s" validate:"gte=1s"`
}

// DefaultTriangularParams returns the default search parameters.
func DefaultTriangularParams() TriangularParams {
	return TriangularParams{
		Paths:               [][]string{{"BTC/USDT", "ETH/BTC", "ETH/USDT"}},
		StartAmount:         1000,
		SlippagePercentage:  0.05,
		MinProfitPercentage: 0,
		FeePercentage:       0.1,
		Interval:            10 * time.Second,
	}
}

// TriangularDefinition registers the strategy.
func TriangularDefinition() strategy.Definition {
	return strategy.Definition{
		Type:         TriangularType,
		Version:      TriangularVersion,
		Description:  "Trades three-leg cycles on one venue when the round trip beats fees and slippage",
		Params:       DefaultTriangularParams(),
		Factory:      NewTriangular,
		Backtestable: false,
	}
}

// Leg is one conversion of a path.
type Leg struct {
	Symbol    string          `json:"symbol"`
	Side      types.OrderSide `json:"side"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Price     float64         `json:"price"`
	AmountIn  float64         `json:"amount_in"`
	AmountOut float64         `json:"amount_out"`
}

// TriangularOpportunity is a profitable path at the quoted prices.
type TriangularOpportunity struct {
	Path         []string `json:"path"`
	StartAsset   string   `json:"start_asset"`
	StartAmount  float64  `json:"start_amount"`
	EndAmount    float64  `json:"end_amount"`
	NetReturnPct float64  `json:"net_return_pct"`
	Legs         []Leg    `json:"legs"`
}

// startAsset is the asset shared by the first and last legs but not the middle one.
func startAsset(path []string) (string, bool) {
	assets := make([][2]string, len(path))

	for i, symbol := range path {
		base, quote, err := types.ParseSymbol(symbol)
		if err != nil {
			return "", false
		}

		assets[i] = [2]string{base, quote}
	}

	for _, candidate := range assets[0] {
		if (candidate == assets[2][0] || candidate == assets[2][1]) && candidate != assets[1][0] && candidate != assets[1][1] {
			return candidate, true
		}
	}

	return "", false
}

// WalkPath converts start units of the path's start asset through each leg
// at ask (buys) or bid (sells), less fee and slippage per leg. It returns
// false when a quote is missing or the path does not cycle.
func WalkPath(path []string, quotes map[string]Quote, start, feePercentage, slippagePercentage float64) (TriangularOpportunity, bool) {
	var opportunity TriangularOpportunity

	asset, ok := startAsset(path)
	if !ok || start <= 0 {
		return opportunity, false
	}

	hundred := decimal.NewFromInt(100)
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(feePercentage).Div(hundred)).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePercentage).Div(hundred)))

	held := asset
	amount := decimal.NewFromFloat(start)
	legs := make([]Leg, 0, len(path))

	for _, symbol := range path {
		quote, found := quotes[symbol]
		if !found {
			return opportunity, false
		}

		base, quoteAsset, _ := types.ParseSymbol(symbol)
		leg := Leg{Symbol: symbol, From: held, AmountIn: amount.InexactFloat64()} //nolint:exhaustruct

		switch held {
		case quoteAsset:
			if quote.Ask <= 0 {
				return opportunity, false
			}

			leg.Side, leg.To, leg.Price = types.OrderSideBuy, base, quote.Ask
			amount = amount.Div(decimal.NewFromFloat(quote.Ask)).Mul(keep)
		case base:
			if quote.Bid <= 0 {
				return opportunity, false
			}

			leg.Side, leg.To, leg.Price = types.OrderSideSell, quoteAsset, quote.Bid
			amount = amount.Mul(decimal.NewFromFloat(quote.Bid)).Mul(keep)
		default:
			return opportunity, false
		}

		leg.AmountOut = amount.InexactFloat64()
		held = leg.To
		legs = append(legs, leg)
	}

	if held != asset {
		return opportunity, false
	}

	startDec := decimal.NewFromFloat(start)

	return TriangularOpportunity{
		Path:         path,
		StartAsset:   asset,
		StartAmount:  start,
		EndAmount:    amount.InexactFloat64(),
		NetReturnPct: amount.Sub(startDec).Div(startDec).Mul(hundred).InexactFloat64(),
		Legs:         legs,
	}, true
}

// FindTriangular returns the paths whose net return is positive and at
// least minProfitPercentage, best first.
func FindTriangular(paths [][]string, quotes map[string]Quote, start, feePercentage, slippagePercentage, minProfitPercentage float64) []TriangularOpportunity {
	opportunities := make([]TriangularOpportunity, 0)

	for _, path := range paths {
		opportunity, ok := WalkPath(path, quotes, start, feePercentage, slippagePercentage)
		if !ok || opportunity.NetReturnPct <= 0 || opportunity.NetReturnPct < minProfitPercentage {
			continue
		}

		opportunities = append(opportunities, opportunity)
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].NetReturnPct > opportunities[j].NetReturnPct
	})

	return opportunities
}

// Triangular scans its paths on one venue on a fixed interval.
type Triangular struct {
	params  TriangularParams
	deps    strategy.Dependencies
	logger  *logger.Logger
	pending *pending[TriangularOpportunity]
	now     func() time.Time
}

// NewTriangular builds the strategy. It needs live market data and venues.
func NewTriangular(deps strategy.Dependencies) (strategy.Strategy, error) {
	params := DefaultTriangularParams()
	if _, ok := deps.Config.Parameters["paths"]; ok {
		params.Paths = nil
	}

	if err := strategy.DecodeParams(deps.Config.Parameters, &params); err != nil {
		return nil, err
	}

	if deps.Market == nil || deps.Venues == nil {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "triangular arbitrage needs live market data and venues")
	}

	for _, path := range params.Paths {
		if _, ok := startAsset(path); !ok {
			return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "path %s does not form a cycle", strings.Join(path, " -> "))
		}
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Triangular{
		params:  params,
		deps:    deps,
		logger:  log.Named("triangular"),
		pending: newPending[TriangularOpportunity](2 * params.Interval),
		now:     time.Now,
	}, nil
}

func (t *Triangular) Name() string {
	return TriangularType
}

func (t *Triangular) Initialize(_ context.Context) error {
	return nil
}

func (t *Triangular) Cleanup(_ context.Context) error {
	return nil
}

func (t *Triangular) Interval() time.Duration {
	return t.params.Interval
}

// Lookback keeps the engine's candle fetch minimal; only books matter here.
func (t *Triangular) Lookback() int {
	return 1
}

func (t *Triangular) quotes(ctx context.Context, exchange string, paths [][]string, fee float64) map[string]Quote {
	quotes := make(map[string]Quote)

	for _, path := range paths {
		for _, symbol := range path {
			if _, seen := quotes[symbol]; seen {
				continue
			}

			book, err := t.deps.Market.GetOrderBook(ctx, exchange, symbol, 1)
			if err != nil {
				t.logger.Warn("no book for path leg", zap.String("symbol", symbol), zap.Error(err))

				continue
			}

			if quote, ok := QuoteFromBook(book, 1, fee); ok {
				quotes[symbol] = quote
			}
		}
	}

	return quotes
}

// Analyze evaluates the paths starting at symbol and announces the best one.
func (t *Triangular) Analyze(ctx context.Context, exchange, symbol string, _ types.MarketData) (optional.Option[types.TradingSignal], error) {
	none := optional.None[types.TradingSignal]()

	paths := make([][]string, 0, len(t.params.Paths))
	for _, path := range t.params.Paths {
		if path[0] == symbol {
			paths = append(paths, path)
		}
	}

	if len(paths) == 0 {
		return none, nil
	}

	fee := takerFee(t.deps.Venues, exchange, t.params.FeePercentage)
	quotes := t.quotes(ctx, exchange, paths, fee)

	opportunities := FindTriangular(paths, quotes, t.params.StartAmount, fee, t.params.SlippagePercentage, t.params.MinProfitPercentage)
	if len(opportunities) == 0 {
		return none, nil
	}

	best := opportunities[0]
	now := t.now()

	signal := types.NewSignal(t.deps.Config.ID, exchange, symbol, types.SignalActionBuy, 0.6+math.Min(0.4, best.NetReturnPct), now)
	signal.IndicatorsUsed = []string{"order_book"}
	signal.Analysis = map[string]any{
		"path":           strings.Join(best.Path, " -> "),
		"start_asset":    best.StartAsset,
		"start_amount":   best.StartAmount,
		"end_amount":     best.EndAmount,
		"net_return_pct": best.NetReturnPct,
		"opportunities":  len(opportunities),
	}

	t.pending.put(signal.ID, best, now)

	t.logger.Info("triangular opportunity",
		zap.String("path", signal.Analysis["path"].(string)),
		zap.Float64("net_return_pct", best.NetReturnPct),
	)

	return optional.Some(signal), nil
}

// ExecuteSignal runs the legs of the announced path in order, each sized
// from what the previous leg actually returned. A failure part way leaves
// intermediate assets on the venue; it is reported with every leg so far.
func (t *Triangular) ExecuteSignal(ctx context.Context, signal types.TradingSignal, assessment risk.Assessment) ([]types.Trade, error) {
	opportunity, ok := t.pending.take(signal.ID, t.now())
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyRuntimeError, "no pending opportunity for signal %s", signal.ID)
	}

	cfg := t.deps.Config

	venue, err := t.deps.Venues.ForTrading(signal.Exchange, cfg.IsPaperTrading)
	if err != nil {
		return nil, err
	}

	start := decimal.NewFromFloat(opportunity.StartAmount)
	if assessment.PositionSize > 0 && assessment.CurrentPrice > 0 && opportunity.Legs[0].Side == types.OrderSideBuy {
		notional := decimal.NewFromFloat(assessment.PositionSize).Mul(decimal.NewFromFloat(assessment.CurrentPrice))
		start = decimal.Min(start, notional)
	}

	held := start
	trades := make([]types.Trade, 0, len(opportunity.Legs))

	for i, leg := range opportunity.Legs {
		amount := held
		if leg.Side == types.OrderSideBuy {
			amount = held.Div(decimal.NewFromFloat(leg.Price))
		}

		f, err := placeMarket(ctx, venue, leg.Symbol, leg.Side, amount.InexactFloat64())
		if err != nil {
			t.logger.Error("triangular leg failed, manual reconciliation needed",
				zap.String("signal_id", signal.ID),
				zap.String("path", strings.Join(opportunity.Path, " -> ")),
				zap.Int("failed_leg", i),
				zap.Any("legs", opportunity.Legs),
				zap.Any("filled", trades),
				zap.String("held_asset", leg.From),
				zap.Float64("held_amount", held.InexactFloat64()),
				zap.Error(err),
			)

			return trades, errors.Wrapf(errors.ErrCodeArbitrageLegFailed, err, "leg %d (%s %s) of %s failed", i, leg.Side, leg.Symbol, strings.Join(opportunity.Path, " -> "))
		}

		fee := decimal.NewFromFloat(f.fee)
		if leg.Side == types.OrderSideBuy {
			held = decimal.NewFromFloat(f.order.Filled).Sub(fee.Div(decimal.NewFromFloat(f.price)))
		} else {
			held = f.value().Sub(fee)
		}

		trades = append(trades, tradeFor(cfg, signal.Exchange, f, t.now().UTC()))
	}

	profit := held.Sub(start)
	last := len(trades) - 1
	trades[last].PnL = profit.InexactFloat64()
	trades[last].IsClosing = true

	t.logger.Info("triangular arbitrage executed",
		zap.String("signal_id", signal.ID),
		zap.String("path", strings.Join(opportunity.Path, " -> ")),
		zap.String("asset", opportunity.StartAsset),
		zap.Float64("start", start.InexactFloat64()),
		zap.Float64("end", held.InexactFloat64()),
		zap.Float64("profit", profit.InexactFloat64()),
	)

	return trades, nil
}

var (
	_ strategy.Strategy         = (*Triangular)(nil)
	_ strategy.SelfScheduled    = (*Triangular)(nil)
	_ strategy.SignalExecutor   = (*Triangular)(nil)
	_ strategy.LookbackProvider = (*Triangular)(nil)
)
