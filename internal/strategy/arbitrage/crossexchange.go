package arbitrage

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CrossExchangeType    = "arbitrage/crossexchange"
	CrossExchangeVersion = "1.0.0"
)

// CrossExchangeParams configures the two venue search.
type CrossExchangeParams struct {
	Exchanges          []string      `mapstructure:"exchanges" json:"exchanges" jsonschema:"title=Venues compared for each symbol" validate:"required,min=2,unique,dive,required"`
	MinProfitThreshold float64       `mapstructure:"min_profit_threshold" json:"min_profit_threshold" jsonschema:"title=Minimum net spread in percent,default=0.5" validate:"gte=0"`
	SlippagePercentage float64       `mapstructure:"slippage_percentage" json:"slippage_percentage" jsonschema:"title=Assumed slippage across both legs in percent,default=0.1" validate:"gte=0,lt=100"`
	MaxPositionSize    float64       `mapstructure:"max_position_size" json:"max_position_size" jsonschema:"title=Maximum quote notional per opportunity,default=1000" validate:"gt=0"`
	MinProfitUSD       float64       `mapstructure:"min_profit_usd" json:"min_profit_usd" jsonschema:"title=Minimum estimated profit in quote currency,default=1" validate:"gte=0"`
	DepthLevels        int           `mapstructure:"depth_levels" json:"depth_levels" jsonschema:"title=Book levels counted as available depth,default=5" validate:"gt=0"`
	Interval           time.Duration `mapstructure:"interval" json:"interval" jsonschema:"title=Scan interval,default=5s" validate:"gte=1s"`
}

// DefaultCrossExchangeParams returns the default search parameters.
func DefaultCrossExchangeParams() CrossExchangeParams {
	return CrossExchangeParams{
		Exchanges:          nil,
		MinProfitThreshold: 0.5,
		SlippagePercentage: 0.1,
		MaxPositionSize:    1000,
		MinProfitUSD:       1,
		DepthLevels:        5,
		Interval:           5 * time.Second,
	}
}

// CrossExchangeDefinition registers the strategy.
func CrossExchangeDefinition() strategy.Definition {
	return strategy.Definition{
		Type:         CrossExchangeType,
		Version:      CrossExchangeVersion,
		Description:  "Buys on the cheaper venue and sells on the dearer one when the spread beats fees and slippage",
		Params:       DefaultCrossExchangeParams(),
		Factory:      NewCrossExchange,
		Backtestable: false,
	}
}

// CrossExchangeOpportunity is a buy on one venue against a sell on another.
type CrossExchangeOpportunity struct {
	Symbol             string  `json:"symbol"`
	BuyExchange        string  `json:"buy_exchange"`
	SellExchange       string  `json:"sell_exchange"`
	BuyPrice           float64 `json:"buy_price"`
	SellPrice          float64 `json:"sell_price"`
	SpreadPercentage   float64 `json:"spread_percentage"`
	NetProfitPercent   float64 `json:"net_profit_percent"`
	AvailableNotional  float64 `json:"available_notional"`
	EstimatedProfitUSD float64 `json:"estimated_profit_usd"`
}

// FindCrossExchange pairs every venue's ask with every other venue's bid.
// The net spread subtracts both taker fees and the slippage allowance;
// pairs below threshold, or losing money, are dropped. Best first.
func FindCrossExchange(symbol string, quotes []Quote, threshold, slippagePercentage, maxNotional float64) []CrossExchangeOpportunity {
	opportunities := make([]CrossExchangeOpportunity, 0)

	for _, buy := range quotes {
		for _, sell := range quotes {
			if buy.Exchange == sell.Exchange || buy.Ask <= 0 || sell.Bid <= buy.Ask {
				continue
			}

			ask := decimal.NewFromFloat(buy.Ask)
			spread := decimal.NewFromFloat(sell.Bid).Sub(ask).Div(ask).Mul(decimal.NewFromInt(100))
			net := spread.
				Sub(decimal.NewFromFloat(buy.FeePercentage)).
				Sub(decimal.NewFromFloat(sell.FeePercentage)).
				Sub(decimal.NewFromFloat(slippagePercentage))

			if net.IsNegative() || net.LessThan(decimal.NewFromFloat(threshold)) {
				continue
			}

			available := math.Min(math.Min(buy.AskDepthValue, sell.BidDepthValue), maxNotional)

			opportunities = append(opportunities, CrossExchangeOpportunity{
				Symbol:             symbol,
				BuyExchange:        buy.Exchange,
				SellExchange:       sell.Exchange,
				BuyPrice:           buy.Ask,
				SellPrice:          sell.Bid,
				SpreadPercentage:   spread.InexactFloat64(),
				NetProfitPercent:   net.InexactFloat64(),
				AvailableNotional:  available,
				EstimatedProfitUSD: decimal.NewFromFloat(available).Mul(net).Div(decimal.NewFromInt(100)).InexactFloat64(),
			})
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].EstimatedProfitUSD > opportunities[j].EstimatedProfitUSD
	})

	return opportunities
}

// CrossExchange compares one symbol across its venues on a fixed interval.
type CrossExchange struct {
	params  CrossExchangeParams
	deps    strategy.Dependencies
	logger  *logger.Logger
	pending *pending[CrossExchangeOpportunity]
	now     func() time.Time
}

// NewCrossExchange builds the strategy. It needs the venue registry.
func NewCrossExchange(deps strategy.Dependencies) (strategy.Strategy, error) {
	params := DefaultCrossExchangeParams()
	if err := strategy.DecodeParams(deps.Config.Parameters, &params); err != nil {
		return nil, err
	}

	if deps.Venues == nil {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "cross-exchange arbitrage needs venues")
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CrossExchange{
		params:  params,
		deps:    deps,
		logger:  log.Named("crossexchange"),
		pending: newPending[CrossExchangeOpportunity](2 * params.Interval),
		now:     time.Now,
	}, nil
}

func (c *CrossExchange) Name() string {
	return CrossExchangeType
}

func (c *CrossExchange) Initialize(_ context.Context) error {
	return nil
}

func (c *CrossExchange) Cleanup(_ context.Context) error {
	return nil
}

func (c *CrossExchange) Interval() time.Duration {
	return c.params.Interval
}

func (c *CrossExchange) Lookback() int {
	return 1
}

// quotes fetches every venue's book concurrently. Venues that fail are
// skipped for this round.
func (c *CrossExchange) quotes(ctx context.Context, symbol string) []Quote {
	var (
		mu     sync.Mutex
		quotes = make([]Quote, 0, len(c.params.Exchanges))
	)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, exchange := range c.params.Exchanges {
		group.Go(func() error {
			venue, err := c.deps.Venues.Get(exchange)
			if err != nil {
				c.logger.Warn("venue not registered", zap.String("exchange", exchange))

				return nil
			}

			book, err := venue.GetOrderBook(groupCtx, symbol, c.params.DepthLevels)
			if err != nil {
				c.logger.Warn("skipping venue without book", zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))

				return nil
			}

			book.Exchange = exchange

			quote, ok := QuoteFromBook(book, c.params.DepthLevels, venue.Fees().TakerPercentage)
			if !ok {
				return nil
			}

			mu.Lock()
			quotes = append(quotes, quote)
			mu.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Exchange < quotes[j].Exchange })

	return quotes
}

// Analyze announces the most profitable opportunity that clears the
// estimated profit floor.
func (c *CrossExchange) Analyze(ctx context.Context, exchange, symbol string, _ types.MarketData) (optional.Option[types.TradingSignal], error) {
	none := optional.None[types.TradingSignal]()

	quotes := c.quotes(ctx, symbol)
	if len(quotes) < 2 {
		return none, nil
	}

	opportunities := FindCrossExchange(symbol, quotes, c.params.MinProfitThreshold, c.params.SlippagePercentage, c.params.MaxPositionSize)

	var (
		best  CrossExchangeOpportunity
		found bool
	)

	for _, opportunity := range opportunities {
		if opportunity.EstimatedProfitUSD >= c.params.MinProfitUSD {
			best, found = opportunity, true

			break
		}
	}

	if !found {
		return none, nil
	}

	now := c.now()

	signal := types.NewSignal(c.deps.Config.ID, exchange, symbol, types.SignalActionBuy, 0.6+math.Min(0.4, best.NetProfitPercent/10), now)
	signal.IndicatorsUsed = []string{"order_book"}
	signal.Analysis = map[string]any{
		"buy_exchange":         best.BuyExchange,
		"sell_exchange":        best.SellExchange,
		"buy_price":            best.BuyPrice,
		"sell_price":           best.SellPrice,
		"spread_pct":           best.SpreadPercentage,
		"net_profit_pct":       best.NetProfitPercent,
		"available_notional":   best.AvailableNotional,
		"estimated_profit_usd": best.EstimatedProfitUSD,
	}

	c.pending.put(signal.ID, best, now)

	c.logger.Info("cross-exchange opportunity",
		zap.String("symbol", symbol),
		zap.String("buy", best.BuyExchange),
		zap.String("sell", best.SellExchange),
		zap.Float64("net_profit_pct", best.NetProfitPercent),
		zap.Float64("estimated_profit_usd", best.EstimatedProfitUSD),
	)

	return optional.Some(signal), nil
}

// ExecuteSignal places both legs at once. If only one fills the venues are
// left unbalanced; that is logged and returned with the filled leg.
func (c *CrossExchange) ExecuteSignal(ctx context.Context, signal types.TradingSignal, assessment risk.Assessment) ([]types.Trade, error) {
	opportunity, ok := c.pending.take(signal.ID, c.now())
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyRuntimeError, "no pending opportunity for signal %s", signal.ID)
	}

	cfg := c.deps.Config

	buyVenue, err := c.deps.Venues.ForTrading(opportunity.BuyExchange, cfg.IsPaperTrading)
	if err != nil {
		return nil, err
	}

	sellVenue, err := c.deps.Venues.ForTrading(opportunity.SellExchange, cfg.IsPaperTrading)
	if err != nil {
		return nil, err
	}

	notional := decimal.NewFromFloat(opportunity.AvailableNotional)
	amount := notional.Div(decimal.NewFromFloat(opportunity.BuyPrice))

	if assessment.PositionSize > 0 {
		amount = decimal.Min(amount, decimal.NewFromFloat(assessment.PositionSize))
	}

	var (
		buy, sell       fill
		buyErr, sellErr error
		group           errgroup.Group
	)

	group.Go(func() error {
		buy, buyErr = placeMarket(ctx, buyVenue, opportunity.Symbol, types.OrderSideBuy, amount.InexactFloat64())

		return nil
	})
	group.Go(func() error {
		sell, sellErr = placeMarket(ctx, sellVenue, opportunity.Symbol, types.OrderSideSell, amount.InexactFloat64())

		return nil
	})

	_ = group.Wait()

	at := c.now().UTC()

	switch {
	case buyErr != nil && sellErr != nil:
		return nil, errors.Wrapf(errors.ErrCodeArbitrageLegFailed, buyErr, "both legs of %s failed (sell: %v)", opportunity.Symbol, sellErr)
	case buyErr != nil || sellErr != nil:
		trades := make([]types.Trade, 0, 1)
		failed, cause := opportunity.BuyExchange, buyErr

		if buyErr == nil {
			trades = append(trades, tradeFor(cfg, opportunity.BuyExchange, buy, at))
			failed, cause = opportunity.SellExchange, sellErr
		} else {
			trades = append(trades, tradeFor(cfg, opportunity.SellExchange, sell, at))
		}

		c.logger.Error("cross-exchange arbitrage partially filled, manual reconciliation needed",
			zap.String("signal_id", signal.ID),
			zap.String("symbol", opportunity.Symbol),
			zap.String("failed_exchange", failed),
			zap.Any("filled", trades),
			zap.Error(cause),
		)

		return trades, errors.Wrapf(errors.ErrCodeArbitragePartialFill, cause, "leg on %s failed for %s", failed, opportunity.Symbol)
	}

	realized := sell.value().Sub(decimal.NewFromFloat(sell.fee)).
		Sub(buy.value()).Sub(decimal.NewFromFloat(buy.fee))

	buyTrade := tradeFor(cfg, opportunity.BuyExchange, buy, at)
	sellTrade := tradeFor(cfg, opportunity.SellExchange, sell, at)
	sellTrade.PnL = realized.InexactFloat64()
	sellTrade.IsClosing = true

	c.logger.Info("cross-exchange arbitrage executed",
		zap.String("signal_id", signal.ID),
		zap.String("symbol", opportunity.Symbol),
		zap.String("buy", opportunity.BuyExchange),
		zap.String("sell", opportunity.SellExchange),
		zap.Float64("amount", amount.InexactFloat64()),
		zap.Float64("realized", sellTrade.PnL),
	)

	return []types.Trade{buyTrade, sellTrade}, nil
}

var (
	_ strategy.Strategy         = (*CrossExchange)(nil)
	_ strategy.SelfScheduled    = (*CrossExchange)(nil)
	_ strategy.SignalExecutor   = (*CrossExchange)(nil)
	_ strategy.LookbackProvider = (*CrossExchange)(nil)
)
