// Package backtest replays historical candles through a strategy and
// simulates fills, fees and slippage to produce a BacktestResult.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/backtest/commission_fee"
	"github.com/rxtech-lab/autotrader/internal/indicator"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CandleSource supplies historical candles, oldest first.
type CandleSource interface {
	GetOHLCV(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error)
}

// ResultStore persists completed runs.
type ResultStore interface {
	SaveBacktestResult(ctx context.Context, result types.BacktestResult) error
}

// OnProcessDataCallback is called after each candle with the number of
// candles processed so far and the total for the run.
type OnProcessDataCallback func(current int, total int)

// Engine runs backtests. It is safe for concurrent runs; each run has its
// own strategy instance and state.
type Engine struct {
	strategies *strategy.Registry
	candles    CandleSource
	results    ResultStore
	indicators indicator.IndicatorRegistry
	logger     *logger.Logger
	now        func() time.Time
}

// NewEngine creates an engine. results may be nil to skip persistence.
func NewEngine(strategies *strategy.Registry, candles CandleSource, results ResultStore, log *logger.Logger) *Engine {
	return &Engine{
		strategies: strategies,
		candles:    candles,
		results:    results,
		indicators: indicator.NewDefaultRegistry(),
		logger:     log.Named("backtest"),
		now:        time.Now,
	}
}

// run is the mutable state of one simulation.
type run struct {
	cfg        Config
	strategy   strategy.Strategy
	fees       commission_fee.CommissionFee
	balance    decimal.Decimal
	trades     []types.Trade
	equity     []types.EquityPoint
	lookback   int
	positions  map[string]*types.Position
	processed  int
	total      int
	onProgress optional.Option[OnProcessDataCallback]
}

// Run simulates cfg. Cancelling handle, or ctx, stops the run at the next
// candle with ErrCodeBacktestCancelled and discards partial results.
func (e *Engine) Run(ctx context.Context, cfg Config, handle *Handle, onProgress optional.Option[OnProcessDataCallback]) (types.BacktestResult, error) {
	var result types.BacktestResult

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return result, err
	}

	definition, err := e.strategies.Lookup(cfg.Strategy.Type, cfg.Strategy.Version)
	if err != nil {
		return result, err
	}

	if !definition.Backtestable {
		return result, errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy type %s needs live venues and cannot be backtested", cfg.Strategy.Type)
	}

	instance, err := definition.Factory(strategy.Dependencies{
		Config:     cfg.Strategy,
		Market:     nil,
		Venues:     nil,
		Indicators: e.indicators,
		Advisor:    nil,
		Logger:     e.logger,
	})
	if err != nil {
		return result, err
	}

	if err := instance.Initialize(ctx); err != nil {
		return result, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to initialize strategy", err)
	}

	defer func() {
		if err := instance.Cleanup(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("strategy cleanup failed", zap.Error(err))
		}
	}()

	series, total, err := e.load(ctx, cfg)
	if err != nil {
		return result, err
	}

	r := &run{
		cfg:        cfg,
		strategy:   instance,
		fees:       cfg.CommissionFee(),
		balance:    decimal.NewFromFloat(cfg.InitialBalance),
		trades:     make([]types.Trade, 0),
		equity:     make([]types.EquityPoint, 0, total),
		lookback:   cfg.WarmupPeriod + 1,
		positions:  make(map[string]*types.Position),
		processed:  0,
		total:      total,
		onProgress: onProgress,
	}

	if provider, ok := instance.(strategy.LookbackProvider); ok {
		r.lookback = max(r.lookback, provider.Lookback())
	}

	e.logger.Info("backtest started",
		zap.String("strategy", cfg.Strategy.ID),
		zap.String("type", cfg.Strategy.Type),
		zap.Strings("symbols", cfg.Symbols),
		zap.Time("start", cfg.Start),
		zap.Time("end", cfg.End),
		zap.Int("candles", total),
	)

	for _, symbol := range cfg.Symbols {
		if err := e.simulate(ctx, r, handle, symbol, series[symbol]); err != nil {
			return result, err
		}
	}

	result = types.BacktestResult{
		ID:            uuid.New().String(),
		StrategyID:    cfg.Strategy.ID,
		Config:        cfg.asMap(),
		Metrics:       ComputeMetrics(cfg.InitialBalance, r.trades, r.equity, cfg.RiskFreeRate),
		Trades:        r.trades,
		EquityCurve:   r.equity,
		DrawdownCurve: Drawdowns(cfg.InitialBalance, r.equity),
		CompletedAt:   e.now().UTC(),
	}

	e.logger.Info("backtest completed",
		zap.String("id", result.ID),
		zap.Int("trades", result.Metrics.TotalTrades),
		zap.Float64("return_pct", result.Metrics.TotalReturnPercentage),
		zap.Float64("max_drawdown_pct", result.Metrics.MaxDrawdownPercentage),
	)

	if e.results != nil {
		if err := e.results.SaveBacktestResult(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// load fetches every symbol's candles in [Start, End] and returns the
// number that will be simulated after warmup.
func (e *Engine) load(ctx context.Context, cfg Config) (map[string][]types.Candle, int, error) {
	step := cfg.Timeframe.Duration()
	limit := int(cfg.End.Sub(cfg.Start)/step) + 1
	series := make(map[string][]types.Candle, len(cfg.Symbols))
	total := 0

	for _, symbol := range cfg.Symbols {
		candles, err := e.candles.GetOHLCV(ctx, cfg.Exchange, symbol, cfg.Timeframe, cfg.Start, limit)
		if err != nil {
			return nil, 0, errors.Wrapf(errors.ErrCodeBacktestNoData, err, "failed to load %s candles", symbol)
		}

		inRange := make([]types.Candle, 0, len(candles))
		for _, candle := range candles {
			if !candle.Timestamp.Before(cfg.Start) && !candle.Timestamp.After(cfg.End) {
				inRange = append(inRange, candle)
			}
		}

		if len(inRange) <= cfg.WarmupPeriod {
			return nil, 0, errors.Newf(errors.ErrCodeBacktestNoData, "%s has %d candles, warmup needs more than %d", symbol, len(inRange), cfg.WarmupPeriod)
		}

		series[symbol] = inRange
		total += len(inRange) - cfg.WarmupPeriod
	}

	return series, total, nil
}

func (e *Engine) simulate(ctx context.Context, r *run, handle *Handle, symbol string, candles []types.Candle) error {
	for i := r.cfg.WarmupPeriod; i < len(candles); i++ {
		if handle.Cancelled() || ctx.Err() != nil {
			e.logger.Info("backtest cancelled", zap.String("symbol", symbol), zap.Int("processed", r.processed))

			return errors.New(errors.ErrCodeBacktestCancelled, "backtest cancelled")
		}

		candle := candles[i]

		if !e.checkExit(r, symbol, candle) {
			window := candles[max(0, i+1-r.lookback) : i+1]
			if err := e.step(ctx, r, symbol, candle, window); err != nil {
				return err
			}
		}

		r.equity = append(r.equity, types.EquityPoint{Timestamp: candle.Timestamp, Equity: r.markToMarket(symbol, candle)})
		r.processed++

		if r.onProgress.IsSome() {
			r.onProgress.Unwrap()(r.processed, r.total)
		}
	}

	if position, ok := r.positions[symbol]; ok {
		last := candles[len(candles)-1]
		r.close(position, last.Close, last.Timestamp, types.TradeReasonEndOfData)
	}

	return nil
}

// checkExit closes symbol's open position when a stop, target or holding
// limit fires on this candle's close. It reports whether it closed one.
func (e *Engine) checkExit(r *run, symbol string, candle types.Candle) bool {
	position, ok := r.positions[symbol]
	if !ok {
		return false
	}

	reason := ""

	switch {
	case position.StopLossHit(candle.Close):
		reason = types.TradeReasonStopLoss
	case position.TakeProfitHit(candle.Close):
		reason = types.TradeReasonTakeProfit
	case r.cfg.MaxHoldingPeriod > 0 && candle.Timestamp.Sub(position.OpenedAt) >= r.cfg.MaxHoldingPeriod:
		reason = types.TradeReasonMaxHolding
	default:
		return false
	}

	r.close(position, candle.Close, candle.Timestamp, reason)

	return true
}

func (e *Engine) step(ctx context.Context, r *run, symbol string, candle types.Candle, window []types.Candle) error {
	data := types.MarketData{
		Candles:   window,
		Ticker:    optional.Some(r.syntheticTicker(symbol, candle)),
		OrderBook: optional.None[types.OrderBook](),
	}

	signal, err := e.analyze(ctx, r, symbol, data)
	if err != nil {
		if errors.IsInsufficientData(err) {
			return nil
		}

		return err
	}

	if signal.IsNone() {
		return nil
	}

	s := signal.Unwrap()

	position, open := r.positions[symbol]
	if open {
		if s.Action == types.SignalActionClose || s.Action == types.SignalAction(position.Side.ExitSide()) {
			r.close(position, candle.Close, candle.Timestamp, types.TradeReasonSignal)
		}

		return nil
	}

	if !s.IsEntry() || s.Strength < r.cfg.MinSignalStrength || len(r.positions) >= r.cfg.MaxPositions {
		return nil
	}

	side := types.PositionSideLong
	if s.Action == types.SignalActionSell {
		if !r.cfg.AllowShort {
			return nil
		}

		side = types.PositionSideShort
	}

	r.open(symbol, side, candle, s)

	return nil
}

func (e *Engine) analyze(ctx context.Context, r *run, symbol string, data types.MarketData) (result optional.Option[types.TradingSignal], err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = optional.None[types.TradingSignal]()
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy %s panicked: %v", r.strategy.Name(), recovered)
		}
	}()

	return r.strategy.Analyze(ctx, r.cfg.Exchange, symbol, data)
}

func (r *run) syntheticTicker(symbol string, candle types.Candle) types.Ticker {
	half := decimal.NewFromFloat(r.cfg.SimulatedSpreadPercentage).Div(decimal.NewFromInt(200))
	price := decimal.NewFromFloat(candle.Close)

	return types.Ticker{
		Exchange:  r.cfg.Exchange,
		Symbol:    symbol,
		Last:      candle.Close,
		Bid:       price.Mul(decimal.NewFromInt(1).Sub(half)).InexactFloat64(),
		Ask:       price.Mul(decimal.NewFromInt(1).Add(half)).InexactFloat64(),
		Volume24h: candle.Volume,
		Change24h: 0,
		Timestamp: candle.Timestamp,
	}
}

// slipped moves price against the trader by the configured slippage.
func (r *run) slipped(price float64, side types.OrderSide) float64 {
	slip := decimal.NewFromFloat(r.cfg.SlippagePercentage).Div(decimal.NewFromInt(100))
	p := decimal.NewFromFloat(price)

	if side == types.OrderSideBuy {
		return p.Mul(decimal.NewFromInt(1).Add(slip)).InexactFloat64()
	}

	return p.Mul(decimal.NewFromInt(1).Sub(slip)).InexactFloat64()
}

func (r *run) trade(position *types.Position, side types.OrderSide, price, quantity float64, at time.Time, closing bool, reason string) types.Trade {
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).InexactFloat64()

	return types.Trade{
		ID:         uuid.New().String(),
		OrderID:    "",
		PositionID: position.ID,
		OwnerID:    position.OwnerID,
		StrategyID: position.StrategyID,
		Exchange:   position.Exchange,
		Symbol:     position.Symbol,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		Fee:        r.fees.Calculate(notional),
		PnL:        0,
		IsClosing:  closing,
		Reason:     reason,
		IsPaper:    true,
		ExecutedAt: at,
	}
}

// open sizes a position at PositionSizeFraction of the current balance.
func (r *run) open(symbol string, side types.PositionSide, candle types.Candle, signal types.TradingSignal) {
	price := r.slipped(candle.Close, side.EntrySide())
	notional := r.balance.Mul(decimal.NewFromFloat(r.cfg.PositionSizeFraction))

	if !notional.IsPositive() {
		return
	}

	quantity := notional.Div(decimal.NewFromFloat(price)).InexactFloat64()

	//nolint:exhaustruct
	position := &types.Position{
		ID:         uuid.New().String(),
		OwnerID:    r.cfg.Strategy.OwnerID,
		StrategyID: r.cfg.Strategy.ID,
		Exchange:   r.cfg.Exchange,
		Symbol:     symbol,
		Side:       side,
		StopLoss:   r.stopLoss(side, price, signal),
		TakeProfit: r.takeProfit(side, price, signal),
		Status:     types.PositionStatusPending,
		IsPaper:    true,
		OpenedAt:   candle.Timestamp,
		ClosedAt:   optional.None[time.Time](),
	}

	trade := r.trade(position, side.EntrySide(), price, quantity, candle.Timestamp, false, types.TradeReasonSignal)

	pnl, err := position.ApplyTrade(trade)
	if err != nil {
		return
	}

	trade.PnL = pnl
	r.record(trade)
	r.positions[symbol] = position
}

func (r *run) close(position *types.Position, price float64, at time.Time, reason string) {
	side := position.Side.ExitSide()
	trade := r.trade(position, side, r.slipped(price, side), position.Quantity, at, true, reason)

	pnl, err := position.ApplyTrade(trade)
	if err != nil {
		return
	}

	trade.PnL = pnl
	r.record(trade)
	delete(r.positions, position.Symbol)
}

func (r *run) record(trade types.Trade) {
	r.balance = r.balance.Add(decimal.NewFromFloat(trade.PnL))
	r.trades = append(r.trades, trade)

	if observer, ok := r.strategy.(strategy.ExecutionObserver); ok {
		observer.OnTrade(trade)
	}
}

// markToMarket is the balance plus the unrealized pnl of open positions,
// marking symbol's position at the candle's close.
func (r *run) markToMarket(symbol string, candle types.Candle) float64 {
	equity := r.balance

	for _, position := range r.positions {
		if position.Symbol == symbol {
			position.Mark(candle.Close, candle.Timestamp)
		}

		equity = equity.Add(decimal.NewFromFloat(position.UnrealizedPnl))
	}

	return equity.InexactFloat64()
}

func (r *run) stopLoss(side types.PositionSide, price float64, signal types.TradingSignal) optional.Option[float64] {
	if signal.StopLoss.IsSome() {
		return signal.StopLoss
	}

	return offset(side, price, r.cfg.StopLossPercentage, true)
}

func (r *run) takeProfit(side types.PositionSide, price float64, signal types.TradingSignal) optional.Option[float64] {
	if signal.TakeProfit.IsSome() {
		return signal.TakeProfit
	}

	return offset(side, price, r.cfg.TakeProfitPercentage, false)
}

// offset places a stop below (or a target above) a long entry, mirrored
// for shorts. A zero percentage means none.
func offset(side types.PositionSide, price, percentage float64, stop bool) optional.Option[float64] {
	if percentage <= 0 {
		return optional.None[float64]()
	}

	delta := decimal.NewFromFloat(percentage).Div(decimal.NewFromInt(100))
	if (side == types.PositionSideLong) == stop {
		delta = delta.Neg()
	}

	return optional.Some(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(delta)).InexactFloat64())
}
