// Package execution turns approved assessments into orders, trades and
// positions, and keeps open positions marked to market.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config tunes order placement and position monitoring.
type Config struct {
	// FillTimeout bounds how long a non-terminal order is polled before it is cancelled.
	FillTimeout      time.Duration `mapstructure:"fill_timeout" validate:"gt=0"`
	FillPollInterval time.Duration `mapstructure:"fill_poll_interval" validate:"gt=0,ltefield=FillTimeout"`
	// MonitorSchedule is the cron spec of the mark-to-market pass.
	MonitorSchedule string        `mapstructure:"monitor_schedule" validate:"required"`
	MonitorTimeout  time.Duration `mapstructure:"monitor_timeout" validate:"gt=0"`
	// MaxHoldingPeriod closes positions held longer; zero disables it.
	MaxHoldingPeriod time.Duration `mapstructure:"max_holding_period" validate:"gte=0"`
}

// DefaultConfig returns the execution defaults.
func DefaultConfig() Config {
	return Config{
		FillTimeout:      30 * time.Second,
		FillPollInterval: time.Second,
		MonitorSchedule:  "@every 1m",
		MonitorTimeout:   30 * time.Second,
		MaxHoldingPeriod: 0,
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid execution config", err)
	}

	return nil
}

// RiskTracker is the part of the risk manager execution keeps current.
type RiskTracker interface {
	WithTradingGate(ctx context.Context, fn func(ctx context.Context) error) error
	Commit(reservationID string, position types.Position) error
	Release(ownerID, reservationID string) error
	OnPositionOpened(position types.Position)
	OnPositionMarked(position types.Position)
	OnPositionClosed(position types.Position)
	OnTradeClosed(trade types.Trade)
}

// PerformanceRecorder folds confirmed trades into strategy performance.
type PerformanceRecorder interface {
	RecordTrade(ctx context.Context, trade types.Trade) error
}

// Executor places market orders for approved signals. It is the only place
// live positions change.
type Executor struct {
	config   Config
	venues   *connector.Registry
	repo     store.Repository
	risk     RiskTracker
	recorder PerformanceRecorder
	logger   *logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	closing map[string]struct{}
}

// NewExecutor creates an executor. The performance recorder is set later
// with SetRecorder because the strategy engine depends on the executor.
func NewExecutor(config Config, venues *connector.Registry, repo store.Repository, riskTracker RiskTracker, log *logger.Logger) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if venues == nil || repo == nil || riskTracker == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "executor requires venues, a repository and a risk tracker")
	}

	return &Executor{
		config:   config,
		venues:   venues,
		repo:     repo,
		risk:     riskTracker,
		recorder: nil,
		logger:   log.Named("executor"),
		now:      time.Now,
		sleep:    sleepContext,
		mu:       sync.Mutex{},
		closing:  make(map[string]struct{}),
	}, nil
}

// SetRecorder wires the performance recorder.
func (e *Executor) SetRecorder(recorder PerformanceRecorder) {
	e.recorder = recorder
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute carries out an approved assessment under the trading gate: an
// entry opens a new position, an exit closes assessment.PositionID. The
// entry reservation is committed on fill and released otherwise.
func (e *Executor) Execute(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal, assessment risk.Assessment) (types.Trade, error) {
	if !assessment.Approved {
		return types.Trade{}, errors.Newf(errors.ErrCodeRiskRejected, "signal %s was not approved: %s", signal.ID, assessment.Reason)
	}

	var trade types.Trade

	err := e.risk.WithTradingGate(ctx, func(ctx context.Context) error {
		var err error

		if assessment.IsExit {
			trade, err = e.exit(ctx, assessment.PositionID, types.TradeReasonSignal)
		} else {
			trade, err = e.enter(ctx, cfg, signal, assessment)
		}

		return err
	})

	if err != nil && !assessment.IsExit && assessment.ReservationID != "" {
		if rerr := e.risk.Release(cfg.OwnerID, assessment.ReservationID); rerr != nil {
			e.logger.Debug("reservation already released", zap.String("reservation_id", assessment.ReservationID))
		}
	}

	return trade, err
}

// ClosePosition closes an open position at market under the trading gate.
func (e *Executor) ClosePosition(ctx context.Context, positionID, reason string) (types.Trade, error) {
	var trade types.Trade

	err := e.risk.WithTradingGate(ctx, func(ctx context.Context) error {
		var err error
		trade, err = e.exit(ctx, positionID, reason)

		return err
	})

	return trade, err
}

func (e *Executor) enter(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal, assessment risk.Assessment) (types.Trade, error) {
	venue, err := e.venues.ForTrading(cfg.Exchange, cfg.IsPaperTrading)
	if err != nil {
		return types.Trade{}, err
	}

	order, err := e.place(ctx, venue, types.OrderRequest{
		Symbol:        signal.Symbol,
		Type:          types.OrderTypeMarket,
		Side:          assessment.OrderSide(),
		Amount:        assessment.PositionSize,
		Price:         optional.None[float64](),
		StopPrice:     optional.None[float64](),
		ClientOrderID: uuid.New().String(),
	})
	if err != nil {
		return types.Trade{}, err
	}

	now := e.now().UTC()
	position := types.Position{
		ID:            uuid.New().String(),
		OwnerID:       cfg.OwnerID,
		StrategyID:    cfg.ID,
		Exchange:      cfg.Exchange,
		Symbol:        signal.Symbol,
		Side:          assessment.Side,
		Quantity:      0,
		EntryPrice:    0,
		CurrentPrice:  0,
		UnrealizedPnl: 0,
		RealizedPnl:   0,
		StopLoss:      assessment.StopLossPrice,
		TakeProfit:    assessment.TakeProfitPrice,
		Status:        types.PositionStatusPending,
		IsPaper:       cfg.IsPaperTrading,
		OpenedAt:      now,
		ClosedAt:      optional.None[time.Time](),
		UpdatedAt:     now,
	}

	trade := e.tradeFrom(order, venue, position, types.TradeReasonSignal, now)

	pnl, err := position.ApplyTrade(trade)
	if err != nil {
		return types.Trade{}, err
	}

	trade.PnL = pnl

	if err := e.repo.RecordExecution(ctx, trade, position); err != nil {
		e.logger.Error("filled order could not be persisted",
			zap.String("order_id", order.ID),
			zap.String("position_id", position.ID),
			zap.Float64("quantity", trade.Quantity),
			zap.Float64("price", trade.Price),
			zap.Error(err),
		)
	}

	if cerr := e.risk.Commit(assessment.ReservationID, position); cerr != nil {
		e.risk.OnPositionOpened(position)
	}

	e.record(ctx, trade)

	e.logger.Info("position opened",
		zap.String("strategy_id", cfg.ID),
		zap.String("position_id", position.ID),
		zap.String("symbol", position.Symbol),
		zap.String("side", string(position.Side)),
		zap.Float64("quantity", position.Quantity),
		zap.Float64("entry_price", position.EntryPrice),
	)

	return trade, nil
}

func (e *Executor) exit(ctx context.Context, positionID, reason string) (types.Trade, error) {
	if !e.claim(positionID) {
		return types.Trade{}, errors.Newf(errors.ErrCodeOrderFailed, "position %s is already being closed", positionID)
	}
	defer e.unclaim(positionID)

	position, err := e.repo.GetPosition(ctx, positionID)
	if err != nil {
		return types.Trade{}, err
	}

	if position.Status == types.PositionStatusClosed {
		return types.Trade{}, errors.Newf(errors.ErrCodePositionClosed, "position %s is closed", positionID)
	}

	venue, err := e.venues.ForTrading(position.Exchange, position.IsPaper)
	if err != nil {
		return types.Trade{}, err
	}

	order, err := e.place(ctx, venue, types.OrderRequest{
		Symbol:        position.Symbol,
		Type:          types.OrderTypeMarket,
		Side:          position.Side.ExitSide(),
		Amount:        position.Quantity,
		Price:         optional.None[float64](),
		StopPrice:     optional.None[float64](),
		ClientOrderID: uuid.New().String(),
	})
	if err != nil {
		return types.Trade{}, err
	}

	trade := e.tradeFrom(order, venue, position, reason, e.now().UTC())
	trade.IsClosing = true

	pnl, err := position.ApplyTrade(trade)
	if err != nil {
		return types.Trade{}, err
	}

	trade.PnL = pnl

	if err := e.repo.RecordExecution(ctx, trade, position); err != nil {
		e.logger.Error("filled close could not be persisted",
			zap.String("order_id", order.ID),
			zap.String("position_id", position.ID),
			zap.Error(err),
		)
	}

	if position.Status == types.PositionStatusClosed {
		e.risk.OnPositionClosed(position)
	} else {
		e.risk.OnPositionMarked(position)
	}

	e.risk.OnTradeClosed(trade)
	e.record(ctx, trade)

	e.logger.Info("position reduced",
		zap.String("position_id", position.ID),
		zap.String("reason", reason),
		zap.Float64("realized_pnl", pnl),
		zap.String("status", string(position.Status)),
	)

	return trade, nil
}

func (e *Executor) record(ctx context.Context, trade types.Trade) {
	if e.recorder == nil {
		return
	}

	if err := e.recorder.RecordTrade(ctx, trade); err != nil {
		e.logger.Warn("failed to record trade performance", zap.String("trade_id", trade.ID), zap.Error(err))
	}
}

func (e *Executor) claim(positionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.closing[positionID]; busy {
		return false
	}

	e.closing[positionID] = struct{}{}

	return true
}

func (e *Executor) unclaim(positionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.closing, positionID)
}

// place submits req and polls until the order is terminal or FillTimeout
// passes, then cancels what is left. CreateOrder is never retried.
func (e *Executor) place(ctx context.Context, venue connector.Connector, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	order, err := venue.CreateOrder(ctx, req)
	if err != nil {
		return types.Order{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place %s %s order", req.Side, req.Symbol)
	}

	deadline := e.now().Add(e.config.FillTimeout)

	for !order.IsTerminal() && e.now().Before(deadline) {
		if err := e.sleep(ctx, e.config.FillPollInterval); err != nil {
			break
		}

		latest, err := venue.GetOrder(ctx, order.ID, req.Symbol)
		if err != nil {
			e.logger.Warn("failed to poll order", zap.String("order_id", order.ID), zap.Error(err))

			continue
		}

		order = latest
	}

	if !order.IsTerminal() {
		if err := venue.CancelOrder(ctx, order.ID, req.Symbol); err != nil {
			e.logger.Error("failed to cancel unfilled order", zap.String("order_id", order.ID), zap.Error(err))
		}

		if latest, err := venue.GetOrder(ctx, order.ID, req.Symbol); err == nil {
			order = latest
		}
	}

	if order.Filled <= 0 {
		return order, errors.Newf(errors.ErrCodeOrderFailed, "order %s on %s ended %s without a fill", order.ID, venue.Name(), order.Status)
	}

	return order, nil
}

// tradeFrom converts a filled order into a trade. Fees are expressed in the
// quote asset; when the venue reports none the taker rate is applied.
func (e *Executor) tradeFrom(order types.Order, venue connector.Connector, position types.Position, reason string, at time.Time) types.Trade {
	price := order.FillPrice()

	return types.Trade{
		ID:         uuid.New().String(),
		OrderID:    order.ID,
		PositionID: position.ID,
		OwnerID:    position.OwnerID,
		StrategyID: position.StrategyID,
		Exchange:   position.Exchange,
		Symbol:     position.Symbol,
		Side:       order.Side,
		Price:      price,
		Quantity:   order.Filled,
		Fee:        QuoteFee(order, price, venue.Fees()),
		PnL:        0,
		IsClosing:  false,
		Reason:     reason,
		IsPaper:    position.IsPaper,
		ExecutedAt: at,
	}
}

// QuoteFee returns the fee of order in its quote asset.
func QuoteFee(order types.Order, price float64, fees types.FeeSchedule) float64 {
	if order.Fee > 0 {
		if order.FeeCurrency != "" && order.FeeCurrency == types.BaseAsset(order.Symbol) {
			return decimal.NewFromFloat(order.Fee).Mul(decimal.NewFromFloat(price)).InexactFloat64()
		}

		return order.Fee
	}

	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(order.Filled)).
		Mul(decimal.NewFromFloat(fees.TakerPercentage)).
		Div(decimal.NewFromInt(100)).
		InexactFloat64()
}
