// Package risk decides whether a trading signal may become an order and how
// large that order may be.
//
// Validation runs a fixed sequence of checks under a per-owner lock, so two
// concurrent signals of the same owner can never jointly exceed the open
// position or daily loss budgets. An approved entry holds a reservation
// until the executor commits or releases it.
//
// Order placement runs inside WithTradingGate. EmergencyStop takes the write
// side of the gate, so once it returns no order can be in flight or start.
package risk

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/indicator"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// RejectReason identifies the check that stopped a signal.
type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonInvalidSignal       RejectReason = "invalid_signal"
	ReasonEmergencyStop       RejectReason = "emergency_stop"
	ReasonHoldSignal          RejectReason = "hold_signal"
	ReasonNoPosition          RejectReason = "no_position"
	ReasonLowConfidence       RejectReason = "low_confidence"
	ReasonMaxOpenPositions    RejectReason = "max_open_positions"
	ReasonDailyLossLimit      RejectReason = "daily_loss_limit"
	ReasonMaxDrawdown         RejectReason = "max_drawdown"
	ReasonInsufficientCapital RejectReason = "insufficient_capital"
	ReasonInvalidStop         RejectReason = "invalid_stop"
	ReasonRiskScore           RejectReason = "risk_score"
)

// MarketData is the price source the manager sizes and scores against.
type MarketData interface {
	GetLatestPrice(ctx context.Context, exchange, symbol string) (float64, error)
	GetOHLCV(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error)
}

// CapitalProvider reports capital available to a strategy for symbol.
type CapitalProvider interface {
	AvailableCapital(ctx context.Context, cfg types.StrategyConfig, symbol string) (float64, error)
}

// StrategyStopper deactivates every running strategy.
type StrategyStopper interface {
	DeactivateAll(ctx context.Context, reason string) (int, error)
}

// Assessment is the outcome of validating one signal.
type Assessment struct {
	SignalID string       `json:"signal_id"`
	Approved bool         `json:"approved"`
	Reason   RejectReason `json:"reason"`
	Detail   string       `json:"detail"`
	Warnings []string     `json:"warnings"`
	// IsExit marks an approved close of the existing PositionID.
	IsExit          bool                     `json:"is_exit"`
	PositionID      string                   `json:"position_id"`
	Side            types.PositionSide       `json:"side"`
	RiskScore       float64                  `json:"risk_score"`
	CurrentPrice    float64                  `json:"current_price"`
	PositionSize    float64                  `json:"position_size"`
	StopLossPrice   optional.Option[float64] `json:"stop_loss_price"`
	TakeProfitPrice optional.Option[float64] `json:"take_profit_price"`
	RiskAmount      float64                  `json:"risk_amount"`
	MaxLossAmount   float64                  `json:"max_loss_amount"`
	Parameters      types.RiskParameters     `json:"parameters"`
	ReservationID   string                   `json:"reservation_id"`
}

// OrderSide is the side of the order that carries out the assessment.
func (a Assessment) OrderSide() types.OrderSide {
	if a.IsExit {
		return a.Side.ExitSide()
	}

	return a.Side.EntrySide()
}

func (a Assessment) reject(reason RejectReason, detail string) Assessment {
	a.Approved = false
	a.Reason = reason
	a.Detail = detail

	return a
}

// Metrics is a point-in-time view of one owner's risk state.
type Metrics struct {
	OwnerID             string  `json:"owner_id"`
	Exposure            float64 `json:"exposure"`
	Reserved            float64 `json:"reserved"`
	OpenPositions       int     `json:"open_positions"`
	Reservations        int     `json:"reservations"`
	DailyPnl            float64 `json:"daily_pnl"`
	DailyLossPercentage float64 `json:"daily_loss_percentage"`
	Equity              float64 `json:"equity"`
	PeakEquity          float64 `json:"peak_equity"`
	DrawdownPercentage  float64 `json:"drawdown_percentage"`
	Utilization         float64 `json:"utilization"`
	Halted              bool    `json:"halted"`
	HaltReason          string  `json:"halt_reason"`
}

// Manager validates signals and owns the risk state of every account.
type Manager struct {
	config  Config
	params  *ParameterStore
	market  MarketData
	capital CapitalProvider
	venues  *connector.Registry
	repo    store.Repository
	logger  *logger.Logger
	now     func() time.Time

	gate       sync.RWMutex
	halted     atomic.Bool
	mu         sync.Mutex
	haltReason string
	stopper    StrategyStopper
	accounts   map[string]*accountState
}

// NewManager creates a manager. repo may be nil.
func NewManager(config Config, params *ParameterStore, market MarketData, capital CapitalProvider, venues *connector.Registry, repo store.Repository, log *logger.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Manager{
		config:     config,
		params:     params,
		market:     market,
		capital:    capital,
		venues:     venues,
		repo:       repo,
		logger:     log.Named("risk"),
		now:        time.Now,
		gate:       sync.RWMutex{},
		halted:     atomic.Bool{},
		mu:         sync.Mutex{},
		haltReason: "",
		stopper:    nil,
		accounts:   make(map[string]*accountState),
	}, nil
}

// SetStopper wires the component EmergencyStop deactivates.
func (m *Manager) SetStopper(stopper StrategyStopper) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopper = stopper
}

// Parameters returns the parameter store.
func (m *Manager) Parameters() *ParameterStore {
	return m.params
}

func (m *Manager) account(ownerID string) *accountState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.accounts[ownerID]
	if !ok {
		state = newAccountState()
		m.accounts[ownerID] = state
	}

	return state
}

// Load rebuilds exposure from stored open positions and reloads overrides.
func (m *Manager) Load(ctx context.Context) error {
	if err := m.params.Load(ctx); err != nil {
		return err
	}

	if m.repo == nil {
		return nil
	}

	positions, err := m.repo.OpenPositions(ctx, "")
	if err != nil {
		return err
	}

	for _, position := range positions {
		m.OnPositionOpened(position)
	}

	m.logger.Info("risk state loaded", zap.Int("open_positions", len(positions)))

	return nil
}

// Validate runs the risk pipeline for signal. Rejections are reported in the
// assessment; an error means an input could not be fetched. Validate must
// not be called from inside WithTradingGate.
func (m *Manager) Validate(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal) (Assessment, error) {
	assessment, breached, err := m.validate(ctx, cfg, signal)
	if err != nil {
		return assessment, err
	}

	if !assessment.Approved {
		m.logger.Info("signal rejected",
			zap.String("strategy_id", signal.StrategyID),
			zap.String("symbol", signal.Symbol),
			zap.String("action", string(signal.Action)),
			zap.String("reason", string(assessment.Reason)),
			zap.String("detail", assessment.Detail),
		)
	}

	if breached && m.config.AutoStopOnDrawdown {
		if stopErr := m.EmergencyStop(ctx, "max drawdown breached by "+cfg.OwnerID); stopErr != nil {
			m.logger.Error("automatic emergency stop failed", zap.Error(stopErr))
		}
	}

	return assessment, nil
}

//nolint:gocognit,cyclop,funlen
func (m *Manager) validate(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal) (Assessment, bool, error) {
	params := m.params.Resolve(cfg)

	//nolint:exhaustruct
	assessment := Assessment{
		SignalID:        signal.ID,
		Reason:          ReasonNone,
		Warnings:        []string{},
		Side:            types.PositionSideLong,
		StopLossPrice:   optional.None[float64](),
		TakeProfitPrice: optional.None[float64](),
		Parameters:      params,
	}

	if err := signal.Validate(); err != nil {
		return assessment.reject(ReasonInvalidSignal, err.Error()), false, nil
	}

	if m.halted.Load() {
		return assessment.reject(ReasonEmergencyStop, "trading is halted"), false, nil
	}

	if signal.Action == types.SignalActionHold {
		return assessment.reject(ReasonHoldSignal, "hold signals carry no order"), false, nil
	}

	state := m.account(cfg.OwnerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()
	state.rollover(now)
	state.expire(now)

	// 1. exits bypass entry checks
	positionID, open, hasPosition := state.openPosition(signal.StrategyID, signal.Exchange, signal.Symbol)
	if signal.Action == types.SignalActionClose {
		if !hasPosition {
			return assessment.reject(ReasonNoPosition, "no open position to close"), false, nil
		}

		return exitAssessment(assessment, positionID, open), false, nil
	}

	side := types.PositionSideLong
	if signal.Action == types.SignalActionSell {
		side = types.PositionSideShort
	}

	if hasPosition && open.side != side {
		return exitAssessment(assessment, positionID, open), false, nil
	}

	if side == types.PositionSideShort && !m.config.AllowShort {
		return assessment.reject(ReasonNoPosition, "no long position to sell and shorting is disabled"), false, nil
	}

	assessment.Side = side

	// 2. confidence
	if signal.Strength < params.MinConfidenceScore {
		return assessment.reject(ReasonLowConfidence, "signal strength below minimum confidence"), false, nil
	}

	// 3. open positions, counting pending reservations
	if state.slots() >= params.MaxOpenPositions {
		return assessment.reject(ReasonMaxOpenPositions, "open position limit reached"), false, nil
	}

	price, capital, err := m.inputs(ctx, cfg, signal)
	if err != nil {
		return assessment, false, err
	}

	assessment.CurrentPrice = price
	state.markEquity(capital + state.exposure())

	// 4. daily loss
	if state.dailyLossPercentage(capital) >= params.MaxDailyLossPercentage {
		return assessment.reject(ReasonDailyLossLimit, "daily loss limit reached"), false, nil
	}

	// 5. drawdown
	if state.drawdownPercentage() >= params.MaxDrawdownPercentage {
		return assessment.reject(ReasonMaxDrawdown, "maximum drawdown reached"), true, nil
	}

	// 6. sizing and capital
	sizing, err := PositionSize(SizingInput{
		Capital:                capital,
		Price:                  price,
		Side:                   side,
		RiskPerTradePercentage: params.RiskPerTradePercentage,
		StopLossPercentage:     params.StopLossPercentage,
		MaxPositionSizeUSD:     params.MaxPositionSizeUSD,
		MarginOfSafety:         params.MarginOfSafety,
		StopLoss:               signal.StopLoss,
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientFunds) {
			return assessment.reject(ReasonInsufficientCapital, err.Error()), false, nil
		}

		return assessment.reject(ReasonInvalidStop, err.Error()), false, nil
	}

	notional := sizing.PositionSize * price
	if sizing.PositionSize <= 0 || capital < math.Min(params.MaxPositionSizeUSD, notional) {
		return assessment.reject(ReasonInsufficientCapital, "available capital does not cover the position"), false, nil
	}

	if sizing.Capped {
		assessment.Warnings = append(assessment.Warnings, "position size capped by notional limit")
	}

	// 7. correlation and volatility
	correlation := state.baseAssetShare(signal.Exchange, signal.Symbol)
	if correlation > params.CorrelationLimit {
		assessment.Warnings = append(assessment.Warnings, "concentrated in the same base asset")
	}

	volatility, ok := m.volatility(ctx, signal.Exchange, signal.Symbol)
	if !ok {
		assessment.Warnings = append(assessment.Warnings, "volatility unavailable")
	} else if volatility > m.config.VolatilityThreshold {
		assessment.Warnings = append(assessment.Warnings, "high volatility")
	}

	capacity := params.MaxPositionSizeUSD * float64(params.MaxOpenPositions)
	utilization := (state.exposure() + state.reserved() + notional) / capacity

	score := Score(ScoreInput{
		Strength:    signal.Strength,
		Utilization: utilization,
		Correlation: correlation,
		Volatility:  VolatilityFactor(volatility, m.config.VolatilityThreshold),
	})
	assessment.RiskScore = score

	if score > m.config.HardScoreCeiling {
		return assessment.reject(ReasonRiskScore, "composite risk score above ceiling"), false, nil
	}

	size := sizing.PositionSize
	if score > m.config.SoftScoreThreshold {
		size *= 1 - score
		assessment.Warnings = append(assessment.Warnings, "position size reduced for elevated risk score")
	}

	assessment.PositionSize = size
	assessment.RiskAmount = sizing.RiskAmount
	assessment.MaxLossAmount = size * sizing.RiskPerUnit
	assessment.StopLossPrice = optional.Some(sizing.StopLossPrice)

	if signal.TakeProfit.IsSome() {
		assessment.TakeProfitPrice = signal.TakeProfit
	} else if params.TakeProfitPercentage > 0 {
		assessment.TakeProfitPrice = optional.Some(TakeProfitPrice(price, side, params.TakeProfitPercentage))
	}

	res := reservation{
		id:         uuid.New().String(),
		ownerID:    cfg.OwnerID,
		strategyID: signal.StrategyID,
		exchange:   signal.Exchange,
		symbol:     signal.Symbol,
		notional:   size * price,
		expiresAt:  now.Add(m.config.ReservationTTL),
	}
	state.reservations[res.id] = res

	assessment.ReservationID = res.id
	assessment.Approved = true

	return assessment, false, nil
}

func exitAssessment(assessment Assessment, positionID string, open exposure) Assessment {
	assessment.Approved = true
	assessment.IsExit = true
	assessment.PositionID = positionID
	assessment.Side = open.side
	assessment.PositionSize = open.quantity

	return assessment
}

func (m *Manager) inputs(ctx context.Context, cfg types.StrategyConfig, signal types.TradingSignal) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()

	price, err := m.market.GetLatestPrice(ctx, signal.Exchange, signal.Symbol)
	if err != nil {
		return 0, 0, err
	}

	capital, err := m.capital.AvailableCapital(ctx, cfg, signal.Symbol)
	if err != nil {
		return 0, 0, err
	}

	return price, capital, nil
}

// volatility is the std-dev of the last VolatilityWindow hourly returns.
// When candles are unavailable the threshold itself is assumed.
func (m *Manager) volatility(ctx context.Context, exchange, symbol string) (float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()

	candles, err := m.market.GetOHLCV(ctx, exchange, symbol, types.Timeframe1h, time.Time{}, m.config.VolatilityWindow+1)
	if err != nil {
		m.logger.Debug("hourly candles unavailable", zap.String("symbol", symbol), zap.Error(err))

		return m.config.VolatilityThreshold, false
	}

	returns := indicator.Returns(types.Closes(candles))
	if len(returns) < 2 {
		return m.config.VolatilityThreshold, false
	}

	return indicator.StdDev(returns), true
}

// Commit turns the reservation into the tracked position.
func (m *Manager) Commit(reservationID string, position types.Position) error {
	state := m.account(position.OwnerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, ok := state.reservations[reservationID]; !ok {
		return errors.Newf(errors.ErrCodeReservationNotFound, "reservation %s not found", reservationID)
	}

	delete(state.reservations, reservationID)
	state.positions[position.ID] = exposureOf(position)

	return nil
}

// Release drops a reservation that did not turn into a position.
func (m *Manager) Release(ownerID, reservationID string) error {
	state := m.account(ownerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, ok := state.reservations[reservationID]; !ok {
		return errors.Newf(errors.ErrCodeReservationNotFound, "reservation %s not found", reservationID)
	}

	delete(state.reservations, reservationID)

	return nil
}

// OnPositionOpened tracks a new or grown position.
func (m *Manager) OnPositionOpened(position types.Position) {
	state := m.account(position.OwnerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.positions[position.ID] = exposureOf(position)
}

// OnPositionMarked refreshes the exposure of a tracked position.
func (m *Manager) OnPositionMarked(position types.Position) {
	state := m.account(position.OwnerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, ok := state.positions[position.ID]; ok {
		state.positions[position.ID] = exposureOf(position)
	}
}

// OnPositionClosed stops tracking a position.
func (m *Manager) OnPositionClosed(position types.Position) {
	state := m.account(position.OwnerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	delete(state.positions, position.ID)
}

// OnTradeClosed folds the realized pnl of a confirmed trade into the
// owner's daily accumulator and equity.
func (m *Manager) OnTradeClosed(trade types.Trade) {
	state := m.account(trade.OwnerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.rollover(m.now())
	state.dailyPnl += trade.PnL

	// equity is unknown until the first validation marks it
	if state.equity > 0 {
		state.markEquity(state.equity + trade.PnL)
	}
}

// Metrics reports the current risk state of owner.
func (m *Manager) Metrics(ownerID string) Metrics {
	//nolint:exhaustruct
	params := m.params.Resolve(types.StrategyConfig{OwnerID: ownerID})

	state := m.account(ownerID)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()
	state.rollover(now)
	state.expire(now)

	m.mu.Lock()
	reason := m.haltReason
	m.mu.Unlock()

	exposure := state.exposure()
	reserved := state.reserved()

	return Metrics{
		OwnerID:             ownerID,
		Exposure:            exposure,
		Reserved:            reserved,
		OpenPositions:       len(state.positions),
		Reservations:        len(state.reservations),
		DailyPnl:            state.dailyPnl,
		DailyLossPercentage: state.dailyLossPercentage(state.equity),
		Equity:              state.equity,
		PeakEquity:          state.peak,
		DrawdownPercentage:  state.drawdownPercentage(),
		Utilization:         (exposure + reserved) / (params.MaxPositionSizeUSD * float64(params.MaxOpenPositions)),
		Halted:              m.halted.Load(),
		HaltReason:          reason,
	}
}

// Halted reports whether an emergency stop is in effect.
func (m *Manager) Halted() bool {
	return m.halted.Load()
}

// WithTradingGate runs fn unless trading is halted. EmergencyStop waits for
// every fn in flight before it cancels orders.
func (m *Manager) WithTradingGate(ctx context.Context, fn func(ctx context.Context) error) error {
	m.gate.RLock()
	defer m.gate.RUnlock()

	if m.halted.Load() {
		return errors.New(errors.ErrCodeEmergencyStopActive, "trading is halted by emergency stop")
	}

	return fn(ctx)
}

// EmergencyStop halts trading, deactivates every strategy and cancels every
// open order on every venue. It stays in effect until Reactivate.
func (m *Manager) EmergencyStop(ctx context.Context, reason string) error {
	m.gate.Lock()
	alreadyHalted := m.halted.Swap(true)
	m.mu.Lock()

	if !alreadyHalted {
		m.haltReason = reason
	}

	stopper := m.stopper
	m.mu.Unlock()
	m.gate.Unlock()

	m.logger.Error("emergency stop", zap.String("reason", reason), zap.Bool("already_halted", alreadyHalted))

	var (
		firstErr error
		failures int
	)

	record := func(err error) {
		failures++

		if firstErr == nil {
			firstErr = err
		}
	}

	if stopper != nil {
		stopped, err := stopper.DeactivateAll(ctx, reason)
		if err != nil {
			record(err)
			m.logger.Error("failed to deactivate strategies", zap.Error(err))
		}

		m.logger.Warn("strategies deactivated", zap.Int("count", stopped))
	}

	if m.venues != nil {
		for _, venue := range m.venues.All() {
			m.cancelAll(ctx, venue, record)
		}
	}

	if firstErr != nil {
		return errors.Wrapf(errors.ErrCodeInternal, firstErr, "emergency stop finished with %d failures", failures)
	}

	return nil
}

func (m *Manager) cancelAll(ctx context.Context, venue connector.Connector, record func(error)) {
	orders, err := venue.GetOpenOrders(ctx, "")
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeUnsupported) {
			record(err)
			m.logger.Error("failed to list open orders", zap.String("exchange", venue.Name()), zap.Error(err))
		}

		return
	}

	for _, order := range orders {
		if err := venue.CancelOrder(ctx, order.ID, order.Symbol); err != nil {
			record(err)
			m.logger.Error("failed to cancel order",
				zap.String("exchange", venue.Name()),
				zap.String("order_id", order.ID),
				zap.String("symbol", order.Symbol),
				zap.Error(err),
			)

			continue
		}

		m.logger.Warn("order cancelled", zap.String("exchange", venue.Name()), zap.String("order_id", order.ID))
	}
}

// Reactivate lifts an emergency stop. Strategies stay inactive until they
// are started again.
func (m *Manager) Reactivate() {
	m.gate.Lock()
	defer m.gate.Unlock()

	m.mu.Lock()
	m.haltReason = ""
	m.mu.Unlock()

	m.halted.Store(false)
	m.logger.Warn("trading reactivated")
}
