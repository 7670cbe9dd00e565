package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

type SignalAction string

const (
	SignalActionBuy   SignalAction = "buy"
	SignalActionSell  SignalAction = "sell"
	SignalActionHold  SignalAction = "hold"
	SignalActionClose SignalAction = "close"
)

// TradingSignal is a strategy's recommendation for one symbol at one time.
// Signals are immutable once emitted.
type TradingSignal struct {
	ID             string         `yaml:"id" json:"id" validate:"required"`
	StrategyID     string         `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Exchange       string         `yaml:"exchange" json:"exchange" validate:"required"`
	Symbol         string         `yaml:"symbol" json:"symbol" validate:"required"`
	Action         SignalAction   `yaml:"action" json:"action" validate:"required,oneof=buy sell hold close"`
	Strength       float64        `yaml:"strength" json:"strength" validate:"gte=0,lte=1"`
	Analysis       map[string]any `yaml:"analysis" json:"analysis"`
	IndicatorsUsed []string       `yaml:"indicators_used" json:"indicators_used"`
	// StopLoss overrides the risk manager's percentage based stop when set.
	StopLoss   optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	Timestamp  time.Time                `yaml:"timestamp" json:"timestamp" validate:"required"`
}

// NewSignal builds a signal with a fresh id, clamping strength into [0,1].
func NewSignal(strategyID, exchange, symbol string, action SignalAction, strength float64, timestamp time.Time) TradingSignal {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return TradingSignal{
		ID:             uuid.New().String(),
		StrategyID:     strategyID,
		Exchange:       exchange,
		Symbol:         symbol,
		Action:         action,
		Strength:       Clamp01(strength),
		Analysis:       map[string]any{},
		IndicatorsUsed: nil,
		StopLoss:       optional.None[float64](),
		TakeProfit:     optional.None[float64](),
		Timestamp:      timestamp.UTC(),
	}
}

// Validate validates the TradingSignal struct.
func (s *TradingSignal) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid trading signal", err)
	}

	return nil
}

// IsEntry reports whether the signal opens exposure.
func (s TradingSignal) IsEntry() bool {
	return s.Action == SignalActionBuy || s.Action == SignalActionSell
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
