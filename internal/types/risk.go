package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// RiskParameters bounds what a single signal may commit.
type RiskParameters struct {
	MaxPositionSizeUSD     float64 `yaml:"max_position_size_usd" json:"max_position_size_usd" mapstructure:"max_position_size_usd" validate:"gt=0"`
	MaxOpenPositions       int     `yaml:"max_open_positions" json:"max_open_positions" mapstructure:"max_open_positions" validate:"gt=0"`
	RiskPerTradePercentage float64 `yaml:"risk_per_trade_percentage" json:"risk_per_trade_percentage" mapstructure:"risk_per_trade_percentage" validate:"gt=0,lte=100"`
	MaxDailyLossPercentage float64 `yaml:"max_daily_loss_percentage" json:"max_daily_loss_percentage" mapstructure:"max_daily_loss_percentage" validate:"gt=0,lte=100"`
	MaxDrawdownPercentage  float64 `yaml:"max_drawdown_percentage" json:"max_drawdown_percentage" mapstructure:"max_drawdown_percentage" validate:"gt=0,lte=100"`
	StopLossPercentage     float64 `yaml:"stop_loss_percentage" json:"stop_loss_percentage" mapstructure:"stop_loss_percentage" validate:"gt=0,lt=100"`
	TakeProfitPercentage   float64 `yaml:"take_profit_percentage" json:"take_profit_percentage" mapstructure:"take_profit_percentage" validate:"gte=0"`
	MinConfidenceScore     float64 `yaml:"min_confidence_score" json:"min_confidence_score" mapstructure:"min_confidence_score" validate:"gte=0,lte=1"`
	CorrelationLimit       float64 `yaml:"correlation_limit" json:"correlation_limit" mapstructure:"correlation_limit" validate:"gte=0,lte=1"`
	MarginOfSafety         float64 `yaml:"margin_of_safety" json:"margin_of_safety" mapstructure:"margin_of_safety" validate:"gt=0,lte=1"`
}

// DefaultRiskParameters returns the baseline used when no override exists.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		MaxPositionSizeUSD:     1000,
		MaxOpenPositions:       5,
		RiskPerTradePercentage: 2,
		MaxDailyLossPercentage: 5,
		MaxDrawdownPercentage:  15,
		StopLossPercentage:     5,
		TakeProfitPercentage:   10,
		MinConfidenceScore:     0.6,
		CorrelationLimit:       0.7,
		MarginOfSafety:         0.9,
	}
}

// Validate validates the RiskParameters struct.
func (p *RiskParameters) Validate() error {
	validate := validator.New()

	if err := validate.Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid risk parameters", err)
	}

	return nil
}
