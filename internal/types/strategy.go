package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// StrategyState is the lifecycle state of a running strategy instance.
type StrategyState string

const (
	StrategyStateStopped  StrategyState = "stopped"
	StrategyStateStarting StrategyState = "starting"
	StrategyStateRunning  StrategyState = "running"
	StrategyStateStopping StrategyState = "stopping"
)

// StrategyPerformance is derived only from confirmed trades.
type StrategyPerformance struct {
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	ClosedTrades  int     `yaml:"closed_trades" json:"closed_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	TotalPnl      float64 `yaml:"total_pnl" json:"total_pnl"`
}

// Record folds one confirmed trade into the counters. Only trades that
// realize pnl against a position count toward the win rate.
func (p *StrategyPerformance) Record(trade Trade) {
	p.TotalTrades++
	p.TotalPnl += trade.PnL

	if trade.IsClosing {
		p.ClosedTrades++
		if trade.PnL > 0 {
			p.WinningTrades++
		}
	}

	if p.ClosedTrades > 0 {
		p.WinRate = float64(p.WinningTrades) / float64(p.ClosedTrades)
	}
}

// StrategyConfig describes one strategy instance. Only IsActive and
// Performance change after registration.
type StrategyConfig struct {
	ID      string `yaml:"id" json:"id" mapstructure:"id" validate:"required"`
	OwnerID string `yaml:"owner_id" json:"owner_id" mapstructure:"owner_id" validate:"required"`
	Name    string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	// Type selects the implementation in the strategy registry.
	Type string `yaml:"type" json:"type" mapstructure:"type" validate:"required"`
	// Version is an optional semver constraint on the registered implementation.
	Version   string    `yaml:"version" json:"version" mapstructure:"version"`
	Exchange  string    `yaml:"exchange" json:"exchange" mapstructure:"exchange" validate:"required"`
	Symbols   []string  `yaml:"symbols" json:"symbols" mapstructure:"symbols" validate:"required,min=1,dive,required"`
	Timeframe Timeframe `yaml:"timeframe" json:"timeframe" mapstructure:"timeframe" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	// Schedule is a cron spec; strategies with their own interval ignore it.
	Schedule       string          `yaml:"schedule" json:"schedule" mapstructure:"schedule"`
	Parameters     map[string]any  `yaml:"parameters" json:"parameters" mapstructure:"parameters"`
	RiskParameters *RiskParameters `yaml:"risk_parameters" json:"risk_parameters" mapstructure:"risk_parameters"`
	IsActive       bool            `yaml:"is_active" json:"is_active" mapstructure:"is_active"`
	IsPaperTrading bool            `yaml:"is_paper_trading" json:"is_paper_trading" mapstructure:"is_paper_trading"`

	Performance StrategyPerformance `yaml:"performance" json:"performance" mapstructure:"-"`
	CreatedAt   time.Time           `yaml:"created_at" json:"created_at" mapstructure:"-"`
	UpdatedAt   time.Time           `yaml:"updated_at" json:"updated_at" mapstructure:"-"`
}

// Validate validates the StrategyConfig struct.
func (c *StrategyConfig) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy config", err)
	}

	for _, symbol := range c.Symbols {
		if _, _, err := ParseSymbol(symbol); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "strategy %s", c.ID)
		}
	}

	if c.RiskParameters != nil {
		if err := c.RiskParameters.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// EffectiveTimeframe returns the configured timeframe or 1h.
func (c StrategyConfig) EffectiveTimeframe() Timeframe {
	if c.Timeframe == "" {
		return Timeframe1h
	}

	return c.Timeframe
}
