// Package advisor augments strategy decisions with an external model. Every
// advisor handed to the pipeline is wrapped in Safe, so a failing or
// misbehaving model degrades to a conservative hold instead of an error.
package advisor

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Advisor returns a decision for one market context.
type Advisor interface {
	Decide(ctx context.Context, input types.DecisionContext) (types.Decision, error)
}

type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderRules  Provider = "rules"
	ProviderOpenAI Provider = "openai"
)

// Config selects and tunes the advisor.
type Config struct {
	Provider    Provider      `mapstructure:"provider" validate:"required,oneof=none rules openai"`
	Model       string        `mapstructure:"model" validate:"required_if=Provider openai"`
	APIKey      string        `mapstructure:"api_key" validate:"required_if=Provider openai"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// VolatilityLimit is the hourly return std-dev above which the rule-based advisor holds.
	VolatilityLimit float64       `mapstructure:"volatility_limit" validate:"gt=0"`
	HistorySize     int           `mapstructure:"history_size" validate:"gt=0"`
	HistoryTTL      time.Duration `mapstructure:"history_ttl" validate:"gt=0"`
}

// DefaultConfig returns the rule-based advisor defaults.
func DefaultConfig() Config {
	return Config{
		Provider:        ProviderRules,
		Model:           "gpt-4o-mini",
		APIKey:          "",
		BaseURL:         "",
		Temperature:     0.2,
		Timeout:         30 * time.Second,
		VolatilityLimit: 0.05,
		HistorySize:     256,
		HistoryTTL:      24 * time.Hour,
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid advisor config", err)
	}

	return nil
}

// New builds the configured advisor wrapped in Safe. It returns nil for
// ProviderNone.
func New(config Config, log *logger.Logger) (*Safe, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rules := NewRuleBasedAdvisor(config.VolatilityLimit)
	history := NewHistory(config.HistorySize, config.HistoryTTL)

	switch config.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderRules:
		return NewSafe(rules, nil, config.Timeout, history, log), nil
	case ProviderOpenAI:
		primary, err := NewOpenAIAdvisor(config, log)
		if err != nil {
			return nil, err
		}

		return NewSafe(primary, rules, config.Timeout, history, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown advisor provider %s", config.Provider)
	}
}

// ValidateDecision checks that decision is usable by the pipeline.
func ValidateDecision(decision types.Decision) error {
	switch decision.Action {
	case types.SignalActionBuy, types.SignalActionSell, types.SignalActionHold, types.SignalActionClose:
	default:
		return errors.Newf(errors.ErrCodeAdvisorMalformed, "unknown action %q", decision.Action)
	}

	if !unit(decision.Confidence) {
		return errors.Newf(errors.ErrCodeAdvisorMalformed, "confidence %v outside [0,1]", decision.Confidence)
	}

	if !unit(decision.SuggestedSize) {
		return errors.Newf(errors.ErrCodeAdvisorMalformed, "suggested size %v outside [0,1]", decision.SuggestedSize)
	}

	if decision.TimeHorizon == "" {
		return errors.New(errors.ErrCodeAdvisorMalformed, "time horizon missing")
	}

	for _, level := range []types.RiskLevel{
		decision.RiskAssessment.MarketRisk,
		decision.RiskAssessment.ExecutionRisk,
		decision.RiskAssessment.OverallRisk,
	} {
		switch level {
		case types.RiskLevelLow, types.RiskLevelMedium, types.RiskLevelHigh:
		default:
			return errors.Newf(errors.ErrCodeAdvisorMalformed, "unknown risk level %q", level)
		}
	}

	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// ConservativeHold is the decision used whenever an advisor's answer cannot be trusted.
func ConservativeHold(reason string) types.Decision {
	return types.Decision{
		Action:        types.SignalActionHold,
		Confidence:    0.1,
		Reasoning:     reason,
		SuggestedSize: 0,
		StopLoss:      optional.None[float64](),
		TakeProfit:    optional.None[float64](),
		TimeHorizon:   "none",
		RiskAssessment: types.RiskAssessment{
			MarketRisk:    types.RiskLevelHigh,
			ExecutionRisk: types.RiskLevelHigh,
			OverallRisk:   types.RiskLevelHigh,
		},
		Source: "fallback",
	}
}
