package risk

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Config tunes the risk manager. Defaults are the parameters used when no
// override applies.
type Config struct {
	Defaults types.RiskParameters `mapstructure:"defaults"`
	// HardScoreCeiling rejects any signal scoring above it.
	HardScoreCeiling float64 `mapstructure:"hard_score_ceiling" validate:"gt=0,lte=1"`
	// SoftScoreThreshold scales size by (1-score) above it.
	SoftScoreThreshold float64 `mapstructure:"soft_score_threshold" validate:"gt=0,ltefield=HardScoreCeiling"`
	// VolatilityThreshold is the hourly return std-dev that triggers a warning.
	VolatilityThreshold float64 `mapstructure:"volatility_threshold" validate:"gt=0"`
	// VolatilityWindow is the number of hourly returns sampled.
	VolatilityWindow   int           `mapstructure:"volatility_window" validate:"gte=2"`
	ReservationTTL     time.Duration `mapstructure:"reservation_ttl" validate:"gt=0"`
	CallTimeout        time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	AutoStopOnDrawdown bool          `mapstructure:"auto_stop_on_drawdown"`
	// AllowShort lets a sell without an open long open a short position.
	AllowShort bool `mapstructure:"allow_short"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Defaults:            types.DefaultRiskParameters(),
		HardScoreCeiling:    0.8,
		SoftScoreThreshold:  0.6,
		VolatilityThreshold: 0.02,
		VolatilityWindow:    24,
		ReservationTTL:      2 * time.Minute,
		CallTimeout:         10 * time.Second,
		AutoStopOnDrawdown:  false,
		AllowShort:          false,
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid risk config", err)
	}

	return c.Defaults.Validate()
}
