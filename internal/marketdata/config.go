package marketdata

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Config tunes collection schedules and cache lifetimes.
type Config struct {
	// DefaultInterval is used when a group is started without an interval.
	DefaultInterval time.Duration `mapstructure:"default_interval" validate:"gte=1s"`
	// CallTimeout bounds every connector call made by the collector.
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	PriceTTL    time.Duration `mapstructure:"price_ttl" validate:"gt=0"`
	CandleTTL   time.Duration `mapstructure:"candle_ttl" validate:"gt=0"`
	// PriceMaxAge is how old a stored snapshot may be and still answer GetLatestPrice.
	PriceMaxAge time.Duration   `mapstructure:"price_max_age" validate:"gt=0"`
	Timeframe   types.Timeframe `mapstructure:"timeframe" validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	CandleLimit int             `mapstructure:"candle_limit" validate:"gt=0,lte=1000"`
	// BackfillBatchSize is the number of candles requested per venue call
	// during a backfill.
	BackfillBatchSize int `mapstructure:"backfill_batch_size" validate:"gt=0,lte=1000"`
}

// DefaultConfig returns a one-minute collection schedule.
func DefaultConfig() Config {
	return Config{
		DefaultInterval:   time.Minute,
		CallTimeout:       10 * time.Second,
		PriceTTL:          30 * time.Second,
		CandleTTL:         time.Minute,
		PriceMaxAge:       2 * time.Minute,
		Timeframe:         types.Timeframe1m,
		CandleLimit:       5,
		BackfillBatchSize: 500,
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid collector config", err)
	}

	return nil
}
