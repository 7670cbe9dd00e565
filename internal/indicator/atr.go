package indicator

import (
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// ATRIndicator represents the Average True Range indicator.
type ATRIndicator struct {
	period int
}

// NewATR creates a new ATR indicator with default configuration.
func NewATR() Indicator {
	return &ATRIndicator{
		period: 14,
	}
}

// Name returns the name of the indicator.
func (a *ATRIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config configures the ATR indicator. Expected parameters: period (int).
func (a *ATRIndicator) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	a.period = period

	return nil
}

// Compute returns the smoothed true range at the last candle.
func (a *ATRIndicator) Compute(candles []types.Candle) (float64, error) {
	return ATR(candles, a.period)
}
