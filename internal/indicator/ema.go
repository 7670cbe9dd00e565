package indicator

import (
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// EMAIndicator implements Exponential Moving Average calculation.
type EMAIndicator struct {
	period int
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() Indicator {
	return &EMAIndicator{
		period: 20, // Default period
	}
}

// Name returns the name of the indicator.
func (e *EMAIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Expected parameters: period (int).
func (e *EMAIndicator) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	e.period = period

	return nil
}

// Compute returns the EMA of closes at the last candle.
func (e *EMAIndicator) Compute(candles []types.Candle) (float64, error) {
	return EMA(types.Closes(candles), e.period)
}
