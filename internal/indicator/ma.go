package indicator

import (
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// MAIndicator implements Simple Moving Average calculation.
type MAIndicator struct {
	period int
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MAIndicator{
		period: 20, // Default period
	}
}

// Name returns the name of the indicator.
func (m *MAIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Expected parameters: period (int).
func (m *MAIndicator) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	m.period = period

	return nil
}

// Compute returns the average close of the last period candles.
func (m *MAIndicator) Compute(candles []types.Candle) (float64, error) {
	return SMA(types.Closes(candles), m.period)
}
