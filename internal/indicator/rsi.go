package indicator

import (
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// RSIIndicator represents the Relative Strength Index indicator.
type RSIIndicator struct {
	period int
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSIIndicator{
		period: 14, // Default period
	}
}

// Name returns the name of the indicator.
func (r *RSIIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSIIndicator) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	r.period = period

	return nil
}

// Compute returns the RSI of closes at the last candle.
func (r *RSIIndicator) Compute(candles []types.Candle) (float64, error) {
	return RSI(types.Closes(candles), r.period)
}
