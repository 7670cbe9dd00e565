package indicator

import (
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// MACDIndicator represents the Moving Average Convergence Divergence indicator.
type MACDIndicator struct {
	fastPeriod int
	slowPeriod int
}

// NewMACD creates a new MACD indicator with default configuration.
func NewMACD() Indicator {
	return &MACDIndicator{
		fastPeriod: 12,
		slowPeriod: 26,
	}
}

// Name returns the name of the indicator.
func (m *MACDIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator.
// Expected parameters: fastPeriod (int), slowPeriod (int).
func (m *MACDIndicator) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 2 parameters: fastPeriod (int), slowPeriod (int)")
	}

	fast, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	slow, err := parsePeriod(params[1])
	if err != nil {
		return err
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidParameter, "fast period %d must be below slow period %d", fast, slow)
	}

	m.fastPeriod = fast
	m.slowPeriod = slow

	return nil
}

// Compute returns the MACD line at the last candle.
func (m *MACDIndicator) Compute(candles []types.Candle) (float64, error) {
	return MACD(types.Closes(candles), m.fastPeriod, m.slowPeriod)
}
