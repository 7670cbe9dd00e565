package indicator

import (
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// BollingerBands represents the Bollinger Bands indicator.
type BollingerBands struct {
	period int
	stdDev float64
}

// NewBollingerBands creates a new Bollinger Bands indicator with default configuration.
func NewBollingerBands() Indicator {
	return &BollingerBands{
		period: 20,
		stdDev: 2.0,
	}
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config configures the Bollinger Bands indicator.
// Expected parameters: period (int), stdDev (float64).
func (bb *BollingerBands) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 2 parameters: period (int), stdDev (float64)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	stdDev, err := parseFloat(params[1], "stdDev")
	if err != nil {
		return err
	}

	if stdDev <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "stdDev must be positive, got %f", stdDev)
	}

	bb.period = period
	bb.stdDev = stdDev

	return nil
}

// Compute returns %B, the position of the last close inside the bands:
// 0 at the lower band, 1 at the upper band. A flat window yields 0.5.
func (bb *BollingerBands) Compute(candles []types.Candle) (float64, error) {
	closes := types.Closes(candles)

	upper, _, lower, err := Bollinger(closes, bb.period, bb.stdDev)
	if err != nil {
		return 0, err
	}

	if upper == lower {
		return 0.5, nil
	}

	return (closes[len(closes)-1] - lower) / (upper - lower), nil
}
