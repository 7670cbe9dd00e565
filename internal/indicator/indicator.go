// Package indicator computes technical indicators over candle windows that
// end at the current candle.
package indicator

import (
	"math"

	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Indicator computes one value from candles ordered oldest first.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Compute returns the indicator value at the last candle
	Compute(candles []types.Candle) (float64, error)
	Config(params ...any) error
}

// parsePeriod accepts an int or a float64 period, as decoded from YAML or JSON.
func parsePeriod(param any) (int, error) {
	var period int

	switch p := param.(type) {
	case int:
		period = p
	case float64:
		period = int(p)
	default:
		return 0, errors.New(errors.ErrCodeInvalidParameter, "invalid type for period parameter, expected int or float")
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	return period, nil
}

func parseFloat(param any, name string) (float64, error) {
	switch p := param.(type) {
	case float64:
		return p, nil
	case int:
		return float64(p), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid type for %s parameter, expected float", name)
	}
}

func insufficient(name string, required, actual int) error {
	return errors.InsufficientData(name, required, actual)
}

// SMA is the mean of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(values) < period {
		return 0, insufficient("SMA", period, len(values))
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period), nil
}

// EMA seeds with the SMA of the first period values and smooths the rest
// with alpha = 2/(period+1), matching pandas ewm(adjust=False).
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(values) < period {
		return 0, insufficient("EMA", period, len(values))
	}

	ema := 0.0
	for _, v := range values[:period] {
		ema += v
	}

	ema /= float64(period)
	alpha := 2.0 / float64(period+1)

	for _, v := range values[period:] {
		ema = v*alpha + ema*(1-alpha)
	}

	return ema, nil
}

// RSI uses Wilder's smoothing over period+1 or more closes.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(values) < period+1 {
		return 0, insufficient("RSI", period+1, len(values))
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		// Perfect uptrend, or no movement at all
		if avgGain == 0 {
			return 50, nil
		}

		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}

// TrueRanges returns the true range of every candle after the first.
func TrueRanges(candles []types.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}

	ranges := make([]float64, 0, len(candles)-1)

	for i := 1; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		c := candles[i]

		tr := math.Max(
			math.Max(c.High-c.Low, math.Abs(c.High-prevClose)),
			math.Abs(c.Low-prevClose),
		)
		ranges = append(ranges, tr)
	}

	return ranges
}

// ATR smooths the true range with an EMA.
func ATR(candles []types.Candle, period int) (float64, error) {
	ranges := TrueRanges(candles)
	if len(ranges) < period {
		return 0, insufficient("ATR", period+1, len(candles))
	}

	return EMA(ranges, period)
}

// Bollinger returns the upper, middle and lower bands of the last period
// values using the population standard deviation.
func Bollinger(values []float64, period int, width float64) (upper, middle, lower float64, err error) {
	middle, err = SMA(values, period)
	if err != nil {
		return 0, 0, 0, err
	}

	stdDev := StdDev(values[len(values)-period:])

	return middle + width*stdDev, middle, middle - width*stdDev, nil
}

// MACD is the fast EMA minus the slow EMA.
func MACD(values []float64, fastPeriod, slowPeriod int) (float64, error) {
	if fastPeriod >= slowPeriod {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "fast period %d must be below slow period %d", fastPeriod, slowPeriod)
	}

	fast, err := EMA(values, fastPeriod)
	if err != nil {
		return 0, err
	}

	slow, err := EMA(values, slowPeriod)
	if err != nil {
		return 0, err
	}

	return fast - slow, nil
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	squaredDiffSum := 0.0

	for _, v := range values {
		diff := v - mean
		squaredDiffSum += diff * diff
	}

	return math.Sqrt(squaredDiffSum / float64(len(values)))
}

// Returns converts prices into simple period-over-period returns.
// Non-positive prices yield a zero return.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}

	return returns
}
