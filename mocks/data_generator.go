package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/autotrader/internal/types"
)

// DataGenerator generates realistic candles for tests and benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	// StartTime is the open time of the first candle.
	StartTime time.Time
	// Timeframe sets the spacing between candles.
	Timeframe types.Timeframe
	// Count is the number of candles to generate.
	Count int
	// InitialPrice is the starting price.
	InitialPrice float64
	// Volatility is the per-candle standard deviation of returns (0.01 = 1%).
	Volatility float64
	// Trend is the total drift over the series (-0.5 to 0.5 for bearish to bullish).
	Trend float64
	// VolumeBase is the average volume per candle.
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0).
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Timeframe:      types.Timeframe1h,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates candles following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Candle {
	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime
	step := config.Timeframe.Duration()

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + g.rng.Float64()*config.Volatility*open*0.5
		low := math.Min(open, closePrice) - g.rng.Float64()*config.Volatility*open*0.5

		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candles[i] = types.Candle{
			Timestamp: currentTime,
			Open:      roundToDecimals(open, 4),
			High:      roundToDecimals(high, 4),
			Low:       roundToDecimals(low, 4),
			Close:     roundToDecimals(closePrice, 4),
			Volume:    roundToDecimals(volume, 2),
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(step)
	}

	return candles
}

// Trending generates count hourly candles with a strong drift, useful for
// exercising crossovers.
func Trending(seed int64, count int, trend float64) []types.Candle {
	config := DefaultConfig()
	config.Count = count
	config.Trend = trend

	return NewDataGenerator(seed).Generate(config)
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
