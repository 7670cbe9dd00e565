package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curve(values ...float64) []types.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]types.EquityPoint, len(values))

	for i, v := range values {
		points[i] = types.EquityPoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Equity: v}
	}

	return points
}

//nolint:exhaustruct
func closed(position string, pnl, fee float64) []types.Trade {
	return []types.Trade{
		{PositionID: position, PnL: -fee, Fee: fee},
		{PositionID: position, PnL: pnl, Fee: fee, IsClosing: true},
	}
}

func TestComputeMetrics(t *testing.T) {
	trades := make([]types.Trade, 0)
	trades = append(trades, closed("a", 101, 1)...)
	trades = append(trades, closed("b", -49, 1)...)
	trades = append(trades, closed("c", -29, 1)...)
	trades = append(trades, closed("d", 201, 1)...)

	equity := curve(10000, 10100, 10050, 10020, 10220)

	m := ComputeMetrics(10000, trades, equity, 0)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
	assert.InDelta(t, 10220, m.FinalBalance, 1e-9)
	assert.InDelta(t, 220, m.TotalReturn, 1e-9)
	assert.InDelta(t, 2.2, m.TotalReturnPercentage, 1e-9)
	assert.InDelta(t, 8, m.TotalFees, 1e-9)
	assert.InDelta(t, 150, m.AverageWin, 1e-9)
	assert.InDelta(t, 40, m.AverageLoss, 1e-9)
	assert.InDelta(t, 300.0/80, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 55, m.Expectancy, 1e-9)
	assert.Equal(t, 1, m.LongestWinStreak)
	assert.Equal(t, 2, m.LongestLossStreak)
	assert.InDelta(t, 80, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 80.0/10100*100, m.MaxDrawdownPercentage, 1e-9)
	assert.InDelta(t, 2.2/(80.0/10100*100), m.CalmarRatio, 1e-9)
	assert.InDelta(t, 220.0/80, m.RecoveryFactor, 1e-9)
	assert.NotZero(t, m.SharpeRatio)
	assert.NotZero(t, m.SortinoRatio)
}

func TestComputeMetricsZeroDenominators(t *testing.T) {
	tests := []struct {
		name   string
		trades []types.Trade
		equity []types.EquityPoint
	}{
		{name: "no trades", trades: nil, equity: curve(10000, 10000)},
		{name: "only winners", trades: closed("a", 50, 0), equity: curve(10000, 10050)},
		{name: "empty curve", trades: nil, equity: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := ComputeMetrics(10000, tc.trades, tc.equity, 0.02)

			assert.Zero(t, m.ProfitFactor)
			assert.Zero(t, m.MaxDrawdown)
			assert.Zero(t, m.CalmarRatio)
			assert.Zero(t, m.RecoveryFactor)
			assert.Zero(t, m.SortinoRatio)
			assert.False(t, math.IsNaN(m.SharpeRatio))
		})
	}
}

func TestOpenPositionIsNotARoundTrip(t *testing.T) {
	//nolint:exhaustruct
	trades := []types.Trade{{PositionID: "a", PnL: -1, Fee: 1}}

	m := ComputeMetrics(1000, trades, curve(999), 0)

	assert.Equal(t, 0, m.TotalTrades)
	assert.InDelta(t, 999, m.FinalBalance, 1e-9)
	assert.InDelta(t, 1, m.TotalFees, 1e-9)
}

func TestDrawdowns(t *testing.T) {
	points := Drawdowns(100, curve(90, 110, 99, 120))

	require.Len(t, points, 4)
	assert.InDelta(t, 10, points[0].Percentage, 1e-9)
	assert.InDelta(t, 0, points[1].Percentage, 1e-9)
	assert.InDelta(t, 10, points[2].Percentage, 1e-9)
	assert.InDelta(t, 0, points[3].Percentage, 1e-9)
}

func TestRatios(t *testing.T) {
	sharpe, sortino := ratios(curve(100, 100, 100, 100), 0)
	assert.Zero(t, sharpe, "flat equity has no deviation")
	assert.Zero(t, sortino)

	sharpe, sortino = ratios(curve(100, 102, 101, 104), 0)
	assert.Positive(t, sharpe)
	assert.Positive(t, sortino)

	sharpe, _ = ratios(curve(100, 98, 99, 96), 0)
	assert.Negative(t, sharpe)
}

func TestDrawdownStaysInBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("drawdown is a percentage and never exceeds the peak", prop.ForAll(
		func(initial float64, values []float64) bool {
			m := ComputeMetrics(initial, nil, curve(values...), 0)
			if m.MaxDrawdownPercentage < 0 || m.MaxDrawdownPercentage > 100 {
				return false
			}

			for _, point := range Drawdowns(initial, curve(values...)) {
				if point.Percentage < 0 || point.Percentage > 100 || point.Percentage > m.MaxDrawdownPercentage+1e-9 {
					return false
				}
			}

			return m.MaxDrawdown >= 0
		},
		gen.Float64Range(1, 1e6),
		gen.SliceOf(gen.Float64Range(-1e6, 1e7)),
	))

	properties.TestingRun(t)
}
