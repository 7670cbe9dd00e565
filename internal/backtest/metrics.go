package backtest

import (
	"math"

	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/shopspring/decimal"
)

// TradingDaysPerYear annualizes Sharpe and Sortino ratios.
const TradingDaysPerYear = 252

// roundTrips returns the net pnl of every closed position in closing order.
// Entry fees are folded into the round trip they belong to.
func roundTrips(trades []types.Trade) []float64 {
	open := make(map[string]decimal.Decimal)
	out := make([]float64, 0)

	for _, trade := range trades {
		pnl := open[trade.PositionID].Add(decimal.NewFromFloat(trade.PnL))

		if !trade.IsClosing {
			open[trade.PositionID] = pnl

			continue
		}

		delete(open, trade.PositionID)
		out = append(out, pnl.InexactFloat64())
	}

	return out
}

// Drawdowns returns the percentage below the running peak at each point.
// The peak starts at the initial balance.
func Drawdowns(initialBalance float64, equity []types.EquityPoint) []types.DrawdownPoint {
	points := make([]types.DrawdownPoint, len(equity))
	peak := initialBalance

	for i, point := range equity {
		peak = math.Max(peak, point.Equity)
		points[i] = types.DrawdownPoint{Timestamp: point.Timestamp, Percentage: drawdownPercentage(peak, point.Equity)}
	}

	return points
}

func drawdownPercentage(peak, equity float64) float64 {
	if peak <= 0 {
		return 0
	}

	pct := (peak - equity) / peak * 100

	return math.Min(100, math.Max(0, pct))
}

func periodReturns(equity []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(equity))

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}

		returns = append(returns, equity[i].Equity/prev-1)
	}

	return returns
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	sum := 0.0

	for _, v := range values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(values)-1))
}

// ratios returns the annualized Sharpe and Sortino ratios of the equity
// curve's period returns.
func ratios(equity []types.EquityPoint, riskFreeRate float64) (float64, float64) {
	returns := periodReturns(equity)
	if len(returns) < 2 {
		return 0, 0
	}

	periodRate := riskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(returns))
	downside := 0.0

	for i, r := range returns {
		excess[i] = r - periodRate
		if excess[i] < 0 {
			downside += excess[i] * excess[i]
		}
	}

	annualize := math.Sqrt(TradingDaysPerYear)
	avg := mean(excess)

	sharpe := 0.0
	if sd := stdDev(returns); sd > 0 {
		sharpe = avg / sd * annualize
	}

	sortino := 0.0
	if dd := math.Sqrt(downside / float64(len(excess))); dd > 0 {
		sortino = avg / dd * annualize
	}

	return sharpe, sortino
}

// ComputeMetrics summarizes a run from its trades and equity curve. It has
// no side effects. Ratios with a zero denominator are reported as zero.
func ComputeMetrics(initialBalance float64, trades []types.Trade, equity []types.EquityPoint, riskFreeRate float64) types.BacktestMetrics {
	var m types.BacktestMetrics

	m.InitialBalance = initialBalance

	final := decimal.NewFromFloat(initialBalance)
	fees := decimal.Zero

	for _, trade := range trades {
		final = final.Add(decimal.NewFromFloat(trade.PnL))
		fees = fees.Add(decimal.NewFromFloat(trade.Fee))
	}

	m.FinalBalance = final.InexactFloat64()
	m.TotalFees = fees.InexactFloat64()
	m.TotalReturn = final.Sub(decimal.NewFromFloat(initialBalance)).InexactFloat64()

	if initialBalance > 0 {
		m.TotalReturnPercentage = m.TotalReturn / initialBalance * 100
	}

	grossWin, grossLoss := 0.0, 0.0
	winStreak, lossStreak := 0, 0

	trips := roundTrips(trades)
	for _, pnl := range trips {
		switch {
		case pnl > 0:
			m.WinningTrades++
			grossWin += pnl
			winStreak, lossStreak = winStreak+1, 0
		default:
			m.LosingTrades++
			grossLoss -= pnl
			winStreak, lossStreak = 0, lossStreak+1
		}

		m.LongestWinStreak = max(m.LongestWinStreak, winStreak)
		m.LongestLossStreak = max(m.LongestLossStreak, lossStreak)
	}

	m.TotalTrades = len(trips)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.Expectancy = (grossWin - grossLoss) / float64(m.TotalTrades)
	}

	if m.WinningTrades > 0 {
		m.AverageWin = grossWin / float64(m.WinningTrades)
	}

	if m.LosingTrades > 0 {
		m.AverageLoss = grossLoss / float64(m.LosingTrades)
	}

	if grossLoss > 0 {
		m.ProfitFactor = grossWin / grossLoss
	}

	peak := initialBalance

	for _, point := range equity {
		peak = math.Max(peak, point.Equity)

		if dd := peak - point.Equity; dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}

		m.MaxDrawdownPercentage = math.Max(m.MaxDrawdownPercentage, drawdownPercentage(peak, point.Equity))
	}

	if m.MaxDrawdownPercentage > 0 {
		m.CalmarRatio = m.TotalReturnPercentage / m.MaxDrawdownPercentage
	}

	if m.MaxDrawdown > 0 {
		m.RecoveryFactor = m.TotalReturn / m.MaxDrawdown
	}

	m.SharpeRatio, m.SortinoRatio = ratios(equity, riskFreeRate)

	return m
}
