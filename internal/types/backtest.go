package types

import "time"

// BacktestMetrics summarizes a completed run.
type BacktestMetrics struct {
	InitialBalance        float64 `yaml:"initial_balance" json:"initial_balance"`
	FinalBalance          float64 `yaml:"final_balance" json:"final_balance"`
	TotalReturn           float64 `yaml:"total_return" json:"total_return"`
	TotalReturnPercentage float64 `yaml:"total_return_percentage" json:"total_return_percentage"`
	TotalTrades           int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades         int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades          int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate               float64 `yaml:"win_rate" json:"win_rate"`
	AverageWin            float64 `yaml:"average_win" json:"average_win"`
	AverageLoss           float64 `yaml:"average_loss" json:"average_loss"`
	ProfitFactor          float64 `yaml:"profit_factor" json:"profit_factor"`
	SharpeRatio           float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio          float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	MaxDrawdown           float64 `yaml:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPercentage float64 `yaml:"max_drawdown_percentage" json:"max_drawdown_percentage"`
	CalmarRatio           float64 `yaml:"calmar_ratio" json:"calmar_ratio"`
	RecoveryFactor        float64 `yaml:"recovery_factor" json:"recovery_factor"`
	Expectancy            float64 `yaml:"expectancy" json:"expectancy"`
	TotalFees             float64 `yaml:"total_fees" json:"total_fees"`
	LongestWinStreak      int     `yaml:"longest_win_streak" json:"longest_win_streak"`
	LongestLossStreak     int     `yaml:"longest_loss_streak" json:"longest_loss_streak"`
}

// EquityPoint is the mark-to-market equity after one candle.
type EquityPoint struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Equity    float64   `yaml:"equity" json:"equity"`
}

// DrawdownPoint is the percentage below the running peak after one candle.
type DrawdownPoint struct {
	Timestamp  time.Time `yaml:"timestamp" json:"timestamp"`
	Percentage float64   `yaml:"percentage" json:"percentage"`
}

// BacktestResult is produced once per run and never mutated afterwards.
type BacktestResult struct {
	ID            string          `yaml:"id" json:"id"`
	StrategyID    string          `yaml:"strategy_id" json:"strategy_id"`
	Config        map[string]any  `yaml:"config" json:"config"`
	Metrics       BacktestMetrics `yaml:"metrics" json:"metrics"`
	Trades        []Trade         `yaml:"trades" json:"trades"`
	EquityCurve   []EquityPoint   `yaml:"equity_curve" json:"equity_curve"`
	DrawdownCurve []DrawdownPoint `yaml:"drawdown_curve" json:"drawdown_curve"`
	CompletedAt   time.Time       `yaml:"completed_at" json:"completed_at"`
}
