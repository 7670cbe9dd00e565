// Package store declares the persistence boundary. Repository is the
// durable relational record; TimeSeries is the analytical market store.
package store

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/types"
)

// RiskScope is the level a risk parameter override applies to.
type RiskScope string

const (
	RiskScopeGlobal   RiskScope = "global"
	RiskScopeUser     RiskScope = "user"
	RiskScopeStrategy RiskScope = "strategy"
)

// RiskOverride replaces the default risk parameters for one scope.
// ScopeID is empty for the global scope.
type RiskOverride struct {
	Scope      RiskScope            `yaml:"scope" json:"scope"`
	ScopeID    string               `yaml:"scope_id" json:"scope_id"`
	Parameters types.RiskParameters `yaml:"parameters" json:"parameters"`
}

// Repository persists strategies, signals, positions, trades, market rows,
// backtest results and risk overrides.
type Repository interface {
	SaveStrategy(ctx context.Context, cfg types.StrategyConfig) error
	GetStrategy(ctx context.Context, id string) (types.StrategyConfig, error)
	ListStrategies(ctx context.Context, activeOnly bool) ([]types.StrategyConfig, error)
	SetStrategyActive(ctx context.Context, id string, active bool) error
	UpdatePerformance(ctx context.Context, id string, performance types.StrategyPerformance) error

	SaveSignal(ctx context.Context, signal types.TradingSignal) error
	ListSignals(ctx context.Context, strategyID string, limit int) ([]types.TradingSignal, error)

	// RecordExecution inserts trade and upserts position in one transaction.
	RecordExecution(ctx context.Context, trade types.Trade, position types.Position) error
	// SaveTrade appends a trade not tied to a position.
	SaveTrade(ctx context.Context, trade types.Trade) error
	GetPosition(ctx context.Context, id string) (types.Position, error)
	// OpenPositions lists open positions of owner, or of every owner when empty.
	OpenPositions(ctx context.Context, ownerID string) ([]types.Position, error)
	// UpdatePositionMark persists current price and unrealized pnl only.
	UpdatePositionMark(ctx context.Context, position types.Position) error
	ListTrades(ctx context.Context, strategyID string) ([]types.Trade, error)

	// SaveSnapshots inserts snapshots, skipping duplicates, and returns the number inserted.
	SaveSnapshots(ctx context.Context, snapshots []types.MarketSnapshot) (int, error)

	SaveBacktestResult(ctx context.Context, result types.BacktestResult) error
	GetBacktestResult(ctx context.Context, id string) (types.BacktestResult, error)

	SaveRiskOverride(ctx context.Context, override RiskOverride) error
	ListRiskOverrides(ctx context.Context) ([]RiskOverride, error)

	Close() error
}

// TimeSeries is the append-only market store used for analytical queries.
type TimeSeries interface {
	// WriteSnapshots appends snapshots, ignoring duplicates, and returns the number written.
	WriteSnapshots(ctx context.Context, snapshots []types.MarketSnapshot) (int, error)
	WriteCandles(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, candles []types.Candle) (int, error)
	// Candles returns up to limit candles at or after since, oldest first.
	// A zero since returns the most recent candles.
	Candles(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error)
	LatestSnapshot(ctx context.Context, exchange, symbol string) (optional.Option[types.MarketSnapshot], error)
	// Stats aggregates snapshots at or after since; None when there are none.
	Stats(ctx context.Context, exchange, symbol string, since time.Time) (optional.Option[types.MarketStats], error)
	Close() error
}
