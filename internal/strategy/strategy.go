// Package strategy hosts trading strategies: a registry of implementations
// keyed by type, the per-instance lifecycle state machine and the engine that
// schedules analysis cycles and routes signals through risk to execution.
package strategy

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/advisor"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/indicator"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/types"
)

// Strategy turns market data into at most one signal per symbol and call.
type Strategy interface {
	Name() string
	Initialize(ctx context.Context) error
	// Analyze must only look at data; candles end at the current point in time.
	Analyze(ctx context.Context, exchange, symbol string, data types.MarketData) (optional.Option[types.TradingSignal], error)
	Cleanup(ctx context.Context) error
}

// SelfScheduled strategies run on their own interval instead of the
// config's cron schedule.
type SelfScheduled interface {
	Interval() time.Duration
}

// SignalExecutor strategies place their own orders for approved signals,
// typically because one signal spans several legs or venues.
type SignalExecutor interface {
	ExecuteSignal(ctx context.Context, signal types.TradingSignal, assessment risk.Assessment) ([]types.Trade, error)
}

// ExecutionObserver strategies are told about every confirmed trade.
type ExecutionObserver interface {
	OnTrade(trade types.Trade)
}

// LookbackProvider strategies declare how many candles Analyze needs.
type LookbackProvider interface {
	Lookback() int
}

// MarketData is the market view strategies and the engine read from.
type MarketData interface {
	GetOHLCV(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error)
	GetTicker(ctx context.Context, exchange, symbol string) (types.Ticker, error)
	GetOrderBook(ctx context.Context, exchange, symbol string, depth int) (types.OrderBook, error)
	GetLatestPrice(ctx context.Context, exchange, symbol string) (float64, error)
}

// Dependencies is what a factory may wire into a strategy. Market, Venues
// and Advisor are nil in backtests.
type Dependencies struct {
	Config     types.StrategyConfig
	Market     MarketData
	Venues     *connector.Registry
	Indicators indicator.IndicatorRegistry
	Advisor    advisor.Advisor
	Logger     *logger.Logger
}
