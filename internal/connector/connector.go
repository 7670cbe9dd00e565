// Package connector defines the uniform contract every trading venue is adapted to.
//
// Symbols crossing this boundary are always canonical BASE/QUOTE and timeframes
// are always types.Timeframe; implementations translate to the venue's native
// vocabulary internally. Failures are returned as *errors.Error with a connector
// code (connectivity, auth, rate limit, unsupported, order failed) so callers can
// decide whether to skip a cycle or retry.
package connector

import (
	"context"
	"time"

	"github.com/rxtech-lab/autotrader/internal/types"
)

// Connector is one trading venue.
type Connector interface {
	// Name returns the venue name used in signals, snapshots and positions.
	Name() string
	// Connect verifies connectivity and credentials.
	Connect(ctx context.Context) error
	// Disconnect releases any resources held for the venue.
	Disconnect(ctx context.Context) error
	GetBalance(ctx context.Context) (types.Balance, error)
	GetTicker(ctx context.Context, symbol string) (types.Ticker, error)
	GetOrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error)
	// GetOHLCV returns up to limit candles starting at since, oldest first.
	// A zero since returns the most recent candles.
	GetOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error)
	CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, id string, symbol string) error
	GetOrder(ctx context.Context, id string, symbol string) (types.Order, error)
	// GetOpenOrders lists open orders; an empty symbol lists all of them.
	GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
	// GetPositions returns venue-side positions where the venue has that notion.
	GetPositions(ctx context.Context) ([]types.Position, error)
	// SetLeverage fails with ErrCodeUnsupported on spot-only venues.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// SetMarginMode fails with ErrCodeUnsupported on spot-only venues.
	SetMarginMode(ctx context.Context, symbol string, mode types.MarginMode) error
	// Fees returns the venue's fee schedule in percent.
	Fees() types.FeeSchedule
}
