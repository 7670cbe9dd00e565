package connector

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Policy bounds how long a venue call may take and how often it is retried.
type Policy struct {
	Timeout         time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gte=0"`
}

// DefaultPolicy is used when a venue has no explicit policy.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Resilient decorates a Connector with per-call timeouts and bounded
// exponential retry. Only idempotent calls are retried; CreateOrder gets a
// timeout but is attempted exactly once so a transient failure never submits
// an order twice.
type Resilient struct {
	inner  Connector
	policy Policy
	logger *logger.Logger
}

// WithResilience wraps c with policy.
func WithResilience(c Connector, policy Policy, log *logger.Logger) *Resilient {
	return &Resilient{
		inner:  c,
		policy: policy,
		logger: log.Named("resilience").With(zap.String("exchange", c.Name())),
	}
}

// Unwrap returns the decorated connector.
func (r *Resilient) Unwrap() Connector {
	return r.inner
}

func (r *Resilient) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.policy.InitialInterval),
		backoff.WithMaxInterval(r.policy.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)

	return backoff.WithContext(backoff.WithMaxRetries(exp, r.policy.MaxRetries), ctx)
}

func (r *Resilient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.policy.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.policy.Timeout)
}

func retryCall[T any](ctx context.Context, r *Resilient, method string, call func(ctx context.Context) (T, error)) (T, error) {
	operation := func() (T, error) {
		callCtx, cancel := r.withTimeout(ctx)
		defer cancel()

		result, err := call(callCtx)
		if err == nil {
			return result, nil
		}

		if errors.IsPermanent(err) {
			return result, backoff.Permanent(err)
		}

		if callCtx.Err() != nil && ctx.Err() == nil {
			err = errors.Wrapf(errors.ErrCodeTimeout, err, "%s timed out after %s", method, r.policy.Timeout)
		}

		return result, err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("venue call failed, retrying",
			zap.String("method", method),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	return backoff.RetryNotifyWithData(operation, r.newBackOff(ctx), notify)
}

type none struct{}

func (r *Resilient) Name() string {
	return r.inner.Name()
}

func (r *Resilient) Connect(ctx context.Context) error {
	_, err := retryCall(ctx, r, "Connect", func(ctx context.Context) (none, error) {
		return none{}, r.inner.Connect(ctx)
	})

	return err
}

func (r *Resilient) Disconnect(ctx context.Context) error {
	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.inner.Disconnect(callCtx)
}

func (r *Resilient) GetBalance(ctx context.Context) (types.Balance, error) {
	return retryCall(ctx, r, "GetBalance", r.inner.GetBalance)
}

func (r *Resilient) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	return retryCall(ctx, r, "GetTicker", func(ctx context.Context) (types.Ticker, error) {
		return r.inner.GetTicker(ctx, symbol)
	})
}

func (r *Resilient) GetOrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error) {
	return retryCall(ctx, r, "GetOrderBook", func(ctx context.Context) (types.OrderBook, error) {
		return r.inner.GetOrderBook(ctx, symbol, depth)
	})
}

func (r *Resilient) GetOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error) {
	return retryCall(ctx, r, "GetOHLCV", func(ctx context.Context) ([]types.Candle, error) {
		return r.inner.GetOHLCV(ctx, symbol, timeframe, since, limit)
	})
}

// CreateOrder is never retried.
func (r *Resilient) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	order, err := r.inner.CreateOrder(callCtx, req)
	if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
		r.logger.Error("order placement timed out, order state unknown",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Float64("amount", req.Amount),
			zap.String("client_order_id", req.ClientOrderID),
			zap.Error(err),
		)

		return order, errors.Wrapf(errors.ErrCodeTimeout, err, "CreateOrder timed out after %s", r.policy.Timeout)
	}

	return order, err
}

func (r *Resilient) CancelOrder(ctx context.Context, id string, symbol string) error {
	_, err := retryCall(ctx, r, "CancelOrder", func(ctx context.Context) (none, error) {
		return none{}, r.inner.CancelOrder(ctx, id, symbol)
	})

	return err
}

func (r *Resilient) GetOrder(ctx context.Context, id string, symbol string) (types.Order, error) {
	return retryCall(ctx, r, "GetOrder", func(ctx context.Context) (types.Order, error) {
		return r.inner.GetOrder(ctx, id, symbol)
	})
}

func (r *Resilient) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	return retryCall(ctx, r, "GetOpenOrders", func(ctx context.Context) ([]types.Order, error) {
		return r.inner.GetOpenOrders(ctx, symbol)
	})
}

func (r *Resilient) GetPositions(ctx context.Context) ([]types.Position, error) {
	return retryCall(ctx, r, "GetPositions", r.inner.GetPositions)
}

func (r *Resilient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := retryCall(ctx, r, "SetLeverage", func(ctx context.Context) (none, error) {
		return none{}, r.inner.SetLeverage(ctx, symbol, leverage)
	})

	return err
}

func (r *Resilient) SetMarginMode(ctx context.Context, symbol string, mode types.MarginMode) error {
	_, err := retryCall(ctx, r, "SetMarginMode", func(ctx context.Context) (none, error) {
		return none{}, r.inner.SetMarginMode(ctx, symbol, mode)
	})

	return err
}

func (r *Resilient) Fees() types.FeeSchedule {
	return r.inner.Fees()
}

var _ Connector = (*Resilient)(nil)
