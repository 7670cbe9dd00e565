// Package arbitrage holds the triangular and cross-exchange arbitrage
// strategies. Both find opportunities from live books, emit one signal per
// opportunity and place their own legs once risk approves it.
package arbitrage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/execution"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Quote is the top of one venue's book for one symbol.
type Quote struct {
	Exchange      string  `json:"exchange"`
	Symbol        string  `json:"symbol"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	BidDepthValue float64 `json:"bid_depth_value"`
	AskDepthValue float64 `json:"ask_depth_value"`
	FeePercentage float64 `json:"fee_percentage"`
}

// QuoteFromBook summarizes the first levels of book.
func QuoteFromBook(book types.OrderBook, levels int, feePercentage float64) (Quote, bool) {
	bid, ask := book.BestBid(), book.BestAsk()
	if bid.IsNone() || ask.IsNone() {
		return Quote{}, false //nolint:exhaustruct
	}

	return Quote{
		Exchange:      book.Exchange,
		Symbol:        book.Symbol,
		Bid:           bid.Unwrap().Price,
		Ask:           ask.Unwrap().Price,
		BidDepthValue: book.BidDepthValue(levels),
		AskDepthValue: book.AskDepthValue(levels),
		FeePercentage: feePercentage,
	}, true
}

type pendingEntry[T any] struct {
	opportunity T
	created     time.Time
}

// pending holds opportunities between the signal that announces them and
// the approved execution. Entries older than ttl are dropped.
type pending[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]pendingEntry[T]
}

func newPending[T any](ttl time.Duration) *pending[T] {
	return &pending[T]{
		mu:      sync.Mutex{},
		ttl:     ttl,
		entries: make(map[string]pendingEntry[T]),
	}
}

func (p *pending[T]) put(signalID string, opportunity T, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, entry := range p.entries {
		if now.Sub(entry.created) > p.ttl {
			delete(p.entries, id)
		}
	}

	p.entries[signalID] = pendingEntry[T]{opportunity: opportunity, created: now}
}

// take removes and returns the opportunity announced by signalID.
func (p *pending[T]) take(signalID string, now time.Time) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[signalID]
	delete(p.entries, signalID)

	if !ok || now.Sub(entry.created) > p.ttl {
		var zero T

		return zero, false
	}

	return entry.opportunity, true
}

func (p *pending[T]) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}

// fill is one executed leg.
type fill struct {
	order types.Order
	price float64
	fee   float64
}

// placeMarket submits a market order and requires a fill. Arbitrage legs are
// never retried; a failure is returned as-is for the caller to report.
func placeMarket(ctx context.Context, venue connector.Connector, symbol string, side types.OrderSide, amount float64) (fill, error) {
	req := types.OrderRequest{
		Symbol:        symbol,
		Type:          types.OrderTypeMarket,
		Side:          side,
		Amount:        amount,
		Price:         optional.None[float64](),
		StopPrice:     optional.None[float64](),
		ClientOrderID: uuid.New().String(),
	}

	if err := req.Validate(); err != nil {
		return fill{}, err //nolint:exhaustruct
	}

	order, err := venue.CreateOrder(ctx, req)
	if err != nil {
		return fill{order: order, price: 0, fee: 0}, err
	}

	if order.Symbol == "" {
		order.Symbol = symbol
	}

	if order.Side == "" {
		order.Side = side
	}

	if order.Filled <= 0 {
		return fill{order: order, price: 0, fee: 0}, errors.Newf(errors.ErrCodeOrderFailed, "%s %s on %s was not filled", side, symbol, venue.Name())
	}

	price := order.FillPrice()

	return fill{order: order, price: price, fee: execution.QuoteFee(order, price, venue.Fees())}, nil
}

// value is the quote amount exchanged by the fill, before fees.
func (f fill) value() decimal.Decimal {
	if f.order.Cost > 0 {
		return decimal.NewFromFloat(f.order.Cost)
	}

	return decimal.NewFromFloat(f.order.Filled).Mul(decimal.NewFromFloat(f.price))
}

func tradeFor(cfg types.StrategyConfig, exchange string, f fill, at time.Time) types.Trade {
	return types.Trade{
		ID:         uuid.New().String(),
		OrderID:    f.order.ID,
		PositionID: "",
		OwnerID:    cfg.OwnerID,
		StrategyID: cfg.ID,
		Exchange:   exchange,
		Symbol:     f.order.Symbol,
		Side:       f.order.Side,
		Price:      f.price,
		Quantity:   f.order.Filled,
		Fee:        f.fee,
		PnL:        0,
		IsClosing:  false,
		Reason:     types.TradeReasonArbitrage,
		IsPaper:    cfg.IsPaperTrading,
		ExecutedAt: at,
	}
}

func takerFee(venues *connector.Registry, exchange string, fallback float64) float64 {
	if venues == nil {
		return fallback
	}

	venue, err := venues.Get(exchange)
	if err != nil {
		return fallback
	}

	return venue.Fees().TakerPercentage
}
