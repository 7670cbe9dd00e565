// Package paper simulates order execution against live quotes from another
// connector. Balances and orders live in memory.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config configures the simulated venue.
type Config struct {
	Name string `mapstructure:"name" validate:"required"`
	// InitialBalances maps asset to starting free amount.
	InitialBalances map[string]float64 `mapstructure:"initial_balances" validate:"dive,gte=0"`
	// FeePercentage is charged in the quote asset on every fill.
	FeePercentage float64 `mapstructure:"fee_percentage" validate:"gte=0,lt=100"`
	// SlippagePercentage moves market fills against the taker.
	SlippagePercentage float64 `mapstructure:"slippage_percentage" validate:"gte=0,lt=100"`
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid paper connector config", err)
	}

	return nil
}

// Connector fills orders against quotes from source.
type Connector struct {
	config Config
	source connector.Connector
	now    func() time.Time

	mu       sync.Mutex
	balances map[string]types.AssetBalance
	orders   map[string]*types.Order
}

// New creates a paper venue quoting from source.
func New(config Config, source connector.Connector) (*Connector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if source == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "paper connector requires a quote source")
	}

	balances := make(map[string]types.AssetBalance, len(config.InitialBalances))
	for asset, amount := range config.InitialBalances {
		balances[asset] = types.AssetBalance{Asset: asset, Free: amount, Locked: 0}
	}

	return &Connector{
		config:   config,
		source:   source,
		now:      time.Now,
		mu:       sync.Mutex{},
		balances: balances,
		orders:   make(map[string]*types.Order),
	}, nil
}

func (c *Connector) Name() string {
	return c.config.Name
}

func (c *Connector) Connect(ctx context.Context) error {
	return c.source.Connect(ctx)
}

func (c *Connector) Disconnect(ctx context.Context) error {
	return c.source.Disconnect(ctx)
}

func (c *Connector) GetBalance(_ context.Context) (types.Balance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	assets := make(map[string]types.AssetBalance, len(c.balances))
	for asset, b := range c.balances {
		assets[asset] = b
	}

	return types.Balance{Exchange: c.config.Name, Assets: assets}, nil
}

func (c *Connector) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	ticker, err := c.source.GetTicker(ctx, symbol)
	if err != nil {
		return types.Ticker{}, err
	}

	ticker.Exchange = c.config.Name

	return ticker, nil
}

func (c *Connector) GetOrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error) {
	book, err := c.source.GetOrderBook(ctx, symbol, depth)
	if err != nil {
		return types.OrderBook{}, err
	}

	book.Exchange = c.config.Name

	return book, nil
}

func (c *Connector) GetOHLCV(ctx context.Context, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error) {
	return c.source.GetOHLCV(ctx, symbol, timeframe, since, limit)
}

// CreateOrder fills market orders immediately at the quote plus slippage.
// Limit and stop orders rest until a later quote crosses their price.
func (c *Connector) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	ticker, err := c.source.GetTicker(ctx, req.Symbol)
	if err != nil {
		return types.Order{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	order := &types.Order{
		ID:            uuid.New().String(),
		ClientOrderID: req.ClientOrderID,
		Exchange:      c.config.Name,
		Symbol:        req.Symbol,
		Type:          req.Type,
		Side:          req.Side,
		Status:        types.OrderStatusOpen,
		Amount:        req.Amount,
		Price:         req.Price.TakeOr(0),
		StopPrice:     req.StopPrice.TakeOr(0),
		Filled:        0,
		AveragePrice:  0,
		Cost:          0,
		Fee:           0,
		FeeCurrency:   types.QuoteAsset(req.Symbol),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.Type == types.OrderTypeMarket {
		if err := c.fill(order, c.marketPrice(ticker, req.Side), now); err != nil {
			return types.Order{}, err
		}

		c.orders[order.ID] = order

		return *order, nil
	}

	if err := c.lock(order); err != nil {
		return types.Order{}, err
	}

	c.orders[order.ID] = order
	c.match(order, ticker, now)

	return *order, nil
}

func (c *Connector) marketPrice(ticker types.Ticker, side types.OrderSide) float64 {
	price := decimal.NewFromFloat(ticker.Last)

	if side == types.OrderSideBuy && ticker.Ask > 0 {
		price = decimal.NewFromFloat(ticker.Ask)
	}

	if side == types.OrderSideSell && ticker.Bid > 0 {
		price = decimal.NewFromFloat(ticker.Bid)
	}

	slip := decimal.NewFromFloat(c.config.SlippagePercentage).Div(decimal.NewFromInt(100))
	if side == types.OrderSideBuy {
		return price.Mul(decimal.NewFromInt(1).Add(slip)).InexactFloat64()
	}

	return price.Mul(decimal.NewFromInt(1).Sub(slip)).InexactFloat64()
}

// fill settles order at price against free balances. Caller holds mu.
func (c *Connector) fill(order *types.Order, price float64, at time.Time) error {
	base, quote := types.BaseAsset(order.Symbol), types.QuoteAsset(order.Symbol)

	qty := decimal.NewFromFloat(order.Amount)
	cost := qty.Mul(decimal.NewFromFloat(price))
	fee := cost.Mul(decimal.NewFromFloat(c.config.FeePercentage)).Div(decimal.NewFromInt(100))

	quoteBal := c.balances[quote]
	baseBal := c.balances[base]

	switch order.Side {
	case types.OrderSideBuy:
		need := cost.Add(fee)
		if decimal.NewFromFloat(quoteBal.Free).LessThan(need) {
			return errors.Newf(errors.ErrCodeInsufficientFunds,
				"insufficient %s: need %s, have %.8f", quote, need.StringFixed(8), quoteBal.Free)
		}

		quoteBal.Free = decimal.NewFromFloat(quoteBal.Free).Sub(need).InexactFloat64()
		baseBal.Free = decimal.NewFromFloat(baseBal.Free).Add(qty).InexactFloat64()
	case types.OrderSideSell:
		if decimal.NewFromFloat(baseBal.Free).LessThan(qty) {
			return errors.Newf(errors.ErrCodeInsufficientFunds,
				"insufficient %s: need %.8f, have %.8f", base, order.Amount, baseBal.Free)
		}

		baseBal.Free = decimal.NewFromFloat(baseBal.Free).Sub(qty).InexactFloat64()
		quoteBal.Free = decimal.NewFromFloat(quoteBal.Free).Add(cost).Sub(fee).InexactFloat64()
	}

	baseBal.Asset, quoteBal.Asset = base, quote
	c.balances[base] = baseBal
	c.balances[quote] = quoteBal

	order.Status = types.OrderStatusFilled
	order.Filled = order.Amount
	order.AveragePrice = price
	order.Cost = cost.InexactFloat64()
	order.Fee = fee.InexactFloat64()
	order.UpdatedAt = at

	return nil
}

// reservation is the balance a resting order holds.
func (c *Connector) reservation(order *types.Order) (string, float64) {
	if order.Side == types.OrderSideSell {
		return types.BaseAsset(order.Symbol), order.Amount
	}

	price := order.Price
	if price == 0 {
		price = order.StopPrice
	}

	notional := order.Amount * price

	return types.QuoteAsset(order.Symbol), notional * (1 + c.config.FeePercentage/100)
}

func (c *Connector) lock(order *types.Order) error {
	asset, amount := c.reservation(order)

	bal := c.balances[asset]
	if bal.Free < amount {
		return errors.Newf(errors.ErrCodeInsufficientFunds, "insufficient %s: need %.8f, have %.8f", asset, amount, bal.Free)
	}

	bal.Asset = asset
	bal.Free -= amount
	bal.Locked += amount
	c.balances[asset] = bal

	return nil
}

func (c *Connector) unlock(order *types.Order) {
	asset, amount := c.reservation(order)

	bal := c.balances[asset]
	bal.Locked -= amount
	bal.Free += amount
	c.balances[asset] = bal
}

// crossed reports whether a resting order is triggered by the ticker.
func crossed(order *types.Order, ticker types.Ticker) (float64, bool) {
	last := ticker.Last

	switch order.Type {
	case types.OrderTypeLimit:
		if order.Side == types.OrderSideBuy && last <= order.Price {
			return order.Price, true
		}

		if order.Side == types.OrderSideSell && last >= order.Price {
			return order.Price, true
		}
	case types.OrderTypeStopLoss:
		if order.Side == types.OrderSideSell && last <= order.StopPrice {
			return last, true
		}

		if order.Side == types.OrderSideBuy && last >= order.StopPrice {
			return last, true
		}
	case types.OrderTypeTakeProfit:
		if order.Side == types.OrderSideSell && last >= order.StopPrice {
			return last, true
		}

		if order.Side == types.OrderSideBuy && last <= order.StopPrice {
			return last, true
		}
	case types.OrderTypeMarket:
		return last, true
	}

	return 0, false
}

// match fills a resting order if the ticker crosses it. Caller holds mu.
func (c *Connector) match(order *types.Order, ticker types.Ticker, at time.Time) {
	if order.IsTerminal() {
		return
	}

	price, ok := crossed(order, ticker)
	if !ok {
		return
	}

	c.unlock(order)

	if err := c.fill(order, price, at); err != nil {
		order.Status = types.OrderStatusRejected
		order.UpdatedAt = at
	}
}

// refresh re-quotes every resting order on symbol, or on all symbols when empty.
func (c *Connector) refresh(ctx context.Context, symbol string) error {
	c.mu.Lock()

	symbols := make(map[string]struct{})
	for _, o := range c.orders {
		if !o.IsTerminal() && (symbol == "" || o.Symbol == symbol) {
			symbols[o.Symbol] = struct{}{}
		}
	}
	c.mu.Unlock()

	for s := range symbols {
		ticker, err := c.source.GetTicker(ctx, s)
		if err != nil {
			return err
		}

		c.mu.Lock()
		now := c.now().UTC()

		for _, o := range c.orders {
			if o.Symbol == s {
				c.match(o, ticker, now)
			}
		}
		c.mu.Unlock()
	}

	return nil
}

func (c *Connector) CancelOrder(_ context.Context, id string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[id]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", id)
	}

	if order.IsTerminal() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order %s is already %s", id, order.Status)
	}

	c.unlock(order)
	order.Status = types.OrderStatusCancelled
	order.UpdatedAt = c.now().UTC()

	return nil
}

func (c *Connector) GetOrder(ctx context.Context, id string, symbol string) (types.Order, error) {
	if err := c.refresh(ctx, symbol); err != nil {
		return types.Order{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[id]
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", id)
	}

	return *order, nil
}

func (c *Connector) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	if err := c.refresh(ctx, symbol); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	orders := make([]types.Order, 0)
	for _, o := range c.orders {
		if !o.IsTerminal() && (symbol == "" || o.Symbol == symbol) {
			orders = append(orders, *o)
		}
	}

	return orders, nil
}

// GetPositions is unsupported: the paper venue is spot only.
func (c *Connector) GetPositions(_ context.Context) ([]types.Position, error) {
	return nil, errors.Newf(errors.ErrCodeUnsupported, "%s does not track venue positions", c.config.Name)
}

func (c *Connector) SetLeverage(_ context.Context, symbol string, _ int) error {
	return errors.Newf(errors.ErrCodeUnsupported, "%s does not support leverage for %s", c.config.Name, symbol)
}

func (c *Connector) SetMarginMode(_ context.Context, symbol string, _ types.MarginMode) error {
	return errors.Newf(errors.ErrCodeUnsupported, "%s does not support margin mode for %s", c.config.Name, symbol)
}

func (c *Connector) Fees() types.FeeSchedule {
	return types.FeeSchedule{MakerPercentage: c.config.FeePercentage, TakerPercentage: c.config.FeePercentage}
}

var _ connector.Connector = (*Connector)(nil)
