package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

type OrderType string

type OrderSide string

type OrderStatus string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopLoss   OrderType = "stop_loss"
	OrderTypeTakeProfit OrderType = "take_profit"
)

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// Opposite returns the side that unwinds s.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}

	return OrderSideBuy
}

// OrderRequest is the venue-neutral createOrder input.
type OrderRequest struct {
	Symbol string    `yaml:"symbol" json:"symbol" validate:"required"`
	Type   OrderType `yaml:"type" json:"type" validate:"required,oneof=market limit stop_loss take_profit"`
	Side   OrderSide `yaml:"side" json:"side" validate:"required,oneof=buy sell"`
	Amount float64   `yaml:"amount" json:"amount" validate:"required,gt=0"`
	// Price is required for limit orders.
	Price optional.Option[float64] `yaml:"price" json:"price"`
	// StopPrice is required for stop_loss and take_profit orders.
	StopPrice     optional.Option[float64] `yaml:"stop_price" json:"stop_price"`
	ClientOrderID string                   `yaml:"client_order_id" json:"client_order_id"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()

	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if _, _, err := ParseSymbol(r.Symbol); err != nil {
		return err
	}

	if r.Type == OrderTypeLimit && (r.Price.IsNone() || r.Price.Unwrap() <= 0) {
		return errors.New(errors.ErrCodeInvalidOrder, "limit order requires a positive price")
	}

	if (r.Type == OrderTypeStopLoss || r.Type == OrderTypeTakeProfit) && (r.StopPrice.IsNone() || r.StopPrice.Unwrap() <= 0) {
		return errors.Newf(errors.ErrCodeInvalidOrder, "%s order requires a positive stop price", r.Type)
	}

	return nil
}

// Order is the venue's view of a submitted order.
type Order struct {
	ID            string      `yaml:"id" json:"id"`
	ClientOrderID string      `yaml:"client_order_id" json:"client_order_id"`
	Exchange      string      `yaml:"exchange" json:"exchange"`
	Symbol        string      `yaml:"symbol" json:"symbol"`
	Type          OrderType   `yaml:"type" json:"type"`
	Side          OrderSide   `yaml:"side" json:"side"`
	Status        OrderStatus `yaml:"status" json:"status"`
	Amount        float64     `yaml:"amount" json:"amount"`
	Price         float64     `yaml:"price" json:"price"`
	StopPrice     float64     `yaml:"stop_price" json:"stop_price"`
	Filled        float64     `yaml:"filled" json:"filled"`
	// AveragePrice is the volume weighted fill price.
	AveragePrice float64 `yaml:"average_price" json:"average_price"`
	// Cost is the filled quote amount before fees.
	Cost        float64   `yaml:"cost" json:"cost"`
	Fee         float64   `yaml:"fee" json:"fee"`
	FeeCurrency string    `yaml:"fee_currency" json:"fee_currency"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the order can no longer fill.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// FillPrice returns the average fill price, falling back to the limit price.
func (o Order) FillPrice() float64 {
	if o.AveragePrice > 0 {
		return o.AveragePrice
	}

	if o.Filled > 0 && o.Cost > 0 {
		return o.Cost / o.Filled
	}

	return o.Price
}
