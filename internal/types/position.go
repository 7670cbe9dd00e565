package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

type PositionSide string

type PositionStatus string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

const (
	PositionStatusPending PositionStatus = "pending"
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusClosed  PositionStatus = "closed"
)

// EntrySide returns the order side that opens a position on this side.
func (s PositionSide) EntrySide() OrderSide {
	if s == PositionSideShort {
		return OrderSideSell
	}

	return OrderSideBuy
}

// ExitSide returns the order side that closes a position on this side.
func (s PositionSide) ExitSide() OrderSide {
	return s.EntrySide().Opposite()
}

// Position is a holding built from one or more trades.
// Quantity and EntryPrice change only through ApplyTrade.
type Position struct {
	ID            string                     `yaml:"id" json:"id"`
	OwnerID       string                     `yaml:"owner_id" json:"owner_id"`
	StrategyID    string                     `yaml:"strategy_id" json:"strategy_id"`
	Exchange      string                     `yaml:"exchange" json:"exchange"`
	Symbol        string                     `yaml:"symbol" json:"symbol"`
	Side          PositionSide               `yaml:"side" json:"side"`
	Quantity      float64                    `yaml:"quantity" json:"quantity"`
	EntryPrice    float64                    `yaml:"entry_price" json:"entry_price"`
	CurrentPrice  float64                    `yaml:"current_price" json:"current_price"`
	UnrealizedPnl float64                    `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	RealizedPnl   float64                    `yaml:"realized_pnl" json:"realized_pnl"`
	StopLoss      optional.Option[float64]   `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit    optional.Option[float64]   `yaml:"take_profit" json:"take_profit"`
	Status        PositionStatus             `yaml:"status" json:"status"`
	IsPaper       bool                       `yaml:"is_paper" json:"is_paper"`
	OpenedAt      time.Time                  `yaml:"opened_at" json:"opened_at"`
	ClosedAt      optional.Option[time.Time] `yaml:"closed_at" json:"closed_at"`
	UpdatedAt     time.Time                  `yaml:"updated_at" json:"updated_at"`
}

// Notional returns the marked value of the position.
func (p Position) Notional() float64 {
	price := p.CurrentPrice
	if price <= 0 {
		price = p.EntryPrice
	}

	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(p.Quantity)).InexactFloat64()
}

func (p Position) direction() decimal.Decimal {
	if p.Side == PositionSideShort {
		return decimal.NewFromInt(-1)
	}

	return decimal.NewFromInt(1)
}

// Mark refreshes CurrentPrice and UnrealizedPnl.
func (p *Position) Mark(price float64, at time.Time) {
	p.CurrentPrice = price
	p.UnrealizedPnl = decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(p.EntryPrice)).
		Mul(decimal.NewFromFloat(p.Quantity)).
		Mul(p.direction()).
		InexactFloat64()
	p.UpdatedAt = at
}

// ApplyTrade folds a fill into the position and returns the pnl the trade
// realizes, net of its fee. Trades on the entry side grow the position at a
// weighted entry price; trades on the exit side reduce it and close it at zero.
func (p *Position) ApplyTrade(trade Trade) (float64, error) {
	if p.Status == PositionStatusClosed {
		return 0, errors.Newf(errors.ErrCodePositionClosed, "position %s is closed", p.ID)
	}

	if trade.Quantity <= 0 || trade.Price <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "trade %s has non-positive price or quantity", trade.ID)
	}

	qty := decimal.NewFromFloat(p.Quantity)
	entry := decimal.NewFromFloat(p.EntryPrice)
	tradeQty := decimal.NewFromFloat(trade.Quantity)
	tradePrice := decimal.NewFromFloat(trade.Price)
	fee := decimal.NewFromFloat(trade.Fee)

	if trade.Side == p.Side.EntrySide() {
		newQty := qty.Add(tradeQty)
		p.EntryPrice = qty.Mul(entry).Add(tradeQty.Mul(tradePrice)).Div(newQty).InexactFloat64()
		p.Quantity = newQty.InexactFloat64()
		p.Status = PositionStatusOpen
		p.RealizedPnl = decimal.NewFromFloat(p.RealizedPnl).Sub(fee).InexactFloat64()
		p.Mark(trade.Price, trade.ExecutedAt)

		return fee.Neg().InexactFloat64(), nil
	}

	closeQty := decimal.Min(qty, tradeQty)
	realized := tradePrice.Sub(entry).Mul(closeQty).Mul(p.direction()).Sub(fee)

	remaining := qty.Sub(closeQty)
	p.Quantity = remaining.InexactFloat64()
	p.RealizedPnl = decimal.NewFromFloat(p.RealizedPnl).Add(realized).InexactFloat64()
	p.Mark(trade.Price, trade.ExecutedAt)

	if remaining.IsZero() {
		p.Status = PositionStatusClosed
		p.UnrealizedPnl = 0
		p.ClosedAt = optional.Some(trade.ExecutedAt)
	}

	return realized.InexactFloat64(), nil
}

// StopLossHit reports whether price crossed the stop for this side.
func (p Position) StopLossHit(price float64) bool {
	if p.StopLoss.IsNone() {
		return false
	}

	stop := p.StopLoss.Unwrap()
	if p.Side == PositionSideShort {
		return price >= stop
	}

	return price <= stop
}

// TakeProfitHit reports whether price crossed the target for this side.
func (p Position) TakeProfitHit(price float64) bool {
	if p.TakeProfit.IsNone() {
		return false
	}

	target := p.TakeProfit.Unwrap()
	if p.Side == PositionSideShort {
		return price <= target
	}

	return price >= target
}
