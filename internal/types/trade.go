package types

import "time"

// Trade is an immutable execution record. Trades are append-only.
type Trade struct {
	ID         string    `yaml:"id" json:"id"`
	OrderID    string    `yaml:"order_id" json:"order_id"`
	PositionID string    `yaml:"position_id" json:"position_id"`
	OwnerID    string    `yaml:"owner_id" json:"owner_id"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id"`
	Exchange   string    `yaml:"exchange" json:"exchange"`
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Side       OrderSide `yaml:"side" json:"side"`
	Price      float64   `yaml:"price" json:"price"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	Fee        float64   `yaml:"fee" json:"fee"`
	// PnL is realized profit net of this trade's fee. Opening trades carry -Fee.
	PnL        float64   `yaml:"pnl" json:"pnl"`
	IsClosing  bool      `yaml:"is_closing" json:"is_closing"`
	Reason     string    `yaml:"reason" json:"reason"`
	IsPaper    bool      `yaml:"is_paper" json:"is_paper"`
	ExecutedAt time.Time `yaml:"executed_at" json:"executed_at"`
}

// Notional returns price times quantity.
func (t Trade) Notional() float64 {
	return t.Price * t.Quantity
}

const (
	TradeReasonSignal     = "signal"
	TradeReasonStopLoss   = "stop_loss"
	TradeReasonTakeProfit = "take_profit"
	TradeReasonMaxHolding = "max_holding_period"
	TradeReasonManual     = "manual"
	TradeReasonEndOfData  = "end_of_data"
	TradeReasonArbitrage  = "arbitrage"
)
