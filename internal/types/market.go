package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Open      float64   `yaml:"open" json:"open"`
	High      float64   `yaml:"high" json:"high"`
	Low       float64   `yaml:"low" json:"low"`
	Close     float64   `yaml:"close" json:"close"`
	Volume    float64   `yaml:"volume" json:"volume"`
}

// Ticker is a venue quote for one symbol.
type Ticker struct {
	Exchange  string    `yaml:"exchange" json:"exchange"`
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Last      float64   `yaml:"last" json:"last"`
	Bid       float64   `yaml:"bid" json:"bid"`
	Ask       float64   `yaml:"ask" json:"ask"`
	Volume24h float64   `yaml:"volume_24h" json:"volume_24h"`
	Change24h float64   `yaml:"change_24h" json:"change_24h"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// Mid returns the bid/ask midpoint, falling back to the last price.
func (t Ticker) Mid() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2
	}

	return t.Last
}

// PriceLevel is one price/quantity row of an order book.
type PriceLevel struct {
	Price    float64 `yaml:"price" json:"price"`
	Quantity float64 `yaml:"quantity" json:"quantity"`
}

// OrderBook holds bids (descending) and asks (ascending).
type OrderBook struct {
	Exchange  string       `yaml:"exchange" json:"exchange"`
	Symbol    string       `yaml:"symbol" json:"symbol"`
	Bids      []PriceLevel `yaml:"bids" json:"bids"`
	Asks      []PriceLevel `yaml:"asks" json:"asks"`
	Timestamp time.Time    `yaml:"timestamp" json:"timestamp"`
}

// BestBid returns the highest bid, if any.
func (b OrderBook) BestBid() optional.Option[PriceLevel] {
	if len(b.Bids) == 0 {
		return optional.None[PriceLevel]()
	}

	return optional.Some(b.Bids[0])
}

// BestAsk returns the lowest ask, if any.
func (b OrderBook) BestAsk() optional.Option[PriceLevel] {
	if len(b.Asks) == 0 {
		return optional.None[PriceLevel]()
	}

	return optional.Some(b.Asks[0])
}

// BidDepthValue is the quote value of the first levels bids.
func (b OrderBook) BidDepthValue(levels int) float64 {
	return depthValue(b.Bids, levels)
}

// AskDepthValue is the quote value of the first levels asks.
func (b OrderBook) AskDepthValue(levels int) float64 {
	return depthValue(b.Asks, levels)
}

func depthValue(side []PriceLevel, levels int) float64 {
	total := 0.0
	for i, level := range side {
		if levels > 0 && i >= levels {
			break
		}

		total += level.Price * level.Quantity
	}

	return total
}

// MarketSnapshot is one normalized collector tick.
type MarketSnapshot struct {
	Exchange  string    `yaml:"exchange" json:"exchange"`
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Price     float64   `yaml:"price" json:"price"`
	Bid       float64   `yaml:"bid" json:"bid"`
	Ask       float64   `yaml:"ask" json:"ask"`
	Volume24h float64   `yaml:"volume_24h" json:"volume_24h"`
	Change24h float64   `yaml:"change_24h" json:"change_24h"`
}

// SnapshotFromTicker normalizes a ticker, truncating the timestamp to the second.
func SnapshotFromTicker(t Ticker) MarketSnapshot {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return MarketSnapshot{
		Exchange:  t.Exchange,
		Symbol:    t.Symbol,
		Timestamp: ts.UTC().Truncate(time.Second),
		Price:     t.Last,
		Bid:       t.Bid,
		Ask:       t.Ask,
		Volume24h: t.Volume24h,
		Change24h: t.Change24h,
	}
}

// MarketStats aggregates prices over a rolling window.
type MarketStats struct {
	Exchange  string        `yaml:"exchange" json:"exchange"`
	Symbol    string        `yaml:"symbol" json:"symbol"`
	Period    time.Duration `yaml:"period" json:"period"`
	Mean      float64       `yaml:"mean" json:"mean"`
	Min       float64       `yaml:"min" json:"min"`
	Max       float64       `yaml:"max" json:"max"`
	Volume    float64       `yaml:"volume" json:"volume"`
	ChangePct float64       `yaml:"change_pct" json:"change_pct"`
	Samples   int           `yaml:"samples" json:"samples"`
}

// MarketData is everything a strategy sees for one analysis call.
// Candles end at the current point in time; nothing after it is included.
type MarketData struct {
	Candles   []Candle                   `yaml:"candles" json:"candles"`
	Ticker    optional.Option[Ticker]    `yaml:"ticker" json:"ticker"`
	OrderBook optional.Option[OrderBook] `yaml:"order_book" json:"order_book"`
}

// CurrentPrice returns the ticker's last price or the latest close.
func (m MarketData) CurrentPrice() float64 {
	if m.Ticker.IsSome() {
		if last := m.Ticker.Unwrap().Last; last > 0 {
			return last
		}
	}

	if len(m.Candles) == 0 {
		return 0
	}

	return m.Candles[len(m.Candles)-1].Close
}

// Closes extracts close prices.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return closes
}
