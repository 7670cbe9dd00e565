package risk

import (
	"sync"
	"time"

	"github.com/rxtech-lab/autotrader/internal/types"
)

type exposure struct {
	strategyID string
	exchange   string
	symbol     string
	side       types.PositionSide
	quantity   float64
	notional   float64
}

type reservation struct {
	id         string
	ownerID    string
	strategyID string
	exchange   string
	symbol     string
	notional   float64
	expiresAt  time.Time
}

// accountState is the mutable risk state of one owner. Every field is
// guarded by mu, which Validate holds for the whole pipeline.
type accountState struct {
	mu           sync.Mutex
	positions    map[string]exposure
	reservations map[string]reservation
	day          time.Time
	dailyPnl     float64
	equity       float64
	peak         float64
}

func newAccountState() *accountState {
	return &accountState{
		mu:           sync.Mutex{},
		positions:    make(map[string]exposure),
		reservations: make(map[string]reservation),
		day:          time.Time{},
		dailyPnl:     0,
		equity:       0,
		peak:         0,
	}
}

// rollover resets the daily accumulator when now is on a new UTC day.
func (s *accountState) rollover(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.Equal(s.day) {
		return
	}

	s.day = day
	s.dailyPnl = 0
}

// expire drops reservations past their deadline.
func (s *accountState) expire(now time.Time) {
	for id, r := range s.reservations {
		if !now.Before(r.expiresAt) {
			delete(s.reservations, id)
		}
	}
}

func (s *accountState) exposure() float64 {
	total := 0.0
	for _, p := range s.positions {
		total += p.notional
	}

	return total
}

func (s *accountState) reserved() float64 {
	total := 0.0
	for _, r := range s.reservations {
		total += r.notional
	}

	return total
}

func (s *accountState) slots() int {
	return len(s.positions) + len(s.reservations)
}

// markEquity records the latest equity and raises the peak.
func (s *accountState) markEquity(equity float64) {
	s.equity = equity
	if equity > s.peak {
		s.peak = equity
	}
}

// drawdownPercentage is the decline from peak equity, in [0,100].
func (s *accountState) drawdownPercentage() float64 {
	if s.peak <= 0 || s.equity >= s.peak {
		return 0
	}

	return types.Clamp01((s.peak-s.equity)/s.peak) * 100
}

// dailyLossPercentage is today's loss relative to capital. Profitable days
// report zero.
func (s *accountState) dailyLossPercentage(capital float64) float64 {
	if s.dailyPnl >= 0 {
		return 0
	}

	if capital <= 0 {
		return 100
	}

	return -s.dailyPnl / capital * 100
}

// baseAssetShare is the fraction of open positions on exchange whose base
// asset matches symbol's.
func (s *accountState) baseAssetShare(exchange, symbol string) float64 {
	if len(s.positions) == 0 {
		return 0
	}

	base := types.BaseAsset(symbol)
	matching := 0

	for _, p := range s.positions {
		if p.exchange == exchange && types.BaseAsset(p.symbol) == base {
			matching++
		}
	}

	return float64(matching) / float64(len(s.positions))
}

// openPosition returns the tracked position of strategy on exchange/symbol.
func (s *accountState) openPosition(strategyID, exchange, symbol string) (string, exposure, bool) {
	for id, p := range s.positions {
		if p.strategyID == strategyID && p.exchange == exchange && p.symbol == symbol {
			return id, p, true
		}
	}

	return "", exposure{}, false
}

func exposureOf(position types.Position) exposure {
	return exposure{
		strategyID: position.StrategyID,
		exchange:   position.Exchange,
		symbol:     position.Symbol,
		side:       position.Side,
		quantity:   position.Quantity,
		notional:   position.Notional(),
	}
}
