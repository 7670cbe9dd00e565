package advisor

import (
	"sync"
	"time"

	"github.com/rxtech-lab/autotrader/internal/types"
)

// HistoryEntry is one recorded decision.
type HistoryEntry struct {
	Symbol   string         `json:"symbol"`
	Exchange string         `json:"exchange"`
	Decision types.Decision `json:"decision"`
	At       time.Time      `json:"at"`
}

// History keeps the most recent decisions, at most capacity of them and
// none older than ttl.
type History struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  []HistoryEntry
	now      func() time.Time
}

// NewHistory creates an empty history.
func NewHistory(capacity int, ttl time.Duration) *History {
	return &History{
		mu:       sync.Mutex{},
		capacity: capacity,
		ttl:      ttl,
		entries:  make([]HistoryEntry, 0, capacity),
		now:      time.Now,
	}
}

// Add records a decision, dropping the oldest entry when full.
func (h *History) Add(exchange, symbol string, decision types.Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.evict()

	if len(h.entries) >= h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity+1:]
	}

	h.entries = append(h.entries, HistoryEntry{
		Symbol:   symbol,
		Exchange: exchange,
		Decision: decision,
		At:       h.now(),
	})
}

// Recent returns up to limit live entries for symbol, newest first. An
// empty symbol matches every entry.
func (h *History) Recent(symbol string, limit int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.evict()

	out := make([]HistoryEntry, 0)

	for i := len(h.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if symbol == "" || h.entries[i].Symbol == symbol {
			out = append(out, h.entries[i])
		}
	}

	return out
}

// Len returns the number of live entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.evict()

	return len(h.entries)
}

// evict drops expired entries; entries are in insertion order.
func (h *History) evict() {
	cutoff := h.now().Add(-h.ttl)
	keep := 0

	for keep < len(h.entries) && h.entries[keep].At.Before(cutoff) {
		keep++
	}

	if keep > 0 {
		h.entries = append(h.entries[:0], h.entries[keep:]...)
	}
}
