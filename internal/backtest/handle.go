package backtest

import "sync/atomic"

// Handle lets another goroutine stop a running backtest. The engine checks
// it once per candle.
type Handle struct {
	running atomic.Bool
}

// NewHandle returns a handle for a run that has not been cancelled.
func NewHandle() *Handle {
	h := &Handle{running: atomic.Bool{}}
	h.running.Store(true)

	return h
}

// Cancel asks the run to stop at the next candle.
func (h *Handle) Cancel() {
	h.running.Store(false)
}

// Cancelled reports whether Cancel was called. A nil handle is never cancelled.
func (h *Handle) Cancelled() bool {
	if h == nil {
		return false
	}

	return !h.running.Load()
}
