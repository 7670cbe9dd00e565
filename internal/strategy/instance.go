package strategy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Status is a snapshot of one instance.
type Status struct {
	ID          string                    `json:"id" yaml:"id"`
	Name        string                    `json:"name" yaml:"name"`
	Type        string                    `json:"type" yaml:"type"`
	State       types.StrategyState       `json:"state" yaml:"state"`
	IsActive    bool                      `json:"is_active" yaml:"is_active"`
	Cycles      int                       `json:"cycles" yaml:"cycles"`
	Skipped     int                       `json:"skipped" yaml:"skipped"`
	LastRun     time.Time                 `json:"last_run" yaml:"last_run"`
	LastError   string                    `json:"last_error" yaml:"last_error"`
	Performance types.StrategyPerformance `json:"performance" yaml:"performance"`
}

// Instance is one configured strategy and its lifecycle:
// stopped -> starting -> running -> stopping -> stopped.
// At most one analysis cycle runs at a time.
type Instance struct {
	strategy   Strategy
	definition Definition

	mu        sync.Mutex
	config    types.StrategyConfig
	state     types.StrategyState
	entryID   cron.EntryID
	scheduled bool
	cycles    int
	skipped   int
	lastRun   time.Time
	lastError string

	inflight atomic.Bool
	cycle    sync.WaitGroup
}

func newInstance(config types.StrategyConfig, definition Definition, strategy Strategy) *Instance {
	return &Instance{
		strategy:   strategy,
		definition: definition,
		mu:         sync.Mutex{},
		config:     config,
		state:      types.StrategyStateStopped,
		entryID:    0,
		scheduled:  false,
		cycles:     0,
		skipped:    0,
		lastRun:    time.Time{},
		lastError:  "",
		inflight:   atomic.Bool{},
		cycle:      sync.WaitGroup{},
	}
}

// Config returns a copy of the current config.
func (i *Instance) Config() types.StrategyConfig {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.config
}

// Strategy returns the implementation.
func (i *Instance) Strategy() Strategy {
	return i.strategy
}

// State returns the lifecycle state.
func (i *Instance) State() types.StrategyState {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.state
}

// Status returns a snapshot of the instance.
func (i *Instance) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	return Status{
		ID:          i.config.ID,
		Name:        i.config.Name,
		Type:        i.config.Type,
		State:       i.state,
		IsActive:    i.config.IsActive,
		Cycles:      i.cycles,
		Skipped:     i.skipped,
		LastRun:     i.lastRun,
		LastError:   i.lastError,
		Performance: i.config.Performance,
	}
}

// transition moves from one of the from states to to.
func (i *Instance) transition(to types.StrategyState, from ...types.StrategyState) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, state := range from {
		if i.state == state {
			i.state = to

			return nil
		}
	}

	if i.state == types.StrategyStateStarting || i.state == types.StrategyStateStopping {
		return errors.Newf(errors.ErrCodeStrategyAlreadyStarting, "strategy %s is %s", i.config.ID, i.state)
	}

	return errors.Newf(errors.ErrCodeStrategyNotExecutable, "strategy %s cannot go from %s to %s", i.config.ID, i.state, to)
}

func (i *Instance) setState(state types.StrategyState) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.state = state
}

func (i *Instance) setActive(active bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.config.IsActive = active
}

func (i *Instance) setEntry(id cron.EntryID) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entryID = id
	i.scheduled = true
}

func (i *Instance) takeEntry() (cron.EntryID, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	id, ok := i.entryID, i.scheduled
	i.entryID = 0
	i.scheduled = false

	return id, ok
}

// begin claims the single-flight slot. It fails when a cycle is already in
// flight or the instance is not running.
func (i *Instance) begin() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != types.StrategyStateRunning {
		return false
	}

	if !i.inflight.CompareAndSwap(false, true) {
		i.skipped++

		return false
	}

	i.cycle.Add(1)

	return true
}

func (i *Instance) end(at time.Time, err error) {
	i.mu.Lock()
	i.cycles++
	i.lastRun = at

	if err != nil {
		i.lastError = err.Error()
	} else {
		i.lastError = ""
	}
	i.mu.Unlock()

	i.inflight.Store(false)
	i.cycle.Done()
}

// wait blocks until the cycle in flight, if any, finishes.
func (i *Instance) wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		i.cycle.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Instance) recordTrade(trade types.Trade) types.StrategyPerformance {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.config.Performance.Record(trade)

	return i.config.Performance
}
