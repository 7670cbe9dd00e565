package strategy

import (
	"context"
	"sync"

	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"go.uber.org/zap"
)

// Observer receives every emitted signal.
type Observer interface {
	OnSignal(ctx context.Context, signal types.TradingSignal)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, signal types.TradingSignal)

func (f ObserverFunc) OnSignal(ctx context.Context, signal types.TradingSignal) {
	f(ctx, signal)
}

type subscription struct {
	name     string
	observer Observer
	signals  chan types.TradingSignal
	done     chan struct{}
}

// Dispatcher fans signals out to observers. Each observer has its own
// goroutine and bounded queue: delivery per observer is ordered, a slow
// observer only loses its own signals and a panicking one is isolated.
type Dispatcher struct {
	buffer int
	logger *logger.Logger

	mu     sync.RWMutex
	subs   map[string]*subscription
	closed bool
}

// NewDispatcher creates a dispatcher with a queue of buffer signals per observer.
func NewDispatcher(buffer int, log *logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}

	return &Dispatcher{
		buffer: buffer,
		logger: log.Named("dispatcher"),
		mu:     sync.RWMutex{},
		subs:   make(map[string]*subscription),
		closed: false,
	}
}

// Subscribe registers observer under name, replacing any previous one.
// The returned function unsubscribes and waits for queued signals to drain.
// After Close, Subscribe registers nothing and returns a no-op.
func (d *Dispatcher) Subscribe(name string, observer Observer) func() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return func() {}
	}

	sub := &subscription{
		name:     name,
		observer: observer,
		signals:  make(chan types.TradingSignal, d.buffer),
		done:     make(chan struct{}),
	}

	previous := d.subs[name]
	d.subs[name] = sub
	d.mu.Unlock()

	if previous != nil {
		close(previous.signals)
		<-previous.done
	}

	go d.deliver(sub)

	return func() {
		d.mu.Lock()
		current, ok := d.subs[name]
		if !ok || current != sub {
			d.mu.Unlock()

			return
		}

		delete(d.subs, name)
		d.mu.Unlock()

		close(sub.signals)
		<-sub.done
	}
}

func (d *Dispatcher) deliver(sub *subscription) {
	defer close(sub.done)

	for signal := range sub.signals {
		d.safeDeliver(sub, signal)
	}
}

func (d *Dispatcher) safeDeliver(sub *subscription, signal types.TradingSignal) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("signal observer panicked",
				zap.String("observer", sub.name),
				zap.String("signal_id", signal.ID),
				zap.Any("panic", r),
			)
		}
	}()

	sub.observer.OnSignal(context.Background(), signal)
}

// Publish queues signal for every observer without blocking.
func (d *Dispatcher) Publish(signal types.TradingSignal) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	for _, sub := range d.subs {
		select {
		case sub.signals <- signal:
		default:
			d.logger.Warn("observer queue full, signal dropped",
				zap.String("observer", sub.name),
				zap.String("signal_id", signal.ID),
			)
		}
	}
}

// Close stops delivery after draining every queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}

	d.closed = true
	subs := d.subs
	d.subs = make(map[string]*subscription)
	d.mu.Unlock()

	for _, sub := range subs {
		close(sub.signals)
		<-sub.done
	}
}
