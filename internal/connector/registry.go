package connector

import (
	"context"
	"sort"
	"sync"

	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

type registryEntry struct {
	connector Connector
	refs      int
}

// Registry holds the configured venues and reference-counts their use.
// The first Acquire connects a venue, the last Release disconnects it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	logger  *logger.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		mu:      sync.Mutex{},
		entries: make(map[string]*registryEntry),
		logger:  log.Named("connectors"),
	}
}

// Register adds a venue. Names must be unique.
func (r *Registry) Register(c Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[c.Name()]; exists {
		return errors.Newf(errors.ErrCodeConnectorDuplicate, "connector %s already registered", c.Name())
	}

	r.entries[c.Name()] = &registryEntry{connector: c, refs: 0}

	return nil
}

// Get returns the venue without changing its reference count.
func (r *Registry) Get(name string) (Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConnectorNotFound, "connector %s not found", name)
	}

	return entry.connector, nil
}

// Names lists registered venues in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// All returns every registered venue.
func (r *Registry) All() []Connector {
	names := r.Names()
	connectors := make([]Connector, 0, len(names))

	for _, name := range names {
		if c, err := r.Get(name); err == nil {
			connectors = append(connectors, c)
		}
	}

	return connectors
}

// Acquire returns the venue, connecting it on first use.
func (r *Registry) Acquire(ctx context.Context, name string) (Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConnectorNotFound, "connector %s not found", name)
	}

	if entry.refs == 0 {
		if err := entry.connector.Connect(ctx); err != nil {
			return nil, err
		}

		r.logger.Info("connector connected", zap.String("exchange", name))
	}

	entry.refs++

	return entry.connector, nil
}

// Release drops one reference and disconnects the venue when none remain.
func (r *Registry) Release(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return errors.Newf(errors.ErrCodeConnectorNotFound, "connector %s not found", name)
	}

	if entry.refs == 0 {
		return nil
	}

	entry.refs--
	if entry.refs > 0 {
		return nil
	}

	r.logger.Info("connector released", zap.String("exchange", name))

	return entry.connector.Disconnect(ctx)
}

// RefCount returns the number of outstanding acquisitions of a venue.
func (r *Registry) RefCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[name]; ok {
		return entry.refs
	}

	return 0
}

// PaperName is the registry name of the simulated venue quoting from exchange.
func PaperName(exchange string) string {
	return "paper-" + exchange
}

// ForTrading returns the venue orders for exchange go to: its paper
// counterpart when paper is set, the live venue otherwise.
func (r *Registry) ForTrading(exchange string, paper bool) (Connector, error) {
	if paper {
		return r.Get(PaperName(exchange))
	}

	return r.Get(exchange)
}
