package indicator

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// IndicatorRegistry manages all available indicators.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
	// Snapshot computes every registered indicator over candles. Indicators
	// without enough data are left out.
	Snapshot(candles []types.Candle) map[string]float64
}

// Registry manages all available indicators.
type Registry struct {
	indicators map[types.IndicatorType]Indicator
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates an empty indicator registry.
func NewIndicatorRegistry() *Registry {
	return &Registry{
		indicators: make(map[types.IndicatorType]Indicator),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry registers MA, EMA, RSI, ATR, MACD and Bollinger Bands
// with their default periods.
func NewDefaultRegistry() *Registry {
	r := NewIndicatorRegistry()

	for _, ind := range []Indicator{NewMA(), NewEMA(), NewRSI(), NewATR(), NewMACD(), NewBollingerBands()} {
		// names are distinct, registration cannot fail
		_ = r.RegisterIndicator(ind)
	}

	return r
}

// RegisterIndicator adds an indicator to the registry.
func (r *Registry) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *Registry) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns the registered indicator names in sorted order.
func (r *Registry) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *Registry) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeDataNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}

func (r *Registry) Snapshot(candles []types.Candle) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values := make(map[string]float64, len(r.indicators))

	for name, ind := range r.indicators {
		value, err := ind.Compute(candles)
		if err != nil {
			continue
		}

		values[string(name)] = value
	}

	return values
}

var _ IndicatorRegistry = (*Registry)(nil)
