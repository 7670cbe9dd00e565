// Package builtin registers the strategies shipped with the trader.
package builtin

import (
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/internal/strategy/arbitrage"
	"github.com/rxtech-lab/autotrader/internal/strategy/marketmaking"
	"github.com/rxtech-lab/autotrader/internal/strategy/trend"
)

// Definitions lists every built-in strategy.
func Definitions() []strategy.Definition {
	return []strategy.Definition{
		trend.Definition(),
		marketmaking.Definition(),
		arbitrage.TriangularDefinition(),
		arbitrage.CrossExchangeDefinition(),
	}
}

// Register adds the built-in strategies to registry.
func Register(registry *strategy.Registry) error {
	for _, definition := range Definitions() {
		if err := registry.Register(definition); err != nil {
			return err
		}
	}

	return nil
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() (*strategy.Registry, error) {
	registry := strategy.NewRegistry()
	if err := Register(registry); err != nil {
		return nil, err
	}

	return registry, nil
}
