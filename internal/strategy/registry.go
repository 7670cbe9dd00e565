package strategy

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/autotrader/internal/version"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Factory builds a strategy from its config and dependencies.
type Factory func(deps Dependencies) (Strategy, error)

// Definition registers one strategy implementation.
type Definition struct {
	Type        string
	Version     string
	Description string
	// Params is a value of the parameter struct, used for the JSON schema.
	Params  any
	Factory Factory
	// Backtestable is false for strategies that need live multi-venue data.
	Backtestable bool
}

type registered struct {
	definition Definition
	version    *semver.Version
}

// Info describes a registered implementation.
type Info struct {
	Type         string `json:"type" yaml:"type"`
	Version      string `json:"version" yaml:"version"`
	Description  string `json:"description" yaml:"description"`
	Backtestable bool   `json:"backtestable" yaml:"backtestable"`
}

// Registry maps strategy types to implementations. It is filled once at
// startup; lookups of unknown types fail fast.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]registered
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:          sync.RWMutex{},
		definitions: make(map[string]registered),
	}
}

// Register adds a definition. Types must be unique and versions valid semver.
func (r *Registry) Register(definition Definition) error {
	if definition.Type == "" || definition.Factory == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy definition requires a type and a factory")
	}

	v, err := version.Parse(definition.Version)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[definition.Type]; exists {
		return errors.Newf(errors.ErrCodeStrategyTypeDuplicate, "strategy type %s already registered", definition.Type)
	}

	r.definitions[definition.Type] = registered{definition: definition, version: v}

	return nil
}

// Lookup returns the definition for strategyType whose version satisfies
// constraint. An empty constraint accepts any version.
func (r *Registry) Lookup(strategyType, constraint string) (Definition, error) {
	r.mu.RLock()
	entry, ok := r.definitions[strategyType]
	r.mu.RUnlock()

	if !ok {
		return Definition{}, errors.Newf(errors.ErrCodeUnknownStrategyType, "unknown strategy type %s", strategyType)
	}

	if err := version.CheckConstraint(constraint, entry.version.String()); err != nil {
		return Definition{}, errors.Wrapf(errors.GetCode(err), err, "strategy type %s", strategyType)
	}

	return entry.definition, nil
}

// List describes every registered type, sorted by type.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.definitions))
	for _, entry := range r.definitions {
		infos = append(infos, Info{
			Type:         entry.definition.Type,
			Version:      entry.version.String(),
			Description:  entry.definition.Description,
			Backtestable: entry.definition.Backtestable,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })

	return infos
}

// Schema returns the JSON schema of strategyType's parameters.
func (r *Registry) Schema(strategyType string) (string, error) {
	definition, err := r.Lookup(strategyType, "")
	if err != nil {
		return "", err
	}

	if definition.Params == nil {
		return "{}", nil
	}

	return ToJSONSchema(definition.Params)
}

// ToJSONSchema converts a struct to a JSON schema.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
