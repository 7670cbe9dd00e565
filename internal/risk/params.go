package risk

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// ParameterStore resolves the risk parameters that apply to a strategy.
// Precedence is strategy override, inline strategy config, user override,
// global override, then defaults.
type ParameterStore struct {
	mu         sync.RWMutex
	repo       store.Repository
	defaults   types.RiskParameters
	global     optional.Option[types.RiskParameters]
	users      map[string]types.RiskParameters
	strategies map[string]types.RiskParameters
}

// NewParameterStore creates a store. repo may be nil, in which case
// overrides live in memory only.
func NewParameterStore(defaults types.RiskParameters, repo store.Repository) (*ParameterStore, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	return &ParameterStore{
		mu:         sync.RWMutex{},
		repo:       repo,
		defaults:   defaults,
		global:     optional.None[types.RiskParameters](),
		users:      make(map[string]types.RiskParameters),
		strategies: make(map[string]types.RiskParameters),
	}, nil
}

// Load replaces the cached overrides with the persisted ones.
func (s *ParameterStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	overrides, err := s.repo.ListRiskOverrides(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.global = optional.None[types.RiskParameters]()
	s.users = make(map[string]types.RiskParameters)
	s.strategies = make(map[string]types.RiskParameters)

	for _, override := range overrides {
		s.apply(override)
	}

	return nil
}

// Set validates, persists and caches an override.
func (s *ParameterStore) Set(ctx context.Context, override store.RiskOverride) error {
	if err := override.Parameters.Validate(); err != nil {
		return err
	}

	if override.Scope != store.RiskScopeGlobal && override.ScopeID == "" {
		return errors.Newf(errors.ErrCodeMissingParameter, "%s risk override requires a scope id", override.Scope)
	}

	if s.repo != nil {
		if err := s.repo.SaveRiskOverride(ctx, override); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(override)

	return nil
}

func (s *ParameterStore) apply(override store.RiskOverride) {
	switch override.Scope {
	case store.RiskScopeGlobal:
		s.global = optional.Some(override.Parameters)
	case store.RiskScopeUser:
		s.users[override.ScopeID] = override.Parameters
	case store.RiskScopeStrategy:
		s.strategies[override.ScopeID] = override.Parameters
	}
}

// Resolve returns a copy of the parameters in effect for cfg. The copy is
// the snapshot used for one validation from start to finish.
func (s *ParameterStore) Resolve(cfg types.StrategyConfig) types.RiskParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params, ok := s.strategies[cfg.ID]; ok {
		return params
	}

	if cfg.RiskParameters != nil {
		return *cfg.RiskParameters
	}

	if params, ok := s.users[cfg.OwnerID]; ok {
		return params
	}

	if s.global.IsSome() {
		return s.global.Unwrap()
	}

	return s.defaults
}
