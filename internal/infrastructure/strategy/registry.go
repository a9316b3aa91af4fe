// Package strategy wires the pricing, constraint and scoring strategies used
// by the price solver and the listing scorer.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations. Constraints keep their
// registration order, which is the order they are evaluated in.
type StrategyRegistry struct {
	mu                 sync.RWMutex
	pricingStrategies  map[string]strategy.PricingStrategy
	scoringStrategies  map[string]strategy.ScoringStrategy
	constraints        []strategy.ConstraintStrategy
	disabledConstraint map[string]bool
	defaults           map[strategy.StrategyType]string
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		pricingStrategies:  make(map[string]strategy.PricingStrategy),
		scoringStrategies:  make(map[string]strategy.ScoringStrategy),
		disabledConstraint: make(map[string]bool),
		defaults:           make(map[strategy.StrategyType]string),
	}
}

// RegisterPricingStrategy registers a pricing strategy
func (r *StrategyRegistry) RegisterPricingStrategy(s strategy.PricingStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.pricingStrategies[name]; exists {
		return fmt.Errorf("%w: pricing strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.pricingStrategies[name] = s
	return nil
}

// GetPricingStrategy returns a pricing strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetPricingStrategy(name string) (strategy.PricingStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if name = r.defaults[strategy.StrategyTypePricing]; name == "" {
			return nil, fmt.Errorf("%w: no default pricing strategy set", shared.ErrNotFound)
		}
	}
	s, exists := r.pricingStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: pricing strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// RegisterScoringStrategy registers a scoring strategy
func (r *StrategyRegistry) RegisterScoringStrategy(s strategy.ScoringStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.scoringStrategies[name]; exists {
		return fmt.Errorf("%w: scoring strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.scoringStrategies[name] = s
	return nil
}

// GetScoringStrategy returns a scoring strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetScoringStrategy(name string) (strategy.ScoringStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if name = r.defaults[strategy.StrategyTypeScoring]; name == "" {
			return nil, fmt.Errorf("%w: no default scoring strategy set", shared.ErrNotFound)
		}
	}
	s, exists := r.scoringStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: scoring strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// RegisterConstraint appends a constraint to the evaluation chain
func (r *StrategyRegistry) RegisterConstraint(c strategy.ConstraintStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.constraints {
		if existing.Name() == c.Name() {
			return fmt.Errorf("%w: constraint '%s' already registered", shared.ErrAlreadyExists, c.Name())
		}
	}
	r.constraints = append(r.constraints, c)
	return nil
}

// DisableConstraint keeps a constraint registered but skips it in Constraints
func (r *StrategyRegistry) DisableConstraint(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRegisteredLocked(strategy.StrategyTypeConstraint, name) {
		return fmt.Errorf("%w: constraint '%s' not found", shared.ErrNotFound, name)
	}
	r.disabledConstraint[name] = true
	return nil
}

// Constraints returns the enabled constraints in evaluation order
func (r *StrategyRegistry) Constraints() []strategy.ConstraintStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]strategy.ConstraintStrategy, 0, len(r.constraints))
	for _, c := range r.constraints {
		if !r.disabledConstraint[c.Name()] {
			out = append(out, c)
		}
	}
	return out
}

// List returns the registered names of one strategy type. Constraint names
// keep evaluation order; the others are sorted.
func (r *StrategyRegistry) List(strategyType strategy.StrategyType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	switch strategyType {
	case strategy.StrategyTypePricing:
		for name := range r.pricingStrategies {
			names = append(names, name)
		}
	case strategy.StrategyTypeScoring:
		for name := range r.scoringStrategies {
			names = append(names, name)
		}
	case strategy.StrategyTypeConstraint:
		for _, c := range r.constraints {
			names = append(names, c.Name())
		}
		return names
	}
	sort.Strings(names)
	return names
}

// SetDefault sets the default strategy for a type. Constraints have no default.
func (r *StrategyRegistry) SetDefault(strategyType strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strategyType == strategy.StrategyTypeConstraint {
		return fmt.Errorf("%w: constraints are a chain and have no default", shared.ErrInvalidInput)
	}
	if !r.isRegisteredLocked(strategyType, name) {
		return fmt.Errorf("%w: %s strategy '%s' not found", shared.ErrNotFound, strategyType, name)
	}
	r.defaults[strategyType] = name
	return nil
}

// GetDefault returns the default strategy name for a type
func (r *StrategyRegistry) GetDefault(strategyType strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType]
}

// IsRegistered reports whether a strategy of the given type and name exists
func (r *StrategyRegistry) IsRegistered(strategyType strategy.StrategyType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRegisteredLocked(strategyType, name)
}

func (r *StrategyRegistry) isRegisteredLocked(strategyType strategy.StrategyType, name string) bool {
	switch strategyType {
	case strategy.StrategyTypePricing:
		_, ok := r.pricingStrategies[name]
		return ok
	case strategy.StrategyTypeScoring:
		_, ok := r.scoringStrategies[name]
		return ok
	case strategy.StrategyTypeConstraint:
		for _, c := range r.constraints {
			if c.Name() == name {
				return true
			}
		}
	}
	return false
}

// Stats returns the number of registered strategies per type
func (r *StrategyRegistry) Stats() map[strategy.StrategyType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[strategy.StrategyType]int{
		strategy.StrategyTypePricing:    len(r.pricingStrategies),
		strategy.StrategyTypeConstraint: len(r.constraints),
		strategy.StrategyTypeScoring:    len(r.scoringStrategies),
	}
}
