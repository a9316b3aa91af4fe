// Package strategy holds the pluggable steps of candidate evaluation: a pricing
// strategy solves the listing price, constraint strategies veto candidates and a
// scoring strategy ranks the survivors.
package strategy

// StrategyType is the pipeline step a strategy plugs into
type StrategyType string

const (
	StrategyTypePricing    StrategyType = "pricing"
	StrategyTypeConstraint StrategyType = "constraint"
	StrategyTypeScoring    StrategyType = "scoring"
)

func (t StrategyType) String() string { return string(t) }

// IsValid reports whether t is one of the evaluation steps
func (t StrategyType) IsValid() bool {
	for _, known := range AllStrategyTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// AllStrategyTypes lists the steps in evaluation order
func AllStrategyTypes() []StrategyType {
	return []StrategyType{StrategyTypePricing, StrategyTypeConstraint, StrategyTypeScoring}
}

// Strategy is implemented by every registered strategy
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy carries the identity fields; embed it in concrete strategies
type BaseStrategy struct {
	name, description string
	kind              StrategyType
}

// NewBaseStrategy creates a new BaseStrategy
func NewBaseStrategy(name string, kind StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, kind: kind, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.kind }
func (s BaseStrategy) Description() string { return s.description }
