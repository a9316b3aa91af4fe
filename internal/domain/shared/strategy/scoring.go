package strategy

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ScoringWeights weights the composite candidate score
type ScoringWeights struct {
	Margin   decimal.Decimal `json:"margin"`
	Profit   decimal.Decimal `json:"profit"`
	Platform decimal.Decimal `json:"platform"`
}

// DefaultScoringWeights returns the default weights: margin 0.5, profit 0.3, platform 0.2
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Margin:   decimal.NewFromFloat(0.5),
		Profit:   decimal.NewFromFloat(0.3),
		Platform: decimal.NewFromFloat(0.2),
	}
}

// Validate checks that weights are non-negative and not all zero
func (w ScoringWeights) Validate() error {
	if w.Margin.IsNegative() || w.Profit.IsNegative() || w.Platform.IsNegative() {
		return errors.New("scoring weights cannot be negative")
	}
	if w.Margin.Add(w.Profit).Add(w.Platform).IsZero() {
		return errors.New("at least one scoring weight must be positive")
	}
	return nil
}

// ScoringInput is a candidate that survived every hard constraint
type ScoringInput struct {
	Key          string
	Platform     string
	AccountID    string
	ProfitMargin decimal.Decimal
	// ProfitAmount is expressed in the source currency so candidates are comparable
	ProfitAmount decimal.Decimal
	Preference   decimal.Decimal
	FeeRate      decimal.Decimal
}

// ScoredCandidate is a ranked ScoringInput
type ScoredCandidate struct {
	ScoringInput
	Score decimal.Decimal
	Rank  int
}

// ScoringStrategy ranks surviving candidates, best first
type ScoringStrategy interface {
	Strategy
	Rank(inputs []ScoringInput) []ScoredCandidate
	Weights() ScoringWeights
}
