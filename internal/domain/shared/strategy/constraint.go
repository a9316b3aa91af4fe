package strategy

import (
	"github.com/shopspring/decimal"
)

// ConstraintInput is the view of a priced candidate that hard constraints inspect
type ConstraintInput struct {
	SKU          string
	Title        string
	Brand        string
	Category     string
	Keywords     []string
	Platform     string
	AccountID    string
	CandidateKey string
	ListingPrice decimal.Decimal
	ProfitAmount decimal.Decimal
	ProfitMargin decimal.Decimal
	// Zero means unbounded
	MinListingPrice decimal.Decimal
	MaxListingPrice decimal.Decimal
	// ReservedBy is the candidate key that currently holds the inventory, if any
	ReservedBy string
}

// ConstraintResult is the outcome of one constraint for one candidate
type ConstraintResult struct {
	Constraint string `json:"constraint"`
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason,omitempty"`
}

// ConstraintStrategy is a hard filter applied before scoring
type ConstraintStrategy interface {
	Strategy
	Evaluate(in ConstraintInput) ConstraintResult
}

// EvaluateAll runs every constraint in order and reports whether all passed.
// All constraints run so the audit trail shows every failure, not just the first.
func EvaluateAll(constraints []ConstraintStrategy, in ConstraintInput) ([]ConstraintResult, bool) {
	results := make([]ConstraintResult, 0, len(constraints))
	passed := true
	for _, c := range constraints {
		r := c.Evaluate(in)
		if !r.Passed {
			passed = false
		}
		results = append(results, r)
	}
	return results, passed
}
