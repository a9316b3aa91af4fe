// Package listing holds the strategy decision and dispatch records of the
// listing pipeline.
package listing

import (
	"time"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// DecisionStatus is the outcome of a strategy run
type DecisionStatus string

const (
	DecisionStatusSuccess      DecisionStatus = "SUCCESS"
	DecisionStatusNoCandidates DecisionStatus = "NO_CANDIDATES"
	DecisionStatusError        DecisionStatus = "ERROR"
)

// IsValid returns true if the status is known
func (s DecisionStatus) IsValid() bool {
	switch s {
	case DecisionStatusSuccess, DecisionStatusNoCandidates, DecisionStatusError:
		return true
	default:
		return false
	}
}

// StrategyCandidate is one evaluated (platform, account) placement.
// Rejected candidates are kept for audit.
type StrategyCandidate struct {
	Platform    integration.PlatformCode    `json:"platform"`
	AccountID   string                      `json:"account_id"`
	Priced      bool                        `json:"priced"`
	Price       *strategy.PricingResult     `json:"price,omitempty"`
	ProfitSrc   decimal.Decimal             `json:"profit_source_currency"`
	FeeRate     decimal.Decimal             `json:"fee_rate"`
	Preference  decimal.Decimal             `json:"preference"`
	Constraints []strategy.ConstraintResult `json:"constraints,omitempty"`
	Score       decimal.Decimal             `json:"score"`
	Rank        int                         `json:"rank"`
	Rejected    bool                        `json:"rejected"`
	Reasons     []string                    `json:"reasons,omitempty"`
}

// Key returns PLATFORM:account
func (c *StrategyCandidate) Key() string {
	return integration.CandidateKey(c.Platform, c.AccountID)
}

// Reject marks the candidate as rejected with a reason
func (c *StrategyCandidate) Reject(reason string) {
	c.Rejected = true
	c.Reasons = append(c.Reasons, reason)
}

// StrategyDecision is the latest scorer outcome for a product. There is one per SKU;
// re-scoring overwrites it.
type StrategyDecision struct {
	shared.BaseEntity   `json:"-"`
	SKU                 string                   `json:"sku"`
	Status              DecisionStatus           `json:"status"`
	RecommendedPlatform integration.PlatformCode `json:"recommended_platform,omitempty"`
	RecommendedAccount  string                   `json:"recommended_account,omitempty"`
	Score               decimal.Decimal          `json:"score"`
	ListingPrice        decimal.Decimal          `json:"listing_price"`
	Currency            string                   `json:"currency,omitempty"`
	Candidates          []StrategyCandidate      `json:"candidates"`
	Error               string                   `json:"error,omitempty"`
	DecidedAt           time.Time                `json:"decided_at"`
}

// NewDecision builds a decision from ranked candidates. Survivors must already be
// ranked with Rank 1 as the winner.
func NewDecision(sku string, candidates []StrategyCandidate) *StrategyDecision {
	d := &StrategyDecision{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        sku,
		Status:     DecisionStatusNoCandidates,
		Candidates: candidates,
		DecidedAt:  time.Now().UTC(),
	}
	if w := d.Winner(); w != nil {
		d.Status = DecisionStatusSuccess
		d.RecommendedPlatform = w.Platform
		d.RecommendedAccount = w.AccountID
		d.Score = w.Score
		if w.Price != nil {
			d.ListingPrice = w.Price.ProductPrice
			d.Currency = w.Price.Currency
		}
	}
	return d
}

// NewErrorDecision records a scorer run that could not complete
func NewErrorDecision(sku string, err error, candidates []StrategyCandidate) *StrategyDecision {
	return &StrategyDecision{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        sku,
		Status:     DecisionStatusError,
		Candidates: candidates,
		Error:      err.Error(),
		DecidedAt:  time.Now().UTC(),
	}
}

// Winner returns the rank-1 surviving candidate, if any
func (d *StrategyDecision) Winner() *StrategyCandidate {
	for i := range d.Candidates {
		c := &d.Candidates[i]
		if !c.Rejected && c.Rank == 1 {
			return c
		}
	}
	return nil
}

// RecommendedKey returns the winning candidate key, empty unless SUCCESS
func (d *StrategyDecision) RecommendedKey() string {
	if d.Status != DecisionStatusSuccess {
		return ""
	}
	return integration.CandidateKey(d.RecommendedPlatform, d.RecommendedAccount)
}

// Reasons returns "KEY: reason" for every rejected candidate
func (d *StrategyDecision) Reasons() []string {
	var out []string
	for _, c := range d.Candidates {
		if !c.Rejected {
			continue
		}
		for _, r := range c.Reasons {
			out = append(out, c.Key()+": "+r)
		}
	}
	return out
}
