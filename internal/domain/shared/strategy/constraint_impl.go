package strategy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func passed(name string) ConstraintResult {
	return ConstraintResult{Constraint: name, Passed: true}
}

func failed(name, format string, args ...any) ConstraintResult {
	return ConstraintResult{Constraint: name, Passed: false, Reason: fmt.Sprintf(format, args...)}
}

// BrandBlockConstraint rejects candidates whose brand or title matches a known rights holder
type BrandBlockConstraint struct {
	BaseStrategy
	brands []string
	terms  []string
}

// NewBrandBlockConstraint creates a brand/IP risk block.
// brands match the product brand exactly; terms match anywhere in the title.
func NewBrandBlockConstraint(brands, titleTerms []string) *BrandBlockConstraint {
	return &BrandBlockConstraint{
		BaseStrategy: NewBaseStrategy("brand_block", StrategyTypeConstraint,
			"Rejects products whose brand or title matches a blocked rights holder"),
		brands: normalizeTerms(brands),
		terms:  normalizeTerms(titleTerms),
	}
}

// Evaluate implements ConstraintStrategy
func (c *BrandBlockConstraint) Evaluate(in ConstraintInput) ConstraintResult {
	brand := strings.ToLower(strings.TrimSpace(in.Brand))
	for _, b := range c.brands {
		if brand == b {
			return failed(c.Name(), "brand %q is blocked", in.Brand)
		}
	}
	title := strings.ToLower(in.Title)
	for _, t := range c.terms {
		if strings.Contains(title, t) {
			return failed(c.Name(), "title matches blocked term %q", t)
		}
	}
	return passed(c.Name())
}

// MinProfitConstraint rejects candidates below a minimum margin or absolute profit
type MinProfitConstraint struct {
	BaseStrategy
	minMargin decimal.Decimal
	minProfit decimal.Decimal
}

// NewMinProfitConstraint creates a minimum profit threshold
func NewMinProfitConstraint(minMargin, minProfit decimal.Decimal) *MinProfitConstraint {
	return &MinProfitConstraint{
		BaseStrategy: NewBaseStrategy("min_profit", StrategyTypeConstraint,
			"Rejects candidates whose realized margin or profit is below the threshold"),
		minMargin: minMargin,
		minProfit: minProfit,
	}
}

// Evaluate implements ConstraintStrategy
func (c *MinProfitConstraint) Evaluate(in ConstraintInput) ConstraintResult {
	if in.ProfitMargin.LessThan(c.minMargin) {
		return failed(c.Name(), "margin %s below minimum %s", in.ProfitMargin.String(), c.minMargin.String())
	}
	if in.ProfitAmount.LessThan(c.minProfit) {
		return failed(c.Name(), "profit %s below minimum %s", in.ProfitAmount.StringFixed(2), c.minProfit.StringFixed(2))
	}
	return passed(c.Name())
}

// ExclusionConstraint rejects excluded categories and keywords
type ExclusionConstraint struct {
	BaseStrategy
	categories []string
	keywords   []string
}

// NewExclusionConstraint creates a category/keyword exclusion list
func NewExclusionConstraint(categories, keywords []string) *ExclusionConstraint {
	return &ExclusionConstraint{
		BaseStrategy: NewBaseStrategy("exclusion", StrategyTypeConstraint,
			"Rejects products in excluded categories or carrying excluded keywords"),
		categories: normalizeTerms(categories),
		keywords:   normalizeTerms(keywords),
	}
}

// Evaluate implements ConstraintStrategy
func (c *ExclusionConstraint) Evaluate(in ConstraintInput) ConstraintResult {
	category := strings.ToLower(strings.TrimSpace(in.Category))
	for _, cat := range c.categories {
		if category == cat {
			return failed(c.Name(), "category %q is excluded", in.Category)
		}
	}
	title := strings.ToLower(in.Title)
	productKeywords := normalizeTerms(in.Keywords)
	for _, kw := range c.keywords {
		if strings.Contains(title, kw) {
			return failed(c.Name(), "title contains excluded keyword %q", kw)
		}
		for _, pk := range productKeywords {
			if pk == kw {
				return failed(c.Name(), "keyword %q is excluded", kw)
			}
		}
	}
	return passed(c.Name())
}

// PriceRangeConstraint rejects listing prices outside the allowed window.
// Candidate-specific bounds take precedence over the global ones.
type PriceRangeConstraint struct {
	BaseStrategy
	globalMin decimal.Decimal
	globalMax decimal.Decimal
}

// NewPriceRangeConstraint creates a price-range bound; zero disables a side
func NewPriceRangeConstraint(globalMin, globalMax decimal.Decimal) *PriceRangeConstraint {
	return &PriceRangeConstraint{
		BaseStrategy: NewBaseStrategy("price_range", StrategyTypeConstraint,
			"Rejects listing prices outside the marketplace price window"),
		globalMin: globalMin,
		globalMax: globalMax,
	}
}

// Evaluate implements ConstraintStrategy
func (c *PriceRangeConstraint) Evaluate(in ConstraintInput) ConstraintResult {
	lo, hi := c.globalMin, c.globalMax
	if in.MinListingPrice.IsPositive() {
		lo = in.MinListingPrice
	}
	if in.MaxListingPrice.IsPositive() {
		hi = in.MaxListingPrice
	}
	if lo.IsPositive() && in.ListingPrice.LessThan(lo) {
		return failed(c.Name(), "price %s below minimum %s", in.ListingPrice.StringFixed(2), lo.StringFixed(2))
	}
	if hi.IsPositive() && in.ListingPrice.GreaterThan(hi) {
		return failed(c.Name(), "price %s above maximum %s", in.ListingPrice.StringFixed(2), hi.StringFixed(2))
	}
	return passed(c.Name())
}

// InventoryProtectionConstraint rejects candidates when the item is reserved by another placement
type InventoryProtectionConstraint struct {
	BaseStrategy
}

// NewInventoryProtectionConstraint creates the inventory protection check
func NewInventoryProtectionConstraint() *InventoryProtectionConstraint {
	return &InventoryProtectionConstraint{
		BaseStrategy: NewBaseStrategy("inventory_protection", StrategyTypeConstraint,
			"Rejects candidates when the item is already reserved elsewhere"),
	}
}

// Evaluate implements ConstraintStrategy
func (c *InventoryProtectionConstraint) Evaluate(in ConstraintInput) ConstraintResult {
	if in.ReservedBy != "" && in.ReservedBy != in.CandidateKey {
		return failed(c.Name(), "item reserved by %s", in.ReservedBy)
	}
	return passed(c.Name())
}
