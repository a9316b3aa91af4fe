package catalog

import (
	"strings"

	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus is the pipeline stage of a product
type ProductStatus string

const (
	ProductStatusPendingStrategy    ProductStatus = "pending_strategy"
	ProductStatusScoring            ProductStatus = "scoring"
	ProductStatusStrategyDetermined ProductStatus = "strategy_determined"
	ProductStatusNotListable        ProductStatus = "not_listable"
	ProductStatusInFlight           ProductStatus = "in_flight"
	ProductStatusRetryPending       ProductStatus = "retry_pending"
	ProductStatusListed             ProductStatus = "listed"
	ProductStatusFailed             ProductStatus = "failed"
)

// productTransitions is the closed set of legal status changes
var productTransitions = map[ProductStatus][]ProductStatus{
	ProductStatusPendingStrategy: {ProductStatusScoring},
	ProductStatusScoring: {
		ProductStatusStrategyDetermined,
		ProductStatusNotListable,
		ProductStatusPendingStrategy,
	},
	ProductStatusStrategyDetermined: {
		ProductStatusScoring,
		ProductStatusInFlight,
		ProductStatusPendingStrategy,
	},
	ProductStatusNotListable:  {ProductStatusScoring, ProductStatusPendingStrategy},
	ProductStatusInFlight:     {ProductStatusListed, ProductStatusRetryPending, ProductStatusFailed},
	ProductStatusRetryPending: {ProductStatusInFlight},
	ProductStatusFailed:       {ProductStatusInFlight, ProductStatusPendingStrategy},
	ProductStatusListed:       {},
}

// String returns the string representation of the status
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known pipeline stage
func (s ProductStatus) IsValid() bool {
	_, ok := productTransitions[s]
	return ok
}

// CanTransitionTo checks if the status can transition to the target status
func (s ProductStatus) CanTransitionTo(target ProductStatus) bool {
	for _, next := range productTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Scorable reports whether the strategy scorer may claim a product in this status
func (s ProductStatus) Scorable() bool {
	return s.CanTransitionTo(ProductStatusScoring)
}

// ValidateTransition rejects a conditional write whose from-set contains an illegal edge
func ValidateTransition(from []ProductStatus, to ProductStatus) error {
	if len(from) == 0 {
		return shared.WrapError(shared.ErrInvalidTransition, "no source status for %s", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return shared.WrapError(shared.ErrInvalidTransition, "%s -> %s", f, to)
		}
	}
	return nil
}

// ScorableStatuses returns every status the scorer may claim from
func ScorableStatuses() []ProductStatus {
	return []ProductStatus{
		ProductStatusPendingStrategy,
		ProductStatusStrategyDetermined,
		ProductStatusNotListable,
	}
}

// Product is an acquired item waiting to be priced and placed on a marketplace
type Product struct {
	shared.BaseEntity
	SKU      string
	Title    string
	Brand    string
	Category string
	Keywords []string

	DeclaredValue   decimal.Decimal // customs value, source currency
	WeightGrams     decimal.Decimal
	LengthCm        decimal.Decimal
	WidthCm         decimal.Decimal
	HeightCm        decimal.Decimal
	HSCode          string
	OriginCountry   string
	AcquisitionCost decimal.Decimal
	SourceCurrency  string

	// EstimatedDutyRate is the fallback used when no verified duty rate exists
	EstimatedDutyRate decimal.Decimal
	Stock             int
	ReservedBy        string

	Status          ProductStatus
	ListingID       string
	ListedPlatform  string
	ListedAccountID string
}

// NewProduct creates a product in pending_strategy
func NewProduct(sku, title string, acquisitionCost, weightGrams decimal.Decimal) (*Product, error) {
	p := &Product{
		BaseEntity:      shared.NewBaseEntity(),
		SKU:             strings.TrimSpace(sku),
		Title:           strings.TrimSpace(title),
		AcquisitionCost: acquisitionCost,
		WeightGrams:     weightGrams,
		DeclaredValue:   acquisitionCost,
		SourceCurrency:  "JPY",
		Status:          ProductStatusPendingStrategy,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields pricing depends on
func (p *Product) Validate() error {
	if p.SKU == "" {
		return shared.WrapError(shared.ErrInvalidInput, "sku is required")
	}
	if len(p.SKU) > 64 {
		return shared.WrapError(shared.ErrInvalidInput, "sku cannot exceed 64 characters")
	}
	if p.AcquisitionCost.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "acquisition cost cannot be negative")
	}
	if !p.WeightGrams.IsPositive() {
		return shared.WrapError(shared.ErrInvalidInput, "weight must be positive")
	}
	if p.DeclaredValue.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "declared value cannot be negative")
	}
	if p.Status != "" && !p.Status.IsValid() {
		return shared.WrapError(shared.ErrInvalidInput, "unknown status %q", p.Status)
	}
	return nil
}

// WeightKg returns the weight in kilograms
func (p *Product) WeightKg() decimal.Decimal {
	return p.WeightGrams.Div(decimal.NewFromInt(1000))
}

// HasStock reports whether at least min units are on hand
func (p *Product) HasStock(min int) bool {
	return p.Stock >= min
}
