package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductFilter selects products for a batch run
type ProductFilter struct {
	Statuses []ProductStatus
	MinStock int
	Limit    int
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindBySKU returns shared.ErrNotFound when the SKU is unknown
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindByFilter returns products matching the filter, oldest first
	FindByFilter(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// TransitionStatus moves a product to `to` only if its current status is in `from`.
	// It is a single conditional write and returns false when another writer got there first.
	TransitionStatus(ctx context.Context, sku string, from []ProductStatus, to ProductStatus) (bool, error)

	// UpdateAcquisitionCost changes the cost basis of a product
	UpdateAcquisitionCost(ctx context.Context, sku string, cost decimal.Decimal) error

	// ReleaseStale moves products stuck in `from` since before `olderThan` back to `to`
	ReleaseStale(ctx context.Context, from, to ProductStatus, olderThan time.Time) (int64, error)
}
