package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productUpsertColumns are overwritten when Save hits an existing SKU
var productUpsertColumns = []string{
	"title", "brand", "category", "keywords",
	"declared_value", "weight_grams", "length_cm", "width_cm", "height_cm",
	"hs_code", "origin_country", "acquisition_cost", "source_currency",
	"estimated_duty_rate", "stock", "reserved_by",
	"status", "listing_id", "listed_platform", "listed_account_id", "updated_at",
}

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx returns a repository bound to a transaction
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: tx}
}

// FindBySKU finds a product by SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("sku = ?", strings.TrimSpace(sku)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFilter returns products matching the filter, oldest first
func (r *GormProductRepository) FindByFilter(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.MinStock > 0 {
		query = query.Where("stock >= ?", filter.MinStock)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.ProductModel
	if err := query.Order("created_at ASC").Order("sku ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// Save creates a product or overwrites the one with the same SKU
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	if product.IsNew() {
		product.BaseEntity = shared.NewBaseEntity()
	}
	product.Touch()
	model := models.ProductModelFromDomain(product)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(productUpsertColumns),
	}).Create(model).Error
}

// TransitionStatus moves the product to `to` only if its status is in `from`
func (r *GormProductRepository) TransitionStatus(ctx context.Context, sku string, from []catalog.ProductStatus, to catalog.ProductStatus) (bool, error) {
	if err := catalog.ValidateTransition(from, to); err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("sku = ? AND status IN ?", sku, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateAcquisitionCost changes the cost basis of a product
func (r *GormProductRepository) UpdateAcquisitionCost(ctx context.Context, sku string, cost decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("sku = ?", sku).
		Updates(map[string]any{
			"acquisition_cost": cost,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReleaseStale moves products stuck in `from` since before olderThan to `to`
func (r *GormProductRepository) ReleaseStale(ctx context.Context, from, to catalog.ProductStatus, olderThan time.Time) (int64, error) {
	if err := catalog.ValidateTransition([]catalog.ProductStatus{from}, to); err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("status = ? AND updated_at < ?", from, olderThan).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
