package persistence

import (
	"context"
	"errors"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tariffScale matches the column's decimal(10,6)
const tariffScale = 6

var rateTableUpsertColumns = []string{
	"weight_ceiling", "price_min", "price_max", "tariff_rate", "base_rate",
	"markup", "display_cost", "currency", "generated_at",
}

// GormRateTableRepository implements logistics.RateTableRepository
type GormRateTableRepository struct {
	db *gorm.DB
}

// NewGormRateTableRepository creates a new GormRateTableRepository
func NewGormRateTableRepository(db *gorm.DB) *GormRateTableRepository {
	return &GormRateTableRepository{db: db}
}

// Upsert writes one row keyed by (name, service, destination, weight band)
func (r *GormRateTableRepository) Upsert(ctx context.Context, row *logistics.RateTableRow) error {
	model := &models.RateTableRowModel{}
	model.FromDomain(row)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "name"}, {Name: "service_code"}, {Name: "destination"}, {Name: "weight_band"},
		},
		DoUpdates: clause.AssignmentColumns(rateTableUpsertColumns),
	}).Create(model).Error
}

// FindDisplayCost returns the display cost of the row whose tariff matches and whose
// price band covers the lookup. Adjacent bands share their boundary, so the lower band wins a tie.
func (r *GormRateTableRepository) FindDisplayCost(ctx context.Context, lookup logistics.RateTableLookup) (decimal.Decimal, error) {
	var model models.RateTableRowModel
	err := r.db.WithContext(ctx).
		Where("service_code = ? AND destination = ? AND weight_band = ?",
			lookup.ServiceCode, logistics.NormalizeCountry(lookup.Destination), lookup.WeightBand).
		Where("tariff_rate = ?", lookup.TariffRate.Round(tariffScale)).
		Where("price_min <= ? AND price_max >= ?", lookup.Price, lookup.Price).
		Order("price_min ASC").Order("generated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, shared.ErrNotFound
		}
		return decimal.Zero, err
	}
	return model.DisplayCost, nil
}

// CountByService returns the number of rows stored for a service and destination
func (r *GormRateTableRepository) CountByService(ctx context.Context, serviceCode, destination string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RateTableRowModel{}).
		Where("service_code = ? AND destination = ?", serviceCode, logistics.NormalizeCountry(destination)).
		Count(&count).Error
	return count, err
}

var _ logistics.RateTableRepository = (*GormRateTableRepository)(nil)
