package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var shippingServiceUpsertColumns = []string{
	"carrier", "active", "destinations", "currency", "unit", "band_size", "band_count",
	"signature_fee", "signature_threshold", "insurance_rate", "insurance_threshold",
	"volumetric_divisor", "updated_at",
}

// GormShippingRepository implements logistics.ShippingRepository
type GormShippingRepository struct {
	db *gorm.DB
}

// NewGormShippingRepository creates a new GormShippingRepository
func NewGormShippingRepository(db *gorm.DB) *GormShippingRepository {
	return &GormShippingRepository{db: db}
}

// FindServices returns every service, active or not, that lists the destination.
// The service table is small, so destinations are matched after loading to stay
// portable across JSON column dialects.
func (r *GormShippingRepository) FindServices(ctx context.Context, destination string) ([]logistics.ShippingService, error) {
	var rows []models.ShippingServiceModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	var out []logistics.ShippingService
	for i := range rows {
		svc := rows[i].ToDomain()
		if svc.ServesDestination(destination) {
			out = append(out, *svc)
		}
	}
	return out, nil
}

// FindService finds a service by code
func (r *GormShippingRepository) FindService(ctx context.Context, code string) (*logistics.ShippingService, error) {
	var model models.ShippingServiceModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRate returns the base rate of one band
func (r *GormShippingRepository) FindRate(ctx context.Context, serviceCode, destination string, band int) (*logistics.ShippingRateEntry, error) {
	var model models.ShippingRateModel
	if err := r.db.WithContext(ctx).
		Where("service_code = ? AND destination = ? AND weight_band = ?",
			serviceCode, logistics.NormalizeCountry(destination), band).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	entry := model.ToDomain()
	return &entry, nil
}

// ListRates returns every band rate of a service and destination, lightest first
func (r *GormShippingRepository) ListRates(ctx context.Context, serviceCode, destination string) ([]logistics.ShippingRateEntry, error) {
	var rows []models.ShippingRateModel
	if err := r.db.WithContext(ctx).
		Where("service_code = ? AND destination = ?", serviceCode, logistics.NormalizeCountry(destination)).
		Order("weight_band ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]logistics.ShippingRateEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SaveService creates or updates a service
func (r *GormShippingRepository) SaveService(ctx context.Context, service *logistics.ShippingService) error {
	if err := service.Validate(); err != nil {
		return err
	}
	model := &models.ShippingServiceModel{}
	model.FromDomain(service)
	now := time.Now().UTC()
	model.CreatedAt, model.UpdatedAt = now, now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns(shippingServiceUpsertColumns),
	}).Create(model).Error
}

// SaveRates upserts band rates in one statement
func (r *GormShippingRepository) SaveRates(ctx context.Context, rates []logistics.ShippingRateEntry) error {
	if len(rates) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.ShippingRateModel, len(rates))
	for i := range rates {
		if rates[i].WeightBand < 1 || rates[i].BaseRate.IsNegative() {
			return shared.WrapError(shared.ErrInvalidInput, "invalid rate for %s band %d", rates[i].ServiceCode, rates[i].WeightBand)
		}
		rows[i].FromDomain(&rates[i])
		rows[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_code"}, {Name: "destination"}, {Name: "weight_band"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_rate", "currency", "updated_at"}),
	}).Create(&rows).Error
}

var _ logistics.ShippingRepository = (*GormShippingRepository)(nil)
