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

// GormDutyRateRepository implements logistics.DutyRateRepository
type GormDutyRateRepository struct {
	db *gorm.DB
}

// NewGormDutyRateRepository creates a new GormDutyRateRepository
func NewGormDutyRateRepository(db *gorm.DB) *GormDutyRateRepository {
	return &GormDutyRateRepository{db: db}
}

// FindByKey looks up the verified duty for a normalized (hs_code, origin) pair.
// A store failure is reported as a dependency error so callers never mistake it for a miss.
func (r *GormDutyRateRepository) FindByKey(ctx context.Context, hsCode, originCountry string) (*logistics.DutyRate, error) {
	var model models.DutyRateModel
	err := r.db.WithContext(ctx).
		Where("hs_code = ? AND origin_country = ?",
			logistics.NormalizeHSCode(hsCode), logistics.NormalizeCountry(originCountry)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.Unavailable("duty rate store", err)
	}
	return model.ToDomain(), nil
}

// Save creates or replaces a duty rate
func (r *GormDutyRateRepository) Save(ctx context.Context, rate *logistics.DutyRate) error {
	if rate.HSCode == "" || rate.OriginCountry == "" {
		return shared.WrapError(shared.ErrInvalidInput, "hs_code and origin_country are required")
	}
	if rate.BaseRate.IsNegative() || rate.SurchargeRate.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "duty rates cannot be negative")
	}
	if rate.UpdatedAt.IsZero() {
		rate.UpdatedAt = time.Now().UTC()
	}
	model := &models.DutyRateModel{}
	model.FromDomain(rate)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hs_code"}, {Name: "origin_country"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_rate", "surcharge_rate", "surcharge_program", "updated_at"}),
	}).Create(model).Error
}

var _ logistics.DutyRateRepository = (*GormDutyRateRepository)(nil)
