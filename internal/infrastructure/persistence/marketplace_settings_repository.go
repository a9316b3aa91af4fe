package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var settingsUpsertColumns = []string{
	"country_code", "currency", "fee_rate", "payment_fee_rate", "fixed_fee",
	"ddp_required", "fx_rate", "preference", "min_listing_price", "max_listing_price",
	"active", "updated_at",
}

// GormMarketplaceSettingsRepository implements integration.MarketplaceSettingsRepository
type GormMarketplaceSettingsRepository struct {
	db *gorm.DB
}

// NewGormMarketplaceSettingsRepository creates a new GormMarketplaceSettingsRepository
func NewGormMarketplaceSettingsRepository(db *gorm.DB) *GormMarketplaceSettingsRepository {
	return &GormMarketplaceSettingsRepository{db: db}
}

// FindActive returns every active pair ordered by platform, account
func (r *GormMarketplaceSettingsRepository) FindActive(ctx context.Context) ([]integration.MarketplaceSettings, error) {
	var rows []models.MarketplaceSettingsModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("platform ASC").Order("account_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.MarketplaceSettings, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// FindByKey returns the settings of one pair
func (r *GormMarketplaceSettingsRepository) FindByKey(ctx context.Context, platform integration.PlatformCode, accountID string) (*integration.MarketplaceSettings, error) {
	var model models.MarketplaceSettingsModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND account_id = ?", platform, accountID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates settings
func (r *GormMarketplaceSettingsRepository) Save(ctx context.Context, settings *integration.MarketplaceSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	model := &models.MarketplaceSettingsModel{}
	model.FromDomain(settings)
	now := time.Now().UTC()
	model.CreatedAt, model.UpdatedAt = now, now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns(settingsUpsertColumns),
	}).Create(model).Error
}

var _ integration.MarketplaceSettingsRepository = (*GormMarketplaceSettingsRepository)(nil)
