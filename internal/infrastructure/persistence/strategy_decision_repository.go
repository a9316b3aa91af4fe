package persistence

import (
	"context"
	"errors"

	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var decisionUpsertColumns = []string{
	"status", "recommended_platform", "recommended_account", "score", "listing_price",
	"currency", "candidates", "error", "decided_at", "updated_at",
}

// GormDecisionRepository implements listing.DecisionRepository
type GormDecisionRepository struct {
	db *gorm.DB
}

// NewGormDecisionRepository creates a new GormDecisionRepository
func NewGormDecisionRepository(db *gorm.DB) *GormDecisionRepository {
	return &GormDecisionRepository{db: db}
}

// Upsert overwrites the decision stored for the SKU
func (r *GormDecisionRepository) Upsert(ctx context.Context, decision *listing.StrategyDecision) error {
	if decision.IsNew() {
		decision.BaseEntity = shared.NewBaseEntity()
	}
	decision.Touch()
	model := &models.StrategyDecisionModel{}
	model.FromDomain(decision)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(decisionUpsertColumns),
	}).Create(model).Error
}

// FindBySKU returns the latest decision for a SKU
func (r *GormDecisionRepository) FindBySKU(ctx context.Context, sku string) (*listing.StrategyDecision, error) {
	var model models.StrategyDecisionModel
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ listing.DecisionRepository = (*GormDecisionRepository)(nil)
