package persistence

import (
	"context"
	"time"

	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormExecutionLogRepository implements listing.ExecutionLogRepository. Rows are never updated.
type GormExecutionLogRepository struct {
	db *gorm.DB
}

// NewGormExecutionLogRepository creates a new GormExecutionLogRepository
func NewGormExecutionLogRepository(db *gorm.DB) *GormExecutionLogRepository {
	return &GormExecutionLogRepository{db: db}
}

// WithTx returns a repository bound to a transaction
func (r *GormExecutionLogRepository) WithTx(tx *gorm.DB) *GormExecutionLogRepository {
	return &GormExecutionLogRepository{db: tx}
}

// Append inserts one attempt record
func (r *GormExecutionLogRepository) Append(ctx context.Context, entry *listing.ExecutionLog) error {
	model := &models.ExecutionLogModel{}
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// CountSince counts entries with the outcome created at or after since
func (r *GormExecutionLogRepository) CountSince(ctx context.Context, outcome listing.ExecutionOutcome, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExecutionLogModel{}).
		Where("outcome = ? AND created_at >= ?", outcome, since).
		Count(&count).Error
	return count, err
}

// ListBySKU returns every attempt for a SKU, oldest first
func (r *GormExecutionLogRepository) ListBySKU(ctx context.Context, sku string) ([]listing.ExecutionLog, error) {
	var rows []models.ExecutionLogModel
	if err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]listing.ExecutionLog, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ listing.ExecutionLogRepository = (*GormExecutionLogRepository)(nil)
