package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExecutionQueueRepository implements listing.ExecutionQueueRepository.
// Every status change is a conditional UPDATE judged by RowsAffected.
type GormExecutionQueueRepository struct {
	db *gorm.DB
}

// NewGormExecutionQueueRepository creates a new GormExecutionQueueRepository
func NewGormExecutionQueueRepository(db *gorm.DB) *GormExecutionQueueRepository {
	return &GormExecutionQueueRepository{db: db}
}

// WithTx returns a repository bound to a transaction
func (r *GormExecutionQueueRepository) WithTx(tx *gorm.DB) *GormExecutionQueueRepository {
	return &GormExecutionQueueRepository{db: tx}
}

// Ensure inserts the item unless one exists for its key, then returns the stored item
func (r *GormExecutionQueueRepository) Ensure(ctx context.Context, item *listing.ExecutionQueueItem) (*listing.ExecutionQueueItem, error) {
	model := &models.ExecutionQueueItemModel{}
	if err := model.FromDomain(item); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}, {Name: "platform"}, {Name: "account_id"}},
		DoNothing: true,
	}).Create(model).Error; err != nil {
		return nil, err
	}
	return r.FindByKey(ctx, listing.QueueKey{SKU: item.SKU, Platform: item.Platform, AccountID: item.AccountID})
}

// Claim flips the item to in_flight if its status is in `from`
func (r *GormExecutionQueueRepository) Claim(ctx context.Context, id uuid.UUID, from []listing.QueueStatus, now time.Time) (bool, error) {
	if err := listing.ValidateQueueTransition(from, listing.QueueStatusInFlight); err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(&models.ExecutionQueueItemModel{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     listing.QueueStatusInFlight,
			"claimed_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetListingID records the listing id on an item that is still in_flight
func (r *GormExecutionQueueRepository) SetListingID(ctx context.Context, id uuid.UUID, listingID string) error {
	return r.applyOutcome(ctx, id, map[string]any{
		"listing_id": listingID,
		"updated_at": time.Now().UTC(),
	})
}

// FindByKey returns the item for a (sku, platform, account) key
func (r *GormExecutionQueueRepository) FindByKey(ctx context.Context, key listing.QueueKey) (*listing.ExecutionQueueItem, error) {
	var model models.ExecutionQueueItemModel
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND platform = ? AND account_id = ?", key.SKU, key.Platform, key.AccountID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns retry_pending items due at or before now, most overdue first
func (r *GormExecutionQueueRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]listing.ExecutionQueueItem, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", listing.QueueStatusRetryPending, now).
		Order("next_retry_at ASC")
	return r.find(query, limit)
}

// FindStale returns in_flight items claimed before olderThan
func (r *GormExecutionQueueRepository) FindStale(ctx context.Context, olderThan time.Time, limit int) ([]listing.ExecutionQueueItem, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND claimed_at < ?", listing.QueueStatusInFlight, olderThan).
		Order("claimed_at ASC")
	return r.find(query, limit)
}

func (r *GormExecutionQueueRepository) find(query *gorm.DB, limit int) ([]listing.ExecutionQueueItem, error) {
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.ExecutionQueueItemModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]listing.ExecutionQueueItem, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountByStatus returns the number of items per status
func (r *GormExecutionQueueRepository) CountByStatus(ctx context.Context) (map[listing.QueueStatus]int64, error) {
	var rows []struct {
		Status listing.QueueStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.ExecutionQueueItemModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[listing.QueueStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// applyOutcome writes the terminal fields of an attempt. The item must still be in_flight.
func (r *GormExecutionQueueRepository) applyOutcome(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.ExecutionQueueItemModel{}).
		Where("id = ? AND status = ?", id, listing.QueueStatusInFlight).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.WrapError(shared.ErrConcurrencyConflict, "queue item %s is no longer in flight", id)
	}
	return nil
}

var _ listing.ExecutionQueueRepository = (*GormExecutionQueueRepository)(nil)
