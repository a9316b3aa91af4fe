package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/infrastructure/persistence/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormExecutionRecorder implements listing.ExecutionRecorder. Each call commits the queue
// item, the execution log entry and the product status in one transaction.
type GormExecutionRecorder struct {
	db       *gorm.DB
	queue    *GormExecutionQueueRepository
	logs     *GormExecutionLogRepository
	products *GormProductRepository
}

// NewGormExecutionRecorder creates a new GormExecutionRecorder
func NewGormExecutionRecorder(db *gorm.DB) *GormExecutionRecorder {
	return &GormExecutionRecorder{
		db:       db,
		queue:    NewGormExecutionQueueRepository(db),
		logs:     NewGormExecutionLogRepository(db),
		products: NewGormProductRepository(db),
	}
}

// RecordSuccess marks the item success, appends the log and lists the product
func (r *GormExecutionRecorder) RecordSuccess(ctx context.Context, item *listing.ExecutionQueueItem, entry *listing.ExecutionLog) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":        listing.QueueStatusSuccess,
		"listing_id":    item.ListingID,
		"last_error":    "",
		"next_retry_at": nil,
		"updated_at":    now,
	}
	if err := withPayload(updates, item); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.queue.WithTx(tx).applyOutcome(ctx, item.ID, updates); err != nil {
			return err
		}
		if err := r.logs.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		return r.products.WithTx(tx).moveFromInFlight(ctx, item.SKU, catalog.ProductStatusListed, map[string]any{
			"listing_id":        item.ListingID,
			"listed_platform":   item.Platform.String(),
			"listed_account_id": item.AccountID,
		})
	})
}

// RecordFailure applies the failure outcome, appends the log and mirrors the
// outcome onto the product
func (r *GormExecutionRecorder) RecordFailure(ctx context.Context, item *listing.ExecutionQueueItem, outcome listing.FailureOutcome, entry *listing.ExecutionLog) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":        outcome.Status,
		"retry_count":   outcome.RetryCount,
		"next_retry_at": outcome.NextRetryAt,
		"last_error":    item.LastError,
		"updated_at":    now,
	}
	if err := withPayload(updates, item); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.queue.WithTx(tx).applyOutcome(ctx, item.ID, updates); err != nil {
			return err
		}
		if err := r.logs.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		return r.products.WithTx(tx).moveFromInFlight(ctx, item.SKU, listing.ProductStatusFor(outcome.Status), nil)
	})
}

func withPayload(updates map[string]any, item *listing.ExecutionQueueItem) error {
	if item.Payload == nil {
		return nil
	}
	raw, err := json.Marshal(item.Payload)
	if err != nil {
		return err
	}
	updates["payload"] = datatypes.JSON(raw)
	return nil
}

// moveFromInFlight updates a product that is still in_flight. A product another
// worker already moved is left alone.
func (r *GormProductRepository) moveFromInFlight(ctx context.Context, sku string, to catalog.ProductStatus, extra map[string]any) error {
	if err := catalog.ValidateTransition([]catalog.ProductStatus{catalog.ProductStatusInFlight}, to); err != nil {
		return err
	}
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		updates[k] = v
	}
	return r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("sku = ? AND status = ?", sku, catalog.ProductStatusInFlight).
		Updates(updates).Error
}

var _ listing.ExecutionRecorder = (*GormExecutionRecorder)(nil)
