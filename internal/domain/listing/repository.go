package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
)

// DecisionRepository stores the latest decision per SKU
type DecisionRepository interface {
	// Upsert overwrites the decision keyed by SKU
	Upsert(ctx context.Context, decision *StrategyDecision) error
	FindBySKU(ctx context.Context, sku string) (*StrategyDecision, error)
}

// QueueKey identifies an execution queue item
type QueueKey struct {
	SKU       string
	Platform  integration.PlatformCode
	AccountID string
}

// QueueStats summarizes the execution queue
type QueueStats struct {
	Depth          int64 `json:"depth"`
	Pending        int64 `json:"pending"`
	InFlight       int64 `json:"in_flight"`
	PendingRetry   int64 `json:"pending_retry"`
	Failed         int64 `json:"failed"`
	RecentSuccess  int64 `json:"recent_success"`
	RecentFailures int64 `json:"recent_failures"`
}

// ExecutionQueueRepository persists queue items. Claim is the only concurrency guard
// between dispatchers and must be a single conditional write.
type ExecutionQueueRepository interface {
	// Ensure inserts a pending item unless one already exists for the key and returns the stored item
	Ensure(ctx context.Context, item *ExecutionQueueItem) (*ExecutionQueueItem, error)

	// Claim flips the item to in_flight if its status is in `from`. Returns false if another
	// dispatcher already holds it.
	Claim(ctx context.Context, id uuid.UUID, from []QueueStatus, now time.Time) (bool, error)

	// SetListingID stores the marketplace listing id on an in_flight item ahead of the
	// success commit so a stale sweep can tell a created listing from an unknown outcome
	SetListingID(ctx context.Context, id uuid.UUID, listingID string) error

	// FindByKey returns shared.ErrNotFound when no item exists
	FindByKey(ctx context.Context, key QueueKey) (*ExecutionQueueItem, error)

	// FindDue returns retry_pending items whose next_retry_at is at or before now
	FindDue(ctx context.Context, now time.Time, limit int) ([]ExecutionQueueItem, error)

	// FindStale returns in_flight items claimed before olderThan
	FindStale(ctx context.Context, olderThan time.Time, limit int) ([]ExecutionQueueItem, error)

	// CountByStatus returns the number of items per status
	CountByStatus(ctx context.Context) (map[QueueStatus]int64, error)
}

// ExecutionLogRepository is append-only
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *ExecutionLog) error
	// CountSince returns the number of entries with the outcome created at or after since
	CountSince(ctx context.Context, outcome ExecutionOutcome, since time.Time) (int64, error)
	ListBySKU(ctx context.Context, sku string) ([]ExecutionLog, error)
}

// ExecutionRecorder commits the result of one attempt atomically across the queue item,
// the execution log and the product status.
type ExecutionRecorder interface {
	// RecordSuccess marks the item success, appends the log and moves the product
	// from in_flight to listed with the listing id
	RecordSuccess(ctx context.Context, item *ExecutionQueueItem, entry *ExecutionLog) error

	// RecordFailure applies the outcome to the item, appends the log and moves the product
	// from in_flight to the matching product status
	RecordFailure(ctx context.Context, item *ExecutionQueueItem, outcome FailureOutcome, entry *ExecutionLog) error
}

// ProductStatusFor maps a queue status to the product status that mirrors it
func ProductStatusFor(s QueueStatus) catalog.ProductStatus {
	switch s {
	case QueueStatusInFlight:
		return catalog.ProductStatusInFlight
	case QueueStatusRetryPending:
		return catalog.ProductStatusRetryPending
	case QueueStatusSuccess:
		return catalog.ProductStatusListed
	case QueueStatusFailed:
		return catalog.ProductStatusFailed
	default:
		return catalog.ProductStatusStrategyDetermined
	}
}
