package listing

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/shared"
)

// QueueStatus is the dispatch state of one (sku, platform, account) item
type QueueStatus string

const (
	QueueStatusPending      QueueStatus = "pending"
	QueueStatusInFlight     QueueStatus = "in_flight"
	QueueStatusRetryPending QueueStatus = "retry_pending"
	QueueStatusSuccess      QueueStatus = "success"
	QueueStatusFailed       QueueStatus = "failed"
)

var queueTransitions = map[QueueStatus][]QueueStatus{
	QueueStatusPending:      {QueueStatusInFlight},
	QueueStatusInFlight:     {QueueStatusSuccess, QueueStatusRetryPending, QueueStatusFailed},
	QueueStatusRetryPending: {QueueStatusInFlight},
	QueueStatusFailed:       {QueueStatusInFlight},
	QueueStatusSuccess:      {},
}

// IsValid returns true if the status is known
func (s QueueStatus) IsValid() bool {
	_, ok := queueTransitions[s]
	return ok
}

// CanTransitionTo checks if the status can transition to the target status
func (s QueueStatus) CanTransitionTo(target QueueStatus) bool {
	for _, next := range queueTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ClaimableStatuses returns the statuses a dispatcher may claim from.
// Failed items are only claimable through a manual retry.
func ClaimableStatuses(manual bool) []QueueStatus {
	if manual {
		return []QueueStatus{QueueStatusPending, QueueStatusRetryPending, QueueStatusFailed}
	}
	return []QueueStatus{QueueStatusPending, QueueStatusRetryPending}
}

// ExecutionQueueItem tracks dispatch attempts for one placement
type ExecutionQueueItem struct {
	ID          uuid.UUID
	SKU         string
	Platform    integration.PlatformCode
	AccountID   string
	Status      QueueStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ClaimedAt   *time.Time
	ListingID   string
	Payload     *integration.ListingPayload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewExecutionQueueItem creates a pending item
func NewExecutionQueueItem(sku string, platform integration.PlatformCode, accountID string, maxRetries int) *ExecutionQueueItem {
	now := time.Now().UTC()
	return &ExecutionQueueItem{
		ID:         uuid.New(),
		SKU:        sku,
		Platform:   platform,
		AccountID:  accountID,
		Status:     QueueStatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Key returns PLATFORM:account
func (i *ExecutionQueueItem) Key() string {
	return integration.CandidateKey(i.Platform, i.AccountID)
}

// Attempt returns the 1-based attempt number of the current dispatch
func (i *ExecutionQueueItem) Attempt() int {
	return i.RetryCount + 1
}

// FailureOutcome is the state an item moves to after a failed attempt
type FailureOutcome struct {
	Status      QueueStatus
	RetryCount  int
	NextRetryAt *time.Time
}

// Exhausted reports whether no automatic retry remains
func (o FailureOutcome) Exhausted() bool {
	return o.Status == QueueStatusFailed
}

// BackoffPolicy computes the retry schedule: base * 2^(n-1), capped at Max
type BackoffPolicy struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

// DefaultBackoffPolicy returns a one minute base, one hour cap and five retries
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Base: time.Minute, Max: time.Hour, MaxRetries: 5}
}

// Delay returns the wait before retry number n (1-based)
func (p BackoffPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if n > 40 {
		return p.Max
	}
	d := time.Duration(float64(p.Base) * math.Pow(2, float64(n-1)))
	if d <= 0 || (p.Max > 0 && d > p.Max) {
		return p.Max
	}
	return d
}

// NextRetryAt returns when retry number n becomes due
func (p BackoffPolicy) NextRetryAt(now time.Time, n int) time.Time {
	return now.Add(p.Delay(n))
}

// OnFailure increments the retry count and picks retry_pending or failed.
// A non-retryable error fails the item immediately.
func (p BackoffPolicy) OnFailure(item *ExecutionQueueItem, retryable bool, now time.Time) FailureOutcome {
	count := item.RetryCount + 1
	maxRetries := item.MaxRetries
	if maxRetries <= 0 {
		maxRetries = p.MaxRetries
	}
	if !retryable || count > maxRetries {
		return FailureOutcome{Status: QueueStatusFailed, RetryCount: count}
	}
	next := p.NextRetryAt(now, count)
	return FailureOutcome{Status: QueueStatusRetryPending, RetryCount: count, NextRetryAt: &next}
}

// ValidateQueueTransition rejects a conditional write with an illegal edge
func ValidateQueueTransition(from []QueueStatus, to QueueStatus) error {
	if len(from) == 0 {
		return shared.WrapError(shared.ErrInvalidTransition, "no source status for %s", to)
	}
	for _, f := range from {
		if !f.CanTransitionTo(to) {
			return shared.WrapError(shared.ErrInvalidTransition, "%s -> %s", f, to)
		}
	}
	return nil
}

// ExecutionOutcome classifies an ExecutionLog entry
type ExecutionOutcome string

const (
	OutcomeSuccess ExecutionOutcome = "success"
	OutcomeFailure ExecutionOutcome = "failure"
)

// ExecutionLog is an immutable record of one dispatch attempt
type ExecutionLog struct {
	ID         uuid.UUID
	QueueID    uuid.UUID
	SKU        string
	Platform   integration.PlatformCode
	AccountID  string
	Attempt    int
	Outcome    ExecutionOutcome
	ListingID  string
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}

// NewExecutionLog builds a log entry for an attempt on item
func NewExecutionLog(item *ExecutionQueueItem, outcome ExecutionOutcome, listingID string, err error, took time.Duration) *ExecutionLog {
	entry := &ExecutionLog{
		ID:         uuid.New(),
		QueueID:    item.ID,
		SKU:        item.SKU,
		Platform:   item.Platform,
		AccountID:  item.AccountID,
		Attempt:    item.Attempt(),
		Outcome:    outcome,
		ListingID:  listingID,
		DurationMs: took.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}
