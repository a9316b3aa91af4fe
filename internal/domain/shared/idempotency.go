package shared

import (
	"context"
	"time"
)

// DefaultEventTTL is how long a price-drop event ID blocks a redelivery
// when no webhook.idempotency_ttl is configured.
const DefaultEventTTL = 24 * time.Hour

// IdempotencyStore remembers inbound price-drop event IDs so a redelivered
// webhook re-prices a product once. Implementations are shared by every
// replica (Redis) or local to one process (in-memory).
type IdempotencyStore interface {
	// MarkProcessed claims eventID for ttl. It reports false when another
	// delivery already holds the claim.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Unmark drops the claim after a failed run so the sender's retry is accepted
	Unmark(ctx context.Context, eventID string) error
	Close() error
}
