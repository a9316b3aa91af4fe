package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/n3/backend/internal/domain/integration"
	"go.uber.org/zap"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e cacheEntry[T]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// SettingsCache is a read-through TTL cache in front of the marketplace
// settings store. Settings change rarely but are read on every price solve.
// Save writes through and drops every cached entry.
type SettingsCache struct {
	next   integration.MarketplaceSettingsRepository
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu     sync.RWMutex
	byKey  map[string]cacheEntry[integration.MarketplaceSettings]
	active *cacheEntry[[]integration.MarketplaceSettings]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSettingsCache wraps next. A non-positive ttl disables caching.
func NewSettingsCache(next integration.MarketplaceSettingsRepository, ttl time.Duration, logger *zap.Logger) *SettingsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsCache{
		next:   next,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.Named("settings_cache"),
		byKey:  make(map[string]cacheEntry[integration.MarketplaceSettings]),
	}
}

// FindActive returns a copy of the cached active list
func (c *SettingsCache) FindActive(ctx context.Context) ([]integration.MarketplaceSettings, error) {
	if c.ttl > 0 {
		c.mu.RLock()
		entry := c.active
		c.mu.RUnlock()
		if entry != nil && !entry.expired(c.now()) {
			c.hits.Add(1)
			return append([]integration.MarketplaceSettings(nil), entry.value...), nil
		}
	}
	c.misses.Add(1)

	list, err := c.next.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.active = &cacheEntry[[]integration.MarketplaceSettings]{
			value:     append([]integration.MarketplaceSettings(nil), list...),
			expiresAt: c.now().Add(c.ttl),
		}
		c.mu.Unlock()
	}
	return list, nil
}

// FindByKey returns a copy of the cached settings. Misses are not cached.
func (c *SettingsCache) FindByKey(ctx context.Context, platform integration.PlatformCode, accountID string) (*integration.MarketplaceSettings, error) {
	key := integration.CandidateKey(platform, accountID)
	if c.ttl > 0 {
		c.mu.RLock()
		entry, ok := c.byKey[key]
		c.mu.RUnlock()
		if ok && !entry.expired(c.now()) {
			c.hits.Add(1)
			s := entry.value
			return &s, nil
		}
	}
	c.misses.Add(1)

	settings, err := c.next.FindByKey(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.byKey[key] = cacheEntry[integration.MarketplaceSettings]{value: *settings, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return settings, nil
}

// Save writes through and invalidates the cache
func (c *SettingsCache) Save(ctx context.Context, settings *integration.MarketplaceSettings) error {
	if err := c.next.Save(ctx, settings); err != nil {
		return err
	}
	c.Invalidate()
	c.logger.Debug("Settings cache invalidated", zap.String("key", settings.Key()))
	return nil
}

// Invalidate drops every cached entry
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.byKey = make(map[string]cacheEntry[integration.MarketplaceSettings])
	c.active = nil
	c.mu.Unlock()
}

// Stats returns cumulative hit and miss counts
func (c *SettingsCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

var _ integration.MarketplaceSettingsRepository = (*SettingsCache)(nil)
