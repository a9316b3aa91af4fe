package cache

import (
	"context"
	"fmt"

	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreOption configures NewIdempotencyStore
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger        *zap.Logger
	allowFallback bool
	keyPrefix     string
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store instead of failing startup. Default true.
func WithInMemoryFallback(allow bool) StoreOption {
	return func(o *storeOptions) { o.allowFallback = allow }
}

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) StoreOption {
	return func(o *storeOptions) { o.keyPrefix = prefix }
}

// NewIdempotencyStore returns the Redis store when Redis is enabled and
// reachable, otherwise the in-memory store.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, opts ...StoreOption) (shared.IdempotencyStore, error) {
	o := storeOptions{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err == nil {
		o.logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Addr()))
		return NewRedisIdempotencyStore(client, o.keyPrefix), nil
	}
	if !o.allowFallback {
		return nil, fmt.Errorf("redis required for webhook idempotency: %w", err)
	}

	o.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"duplicate deliveries across replicas will not be detected",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
