package ecommerce

import (
	"fmt"
	"sort"
	"sync"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Registry maps platform codes to adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[integration.PlatformCode]integration.MarketplaceAdapter
}

// NewRegistry creates a registry holding adapters
func NewRegistry(adapters ...integration.MarketplaceAdapter) *Registry {
	r := &Registry{adapters: make(map[integration.PlatformCode]integration.MarketplaceAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its platform
func (r *Registry) Register(adapter integration.MarketplaceAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Platform()] = adapter
}

// Get returns the adapter for platform or ErrPlatformNotRegistered
func (r *Registry) Get(platform integration.PlatformCode) (integration.MarketplaceAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrPlatformNotRegistered, platform)
	}
	return a, nil
}

// Platforms lists registered platforms in code order
func (r *Registry) Platforms() []integration.PlatformCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]integration.PlatformCode, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewRegistryFromConfig registers a traced adapter for every enabled marketplace
func NewRegistryFromConfig(cfg config.MarketplaceConfig, logger *zap.Logger) (*Registry, error) {
	r := NewRegistry()

	if cfg.Ebay.Enabled {
		ebayCfg := NewEbayConfig(cfg.Ebay.AccessToken, cfg.Ebay.MarketplaceID)
		ebayCfg.APIBaseURL = cfg.Ebay.BaseURL
		ebayCfg.Timeout = cfg.Ebay.Timeout
		a, err := NewEbayAdapter(ebayCfg)
		if err != nil {
			return nil, fmt.Errorf("ebay adapter: %w", err)
		}
		r.Register(Traced(a))
		logger.Info("Marketplace adapter registered",
			zap.String("platform", a.Platform().String()),
			zap.String("marketplace_id", ebayCfg.MarketplaceID),
		)
	}

	if cfg.Shopee.Enabled {
		shopeeCfg := NewShopeeConfig(cfg.Shopee.PartnerID, cfg.Shopee.PartnerKey, cfg.Shopee.ShopID, cfg.Shopee.Token)
		shopeeCfg.APIBaseURL = cfg.Shopee.BaseURL
		shopeeCfg.Timeout = cfg.Shopee.Timeout
		a, err := NewShopeeAdapter(shopeeCfg)
		if err != nil {
			return nil, fmt.Errorf("shopee adapter: %w", err)
		}
		r.Register(Traced(a))
		logger.Info("Marketplace adapter registered",
			zap.String("platform", a.Platform().String()),
			zap.Int64("shop_id", shopeeCfg.ShopID),
		)
	}

	if len(r.Platforms()) == 0 {
		logger.Warn("No marketplace adapters enabled; execution will fail every dispatch")
	}
	return r, nil
}
