package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

const shopeeAddItemPath = "/api/v2/product/add_item"

var gramsPerKilogram = decimal.NewFromInt(1000)

// ShopeeAdapter publishes listings through the Shopee Open Platform v2 API
type ShopeeAdapter struct {
	config     *ShopeeConfig
	httpClient *http.Client
	now        func() time.Time

	// accountConfigs maps an account id to its shop credentials; config is the fallback
	accountConfigs map[string]*ShopeeConfig
	mu             sync.RWMutex
}

// NewShopeeAdapter creates an adapter with the default shop configuration
func NewShopeeAdapter(config *ShopeeConfig) (*ShopeeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopeeAdapter{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		now:            time.Now,
		accountConfigs: make(map[string]*ShopeeConfig),
	}, nil
}

// SetAccountConfig registers credentials for one shop
func (a *ShopeeAdapter) SetAccountConfig(accountID string, config *ShopeeConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accountConfigs[accountID] = config
	return nil
}

func (a *ShopeeAdapter) accountConfig(accountID string) (*ShopeeConfig, error) {
	a.mu.RLock()
	config, ok := a.accountConfigs[accountID]
	a.mu.RUnlock()
	if ok {
		return config, nil
	}
	if a.config != nil {
		return a.config, nil
	}
	return nil, fmt.Errorf("%w: shopee account %s", integration.ErrPlatformNotConfigured, accountID)
}

// Platform returns SHOPEE
func (a *ShopeeAdapter) Platform() integration.PlatformCode {
	return integration.PlatformCodeShopee
}

// IsEnabled reports whether default credentials are configured
func (a *ShopeeAdapter) IsEnabled(context.Context) bool {
	return a.config != nil && a.config.PartnerKey != ""
}

// CreateListing adds the item and returns the Shopee item id
func (a *ShopeeAdapter) CreateListing(ctx context.Context, payload integration.ListingPayload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}
	config, err := a.accountConfig(payload.AccountID)
	if err != nil {
		return "", err
	}

	body, err := a.doRequest(ctx, config, shopeeAddItemPath, buildShopeeItem(config, payload))
	if err != nil {
		return "", fmt.Errorf("shopee: add item: %w", err)
	}

	var resp ShopeeAddItemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("shopee: add item: %w: %s: %s", shopeeError(resp.Error), resp.Error, resp.Message)
	}
	if resp.Response == nil || resp.Response.ItemID == 0 {
		return "", fmt.Errorf("%w: shopee response without item_id", integration.ErrPlatformInvalidResponse)
	}
	return strconv.FormatInt(resp.Response.ItemID, 10), nil
}

func buildShopeeItem(config *ShopeeConfig, p integration.ListingPayload) ShopeeAddItemRequest {
	item := ShopeeAddItemRequest{
		ItemName:      p.Title,
		Description:   p.Title,
		ItemSKU:       p.SKU,
		OriginalPrice: p.Price.Round(2).InexactFloat64(),
		SellerStock:   []ShopeeStock{{Stock: p.Quantity}},
		Weight:        p.WeightGrams.Div(gramsPerKilogram).Round(3).InexactFloat64(),
		Condition:     "NEW",
	}
	if id, err := strconv.ParseInt(p.Category, 10, 64); err == nil {
		item.CategoryID = id
	}
	if config.LogisticsChannelID != 0 {
		item.LogisticInfo = []ShopeeLogisticRef{{LogisticID: config.LogisticsChannelID, Enabled: true}}
	}
	return item
}

// shopeeError classifies the error field of a v2 response
func shopeeError(code string) error {
	c := strings.ToLower(code)
	switch {
	case strings.Contains(c, "auth"), strings.Contains(c, "permission"), strings.Contains(c, "sign"):
		return integration.ErrPlatformAuthFailed
	case strings.Contains(c, "frequen"), strings.Contains(c, "limit"):
		return integration.ErrPlatformRateLimited
	case strings.Contains(c, "busy"), strings.Contains(c, "server"), strings.Contains(c, "inner"):
		return integration.ErrPlatformUnavailable
	default:
		return integration.ErrListingRejected
	}
}

// doRequest sends a signed shop-level POST
func (a *ShopeeAdapter) doRequest(ctx context.Context, config *ShopeeConfig, path string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("shopee: failed to marshal request: %w", err)
	}

	ts := a.now().Unix()
	q := url.Values{}
	q.Set("partner_id", strconv.FormatInt(config.PartnerID, 10))
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("access_token", config.AccessToken)
	q.Set("shop_id", strconv.FormatInt(config.ShopID, 10))
	q.Set("sign", config.Sign(path, ts))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.APIBaseURL+path+"?"+q.Encode(), bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("shopee: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return send(a.httpClient, req, func(b []byte) string {
		var e ShopeeAddItemResponse
		if json.Unmarshal(b, &e) != nil || e.Error == "" {
			return ""
		}
		return e.Error + ": " + e.Message
	})
}

var _ integration.MarketplaceAdapter = (*ShopeeAdapter)(nil)
