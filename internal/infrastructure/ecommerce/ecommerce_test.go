package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPayload(platform integration.PlatformCode) integration.ListingPayload {
	return integration.ListingPayload{
		SKU:          "CAM-001",
		Platform:     platform,
		AccountID:    "main",
		Title:        "Film camera body",
		Category:     "15230",
		Price:        decimal.RequireFromString("75.96"),
		ShippingCost: decimal.RequireFromString("12.40"),
		Currency:     "USD",
		Quantity:     1,
		DDP:          true,
		CountryCode:  "US",
		WeightGrams:  decimal.NewFromInt(850),
		Attributes:   map[string]string{"Brand": "Nikon"},
	}
}

// ---------------------------------------------------------------------------
// eBay
// ---------------------------------------------------------------------------

type ebayCall struct {
	method string
	path   string
	body   map[string]any
	header http.Header
}

func newEbayServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*EbayAdapter, *[]ebayCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []ebayCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		calls = append(calls, ebayCall{method: r.Method, path: r.URL.Path, body: body, header: r.Header.Clone()})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := NewEbayConfig("token-1", "EBAY_US")
	cfg.APIBaseURL = srv.URL
	cfg.FulfillmentPolicyID = "fp-1"
	a, err := NewEbayAdapter(cfg)
	require.NoError(t, err)
	return a, &calls
}

func ebayHappyPath(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPut:
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/sell/inventory/v1/offer":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"offerId":"off-9"}`))
	case r.URL.Path == "/sell/inventory/v1/offer/off-9/publish":
		_, _ = w.Write([]byte(`{"listingId":"1100223344"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestEbayConfig_Validate(t *testing.T) {
	cfg := &EbayConfig{}
	assert.ErrorIs(t, cfg.Validate(), ErrEbayConfigMissingToken)

	cfg = &EbayConfig{AccessToken: "t", APIBaseURL: "https://api.sandbox.ebay.com/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "EBAY_US", cfg.MarketplaceID)
	assert.Equal(t, EbaySandboxAPIURL, cfg.APIBaseURL)
	assert.Equal(t, "en-US", cfg.ContentLanguage)
	assert.Positive(t, cfg.Timeout)
}

func TestEbayAdapter_CreateListing(t *testing.T) {
	a, calls := newEbayServer(t, ebayHappyPath)

	id, err := a.CreateListing(context.Background(), testPayload(integration.PlatformCodeEbay))
	require.NoError(t, err)
	assert.Equal(t, "1100223344", id)

	require.Len(t, *calls, 3)
	item, offer, publish := (*calls)[0], (*calls)[1], (*calls)[2]

	assert.Equal(t, http.MethodPut, item.method)
	assert.Equal(t, "/sell/inventory/v1/inventory_item/CAM-001", item.path)
	assert.Equal(t, "Bearer token-1", item.header.Get("Authorization"))
	assert.Equal(t, "EBAY_US", item.header.Get("X-EBAY-C-MARKETPLACE-ID"))
	product := item.body["product"].(map[string]any)
	assert.Equal(t, "Film camera body", product["title"])
	assert.Equal(t, []any{"Nikon"}, product["aspects"].(map[string]any)["Brand"])

	price := offer.body["pricingSummary"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, "75.96", price["value"])
	assert.Equal(t, "USD", price["currency"])
	assert.Equal(t, "FIXED_PRICE", offer.body["format"])
	assert.Equal(t, "fp-1", offer.body["listingPolicies"].(map[string]any)["fulfillmentPolicyId"])

	assert.Equal(t, "/sell/inventory/v1/offer/off-9/publish", publish.path)
}

func TestEbayAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, integration.ErrPlatformAuthFailed},
		{"rate limited", http.StatusTooManyRequests, integration.ErrPlatformRateLimited},
		{"rejected", http.StatusBadRequest, integration.ErrListingRejected},
		{"server error", http.StatusServiceUnavailable, integration.ErrPlatformUnavailable},
		{"not found", http.StatusNotFound, integration.ErrPlatformRequestFailed},
		{"unfollowed redirect", http.StatusMultipleChoices, integration.ErrPlatformRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newEbayServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":[{"errorId":25001,"message":"bad things"}]}`))
			})
			_, err := a.CreateListing(context.Background(), testPayload(integration.PlatformCodeEbay))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "bad things")
		})
	}
}

func TestSend_OnlyAcceptsSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"ok", http.StatusOK, nil},
		{"no content", http.StatusNoContent, nil},
		{"not modified", http.StatusNotModified, integration.ErrPlatformRequestFailed},
		{"multiple choices", http.StatusMultipleChoices, integration.ErrPlatformRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
			require.NoError(t, err)
			_, err = send(srv.Client(), req, nil)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.status))
		})
	}
}

func TestEbayAdapter_InvalidResponses(t *testing.T) {
	a, _ := newEbayServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := a.CreateListing(context.Background(), testPayload(integration.PlatformCodeEbay))
	assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
}

func TestEbayAdapter_InvalidPayload(t *testing.T) {
	a, calls := newEbayServer(t, ebayHappyPath)
	p := testPayload(integration.PlatformCodeEbay)
	p.Price = decimal.Zero

	_, err := a.CreateListing(context.Background(), p)
	assert.ErrorIs(t, err, integration.ErrListingInvalidPayload)
	assert.Empty(t, *calls)
}

func TestEbayAdapter_AccountConfig(t *testing.T) {
	a, calls := newEbayServer(t, ebayHappyPath)
	other := NewEbayConfig("token-2", "EBAY_GB")
	other.APIBaseURL = a.config.APIBaseURL
	require.NoError(t, a.SetAccountConfig("uk-1", other))
	assert.Error(t, a.SetAccountConfig("bad", &EbayConfig{}))

	p := testPayload(integration.PlatformCodeEbay)
	p.AccountID = "uk-1"
	_, err := a.CreateListing(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-2", (*calls)[0].header.Get("Authorization"))
	assert.Equal(t, "EBAY_GB", (*calls)[1].body["marketplaceId"])
}

func TestEbayAdapter_ContextDeadline(t *testing.T) {
	a, _ := newEbayServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.CreateListing(ctx, testPayload(integration.PlatformCodeEbay))
	require.Error(t, err)
	assert.True(t, integration.IsRetryable(err))
}

// ---------------------------------------------------------------------------
// Shopee
// ---------------------------------------------------------------------------

func newShopeeServer(t *testing.T, handler http.HandlerFunc) *ShopeeAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := NewShopeeConfig(2001, "partner-key", 77, "shop-token")
	cfg.APIBaseURL = srv.URL
	cfg.LogisticsChannelID = 30012
	a, err := NewShopeeAdapter(cfg)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	return a
}

func TestShopeeConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&ShopeeConfig{}).Validate(), ErrShopeeConfigMissingPartner)
	assert.ErrorIs(t, (&ShopeeConfig{PartnerID: 1, PartnerKey: "k"}).Validate(), ErrShopeeConfigMissingShop)

	cfg := &ShopeeConfig{PartnerID: 1, PartnerKey: "k", ShopID: 2, AccessToken: "t"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ShopeeProductionAPIURL, cfg.APIBaseURL)
}

func TestShopeeConfig_Sign(t *testing.T) {
	cfg := NewShopeeConfig(2001, "partner-key", 77, "shop-token")
	sig := cfg.Sign(shopeeAddItemPath, 1700000000)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, cfg.Sign(shopeeAddItemPath, 1700000000))
	assert.NotEqual(t, sig, cfg.Sign(shopeeAddItemPath, 1700000001))
}

func TestShopeeAdapter_CreateListing(t *testing.T) {
	var (
		gotQuery map[string]string
		gotBody  ShopeeAddItemRequest
	)
	a := newShopeeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, shopeeAddItemPath, r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"request_id":"r1","error":"","message":"","response":{"item_id":800123}}`))
	})

	id, err := a.CreateListing(context.Background(), testPayload(integration.PlatformCodeShopee))
	require.NoError(t, err)
	assert.Equal(t, "800123", id)

	assert.Equal(t, "2001", gotQuery["partner_id"])
	assert.Equal(t, "77", gotQuery["shop_id"])
	assert.Equal(t, "1700000000", gotQuery["timestamp"])
	assert.Equal(t, a.config.Sign(shopeeAddItemPath, 1700000000), gotQuery["sign"])

	assert.Equal(t, "CAM-001", gotBody.ItemSKU)
	assert.InDelta(t, 75.96, gotBody.OriginalPrice, 1e-9)
	assert.InDelta(t, 0.85, gotBody.Weight, 1e-9)
	assert.Equal(t, int64(15230), gotBody.CategoryID)
	require.Len(t, gotBody.LogisticInfo, 1)
	assert.Equal(t, int64(30012), gotBody.LogisticInfo[0].LogisticID)
}

func TestShopeeAdapter_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"error_auth", integration.ErrPlatformAuthFailed},
		{"error_param", integration.ErrListingRejected},
		{"error_busy", integration.ErrPlatformUnavailable},
		{"error_too_frequent", integration.ErrPlatformRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			a := newShopeeServer(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ShopeeAddItemResponse{Error: tt.code, Message: "nope"})
			})
			_, err := a.CreateListing(context.Background(), testPayload(integration.PlatformCodeShopee))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestShopeeAdapter_MissingItemID(t *testing.T) {
	a := newShopeeServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"","response":{}}`))
	})
	_, err := a.CreateListing(context.Background(), testPayload(integration.PlatformCodeShopee))
	assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry(t *testing.T) {
	ebay, err := NewEbayAdapter(NewEbayConfig("t", "EBAY_US"))
	require.NoError(t, err)
	r := NewRegistry(ebay)

	got, err := r.Get(integration.PlatformCodeEbay)
	require.NoError(t, err)
	assert.Same(t, ebay, got)

	_, err = r.Get(integration.PlatformCodeQoo10)
	assert.ErrorIs(t, err, integration.ErrPlatformNotRegistered)
	assert.False(t, integration.IsRetryable(err))
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.MarketplaceConfig{
		Ebay: config.EbayConfig{Enabled: true, AccessToken: "t", MarketplaceID: "EBAY_US"},
		Shopee: config.ShopeeConfig{
			Enabled: true, PartnerID: 1, PartnerKey: "k", ShopID: 2, Token: "s",
		},
	}
	r, err := NewRegistryFromConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []integration.PlatformCode{integration.PlatformCodeEbay, integration.PlatformCodeShopee}, r.Platforms())

	cfg.Shopee.ShopID = 0
	_, err = NewRegistryFromConfig(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrShopeeConfigMissingShop)

	empty, err := NewRegistryFromConfig(config.MarketplaceConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, empty.Platforms())
}
