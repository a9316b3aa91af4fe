package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/n3/backend/internal/domain/integration"
)

const ebayInventoryPath = "/sell/inventory/v1"

// EbayAdapter publishes listings through the eBay Sell Inventory API:
// upsert the inventory item, create an offer, publish the offer.
type EbayAdapter struct {
	config     *EbayConfig
	httpClient *http.Client

	// accountConfigs holds per seller-account credentials; config is the fallback
	accountConfigs map[string]*EbayConfig
	mu             sync.RWMutex
}

// NewEbayAdapter creates an adapter with the default account configuration
func NewEbayAdapter(config *EbayConfig) (*EbayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EbayAdapter{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		accountConfigs: make(map[string]*EbayConfig),
	}, nil
}

// SetAccountConfig registers credentials for one seller account
func (a *EbayAdapter) SetAccountConfig(accountID string, config *EbayConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accountConfigs[accountID] = config
	return nil
}

func (a *EbayAdapter) accountConfig(accountID string) (*EbayConfig, error) {
	a.mu.RLock()
	config, ok := a.accountConfigs[accountID]
	a.mu.RUnlock()
	if ok {
		return config, nil
	}
	if a.config != nil {
		return a.config, nil
	}
	return nil, fmt.Errorf("%w: ebay account %s", integration.ErrPlatformNotConfigured, accountID)
}

// Platform returns EBAY
func (a *EbayAdapter) Platform() integration.PlatformCode {
	return integration.PlatformCodeEbay
}

// IsEnabled reports whether default credentials are configured
func (a *EbayAdapter) IsEnabled(context.Context) bool {
	return a.config != nil && a.config.AccessToken != ""
}

// CreateListing publishes payload and returns the eBay listing id
func (a *EbayAdapter) CreateListing(ctx context.Context, payload integration.ListingPayload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}
	config, err := a.accountConfig(payload.AccountID)
	if err != nil {
		return "", err
	}

	itemPath := fmt.Sprintf("%s/inventory_item/%s", ebayInventoryPath, url.PathEscape(payload.SKU))
	if _, err := a.doRequest(ctx, config, http.MethodPut, itemPath, buildEbayInventoryItem(payload)); err != nil {
		return "", fmt.Errorf("ebay: upsert inventory item: %w", err)
	}

	body, err := a.doRequest(ctx, config, http.MethodPost, ebayInventoryPath+"/offer", buildEbayOffer(config, payload))
	if err != nil {
		return "", fmt.Errorf("ebay: create offer: %w", err)
	}
	var offer EbayOfferResponse
	if err := json.Unmarshal(body, &offer); err != nil || offer.OfferID == "" {
		return "", fmt.Errorf("%w: ebay offer response without offerId", integration.ErrPlatformInvalidResponse)
	}

	publishPath := fmt.Sprintf("%s/offer/%s/publish", ebayInventoryPath, url.PathEscape(offer.OfferID))
	body, err = a.doRequest(ctx, config, http.MethodPost, publishPath, nil)
	if err != nil {
		return "", fmt.Errorf("ebay: publish offer %s: %w", offer.OfferID, err)
	}
	var published EbayPublishResponse
	if err := json.Unmarshal(body, &published); err != nil || published.ListingID == "" {
		return "", fmt.Errorf("%w: ebay publish response without listingId", integration.ErrPlatformInvalidResponse)
	}
	return published.ListingID, nil
}

func buildEbayInventoryItem(p integration.ListingPayload) EbayInventoryItem {
	item := EbayInventoryItem{
		Availability: EbayAvailability{ShipToLocationAvailability: EbayQuantity{Quantity: p.Quantity}},
		Condition:    "NEW",
		Product:      EbayProduct{Title: p.Title},
	}
	if len(p.Attributes) > 0 {
		keys := make([]string, 0, len(p.Attributes))
		for k := range p.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		item.Product.Aspects = make(map[string][]string, len(keys))
		for _, k := range keys {
			item.Product.Aspects[k] = []string{p.Attributes[k]}
		}
	}
	if p.WeightGrams.IsPositive() {
		item.PackageWeightAndSize = &EbayPackage{
			Weight: EbayWeight{Value: p.WeightGrams.StringFixed(0), Unit: "GRAM"},
		}
	}
	return item
}

func buildEbayOffer(config *EbayConfig, p integration.ListingPayload) EbayOffer {
	offer := EbayOffer{
		SKU:                 p.SKU,
		MarketplaceID:       config.MarketplaceID,
		Format:              "FIXED_PRICE",
		AvailableQuantity:   p.Quantity,
		CategoryID:          p.Category,
		MerchantLocationKey: config.MerchantLocationKey,
		PricingSummary: EbayPricingSummary{
			Price: EbayAmount{Value: formatPrice(p.Price), Currency: p.Currency},
		},
	}
	if config.FulfillmentPolicyID != "" || config.PaymentPolicyID != "" || config.ReturnPolicyID != "" {
		offer.ListingPolicies = &EbayListingPolicies{
			FulfillmentPolicyID: config.FulfillmentPolicyID,
			PaymentPolicyID:     config.PaymentPolicyID,
			ReturnPolicyID:      config.ReturnPolicyID,
		}
	}
	return offer
}

// doRequest sends an authenticated JSON request; body may be nil
func (a *EbayAdapter) doRequest(ctx context.Context, config *EbayConfig, method, path string, body any) ([]byte, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ebay: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, config.APIBaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Language", config.ContentLanguage)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", config.MarketplaceID)

	return send(a.httpClient, req, func(raw []byte) string {
		var e EbayErrorResponse
		if json.Unmarshal(raw, &e) != nil {
			return ""
		}
		return e.String()
	})
}

var _ integration.MarketplaceAdapter = (*EbayAdapter)(nil)
