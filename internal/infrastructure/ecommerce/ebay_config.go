package ecommerce

import (
	"errors"
	"strings"
	"time"
)

const (
	// EbayProductionAPIURL is the Sell API host
	EbayProductionAPIURL = "https://api.ebay.com"
	// EbaySandboxAPIURL is the sandbox Sell API host
	EbaySandboxAPIURL = "https://api.sandbox.ebay.com"

	defaultEbayMarketplaceID = "EBAY_US"
	defaultEbayTimeout       = 30 * time.Second
)

// Errors for eBay configuration
var (
	ErrEbayConfigMissingToken = errors.New("ebay: access token is required")
)

// EbayConfig holds one seller account's Sell API credentials
type EbayConfig struct {
	// AccessToken is a user OAuth token with the sell.inventory scope
	AccessToken string
	// MarketplaceID selects the site, e.g. EBAY_US or EBAY_GB
	MarketplaceID string
	// APIBaseURL is the API host (production or sandbox)
	APIBaseURL string
	// ContentLanguage is sent with inventory writes
	ContentLanguage string
	// Policy IDs attached to every offer
	FulfillmentPolicyID string
	PaymentPolicyID     string
	ReturnPolicyID      string
	// MerchantLocationKey is the inventory location the item ships from
	MerchantLocationKey string
	Timeout             time.Duration
}

// NewEbayConfig creates a production configuration with defaults
func NewEbayConfig(accessToken, marketplaceID string) *EbayConfig {
	return &EbayConfig{
		AccessToken:   accessToken,
		MarketplaceID: marketplaceID,
		APIBaseURL:    EbayProductionAPIURL,
		Timeout:       defaultEbayTimeout,
	}
}

// Validate checks required fields and fills defaults
func (c *EbayConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrEbayConfigMissingToken
	}
	if c.MarketplaceID == "" {
		c.MarketplaceID = defaultEbayMarketplaceID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = EbayProductionAPIURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.ContentLanguage == "" {
		c.ContentLanguage = "en-US"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultEbayTimeout
	}
	return nil
}
