package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// ShopeeProductionAPIURL is the Open Platform host
	ShopeeProductionAPIURL = "https://partner.shopeemobile.com"
	// ShopeeSandboxAPIURL is the test host
	ShopeeSandboxAPIURL = "https://partner.test-stable.shopeemobile.com"

	defaultShopeeTimeout = 30 * time.Second
)

// Errors for Shopee configuration
var (
	ErrShopeeConfigMissingPartner = errors.New("shopee: partner id and partner key are required")
	ErrShopeeConfigMissingShop    = errors.New("shopee: shop id and access token are required")
)

// ShopeeConfig holds one shop's Open Platform v2 credentials
type ShopeeConfig struct {
	PartnerID   int64
	PartnerKey  string
	ShopID      int64
	AccessToken string
	// APIBaseURL is the API host (production or sandbox)
	APIBaseURL string
	// LogisticsChannelID is enabled on every new item when set
	LogisticsChannelID int64
	Timeout            time.Duration
}

// NewShopeeConfig creates a production configuration with defaults
func NewShopeeConfig(partnerID int64, partnerKey string, shopID int64, accessToken string) *ShopeeConfig {
	return &ShopeeConfig{
		PartnerID:   partnerID,
		PartnerKey:  partnerKey,
		ShopID:      shopID,
		AccessToken: accessToken,
		APIBaseURL:  ShopeeProductionAPIURL,
		Timeout:     defaultShopeeTimeout,
	}
}

// Validate checks required fields and fills defaults
func (c *ShopeeConfig) Validate() error {
	if c.PartnerID == 0 || c.PartnerKey == "" {
		return ErrShopeeConfigMissingPartner
	}
	if c.ShopID == 0 || c.AccessToken == "" {
		return ErrShopeeConfigMissingShop
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ShopeeProductionAPIURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultShopeeTimeout
	}
	return nil
}

// Sign computes the shop-level v2 signature:
// hex(HMAC-SHA256(partner_key, partner_id + path + timestamp + access_token + shop_id))
func (c *ShopeeConfig) Sign(path string, timestamp int64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(c.PartnerID, 10))
	b.WriteString(path)
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(c.AccessToken)
	b.WriteString(strconv.FormatInt(c.ShopID, 10))

	h := hmac.New(sha256.New, []byte(c.PartnerKey))
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}
