package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Marketplace Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformNotRegistered   = errors.New("integration: no adapter registered for platform")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")

	// Listing errors
	ErrListingInvalidPayload = errors.New("integration: invalid listing payload")
	ErrListingRejected       = errors.New("integration: listing rejected by platform")

	// Settings errors
	ErrSettingsInvalidPlatform = errors.New("integration: invalid platform code")
	ErrSettingsInvalidAccount  = errors.New("integration: account id is required")
	ErrSettingsInvalidRate     = errors.New("integration: rate must be a fraction in [0, 1)")
	ErrSettingsInvalidFX       = errors.New("integration: fx rate must be positive")
)

// ---------------------------------------------------------------------------
// PlatformCode represents a marketplace
// ---------------------------------------------------------------------------

// PlatformCode represents the type of marketplace
type PlatformCode string

const (
	// PlatformCodeEbay represents eBay
	PlatformCodeEbay PlatformCode = "EBAY"
	// PlatformCodeShopee represents Shopee
	PlatformCodeShopee PlatformCode = "SHOPEE"
	// PlatformCodeAmazon represents Amazon
	PlatformCodeAmazon PlatformCode = "AMAZON"
	// PlatformCodeQoo10 represents Qoo10
	PlatformCodeQoo10 PlatformCode = "QOO10"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeEbay, PlatformCodeShopee, PlatformCodeAmazon, PlatformCodeQoo10:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeEbay:
		return "eBay"
	case PlatformCodeShopee:
		return "Shopee"
	case PlatformCodeAmazon:
		return "Amazon"
	case PlatformCodeQoo10:
		return "Qoo10"
	default:
		return string(c)
	}
}

// ParsePlatformCode normalizes user input such as "ebay" to a PlatformCode
func ParsePlatformCode(s string) (PlatformCode, error) {
	code := PlatformCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrSettingsInvalidPlatform, s)
	}
	return code, nil
}

// CandidateKey identifies a (platform, account) placement
func CandidateKey(platform PlatformCode, accountID string) string {
	return string(platform) + ":" + accountID
}

// ---------------------------------------------------------------------------
// MarketplaceSettings
// ---------------------------------------------------------------------------

// MarketplaceSettings describes the fee structure of one (platform, account) pair
type MarketplaceSettings struct {
	Platform       PlatformCode
	AccountID      string
	CountryCode    string
	Currency       string
	FeeRate        decimal.Decimal
	PaymentFeeRate decimal.Decimal
	FixedFee       decimal.Decimal
	DDPRequired    bool
	// FXRate converts one unit of the source currency into the marketplace currency
	FXRate decimal.Decimal
	// Preference is a 0..1 weight for fee favorability and marketplace reach
	Preference      decimal.Decimal
	MinListingPrice decimal.Decimal
	MaxListingPrice decimal.Decimal
	Active          bool
}

// Key returns the candidate key for these settings
func (s *MarketplaceSettings) Key() string {
	return CandidateKey(s.Platform, s.AccountID)
}

// Validate validates the settings
func (s *MarketplaceSettings) Validate() error {
	if !s.Platform.IsValid() {
		return ErrSettingsInvalidPlatform
	}
	if strings.TrimSpace(s.AccountID) == "" {
		return ErrSettingsInvalidAccount
	}
	one := decimal.NewFromInt(1)
	for _, r := range []decimal.Decimal{s.FeeRate, s.PaymentFeeRate} {
		if r.IsNegative() || r.GreaterThanOrEqual(one) {
			return ErrSettingsInvalidRate
		}
	}
	if s.Preference.IsNegative() || s.Preference.GreaterThan(one) {
		return ErrSettingsInvalidRate
	}
	if !s.FXRate.IsPositive() {
		return ErrSettingsInvalidFX
	}
	return nil
}

// ToMarketCurrency converts a source-currency amount into the marketplace currency
func (s *MarketplaceSettings) ToMarketCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.FXRate)
}

// ToSourceCurrency converts a marketplace amount back into the source currency
func (s *MarketplaceSettings) ToSourceCurrency(amount decimal.Decimal) decimal.Decimal {
	if s.FXRate.IsZero() {
		return decimal.Zero
	}
	return amount.Div(s.FXRate)
}

// MarketplaceSettingsRepository defines persistence for marketplace settings
type MarketplaceSettingsRepository interface {
	// FindActive returns every active (platform, account) pair ordered by platform, account
	FindActive(ctx context.Context) ([]MarketplaceSettings, error)
	// FindByKey returns shared.ErrNotFound when the pair is unknown
	FindByKey(ctx context.Context, platform PlatformCode, accountID string) (*MarketplaceSettings, error)
	// Save creates or updates settings
	Save(ctx context.Context, settings *MarketplaceSettings) error
}

// ---------------------------------------------------------------------------
// ListingPayload
// ---------------------------------------------------------------------------

// ListingPayload is the platform-neutral listing request handed to an adapter
type ListingPayload struct {
	SKU           string            `json:"sku" validate:"required,max=64"`
	Platform      PlatformCode      `json:"platform" validate:"required"`
	AccountID     string            `json:"account_id" validate:"required"`
	Title         string            `json:"title" validate:"required,max=200"`
	Category      string            `json:"category,omitempty"`
	Price         decimal.Decimal   `json:"price"`
	ShippingCost  decimal.Decimal   `json:"shipping_cost"`
	Currency      string            `json:"currency" validate:"required,len=3"`
	Quantity      int               `json:"quantity" validate:"gte=1"`
	DDP           bool              `json:"ddp"`
	CountryCode   string            `json:"country_code" validate:"required,len=2"`
	WeightGrams   decimal.Decimal   `json:"weight_grams"`
	HSCode        string            `json:"hs_code,omitempty"`
	OriginCountry string            `json:"origin_country,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the payload before it is sent to a platform
func (p *ListingPayload) Validate() error {
	if err := payloadValidator.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrListingInvalidPayload, err)
	}
	if !p.Platform.IsValid() {
		return fmt.Errorf("%w: platform %q", ErrListingInvalidPayload, p.Platform)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrListingInvalidPayload)
	}
	if p.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: shipping cost cannot be negative", ErrListingInvalidPayload)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Port Interfaces
// ---------------------------------------------------------------------------

// MarketplaceAdapter creates listings on one marketplace.
// Implementations must honor ctx cancellation and return errors wrapping the
// package sentinels so callers can classify retryable failures.
type MarketplaceAdapter interface {
	// Platform returns the platform this adapter serves
	Platform() PlatformCode

	// CreateListing publishes the payload and returns the platform listing id
	CreateListing(ctx context.Context, payload ListingPayload) (string, error)

	// IsEnabled reports whether the adapter has credentials configured
	IsEnabled(ctx context.Context) bool
}

// IsRetryable reports whether an adapter error may succeed on a later attempt.
// Invalid payloads and auth failures need an operator and are not retried.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrListingInvalidPayload),
		errors.Is(err, ErrPlatformAuthFailed),
		errors.Is(err, ErrPlatformNotConfigured),
		errors.Is(err, ErrPlatformNotRegistered):
		return false
	default:
		return true
	}
}
