package models

import (
	"time"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// MarketplaceSettingsModel stores the fee structure of one (platform, account) pair
type MarketplaceSettingsModel struct {
	Platform        integration.PlatformCode `gorm:"type:varchar(20);primaryKey"`
	AccountID       string                   `gorm:"type:varchar(100);primaryKey"`
	CountryCode     string                   `gorm:"type:varchar(2);not null"`
	Currency        string                   `gorm:"type:varchar(3);not null"`
	FeeRate         decimal.Decimal          `gorm:"type:decimal(10,6);not null;default:0"`
	PaymentFeeRate  decimal.Decimal          `gorm:"type:decimal(10,6);not null;default:0"`
	FixedFee        decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	DDPRequired     bool                     `gorm:"column:ddp_required;not null"`
	FXRate          decimal.Decimal          `gorm:"column:fx_rate;type:decimal(18,8);not null"`
	Preference      decimal.Decimal          `gorm:"type:decimal(6,4);not null;default:0"`
	MinListingPrice decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	MaxListingPrice decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	Active          bool                     `gorm:"not null;index"`
	CreatedAt       time.Time                `gorm:"not null"`
	UpdatedAt       time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MarketplaceSettingsModel) TableName() string {
	return "marketplace_settings"
}

// ToDomain converts the persistence model to domain settings
func (m *MarketplaceSettingsModel) ToDomain() *integration.MarketplaceSettings {
	return &integration.MarketplaceSettings{
		Platform:        m.Platform,
		AccountID:       m.AccountID,
		CountryCode:     m.CountryCode,
		Currency:        m.Currency,
		FeeRate:         m.FeeRate,
		PaymentFeeRate:  m.PaymentFeeRate,
		FixedFee:        m.FixedFee,
		DDPRequired:     m.DDPRequired,
		FXRate:          m.FXRate,
		Preference:      m.Preference,
		MinListingPrice: m.MinListingPrice,
		MaxListingPrice: m.MaxListingPrice,
		Active:          m.Active,
	}
}

// FromDomain populates the persistence model from domain settings
func (m *MarketplaceSettingsModel) FromDomain(s *integration.MarketplaceSettings) {
	m.Platform = s.Platform
	m.AccountID = s.AccountID
	m.CountryCode = s.CountryCode
	m.Currency = s.Currency
	m.FeeRate = s.FeeRate
	m.PaymentFeeRate = s.PaymentFeeRate
	m.FixedFee = s.FixedFee
	m.DDPRequired = s.DDPRequired
	m.FXRate = s.FXRate
	m.Preference = s.Preference
	m.MinListingPrice = s.MinListingPrice
	m.MaxListingPrice = s.MaxListingPrice
	m.Active = s.Active
}
