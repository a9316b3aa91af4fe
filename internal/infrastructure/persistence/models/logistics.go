package models

import (
	"time"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DutyRateModel is the verified duty for an (hs_code, origin_country) pair
type DutyRateModel struct {
	HSCode           string          `gorm:"column:hs_code;type:varchar(20);primaryKey"`
	OriginCountry    string          `gorm:"type:varchar(2);primaryKey"`
	BaseRate         decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	SurchargeRate    decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	SurchargeProgram string          `gorm:"type:varchar(50)"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DutyRateModel) TableName() string {
	return "duty_rates"
}

// ToDomain converts the persistence model to a domain DutyRate
func (m *DutyRateModel) ToDomain() *logistics.DutyRate {
	return &logistics.DutyRate{
		HSCode:           m.HSCode,
		OriginCountry:    m.OriginCountry,
		BaseRate:         m.BaseRate,
		SurchargeRate:    m.SurchargeRate,
		SurchargeProgram: m.SurchargeProgram,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the model. Keys are stored normalized.
func (m *DutyRateModel) FromDomain(r *logistics.DutyRate) {
	m.HSCode = logistics.NormalizeHSCode(r.HSCode)
	m.OriginCountry = logistics.NormalizeCountry(r.OriginCountry)
	m.BaseRate = r.BaseRate
	m.SurchargeRate = r.SurchargeRate
	m.SurchargeProgram = r.SurchargeProgram
	m.UpdatedAt = r.UpdatedAt
}

// ShippingServiceModel is one carrier service and its banding rules
type ShippingServiceModel struct {
	Code               string                      `gorm:"type:varchar(50);primaryKey"`
	Carrier            string                      `gorm:"type:varchar(50);not null"`
	Active             bool                        `gorm:"not null"`
	Destinations       datatypes.JSONSlice[string] `gorm:"not null"`
	Currency           string                      `gorm:"type:varchar(3);not null"`
	Unit               logistics.WeightUnit        `gorm:"type:varchar(4);not null"`
	BandSize           decimal.Decimal             `gorm:"type:decimal(10,3);not null"`
	BandCount          int                         `gorm:"not null"`
	SignatureFee       decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	SignatureThreshold decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	InsuranceRate      decimal.Decimal             `gorm:"type:decimal(10,6);not null;default:0"`
	InsuranceThreshold decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	VolumetricDivisor  decimal.Decimal             `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt          time.Time                   `gorm:"not null"`
	UpdatedAt          time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShippingServiceModel) TableName() string {
	return "shipping_services"
}

// ToDomain converts the persistence model to a domain ShippingService
func (m *ShippingServiceModel) ToDomain() *logistics.ShippingService {
	return &logistics.ShippingService{
		Code:               m.Code,
		Carrier:            m.Carrier,
		Active:             m.Active,
		Destinations:       []string(m.Destinations),
		Currency:           m.Currency,
		Unit:               m.Unit,
		BandSize:           m.BandSize,
		BandCount:          m.BandCount,
		SignatureFee:       m.SignatureFee,
		SignatureThreshold: m.SignatureThreshold,
		InsuranceRate:      m.InsuranceRate,
		InsuranceThreshold: m.InsuranceThreshold,
		VolumetricDivisor:  m.VolumetricDivisor,
	}
}

// FromDomain populates the model. Destinations are stored upper-case.
func (m *ShippingServiceModel) FromDomain(s *logistics.ShippingService) {
	dests := make([]string, 0, len(s.Destinations))
	for _, d := range s.Destinations {
		dests = append(dests, logistics.NormalizeCountry(d))
	}
	m.Code = s.Code
	m.Carrier = s.Carrier
	m.Active = s.Active
	m.Destinations = dests
	m.Currency = s.Currency
	m.Unit = s.Unit
	m.BandSize = s.BandSize
	m.BandCount = s.BandCount
	m.SignatureFee = s.SignatureFee
	m.SignatureThreshold = s.SignatureThreshold
	m.InsuranceRate = s.InsuranceRate
	m.InsuranceThreshold = s.InsuranceThreshold
	m.VolumetricDivisor = s.VolumetricDivisor
}

// ShippingRateModel is the base rate of one weight band
type ShippingRateModel struct {
	ServiceCode string          `gorm:"type:varchar(50);primaryKey"`
	Destination string          `gorm:"type:varchar(2);primaryKey"`
	WeightBand  int             `gorm:"primaryKey;autoIncrement:false"`
	BaseRate    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShippingRateModel) TableName() string {
	return "shipping_rates"
}

// ToDomain converts the persistence model to a domain rate entry
func (m *ShippingRateModel) ToDomain() logistics.ShippingRateEntry {
	return logistics.ShippingRateEntry{
		ServiceCode: m.ServiceCode,
		Destination: m.Destination,
		WeightBand:  m.WeightBand,
		BaseRate:    m.BaseRate,
		Currency:    m.Currency,
	}
}

// FromDomain populates the model
func (m *ShippingRateModel) FromDomain(e *logistics.ShippingRateEntry) {
	m.ServiceCode = e.ServiceCode
	m.Destination = logistics.NormalizeCountry(e.Destination)
	m.WeightBand = e.WeightBand
	m.BaseRate = e.BaseRate
	m.Currency = e.Currency
}

// RateTableRowModel is one cell of a generated display shipping table
type RateTableRowModel struct {
	Name          string          `gorm:"type:varchar(100);primaryKey"`
	ServiceCode   string          `gorm:"type:varchar(50);primaryKey;index:idx_rate_table_lookup,priority:1"`
	Destination   string          `gorm:"type:varchar(2);primaryKey;index:idx_rate_table_lookup,priority:2"`
	WeightBand    int             `gorm:"primaryKey;autoIncrement:false;index:idx_rate_table_lookup,priority:3"`
	WeightCeiling decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	PriceMin      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PriceMax      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TariffRate    decimal.Decimal `gorm:"type:decimal(10,6);not null"`
	BaseRate      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Markup        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DisplayCost   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	GeneratedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RateTableRowModel) TableName() string {
	return "rate_table_rows"
}

// ToDomain converts the persistence model to a domain row
func (m *RateTableRowModel) ToDomain() *logistics.RateTableRow {
	return &logistics.RateTableRow{
		Name:          m.Name,
		ServiceCode:   m.ServiceCode,
		Destination:   m.Destination,
		WeightBand:    m.WeightBand,
		WeightCeiling: m.WeightCeiling,
		PriceMin:      m.PriceMin,
		PriceMax:      m.PriceMax,
		TariffRate:    m.TariffRate,
		BaseRate:      m.BaseRate,
		Markup:        m.Markup,
		DisplayCost:   m.DisplayCost,
		Currency:      m.Currency,
		GeneratedAt:   m.GeneratedAt,
	}
}

// FromDomain populates the model
func (m *RateTableRowModel) FromDomain(r *logistics.RateTableRow) {
	m.Name = r.Name
	m.ServiceCode = r.ServiceCode
	m.Destination = logistics.NormalizeCountry(r.Destination)
	m.WeightBand = r.WeightBand
	m.WeightCeiling = r.WeightCeiling
	m.PriceMin = r.PriceMin
	m.PriceMax = r.PriceMax
	m.TariffRate = r.TariffRate
	m.BaseRate = r.BaseRate
	m.Markup = r.Markup
	m.DisplayCost = r.DisplayCost
	m.Currency = r.Currency
	m.GeneratedAt = r.GeneratedAt
}
