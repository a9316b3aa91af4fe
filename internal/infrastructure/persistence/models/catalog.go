package models

import (
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	SKU      string `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_sku"`
	Title    string `gorm:"type:varchar(200);not null"`
	Brand    string `gorm:"type:varchar(100)"`
	Category string `gorm:"type:varchar(100);index"`
	Keywords datatypes.JSONSlice[string]

	DeclaredValue     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WeightGrams       decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	LengthCm          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	WidthCm           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	HeightCm          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	HSCode            string          `gorm:"column:hs_code;type:varchar(20)"`
	OriginCountry     string          `gorm:"type:varchar(2)"`
	AcquisitionCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SourceCurrency    string          `gorm:"type:varchar(3);not null;default:'JPY'"`
	EstimatedDutyRate decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	Stock             int             `gorm:"not null;default:0"`
	ReservedBy        string          `gorm:"type:varchar(100)"`

	Status          catalog.ProductStatus `gorm:"type:varchar(30);not null;default:'pending_strategy';index:idx_products_status_updated,priority:1"`
	ListingID       string                `gorm:"type:varchar(100)"`
	ListedPlatform  string                `gorm:"type:varchar(20)"`
	ListedAccountID string                `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:        m.BaseModel.ToDomain(),
		SKU:               m.SKU,
		Title:             m.Title,
		Brand:             m.Brand,
		Category:          m.Category,
		Keywords:          []string(m.Keywords),
		DeclaredValue:     m.DeclaredValue,
		WeightGrams:       m.WeightGrams,
		LengthCm:          m.LengthCm,
		WidthCm:           m.WidthCm,
		HeightCm:          m.HeightCm,
		HSCode:            m.HSCode,
		OriginCountry:     m.OriginCountry,
		AcquisitionCost:   m.AcquisitionCost,
		SourceCurrency:    m.SourceCurrency,
		EstimatedDutyRate: m.EstimatedDutyRate,
		Stock:             m.Stock,
		ReservedBy:        m.ReservedBy,
		Status:            m.Status,
		ListingID:         m.ListingID,
		ListedPlatform:    m.ListedPlatform,
		ListedAccountID:   m.ListedAccountID,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.SKU = p.SKU
	m.Title = p.Title
	m.Brand = p.Brand
	m.Category = p.Category
	m.Keywords = datatypes.JSONSlice[string](p.Keywords)
	m.DeclaredValue = p.DeclaredValue
	m.WeightGrams = p.WeightGrams
	m.LengthCm = p.LengthCm
	m.WidthCm = p.WidthCm
	m.HeightCm = p.HeightCm
	m.HSCode = p.HSCode
	m.OriginCountry = p.OriginCountry
	m.AcquisitionCost = p.AcquisitionCost
	m.SourceCurrency = p.SourceCurrency
	m.EstimatedDutyRate = p.EstimatedDutyRate
	m.Stock = p.Stock
	m.ReservedBy = p.ReservedBy
	m.Status = p.Status
	m.ListingID = p.ListingID
	m.ListedPlatform = p.ListedPlatform
	m.ListedAccountID = p.ListedAccountID
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
