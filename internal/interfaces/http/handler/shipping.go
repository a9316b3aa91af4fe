package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	logisticsapp "github.com/n3/backend/internal/application/logistics"
	"github.com/n3/backend/internal/domain/logistics"
	"github.com/shopspring/decimal"
)

// RateTableBuilder generates and exports carrier rate tables
type RateTableBuilder interface {
	Generate(ctx context.Context, spec logisticsapp.RateTableSpec) (*logisticsapp.GenerationReport, error)
}

// ShippingQuoter picks the cheapest eligible service for a parcel
type ShippingQuoter interface {
	Quote(ctx context.Context, sh logistics.Shipment) (*logistics.ShippingQuote, error)
}

// ShippingHandler serves rate tables and shipping quotes
type ShippingHandler struct {
	BaseHandler
	tables RateTableBuilder
	quoter ShippingQuoter
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(tables RateTableBuilder, quoter ShippingQuoter) *ShippingHandler {
	return &ShippingHandler{tables: tables, quoter: quoter}
}

// GenerateRateTable godoc
// @ID           generateRateTable
// @Summary      Generate a rate table
// @Description  Builds one row per weight band and price band for a service and destination. Rows fail independently. With export the table is written as CSV to object storage.
// @Tags         shipping
// @Accept       json
// @Produce      json
// @Param        request body logisticsapp.RateTableSpec true "Rate table parameters"
// @Success      200 {object} Envelope[logisticsapp.GenerationReport]
// @Failure      400 {object} FailureEnvelope
// @Failure      404 {object} FailureEnvelope "Unknown service"
// @Failure      503 {object} FailureEnvelope
// @Router       /shipping/rate-tables [post]
func (h *ShippingHandler) GenerateRateTable(c *gin.Context) {
	var spec logisticsapp.RateTableSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		h.ValidationError(c, err)
		return
	}

	report, err := h.tables.Generate(c.Request.Context(), spec)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ShippingQuoteRequest is the body of POST /shipping/quote
type ShippingQuoteRequest struct {
	WeightGrams      decimal.Decimal `json:"weight_grams" swaggertype:"string" example:"850"`
	LengthCm         decimal.Decimal `json:"length_cm" swaggertype:"string" example:"30"`
	WidthCm          decimal.Decimal `json:"width_cm" swaggertype:"string" example:"20"`
	HeightCm         decimal.Decimal `json:"height_cm" swaggertype:"string" example:"10"`
	Destination      string          `json:"destination" binding:"required,len=2" example:"US"`
	DeclaredValue    decimal.Decimal `json:"declared_value" swaggertype:"string" example:"120.00"`
	RequireSignature bool            `json:"require_signature"`
	RequireInsurance bool            `json:"require_insurance"`
}

func (r ShippingQuoteRequest) toShipment() logistics.Shipment {
	return logistics.Shipment{
		WeightGrams:      r.WeightGrams,
		LengthCm:         r.LengthCm,
		WidthCm:          r.WidthCm,
		HeightCm:         r.HeightCm,
		Destination:      r.Destination,
		DeclaredValue:    r.DeclaredValue,
		RequireSignature: r.RequireSignature,
		RequireInsurance: r.RequireInsurance,
	}
}

// Quote godoc
// @ID           quoteShipment
// @Summary      Quote a shipment
// @Description  Prices the parcel on every eligible service and selects the cheapest. Excluded services are listed with the reason.
// @Tags         shipping
// @Accept       json
// @Produce      json
// @Param        request body ShippingQuoteRequest true "Parcel"
// @Success      200 {object} Envelope[logistics.ShippingQuote]
// @Failure      400 {object} FailureEnvelope
// @Failure      422 {object} FailureEnvelope "No eligible service"
// @Failure      503 {object} FailureEnvelope
// @Router       /shipping/quote [post]
func (h *ShippingHandler) Quote(c *gin.Context) {
	var req ShippingQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	quote, err := h.quoter.Quote(c.Request.Context(), req.toShipment())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}
