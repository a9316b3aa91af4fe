package logistics

import (
	"testing"

	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDutyResolution(t *testing.T) {
	rate := &DutyRate{HSCode: "852580", OriginCountry: "JP", BaseRate: d("0.021"), SurchargeRate: d("0.10")}

	v := NewVerifiedResolution(rate, d("200"))
	assert.Equal(t, DutySourceVerified, v.Source)
	assert.True(t, v.TotalRate.Equal(d("0.121")))
	assert.True(t, v.DutyAmount.Equal(d("24.2")))

	f := NewFallbackResolution("852580", "CN", d("0.065"), d("200"))
	assert.Equal(t, DutySourceFallback, f.Source)
	assert.True(t, f.TotalRate.Equal(d("0.065")))
	assert.True(t, f.BaseRate.Equal(d("0.065")))
	assert.True(t, f.SurchargeRate.IsZero())
	assert.True(t, f.DutyAmount.Equal(d("13")))
}

func TestNormalizeHSCode(t *testing.T) {
	assert.Equal(t, "85258030", NormalizeHSCode(" 8525.80.30 "))
	assert.Equal(t, "852580", NormalizeHSCode("8525-80"))
	assert.Equal(t, "JP", NormalizeCountry(" jp"))
}

func sampleService() ShippingService {
	return ShippingService{
		Code:               "EMS",
		Carrier:            "JapanPost",
		Active:             true,
		Destinations:       []string{"US", "GB"},
		Currency:           "USD",
		Unit:               WeightUnitKg,
		BandSize:           d("0.5"),
		BandCount:          60,
		SignatureFee:       d("3.00"),
		SignatureThreshold: d("300"),
		InsuranceRate:      d("0.01"),
		InsuranceThreshold: d("500"),
		VolumetricDivisor:  d("5000"),
	}
}

func TestShippingService_BandFor(t *testing.T) {
	s := sampleService()
	tests := []struct {
		weight string
		band   int
		ok     bool
	}{
		{"0", 1, true},
		{"0.1", 1, true},
		{"0.5", 1, true},
		{"0.51", 2, true},
		{"1.0", 2, true},
		{"29.9", 60, true},
		{"30", 60, true},
		{"30.01", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.weight, func(t *testing.T) {
			band, ok := s.BandFor(d(tt.weight))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.band, band)
		})
	}
	assert.True(t, s.MaxWeight().Equal(d("30")))
	assert.True(t, s.BandCeiling(3).Equal(d("1.5")))
}

func TestShippingService_BillableWeight(t *testing.T) {
	s := sampleService()

	// 40*30*20 / 5000 = 4.8kg volumetric beats 1kg actual
	w := s.BillableWeight(d("1000"), d("40"), d("30"), d("20"))
	assert.True(t, w.Equal(d("4.8")), "got %s", w)

	// dense parcel bills actual weight
	w = s.BillableWeight(d("3000"), d("10"), d("10"), d("10"))
	assert.True(t, w.Equal(d("3")), "got %s", w)

	s.VolumetricDivisor = decimal.Zero
	w = s.BillableWeight(d("1000"), d("40"), d("30"), d("20"))
	assert.True(t, w.Equal(d("1")))

	lb := WeightUnitLb.FromGrams(d("453.59237"))
	assert.True(t, lb.Equal(d("1")))
}

func TestShippingService_Match(t *testing.T) {
	s := sampleService()
	sh := Shipment{WeightGrams: d("800"), Destination: "us"}

	band, billable, ex := s.Match(sh)
	require.Nil(t, ex)
	assert.Equal(t, 2, band)
	assert.True(t, billable.Equal(d("0.8")))

	sh.Destination = "AU"
	_, _, ex = s.Match(sh)
	require.NotNil(t, ex)
	assert.Contains(t, ex.Reason, "AU")

	sh.Destination = "US"
	sh.WeightGrams = d("31000")
	_, _, ex = s.Match(sh)
	require.NotNil(t, ex)
	assert.Contains(t, ex.Reason, "exceeds")

	s.Active = false
	_, _, ex = s.Match(Shipment{WeightGrams: d("100"), Destination: "US"})
	require.NotNil(t, ex)
	assert.Equal(t, "service inactive", ex.Reason)
}

func TestShippingService_AddOns(t *testing.T) {
	s := sampleService()

	sig, ins := s.AddOns(Shipment{DeclaredValue: d("100")})
	assert.True(t, sig.IsZero())
	assert.True(t, ins.IsZero())

	sig, ins = s.AddOns(Shipment{DeclaredValue: d("600")})
	assert.True(t, sig.Equal(d("3")))
	assert.True(t, ins.Equal(d("6")))

	sig, ins = s.AddOns(Shipment{DeclaredValue: d("100"), RequireSignature: true, RequireInsurance: true})
	assert.True(t, sig.Equal(d("3")))
	assert.True(t, ins.Equal(d("1")))
}

func TestShippingQuote_Cost(t *testing.T) {
	q := &ShippingQuote{Destination: "US"}
	_, err := q.Cost()
	assert.ErrorIs(t, err, shared.ErrNoRoute)

	q.Selected = &ShippingOption{Total: d("12")}
	cost, err := q.Cost()
	require.NoError(t, err)
	assert.True(t, cost.Equal(d("12")))
}

func TestShippingOption_Better(t *testing.T) {
	a := ShippingOption{ServiceCode: "A", Total: d("10")}
	b := ShippingOption{ServiceCode: "B", Total: d("10")}
	c := ShippingOption{ServiceCode: "0", Total: d("11")}
	assert.True(t, a.Better(b))
	assert.False(t, b.Better(a))
	assert.True(t, b.Better(c))
}

func TestRateTable(t *testing.T) {
	bands := LinearPriceBands(decimal.Zero, d("50"), 3, d("1.5"))
	require.Len(t, bands, 3)
	assert.True(t, bands[2].Min.Equal(d("100")))
	assert.True(t, bands[2].Max.Equal(d("150")))
	assert.True(t, bands[2].Markup.Equal(d("3")))
	assert.True(t, bands[1].Avg().Equal(d("75")))
	assert.True(t, bands[1].Contains(d("50")))
	assert.False(t, bands[1].Contains(d("150.01")))

	assert.Equal(t, "RT_Price$0-50_Tariff6.5%", RateTableName(bands[0], d("0.065")))
	assert.Equal(t, "RT_Price$50-100_Tariff15%", RateTableName(bands[1], d("0.15")))

	// 12 + 1.5 + 0.065*75 = 18.375 -> 18.38
	cost := DisplayDDPCost(d("12"), bands[1], d("0.065"))
	assert.True(t, cost.Equal(d("18.38")), "got %s", cost)

	assert.Error(t, PriceBand{Min: d("10"), Max: d("5")}.Validate())
	assert.NoError(t, bands[0].Validate())
}

func TestShippingService_Validate(t *testing.T) {
	s := sampleService()
	assert.NoError(t, s.Validate())

	s.Unit = "oz"
	assert.ErrorIs(t, s.Validate(), shared.ErrInvalidInput)

	s = sampleService()
	s.BandCount = 0
	assert.ErrorIs(t, s.Validate(), shared.ErrInvalidInput)
}
