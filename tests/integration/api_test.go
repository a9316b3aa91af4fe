package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	importapp "github.com/n3/backend/internal/application/import"
	listingapp "github.com/n3/backend/internal/application/listing"
	pricingapp "github.com/n3/backend/internal/application/pricing"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/n3/backend/internal/interfaces/http/handler"
	"github.com/n3/backend/internal/interfaces/http/middleware"
	"github.com/n3/backend/internal/interfaces/http/router"
	"github.com/n3/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const webhookSecret = "whsec-integration"

// newAPI mounts the full route table over the stack, with the server's middleware core
func newAPI(t *testing.T, testDB *TestDB, s *stack) *gin.Engine {
	t.Helper()
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())

	system := handler.NewSystemHandler("n3-test", "test",
		handler.WithReadinessChecks(handler.ReadinessCheck{
			Name:  "database",
			Check: testDB.SqlDB.PingContext,
		}),
	)
	router.RegisterHealthRoutes(engine, system)

	imports := handler.NewImportHandler(
		importapp.NewShippingRateImportService(s.rates, zap.NewNop()),
		importapp.NewDutyRateImportService(s.duties, zap.NewNop()),
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.DomainGroups(router.Handlers{
		Pricing:   handler.NewPricingHandler(s.pricing, 0),
		Strategy:  handler.NewStrategyHandler(s.strategy, s.registry),
		Execution: handler.NewExecutionHandler(s.execution),
		Pipeline:  handler.NewPipelineHandler(s.pipeline),
		Shipping:  handler.NewShippingHandler(s.rateTable, s.shipping),
		Webhook:   handler.NewWebhookHandler(s.priceDrop),
		Import:    imports,
		System:    system,
	}, router.APIOptions{WebhookSecret: webhookSecret})...)
	r.Setup()
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAPI_PriceDetermineExecute(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB, "CAM-1")
	ebay := &recordingAdapter{platform: integration.PlatformCodeEbay}
	engine := newAPI(t, testDB, newStack(t, testDB.DB, ebay))

	t.Run("ready", func(t *testing.T) {
		w := do(t, engine, http.MethodGet, "/health/ready", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("price stored product", func(t *testing.T) {
		w := do(t, engine, http.MethodGet, "/api/v1/price/calculate?sku=CAM-1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		quote := testutil.DecodeData[pricingapp.PriceQuote](t, w.Body.Bytes())
		assert.Equal(t, "EBAY", quote.Platform)
		assert.Equal(t, strategy.DutyModeDDP, quote.Mode)
		assert.True(t, quote.DDP.ProductPrice.GreaterThan(quote.DDU.ProductPrice),
			"DDP carries the duty so it prices above DDU")
	})

	t.Run("unknown sku", func(t *testing.T) {
		w := do(t, engine, http.MethodGet, "/api/v1/price/calculate?sku=NOPE", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ERR_NOT_FOUND", testutil.DecodeResponse(t, w.Body.Bytes()).Error.Code)
	})

	t.Run("determine", func(t *testing.T) {
		w := do(t, engine, http.MethodPost, "/api/v1/strategy/determine-listing", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := testutil.DecodeData[listingapp.DetermineBatchResult](t, w.Body.Bytes())
		assert.Equal(t, 1, result.Summary.Success)
		require.Len(t, result.Items, 1)
		require.NotNil(t, result.Items[0].Decision)
		assert.Equal(t, testutil.FixtureEbayAccount, result.Items[0].Decision.RecommendedAccount)
	})

	t.Run("execute", func(t *testing.T) {
		w := do(t, engine, http.MethodPost, "/api/v1/listing/execute", []byte(`{"limit":10}`), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := testutil.DecodeData[listingapp.ExecuteBatchResult](t, w.Body.Bytes())
		assert.Equal(t, 1, result.Summary.Listed)
		assert.Len(t, ebay.sent(), 1)
	})

	t.Run("status", func(t *testing.T) {
		w := do(t, engine, http.MethodGet, "/api/v1/listing/execute", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		stats := testutil.DecodeData[listing.QueueStats](t, w.Body.Bytes())
		assert.Equal(t, int64(1), stats.RecentSuccess)
	})

	t.Run("rescoring a listed product is rejected", func(t *testing.T) {
		w := do(t, engine, http.MethodGet, "/api/v1/strategy/determine-listing?sku_id=CAM-1", nil, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})
}

func TestAPI_PriceDropWebhook(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB, "CAM-1")
	engine := newAPI(t, testDB, newStack(t, testDB.DB, &recordingAdapter{platform: integration.PlatformCodeEbay}))

	body, err := json.Marshal(listingapp.PriceDropEvent{EventID: "evt-42", SKU: "CAM-1", NewCost: testutil.Dec("10000")})
	require.NoError(t, err)
	signed := map[string]string{middleware.WebhookSignatureHeader: middleware.SignPayload(webhookSecret, body)}

	t.Run("unsigned", func(t *testing.T) {
		w := do(t, engine, http.MethodPost, "/api/v1/webhooks/price-drop", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("first delivery", func(t *testing.T) {
		w := do(t, engine, http.MethodPost, "/api/v1/webhooks/price-drop", body, signed)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := testutil.DecodeData[handler.PriceDropResponse](t, w.Body.Bytes())
		assert.False(t, resp.Duplicate)
		require.NotNil(t, resp.Decision)
		assert.Equal(t, listing.DecisionStatusSuccess, resp.Decision.Status)
	})

	t.Run("redelivery", func(t *testing.T) {
		w := do(t, engine, http.MethodPost, "/api/v1/webhooks/price-drop", body, signed)
		require.Equal(t, http.StatusOK, w.Code)

		resp := testutil.DecodeData[handler.PriceDropResponse](t, w.Body.Bytes())
		assert.True(t, resp.Duplicate)
	})

	products := newStack(t, testDB.DB).products
	product, err := products.FindBySKU(context.Background(), "CAM-1")
	require.NoError(t, err)
	assert.True(t, product.AcquisitionCost.Equal(testutil.Dec("10000")))
}

func TestAPI_ImportReferenceData(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB)
	s := newStack(t, testDB.DB)
	engine := newAPI(t, testDB, s)
	ctx := context.Background()

	upload := func(t *testing.T, path, sheet string) *httptest.ResponseRecorder {
		t.Helper()
		var body bytes.Buffer
		form := multipart.NewWriter(&body)
		part, err := form.CreateFormFile("file", "sheet.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(sheet))
		require.NoError(t, err)
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPost, path, &body)
		req.Header.Set("Content-Type", form.FormDataContentType())
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	t.Run("rate card", func(t *testing.T) {
		w := upload(t, "/api/v1/imports/shipping-rates",
			"service_code,destination,weight_band,base_rate,currency\n"+
				"EMS,US,1,19.50,USD\n"+
				"EMS,US,5,50.00,USD\n")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := testutil.DecodeData[importapp.ImportResult](t, w.Body.Bytes())
		assert.Equal(t, 1, result.UpdatedRows)
		assert.Equal(t, 1, result.ErrorRows)

		rate, err := s.rates.FindRate(ctx, testutil.FixtureService, "US", 1)
		require.NoError(t, err)
		assert.True(t, rate.BaseRate.Equal(testutil.Dec("19.50")))
	})

	t.Run("duty schedule dry run", func(t *testing.T) {
		w := upload(t, "/api/v1/imports/duty-rates?dry_run=true",
			"hs_code,origin_country,base_rate\n9006.53,JP,0.02\n")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := testutil.DecodeData[importapp.ImportResult](t, w.Body.Bytes())
		assert.True(t, result.DryRun)
		assert.Equal(t, 1, result.ImportedRows)

		_, err := s.duties.FindByKey(ctx, "900653", "JP")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duty schedule", func(t *testing.T) {
		w := upload(t, "/api/v1/imports/duty-rates",
			"hs_code,origin_country,base_rate\n9006.53,JP,0.02\n")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		rate, err := s.duties.FindByKey(ctx, "900653", "JP")
		require.NoError(t, err)
		assert.True(t, rate.BaseRate.Equal(testutil.Dec("0.02")))
	})
}
