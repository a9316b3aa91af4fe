package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	importapp "github.com/n3/backend/internal/application/import"
	"github.com/n3/backend/internal/domain/shared"
	csvimport "github.com/n3/backend/internal/infrastructure/import"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const rateCard = "service_code,destination,weight_band,base_rate,currency\nEMS,US,1,18,USD\n"

func setupImportRouter(rates, duties *MockSheetImporter) *gin.Engine {
	r := gin.New()
	h := NewImportHandler(rates, duties)
	r.POST("/imports/shipping-rates", h.ImportShippingRates)
	r.POST("/imports/duty-rates", h.ImportDutyRates)
	return r
}

// uploadRequest builds a multipart request carrying content as the "file" part
func uploadRequest(t *testing.T, path, contentType, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="sheet.csv"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestImportHandler_ImportShippingRates(t *testing.T) {
	t.Run("imports the sheet", func(t *testing.T) {
		rates := new(MockSheetImporter)
		rates.On("Import", mock.Anything, rateCard, importapp.Options{ConflictMode: importapp.ConflictModeUpdate}).
			Return(&importapp.ImportResult{TotalRows: 1, ImportedRows: 1}, nil)

		w := httptest.NewRecorder()
		setupImportRouter(rates, new(MockSheetImporter)).
			ServeHTTP(w, uploadRequest(t, "/imports/shipping-rates", "text/csv", rateCard))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got importapp.ImportResult
		decodeData(t, w, &got)
		assert.Equal(t, 1, got.ImportedRows)
		rates.AssertExpectations(t)
	})

	t.Run("dry run with skip", func(t *testing.T) {
		rates := new(MockSheetImporter)
		rates.On("Import", mock.Anything, rateCard, importapp.Options{DryRun: true, ConflictMode: importapp.ConflictModeSkip}).
			Return(&importapp.ImportResult{DryRun: true, TotalRows: 1, SkippedRows: 1}, nil)

		w := httptest.NewRecorder()
		setupImportRouter(rates, new(MockSheetImporter)).
			ServeHTTP(w, uploadRequest(t, "/imports/shipping-rates?dry_run=true&conflict_mode=skip", "", rateCard))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		rates.AssertExpectations(t)
	})

	t.Run("bad options", func(t *testing.T) {
		rates := new(MockSheetImporter)
		engine := setupImportRouter(rates, new(MockSheetImporter))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, uploadRequest(t, "/imports/shipping-rates?dry_run=perhaps", "text/csv", rateCard))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, uploadRequest(t, "/imports/shipping-rates?conflict_mode=merge", "text/csv", rateCard))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		rates.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/imports/shipping-rates", strings.NewReader(""))
		w := httptest.NewRecorder()
		setupImportRouter(new(MockSheetImporter), new(MockSheetImporter)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not a CSV", func(t *testing.T) {
		rates := new(MockSheetImporter)
		w := httptest.NewRecorder()
		setupImportRouter(rates, new(MockSheetImporter)).
			ServeHTTP(w, uploadRequest(t, "/imports/shipping-rates", "image/png", "png"))

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		rates.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sheet rejected", func(t *testing.T) {
		rates := new(MockSheetImporter)
		rates.On("Import", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, shared.WrapError(shared.ErrInvalidInput, "%s", csvimport.ErrMissingColumns.Error()))

		w := httptest.NewRecorder()
		setupImportRouter(rates, new(MockSheetImporter)).
			ServeHTTP(w, uploadRequest(t, "/imports/shipping-rates", "text/csv; charset=utf-8", "service_code\nEMS\n"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImportHandler_ImportDutyRates(t *testing.T) {
	sheet := "hs_code,origin_country,base_rate\n85258030,JP,0.05\n"
	duties := new(MockSheetImporter)
	duties.On("Import", mock.Anything, sheet, mock.Anything).
		Return(&importapp.ImportResult{TotalRows: 1, UpdatedRows: 1}, nil)

	w := httptest.NewRecorder()
	setupImportRouter(new(MockSheetImporter), duties).
		ServeHTTP(w, uploadRequest(t, "/imports/duty-rates", "text/csv", sheet))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got importapp.ImportResult
	decodeData(t, w, &got)
	assert.Equal(t, 1, got.UpdatedRows)
	duties.AssertExpectations(t)
}
