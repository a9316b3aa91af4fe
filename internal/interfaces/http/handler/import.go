package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	importapp "github.com/n3/backend/internal/application/import"
	"github.com/n3/backend/internal/interfaces/http/dto"
)

// maxImportFileSize caps an uploaded sheet at 10MB
const maxImportFileSize = 10 * 1024 * 1024

var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"text/plain":               true,
	"application/octet-stream": true,
	"application/vnd.ms-excel": true,
}

// SheetImporter loads one kind of reference sheet
type SheetImporter interface {
	Import(ctx context.Context, r io.Reader, opts importapp.Options) (*importapp.ImportResult, error)
}

// ImportHandler accepts carrier rate cards and duty schedules as CSV uploads
type ImportHandler struct {
	BaseHandler
	shippingRates SheetImporter
	dutyRates     SheetImporter
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(shippingRates, dutyRates SheetImporter) *ImportHandler {
	return &ImportHandler{shippingRates: shippingRates, dutyRates: dutyRates}
}

// ImportShippingRates godoc
// @ID           importShippingRates
// @Summary      Import a carrier rate card
// @Description  Loads base rates per weight band from a CSV with columns service_code, destination, weight_band, base_rate, currency. Rows for unknown services, unserved destinations or bands past the service's last band are reported and skipped. Accepted rows are written in one batch.
// @Tags         imports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file           formData  file    true   "CSV rate card"
// @Param        dry_run        query     bool    false  "Validate without writing"
// @Param        conflict_mode  query     string  false  "Existing rows"  Enums(update, skip, fail)
// @Success      200 {object} Envelope[importapp.ImportResult]
// @Failure      400 {object} FailureEnvelope
// @Failure      413 {object} FailureEnvelope
// @Failure      415 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /imports/shipping-rates [post]
func (h *ImportHandler) ImportShippingRates(c *gin.Context) {
	h.importSheet(c, h.shippingRates)
}

// ImportDutyRates godoc
// @ID           importDutyRates
// @Summary      Import a duty schedule
// @Description  Loads verified duty rates from a CSV with columns hs_code, origin_country, base_rate and optional surcharge_rate, surcharge_program. HS codes are stored without separators.
// @Tags         imports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file           formData  file    true   "CSV duty schedule"
// @Param        dry_run        query     bool    false  "Validate without writing"
// @Param        conflict_mode  query     string  false  "Existing rows"  Enums(update, skip, fail)
// @Success      200 {object} Envelope[importapp.ImportResult]
// @Failure      400 {object} FailureEnvelope
// @Failure      413 {object} FailureEnvelope
// @Failure      415 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /imports/duty-rates [post]
func (h *ImportHandler) ImportDutyRates(c *gin.Context) {
	h.importSheet(c, h.dutyRates)
}

func (h *ImportHandler) importSheet(c *gin.Context, importer SheetImporter) {
	opts, ok := h.importOptions(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 10MB")
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !csvContentTypes[mediaType] {
			h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "file must be a CSV file")
			return
		}
	}

	result, err := importer.Import(c.Request.Context(), file, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ImportHandler) importOptions(c *gin.Context) (importapp.Options, bool) {
	var opts importapp.Options
	if v := queryTrimmed(c, "dry_run"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			h.BadRequest(c, "dry_run must be a boolean")
			return opts, false
		}
		opts.DryRun = dryRun
	}
	mode, err := importapp.ParseConflictMode(c.Query("conflict_mode"))
	if err != nil {
		h.HandleError(c, err)
		return opts, false
	}
	opts.ConflictMode = mode
	return opts, true
}
