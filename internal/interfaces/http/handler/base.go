// Package handler holds the gin handlers of the pricing and listing API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/infrastructure/logger"
	"github.com/n3/backend/internal/interfaces/http/dto"
	"github.com/n3/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID prefers the id set by the RequestID middleware and falls back to the header
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError writes the binding error as a 400 with per-field details
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError maps err to a response. Domain errors keep their code and detail;
// an unavailable dependency hides its cause from the client and is logged instead.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)
	log := logger.L(c.Request.Context())

	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Request deadline exceeded", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeTimeout, "Request timed out", requestID))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		message := err.Error()
		if errors.Is(err, shared.ErrDependencyUnavailable) {
			log.Error("Dependency unavailable", zap.Error(err))
			message = domainErr.Message
		} else if status >= http.StatusInternalServerError {
			log.Error("Request failed", zap.String("code", code), zap.Error(err))
		}
		c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID))
		return
	}

	log.Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}

// Envelope documents the body every pricing and listing endpoint returns on success.
// Handlers write dto.Response; this type only gives swag a typed data field.
type Envelope[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data,omitempty"`
}

// FailureEnvelope documents an error body: the domain code (NO_ROUTE,
// MARGIN_UNATTAINABLE, DEPENDENCY_UNAVAILABLE, ...) plus the request id.
type FailureEnvelope struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
