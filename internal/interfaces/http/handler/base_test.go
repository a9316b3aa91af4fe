package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/interfaces/http/dto"
	"github.com/n3/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// decodeResponse unmarshals the standard envelope
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// decodeData unmarshals the data field of the envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-id")
				c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(c)

			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.Success(c, map[string]string{"sku": "N3-100"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "N3-100", resp.Data.(map[string]any)["sku"])
}

func TestBaseHandlerErrorHelpers(t *testing.T) {
	h := &BaseHandler{}
	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		code   string
	}{
		{"bad request", func(c *gin.Context) { h.BadRequest(c, "bad") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"not found", func(c *gin.Context) { h.NotFound(c, "missing") }, http.StatusNotFound, dto.ErrCodeNotFound},
		{"internal", func(c *gin.Context) { h.InternalError(c, "boom") }, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(middleware.RequestIDKey, "req-1")

			tt.call(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		message     string
		hideMessage string
	}{
		{
			name:    "not found keeps detail",
			err:     shared.WrapError(shared.ErrNotFound, "product N3-404"),
			status:  http.StatusNotFound,
			code:    dto.ErrCodeNotFound,
			message: "product N3-404",
		},
		{
			name:    "invalid input",
			err:     shared.WrapError(shared.ErrInvalidInput, "cost must be positive"),
			status:  http.StatusBadRequest,
			code:    dto.ErrCodeInvalidInput,
			message: "cost must be positive",
		},
		{
			name:   "no route",
			err:    shared.WrapError(shared.ErrNoRoute, "no service to ZZ"),
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeNoRoute,
		},
		{
			name:   "margin unattainable",
			err:    shared.ErrMarginUnattainable,
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeMarginUnattainable,
		},
		{
			name:   "invalid state",
			err:    shared.WrapError(shared.ErrInvalidState, "product is processing"),
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeInvalidState,
		},
		{
			name:   "invalid transition",
			err:    shared.WrapError(shared.ErrInvalidTransition, "listed to pending"),
			status: http.StatusConflict,
			code:   dto.ErrCodeInvalidTransition,
		},
		{
			name:   "concurrency conflict",
			err:    shared.ErrConcurrencyConflict,
			status: http.StatusConflict,
			code:   dto.ErrCodeConcurrencyConflict,
		},
		{
			name:   "adapter rejected",
			err:    shared.WrapError(shared.ErrAdapterRejected, "ebay: invalid category"),
			status: http.StatusBadGateway,
			code:   dto.ErrCodeAdapterRejected,
		},
		{
			name:        "dependency unavailable hides cause",
			err:         shared.Unavailable("find product", errors.New("dial tcp 10.0.0.5:5432: connection refused")),
			status:      http.StatusServiceUnavailable,
			code:        dto.ErrCodeDependencyUnavailable,
			hideMessage: "10.0.0.5",
		},
		{
			name:   "deadline exceeded",
			err:    fmt.Errorf("quote: %w", context.DeadlineExceeded),
			status: http.StatusGatewayTimeout,
			code:   dto.ErrCodeTimeout,
		},
		{
			name:        "unknown error is internal",
			err:         errors.New("nil map write"),
			status:      http.StatusInternalServerError,
			code:        dto.ErrCodeInternal,
			hideMessage: "nil map",
		},
	}

	h := &BaseHandler{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.message != "" {
				assert.Contains(t, resp.Error.Message, tt.message)
			}
			if tt.hideMessage != "" {
				assert.NotContains(t, resp.Error.Message, tt.hideMessage)
			}
		})
	}
}

func TestBaseHandlerHandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.String())
}
