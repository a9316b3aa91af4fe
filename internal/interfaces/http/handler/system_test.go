package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n3/backend/internal/infrastructure/scheduler"
	"github.com/n3/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSystemRouter(h *SystemHandler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/system/scheduler", h.SchedulerStatus)
	r.POST("/system/scheduler/:job/trigger", h.TriggerJob)
	return r
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("n3-pricing", "1.2.0")

	w := httptest.NewRecorder()
	setupSystemRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got HealthResponse
	decodeData(t, w, &got)
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, "n3-pricing", got.Name)
	assert.Equal(t, "1.2.0", got.Version)
	assert.Equal(t, runtime.Version(), got.GoVersion)
	assert.NotEmpty(t, got.Uptime)
}

func okCheck(name string) ReadinessCheck {
	return ReadinessCheck{Name: name, Check: func(context.Context) error { return nil }}
}

func failingCheck(name string, optional bool) ReadinessCheck {
	return ReadinessCheck{Name: name, Optional: optional, Check: func(context.Context) error {
		return errors.New("connection refused")
	}}
}

func TestSystemHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checks     []ReadinessCheck
		wantStatus int
		wantReady  string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantReady:  "ready",
		},
		{
			name:       "all healthy",
			checks:     []ReadinessCheck{okCheck("database"), okCheck("redis")},
			wantStatus: http.StatusOK,
			wantReady:  "ready",
		},
		{
			name:       "optional failure stays ready",
			checks:     []ReadinessCheck{okCheck("database"), failingCheck("redis", true)},
			wantStatus: http.StatusOK,
			wantReady:  "ready",
		},
		{
			name:       "required failure",
			checks:     []ReadinessCheck{failingCheck("database", false), okCheck("redis")},
			wantStatus: http.StatusServiceUnavailable,
			wantReady:  "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("n3-pricing", "dev", WithReadinessChecks(tt.checks...))

			w := httptest.NewRecorder()
			setupSystemRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var got struct {
				Data ReadinessResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantReady, got.Data.Status)
			require.Len(t, got.Data.Checks, len(tt.checks))
			for i, check := range tt.checks {
				assert.Equal(t, check.Name, got.Data.Checks[i].Name)
			}
		})
	}
}

func TestSystemHandler_ReadyTimeout(t *testing.T) {
	slow := ReadinessCheck{Name: "database", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	h := NewSystemHandler("n3-pricing", "dev", WithReadinessChecks(slow), WithReadinessTimeout(20*time.Millisecond))

	w := httptest.NewRecorder()
	setupSystemRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "deadline exceeded")
}

func TestSystemHandler_SchedulerStatus(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := NewSystemHandler("n3-pricing", "dev")

		w := httptest.NewRecorder()
		setupSystemRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/scheduler", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got SchedulerStatusResponse
		decodeData(t, w, &got)
		assert.False(t, got.Enabled)
		assert.Empty(t, got.Jobs)
	})

	t.Run("running", func(t *testing.T) {
		s := new(MockJobScheduler)
		s.On("IsRunning").Return(true)
		s.On("JobNames").Return([]string{"listing_execution", "strategy_determination"})
		s.On("LastRuns").Return([]scheduler.JobRun{{Job: "listing_execution", Status: scheduler.JobStatusSuccess}})
		h := NewSystemHandler("n3-pricing", "dev", WithScheduler(s))

		w := httptest.NewRecorder()
		setupSystemRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/scheduler", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got SchedulerStatusResponse
		decodeData(t, w, &got)
		assert.True(t, got.Enabled)
		assert.True(t, got.Running)
		assert.Len(t, got.Jobs, 2)
		require.Len(t, got.LastRuns, 1)
		assert.Equal(t, scheduler.JobStatusSuccess, got.LastRuns[0].Status)
	})
}

func TestSystemHandler_TriggerJob(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "accepted", status: http.StatusAccepted},
		{name: "unknown job", err: scheduler.ErrJobNotFound, status: http.StatusNotFound, code: dto.ErrCodeNotFound},
		{name: "already running", err: scheduler.ErrJobAlreadyRunning, status: http.StatusConflict, code: dto.ErrCodeConflict},
		{name: "scheduler stopped", err: scheduler.ErrSchedulerNotRunning, status: http.StatusServiceUnavailable, code: dto.ErrCodeDependencyUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockJobScheduler)
			s.On("Trigger", "listing_execution").Return(tt.err)
			h := NewSystemHandler("n3-pricing", "dev", WithScheduler(s))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/system/scheduler/listing_execution/trigger", nil)
			setupSystemRouter(h).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				resp := decodeResponse(t, w)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.code, resp.Error.Code)
			}
			s.AssertExpectations(t)
		})
	}

	t.Run("scheduler disabled", func(t *testing.T) {
		h := NewSystemHandler("n3-pricing", "dev")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/system/scheduler/listing_execution/trigger", nil)
		setupSystemRouter(h).ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
