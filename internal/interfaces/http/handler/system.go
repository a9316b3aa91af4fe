package handler

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n3/backend/internal/infrastructure/logger"
	"github.com/n3/backend/internal/infrastructure/scheduler"
	"github.com/n3/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultReadinessTimeout bounds all readiness checks together
const DefaultReadinessTimeout = 3 * time.Second

// ReadinessCheck is one dependency checked by GET /health/ready
type ReadinessCheck struct {
	Name string
	// Optional checks are reported but do not fail readiness
	Optional bool
	Check    func(ctx context.Context) error
}

// JobScheduler is the background scheduler as seen by the system endpoints
type JobScheduler interface {
	Trigger(name string) error
	JobNames() []string
	LastRuns() []scheduler.JobRun
	IsRunning() bool
}

// SystemHandler serves health, readiness and scheduler endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    []ReadinessCheck
	timeout   time.Duration
	scheduler JobScheduler
}

// SystemOption configures a SystemHandler
type SystemOption func(*SystemHandler)

// WithReadinessChecks registers dependency checks
func WithReadinessChecks(checks ...ReadinessCheck) SystemOption {
	return func(h *SystemHandler) {
		h.checks = append(h.checks, checks...)
	}
}

// WithReadinessTimeout overrides DefaultReadinessTimeout
func WithReadinessTimeout(d time.Duration) SystemOption {
	return func(h *SystemHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithScheduler exposes the background scheduler
func WithScheduler(s JobScheduler) SystemOption {
	return func(h *SystemHandler) {
		h.scheduler = s
	}
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, opts ...SystemOption) *SystemHandler {
	h := &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultReadinessTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Name      string `json:"name" example:"n3-pricing"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @ID           getHealth
// @Summary      Liveness check
// @Description  Returns 200 while the process is serving requests. Dependencies are not checked.
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "healthy",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// CheckResult is the outcome of one readiness check
type CheckResult struct {
	Name     string `json:"name" example:"database"`
	Healthy  bool   `json:"healthy" example:"true"`
	Optional bool   `json:"optional,omitempty"`
	Latency  string `json:"latency" example:"2ms"`
	Error    string `json:"error,omitempty"`
}

// ReadinessResponse is the readiness payload
type ReadinessResponse struct {
	Status string        `json:"status" example:"ready"`
	Checks []CheckResult `json:"checks"`
}

// Ready godoc
// @ID           getReadiness
// @Summary      Readiness check
// @Description  Checks the database, cache and other registered dependencies. Returns 503 when a required dependency fails.
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[ReadinessResponse]
// @Failure      503 {object} Envelope[ReadinessResponse]
// @Router       /health/ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make([]CheckResult, len(h.checks))
	var g errgroup.Group
	for i, check := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := check.Check(ctx)
			results[i] = CheckResult{
				Name:     check.Name,
				Healthy:  err == nil,
				Optional: check.Optional,
				Latency:  time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: results}
	for _, r := range results {
		if r.Healthy {
			continue
		}
		logger.L(ctx).Warn("Readiness check failed",
			zap.String("check", r.Name),
			zap.Bool("optional", r.Optional),
			zap.String("error", r.Error))
		if !r.Optional {
			resp.Status = "not_ready"
		}
	}

	if resp.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	h.Success(c, resp)
}

// SchedulerStatusResponse describes the background scheduler
type SchedulerStatusResponse struct {
	Enabled  bool               `json:"enabled"`
	Running  bool               `json:"running"`
	Jobs     []string           `json:"jobs"`
	LastRuns []scheduler.JobRun `json:"last_runs"`
}

// SchedulerStatus godoc
// @ID           getSchedulerStatus
// @Summary      Scheduler status
// @Description  Lists scheduled jobs and their most recent runs
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[SchedulerStatusResponse]
// @Router       /system/scheduler [get]
func (h *SystemHandler) SchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		h.Success(c, SchedulerStatusResponse{Jobs: []string{}, LastRuns: []scheduler.JobRun{}})
		return
	}
	runs := h.scheduler.LastRuns()
	if runs == nil {
		runs = []scheduler.JobRun{}
	}
	h.Success(c, SchedulerStatusResponse{
		Enabled:  true,
		Running:  h.scheduler.IsRunning(),
		Jobs:     h.scheduler.JobNames(),
		LastRuns: runs,
	})
}

// TriggerJobResponse acknowledges a manual trigger
type TriggerJobResponse struct {
	Job       string `json:"job" example:"listing_execution"`
	Triggered bool   `json:"triggered" example:"true"`
}

// TriggerJob godoc
// @ID           triggerSchedulerJob
// @Summary      Run a job now
// @Description  Starts a scheduled job outside its interval. The run happens in the background.
// @Tags         system
// @Produce      json
// @Param        job path string true "Job name"
// @Success      202 {object} Envelope[TriggerJobResponse]
// @Failure      404 {object} FailureEnvelope
// @Failure      409 {object} FailureEnvelope "Job already running"
// @Failure      503 {object} FailureEnvelope "Scheduler not running"
// @Router       /system/scheduler/{job}/trigger [post]
func (h *SystemHandler) TriggerJob(c *gin.Context) {
	name := c.Param("job")
	if h.scheduler == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeDependencyUnavailable, "Scheduler is disabled")
		return
	}

	err := h.scheduler.Trigger(name)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, dto.NewSuccessResponse(TriggerJobResponse{Job: name, Triggered: true}))
	case errors.Is(err, scheduler.ErrJobNotFound):
		h.NotFound(c, "Unknown job: "+name)
	case errors.Is(err, scheduler.ErrJobAlreadyRunning):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "Job is already running: "+name)
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeDependencyUnavailable, "Scheduler is not running")
	default:
		h.HandleError(c, err)
	}
}
