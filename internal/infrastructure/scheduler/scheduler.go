// Package scheduler runs the periodic listing jobs: scoring, dispatch, due
// retries and the stale-claim sweep. Each job runs on its own ticker and never
// overlaps itself.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/n3/backend/internal/infrastructure/logger"
	"github.com/n3/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobStatus represents the status of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc is the body of a periodic job
type JobFunc func(ctx context.Context) error

// Job is a named periodic task. A zero Interval registers the job for manual
// triggering only.
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobRun records one execution of a job
type JobRun struct {
	ID          uuid.UUID  `json:"id"`
	Job         string     `json:"job"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newJobRun(job string, now time.Time) *JobRun {
	return &JobRun{ID: uuid.New(), Job: job, Status: JobStatusRunning, StartedAt: now}
}

// Complete marks the run as successful
func (r *JobRun) Complete(now time.Time) {
	r.Status = JobStatusSuccess
	r.CompletedAt = &now
}

// Fail marks the run as failed
func (r *JobRun) Fail(now time.Time, err string) {
	r.Status = JobStatusFailed
	r.CompletedAt = &now
	r.Error = err
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled    bool
	JobTimeout time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    true,
		JobTimeout: 5 * time.Minute,
	}
}

// Scheduler manages the periodic jobs
type Scheduler struct {
	config SchedulerConfig
	jobs   map[string]Job
	logger *zap.Logger
	clock  func() time.Time

	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	active    map[string]bool
	lastRuns  map[string]JobRun
}

// NewScheduler creates a new scheduler instance. Jobs with an empty name or a
// nil body are rejected.
func NewScheduler(config SchedulerConfig, logger *zap.Logger, jobs ...Job) (*Scheduler, error) {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	s := &Scheduler{
		config:   config,
		jobs:     make(map[string]Job, len(jobs)),
		logger:   logger.Named("scheduler"),
		clock:    func() time.Time { return time.Now().UTC() },
		active:   make(map[string]bool),
		lastRuns: make(map[string]JobRun),
	}
	for _, job := range jobs {
		if job.Name == "" || job.Run == nil {
			return nil, fmt.Errorf("%w: job needs a name and a body", ErrInvalidConfig)
		}
		if job.Interval < 0 {
			return nil, fmt.Errorf("%w: job %s has a negative interval", ErrInvalidConfig, job.Name)
		}
		if _, dup := s.jobs[job.Name]; dup {
			return nil, fmt.Errorf("%w: job %s registered twice", ErrInvalidConfig, job.Name)
		}
		s.jobs[job.Name] = job
	}
	return s, nil
}

// Start starts one ticker loop per periodic job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Interval == 0 {
			continue
		}
		s.wg.Add(1)
		go s.runLoop(runCtx, job)
	}

	s.logger.Info("Scheduler started",
		zap.Strings("jobs", s.JobNames()),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger starts a job immediately in the background
func (s *Scheduler) Trigger(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	if s.active[name] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobAlreadyRunning, name)
	}
	s.active[name] = true
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.execute(ctx, job)
	}()
	return nil
}

// JobNames returns the registered job names, sorted
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastRuns returns the most recent run of every job that has run
func (s *Scheduler) LastRuns() []JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]JobRun, 0, len(s.lastRuns))
	for _, r := range s.lastRuns {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Job < runs[j].Job })
	return runs
}

// IsRunning reports whether the scheduler has been started
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tryAcquire(job.Name) {
				s.logger.Debug("Skipping tick, previous run still active", zap.String("job", job.Name))
				continue
			}
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) tryAcquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[name] {
		return false
	}
	s.active[name] = true
	return true
}

// execute runs a job the caller has already marked active
func (s *Scheduler) execute(ctx context.Context, job Job) {
	run := newJobRun(job.Name, s.clock())
	s.record(run)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	jobCtx, log := logger.WithJob(jobCtx, s.logger, job.Name)

	err := s.safeRun(jobCtx, job)
	if err != nil {
		run.Fail(s.clock(), err.Error())
		log.Error("Job failed", zap.String("run_id", run.ID.String()), zap.Error(err))
	} else {
		run.Complete(s.clock())
		log.Debug("Job completed",
			zap.String("run_id", run.ID.String()),
			zap.Duration("took", run.CompletedAt.Sub(run.StartedAt)),
		)
	}

	s.mu.Lock()
	s.lastRuns[job.Name] = *run
	delete(s.active, job.Name)
	s.mu.Unlock()
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.ProfilingLabelJob: job.Name}, func(ctx context.Context) {
		err = job.Run(ctx)
	})
	return err
}

func (s *Scheduler) record(run *JobRun) {
	s.mu.Lock()
	s.lastRuns[run.Job] = *run
	s.mu.Unlock()
}
