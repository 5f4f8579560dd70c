package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 5 * time.Minute
	releaseTimeout    = 5 * time.Second
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	// Interval between cycles. Defaults to one hour.
	Interval time.Duration
	// JobTimeout bounds a single job run. Defaults to five minutes.
	JobTimeout time.Duration
}

// Service runs the registered jobs once per cycle. A cycle only runs on the
// replica that wins the lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run starts with an immediate cycle and repeats every interval until ctx is
// canceled, returning ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sweeper.stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single cycle and reports whether this replica ran it.
// Cycle failures are logged.
func (s *Service) RunOnce(ctx context.Context) bool {
	ctx = s.logg.WithField(ctx, "cycle_id", uuid.NewString())
	ran, err := s.runCycle(ctx)
	if err != nil {
		s.logg.Error(ctx, "sweeper.cycle_failed", err)
	}
	return ran
}

func (s *Service) runCycle(ctx context.Context) (bool, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "sweeper.cycle_skipped_locked")
		return false, nil
	}
	defer s.release(ctx)

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return true, nil
}

// release runs on a fresh context: shutdown cancels ctx, and a lock left
// behind would block other replicas until its TTL ends.
func (s *Service) release(ctx context.Context) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(releaseCtx); err != nil {
		s.logg.Error(ctx, "sweeper.lock_release_failed", err)
	}
}

// runJob records the outcome of one job. A failing job does not stop the cycle.
func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", name), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)

	s.metrics.ObserveDuration(name, elapsed)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "sweeper.job_failed", err)
		return
	}
	s.metrics.IncSuccess(name)
	s.logg.Info(jobCtx, "sweeper.job_completed")
}
