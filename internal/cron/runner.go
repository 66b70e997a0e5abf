package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// Job is a scheduled task executed by the cron runner.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// RunnerParams configure the cron runner.
type RunnerParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Runner executes the registered jobs on a fixed cadence. A Redis lock
// keeps concurrent worker replicas from sweeping the same orders.
type Runner struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// NewRunner builds a cron runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job == nil {
			continue
		}
		jobs = append(jobs, job)
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.runCycle(ctx); err != nil {
		r.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "cron runner stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.runCycle(ctx); err != nil {
				r.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) error {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		r.logg.Info(ctx, "another worker holds the cron lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := r.lock.Release(ctx); relErr != nil {
			r.logg.Error(ctx, "release cron lock", relErr)
		}
	}()

	var errs []error
	for _, job := range r.jobs {
		if err := r.runJob(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (r *Runner) runJob(ctx context.Context, job Job) error {
	jobCtx := r.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveDuration(job.Name(), duration)
	}
	jobCtx = r.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		r.logg.Error(jobCtx, "job failed", err)
		if r.metrics != nil {
			r.metrics.IncFailure(job.Name())
		}
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	r.logg.Info(jobCtx, "job completed")
	if r.metrics != nil {
		r.metrics.IncSuccess(job.Name())
	}
	return nil
}
