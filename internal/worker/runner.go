// Package worker runs the background jobs: the weather briefing and the
// smart precipitation alert. Jobs run either on a fixed interval (Runner) or
// on demand through a bounded queue (Dispatcher).
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

// Job names accepted by the Dispatcher.
const (
	JobBriefing   = "briefing"
	JobSmartAlert = "smart-alert"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxRetries     = 3
)

// ErrSkipped is wrapped by jobs that chose not to do anything, for example
// because notifications are switched off. Skipped runs are not retried.
var ErrSkipped = errors.New("job skipped")

// Job is one unit of background work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

// Run calls f.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Runner executes a job immediately and then on every tick of a fixed
// interval. Failed runs are retried with exponential backoff a bounded number
// of times before waiting for the next tick.
type Runner struct {
	name     string
	job      Job
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	backoff    time.Duration
	maxBackoff time.Duration
	retries    int
}

// NewRunner creates a Runner for job.
func NewRunner(name string, job Job, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		name:       name,
		job:        job,
		interval:   interval,
		logger:     logger.With("worker", name),
		metrics:    metrics,
		backoff:    initialBackoff,
		maxBackoff: maxBackoff,
		retries:    maxRetries,
	}
}

// Run loops until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("worker started", "interval", r.interval)
	r.metrics.WorkerRunning.WithLabelValues(r.name).Set(1)
	defer r.metrics.WorkerRunning.WithLabelValues(r.name).Set(0)

	ticker := domain.Clock().NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.runWithRetry(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("worker stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func (r *Runner) runWithRetry(ctx context.Context) {
	backoff := r.backoff
	for attempt := 0; ; attempt++ {
		err := execute(ctx, r.name, r.job, r.metrics, r.logger)
		if err == nil || ctx.Err() != nil {
			return
		}
		if attempt >= r.retries {
			r.logger.Error("worker giving up until next tick", "attempts", attempt+1, "error", err)
			return
		}
		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, r.maxBackoff)
	}
}

// execute runs job once and records the outcome. Skipped runs report nil.
func execute(ctx context.Context, name string, job Job, metrics *observability.Metrics, logger *slog.Logger) error {
	start := domain.Now()
	err := job.Run(ctx)
	switch {
	case err == nil:
		metrics.WorkerRuns.WithLabelValues(name, "success").Inc()
		logger.Info("job finished", "job", name, "duration", domain.Now().Sub(start))
		return nil
	case errors.Is(err, ErrSkipped):
		metrics.WorkerRuns.WithLabelValues(name, "skipped").Inc()
		logger.Info("job skipped", "job", name, "reason", err)
		return nil
	default:
		metrics.WorkerRuns.WithLabelValues(name, "error").Inc()
		logger.Error("job failed", "job", name, "error", err)
		return err
	}
}

// sleepWithContext waits on the package clock rather than a real timer so
// tests can drive retries with a fake clock.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := domain.Clock().NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
