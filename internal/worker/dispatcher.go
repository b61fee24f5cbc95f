package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

var (
	// ErrUnknownJob is returned by Enqueue for names that were never registered.
	ErrUnknownJob = errors.New("unknown job")

	// ErrQueueFull is returned by Enqueue when the queue has no room.
	ErrQueueFull = errors.New("job queue full")
)

// Dispatcher runs named jobs on demand, one at a time, from a bounded queue.
type Dispatcher struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	queue   chan string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher holding at most size pending jobs.
func NewDispatcher(size int, metrics *observability.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:    make(map[string]Job),
		queue:   make(chan string, size),
		metrics: metrics,
		logger:  logger,
	}
}

// Register makes job available under name.
func (d *Dispatcher) Register(name string, job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs[name] = job
}

// Enqueue queues a run of the named job without blocking.
func (d *Dispatcher) Enqueue(name string) error {
	d.mu.RLock()
	_, ok := d.jobs[name]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	select {
	case d.queue <- name:
		d.logger.Debug("job queued", "job", name)
		return nil
	default:
		return fmt.Errorf("%w: dropping %q", ErrQueueFull, name)
	}
}

// Run consumes the queue until the context is cancelled. Pending jobs are
// dropped on shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "queue_size", cap(d.queue))
	d.metrics.WorkerRunning.WithLabelValues("dispatcher").Set(1)
	defer d.metrics.WorkerRunning.WithLabelValues("dispatcher").Set(0)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", ctx.Err(), "pending", len(d.queue))
			return nil
		case name := <-d.queue:
			d.mu.RLock()
			job := d.jobs[name]
			d.mu.RUnlock()
			_ = execute(ctx, name, job, d.metrics, d.logger)
		}
	}
}
