// Package notify delivers worker notifications to one or more sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Sink is a named Notifier, so failures can be attributed in logs and
// metrics.
type Sink struct {
	Name     string
	Notifier Notifier
}

// LogNotifier writes notifications to the structured log. It is always
// enabled so every notification leaves a trace.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n at info level.
func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	l.logger.Info("notification",
		"id", n.ID,
		"kind", n.Kind,
		"title", n.Title,
		"body", n.Body,
		"created_at", n.CreatedAt,
	)
	return nil
}

// PartialError is returned by Fanout when a notification reached at least
// one sink but not all of them. Callers should treat the notification as
// sent; resending would duplicate it on the sinks that succeeded.
type PartialError struct {
	Failed []string
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("delivery failed on %s: %v", strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Fanout sends each notification to every sink. A failing sink does not stop
// delivery to the others. When every sink fails the failures are joined into
// the returned error; when only some fail a *PartialError is returned.
type Fanout struct {
	sinks   []Sink
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFanout creates a Fanout over sinks.
func NewFanout(metrics *observability.Metrics, logger *slog.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, metrics: metrics, logger: logger}
}

// Notify delivers n to every sink.
func (f *Fanout) Notify(ctx context.Context, n domain.Notification) error {
	var (
		errs      []error
		failed    []string
		delivered int
	)
	for _, s := range f.sinks {
		if err := s.Notifier.Notify(ctx, n); err != nil {
			f.metrics.Notifications.WithLabelValues(n.Kind, s.Name, "error").Inc()
			f.logger.Error("notification delivery failed", "sink", s.Name, "id", n.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			failed = append(failed, s.Name)
			continue
		}
		delivered++
		f.metrics.Notifications.WithLabelValues(n.Kind, s.Name, "success").Inc()
	}
	if len(errs) == 0 {
		return nil
	}
	if delivered > 0 {
		return &PartialError{Failed: failed, Err: errors.Join(errs...)}
	}
	return errors.Join(errs...)
}

// Sinks returns the names of the configured sinks.
func (f *Fanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name
	}
	return names
}
