package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/notify"
)

// Smart alert text.
const (
	SmartAlertTitle = "Smart weather alert"
	SmartAlertBody  = "Rain or snow is expected within 3 hours. Take an umbrella!"
)

// SmartAlertWorker warns about precipitation in the next few hours, at most
// once per minimum gap.
type SmartAlertWorker struct {
	weather  WeatherSource
	prefs    Preferences
	locator  *Locator
	notifier Notifier
	minGap   time.Duration
	logger   *slog.Logger
}

// NewSmartAlertWorker creates a SmartAlertWorker.
func NewSmartAlertWorker(weather WeatherSource, prefs Preferences, locator *Locator, notifier Notifier, minGap time.Duration, logger *slog.Logger) *SmartAlertWorker {
	return &SmartAlertWorker{
		weather:  weather,
		prefs:    prefs,
		locator:  locator,
		notifier: notifier,
		minGap:   minGap,
		logger:   logger,
	}
}

// Run checks the forecast and sends an alert if rain or snow is near.
func (w *SmartAlertWorker) Run(ctx context.Context) error {
	sw, err := w.prefs.Notifications(ctx)
	if err != nil {
		return fmt.Errorf("read notification switches: %w", err)
	}
	if !sw.SmartAlertsAllowed() {
		return fmt.Errorf("%w: smart alerts are switched off", ErrSkipped)
	}

	loc, err := w.locator.Resolve(ctx)
	if err != nil {
		return err
	}
	// Smart alerts only look at precipitation, so no feels-like adjustment.
	state, err := w.weather.Fetch(ctx, loc.Lat, loc.Lon, 0)
	if err != nil {
		return fmt.Errorf("smart alert: %w", err)
	}
	if err := w.prefs.SetLastLocation(ctx, loc); err != nil {
		w.logger.Warn("save last location failed", "error", err)
	}

	if !domain.PrecipitationSoon(state.Hourly, precipitationSlots) {
		return nil
	}

	now := domain.Now()
	last, err := w.prefs.LastAlertTime(ctx)
	if err != nil {
		return fmt.Errorf("read last alert time: %w", err)
	}
	if !last.IsZero() && now.Sub(last) < w.minGap {
		return fmt.Errorf("%w: last alert sent at %s", ErrSkipped, last.Format(time.RFC3339))
	}

	n := domain.NewNotification(domain.KindSmartAlert, SmartAlertTitle, SmartAlertBody)
	if err := w.notifier.Notify(ctx, n); err != nil {
		if !partiallyDelivered(err) {
			return fmt.Errorf("send smart alert: %w", err)
		}
		w.logger.Warn("smart alert reached only some sinks", "id", n.ID, "error", err)
	}
	if err := w.prefs.SetLastAlertTime(ctx, now); err != nil {
		return fmt.Errorf("record alert time: %w", err)
	}
	return nil
}

// partiallyDelivered reports whether err still means the notification reached
// at least one sink. Such runs count as sent and are not retried.
func partiallyDelivered(err error) bool {
	var partial *notify.PartialError
	return errors.As(err, &partial)
}
