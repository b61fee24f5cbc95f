package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// BriefingTitle is the title of the alarm briefing notification.
const BriefingTitle = "Today's weather briefing"

const (
	// precipitationSlots is how many hourly slots count as "soon".
	precipitationSlots = 3
	windyMs            = 4.0
	defaultFeelsLike   = 20
)

// WeatherSource fetches fresh weather snapshots.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64, tempAdjustment int) (domain.WeatherState, error)
}

// Preferences is the subset of the settings service the workers use.
type Preferences interface {
	LocationPrefs
	Notifications(ctx context.Context) (domain.NotificationSettings, error)
	TempAdjustment(ctx context.Context) (int, error)
	LastAlertTime(ctx context.Context) (time.Time, error)
	SetLastAlertTime(ctx context.Context, t time.Time) error
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// BriefingWorker sends the morning briefing: current conditions, what to
// wear, fine dust and whether rain or snow is coming.
type BriefingWorker struct {
	weather  WeatherSource
	prefs    Preferences
	locator  *Locator
	notifier Notifier
	logger   *slog.Logger
}

// NewBriefingWorker creates a BriefingWorker.
func NewBriefingWorker(weather WeatherSource, prefs Preferences, locator *Locator, notifier Notifier, logger *slog.Logger) *BriefingWorker {
	return &BriefingWorker{weather: weather, prefs: prefs, locator: locator, notifier: notifier, logger: logger}
}

// Run fetches the weather and sends one briefing.
func (w *BriefingWorker) Run(ctx context.Context) error {
	sw, err := w.prefs.Notifications(ctx)
	if err != nil {
		return fmt.Errorf("read notification switches: %w", err)
	}
	if !sw.BriefingsAllowed() {
		return fmt.Errorf("%w: alarm briefings are switched off", ErrSkipped)
	}

	loc, err := w.locator.Resolve(ctx)
	if err != nil {
		return err
	}
	adj, err := w.prefs.TempAdjustment(ctx)
	if err != nil {
		return fmt.Errorf("read temperature adjustment: %w", err)
	}

	state, err := w.weather.Fetch(ctx, loc.Lat, loc.Lon, adj)
	if err != nil {
		return fmt.Errorf("briefing: %w", err)
	}
	if err := w.prefs.SetLastLocation(ctx, loc); err != nil {
		w.logger.Warn("save last location failed", "error", err)
	}

	n := domain.NewNotification(domain.KindBriefing, BriefingTitle, BriefingBody(state, domain.Now().Month()))
	if err := w.notifier.Notify(ctx, n); err != nil {
		if !partiallyDelivered(err) {
			return fmt.Errorf("send briefing: %w", err)
		}
		w.logger.Warn("briefing reached only some sinks", "id", n.ID, "error", err)
	}
	return nil
}

// BriefingBody renders the briefing text for a snapshot.
func BriefingBody(s domain.WeatherState, month time.Month) string {
	clothes, soon := WhatToWear(s)

	var b strings.Builder
	fmt.Fprintf(&b, "It is %s with %s skies.\n", s.Current.Temperature, s.Current.Description)
	if len(clothes) > 0 {
		fmt.Fprintf(&b, "\nWhat to wear: %s\n", strings.Join(clothes, ", "))
	}
	fmt.Fprintf(&b, "\n• PM10: %s", domain.PM10Status(s.Details.PM10))
	if soon {
		fmt.Fprintf(&b, "\n• Rain or snow expected within %d hours.", precipitationSlots)
	}
	if summary := domain.Summarize(s, month); summary != "" {
		b.WriteString("\n" + summary)
	}
	return b.String()
}

// WhatToWear recommends clothing for a snapshot and reports whether rain or
// snow is expected in the next few hours.
func WhatToWear(s domain.WeatherState) ([]string, bool) {
	soon := domain.PrecipitationSoon(s.Hourly, precipitationSlots)
	windy := leadingFloat(s.Details.Wind) >= windyMs
	return domain.RecommendClothing(leadingInt(s.Current.FeelsLike, defaultFeelsLike), soon, windy), soon
}

// leadingInt parses display values such as "-3°", returning def when there is
// no number.
func leadingInt(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "°")))
	if err != nil {
		return def
	}
	return v
}

// leadingFloat parses the number in values such as "2.5 m/s".
func leadingFloat(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}
