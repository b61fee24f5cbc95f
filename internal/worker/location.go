package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// ErrNoLocation is returned when no source can supply a location.
var ErrNoLocation = errors.New("no location available")

// LocationPrefs stores the last location the user looked up.
type LocationPrefs interface {
	LastLocation(ctx context.Context) (domain.Location, bool, error)
	SetLastLocation(ctx context.Context, loc domain.Location) error
}

// CachedWeather exposes the cached weather snapshot.
type CachedWeather interface {
	Cached(ctx context.Context) (domain.WeatherState, error)
}

// Locator decides where the background workers fetch weather for. Sources
// are tried in order: the saved last location, the cached snapshot's
// coordinates (saved for next time), and the configured default.
type Locator struct {
	prefs    LocationPrefs
	cache    CachedWeather
	fallback *domain.Location
	logger   *slog.Logger
}

// NewLocator creates a Locator. fallback may be nil.
func NewLocator(prefs LocationPrefs, cache CachedWeather, fallback *domain.Location, logger *slog.Logger) *Locator {
	return &Locator{prefs: prefs, cache: cache, fallback: fallback, logger: logger}
}

// Resolve returns the best known location or ErrNoLocation.
func (l *Locator) Resolve(ctx context.Context) (domain.Location, error) {
	loc, ok, err := l.prefs.LastLocation(ctx)
	if err != nil {
		l.logger.Warn("read last location failed", "error", err)
	} else if ok {
		return loc, nil
	}

	state, err := l.cache.Cached(ctx)
	if err == nil && (state.Latitude != 0 || state.Longitude != 0) {
		loc = domain.Location{Lat: state.Latitude, Lon: state.Longitude}
		if err := l.prefs.SetLastLocation(ctx, loc); err != nil {
			l.logger.Warn("save last location failed", "error", err)
		}
		return loc, nil
	}

	if l.fallback != nil {
		return *l.fallback, nil
	}
	return domain.Location{}, ErrNoLocation
}
