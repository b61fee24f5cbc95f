// Package weather fetches weather snapshots from the upstream API and keeps
// the last good one in the local cache for offline fallback.
package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

// ErrNoCachedWeather is returned when no snapshot has been cached yet.
var ErrNoCachedWeather = errors.New("no cached weather")

// Upstream is the remote weather API.
type Upstream interface {
	Current(ctx context.Context, p domain.GridPoint) (domain.CurrentResponse, error)
	Hourly(ctx context.Context, p domain.GridPoint) (domain.HourlyResponse, error)
	Weekly(ctx context.Context, p domain.GridPoint) (domain.WeeklyResponse, error)
	NearbyCCTV(ctx context.Context, lat, lng float64) (domain.CCTV, error)
}

// CacheStore persists the single cached snapshot.
type CacheStore interface {
	UpsertWeatherCache(ctx context.Context, c domain.WeatherCache) error
	GetWeatherCache(ctx context.Context) (*domain.WeatherCache, error)
	ClearWeatherCache(ctx context.Context) error
}

// Repository merges the upstream API and the local cache.
type Repository struct {
	api         Upstream
	cache       CacheStore
	geocoder    domain.Geocoder
	iconBaseURL string
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewRepository creates a Repository. geocoder may be nil, in which case
// snapshots carry no address.
func NewRepository(api Upstream, cache CacheStore, geocoder domain.Geocoder, iconBaseURL string, metrics *observability.Metrics, logger *slog.Logger) *Repository {
	return &Repository{
		api:         api,
		cache:       cache,
		geocoder:    geocoder,
		iconBaseURL: iconBaseURL,
		metrics:     metrics,
		logger:      logger,
	}
}

// Fetch retrieves a fresh snapshot for lat/lon and stores it in the cache.
// The three forecast requests run concurrently; any failure fails the fetch.
// A failed cache write is logged and does not fail the fetch.
func (r *Repository) Fetch(ctx context.Context, lat, lon float64, tempAdjustment int) (domain.WeatherState, error) {
	grid := domain.ToGrid(lat, lon)

	var f domain.Forecast
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		f.Current, err = r.api.Current(gctx, grid)
		return err
	})
	g.Go(func() (err error) {
		f.Hourly, err = r.api.Hourly(gctx, grid)
		return err
	})
	g.Go(func() (err error) {
		f.Weekly, err = r.api.Weekly(gctx, grid)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.WeatherState{}, fmt.Errorf("fetch weather for grid %d,%d: %w", grid.NX, grid.NY, err)
	}

	state := domain.BuildWeatherState(f, domain.SnapshotOptions{
		Lat:            lat,
		Lon:            lon,
		TempAdjustment: tempAdjustment,
		IconBaseURL:    r.iconBaseURL,
	})
	state.Address = r.resolveAddress(ctx, lat, lon)

	r.store(ctx, state)
	return state, nil
}

// Cached returns the cached snapshot, or ErrNoCachedWeather.
func (r *Repository) Cached(ctx context.Context) (domain.WeatherState, error) {
	c, err := r.cache.GetWeatherCache(ctx)
	if err != nil {
		return domain.WeatherState{}, fmt.Errorf("read weather cache: %w", err)
	}
	if c == nil {
		return domain.WeatherState{}, ErrNoCachedWeather
	}
	return c.State()
}

// ClearCache drops the cached snapshot. Later fetch failures have nothing to
// fall back to until the next successful fetch.
func (r *Repository) ClearCache(ctx context.Context) error {
	if err := r.cache.ClearWeatherCache(ctx); err != nil {
		return fmt.Errorf("clear weather cache: %w", err)
	}
	r.logger.Info("weather cache cleared")
	return nil
}

// Get fetches a fresh snapshot and falls back to the cached one, marked
// Stale, when the fetch fails. The error is returned only when both fail.
func (r *Repository) Get(ctx context.Context, lat, lon float64, tempAdjustment int) (domain.WeatherState, error) {
	state, fetchErr := r.Fetch(ctx, lat, lon, tempAdjustment)
	if fetchErr == nil {
		return state, nil
	}

	cached, err := r.Cached(ctx)
	if err != nil {
		return domain.WeatherState{}, errors.Join(fetchErr, err)
	}

	r.metrics.CacheFallbacks.Inc()
	r.logger.Warn("weather fetch failed, serving cached snapshot",
		"error", fetchErr,
		"cached_at", cached.LastUpdated,
	)
	cached.Stale = true
	return cached, nil
}

// NearbyCCTV returns the traffic camera closest to lat/lon.
func (r *Repository) NearbyCCTV(ctx context.Context, lat, lon float64) (domain.CCTV, error) {
	cctv, err := r.api.NearbyCCTV(ctx, lat, lon)
	if err != nil {
		return domain.CCTV{}, fmt.Errorf("nearby cctv: %w", err)
	}
	return cctv, nil
}

func (r *Repository) resolveAddress(ctx context.Context, lat, lon float64) string {
	if r.geocoder == nil {
		return ""
	}
	res, err := r.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		r.logger.Warn("reverse geocode failed", "error", err, "lat", lat, "lon", lon)
		return ""
	}
	return res.FormattedAddress
}

func (r *Repository) store(ctx context.Context, state domain.WeatherState) {
	c, err := domain.NewWeatherCache(state)
	if err == nil {
		err = r.cache.UpsertWeatherCache(ctx, c)
	}
	if err != nil {
		r.metrics.CacheWriteErrors.Inc()
		r.logger.Warn("weather cache write failed", "error", err)
	}
}
