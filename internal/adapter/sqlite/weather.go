package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// UpsertWeatherCache replaces the single cached snapshot.
func (s *Store) UpsertWeatherCache(ctx context.Context, c domain.WeatherCache) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO weather_cache (
			id,
			current_icon_url, current_temperature, current_description,
			current_max_temp, current_min_temp, current_feels_like,
			details_feels_like, details_humidity, details_precipitation, details_wind,
			details_pm10, details_pressure, details_visibility, details_uv_index,
			hourly_forecast_json, weekly_forecast_json,
			latitude, longitude, address, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		domain.WeatherCacheID,
		c.CurrentIconURL, c.CurrentTemperature, c.CurrentDescription,
		c.CurrentMaxTemp, c.CurrentMinTemp, c.CurrentFeelsLike,
		c.DetailsFeelsLike, c.DetailsHumidity, c.DetailsPrecipitation, c.DetailsWind,
		c.DetailsPM10, c.DetailsPressure, c.DetailsVisibility, c.DetailsUVIndex,
		c.HourlyJSON, c.WeeklyJSON,
		c.Latitude, c.Longitude, c.Address, c.LastUpdated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert weather cache: %w", err)
	}
	return nil
}

// GetWeatherCache returns the cached snapshot, or nil when nothing is cached.
func (s *Store) GetWeatherCache(ctx context.Context) (*domain.WeatherCache, error) {
	var (
		c       domain.WeatherCache
		updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id,
			current_icon_url, current_temperature, current_description,
			current_max_temp, current_min_temp, current_feels_like,
			details_feels_like, details_humidity, details_precipitation, details_wind,
			details_pm10, details_pressure, details_visibility, details_uv_index,
			hourly_forecast_json, weekly_forecast_json,
			latitude, longitude, address, last_updated
		FROM weather_cache WHERE id = ?`, domain.WeatherCacheID,
	).Scan(
		&c.ID,
		&c.CurrentIconURL, &c.CurrentTemperature, &c.CurrentDescription,
		&c.CurrentMaxTemp, &c.CurrentMinTemp, &c.CurrentFeelsLike,
		&c.DetailsFeelsLike, &c.DetailsHumidity, &c.DetailsPrecipitation, &c.DetailsWind,
		&c.DetailsPM10, &c.DetailsPressure, &c.DetailsVisibility, &c.DetailsUVIndex,
		&c.HourlyJSON, &c.WeeklyJSON,
		&c.Latitude, &c.Longitude, &c.Address, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query weather cache: %w", err)
	}

	if c.LastUpdated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse weather cache timestamp: %w", err)
	}
	return &c, nil
}

// ClearWeatherCache deletes the cached snapshot.
func (s *Store) ClearWeatherCache(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM weather_cache"); err != nil {
		return fmt.Errorf("clear weather cache: %w", err)
	}
	return nil
}
