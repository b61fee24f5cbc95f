package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// WeatherCacheID is the fixed primary key of the single cached snapshot.
const WeatherCacheID = 1

// WeatherCache is the persisted form of a WeatherState. The forecasts are
// stored as JSON text.
type WeatherCache struct {
	ID int

	CurrentIconURL     string
	CurrentTemperature string
	CurrentDescription string
	CurrentMaxTemp     string
	CurrentMinTemp     string
	CurrentFeelsLike   string

	DetailsFeelsLike     string
	DetailsHumidity      string
	DetailsPrecipitation string
	DetailsWind          string
	DetailsPM10          string
	DetailsPressure      string
	DetailsVisibility    string
	DetailsUVIndex       string

	HourlyJSON string
	WeeklyJSON string

	Latitude    float64
	Longitude   float64
	Address     string
	LastUpdated time.Time
}

// NewWeatherCache flattens a snapshot for storage.
func NewWeatherCache(s WeatherState) (WeatherCache, error) {
	hourly := s.Hourly
	if hourly == nil {
		hourly = []HourlyForecast{}
	}
	weekly := s.Weekly
	if weekly == nil {
		weekly = []WeeklyForecast{}
	}

	hourlyJSON, err := json.Marshal(hourly)
	if err != nil {
		return WeatherCache{}, fmt.Errorf("encode hourly forecast: %w", err)
	}
	weeklyJSON, err := json.Marshal(weekly)
	if err != nil {
		return WeatherCache{}, fmt.Errorf("encode weekly forecast: %w", err)
	}

	return WeatherCache{
		ID:                   WeatherCacheID,
		CurrentIconURL:       s.Current.IconURL,
		CurrentTemperature:   s.Current.Temperature,
		CurrentDescription:   s.Current.Description,
		CurrentMaxTemp:       s.Current.MaxTemp,
		CurrentMinTemp:       s.Current.MinTemp,
		CurrentFeelsLike:     s.Current.FeelsLike,
		DetailsFeelsLike:     s.Details.FeelsLike,
		DetailsHumidity:      s.Details.Humidity,
		DetailsPrecipitation: s.Details.Precipitation,
		DetailsWind:          s.Details.Wind,
		DetailsPM10:          s.Details.PM10,
		DetailsPressure:      s.Details.Pressure,
		DetailsVisibility:    s.Details.Visibility,
		DetailsUVIndex:       s.Details.UVIndex,
		HourlyJSON:           string(hourlyJSON),
		WeeklyJSON:           string(weeklyJSON),
		Latitude:             s.Latitude,
		Longitude:            s.Longitude,
		Address:              s.Address,
		LastUpdated:          s.LastUpdated,
	}, nil
}

// State rebuilds the snapshot. Empty forecast columns decode as empty lists.
func (c WeatherCache) State() (WeatherState, error) {
	hourly := []HourlyForecast{}
	if c.HourlyJSON != "" {
		if err := json.Unmarshal([]byte(c.HourlyJSON), &hourly); err != nil {
			return WeatherState{}, fmt.Errorf("decode hourly forecast: %w", err)
		}
	}
	weekly := []WeeklyForecast{}
	if c.WeeklyJSON != "" {
		if err := json.Unmarshal([]byte(c.WeeklyJSON), &weekly); err != nil {
			return WeatherState{}, fmt.Errorf("decode weekly forecast: %w", err)
		}
	}

	return WeatherState{
		Current: CurrentWeather{
			IconURL:     c.CurrentIconURL,
			Temperature: c.CurrentTemperature,
			Description: c.CurrentDescription,
			MaxTemp:     c.CurrentMaxTemp,
			MinTemp:     c.CurrentMinTemp,
			FeelsLike:   c.CurrentFeelsLike,
		},
		Details: WeatherDetails{
			FeelsLike:     c.DetailsFeelsLike,
			Humidity:      c.DetailsHumidity,
			Precipitation: c.DetailsPrecipitation,
			Wind:          c.DetailsWind,
			PM10:          c.DetailsPM10,
			Pressure:      c.DetailsPressure,
			Visibility:    c.DetailsVisibility,
			UVIndex:       c.DetailsUVIndex,
		},
		Hourly:      hourly,
		Weekly:      weekly,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Address:     c.Address,
		LastUpdated: c.LastUpdated,
	}, nil
}
