package domain

import "time"

// CurrentWeather is the headline card of a weather snapshot.
type CurrentWeather struct {
	IconURL     string `json:"icon_url"`
	Temperature string `json:"temperature"`
	Description string `json:"description"`
	MaxTemp     string `json:"max_temp"`
	MinTemp     string `json:"min_temp"`
	FeelsLike   string `json:"feels_like"`
}

// WeatherDetails holds the secondary readings of a snapshot.
type WeatherDetails struct {
	FeelsLike     string `json:"feels_like"`
	Humidity      string `json:"humidity"`
	Precipitation string `json:"precipitation"`
	Wind          string `json:"wind"`
	PM10          string `json:"pm10"`
	Pressure      string `json:"pressure"`
	Visibility    string `json:"visibility"`
	UVIndex       string `json:"uv_index"`
}

// HourlyForecast is one hourly slot. PTY is the raw KMA precipitation code.
type HourlyForecast struct {
	Time        string `json:"time"`
	IconURL     string `json:"icon_url"`
	Temperature string `json:"temperature"`
	PTY         string `json:"pty"`
}

// WeeklyForecast is one day of the weekly outlook.
type WeeklyForecast struct {
	Day     string `json:"day"`
	SkyAM   string `json:"sky_am"`
	SkyPM   string `json:"sky_pm"`
	IconAM  string `json:"icon_am"`
	IconPM  string `json:"icon_pm"`
	MaxTemp string `json:"max_temp"`
	MinTemp string `json:"min_temp"`
}

// WeatherState is a display-ready weather snapshot for one location.
// Stale is set when the snapshot was served from the cache because a fresh
// fetch failed.
type WeatherState struct {
	Current     CurrentWeather   `json:"current"`
	Details     WeatherDetails   `json:"details"`
	Hourly      []HourlyForecast `json:"hourly"`
	Weekly      []WeeklyForecast `json:"weekly"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Address     string           `json:"address"`
	LastUpdated time.Time        `json:"last_updated"`
	Stale       bool             `json:"stale"`
}

// NoData is the KMA placeholder for a missing value.
const NoData = "정보없음"
