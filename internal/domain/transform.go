package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// MaxHourlySlots is the number of hourly forecast slots kept in a snapshot.
const MaxHourlySlots = 24

// Fixed detail values; the weather API does not report these.
const (
	defaultPressure   = "1013 hPa"
	defaultVisibility = "10 km"
	defaultUVIndex    = "5"
)

// Forecast bundles the three upstream responses for one grid cell.
type Forecast struct {
	Current CurrentResponse
	Hourly  HourlyResponse
	Weekly  WeeklyResponse
}

// SnapshotOptions controls how a Forecast is turned into a WeatherState.
type SnapshotOptions struct {
	Lat, Lon       float64
	TempAdjustment int
	IconBaseURL    string
}

// BuildWeatherState maps raw API responses to a display-ready snapshot.
// Feels-like is computed from temperature, humidity and wind for the current
// month and then shifted by the user's adjustment. Missing readings display
// as zero, and the hourly forecast is cut to MaxHourlySlots.
func BuildWeatherState(f Forecast, opts SnapshotOptions) WeatherState {
	now := clock.Now()
	obs := f.Current.Weather

	temp := obs.Temperature.Or(0)
	windKmh := obs.WindSpeed.Or(0) * 3.6
	feels := FeelsLike(temp, obs.Humidity.Or(0), windKmh, now.Month()) + float64(opts.TempAdjustment)
	feelsText := degrees(feels)

	sky := obs.SkyCondition
	if sky == "" {
		sky = "맑음"
	}
	pty := obs.Precipitation
	if pty == "" {
		pty = "없음"
	}
	description := obs.SkyCondition
	if description == "" {
		description = NoData
	}
	pm10 := obs.PM10
	if pm10 == "" {
		pm10 = NoData
	}

	state := WeatherState{
		Current: CurrentWeather{
			IconURL:     IconURL(opts.IconBaseURL, sky, pty),
			Temperature: degrees(temp),
			Description: description,
			MaxTemp:     degrees(obs.MaxTemp.Or(0)),
			MinTemp:     degrees(obs.MinTemp.Or(0)),
			FeelsLike:   feelsText,
		},
		Details: WeatherDetails{
			FeelsLike:     feelsText,
			Humidity:      fmt.Sprintf("%d%%", int(obs.Humidity.Or(0))),
			Precipitation: decimal(obs.Rainfall.Or(0)) + " mm",
			Wind:          decimal(obs.WindSpeed.Or(0)) + " m/s",
			PM10:          pm10,
			Pressure:      defaultPressure,
			Visibility:    defaultVisibility,
			UVIndex:       defaultUVIndex,
		},
		Hourly:      buildHourly(f.Hourly.Weather, opts.IconBaseURL),
		Weekly:      buildWeekly(f.Weekly.Weather, opts.IconBaseURL),
		Latitude:    opts.Lat,
		Longitude:   opts.Lon,
		LastUpdated: now,
	}
	return state
}

func buildHourly(items []HourlyItem, iconBase string) []HourlyForecast {
	if len(items) > MaxHourlySlots {
		items = items[:MaxHourlySlots]
	}
	out := make([]HourlyForecast, 0, len(items))
	for _, it := range items {
		out = append(out, HourlyForecast{
			Time:        formatHHMM(it.Time),
			IconURL:     IconURL(iconBase, it.Sky, it.PTY),
			Temperature: degrees(it.Temp.Or(0)),
			PTY:         it.PTY,
		})
	}
	return out
}

func buildWeekly(items []WeeklyItem, iconBase string) []WeeklyForecast {
	out := make([]WeeklyForecast, 0, len(items))
	for _, it := range items {
		out = append(out, WeeklyForecast{
			Day:     formatDayLabel(it.Date),
			SkyAM:   it.SkyAM,
			SkyPM:   it.SkyPM,
			IconAM:  IconURL(iconBase, it.SkyAM, "없음"),
			IconPM:  IconURL(iconBase, it.SkyPM, "없음"),
			MaxTemp: degrees(it.MaxTemp.Or(0)),
			MinTemp: degrees(it.MinTemp.Or(0)),
		})
	}
	return out
}

// degrees truncates toward zero and appends the degree sign: 18.7 -> "18°".
func degrees(v float64) string {
	return strconv.Itoa(int(v)) + "°"
}

// decimal formats v with at least one fractional digit: 0 -> "0.0", 1.25 -> "1.25".
func decimal(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatHHMM turns "0900" into "09:00". Other inputs are returned unchanged.
func formatHHMM(s string) string {
	if len(s) != 4 {
		return s
	}
	return s[:2] + ":" + s[2:]
}

// formatDayLabel turns "20240424" into "04/24 (Wed)". Unparseable input is
// returned unchanged.
func formatDayLabel(s string) string {
	d, err := time.Parse("20060102", s)
	if err != nil {
		return s
	}
	return d.Format("01/02 (Mon)")
}
