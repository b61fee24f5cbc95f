package domain

import (
	"strconv"
	"strings"
)

// PM10 status labels.
const (
	PMGood     = "good"
	PMModerate = "moderate"
	PMBad      = "bad"
	PMVeryBad  = "very bad"
	PMUnknown  = "unknown"
)

// IconURL picks a weather icon for a sky condition and precipitation type.
// pty may be the current-observation text ("비", "눈") or an hourly PTY code.
// Precipitation wins over sky.
func IconURL(baseURL, sky, pty string) string {
	var id string
	switch {
	case isRain(pty):
		id = "10d"
	case isSnow(pty):
		id = "13d"
	case strings.Contains(sky, "맑음"):
		id = "01d"
	case strings.Contains(sky, "구름조금"), strings.Contains(sky, "구름많음"):
		id = "02d"
	case strings.Contains(sky, "흐림"):
		id = "03d"
	default:
		id = "01d"
	}
	return baseURL + id + "@2x.png"
}

func isRain(pty string) bool {
	switch pty {
	case "1", "4", "5":
		return true
	}
	return strings.Contains(pty, "비") || strings.Contains(pty, "소나기")
}

func isSnow(pty string) bool {
	switch pty {
	case "2", "3", "6", "7":
		return true
	}
	return strings.Contains(pty, "눈")
}

// PM10Status classifies a PM10 reading. Numeric input (with or without a
// unit) is bucketed at 30/80/150 µg/m³; a grade the API already spelled out is
// returned as is.
func PM10Status(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, NoData) || strings.Contains(raw, "정보 없음") {
		return PMUnknown
	}

	digits := keepRunes(raw, "0123456789")
	if digits == "" {
		return raw
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return PMUnknown
	}

	switch {
	case v <= 30:
		return PMGood
	case v <= 80:
		return PMModerate
	case v <= 150:
		return PMBad
	default:
		return PMVeryBad
	}
}

// PrecipitationSoon reports whether any of the first n hourly slots forecasts
// rain or snow.
func PrecipitationSoon(hourly []HourlyForecast, n int) bool {
	if n > len(hourly) {
		n = len(hourly)
	}
	for _, h := range hourly[:n] {
		if h.PTY != "" && h.PTY != "0" {
			return true
		}
	}
	return false
}

// keepRunes drops every rune of s not present in allowed.
func keepRunes(s, allowed string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(allowed, r) {
			return r
		}
		return -1
	}, s)
}
