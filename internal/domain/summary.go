package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Summary thresholds.
const (
	coldWindMs       = 4.0
	galeWindMs       = 10.0
	muggyHumidity    = 70
	wideDailyRange   = 10
	upcomingSlots    = 6
	rangeHintMaxLen  = 50
	winterCloudyBand = 10
)

// Summarize produces a one-line description of a snapshot for the given
// month. Current precipitation takes priority, then precipitation expected in
// the next few hours, then a seasonal feels-like message refined by sky,
// wind, humidity and the day's temperature range.
func Summarize(s WeatherState, month time.Month) string {
	feels := parseInt(s.Current.FeelsLike)
	wind := parseFloat(s.Details.Wind)
	humidity := parseInt(s.Details.Humidity)
	precip := parseFloat(s.Details.Precipitation)

	if precip > 0 {
		switch {
		case feels < 0:
			return "Snow is falling. Watch your step on slippery roads."
		case feels < 5:
			return "Rain or snow and cold. Dress warmly."
		default:
			return "It's raining. Don't forget an umbrella."
		}
	}

	upcoming := make(map[string]bool)
	for i, h := range s.Hourly {
		if i == upcomingSlots {
			break
		}
		if h.PTY != "0" {
			upcoming[h.PTY] = true
		}
	}
	if upcoming["2"] || upcoming["3"] {
		return "Snow may arrive soon."
	}
	if upcoming["1"] || upcoming["4"] {
		return "Rain is on the way, take an umbrella."
	}

	winter := month == time.December || month <= time.February
	summer := month >= time.June && month <= time.August

	var msg string
	mild := false
	switch {
	case winter:
		switch {
		case feels >= 12:
			msg, mild = "Spring-like and mild for winter.", true
		case feels >= 5:
			msg, mild = "Fairly mild for winter.", true
		case feels >= -5:
			msg = "The air is quite cold. Dress warmly."
		default:
			msg = "A severe cold snap. Keep warm."
		}
	case summer:
		switch {
		case feels >= 33:
			msg = "A heatwave; you'll sweat standing still."
		case feels >= 28:
			msg = "Hot summer weather. Drink water often."
		case feels >= 23:
			msg = "Fine for activities but a little warm."
		default:
			msg = "Cool for summer, great for being outside."
		}
	default:
		switch {
		case feels >= 25:
			msg = "Somewhat hot, like early summer."
		case feels >= 18:
			msg = "Pleasant weather, perfect for an outing!"
		case feels >= 10:
			msg = "A cool breeze, nice for a walk."
		case feels >= 5:
			msg = "Chilly mornings and evenings, bring a jacket."
		default:
			msg = "Much colder than usual for the season."
		}
	}

	if winter {
		cloudy := strings.Contains(s.Current.Description, "흐림") || strings.Contains(s.Current.Description, "구름")
		clear := strings.Contains(s.Current.Description, "맑음")
		switch {
		case cloudy && feels < winterCloudyBand:
			if mild {
				msg += " Cloudy skies may still feel a bit chilly."
			} else {
				msg = "Overcast skies make it feel colder than it is."
			}
		case clear && feels < 0:
			msg = "Clear skies but very cold air. Keep warm."
		}

		if wind >= coldWindMs {
			switch {
			case feels >= 5 && mild:
				msg = "Warm air, but a cold wind makes it feel cooler."
			case feels >= 5:
				msg += " The cold wind makes it feel even colder."
			default:
				msg += " A biting wind has dropped the wind chill sharply."
			}
		}
	}

	if summer && humidity >= muggyHumidity && feels >= 25 {
		msg = "Humid and muggy; the discomfort index is high."
	}

	if !summer && !winter {
		maxT, okMax := parseOptionalInt(s.Current.MaxTemp)
		minT, okMin := parseOptionalInt(s.Current.MinTemp)
		if okMax && okMin && maxT-minT >= wideDailyRange && utf8.RuneCountInString(msg) < rangeHintMaxLen {
			msg += " Big temperature swing today, watch out for colds."
		}
	}

	if wind >= galeWindMs {
		msg = "Very strong winds. Secure anything loose outdoors."
	}

	return msg
}

// parseInt reads the signed integer embedded in a display value ("-3°").
func parseInt(s string) int {
	v, _ := parseOptionalInt(s)
	return v
}

func parseOptionalInt(s string) (int, bool) {
	v, err := strconv.Atoi(keepRunes(s, "0123456789-"))
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseFloat reads the unsigned decimal embedded in a display value ("1.5 mm").
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(keepRunes(s, "0123456789."), 64)
	if err != nil {
		return 0
	}
	return v
}
