package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToGrid(t *testing.T) {
	assert.Equal(t, GridPoint{NX: 60, NY: 127}, ToGrid(37.5665, 126.978))
	assert.Equal(t, GridPoint{NX: 43, NY: 136}, ToGrid(originLat, originLon))
}

func TestFeelsLike(t *testing.T) {
	t.Run("winter wind chill", func(t *testing.T) {
		assert.InDelta(t, -3.3147, FeelsLike(0, 50, 10, time.January), 0.001)
	})

	t.Run("winter calm returns air temperature", func(t *testing.T) {
		assert.Equal(t, 2.0, FeelsLike(2, 50, 3, time.February))
	})

	t.Run("winter mild returns air temperature", func(t *testing.T) {
		assert.Equal(t, 15.0, FeelsLike(15, 50, 30, time.November))
	})

	t.Run("summer uses wet bulb formula", func(t *testing.T) {
		assert.InDelta(t, 29.54, FeelsLike(30, 50, 0, time.July), 0.1)
	})
}

func TestIconURL(t *testing.T) {
	tests := []struct {
		sky, pty, want string
	}{
		{"맑음", "비", "10d"},
		{"맑음", "소나기", "10d"},
		{"흐림", "비/눈", "10d"},
		{"흐림", "눈", "13d"},
		{"맑음", "1", "10d"},
		{"맑음", "4", "10d"},
		{"맑음", "3", "13d"},
		{"맑음", "7", "13d"},
		{"맑음", "0", "01d"},
		{"구름조금", "없음", "02d"},
		{"구름많음", "없음", "02d"},
		{"흐림", "없음", "03d"},
		{"", "", "01d"},
	}
	for _, tt := range tests {
		t.Run(tt.sky+"/"+tt.pty, func(t *testing.T) {
			assert.Equal(t, "base/"+tt.want+"@2x.png", IconURL("base/", tt.sky, tt.pty))
		})
	}
}

func TestPM10Status(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", PMUnknown},
		{"  ", PMUnknown},
		{NoData, PMUnknown},
		{"정보 없음", PMUnknown},
		{"30", PMGood},
		{"31", PMModerate},
		{"45 µg/m³", PMModerate},
		{"80", PMModerate},
		{"150", PMBad},
		{"151", PMVeryBad},
		{"좋음", "좋음"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PM10Status(tt.in))
		})
	}
}

func TestPrecipitationSoon(t *testing.T) {
	hourly := []HourlyForecast{{PTY: "0"}, {PTY: "0"}, {PTY: "0"}, {PTY: "1"}}

	assert.False(t, PrecipitationSoon(hourly, 3))
	assert.True(t, PrecipitationSoon(hourly, 4))
	assert.True(t, PrecipitationSoon(hourly, 10))
	assert.False(t, PrecipitationSoon(nil, 3))
}

func TestRecommendClothing(t *testing.T) {
	t.Run("warm day includes outerwear", func(t *testing.T) {
		assert.Equal(t, []string{
			"thin shirt", "long-sleeve T-shirt", "sweatshirt",
			"cotton pants", "jeans", "slacks",
			"thin cardigan", "windbreaker",
		}, RecommendClothing(20, false, false))
	})

	t.Run("very hot rainy day has no outerwear", func(t *testing.T) {
		assert.Equal(t, []string{
			"sleeveless top", "short-sleeve T-shirt",
			"shorts",
			"sandals", "umbrella", "boots",
		}, RecommendClothing(30, true, false))
	})

	t.Run("wind adds windproof layers", func(t *testing.T) {
		got := RecommendClothing(20, false, true)
		assert.Contains(t, got, "jacket")
		assert.Contains(t, got, "field jacket")
	})

	t.Run("freezing", func(t *testing.T) {
		got := RecommendClothing(-5, false, false)
		assert.Contains(t, got, "thermal underwear")
		assert.Contains(t, got, "heavy padded jacket")
		assert.Contains(t, got, "gloves")
	})
}

func TestSummarize(t *testing.T) {
	base := func(feels string) WeatherState {
		return WeatherState{
			Current: CurrentWeather{FeelsLike: feels, Description: "맑음", MaxTemp: "20°", MinTemp: "15°"},
			Details: WeatherDetails{Wind: "1.0 m/s", Humidity: "40%", Precipitation: "0.0 mm"},
			Hourly:  []HourlyForecast{{PTY: "0"}},
		}
	}

	tests := []struct {
		name  string
		state func() WeatherState
		month time.Month
		want  string
	}{
		{
			name: "raining",
			state: func() WeatherState {
				s := base("12°")
				s.Details.Precipitation = "1.5 mm"
				return s
			},
			month: time.April,
			want:  "It's raining. Don't forget an umbrella.",
		},
		{
			name: "snowing",
			state: func() WeatherState {
				s := base("-2°")
				s.Details.Precipitation = "0.5 mm"
				return s
			},
			month: time.January,
			want:  "Snow is falling. Watch your step on slippery roads.",
		},
		{
			name: "snow soon",
			state: func() WeatherState {
				s := base("0°")
				s.Hourly = []HourlyForecast{{PTY: "0"}, {PTY: "3"}}
				return s
			},
			month: time.January,
			want:  "Snow may arrive soon.",
		},
		{
			name: "rain soon",
			state: func() WeatherState {
				s := base("15°")
				s.Hourly = []HourlyForecast{{PTY: "0"}, {PTY: "0"}, {PTY: "4"}}
				return s
			},
			month: time.May,
			want:  "Rain is on the way, take an umbrella.",
		},
		{
			name:  "pleasant spring",
			state: func() WeatherState { return base("20°") },
			month: time.May,
			want:  "Pleasant weather, perfect for an outing!",
		},
		{
			name: "spring with wide daily range",
			state: func() WeatherState {
				s := base("20°")
				s.Current.MinTemp = "8°"
				return s
			},
			month: time.October,
			want:  "Pleasant weather, perfect for an outing! Big temperature swing today, watch out for colds.",
		},
		{
			name: "muggy summer",
			state: func() WeatherState {
				s := base("29°")
				s.Details.Humidity = "80%"
				return s
			},
			month: time.July,
			want:  "Humid and muggy; the discomfort index is high.",
		},
		{
			name:  "summer heatwave",
			state: func() WeatherState { return base("34°") },
			month: time.August,
			want:  "A heatwave; you'll sweat standing still.",
		},
		{
			name: "clear freezing winter",
			state: func() WeatherState {
				return base("-3°")
			},
			month: time.December,
			want:  "Clear skies but very cold air. Keep warm.",
		},
		{
			name: "cloudy mild winter",
			state: func() WeatherState {
				s := base("6°")
				s.Current.Description = "흐림"
				return s
			},
			month: time.February,
			want:  "Fairly mild for winter. Cloudy skies may still feel a bit chilly.",
		},
		{
			name: "mild winter with cold wind",
			state: func() WeatherState {
				s := base("7°")
				s.Details.Wind = "5.0 m/s"
				return s
			},
			month: time.January,
			want:  "Warm air, but a cold wind makes it feel cooler.",
		},
		{
			name: "cold winter with biting wind",
			state: func() WeatherState {
				s := base("-8°")
				s.Current.Description = "눈"
				s.Details.Wind = "6.0 m/s"
				return s
			},
			month: time.January,
			want:  "A severe cold snap. Keep warm. A biting wind has dropped the wind chill sharply.",
		},
		{
			name: "gale overrides everything",
			state: func() WeatherState {
				s := base("20°")
				s.Details.Wind = "12.0 m/s"
				return s
			},
			month: time.May,
			want:  "Very strong winds. Secure anything loose outdoors.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.state(), tt.month))
		})
	}
}
