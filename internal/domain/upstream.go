package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Current-observation keys as sent by the weather API.
const (
	keyTemperature   = "기온(°C)"
	keyRainfall      = "1시간 강수량(mm)"
	keyHumidity      = "습도(%)"
	keyWindSpeed     = "풍속(m/s)"
	keyMinTemp       = "일 최저기온(°C)"
	keyMaxTemp       = "일 최고기온(°C)"
	keySkyCondition  = "하늘상태"
	keyPrecipitation = "강수형태"
	keyPM10          = "미세먼지"
	keyPM25          = "초미세먼지"
)

// GridPoint is a cell of the KMA 5 km forecast grid.
type GridPoint struct {
	NX int `json:"nx"`
	NY int `json:"ny"`
}

// Reading is an optional numeric value from the weather API. The API sends
// numbers either as JSON numbers or as numeric strings, and uses null or an
// empty string for a missing reading.
type Reading struct {
	Value float64
	Valid bool
}

// NewReading returns a valid reading holding v.
func NewReading(v float64) Reading { return Reading{Value: v, Valid: true} }

// Or returns the reading's value, or def when it is missing.
func (r Reading) Or(def float64) float64 {
	if !r.Valid {
		return def
	}
	return r.Value
}

// UnmarshalJSON accepts numbers, numeric strings, null and "".
func (r *Reading) UnmarshalJSON(b []byte) error {
	*r = Reading{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Non-numeric placeholders such as "-" mean no reading.
			return nil
		}
		*r = NewReading(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	*r = NewReading(v)
	return nil
}

// MarshalJSON encodes a missing reading as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// CurrentObservation is the "날씨" object of /api/weather/current.
type CurrentObservation struct {
	Temperature   Reading
	Rainfall      Reading
	Humidity      Reading
	WindSpeed     Reading // m/s
	MinTemp       Reading
	MaxTemp       Reading
	SkyCondition  string
	Precipitation string
	PM10          string
	PM25          string
}

// UnmarshalJSON decodes the Korean-labelled payload. The labels contain "°",
// which encoding/json does not accept in struct tags.
func (o *CurrentObservation) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("current observation: %w", err)
	}

	readings := []struct {
		key string
		dst *Reading
	}{
		{keyTemperature, &o.Temperature},
		{keyRainfall, &o.Rainfall},
		{keyHumidity, &o.Humidity},
		{keyWindSpeed, &o.WindSpeed},
		{keyMinTemp, &o.MinTemp},
		{keyMaxTemp, &o.MaxTemp},
	}
	for _, f := range readings {
		*f.dst = Reading{}
		if v, ok := raw[f.key]; ok {
			if err := f.dst.UnmarshalJSON(v); err != nil {
				return fmt.Errorf("current observation %s: %w", f.key, err)
			}
		}
	}

	texts := []struct {
		key string
		dst *string
	}{
		{keySkyCondition, &o.SkyCondition},
		{keyPrecipitation, &o.Precipitation},
		{keyPM10, &o.PM10},
		{keyPM25, &o.PM25},
	}
	for _, f := range texts {
		*f.dst = ""
		if v, ok := raw[f.key]; ok {
			*f.dst = rawText(v)
		}
	}
	return nil
}

// MarshalJSON writes the observation back out under the API's labels.
func (o CurrentObservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		keyTemperature:   o.Temperature,
		keyRainfall:      o.Rainfall,
		keyHumidity:      o.Humidity,
		keyWindSpeed:     o.WindSpeed,
		keyMinTemp:       o.MinTemp,
		keyMaxTemp:       o.MaxTemp,
		keySkyCondition:  o.SkyCondition,
		keyPrecipitation: o.Precipitation,
		keyPM10:          o.PM10,
		keyPM25:          o.PM25,
	})
}

// rawText returns a JSON string's contents, or the literal text of a number.
// null yields "".
func rawText(b json.RawMessage) string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	t := strings.TrimSpace(string(b))
	if t == "null" {
		return ""
	}
	return t
}

// CurrentResponse is the body of /api/weather/current.
type CurrentResponse struct {
	Location GridPoint          `json:"위치좌표"`
	Weather  CurrentObservation `json:"날씨"`
}

// HourlyItem is one slot of the short-range forecast.
type HourlyItem struct {
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Temp       Reading `json:"temp"`
	Sky        string  `json:"sky"`
	PTY        string  `json:"pty"`
	RainAmount string  `json:"rain_amount"`
	POP        Reading `json:"pop"`
}

// HourlyResponse is the body of /api/weather/forecast.
type HourlyResponse struct {
	Location GridPoint    `json:"위치좌표"`
	Weather  []HourlyItem `json:"날씨"`
}

// WeeklyItem is one day of the mid-range forecast.
type WeeklyItem struct {
	Date    string  `json:"date"`
	MinTemp Reading `json:"min_temp"`
	MaxTemp Reading `json:"max_temp"`
	SkyAM   string  `json:"sky_am"`
	SkyPM   string  `json:"sky_pm"`
	POP     Reading `json:"pop"`
}

// WeeklyResponse is the body of /api/weather/week.
type WeeklyResponse struct {
	Location GridPoint    `json:"위치좌표"`
	Weather  []WeeklyItem `json:"날씨"`
}

// CCTV is the nearest traffic camera returned by /get_cctv.
type CCTV struct {
	Status string  `json:"status"`
	Name   string  `json:"cctv_name"`
	URL    string  `json:"cctv_url"`
	Type   string  `json:"cctv_type"`
	Lat    Reading `json:"cctv_lat"`
	Lng    Reading `json:"cctv_lng"`
}
