package weatherapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul = domain.GridPoint{NX: 60, NY: 127}

func testClient(t *testing.T, h http.HandlerFunc) (*Client, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := observability.NewMetricsForTesting()
	return NewClient(srv.URL, 5*time.Second, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func TestClient_Current(t *testing.T) {
	c, m := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/weather/current", r.URL.Path)
		assert.Equal(t, "60", r.URL.Query().Get("nx"))
		assert.Equal(t, "127", r.URL.Query().Get("ny"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"위치좌표":{"nx":60,"ny":127},"날씨":{"기온(°C)":12.3,"하늘상태":"맑음","강수형태":"없음","미세먼지":"25"}}`))
	})

	resp, err := c.Current(context.Background(), seoul)
	require.NoError(t, err)
	assert.Equal(t, seoul, resp.Location)
	assert.Equal(t, domain.NewReading(12.3), resp.Weather.Temperature)
	assert.False(t, resp.Weather.Humidity.Valid)
	assert.Equal(t, "맑음", resp.Weather.SkyCondition)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("current", "success")))
}

func TestClient_Hourly(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/weather/forecast", r.URL.Path)
		_, _ = w.Write([]byte(`{"위치좌표":{"nx":60,"ny":127},"날씨":[
			{"date":"20240424","time":"0900","temp":14,"sky":"맑음","pty":"0","rain_amount":"강수없음","pop":10},
			{"date":"20240424","time":"1000","temp":null,"sky":"흐림","pty":"1","rain_amount":"1mm","pop":60.5},
			{"date":"20240424","time":"1100","temp":"15","sky":"흐림","pty":"1","rain_amount":"2mm","pop":"70"},
			{"date":"20240424","time":"1200","temp":15,"sky":"흐림","pty":"0","rain_amount":"강수없음","pop":""}
		]}`))
	})

	resp, err := c.Hourly(context.Background(), seoul)
	require.NoError(t, err)
	require.Len(t, resp.Weather, 4)
	assert.Equal(t, "0900", resp.Weather[0].Time)
	assert.Equal(t, domain.NewReading(14), resp.Weather[0].Temp)
	assert.False(t, resp.Weather[1].Temp.Valid)
	assert.Equal(t, "1", resp.Weather[1].PTY)
	assert.Equal(t, "1mm", resp.Weather[1].RainAmount)
	assert.Equal(t, domain.NewReading(60.5), resp.Weather[1].POP)
	assert.Equal(t, domain.NewReading(70), resp.Weather[2].POP, "string probabilities decode")
	assert.False(t, resp.Weather[3].POP.Valid)
}

func TestClient_Weekly(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/weather/week", r.URL.Path)
		_, _ = w.Write([]byte(`{"위치좌표":{"nx":60,"ny":127},"날씨":[
			{"date":"20240425","min_temp":9,"max_temp":"21","sky_am":"맑음","sky_pm":"구름많음","pop":"30"},
			{"date":"20240426","min_temp":10,"max_temp":20,"sky_am":"흐림","sky_pm":"흐림","pop":null}
		]}`))
	})

	resp, err := c.Weekly(context.Background(), seoul)
	require.NoError(t, err)
	require.Len(t, resp.Weather, 2)
	assert.Equal(t, domain.NewReading(21), resp.Weather[0].MaxTemp)
	assert.Equal(t, "구름많음", resp.Weather[0].SkyPM)
	assert.Equal(t, domain.NewReading(30), resp.Weather[0].POP)
	assert.False(t, resp.Weather[1].POP.Valid)
}

func TestClient_NearbyCCTV(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_cctv", r.URL.Path)
		assert.Equal(t, "37.5665", r.URL.Query().Get("lat"))
		assert.Equal(t, "126.978", r.URL.Query().Get("lng"))
		_, _ = w.Write([]byte(`{"status":"ok","cctv_name":"Gwanghwamun","cctv_url":"https://cctv.example/1.m3u8","cctv_type":"4","cctv_lat":"37.571","cctv_lng":"126.976"}`))
	})

	cctv, err := c.NearbyCCTV(context.Background(), 37.5665, 126.978)
	require.NoError(t, err)
	assert.Equal(t, "Gwanghwamun", cctv.Name)
	assert.Equal(t, "https://cctv.example/1.m3u8", cctv.URL)
	assert.Equal(t, domain.NewReading(37.571), cctv.Lat)
}

func TestClient_StatusError(t *testing.T) {
	c, m := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := c.Current(context.Background(), seoul)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("current", "error")))
}

func TestClient_DecodeError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := c.Weekly(context.Background(), seoul)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode weekly response")
}

func TestClient_ContextCancelled(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Hourly(ctx, seoul)
	assert.Error(t, err)
}
