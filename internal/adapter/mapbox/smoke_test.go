//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := smokeClient(t)

	results, err := c.ForwardGeocode(context.Background(), "Busan", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.InDelta(t, 35.18, results[0].Lat, 0.2, "lat should be near Busan")
	assert.InDelta(t, 129.07, results[0].Lon, 0.2, "lon should be near Busan")
	assert.Greater(t, results[0].Confidence, 0.5)
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	// Seoul City Hall
	result, err := c.ReverseGeocode(context.Background(), 37.5665, 126.978)
	require.NoError(t, err)

	assert.NotEmpty(t, result.FormattedAddress)
	assert.NotEmpty(t, result.PlaceName)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	r1, err := cached.ForwardGeocode(context.Background(), "Daegu", 1)
	require.NoError(t, err)
	require.NotEmpty(t, r1)

	r2, err := cached.ForwardGeocode(context.Background(), "Daegu", 1)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
