package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

// maxLimit is the largest result count the Mapbox forward endpoint accepts.
const maxLimit = 10

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	language   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. Place names are requested in
// Korean to match the weather API's coverage area.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  "https://api.mapbox.com/geocoding/v5/mapbox.places",
		language: "ko",
		metrics:  metrics,
		logger:   logger,
	}
}

// ForwardGeocode searches for cities and localities matching query.
func (c *Client) ForwardGeocode(ctx context.Context, query string, limit int) ([]domain.GeocodingResult, error) {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(limit)},
		"types":        {"place,locality,district"},
		"language":     {c.language},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "forward")
}

// ReverseGeocode converts coordinates to place details. An empty result
// means Mapbox knows no place at that point.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"language":     {c.language},
	}

	results, err := c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
	if err != nil || len(results) == 0 {
		return domain.GeocodingResult{}, err
	}
	return results[0], nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string) ([]domain.GeocodingResult, error) {
	start := time.Now()
	results, err := c.fetch(ctx, fullURL, method)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		c.logger.Warn("mapbox request failed", "method", method, "error", err)
	case len(results) == 0:
		c.metrics.GeocodeRequests.WithLabelValues(method, "empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
	}
	return results, err
}

func (c *Client) fetch(ctx context.Context, fullURL, method string) ([]domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]domain.GeocodingResult, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		r := domain.GeocodingResult{
			FormattedAddress: f.PlaceName,
			PlaceName:        f.Text,
			Confidence:       f.Relevance,
		}
		if len(f.Center) == 2 {
			r.Lon = f.Center[0]
			r.Lat = f.Center[1]
		}
		results = append(results, r)
	}
	return results, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
