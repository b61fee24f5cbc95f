// Package weatherapi is the HTTP client for the KMA-backed weather API.
package weatherapi

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

// Endpoint labels used in metrics and errors.
const (
	endpointCurrent = "current"
	endpointHourly  = "hourly"
	endpointWeekly  = "weekly"
	endpointCCTV    = "cctv"
)

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// Client calls the weather API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a weather API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Current fetches the current observation for a grid cell.
func (c *Client) Current(ctx context.Context, p domain.GridPoint) (domain.CurrentResponse, error) {
	var out domain.CurrentResponse
	err := c.get(ctx, endpointCurrent, "/api/weather/current", gridParams(p), &out)
	return out, err
}

// Hourly fetches the short-range hourly forecast for a grid cell.
func (c *Client) Hourly(ctx context.Context, p domain.GridPoint) (domain.HourlyResponse, error) {
	var out domain.HourlyResponse
	err := c.get(ctx, endpointHourly, "/api/weather/forecast", gridParams(p), &out)
	return out, err
}

// Weekly fetches the mid-range daily forecast for a grid cell.
func (c *Client) Weekly(ctx context.Context, p domain.GridPoint) (domain.WeeklyResponse, error) {
	var out domain.WeeklyResponse
	err := c.get(ctx, endpointWeekly, "/api/weather/week", gridParams(p), &out)
	return out, err
}

// NearbyCCTV returns the traffic camera closest to lat/lng.
func (c *Client) NearbyCCTV(ctx context.Context, lat, lng float64) (domain.CCTV, error) {
	var out domain.CCTV
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
	err := c.get(ctx, endpointCCTV, "/get_cctv", params, &out)
	return out, err
}

func gridParams(p domain.GridPoint) url.Values {
	return url.Values{
		"nx": {strconv.Itoa(p.NX)},
		"ny": {strconv.Itoa(p.NY)},
	}
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	}()

	fullURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("weather API %s error: status %d: %s", endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	c.logger.Debug("weather API request completed",
		"endpoint", endpoint,
		"duration", time.Since(start),
	)
	return nil
}
