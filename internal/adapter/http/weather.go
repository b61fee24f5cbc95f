package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/weather"
	"github.com/couchcryptid/weather-alarm-service/internal/worker"
)

const defaultLocationLimit = 5

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r, "lat", "lon")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	adj, err := s.deps.Settings.TempAdjustment(r.Context())
	if err != nil {
		s.logger.Warn("read temperature adjustment failed", "error", err)
		adj = 0
	}

	state, err := s.deps.Weather.Get(r.Context(), lat, lon, adj)
	if err != nil {
		s.logger.Error("weather unavailable", "lat", lat, "lon", lon, "error", err)
		writeErrorStatus(w, http.StatusBadGateway, errors.New("weather unavailable and no cached snapshot"))
		return
	}
	if err := s.deps.Settings.SetLastLocation(r.Context(), domain.Location{Lat: lat, Lon: lon}); err != nil {
		s.logger.Warn("save last location failed", "error", err)
	}
	sharedobs.WriteJSON(w, http.StatusOK, state)
}

func (s *Server) handleCachedWeather(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.Weather.Cached(r.Context())
	if errors.Is(err, weather.ErrNoCachedWeather) {
		writeErrorStatus(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearCachedWeather(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Weather.ClearCache(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Summary           string    `json:"summary"`
	Clothing          []string  `json:"clothing"`
	PM10Status        string    `json:"pm10_status"`
	PrecipitationSoon bool      `json:"precipitation_soon"`
	Address           string    `json:"address,omitempty"`
	LastUpdated       time.Time `json:"last_updated"`
	Stale             bool      `json:"stale"`
}

// handleSummary describes the cached snapshot, or a fresh one when lat and
// lon are given.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var (
		state domain.WeatherState
		err   error
	)
	if r.URL.Query().Has("lat") || r.URL.Query().Has("lon") {
		lat, lon, perr := parseLatLon(r, "lat", "lon")
		if perr != nil {
			s.writeError(w, r, perr)
			return
		}
		adj, aerr := s.deps.Settings.TempAdjustment(r.Context())
		if aerr != nil {
			s.logger.Warn("read temperature adjustment failed", "error", aerr)
			adj = 0
		}
		state, err = s.deps.Weather.Get(r.Context(), lat, lon, adj)
		if err != nil {
			s.logger.Error("weather unavailable", "lat", lat, "lon", lon, "error", err)
			writeErrorStatus(w, http.StatusBadGateway, errors.New("weather unavailable and no cached snapshot"))
			return
		}
	} else {
		state, err = s.deps.Weather.Cached(r.Context())
		if errors.Is(err, weather.ErrNoCachedWeather) {
			writeErrorStatus(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	clothing, soon := worker.WhatToWear(state)
	if clothing == nil {
		clothing = []string{}
	}

	sharedobs.WriteJSON(w, http.StatusOK, summaryResponse{
		Summary:           domain.Summarize(state, domain.Now().Month()),
		Clothing:          clothing,
		PM10Status:        domain.PM10Status(state.Details.PM10),
		PrecipitationSoon: soon,
		Address:           state.Address,
		LastUpdated:       state.LastUpdated,
		Stale:             state.Stale,
	})
}

func (s *Server) handleCCTV(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLon(r, "lat", "lng")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cctv, err := s.deps.Weather.NearbyCCTV(r.Context(), lat, lng)
	if err != nil {
		s.logger.Error("cctv lookup failed", "error", err)
		writeErrorStatus(w, http.StatusBadGateway, errors.New("cctv lookup failed"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, cctv)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if s.deps.Geocoder == nil {
		writeErrorStatus(w, http.StatusServiceUnavailable, errors.New("geocoding is disabled"))
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, r, badRequest("q is required"))
		return
	}
	limit := defaultLocationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	results, err := s.deps.Geocoder.ForwardGeocode(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("location search failed", "query", q, "error", err)
		writeErrorStatus(w, http.StatusBadGateway, errors.New("location search failed"))
		return
	}
	if results == nil {
		results = []domain.GeocodingResult{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, results)
}

func parseLatLon(r *http.Request, latKey, lonKey string) (float64, float64, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get(latKey), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, badRequest(latKey + " must be a latitude between -90 and 90")
	}
	lon, err := strconv.ParseFloat(q.Get(lonKey), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, badRequest(lonKey + " must be a longitude between -180 and 180")
	}
	return lat, lon, nil
}
