package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/settings"
)

// ReadinessFunc adapts a function to sharedobs.ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

// CheckReadiness calls f.
func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// AllReady is ready when every check is.
func AllReady(checks ...sharedobs.ReadinessChecker) sharedobs.ReadinessChecker {
	return ReadinessFunc(func(ctx context.Context) error {
		for _, c := range checks {
			if err := c.CheckReadiness(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// WeatherService serves weather snapshots.
type WeatherService interface {
	Get(ctx context.Context, lat, lon float64, tempAdjustment int) (domain.WeatherState, error)
	Cached(ctx context.Context) (domain.WeatherState, error)
	ClearCache(ctx context.Context) error
	NearbyCCTV(ctx context.Context, lat, lon float64) (domain.CCTV, error)
}

// AlarmService manages alarms.
type AlarmService interface {
	List(ctx context.Context) ([]domain.Alarm, error)
	Get(ctx context.Context, id int64) (domain.Alarm, error)
	Add(ctx context.Context, hour, minute int, days []time.Weekday, date *time.Time) (domain.Alarm, error)
	Update(ctx context.Context, id int64, hour, minute int, days []time.Weekday, date *time.Time) (domain.Alarm, error)
	Toggle(ctx context.Context, id int64) (domain.Alarm, error)
	Delete(ctx context.Context, id int64) error
	Conflicts(ctx context.Context, hour, minute int) ([]domain.Alarm, error)
	NextFire(id int64) (time.Time, bool)
}

// SettingsService reads and writes user preferences.
type SettingsService interface {
	Get(ctx context.Context) (settings.Settings, error)
	Apply(ctx context.Context, p settings.Patch) (settings.Settings, error)
	TempAdjustment(ctx context.Context) (int, error)
	SetLastLocation(ctx context.Context, loc domain.Location) error
}

// JobQueue runs background jobs on demand.
type JobQueue interface {
	Enqueue(name string) error
}

// Deps are the services behind the API. Geocoder may be nil when geocoding
// is disabled.
type Deps struct {
	Ready       sharedobs.ReadinessChecker
	Weather     WeatherService
	Alarms      AlarmService
	Settings    SettingsService
	Geocoder    domain.Geocoder
	Jobs        JobQueue
	CORSOrigins []string
}

// Server exposes the JSON API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API and operational routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{deps: deps, logger: logger}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(s.deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/weather", s.handleWeather)
		r.Get("/weather/cached", s.handleCachedWeather)
		r.Delete("/weather/cached", s.handleClearCachedWeather)
		r.Get("/weather/summary", s.handleSummary)
		r.Get("/cctv", s.handleCCTV)
		r.Get("/locations", s.handleLocations)

		r.Route("/alarms", func(r chi.Router) {
			r.Get("/", s.handleListAlarms)
			r.Post("/", s.handleCreateAlarm)
			r.Get("/conflicts", s.handleAlarmConflicts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAlarm)
				r.Put("/", s.handleUpdateAlarm)
				r.Delete("/", s.handleDeleteAlarm)
				r.Post("/toggle", s.handleToggleAlarm)
			})
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Post("/workers/{name}/run", s.handleRunWorker)
	})

	return r
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return errBadRequest }

// writeError maps service errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidAlarm),
		errors.Is(err, settings.ErrInvalidAdjustment):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlarmNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeErrorStatus(w, status, err)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
