package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/weather-alarm-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-alarm-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alarm-service/internal/adapter/mapbox"
	smtpadapter "github.com/couchcryptid/weather-alarm-service/internal/adapter/smtp"
	"github.com/couchcryptid/weather-alarm-service/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-alarm-service/internal/adapter/weatherapi"
	"github.com/couchcryptid/weather-alarm-service/internal/alarm"
	"github.com/couchcryptid/weather-alarm-service/internal/config"
	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/notify"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
	"github.com/couchcryptid/weather-alarm-service/internal/settings"
	"github.com/couchcryptid/weather-alarm-service/internal/weather"
	"github.com/couchcryptid/weather-alarm-service/internal/worker"
)

const (
	restoreInitialBackoff = time.Second
	restoreMaxBackoff     = 30 * time.Second
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	api := weatherapi.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout, metrics, logger)
	repo := weather.NewRepository(api, store, geocoder, cfg.WeatherIconBaseURL, metrics, logger)
	prefs := settings.New(store)

	sinks := []notify.Sink{{Name: "log", Notifier: notify.NewLogNotifier(logger)}}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, notify.Sink{Name: "kafka", Notifier: writer})
	}
	if cfg.SMTPEnabled {
		sinks = append(sinks, notify.Sink{Name: "smtp", Notifier: smtpadapter.NewMailer(cfg, logger)})
	}
	notifier := notify.NewFanout(metrics, logger, sinks...)
	logger.Info("notification sinks configured", "sinks", notifier.Sinks())

	var fallback *domain.Location
	if cfg.HasDefaultLocation {
		fallback = &domain.Location{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon}
	}
	locator := worker.NewLocator(prefs, repo, fallback, logger)

	briefing := worker.NewBriefingWorker(repo, prefs, locator, notifier, logger)
	smartAlert := worker.NewSmartAlertWorker(repo, prefs, locator, notifier, cfg.SmartAlertMinGap, logger)

	dispatcher := worker.NewDispatcher(cfg.JobQueueSize, metrics, logger)
	dispatcher.Register(worker.JobBriefing, briefing)
	dispatcher.Register(worker.JobSmartAlert, smartAlert)
	smartAlertRunner := worker.NewRunner(worker.JobSmartAlert, smartAlert, cfg.SmartAlertInterval, metrics, logger)

	scheduler := alarm.NewScheduler(store, dispatcher, prefs, metrics, logger)
	alarms := alarm.NewService(store, scheduler, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:       httpadapter.AllReady(store, scheduler),
		Weather:     repo,
		Alarms:      alarms,
		Settings:    prefs,
		Geocoder:    geocoder,
		Jobs:        dispatcher,
		CORSOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start background workers.
	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error("dispatcher error", "error", err)
		}
	}()
	go func() {
		if err := smartAlertRunner.Run(ctx); err != nil {
			logger.Error("smart alert runner error", "error", err)
		}
	}()

	// Readiness stays failing until the alarms are back, so keep trying
	// rather than serving with nothing armed.
	if err := scheduler.Restore(ctx, restoreInitialBackoff, restoreMaxBackoff); err != nil {
		logger.Error("alarms not restored before shutdown", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
}
