package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	DBPath string

	// Upstream weather API configuration.
	WeatherAPIURL      string
	WeatherAPITimeout  time.Duration
	WeatherIconBaseURL string

	// Fallback location used by the workers when nothing has been looked up yet.
	DefaultLat         float64
	DefaultLon         float64
	HasDefaultLocation bool

	SmartAlertInterval time.Duration
	SmartAlertMinGap   time.Duration
	JobQueueSize       int

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Notification sinks. Each is enabled only when its settings are present.
	KafkaBrokers     []string
	KafkaNotifyTopic string
	KafkaEnabled     bool

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPTo       []string
	SMTPEnabled  bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parsePositiveDuration("WEATHER_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	smartInterval, err := parsePositiveDuration("SMART_ALERT_INTERVAL", "3h")
	if err != nil {
		return nil, err
	}
	smartGap, err := parsePositiveDuration("SMART_ALERT_MIN_GAP", "6h")
	if err != nil {
		return nil, err
	}

	lat, lon, hasDefault, err := parseDefaultLocation()
	if err != nil {
		return nil, err
	}

	smtpPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("SMTP_PORT", "587"))
	if err != nil || smtpPort <= 0 || smtpPort > 65535 {
		return nil, errors.New("invalid SMTP_PORT")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		DBPath: sharedcfg.EnvOrDefault("DB_PATH", "weather.db"),

		WeatherAPIURL:      strings.TrimRight(sharedcfg.EnvOrDefault("WEATHER_API_URL", "http://localhost:5000"), "/"),
		WeatherAPITimeout:  weatherTimeout,
		WeatherIconBaseURL: sharedcfg.EnvOrDefault("WEATHER_ICON_BASE_URL", "https://openweathermap.org/img/wn/"),

		DefaultLat:         lat,
		DefaultLon:         lon,
		HasDefaultLocation: hasDefault,

		SmartAlertInterval: smartInterval,
		SmartAlertMinGap:   smartGap,
		JobQueueSize:       parseQueueSize(),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		KafkaBrokers:     brokers,
		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "weather-notifications"),
		KafkaEnabled:     len(brokers) > 0,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPTo:       splitList(os.Getenv("SMTP_TO")),
	}
	cfg.SMTPEnabled = cfg.SMTPHost != ""

	if cfg.WeatherAPIURL == "" {
		return nil, errors.New("WEATHER_API_URL is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaNotifyTopic == "" {
		return nil, errors.New("KAFKA_NOTIFY_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.SMTPEnabled && (cfg.SMTPFrom == "" || len(cfg.SMTPTo) == 0) {
		return nil, errors.New("SMTP_FROM and SMTP_TO are required when SMTP_HOST is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

// parseDefaultLocation reads DEFAULT_LAT/DEFAULT_LON. Both must be set together.
func parseDefaultLocation() (float64, float64, bool, error) {
	latStr, lonStr := os.Getenv("DEFAULT_LAT"), os.Getenv("DEFAULT_LON")
	if latStr == "" && lonStr == "" {
		return 0, 0, false, nil
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false, errors.New("DEFAULT_LAT and DEFAULT_LON must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false, errors.New("invalid DEFAULT_LAT")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false, errors.New("invalid DEFAULT_LON")
	}
	return lat, lon, true, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parseQueueSize() int {
	if s := os.Getenv("JOB_QUEUE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 16
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
