package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_alarm"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Upstream weather API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={current,hourly,weekly,cctv}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint
	CacheFallbacks   prometheus.Counter
	CacheWriteErrors prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge

	// Alarm and worker metrics.
	AlarmsScheduled prometheus.Gauge
	AlarmsFired     prometheus.Counter
	WorkerRuns      *prometheus.CounterVec // labels: worker, outcome={success,error,skipped}
	WorkerRunning   *prometheus.GaugeVec   // labels: worker

	Notifications *prometheus.CounterVec // labels: kind, sink, outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheFallbacks,
		m.CacheWriteErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.AlarmsScheduled,
		m.AlarmsFired,
		m.WorkerRuns,
		m.WorkerRunning,
		m.Notifications,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      help("Weather API requests by endpoint and outcome."),
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      help("Weather API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		CacheFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_fallbacks_total",
			Help:      help("Weather lookups served from the local cache after an upstream failure."),
		}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_write_errors_total",
			Help:      help("Failures storing a fresh weather snapshot."),
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding API requests by method and outcome."),
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by method and result."),
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Mapbox API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when geocoding is enabled, 0 otherwise."),
		}),
		AlarmsScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarms_scheduled",
			Help:      help("Number of alarms currently armed."),
		}),
		AlarmsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_fired_total",
			Help:      help("Total alarms that reached their trigger time."),
		}),
		WorkerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_runs_total",
			Help:      help("Background worker runs by worker and outcome."),
		}, []string{"worker", "outcome"}),
		WorkerRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_running",
			Help:      help("1 while a periodic worker loop is active, 0 when shut down."),
		}, []string{"worker"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      help("Notifications delivered by kind, sink and outcome."),
		}, []string{"kind", "sink", "outcome"}),
	}
}
