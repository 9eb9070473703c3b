package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for fmsuplink
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Nav DB Metrics
	NavDBLookupsTotal   *prometheus.CounterVec
	NavDBLookupDuration *prometheus.HistogramVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Uplink Metrics
	UplinkRunsTotal     *prometheus.CounterVec
	UplinkDuration      prometheus.Histogram
	ChunksAppliedTotal  *prometheus.CounterVec
	UplinkSkippedTotal  *prometheus.CounterVec
	JobsInFlight        prometheus.Gauge
	ProviderFetchErrors *prometheus.CounterVec
}

// NewMetricsRegistry registers all metrics with the default Prometheus registerer
func NewMetricsRegistry() *MetricsRegistry {
	return NewMetricsRegistryWith(prometheus.DefaultRegisterer)
}

// NewMetricsRegistryWith registers all metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewMetricsRegistryWith(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fmsuplink_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fmsuplink_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Nav DB Metrics
		NavDBLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_navdb_lookups_total",
				Help: "Total navigation database lookups by operation",
			},
			[]string{"op"},
		),
		NavDBLookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fmsuplink_navdb_lookup_duration_seconds",
				Help:    "Navigation database lookup time in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"op"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_cache_hits_total",
				Help: "Total cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_cache_misses_total",
				Help: "Total cache misses by cache name",
			},
			[]string{"cache"},
		),

		// Uplink Metrics
		UplinkRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_uplink_runs_total",
				Help: "Total uplink runs by outcome",
			},
			[]string{"outcome"},
		),
		UplinkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fmsuplink_uplink_duration_seconds",
				Help:    "Route synthesis time in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		ChunksAppliedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_chunks_applied_total",
				Help: "Total route chunks applied by kind",
			},
			[]string{"kind"},
		),
		UplinkSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_uplink_skipped_total",
				Help: "Total chunks skipped without failing the run, by reason",
			},
			[]string{"reason"},
		),
		JobsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fmsuplink_jobs_in_flight",
				Help: "Number of queued uplink jobs currently being processed",
			},
		),
		ProviderFetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fmsuplink_provider_fetch_errors_total",
				Help: "Total OFP fetch failures by provider error code",
			},
			[]string{"code"},
		),
	}
}
