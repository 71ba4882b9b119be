package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "realty_search"

// Metrics holds the Prometheus counters, histograms, and gauges for the search pipeline.
type Metrics struct {
	// Search metrics.
	Searches           *prometheus.CounterVec // labels: source={upstream,fallback,error}
	SearchDuration     prometheus.Histogram
	FallbackProperties prometheus.Counter

	// Upstream listing API metrics.
	UpstreamRequests    *prometheus.CounterVec   // labels: endpoint, outcome={success,empty,rate_limited,auth_failed,error}
	UpstreamAPIDuration *prometheus.HistogramVec // labels: endpoint
	UpstreamRateLimited prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Elevation metrics.
	ElevationRequests  *prometheus.CounterVec // labels: mode={single,batch}, outcome={success,error}
	ElevationCache     *prometheus.CounterVec // labels: result={hit,miss}
	EnrichmentFailures prometheus.Counter

	SnapshotsPublished prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Property searches by result source.",
		}, []string{"source"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of a complete search including enrichment.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FallbackProperties: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_properties_total",
			Help:      "Total properties synthesized because upstream data was unavailable.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Listing API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_api_duration_seconds",
			Help:      "Listing API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		UpstreamRateLimited: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited",
			Help:      "1 while the listing API cooldown is active, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_requests_total",
			Help:      "Elevation API requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		ElevationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_cache_total",
			Help:      "Elevation cache lookups by result.",
		}, []string{"result"}),
		EnrichmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Searches whose elevation enrichment step failed.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Search snapshots published to Kafka.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Searches,
		m.SearchDuration,
		m.FallbackProperties,
		m.UpstreamRequests,
		m.UpstreamAPIDuration,
		m.UpstreamRateLimited,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.ElevationRequests,
		m.ElevationCache,
		m.EnrichmentFailures,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
