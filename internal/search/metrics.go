package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricSearchesTotal          = "search_queries_total"
	MetricSearchZeroResultsTotal = "search_zero_results_total"
	MetricSearchDuration         = "search_duration_seconds"
	MetricIndexBuildDuration     = "search_index_build_duration_seconds"
	MetricIndexTitles            = "search_index_titles"
	MetricIndexTokens            = "search_index_tokens"
)

// Metrics contains Prometheus metrics for search operations.
// All operations are thread-safe.
type Metrics struct {
	searchesTotal      *prometheus.CounterVec
	zeroResultsTotal   *prometheus.CounterVec
	searchDuration     *prometheus.HistogramVec
	indexBuildDuration prometheus.Histogram
	indexTitles        prometheus.Gauge
	indexTokens        prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchesTotal,
				Help: "Total number of search queries by ranking mode",
			},
			[]string{"mode"},
		),
		zeroResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchZeroResultsTotal,
				Help: "Total number of search queries that returned no titles, by ranking mode",
			},
			[]string{"mode"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSearchDuration,
				Help:    "Histogram of ranking duration in seconds by ranking mode",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"mode"},
		),
		indexBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricIndexBuildDuration,
			Help:    "Histogram of corpus index build duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		indexTitles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexTitles,
			Help: "Number of titles in the active search corpus",
		}),
		indexTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexTokens,
			Help: "Number of distinct lemmas in the active search index",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSearch records one ranking call.
func (m *Metrics) ObserveSearch(mode Mode, seconds float64, results int) {
	m.searchesTotal.WithLabelValues(string(mode)).Inc()
	m.searchDuration.WithLabelValues(string(mode)).Observe(seconds)
	if results == 0 {
		m.zeroResultsTotal.WithLabelValues(string(mode)).Inc()
	}
}

// ObserveIndexBuild records a corpus build.
func (m *Metrics) ObserveIndexBuild(seconds float64, titles, tokens int) {
	m.indexBuildDuration.Observe(seconds)
	m.indexTitles.Set(float64(titles))
	m.indexTokens.Set(float64(tokens))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.searchesTotal,
		m.zeroResultsTotal,
		m.searchDuration,
		m.indexBuildDuration,
		m.indexTitles,
		m.indexTokens,
	}
}
