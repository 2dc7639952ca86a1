package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricCatalogReloadTotal         = "catalog_reload_total"
	MetricCatalogReloadErrors        = "catalog_reload_errors_total"
	MetricCatalogReloadDuration      = "catalog_reload_duration_seconds"
	MetricCatalogLastReloadTimestamp = "catalog_last_reload_timestamp"
	MetricCatalogTitles              = "catalog_titles"
	MetricCatalogDroppedTitles       = "catalog_dropped_titles"
)

// Metrics contains Prometheus metrics for catalog loading.
// All operations are thread-safe.
type Metrics struct {
	reloadTotal         prometheus.Counter
	reloadErrors        prometheus.Counter
	reloadDuration      prometheus.Histogram
	lastReloadTimestamp prometheus.Gauge
	titles              prometheus.Gauge
	droppedTitles       prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		reloadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCatalogReloadTotal,
			Help: "Total number of successful catalog reloads",
		}),
		reloadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCatalogReloadErrors,
			Help: "Total number of failed catalog reloads",
		}),
		reloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricCatalogReloadDuration,
			Help:    "Histogram of catalog reload duration in seconds, including index builds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		lastReloadTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCatalogLastReloadTimestamp,
			Help: "Unix timestamp of the last successful catalog reload",
		}),
		titles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCatalogTitles,
			Help: "Number of titles in the published catalog snapshot",
		}),
		droppedTitles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCatalogDroppedTitles,
			Help: "Number of malformed or duplicate entries dropped from the last snapshot",
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

// ObserveReload records a successful reload.
func (m *Metrics) ObserveReload(seconds float64, titles, dropped int, timestamp float64) {
	m.reloadTotal.Inc()
	m.reloadDuration.Observe(seconds)
	m.titles.Set(float64(titles))
	m.droppedTitles.Set(float64(dropped))
	m.lastReloadTimestamp.Set(timestamp)
}

// IncReloadErrors increments the reload errors counter.
func (m *Metrics) IncReloadErrors() {
	m.reloadErrors.Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.reloadTotal,
		m.reloadErrors,
		m.reloadDuration,
		m.lastReloadTimestamp,
		m.titles,
		m.droppedTitles,
	}
}
