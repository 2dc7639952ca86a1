// Package jobs reports the background work of the search service: catalog
// refreshes, index builds, thesaurus loads and snapshot conversions.
package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricBackgroundJobsTotal      = "background_jobs_total"
	MetricBackgroundJobsDuration   = "background_jobs_duration_seconds"
	MetricBackgroundJobErrorsTotal = "background_job_errors_total"
	MetricBackgroundJobLastSuccess = "background_job_last_success_timestamp_seconds"
)

// Job types.
const (
	JobTypeCatalogRefresh = "catalog_refresh"
	JobTypeCatalogConvert = "catalog_convert"
	JobTypeWordNetLoad    = "wordnet_load"
	JobTypeIndexBuild     = "index_build"
)

// Job outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Reporter receives job outcomes. *Metrics implements it.
type Reporter interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// Metrics contains Prometheus metrics for background jobs.
// All operations are thread-safe.
type Metrics struct {
	jobsTotal    *prometheus.CounterVec
	jobsDuration *prometheus.HistogramVec
	jobErrors    *prometheus.CounterVec
	lastSuccess  *prometheus.GaugeVec
}

// NewMetrics creates job metrics. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBackgroundJobsTotal,
				Help: "Total number of background job executions by type and status",
			},
			[]string{"job_type", "status"},
		),
		// Index builds and thesaurus loads finish in milliseconds; remote
		// catalog loads can take tens of seconds.
		jobsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricBackgroundJobsDuration,
				Help:    "Histogram of background job duration in seconds by job type",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"job_type"},
		),
		jobErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBackgroundJobErrorsTotal,
				Help: "Total number of background job errors by type and error type",
			},
			[]string{"job_type", "error_type"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricBackgroundJobLastSuccess,
				Help: "Unix time of the last successful run by job type",
			},
			[]string{"job_type"},
		),
	}
}

// Register registers all metrics with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncJobsTotal counts one finished run of jobType with the given status.
func (m *Metrics) IncJobsTotal(jobType, status string) {
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
}

// ObserveJobDuration records how long one run of jobType took.
func (m *Metrics) ObserveJobDuration(jobType string, seconds float64) {
	m.jobsDuration.WithLabelValues(jobType).Observe(seconds)
}

// IncJobErrors counts one failed run of jobType by cause (see ErrorType).
func (m *Metrics) IncJobErrors(jobType, errorType string) {
	m.jobErrors.WithLabelValues(jobType, errorType).Inc()
}

// MarkSuccess records at as the time jobType last succeeded.
func (m *Metrics) MarkSuccess(jobType string, at time.Time) {
	m.lastSuccess.WithLabelValues(jobType).Set(float64(at.UnixNano()) / 1e9)
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.jobsTotal,
		m.jobsDuration,
		m.jobErrors,
		m.lastSuccess,
	}
}
