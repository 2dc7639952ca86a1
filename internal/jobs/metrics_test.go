package jobs

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func histogramSnapshot(t *testing.T, vec *prometheus.HistogramVec, labels ...string) *dto.Histogram {
	t.Helper()
	observer, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	var m dto.Metric
	if err := observer.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram()
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	m.IncJobsTotal(JobTypeCatalogRefresh, StatusSuccess)
	m.ObserveJobDuration(JobTypeCatalogRefresh, 1.5)
	m.IncJobErrors(JobTypeWordNetLoad, ErrorTypeLoad)
	m.MarkSuccess(JobTypeCatalogRefresh, time.Unix(1700000000, 0))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		MetricBackgroundJobsTotal,
		MetricBackgroundJobsDuration,
		MetricBackgroundJobErrorsTotal,
		MetricBackgroundJobLastSuccess,
	} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}

	if err := NewMetrics().Register(reg); err == nil {
		t.Error("second Register() on the same registry should fail")
	}
}

func TestMetrics_Values(t *testing.T) {
	m := NewMetrics()

	m.IncJobsTotal(JobTypeIndexBuild, StatusSuccess)
	m.IncJobsTotal(JobTypeIndexBuild, StatusSuccess)
	m.IncJobsTotal(JobTypeCatalogRefresh, StatusFailure)
	m.IncJobErrors(JobTypeCatalogRefresh, ErrorTypeTimeout)
	m.MarkSuccess(JobTypeIndexBuild, time.Unix(1700000000, 500_000_000))

	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeIndexBuild, StatusSuccess)); got != 2 {
		t.Errorf("index_build successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeCatalogRefresh, StatusFailure)); got != 1 {
		t.Errorf("catalog_refresh failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues(JobTypeCatalogRefresh, ErrorTypeTimeout)); got != 1 {
		t.Errorf("catalog_refresh timeouts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues(JobTypeIndexBuild)); got != 1700000000.5 {
		t.Errorf("last success = %v", got)
	}
}

func TestMetrics_DurationBuckets(t *testing.T) {
	m := NewMetrics()
	m.ObserveJobDuration(JobTypeIndexBuild, 0.003)
	m.ObserveJobDuration(JobTypeCatalogRefresh, 45)

	if got := testutil.CollectAndCount(m.jobsDuration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}

	build := histogramSnapshot(t, m.jobsDuration, JobTypeIndexBuild)
	buckets := build.GetBucket()
	if len(buckets) != 11 {
		t.Fatalf("expected 11 buckets, got %d", len(buckets))
	}
	if buckets[0].GetUpperBound() != 0.005 || buckets[0].GetCumulativeCount() != 1 {
		t.Errorf("first bucket = %v, want le=0.005 count=1", buckets[0])
	}

	// 45s lands above the 30s bucket and below the 60s one.
	refresh := histogramSnapshot(t, m.jobsDuration, JobTypeCatalogRefresh)
	buckets = refresh.GetBucket()
	if got := buckets[len(buckets)-2]; got.GetUpperBound() != 30 || got.GetCumulativeCount() != 0 {
		t.Errorf("30s bucket = %v, want count 0", got)
	}
	if got := buckets[len(buckets)-1]; got.GetUpperBound() != 60 || got.GetCumulativeCount() != 1 {
		t.Errorf("60s bucket = %v, want count 1", got)
	}
	if refresh.GetSampleSum() != 45 {
		t.Errorf("sample sum = %v, want 45", refresh.GetSampleSum())
	}
}

func TestMetrics_Concurrency(t *testing.T) {
	m := NewMetrics()

	const goroutines, perGoroutine = 10, 100
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.IncJobsTotal(JobTypeCatalogRefresh, StatusSuccess)
				m.ObserveJobDuration(JobTypeCatalogRefresh, 0.1)
				m.MarkSuccess(JobTypeCatalogRefresh, time.Now())
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeCatalogRefresh, StatusSuccess)); got != goroutines*perGoroutine {
		t.Errorf("expected %d, got %v", goroutines*perGoroutine, got)
	}
}
