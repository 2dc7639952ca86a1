package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/cinesearch/internal/jobs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// recordingReporter captures job metric calls.
type recordingReporter struct {
	totals map[string]int
	errors map[string]int
	timed  int
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{totals: map[string]int{}, errors: map[string]int{}}
}

func (r *recordingReporter) IncJobsTotal(jobType, status string) { r.totals[jobType+"/"+status]++ }
func (r *recordingReporter) ObserveJobDuration(string, float64)  { r.timed++ }
func (r *recordingReporter) IncJobErrors(jobType, errorType string) {
	r.errors[jobType+"/"+errorType]++
}

func TestRefreshJob_StartStop(t *testing.T) {
	store := NewStore(StaticSource{{ID: 1, Title: "Up"}}, testLogger(), nil)
	job := NewRefreshJob(RefreshJobConfig{Interval: 100 * time.Millisecond, Logger: testLogger()}, store)

	if job.IsRunning() {
		t.Error("job should not be running before Start")
	}

	ctx := context.Background()
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !job.IsRunning() {
		t.Error("job should be running after Start")
	}

	// Starting again should be safe (idempotent)
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() second call error = %v", err)
	}

	job.Stop()
	if job.IsRunning() {
		t.Error("job should not be running after Stop")
	}

	// Stopping again should be safe
	job.Stop()
}

func TestRefreshJob_ReloadsOnTick(t *testing.T) {
	store := NewStore(StaticSource{{ID: 1, Title: "Up"}}, testLogger(), nil)
	job := NewRefreshJob(RefreshJobConfig{Interval: 20 * time.Millisecond, Logger: testLogger()}, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := job.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer job.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := store.Current(); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected refresh job to publish a snapshot")
}

func TestRefreshJob_RefreshNowReportsMetrics(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{titles: []Title{{ID: 1, Title: "Up"}}},
		{err: errors.New("boom")},
	}}
	reporter := newRecordingReporter()
	job := NewRefreshJob(RefreshJobConfig{Logger: testLogger(), JobMetrics: reporter}, NewStore(src, testLogger(), nil))

	if err := job.RefreshNow(context.Background()); err != nil {
		t.Fatalf("first RefreshNow() error = %v", err)
	}
	if err := job.RefreshNow(context.Background()); err == nil {
		t.Fatal("expected second RefreshNow() to fail")
	}

	if reporter.totals[jobs.JobTypeCatalogRefresh+"/"+jobs.StatusSuccess] != 1 {
		t.Errorf("expected one success, got %v", reporter.totals)
	}
	if reporter.totals[jobs.JobTypeCatalogRefresh+"/"+jobs.StatusFailure] != 1 {
		t.Errorf("expected one failure, got %v", reporter.totals)
	}
	if reporter.errors[jobs.JobTypeCatalogRefresh+"/load_error"] != 1 {
		t.Errorf("expected one load_error, got %v", reporter.errors)
	}
	if reporter.timed != 2 {
		t.Errorf("expected 2 duration samples, got %d", reporter.timed)
	}
}

func TestRefreshJob_WithJobMetrics(t *testing.T) {
	m := jobs.NewMetrics()
	job := NewRefreshJob(RefreshJobConfig{Logger: testLogger(), JobMetrics: m},
		NewStore(StaticSource{{ID: 1, Title: "Up"}}, testLogger(), nil))

	if err := job.RefreshNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, c := range m.Collectors() {
		if testutil.CollectAndCount(c) > 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected job metrics to be recorded")
	}
}

func TestNewRefreshJob_Defaults(t *testing.T) {
	job := NewRefreshJob(RefreshJobConfig{}, nil)
	if job.config.Interval != DefaultRefreshInterval {
		t.Errorf("expected default interval, got %v", job.config.Interval)
	}
	if job.config.Timeout != DefaultRefreshTimeout {
		t.Errorf("expected default timeout, got %v", job.config.Timeout)
	}
	if job.config.Logger == nil {
		t.Error("expected default logger")
	}
}
