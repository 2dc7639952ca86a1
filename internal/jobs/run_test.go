package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRun_Success(t *testing.T) {
	m := NewMetrics()
	before := time.Now()

	ran := false
	d, err := Run(context.Background(), m, JobTypeWordNetLoad, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("Run() = %v, ran = %v", err, ran)
	}
	if d < 0 {
		t.Errorf("negative duration %v", d)
	}
	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeWordNetLoad, StatusSuccess)); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues(JobTypeWordNetLoad)); got < float64(before.Unix()) {
		t.Errorf("last success %v is before the run started", got)
	}
	if got := testutil.CollectAndCount(m.jobErrors); got != 0 {
		t.Errorf("expected no error series, got %d", got)
	}
}

func TestRun_Failure(t *testing.T) {
	m := NewMetrics()
	boom := errors.New("boom")

	_, err := Run(context.Background(), m, JobTypeCatalogRefresh, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if got := testutil.ToFloat64(m.jobsTotal.WithLabelValues(JobTypeCatalogRefresh, StatusFailure)); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues(JobTypeCatalogRefresh, ErrorTypeLoad)); got != 1 {
		t.Errorf("load errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.lastSuccess); got != 0 {
		t.Errorf("failed run should not set last success, got %d series", got)
	}
}

func TestRun_NilReporter(t *testing.T) {
	_, err := Run(context.Background(), nil, JobTypeCatalogConvert, func(context.Context) error {
		return errors.New("unwritable")
	})
	if err == nil {
		t.Fatal("expected the job error to be returned")
	}
}

func TestErrorType(t *testing.T) {
	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	canceled, cancel2 := context.WithCancel(context.Background())
	cancel2()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want string
	}{
		{"plain error", context.Background(), errors.New("no such key"), ErrorTypeLoad},
		{"wrapped deadline", context.Background(), fmt.Errorf("get object: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"expired context", expired, errors.New("dial tcp: i/o timeout"), ErrorTypeTimeout},
		{"canceled context", canceled, errors.New("query aborted"), ErrorTypeCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(tt.ctx, tt.err); got != tt.want {
				t.Errorf("ErrorType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	if Status(nil) != StatusSuccess || Status(errors.New("x")) != StatusFailure {
		t.Error("Status() mapped outcomes incorrectly")
	}
}
