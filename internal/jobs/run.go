package jobs

import (
	"context"
	"errors"
	"time"
)

// Error types reported with IncJobErrors.
const (
	ErrorTypeTimeout  = "timeout"
	ErrorTypeCanceled = "canceled"
	ErrorTypeLoad     = "load_error"
)

// successMarker is implemented by reporters that track the last success.
type successMarker interface {
	MarkSuccess(jobType string, at time.Time)
}

// Run executes fn as one run of jobType and reports the outcome to r.
// r may be nil. The job's duration is returned alongside fn's error.
func Run(ctx context.Context, r Reporter, jobType string, fn func(context.Context) error) (time.Duration, error) {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if r == nil {
		return elapsed, err
	}
	r.ObserveJobDuration(jobType, elapsed.Seconds())
	if err != nil {
		r.IncJobErrors(jobType, ErrorType(ctx, err))
		r.IncJobsTotal(jobType, StatusFailure)
		return elapsed, err
	}
	r.IncJobsTotal(jobType, StatusSuccess)
	if m, ok := r.(successMarker); ok {
		m.MarkSuccess(jobType, start.Add(elapsed))
	}
	return elapsed, nil
}

// ErrorType classifies a job failure. A deadline on ctx counts as a timeout
// even when the source wrapped it in its own error.
func ErrorType(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return ErrorTypeCanceled
	default:
		return ErrorTypeLoad
	}
}

// Status maps a job error to StatusSuccess or StatusFailure.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
