package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/cinesearch/internal/jobs"
)

// RefreshJobConfig configures the catalog refresh job.
type RefreshJobConfig struct {
	// Interval is the duration between reloads.
	Interval time.Duration
	// Timeout for each reload.
	Timeout time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics jobs.Reporter
}

// Refresh job defaults.
const (
	DefaultRefreshInterval = 5 * time.Minute
	DefaultRefreshTimeout  = 60 * time.Second
)

// RefreshJob periodically reloads the catalog store.
type RefreshJob struct {
	config RefreshJobConfig
	store  *Store

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshJob creates a new catalog refresh job.
func NewRefreshJob(config RefreshJobConfig, store *Store) *RefreshJob {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRefreshTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RefreshJob{config: config, store: store}
}

// Start begins the periodic refresh.
// Returns immediately; the job runs in a background goroutine.
func (j *RefreshJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the job to stop and waits for it to finish.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *RefreshJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *RefreshJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("catalog refresh job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("catalog refresh job stopping due to stop signal")
			return
		case <-ticker.C:
			_ = j.RefreshNow(ctx)
		}
	}
}

// RefreshNow reloads the catalog immediately without waiting for the ticker.
func (j *RefreshJob) RefreshNow(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	duration, err := jobs.Run(ctx, j.config.JobMetrics, jobs.JobTypeCatalogRefresh, func(ctx context.Context) error {
		_, err := j.store.Reload(ctx)
		return err
	})

	j.config.Logger.Debug("catalog refresh completed",
		"status", jobs.Status(err),
		"duration_seconds", duration.Seconds())
	return err
}
