package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/cinesearch/internal/tracing"
)

// Listener is called with every newly published snapshot. Listeners run
// synchronously inside Reload, in registration order.
type Listener func(ctx context.Context, c *Catalog)

// Store holds the current catalog snapshot and replaces it atomically on
// reload. Readers never block.
type Store struct {
	source  Source
	logger  *slog.Logger
	metrics *Metrics

	current atomic.Pointer[Catalog]

	mu        sync.Mutex // serializes reloads and listener registration
	listeners []Listener

	statusMu sync.RWMutex
	lastErr  error
	loadedAt time.Time
}

// NewStore creates a Store backed by source. metrics may be nil.
func NewStore(source Source, logger *slog.Logger, metrics *Metrics) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// OnReload registers a listener. If a snapshot is already published the
// listener is called with it immediately.
func (s *Store) OnReload(ctx context.Context, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)
	if c := s.current.Load(); c != nil {
		l(ctx, c)
	}
}

// Reload loads a fresh snapshot from the source, publishes it and notifies
// listeners. On failure the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (_ *Catalog, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "catalog.reload")
	defer func() { endSpan(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	titles, err := s.source.Load(ctx)
	if err != nil {
		s.setStatus(time.Time{}, err)
		if s.metrics != nil {
			s.metrics.IncReloadErrors()
		}
		s.logger.ErrorContext(ctx, "catalog reload failed",
			"error", err,
			"has_previous_snapshot", s.current.Load() != nil)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	c, dropped := New(titles)
	s.current.Store(c)
	for _, l := range s.listeners {
		l(ctx, c)
	}

	tracing.SetAttributes(ctx,
		attribute.Int("catalog.titles", c.Len()),
		attribute.Int("catalog.dropped", dropped),
	)

	loadedAt := time.Now()
	s.setStatus(loadedAt, nil)
	duration := loadedAt.Sub(start)
	if s.metrics != nil {
		s.metrics.ObserveReload(duration.Seconds(), c.Len(), dropped, float64(loadedAt.Unix()))
	}

	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped malformed or duplicate catalog entries",
			"dropped", dropped)
	}
	s.logger.InfoContext(ctx, "catalog reloaded",
		"titles", c.Len(),
		"duration_ms", duration.Milliseconds())

	return c, nil
}

// Current returns the published snapshot, or ErrCatalogUnavailable if no
// load has succeeded yet.
func (s *Store) Current() (*Catalog, error) {
	c := s.current.Load()
	if c == nil {
		return nil, ErrCatalogUnavailable
	}
	return c, nil
}

// Status reports when the current snapshot was loaded and the error of the
// most recent reload, if it failed.
func (s *Store) Status() (loadedAt time.Time, lastErr error) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.loadedAt, s.lastErr
}

// setStatus records a reload outcome. A zero loadedAt keeps the previous one.
func (s *Store) setStatus(loadedAt time.Time, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if !loadedAt.IsZero() {
		s.loadedAt = loadedAt
	}
	s.lastErr = err
}
