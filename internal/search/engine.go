package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/jobs"
	"github.com/onnwee/cinesearch/internal/ranking"
	"github.com/onnwee/cinesearch/internal/similarity"
	"github.com/onnwee/cinesearch/internal/text"
	"github.com/onnwee/cinesearch/internal/tracing"
)

// Mode selects a ranking strategy.
type Mode string

// Ranking modes.
const (
	ModeWeighted Mode = "weighted"
	ModeCascade  Mode = "cascade"
)

// ErrUnknownMode is returned for unsupported mode names.
var ErrUnknownMode = errors.New("unknown search mode")

// ParseMode validates a mode name. The empty string is returned unchanged
// and means the engine default.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeWeighted, ModeCascade:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Ranker turns a query into an ordered list of at most limit titles.
// Implementations are pure and safe for concurrent use.
type Ranker interface {
	Rank(query string, corpus *Corpus, limit int) []string
}

// Config configures an Engine. Zero values select defaults.
type Config struct {
	Analyzer    *text.Analyzer
	Weights     *ranking.Weights
	Partial     similarity.PartialScorer
	DefaultMode Mode
	Metrics     *Metrics
	JobMetrics  jobs.Reporter
	Logger      *slog.Logger
}

// Engine owns the active Corpus and dispatches searches to a Ranker.
type Engine struct {
	corpus      atomic.Pointer[Corpus]
	analyzer    *text.Analyzer
	rankers     map[Mode]Ranker
	defaultMode Mode
	metrics     *Metrics
	jobMetrics  jobs.Reporter
	logger      *slog.Logger
}

// NewEngine creates an Engine with no corpus installed.
func NewEngine(cfg Config) *Engine {
	if cfg.Analyzer == nil {
		cfg.Analyzer = &text.Analyzer{}
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeWeighted
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		analyzer: cfg.Analyzer,
		rankers: map[Mode]Ranker{
			ModeWeighted: NewWeightedRanker(cfg.Weights, cfg.Partial),
			ModeCascade:  NewCascadeRanker(cfg.Weights),
		},
		defaultMode: cfg.DefaultMode,
		metrics:     cfg.Metrics,
		jobMetrics:  cfg.JobMetrics,
		logger:      cfg.Logger,
	}
}

// Install builds a Corpus for c and publishes it. Searches already running
// finish against the previous corpus. Install has the catalog.Listener
// signature so it can be registered with a catalog.Store.
func (e *Engine) Install(ctx context.Context, c *catalog.Catalog) {
	var corpus *Corpus
	elapsed, _ := jobs.Run(ctx, e.jobMetrics, jobs.JobTypeIndexBuild, func(context.Context) error {
		corpus = NewCorpus(c, e.analyzer)
		e.corpus.Store(corpus)
		return nil
	})
	duration := elapsed.Seconds()

	if e.metrics != nil {
		e.metrics.ObserveIndexBuild(duration, corpus.Len(), corpus.Tokens())
	}
	e.logger.InfoContext(ctx, "search index built",
		"titles", corpus.Len(),
		"tokens", corpus.Tokens(),
		"duration_seconds", duration)
}

// Corpus returns the active corpus, or catalog.ErrCatalogUnavailable if
// none has been installed.
func (e *Engine) Corpus() (*Corpus, error) {
	c := e.corpus.Load()
	if c == nil {
		return nil, catalog.ErrCatalogUnavailable
	}
	return c, nil
}

// DefaultMode returns the mode used when Search is called without one.
func (e *Engine) DefaultMode() Mode {
	return e.defaultMode
}

// Search ranks query against the active corpus and returns up to limit
// titles. No match is an empty slice, not an error.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, limit int) (titles []catalog.Title, err error) {
	if mode == "" {
		mode = e.defaultMode
	}
	ctx, endSpan := tracing.StartSearchSpan(ctx, string(mode), limit)
	defer func() { endSpan(err) }()

	ranker, ok := e.rankers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	corpus, err := e.Corpus()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	names := ranker.Rank(query, corpus, limit)
	duration := time.Since(start).Seconds()

	titles = make([]catalog.Title, 0, len(names))
	for _, name := range names {
		t, lookupErr := corpus.Catalog().ByTitle(name)
		if lookupErr != nil {
			continue
		}
		titles = append(titles, t)
	}

	if e.metrics != nil {
		e.metrics.ObserveSearch(mode, duration, len(titles))
	}
	tracing.SetAttributes(ctx,
		attribute.Int("search.query_length", len(query)),
		attribute.Int("search.results", len(titles)),
	)
	e.logger.DebugContext(ctx, "search completed",
		"mode", mode,
		"results", len(titles),
		"duration_seconds", duration)

	return titles, nil
}
