package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/cinesearch/internal/api"
	"github.com/onnwee/cinesearch/internal/auth"
	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/config"
	"github.com/onnwee/cinesearch/internal/health"
	"github.com/onnwee/cinesearch/internal/jobs"
	"github.com/onnwee/cinesearch/internal/middleware"
	"github.com/onnwee/cinesearch/internal/ranking"
	"github.com/onnwee/cinesearch/internal/recommend"
	"github.com/onnwee/cinesearch/internal/search"
	"github.com/onnwee/cinesearch/internal/text"
)

const serviceName = "cinesearch"

// rateLimitCleanupInterval is how often expired in-memory buckets are dropped.
const rateLimitCleanupInterval = 5 * time.Minute

// service is the assembled API: the root handler plus the resources that
// need starting and closing around it.
type service struct {
	handler  http.Handler
	registry *prometheus.Registry
	store    *catalog.Store
	engine   *search.Engine
	refresh  *catalog.RefreshJob
	interval time.Duration
	memLimit *middleware.InMemoryRateLimitStore
	logger   *slog.Logger
	closers  []func() error
}

// newService wires every component from cfg. Nothing is loaded or started
// until start is called.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *service, err error) {
	svc := &service{
		registry: prometheus.NewRegistry(),
		interval: cfg.CatalogRefreshInterval,
		logger:   logger,
	}
	defer func() {
		if err != nil {
			svc.close(context.Background())
		}
	}()

	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	jobMetrics := jobs.NewMetrics()
	catalogMetrics := catalog.NewMetrics()
	searchMetrics := search.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	for _, m := range []interface{ Register(prometheus.Registerer) error }{
		jobMetrics, catalogMetrics, searchMetrics, httpMetrics,
	} {
		if err := m.Register(svc.registry); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	analyzer, err := newAnalyzer(ctx, cfg, logger, jobMetrics)
	if err != nil {
		return nil, err
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		return nil, fmt.Errorf("load ranking calibration: %w", err)
	}

	mode, err := search.ParseMode(cfg.SearchMode)
	if err != nil {
		return nil, err
	}

	healthCfg := api.HealthHandlersConfig{Version: version}

	source, err := svc.newCatalogSource(cfg, &healthCfg)
	if err != nil {
		return nil, err
	}
	svc.store = catalog.NewStore(source, logger, catalogMetrics)
	svc.refresh = catalog.NewRefreshJob(catalog.RefreshJobConfig{
		Interval:   cfg.CatalogRefreshInterval,
		Logger:     logger,
		JobMetrics: jobMetrics,
	}, svc.store)
	healthCfg.CatalogChecker = health.NewCatalogChecker(svc.store, cfg.CatalogMaxAge)

	svc.engine = search.NewEngine(search.Config{
		Analyzer:    analyzer,
		Weights:     weights,
		DefaultMode: mode,
		Metrics:     searchMetrics,
		JobMetrics:  jobMetrics,
		Logger:      logger,
	})
	svc.store.OnReload(ctx, svc.engine.Install)

	rec, err := svc.newRecommender(cfg, &healthCfg)
	if err != nil {
		return nil, err
	}

	limitStore, err := svc.newRateLimitStore(cfg, &healthCfg)
	if err != nil {
		return nil, err
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	routerCfg := api.RouterConfig{
		Search:            api.NewSearchHandlers(svc.engine, cfg.SearchDefaultLimit),
		Movies:            api.NewMovieHandlers(svc.store, rec, logger),
		Health:            api.NewHealthHandlers(healthCfg),
		Metrics:           api.MetricsHandler(svc.registry, cfg.MetricsToken),
		RateLimitStore:    limitStore,
		SearchLimit:       perMinute(cfg.SearchRateLimit),
		AdminLimit:        perMinute(cfg.AdminRateLimit),
		MiddlewareMetrics: httpMetrics,
		TrustedProxies:    trustedProxies,
		ServiceName:       serviceName,
		Version:           version,
	}
	if cfg.AdminEnabled() {
		routerCfg.Admin = api.NewAdminHandlers(svc.store, logger)
		routerCfg.Validator = auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	} else {
		logger.Warn("JWT_SECRET not set, admin endpoints disabled")
	}
	mux := api.NewRouter(routerCfg)

	// Apply middleware, outermost first:
	// Recover -> RequestID -> Tracing -> Logging -> CORS -> HTTPMetrics -> RateLimiter -> Profiling
	var handler http.Handler = mux
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.ProfilingEnabled,
		Environment: cfg.Env,
	}, logger)(handler)
	handler = middleware.RateLimiter(limitStore, perMinute(cfg.GlobalRateLimit), middleware.IPKeyFunc(trustedProxies...), httpMetrics)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(logger)(handler)
	svc.handler = handler

	return svc, nil
}

func perMinute(n int) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{RequestsPerWindow: n, WindowDuration: time.Minute}
}

// newAnalyzer builds the query/title analyzer. Loading the thesaurus is
// reported as a background job.
func newAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger, jm jobs.Reporter) (*text.Analyzer, error) {
	var lemmatizer text.Lemmatizer = text.Identity{}
	if cfg.StemmingEnabled {
		lemmatizer = text.Snowball{}
	}

	var synonyms text.SynonymSource = text.NoSynonyms{}
	if cfg.WordNetPath != "" {
		var thesaurus *text.Thesaurus
		duration, err := jobs.Run(ctx, jm, jobs.JobTypeWordNetLoad, func(context.Context) error {
			var err error
			thesaurus, err = text.LoadWordNet(cfg.WordNetPath)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("load wordnet: %w", err)
		}
		logger.InfoContext(ctx, "wordnet loaded", "path", cfg.WordNetPath, "words", thesaurus.Len(), "duration_seconds", duration.Seconds())
		synonyms = thesaurus
	}

	return text.NewAnalyzer(lemmatizer, synonyms), nil
}

func (s *service) newCatalogSource(cfg *config.Config, hc *api.HealthHandlersConfig) (catalog.Source, error) {
	switch cfg.CatalogSource {
	case config.CatalogSourcePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
		s.closers = append(s.closers, db.Close)
		hc.DBChecker = health.NewDBChecker(db)
		return catalog.NewPostgresSource(db, s.logger), nil
	case config.CatalogSourceS3:
		src, err := catalog.NewS3Source(catalog.S3Config{
			Bucket:          cfg.S3Bucket,
			Key:             cfg.S3Key,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 catalog source: %w", err)
		}
		return src, nil
	default:
		return catalog.NewFileSource(cfg.CatalogPath), nil
	}
}

func (s *service) newRecommender(cfg *config.Config, hc *api.HealthHandlersConfig) (recommend.Recommender, error) {
	switch cfg.Recommender {
	case config.RecommenderPrecomputed:
		p, err := recommend.LoadPrecomputed(cfg.NeighboursPath, cfg.RecommendThreshold)
		if err != nil {
			return nil, fmt.Errorf("load neighbours: %w", err)
		}
		s.logger.Info("precomputed recommender loaded", "titles", p.Len())
		return p, nil
	case config.RecommenderQdrant:
		q, err := recommend.NewQdrant(recommend.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Threshold:  cfg.RecommendThreshold,
		}, s.store.Current, s.logger)
		if err != nil {
			return nil, fmt.Errorf("qdrant recommender: %w", err)
		}
		s.closers = append(s.closers, q.Close)
		if cfg.QdrantRESTURL != "" {
			hc.QdrantChecker = health.NewQdrantChecker(cfg.QdrantRESTURL, cfg.QdrantAPIKey)
		}
		return q, nil
	default:
		return recommend.Noop{}, nil
	}
}

func (s *service) newRateLimitStore(cfg *config.Config, hc *api.HealthHandlersConfig) (middleware.RateLimitStore, error) {
	if cfg.RedisURL == "" {
		s.memLimit = middleware.NewInMemoryRateLimitStore()
		return s.memLimit, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	s.closers = append(s.closers, client.Close)
	hc.RedisChecker = health.NewRedisChecker(client)
	return middleware.NewRedisRateLimitStore(client), nil
}

// start loads the first catalog snapshot and launches background jobs.
// A catalog that cannot be loaded at startup is fatal.
func (s *service) start(ctx context.Context) error {
	if err := s.refresh.RefreshNow(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	if s.interval > 0 {
		if err := s.refresh.Start(ctx); err != nil {
			return fmt.Errorf("start catalog refresh: %w", err)
		}
	}
	if s.memLimit != nil {
		go s.memLimit.RunCleanup(ctx, rateLimitCleanupInterval)
	}
	return nil
}

// close stops background jobs and releases clients. Safe to call more than once.
func (s *service) close(ctx context.Context) {
	if s.refresh != nil {
		s.refresh.Stop()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "error releasing resources", "error", err)
	}
}
