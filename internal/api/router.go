package api

import (
	"net/http"
	"net/netip"

	"github.com/onnwee/cinesearch/internal/middleware"
)

// RouterConfig wires handlers into the service mux. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Search  *SearchHandlers
	Movies  *MovieHandlers
	Admin   *AdminHandlers
	Health  *HealthHandlers
	Metrics http.Handler // Prometheus scrape handler

	// Validator guards /admin routes. Without it admin routes are disabled.
	Validator TokenValidator

	// RateLimitStore enables per-route limits when set.
	RateLimitStore    middleware.RateLimitStore
	SearchLimit       middleware.RateLimitConfig
	AdminLimit        middleware.RateLimitConfig
	MiddlewareMetrics *middleware.Metrics
	// TrustedProxies may set the client IP through forwarding headers.
	TrustedProxies []netip.Prefix

	ServiceName string
	Version     string
}

// NewRouter returns the route table of the service.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	limit := func(limitCfg middleware.RateLimitConfig, keyFunc middleware.KeyFunc, h http.Handler) http.Handler {
		if cfg.RateLimitStore == nil || limitCfg.Validate() != nil {
			return h
		}
		return middleware.RateLimiter(cfg.RateLimitStore, limitCfg, keyFunc, cfg.MiddlewareMetrics)(h)
	}

	if cfg.Search != nil {
		mux.Handle("/search", limit(cfg.SearchLimit, middleware.IPKeyFunc(cfg.TrustedProxies...), http.HandlerFunc(cfg.Search.Search)))
	}
	if cfg.Movies != nil {
		mux.HandleFunc("/movies/", cfg.Movies.Route)
	}
	if cfg.Admin != nil && cfg.Validator != nil {
		reload := limit(cfg.AdminLimit, middleware.SubjectKeyFunc(cfg.TrustedProxies...), http.HandlerFunc(cfg.Admin.ReloadCatalog))
		mux.Handle("/admin/catalog/reload", RequireAdmin(cfg.Validator)(reload))
	}
	if cfg.Health != nil {
		mux.HandleFunc("/health", cfg.Health.Health)
		mux.HandleFunc("/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	service := cfg.ServiceName
	if service == "" {
		service = "cinesearch"
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeErrorCode(w, r, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		writeJSON(w, r, map[string]string{"service": service, "version": cfg.Version})
	})

	return mux
}
