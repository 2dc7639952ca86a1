package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig configures the profiling middleware.
type ProfilingConfig struct {
	// Enabled exposes /debug/pprof. Development only.
	Enabled bool
	// Environment is checked again so production never serves profiles.
	Environment string
}

// Active reports whether profiles will actually be served.
func (c ProfilingConfig) Active() bool {
	return c.Enabled && c.Environment != "production" && c.Environment != "prod"
}

// Profiling serves net/http/pprof under /debug/pprof when the config is
// active and passes every other request through.
//
// Profiles expose memory contents and runtime internals. The production
// check is repeated here so a misconfigured flag alone cannot leak them.
func Profiling(config ProfilingConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}
		if !config.Active() {
			logger.Error("profiling requested in production, refusing to expose pprof",
				"environment", config.Environment,
			)
			return next
		}
		logger.Warn("profiling endpoints enabled", "environment", config.Environment, "prefix", "/debug/pprof/")

		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				if r.URL.Path == "/debug/pprof" {
					http.Redirect(w, r, "/debug/pprof/", http.StatusMovedPermanently)
					return
				}
				mux.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
