package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker defines the interface for components that can be health checked.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check states reported by /ready.
const (
	checkOK            = "ok"
	checkError         = "error"
	checkNotConfigured = "not_configured"
)

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 5 * time.Second

// HealthHandlers provides health and readiness endpoints for Kubernetes probes.
type HealthHandlers struct {
	checks  []namedCheck
	version string
}

type namedCheck struct {
	name    string
	checker HealthChecker
}

// HealthHandlersConfig configures the health check handlers. Nil checkers
// are reported as not configured and do not affect readiness.
type HealthHandlersConfig struct {
	CatalogChecker HealthChecker
	DBChecker      HealthChecker
	RedisChecker   HealthChecker
	QdrantChecker  HealthChecker
	Version        string
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		checks: []namedCheck{
			{"catalog", config.CatalogChecker},
			{"database", config.DBChecker},
			{"redis", config.RedisChecker},
			{"qdrant", config.QdrantChecker},
		},
		version: config.Version,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness). If we can respond, we're alive.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	h.write(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Checks:  map[string]string{"runtime": checkOK},
		Version: h.version,
	})
}

// Ready handles GET /ready (readiness). Returns 503 when any configured
// dependency fails, including a catalog that has never loaded.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		if c.checker == nil {
			checks[c.name] = checkNotConfigured
			continue
		}
		if err := c.checker.HealthCheck(ctx); err != nil {
			checks[c.name] = checkError
			healthy = false
			slog.WarnContext(ctx, "readiness check failed", "check", c.name, "error", err)
			continue
		}
		checks[c.name] = checkOK
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	h.write(w, r, code, HealthResponse{Status: status, Checks: checks, Version: h.version})
}

func (h *HealthHandlers) write(w http.ResponseWriter, r *http.Request, code int, resp HealthResponse) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode health response", "error", err)
	}
}
