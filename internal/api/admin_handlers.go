package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/cinesearch/internal/auth"
	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/middleware"
)

// TokenValidator validates bearer tokens. *auth.JWTService implements it.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// RequireAdmin rejects requests without a valid access token carrying the
// admin role. The token subject is recorded for request logs.
func RequireAdmin(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				writeErrorCode(w, r, ErrCodeAuthFailed, "Missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "Token has expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin", error="invalid_token"`)
				writeErrorCode(w, r, ErrCodeAuthFailed, msg)
				return
			}

			ctx := middleware.SetSubject(r.Context(), claims.Subject)
			middleware.UpdateResponseContext(w, ctx)
			r = r.WithContext(ctx)
			if !claims.HasRole(auth.RoleAdmin) {
				writeErrorCode(w, r, ErrCodeForbidden, "Admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Reloader reloads the catalog from its source. *catalog.Store implements it.
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Catalog, error)
	Status() (loadedAt time.Time, lastErr error)
}

// AdminHandlers serves operator endpoints.
type AdminHandlers struct {
	reloader Reloader
	logger   *slog.Logger
}

// NewAdminHandlers creates admin handlers.
func NewAdminHandlers(reloader Reloader, logger *slog.Logger) *AdminHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandlers{reloader: reloader, logger: logger}
}

// ReloadResponse is the body of POST /admin/catalog/reload.
type ReloadResponse struct {
	Titles   int       `json:"titles"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ReloadCatalog handles POST /admin/catalog/reload. On failure the previous
// catalog keeps serving and 503 is returned.
func (h *AdminHandlers) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	c, err := h.reloader.Reload(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "catalog reload failed",
			"error", err, "subject", middleware.GetSubject(r.Context()))
		writeErrorCode(w, r, ErrCodeServiceUnavailable, "Catalog reload failed")
		return
	}

	loadedAt, _ := h.reloader.Status()
	h.logger.InfoContext(r.Context(), "catalog reloaded by operator",
		"titles", c.Len(), "subject", middleware.GetSubject(r.Context()))
	writeJSON(w, r, ReloadResponse{Titles: c.Len(), LoadedAt: loadedAt.UTC()})
}
