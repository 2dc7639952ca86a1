package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/cinesearch/internal/auth"
	"github.com/onnwee/cinesearch/internal/middleware"
)

const adminSecret = "test-admin-secret-0123456789abcdef"

func TestRequireAdmin(t *testing.T) {
	svc := auth.NewJWTService(adminSecret)
	adminToken, _ := svc.GenerateAccessToken("ops@example.com", auth.RoleAdmin)
	viewerToken, _ := svc.GenerateAccessToken("viewer@example.com")
	foreignToken, _ := auth.NewJWTService("another-secret").GenerateAccessToken("ops", auth.RoleAdmin)
	expiredToken, _ := svc.WithExpiry(-time.Hour).WithLeeway(0).GenerateAccessToken("ops", auth.RoleAdmin)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"admin", "Bearer " + adminToken, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, ErrCodeAuthFailed},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized, ErrCodeAuthFailed},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, ErrCodeAuthFailed},
		{"foreign signature", "Bearer " + foreignToken, http.StatusUnauthorized, ErrCodeAuthFailed},
		{"expired", "Bearer " + expiredToken, http.StatusUnauthorized, ErrCodeAuthFailed},
		{"missing role", "Bearer " + viewerToken, http.StatusForbidden, ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			handler := RequireAdmin(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = middleware.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if tt.code == "" {
				if rr.Code != tt.status || subject != "ops@example.com" {
					t.Errorf("status = %d subject = %q", rr.Code, subject)
				}
				return
			}
			assertError(t, rr, tt.status, tt.code)
			if tt.status == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestRequireAdmin_ExpiredMessage(t *testing.T) {
	svc := auth.NewJWTService(adminSecret).WithLeeway(0)
	expired, _ := svc.WithExpiry(-time.Hour).GenerateAccessToken("ops", auth.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rr := httptest.NewRecorder()
	RequireAdmin(svc)(http.NotFoundHandler()).ServeHTTP(rr, req)

	if got := decodeBody[ErrorResponse](t, rr).Error.Message; got != "Token has expired" {
		t.Errorf("message = %q", got)
	}
}

func TestRequireAdmin_SubjectLoggedOnForbidden(t *testing.T) {
	svc := auth.NewJWTService(adminSecret)
	viewer, _ := svc.GenerateAccessToken("viewer@example.com")

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	handler := middleware.Logging(logger)(RequireAdmin(svc)(http.NotFoundHandler()))

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	log := buf.String()
	if !strings.Contains(log, `"subject":"viewer@example.com"`) || !strings.Contains(log, `"error_code":"forbidden"`) {
		t.Errorf("expected subject and error_code in log, got %s", log)
	}
}

func TestReloadCatalog(t *testing.T) {
	loadedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reloader := &fakeReloader{c: testCatalog(t), loadedAt: loadedAt}
	h := NewAdminHandlers(reloader, discardLogger())

	rr := httptest.NewRecorder()
	h.ReloadCatalog(rr, httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[ReloadResponse](t, rr)
	if resp.Titles != 4 || !resp.LoadedAt.Equal(loadedAt) {
		t.Errorf("unexpected response: %+v", resp)
	}
	if reloader.calls != 1 {
		t.Errorf("reload calls = %d, want 1", reloader.calls)
	}
}

func TestReloadCatalog_Errors(t *testing.T) {
	reloader := &fakeReloader{err: errors.New("s3: access denied")}
	h := NewAdminHandlers(reloader, discardLogger())

	rr := httptest.NewRecorder()
	h.ReloadCatalog(rr, httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", nil))
	assertError(t, rr, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)

	rr = httptest.NewRecorder()
	h.ReloadCatalog(rr, httptest.NewRequest(http.MethodGet, "/admin/catalog/reload", nil))
	assertError(t, rr, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
	if reloader.calls != 1 {
		t.Errorf("GET should not trigger a reload, calls = %d", reloader.calls)
	}
}
