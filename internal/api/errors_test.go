package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/middleware"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, context.Background(), http.StatusNotFound, ErrCodeNotFound, "Movie not found")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Error.Code != ErrCodeNotFound || resp.Error.Message != "Movie not found" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestWriteError_LoggedByMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "bad limit")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search", nil))

	if !strings.Contains(buf.String(), `"error_code":"validation_error"`) {
		t.Errorf("expected error_code in log, got %s", buf.String())
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := map[string]int{
		ErrCodeValidation:         http.StatusBadRequest,
		ErrCodeAuthFailed:         http.StatusUnauthorized,
		ErrCodeForbidden:          http.StatusForbidden,
		ErrCodeNotFound:           http.StatusNotFound,
		ErrCodeMethodNotAllowed:   http.StatusMethodNotAllowed,
		ErrCodeRateLimited:        http.StatusTooManyRequests,
		ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
		ErrCodeInternal:           http.StatusInternalServerError,
		"something_else":          http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := StatusCodeMapping(code); got != want {
			t.Errorf("StatusCodeMapping(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"catalog unavailable", fmt.Errorf("load: %w", catalog.ErrCatalogUnavailable), http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"title not found", catalog.ErrTitleNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeServiceError(rr, httptest.NewRequest(http.MethodGet, "/movies/1", nil), tt.err)
			assertError(t, rr, tt.status, tt.code)
		})
	}
}

func TestAllowMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	if allowMethod(rr, httptest.NewRequest(http.MethodHead, "/search", nil), http.MethodGet) != true {
		t.Error("HEAD should be allowed for GET routes")
	}

	rr = httptest.NewRecorder()
	if allowMethod(rr, httptest.NewRequest(http.MethodDelete, "/search", nil), http.MethodGet) {
		t.Fatal("DELETE should be rejected")
	}
	assertError(t, rr, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
	if rr.Header().Get("Allow") != http.MethodGet {
		t.Errorf("Allow = %q", rr.Header().Get("Allow"))
	}
}
