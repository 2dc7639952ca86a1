package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/cinesearch/internal/catalog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, _ := catalog.New([]catalog.Title{
		{ID: 603, Title: "The Matrix", Popularity: ptr(60.0), ReleaseDate: "1999-03-30", PosterPath: "/matrix.jpg", VoteAverage: ptr(8.2), Genres: []string{"Action", "Science Fiction"}},
		{ID: 604, Title: "Matrix Reloaded", Popularity: ptr(40.0), ReleaseDate: "2003-05-15"},
		{ID: 1422, Title: "Face/Off", Popularity: ptr(20.0)},
		{ID: 2666, Title: "Dark City"},
	})
	return c
}

type staticCatalog struct {
	c   *catalog.Catalog
	err error
}

func (s staticCatalog) Current() (*catalog.Catalog, error) {
	return s.c, s.err
}

type fakeRecommender struct {
	titles []string
	err    error
	calls  []int
}

func (f *fakeRecommender) Similar(_ context.Context, _ string, k int) ([]string, error) {
	f.calls = append(f.calls, k)
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.titles) {
		return f.titles[:k], nil
	}
	return f.titles, nil
}

type fakeReloader struct {
	c        *catalog.Catalog
	err      error
	loadedAt time.Time
	calls    int
}

func (f *fakeReloader) Reload(context.Context) (*catalog.Catalog, error) {
	f.calls++
	return f.c, f.err
}

func (f *fakeReloader) Status() (time.Time, error) {
	return f.loadedAt, f.err
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode body: %v, body: %s", err, rr.Body.String())
	}
	return v
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Errorf("status = %d, want %d (body: %s)", rr.Code, status, rr.Body.String())
	}
	if got := decodeBody[ErrorResponse](t, rr).Error.Code; got != code {
		t.Errorf("error code = %q, want %q", got, code)
	}
}
