package catalog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `[
  {"id": 27205, "title": "Inception", "popularity": 50, "keywords": "dream heist subconscious"},
  {"id": 157336, "title": "Interstellar", "popularity": 80},
  {"id": 0, "title": ""}
]`

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{name: "movies.json", want: FormatJSON},
		{name: "snapshots/movies.CBOR", want: FormatCBOR},
		{name: "movies.csv", wantErr: true},
		{name: "movies", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromName(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEncodeDecode_CBOR(t *testing.T) {
	titles := []Title{
		{ID: 1, Title: "Inception", Popularity: ptr(50.0), Genres: []string{"Action", "Science Fiction"}},
		{ID: 2, Title: "Interstellar"},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, titles, FormatCBOR); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(buf.Bytes(), FormatCBOR)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 titles, got %d", len(got))
	}
	if got[0].Popularity == nil || *got[0].Popularity != 50 {
		t.Errorf("expected popularity to survive CBOR, got %v", got[0].Popularity)
	}
	if got[1].Popularity != nil {
		t.Errorf("expected missing popularity to stay missing, got %v", *got[1].Popularity)
	}
	if len(got[0].Genres) != 2 {
		t.Errorf("expected genres to survive CBOR, got %v", got[0].Genres)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("{"), FormatJSON); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Decode([]byte{0xff, 0x00}, FormatCBOR); err == nil {
		t.Error("expected error for invalid CBOR")
	}
	if _, err := Decode([]byte("[]"), Format("xml")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}

	titles, err := NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// Malformed entries are dropped by New, not by the source.
	if len(titles) != 3 {
		t.Fatalf("expected 3 raw titles, got %d", len(titles))
	}
	if titles[0].Keywords != "dream heist subconscious" {
		t.Errorf("unexpected keywords %q", titles[0].Keywords)
	}
}

func TestFileSource_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewFileSource("/nonexistent/movies.json").Load(ctx); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := NewFileSource("movies.txt").Load(ctx); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	path := filepath.Join(t.TempDir(), "movies.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileSource(path).Load(canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStaticSource_ReturnsCopy(t *testing.T) {
	src := StaticSource{{ID: 1, Title: "Up"}}
	titles, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	titles[0].Title = "Down"
	if src[0].Title != "Up" {
		t.Error("expected Load to return a copy")
	}
}

func TestNewS3Source_Validation(t *testing.T) {
	valid := S3Config{
		Bucket:          "catalog",
		Key:             "movies.json",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Endpoint:        "http://localhost:9000",
	}

	tests := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{name: "missing bucket", mutate: func(c *S3Config) { c.Bucket = "" }},
		{name: "missing key", mutate: func(c *S3Config) { c.Key = "" }},
		{name: "missing access key", mutate: func(c *S3Config) { c.AccessKeyID = "" }},
		{name: "missing secret", mutate: func(c *S3Config) { c.SecretAccessKey = "" }},
		{name: "missing endpoint", mutate: func(c *S3Config) { c.Endpoint = "" }},
		{name: "unknown format", mutate: func(c *S3Config) { c.Key = "movies.parquet" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewS3Source(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if _, err := NewS3Source(valid); err != nil {
		t.Errorf("expected valid config to succeed, got %v", err)
	}
}

func TestS3Source_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/catalog/snapshots/movies.json" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleJSON))
	}))
	defer server.Close()

	src, err := NewS3Source(S3Config{
		Bucket:          "catalog",
		Key:             "snapshots/movies.json",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Endpoint:        server.URL,
	})
	if err != nil {
		t.Fatalf("NewS3Source() error = %v", err)
	}

	titles, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(titles) != 3 || titles[1].Title != "Interstellar" {
		t.Errorf("unexpected titles %+v", titles)
	}
}

func TestS3Source_LoadMissingObject(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	src, err := NewS3Source(S3Config{
		Bucket:          "catalog",
		Key:             "movies.cbor",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Endpoint:        server.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Load(context.Background()); err == nil {
		t.Error("expected error for missing object")
	}
}
