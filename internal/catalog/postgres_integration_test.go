//go:build integration

// Integration tests for PostgresSource. They start a disposable PostgreSQL
// container, apply the movies migration and load the catalog from it.
// Run with: go test -tags=integration -v ./internal/catalog/...
//
// Requires a working Docker daemon.
package catalog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/onnwee/cinesearch/internal/health"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupMoviesDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("cinesearch"),
		postgres.WithUsername("cinesearch"),
		postgres.WithPassword("cinesearch"),
		postgres.WithInitScripts(filepath.Join("..", "..", "migrations", "000001_create_movies.up.sql")),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	return db
}

func TestPostgresSource_Load(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("SKIP_CONTAINER_TESTS set; skipping integration test")
	}
	db := setupMoviesDB(t)

	_, err := db.Exec(`
		INSERT INTO movies (id, title, popularity, keywords, genres, cast_members, release_date, vote_average, budget)
		VALUES
			(157336, 'Interstellar', 80, 'space wormhole', '{Adventure,Drama}', '{Matthew McConaughey}', '2014-11-05', 8.1, 165000000),
			(27205, 'Inception', 50, 'dream heist', '{Action}', '{Leonardo DiCaprio}', '2010-07-15', 8.3, 160000000),
			(603, 'The Matrix', NULL, NULL, '{}', '{}', NULL, NULL, NULL)
	`)
	if err != nil {
		t.Fatalf("failed to seed movies: %v", err)
	}

	titles, err := NewPostgresSource(db, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(titles) != 3 {
		t.Fatalf("expected 3 titles, got %d", len(titles))
	}

	// Ordered by id
	if titles[0].ID != 603 || titles[1].ID != 27205 || titles[2].ID != 157336 {
		t.Errorf("unexpected order: %d, %d, %d", titles[0].ID, titles[1].ID, titles[2].ID)
	}

	matrix := titles[0]
	if matrix.Popularity != nil || matrix.VoteAverage != nil || matrix.Budget != nil {
		t.Error("expected NULL columns to load as missing values")
	}
	if matrix.ReleaseDate != "" || matrix.Keywords != "" {
		t.Errorf("expected empty strings for NULL text, got %q / %q", matrix.ReleaseDate, matrix.Keywords)
	}

	inception := titles[1]
	if inception.Popularity == nil || *inception.Popularity != 50 {
		t.Errorf("unexpected popularity %v", inception.Popularity)
	}
	if inception.ReleaseDate != "2010-07-15" {
		t.Errorf("unexpected release date %q", inception.ReleaseDate)
	}
	if len(inception.Genres) != 1 || inception.Genres[0] != "Action" {
		t.Errorf("unexpected genres %v", inception.Genres)
	}

	c, dropped := New(titles)
	if dropped != 0 || c.Len() != 3 {
		t.Errorf("expected all titles to survive, got %d (dropped %d)", c.Len(), dropped)
	}
}

func TestDBChecker_MoviesTable(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("SKIP_CONTAINER_TESTS set; skipping integration test")
	}
	db := setupMoviesDB(t)
	checker := health.NewDBChecker(db)

	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Fatalf("empty movies table should be healthy: %v", err)
	}

	if _, err := db.Exec(`ALTER TABLE movies RENAME TO movies_old`); err != nil {
		t.Fatalf("rename table: %v", err)
	}
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("expected missing movies table to fail the check")
	}
}
