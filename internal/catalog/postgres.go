package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/onnwee/cinesearch/internal/tracing"
)

// PostgresSource loads titles from the movies table (see migrations/).
type PostgresSource struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSource creates a new PostgresSource.
func NewPostgresSource(db *sql.DB, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{db: db, logger: logger}
}

// Load reads every movie ordered by id, so catalog order is stable across reloads.
func (s *PostgresSource) Load(ctx context.Context) (titles []Title, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "movies", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, title, popularity, COALESCE(keywords, ''), COALESCE(overview, ''),
		       genres, cast_members, crew, production_companies,
		       COALESCE(to_char(release_date, 'YYYY-MM-DD'), ''),
		       vote_average, vote_count, runtime, budget, revenue,
		       COALESCE(poster_path, '')
		FROM movies
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                                Title
			popularity, voteAverage, runtime sql.NullFloat64
			voteCount, budget, revenue       sql.NullInt64
			genres, cast, crew, companies    pq.StringArray
		)
		err := rows.Scan(
			&t.ID,
			&t.Title,
			&popularity,
			&t.Keywords,
			&t.Overview,
			&genres,
			&cast,
			&crew,
			&companies,
			&t.ReleaseDate,
			&voteAverage,
			&voteCount,
			&runtime,
			&budget,
			&revenue,
			&t.PosterPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}

		t.Popularity = nullFloat(popularity)
		t.VoteAverage = nullFloat(voteAverage)
		t.Runtime = nullFloat(runtime)
		t.VoteCount = nullInt(voteCount)
		t.Budget = nullInt(budget)
		t.Revenue = nullInt(revenue)
		t.Genres = []string(genres)
		t.Cast = []string(cast)
		t.Crew = []string(crew)
		t.ProductionCompanies = []string(companies)

		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movies: %w", err)
	}

	s.logger.DebugContext(ctx, "loaded movies from postgres", "count", len(titles))
	return titles, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
