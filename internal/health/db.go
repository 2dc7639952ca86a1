package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// catalogProbe reads at most one row so an empty catalog still passes.
const catalogProbe = "SELECT 1 FROM movies LIMIT 1"

// DBChecker reports whether the Postgres catalog database is reachable and
// the movies table can be read.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck runs the catalog probe query. A missing table fails the check
// even though the server answers pings.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	if d.db == nil {
		return fmt.Errorf("database %w", ErrNotConfigured)
	}
	var one int
	if err := d.db.QueryRowContext(ctx, catalogProbe).Scan(&one); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("probe movies table: %w", err)
	}
	return nil
}
