package health

import (
	"context"
	"fmt"
	"time"
)

// CatalogStatus reports when the catalog was last loaded and the last
// reload error, if any. *catalog.Store satisfies it.
type CatalogStatus interface {
	Status() (loadedAt time.Time, lastErr error)
}

// CatalogChecker reports ready once a catalog snapshot has been published.
// A failed reload after a successful one still counts as ready because the
// previous snapshot keeps serving.
type CatalogChecker struct {
	status CatalogStatus
	maxAge time.Duration
	now    func() time.Time
}

// NewCatalogChecker creates a catalog checker. A positive maxAge also fails
// the check when the snapshot is older than maxAge.
func NewCatalogChecker(status CatalogStatus, maxAge time.Duration) *CatalogChecker {
	return &CatalogChecker{
		status: status,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// HealthCheck returns an error until a snapshot is loaded.
func (c *CatalogChecker) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	loadedAt, lastErr := c.status.Status()
	if loadedAt.IsZero() {
		if lastErr != nil {
			return fmt.Errorf("catalog not loaded: %w", lastErr)
		}
		return fmt.Errorf("catalog not loaded")
	}
	if c.maxAge > 0 {
		if age := c.now().Sub(loadedAt); age > c.maxAge {
			return fmt.Errorf("catalog snapshot is stale: loaded %s ago", age.Round(time.Second))
		}
	}
	return nil
}
