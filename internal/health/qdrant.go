package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// QdrantChecker implements health checking for Qdrant via its REST
// /healthz endpoint.
type QdrantChecker struct {
	url    string
	apiKey string
	client *http.Client
}

// NewQdrantChecker creates a new Qdrant health checker.
// The url should be the base REST URL of the Qdrant server (e.g., "http://qdrant:6333").
func NewQdrantChecker(url, apiKey string) *QdrantChecker {
	return &QdrantChecker{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck performs a health check on Qdrant by requesting /healthz.
func (q *QdrantChecker) HealthCheck(ctx context.Context) error {
	if q.url == "" {
		return fmt.Errorf("qdrant url %w", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach qdrant server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant unhealthy: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
