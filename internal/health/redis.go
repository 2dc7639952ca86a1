// Package health provides readiness checks for the service's dependencies.
package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned by checkers built without a client.
var ErrNotConfigured = errors.New("not configured")

// RedisChecker reports whether the shared rate-limit store answers.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker. client may be a
// single-node, sentinel or cluster client.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends a PING command.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis %w", ErrNotConfigured)
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
