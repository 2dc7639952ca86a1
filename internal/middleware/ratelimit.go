package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines a fixed-window limit.
// Both fields must be > 0.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Validate checks that the RateLimitConfig has valid values.
func (c RateLimitConfig) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("RequestsPerWindow must be > 0 (got %d)", c.RequestsPerWindow)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("WindowDuration must be > 0 (got %s)", c.WindowDuration)
	}
	return nil
}

// DefaultGlobalLimit is applied to every route: 100 requests per minute.
func DefaultGlobalLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute}
}

// DefaultSearchLimit is applied to /search: 30 requests per minute.
func DefaultSearchLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 30, WindowDuration: time.Minute}
}

// DefaultAdminLimit is applied to /admin routes: 10 requests per minute.
func DefaultAdminLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}
}

// RateLimitResult is the outcome of one rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // Zero when allowed
}

// RateLimitStore holds rate limit counters. Implementations return an error
// only when the backend is unreachable; the middleware then fails open.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, config RateLimitConfig) (RateLimitResult, error)
}

// decide turns a window counter into a result.
func decide(count int, config RateLimitConfig, windowEnd, now time.Time) RateLimitResult {
	if count <= config.RequestsPerWindow {
		return RateLimitResult{Allowed: true, Remaining: config.RequestsPerWindow - count}
	}
	retry := windowEnd.Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return RateLimitResult{RetryAfter: retry}
}

type bucket struct {
	count     int
	windowEnd time.Time
}

// InMemoryRateLimitStore is a fixed-window counter kept in process memory.
// Safe for concurrent use. Suitable for a single replica.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewInMemoryRateLimitStore creates a new in-memory rate limit store.
func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow implements RateLimitStore. It never returns an error.
func (s *InMemoryRateLimitStore) Allow(_ context.Context, key string, config RateLimitConfig) (RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		b = &bucket{windowEnd: now.Add(config.WindowDuration)}
		s.buckets[key] = b
	}
	if b.count <= config.RequestsPerWindow {
		b.count++
	}
	return decide(b.count, config, b.windowEnd, now), nil
}

// Cleanup removes expired buckets.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, b := range s.buckets {
		if !now.Before(b.windowEnd) {
			delete(s.buckets, key)
		}
	}
}

// Len returns the number of live buckets.
func (s *InMemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RunCleanup calls Cleanup every interval until ctx is cancelled. Use an
// interval of a few times the longest window.
func (s *InMemoryRateLimitStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// redisKeyPrefix namespaces limiter keys in a shared Redis.
const redisKeyPrefix = "cinesearch:ratelimit:"

// RedisRateLimitStore shares fixed-window counters across replicas. Each
// window is its own key, incremented and given a TTL in one transaction.
type RedisRateLimitStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisRateLimitStore creates a store backed by client.
func NewRedisRateLimitStore(client redis.Cmdable) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, now: time.Now}
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (RateLimitResult, error) {
	now := s.now()
	window := int64(config.WindowDuration)
	slot := now.UnixNano() / window
	windowEnd := time.Unix(0, (slot+1)*window)
	redisKey := redisKeyPrefix + key + ":" + strconv.FormatInt(slot, 10)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireAt(ctx, redisKey, windowEnd.Add(time.Second))
		return nil
	})
	if err != nil {
		return RateLimitResult{Allowed: true}, fmt.Errorf("redis rate limit: %w", err)
	}
	return decide(int(incr.Val()), config, windowEnd, now), nil
}

// KeyFunc extracts a rate limit key from an HTTP request.
type KeyFunc func(r *http.Request) string

// ParseTrustedProxies parses proxy addresses given as CIDRs or bare IPs.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func trusted(addr string, proxies []netip.Prefix) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, p := range proxies {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// IPKeyFunc keys on the client IP. Forwarding headers are honoured only
// when the connection comes from one of trustedProxies; X-Forwarded-For is
// then walked from the right past trusted hops, and X-Real-IP is used when
// it is absent. With no trusted proxies the connection address is the key.
func IPKeyFunc(trustedProxies ...netip.Prefix) KeyFunc {
	return func(r *http.Request) string {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if len(trustedProxies) == 0 || !trusted(host, trustedProxies) {
			return host
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop != "" && (i == 0 || !trusted(hop, trustedProxies)) {
					return hop
				}
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
		return host
	}
}

// SubjectKeyFunc keys on the authenticated subject when present, falling
// back to the client IP as IPKeyFunc resolves it.
func SubjectKeyFunc(trustedProxies ...netip.Prefix) KeyFunc {
	ipFunc := IPKeyFunc(trustedProxies...)
	return func(r *http.Request) string {
		if sub := GetSubject(r.Context()); sub != "" {
			return "sub:" + sub
		}
		return "ip:" + ipFunc(r)
	}
}

// keyType labels a limiter key for metrics.
func keyType(key string) string {
	if strings.HasPrefix(key, "sub:") {
		return "subject"
	}
	return "ip"
}

// RateLimiter rejects requests over config with 429 Too Many Requests.
// When the store errors the request is allowed and the failure counted.
// metrics may be nil.
func RateLimiter(store RateLimitStore, config RateLimitConfig, keyFunc KeyFunc, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			endpoint := normalizePath(r.URL.Path)
			if metrics != nil {
				metrics.IncRateLimitRequests(endpoint, keyType(key))
			}

			res, err := store.Allow(r.Context(), key, config)
			if err != nil {
				if metrics != nil {
					metrics.IncRateLimitRedisErrors()
				}
				slog.WarnContext(r.Context(), "rate limit store unavailable, allowing request",
					"error", err, "endpoint", endpoint)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				if metrics != nil {
					metrics.IncRateLimitBlocked(endpoint, keyType(key))
				}
				UpdateResponseContext(w, SetErrorCode(r.Context(), "rate_limited"))

				seconds := int((res.RetryAfter + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.RetryAfter).Unix(), 10))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"Too many requests"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
