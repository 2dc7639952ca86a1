// Package config provides configuration loading and validation for the search service.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Catalog sources.
const (
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
	CatalogSourceS3       = "s3"
)

// Recommender backends.
const (
	RecommenderNone        = "none"
	RecommenderPrecomputed = "precomputed"
	RecommenderQdrant      = "qdrant"
)

// Config holds all configuration values for the search service.
type Config struct {
	// Server settings
	Port     int    `koanf:"port"`
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`

	// Catalog
	CatalogSource          string        `koanf:"catalog_source"` // file, postgres or s3
	CatalogPath            string        `koanf:"catalog_path"`
	CatalogRefreshInterval time.Duration `koanf:"catalog_refresh_interval"` // 0 disables periodic reloads
	CatalogMaxAge          time.Duration `koanf:"catalog_max_age"`          // 0 disables the staleness check

	// Database (postgres catalog source)
	DatabaseURL string `koanf:"database_url"`

	// S3-compatible object storage (s3 catalog source)
	S3Bucket          string `koanf:"s3_bucket"`
	S3Key             string `koanf:"s3_key"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3Region          string `koanf:"s3_region"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`

	// Ranking and text analysis
	RankingCalibrationPath string `koanf:"ranking_calibration_path"`
	WordNetPath            string `koanf:"wordnet_path"`
	StemmingEnabled        bool   `koanf:"stemming_enabled"`

	// Search
	SearchMode         string `koanf:"search_mode"`
	SearchDefaultLimit int    `koanf:"search_default_limit"`

	// Recommendations
	Recommender        string  `koanf:"recommender"`
	NeighboursPath     string  `koanf:"neighbours_path"`
	RecommendThreshold float64 `koanf:"recommend_threshold"`
	QdrantURL          string  `koanf:"qdrant_url"`
	QdrantAPIKey       string  `koanf:"qdrant_api_key"`
	QdrantCollection   string  `koanf:"qdrant_collection"`
	QdrantRESTURL      string  `koanf:"qdrant_rest_url"` // REST base URL for readiness checks

	// Redis (shared rate limit counters)
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication for admin endpoints. Admin routes are disabled
	// when JWTSecret is empty.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// HTTP
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	GlobalRateLimit    int      `koanf:"rate_limit_global"` // requests per minute
	SearchRateLimit    int      `koanf:"rate_limit_search"`
	AdminRateLimit     int      `koanf:"rate_limit_admin"`
	MetricsToken       string   `koanf:"metrics_token"` // empty leaves /metrics open
	// Peers allowed to set the client IP through X-Forwarded-For or
	// X-Real-IP, as CIDRs or bare IPs. Empty keys limits on the peer address.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"` // otlp-grpc or otlp-http
	TracingEndpoint   string  `koanf:"tracing_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
	TracingInsecure   bool    `koanf:"tracing_insecure"`

	// Profiling exposes /debug/pprof outside production.
	ProfilingEnabled bool `koanf:"profiling_enabled"`
}

// Configuration validation errors.
var (
	ErrInvalidPort               = errors.New("PORT must be between 1 and 65535")
	ErrInvalidInteger            = errors.New("must be a valid integer")
	ErrInvalidFloat              = errors.New("must be a valid number")
	ErrInvalidDuration           = errors.New("must be a valid duration")
	ErrInvalidCatalogSource      = errors.New("CATALOG_SOURCE must be one of file, postgres, s3")
	ErrMissingCatalogPath        = errors.New("CATALOG_PATH is required for the file catalog source")
	ErrMissingDatabaseURL        = errors.New("DATABASE_URL is required for the postgres catalog source")
	ErrMissingS3Bucket           = errors.New("S3_BUCKET is required for the s3 catalog source")
	ErrMissingS3Key              = errors.New("S3_KEY is required for the s3 catalog source")
	ErrMissingS3Endpoint         = errors.New("S3_ENDPOINT is required for the s3 catalog source")
	ErrMissingS3AccessKeyID      = errors.New("S3_ACCESS_KEY_ID is required for the s3 catalog source")
	ErrMissingS3SecretAccessKey  = errors.New("S3_SECRET_ACCESS_KEY is required for the s3 catalog source")
	ErrInvalidSearchMode         = errors.New("SEARCH_MODE must be weighted or cascade")
	ErrInvalidSearchLimit        = errors.New("SEARCH_DEFAULT_LIMIT must be between 1 and 50")
	ErrInvalidRecommender        = errors.New("RECOMMENDER must be one of none, precomputed, qdrant")
	ErrMissingNeighboursPath     = errors.New("NEIGHBOURS_PATH is required for the precomputed recommender")
	ErrMissingQdrantURL          = errors.New("QDRANT_URL is required for the qdrant recommender")
	ErrInvalidRecommendThreshold = errors.New("RECOMMEND_THRESHOLD must be between 0 and 1")
	ErrInvalidRateLimit          = errors.New("rate limits must be positive")
	ErrInvalidTracingExporter    = errors.New("TRACING_EXPORTER must be otlp-grpc or otlp-http")
	ErrInvalidTracingSampleRate  = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrNegativeDuration          = errors.New("catalog intervals must not be negative")
	ErrInvalidTrustedProxy       = errors.New("TRUSTED_PROXIES entries must be IPs or CIDRs")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultCatalogSource     = CatalogSourceFile
	DefaultCatalogPath       = "data/movies.json"
	DefaultS3Region          = "auto"
	DefaultStemmingEnabled   = true
	DefaultSearchMode        = "weighted"
	DefaultSearchLimit       = 20
	MaxSearchLimit           = 50
	DefaultRecommender       = RecommenderNone
	DefaultQdrantCollection  = "movies"
	DefaultGlobalRateLimit   = 100
	DefaultSearchRateLimit   = 30
	DefaultAdminRateLimit    = 10
	DefaultTracingExporter   = "otlp-http"
	DefaultTracingSampleRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// Try CINESEARCH_PORT first, then PORT for platforms that inject it
	port, err := getEnvIntOrDefaultMulti([]string{"CINESEARCH_PORT", "PORT"}, k.Int("port"), DefaultPort)
	collect(err)
	searchLimit, err := getEnvIntOrDefault("SEARCH_DEFAULT_LIMIT", k.Int("search_default_limit"), DefaultSearchLimit)
	collect(err)
	globalLimit, err := getEnvIntOrDefault("RATE_LIMIT_GLOBAL", k.Int("rate_limit_global"), DefaultGlobalRateLimit)
	collect(err)
	searchRate, err := getEnvIntOrDefault("RATE_LIMIT_SEARCH", k.Int("rate_limit_search"), DefaultSearchRateLimit)
	collect(err)
	adminRate, err := getEnvIntOrDefault("RATE_LIMIT_ADMIN", k.Int("rate_limit_admin"), DefaultAdminRateLimit)
	collect(err)

	threshold, err := getEnvFloatOrDefault("RECOMMEND_THRESHOLD", k.Float64("recommend_threshold"), 0)
	collect(err)
	sampleRate, err := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k.Float64("tracing_sample_rate"), DefaultTracingSampleRate)
	collect(err)

	refresh, err := getEnvDurationOrDefault("CATALOG_REFRESH_INTERVAL", k.String("catalog_refresh_interval"), 0)
	collect(err)
	maxAge, err := getEnvDurationOrDefault("CATALOG_MAX_AGE", k.String("catalog_max_age"), 0)
	collect(err)

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:     port,
		Env:      getEnvOrDefaultMulti([]string{"CINESEARCH_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		LogLevel: getEnvOrKoanf("LOG_LEVEL", k, "log_level"),

		CatalogSource:          strings.ToLower(getEnvOrDefault("CATALOG_SOURCE", k.String("catalog_source"), DefaultCatalogSource)),
		CatalogPath:            getEnvOrDefault("CATALOG_PATH", k.String("catalog_path"), DefaultCatalogPath),
		CatalogRefreshInterval: refresh,
		CatalogMaxAge:          maxAge,
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),

		S3Bucket:          getEnvOrKoanf("S3_BUCKET", k, "s3_bucket"),
		S3Key:             getEnvOrKoanf("S3_KEY", k, "s3_key"),
		S3Endpoint:        getEnvOrKoanf("S3_ENDPOINT", k, "s3_endpoint"),
		S3Region:          getEnvOrDefault("S3_REGION", k.String("s3_region"), DefaultS3Region),
		S3AccessKeyID:     getEnvOrKoanf("S3_ACCESS_KEY_ID", k, "s3_access_key_id"),
		S3SecretAccessKey: getEnvOrKoanf("S3_SECRET_ACCESS_KEY", k, "s3_secret_access_key"),

		RankingCalibrationPath: getEnvOrKoanf("RANKING_CALIBRATION_PATH", k, "ranking_calibration_path"),
		WordNetPath:            getEnvOrKoanf("WORDNET_PATH", k, "wordnet_path"),
		StemmingEnabled:        getEnvBoolOrDefault("STEMMING_ENABLED", k, "stemming_enabled", DefaultStemmingEnabled),

		SearchMode:         strings.ToLower(getEnvOrDefault("SEARCH_MODE", k.String("search_mode"), DefaultSearchMode)),
		SearchDefaultLimit: searchLimit,

		Recommender:        strings.ToLower(getEnvOrDefault("RECOMMENDER", k.String("recommender"), DefaultRecommender)),
		NeighboursPath:     getEnvOrKoanf("NEIGHBOURS_PATH", k, "neighbours_path"),
		RecommendThreshold: threshold,
		QdrantURL:          getEnvOrKoanf("QDRANT_URL", k, "qdrant_url"),
		QdrantAPIKey:       getEnvOrKoanf("QDRANT_API_KEY", k, "qdrant_api_key"),
		QdrantCollection:   getEnvOrDefault("QDRANT_COLLECTION", k.String("qdrant_collection"), DefaultQdrantCollection),
		QdrantRESTURL:      getEnvOrKoanf("QDRANT_REST_URL", k, "qdrant_rest_url"),

		RedisURL:          getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:         getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret: getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),

		CORSAllowedOrigins: getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		GlobalRateLimit:    globalLimit,
		SearchRateLimit:    searchRate,
		AdminRateLimit:     adminRate,
		MetricsToken:       getEnvOrKoanf("METRICS_TOKEN", k, "metrics_token"),
		TrustedProxies:     getEnvListOrKoanf("TRUSTED_PROXIES", k, "trusted_proxies"),

		TracingEnabled:    getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporter:   getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint:   getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSampleRate: sampleRate,
		TracingInsecure:   getEnvBoolOrDefault("TRACING_INSECURE", k, "tracing_insecure", false),

		ProfilingEnabled: getEnvBoolOrDefault("PROFILING_ENABLED", k, "profiling_enabled", false),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvListOrKoanf reads a comma-separated env var, falling back to a YAML
// list or comma-separated string under koanfKey. Blank entries are dropped.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	var raw []string
	if val := os.Getenv(envKey); val != "" {
		raw = strings.Split(val, ",")
	} else {
		raw = k.Strings(koanfKey)
		if len(raw) == 0 && k.String(koanfKey) != "" {
			raw = strings.Split(k.String(koanfKey), ",")
		}
	}

	var out []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getEnvBoolOrDefault returns the env var parsed as a boolean if it is a
// recognised value, otherwise the koanf value when the key exists, or default.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: A value of 0 from a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	return getEnvIntOrDefaultMulti([]string{envKey}, koanfVal, defaultVal)
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return defaultVal, fmt.Errorf("%s %w", key, ErrInvalidInteger)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return defaultVal, fmt.Errorf("%s %w", envKey, ErrInvalidFloat)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration ("90s", "5m") from the env
// var, then the koanf string value, or returns default.
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(envKey)
	if val == "" {
		val = koanfVal
	}
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal, fmt.Errorf("%s %w", envKey, ErrInvalidDuration)
	}
	return d, nil
}

// Validate checks that required configuration values are present and that
// enumerated and numeric settings are in range.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}

	switch c.CatalogSource {
	case CatalogSourceFile:
		if c.CatalogPath == "" {
			errs = append(errs, ErrMissingCatalogPath)
		}
	case CatalogSourcePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	case CatalogSourceS3:
		if c.S3Bucket == "" {
			errs = append(errs, ErrMissingS3Bucket)
		}
		if c.S3Key == "" {
			errs = append(errs, ErrMissingS3Key)
		}
		if c.S3Endpoint == "" {
			errs = append(errs, ErrMissingS3Endpoint)
		}
		if c.S3AccessKeyID == "" {
			errs = append(errs, ErrMissingS3AccessKeyID)
		}
		if c.S3SecretAccessKey == "" {
			errs = append(errs, ErrMissingS3SecretAccessKey)
		}
	default:
		errs = append(errs, ErrInvalidCatalogSource)
	}
	if c.CatalogRefreshInterval < 0 || c.CatalogMaxAge < 0 {
		errs = append(errs, ErrNegativeDuration)
	}

	if c.SearchMode != "weighted" && c.SearchMode != "cascade" {
		errs = append(errs, ErrInvalidSearchMode)
	}
	if c.SearchDefaultLimit < 1 || c.SearchDefaultLimit > MaxSearchLimit {
		errs = append(errs, ErrInvalidSearchLimit)
	}

	switch c.Recommender {
	case RecommenderNone:
	case RecommenderPrecomputed:
		if c.NeighboursPath == "" {
			errs = append(errs, ErrMissingNeighboursPath)
		}
	case RecommenderQdrant:
		if c.QdrantURL == "" {
			errs = append(errs, ErrMissingQdrantURL)
		}
	default:
		errs = append(errs, ErrInvalidRecommender)
	}
	if c.RecommendThreshold < 0 || c.RecommendThreshold > 1 {
		errs = append(errs, ErrInvalidRecommendThreshold)
	}

	if c.GlobalRateLimit <= 0 || c.SearchRateLimit <= 0 || c.AdminRateLimit <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}
	for _, proxy := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(proxy); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(proxy); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, proxy))
			break
		}
	}

	if c.TracingEnabled {
		if c.TracingExporter != "otlp-grpc" && c.TracingExporter != "otlp-http" {
			errs = append(errs, ErrInvalidTracingExporter)
		}
		if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
			errs = append(errs, ErrInvalidTracingSampleRate)
		}
	}

	return errs
}

// AdminEnabled reports whether a JWT secret is configured for admin routes.
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     strconv.Itoa(c.Port),
		"env":                      c.Env,
		"log_level":                c.LogLevel,
		"catalog_source":           c.CatalogSource,
		"catalog_path":             c.CatalogPath,
		"catalog_refresh_interval": c.CatalogRefreshInterval.String(),
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"s3_bucket":                c.S3Bucket,
		"s3_key":                   c.S3Key,
		"s3_endpoint":              c.S3Endpoint,
		"s3_access_key_id":         maskSecret(c.S3AccessKeyID),
		"s3_secret_access_key":     maskSecret(c.S3SecretAccessKey),
		"ranking_calibration_path": c.RankingCalibrationPath,
		"wordnet_path":             c.WordNetPath,
		"stemming_enabled":         strconv.FormatBool(c.StemmingEnabled),
		"search_mode":              c.SearchMode,
		"search_default_limit":     strconv.Itoa(c.SearchDefaultLimit),
		"recommender":              c.Recommender,
		"neighbours_path":          c.NeighboursPath,
		"recommend_threshold":      strconv.FormatFloat(c.RecommendThreshold, 'f', -1, 64),
		"qdrant_url":               c.QdrantURL,
		"qdrant_api_key":           maskSecret(c.QdrantAPIKey),
		"qdrant_collection":        c.QdrantCollection,
		"qdrant_rest_url":          c.QdrantRESTURL,
		"metrics_token":            maskSecret(c.MetricsToken),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"jwt_secret":               maskSecret(c.JWTSecret),
		"jwt_previous_secret":      maskSecret(c.JWTPreviousSecret),
		"cors_allowed_origins":     strings.Join(c.CORSAllowedOrigins, ","),
		"trusted_proxies":          strings.Join(c.TrustedProxies, ","),
		"rate_limits":              fmt.Sprintf("global=%d search=%d admin=%d", c.GlobalRateLimit, c.SearchRateLimit, c.AdminRateLimit),
		"tracing_enabled":          strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":         c.TracingExporter,
		"profiling_enabled":        strconv.FormatBool(c.ProfilingEnabled),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Works for postgres://, postgresql:// and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.LastIndex(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
