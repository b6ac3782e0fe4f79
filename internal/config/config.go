package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	OrderServiceURL    string
	OrderServiceAPIKey string
	CatalogServiceURL  string
	CORSAllowedOrigins []string

	SessionTTL      time.Duration
	CatalogCacheTTL time.Duration

	SubmitQueue       string
	SubmitMaxRetry    int
	OutboundTimeout   time.Duration
	RetryBase         time.Duration
	RetryMaxAttempts  int
	RetryJitterPct    float64
	CircuitMinReq     int
	CircuitFailRate   float64
	CircuitOpenFor    time.Duration
	HealthReadTimeout time.Duration

	BodyLimitBytes   int64
	RateLimitWindow  time.Duration
	RateLimitMax     int
	SecurityHeaders  bool
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		OrderServiceURL:    k.String("ORDER_SERVICE_URL"),
		OrderServiceAPIKey: k.String("ORDER_SERVICE_API_KEY"),
		CatalogServiceURL:  k.String("CATALOG_SERVICE_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "4h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
		SubmitQueue:        valueOrDefault(k.String("SUBMIT_QUEUE"), "billing"),
		SubmitMaxRetry:     intOrDefault(k.Int("SUBMIT_MAX_RETRY"), 5),
		OutboundTimeout:    parseDuration(k.String("OUTBOUND_TIMEOUT"), "5s"),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   intOrDefault(k.Int("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPct:     floatOrDefault(k.Float64("RETRY_JITTER_PCT"), 0.2),
		CircuitMinReq:      intOrDefault(k.Int("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailRate:    floatOrDefault(k.Float64("CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
		HealthReadTimeout:  parseDuration(k.String("HEALTH_READ_TIMEOUT"), "500ms"),
		BodyLimitBytes:     int64(intOrDefault(k.Int("BODY_LIMIT_BYTES"), 1<<20)),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       intOrDefault(k.Int("RATE_LIMIT_MAX"), 120),
		SecurityHeaders:    k.String("SECURITY_HEADERS") != "false",
		LockTTL:            parseDuration(k.String("SUBMIT_LOCK_TTL"), "30s"),
		LockRetryBackoff:   parseDuration(k.String("SUBMIT_LOCK_RETRY_BACKOFF"), "50ms"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.OrderServiceURL == "" {
		return nil, errors.New("ORDER_SERVICE_URL is required")
	}
	if cfg.CatalogServiceURL == "" {
		return nil, errors.New("CATALOG_SERVICE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func floatOrDefault(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
