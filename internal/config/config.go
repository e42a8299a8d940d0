package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Widget holds configuration for the cart widget host.
type Widget struct {
	AppEnv               string
	LogFormat            string
	LogLevel             string
	APIBaseURL           string
	APIEndpoint          string
	APITimeout           time.Duration
	BreakerMinRequests   int
	BreakerFailureRatio  float64
	BreakerOpenFor       time.Duration
	NoticeDelay          time.Duration
	PlaceholderImage     string
	LastIntentWins       bool
	MetricsNamespace     string
	TracingEnabled       bool
	TracingEndpoint      string
	TracingSamplingRatio float64
}

// Server holds configuration for the reference cart API server.
type Server struct {
	AppEnv               string
	LogFormat            string
	LogLevel             string
	Port                 string
	RedisURL             string
	DatabaseURL          string
	CartTTL              time.Duration
	CatalogCacheTTL      time.Duration
	SessionCookie        string
	CookieSecure         bool
	CORSAllowedOrigins   []string
	RateLimitMax         int
	RateLimitWindow      time.Duration
	BodyLimitBytes       int64
	LockTTL              time.Duration
	MetricsNamespace     string
	MetricsEnabled       bool
	TracingEnabled       bool
	TracingEndpoint      string
	TracingSamplingRatio float64
	SecurityHeaders      bool
}

func load() (*koanf.Koanf, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return k, nil
}

// LoadWidget reads widget configuration from environment variables and optional .env files.
func LoadWidget() (*Widget, error) {
	k, err := load()
	if err != nil {
		return nil, err
	}

	cfg := &Widget{
		AppEnv:               valueOrDefault(k.String("APP_ENV"), "development"),
		LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "console"),
		LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		APIBaseURL:           strings.TrimRight(strings.TrimSpace(k.String("CART_API_BASE_URL")), "/"),
		APIEndpoint:          valueOrDefault(k.String("CART_API_ENDPOINT"), "/api/cart"),
		APITimeout:           parseDuration(k.String("CART_API_TIMEOUT"), "0s"),
		BreakerMinRequests:   parseInt(k.String("CART_BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio:  parseFloat(k.String("CART_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:       parseDuration(k.String("CART_BREAKER_OPEN_FOR"), "30s"),
		NoticeDelay:          parseDuration(k.String("CART_NOTICE_DELAY"), "3s"),
		PlaceholderImage:     valueOrDefault(k.String("CART_PLACEHOLDER_IMAGE"), "/images/placeholder.jpg"),
		LastIntentWins:       parseBoolDefault(k.String("CART_LAST_INTENT_WINS"), true),
		MetricsNamespace:     valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "cartwidget"),
		TracingEnabled:       parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("CART_API_BASE_URL is required")
	}
	if !strings.HasPrefix(cfg.APIEndpoint, "/") {
		cfg.APIEndpoint = "/" + cfg.APIEndpoint
	}

	return cfg, nil
}

// LoadServer reads API server configuration from environment variables and optional .env files.
func LoadServer() (*Server, error) {
	k, err := load()
	if err != nil {
		return nil, err
	}

	cfg := &Server{
		AppEnv:               valueOrDefault(k.String("APP_ENV"), "development"),
		LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		Port:                 valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:             k.String("REDIS_URL"),
		DatabaseURL:          strings.TrimSpace(k.String("DATABASE_URL")),
		CartTTL:              parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL:      parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		SessionCookie:        valueOrDefault(k.String("CART_SESSION_COOKIE"), "CART_SESSION"),
		CookieSecure:         parseBoolDefault(k.String("COOKIE_SECURE"), false),
		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimitMax:         parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow:      parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		BodyLimitBytes:       int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64*1024)),
		LockTTL:              parseDuration(k.String("CART_LOCK_TTL"), "5s"),
		MetricsNamespace:     valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "cartapi"),
		MetricsEnabled:       parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		TracingEnabled:       parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		SecurityHeaders:      parseBoolDefault(k.String("SECURE_HEADERS"), true),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Server) HTTPAddr() string {
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
		return strings.TrimSpace(value)
	}
	return fallback
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

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// LoadWidgetForTests allows tests to override environment variables without touching the real environment.
func LoadWidgetForTests(env map[string]string) (*Widget, error) {
	var cfg *Widget
	err := withEnv(env, func() error {
		var loadErr error
		cfg, loadErr = LoadWidget()
		return loadErr
	})
	return cfg, err
}

// LoadServerForTests is the server counterpart of LoadWidgetForTests.
func LoadServerForTests(env map[string]string) (*Server, error) {
	var cfg *Server
	err := withEnv(env, func() error {
		var loadErr error
		cfg, loadErr = LoadServer()
		return loadErr
	})
	return cfg, err
}

func withEnv(env map[string]string, fn func() error) error {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return err
		}
	}
	err := fn()
	restoreErr := restoreEnv(original)
	if err != nil {
		return err
	}
	return restoreErr
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
