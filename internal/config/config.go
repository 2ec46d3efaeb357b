package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP server Configuration
	Server ServerConfig

	// Upstream API Configuration
	API APIConfig

	// Session cookie Configuration
	Session SessionConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// Tracing Configuration
	Tracing TracingConfig
}

// ServerConfig holds the web frontend listener settings
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// APIConfig points at the GradeFresh API
type APIConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig controls the cookies that hold the visitor's credential
type SessionConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address      string // Redis address (host:port); empty disables caching
	Password     string
	DB           int
	NewsCacheTTL time.Duration
}

// TracingConfig controls OpenTelemetry span export. The collector address
// is read by the exporter from OTEL_EXPORTER_OTLP_ENDPOINT.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	apiTimeout, err := durationEnv("API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	maxAge, err := durationEnv("SESSION_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	newsTTL, err := durationEnv("NEWS_CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, err
	}

	cookieSecure, err := boolEnv("COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}

	tracingEnabled, err := boolEnv("TRACING_ENABLED", false)
	if err != nil {
		return nil, err
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		redisDB, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:        envOr("PORT", "3000"),
			CORSOrigins: splitList(envOr("CORS_ORIGINS", "http://localhost:3000")),
		},
		API: APIConfig{
			// NEXT_PUBLIC_API_URL kept so existing .env files keep working
			URL:     envOr("API_URL", envOr("NEXT_PUBLIC_API_URL", "http://localhost:8000")),
			Timeout: apiTimeout,
		},
		Session: SessionConfig{
			CookieSecure: cookieSecure,
			CookieDomain: os.Getenv("COOKIE_DOMAIN"),
			MaxAge:       maxAge,
		},
		Redis: RedisConfig{
			Address:      os.Getenv("REDIS_ADDRESS"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			NewsCacheTTL: newsTTL,
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:     tracingEnabled,
			ServiceName: envOr("OTEL_SERVICE_NAME", "gradefresh-web"),
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
