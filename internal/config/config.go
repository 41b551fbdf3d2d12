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

	"github.com/noah-isme/booking-ledger/internal/money"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	JWTAdminRole       string
	CORSAllowedOrigins []string
	MigrateOnStart     bool
	IdempotencyTTL     time.Duration
	BodyLimitBytes     int64
	SecurityHeaders    bool
	HSTSEnabled        bool

	Ledger           LedgerConfig
	RateLimit        RateLimitConfig
	DirectoryBreaker BreakerConfig
}

// LedgerConfig tunes the price ledger.
type LedgerConfig struct {
	// SelfHealTolerance is the largest accepted difference between a
	// submitted total and the recomputed one.
	SelfHealTolerance float64
	// PartnerLineRounding resolves half cents on partner discount lines.
	PartnerLineRounding money.Mode
	PercentSeparator    string
	ResultTTL           time.Duration
}

// RateLimitConfig bounds the public ledger endpoints.
type RateLimitConfig struct {
	QuotesPerMinute   int
	FinalizePerMinute int
}

// BreakerConfig tunes the circuit breaker in front of the partner directory.
type BreakerConfig struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
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
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		JWTAdminRole:       valueOrDefault(k.String("JWT_ADMIN_ROLE"), "admin"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 64<<10)),
		SecurityHeaders:    parseBoolDefault(k.String("SECURE_HEADERS_ENABLED"), true),
		HSTSEnabled:        parseBool(k.String("SECURE_HSTS_ENABLED")),
		Ledger: LedgerConfig{
			SelfHealTolerance:   parseFloat(k.String("LEDGER_SELF_HEAL_TOLERANCE"), 0.02),
			PartnerLineRounding: money.ParseMode(valueOrDefault(k.String("LEDGER_PARTNER_LINE_ROUNDING"), string(money.HalfDown))),
			PercentSeparator:    valueOrDefault(k.String("LEDGER_PERCENT_SEPARATOR"), money.ExternalSeparator),
			ResultTTL:           parseDuration(k.String("LEDGER_RESULT_TTL"), "720h"),
		},
		RateLimit: RateLimitConfig{
			QuotesPerMinute:   parseInt(k.String("RATE_LIMIT_QUOTES_PER_MIN"), 120),
			FinalizePerMinute: parseInt(k.String("RATE_LIMIT_FINALIZE_PER_MIN"), 30),
		},
		DirectoryBreaker: BreakerConfig{
			MinRequests:  parseInt(k.String("CIRCUIT_DIRECTORY_MIN_REQUESTS"), 10),
			FailureRatio: parseFloat(k.String("CIRCUIT_DIRECTORY_FAILURE_RATIO"), 0.5),
			OpenFor:      parseDuration(k.String("CIRCUIT_DIRECTORY_OPEN_FOR"), "30s"),
		},
	}

	if cfg.Ledger.SelfHealTolerance < 0 {
		return nil, errors.New("LEDGER_SELF_HEAL_TOLERANCE must not be negative")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
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

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
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
