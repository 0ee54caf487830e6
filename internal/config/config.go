package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	TenantHeader       string
	CORSAllowedOrigins []string
	MigrationsPath     string

	Gateway Gateway

	CurrencyCode string
	// BusinessZone decides invoice fiscal years.
	BusinessZone *time.Location

	LedgerMaxRetries int
	LedgerRetryBase  time.Duration

	IdempotencyTTL       time.Duration
	CouponValidateRate   int
	CouponValidateWindow time.Duration
	WebhookMaxBodyBytes  int64

	QueueRedisPrefix       string
	QueueConcurrency       int
	QueueMaxAttempts       int
	QueueVisibilityTimeout time.Duration
	LockTTL                time.Duration
}

// Gateway configures the payment gateway client and signature checks.
type Gateway struct {
	BaseURL       string
	KeyID         string
	Secret        string
	WebhookSecret string
	Timeout       time.Duration
	MaxAttempts   int
	RetryBase     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	zoneName := valueOrDefault(k.String("BUSINESS_TIMEZONE"), "Asia/Kolkata")
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		NATSURL:            strings.TrimSpace(k.String("NATS_URL")),
		TenantHeader:       valueOrDefault(k.String("TENANT_HEADER"), "X-Tenant-ID"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrationsPath:     valueOrDefault(k.String("MIGRATIONS_PATH"), "db/migrations"),
		Gateway: Gateway{
			BaseURL:       strings.TrimRight(k.String("GATEWAY_BASE_URL"), "/"),
			KeyID:         k.String("GATEWAY_KEY_ID"),
			Secret:        k.String("GATEWAY_SECRET"),
			WebhookSecret: k.String("GATEWAY_WEBHOOK_SECRET"),
			Timeout:       parseDuration(k.String("GATEWAY_TIMEOUT"), "5s"),
			MaxAttempts:   parseInt(k.String("GATEWAY_MAX_ATTEMPTS"), 3),
			RetryBase:     parseDuration(k.String("GATEWAY_RETRY_BASE"), "200ms"),
		},
		CurrencyCode:           strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "INR")),
		BusinessZone:           zone,
		LedgerMaxRetries:       parseInt(k.String("LEDGER_MAX_RETRIES"), 5),
		LedgerRetryBase:        parseDuration(k.String("LEDGER_RETRY_BASE"), "10ms"),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CouponValidateRate:     parseInt(k.String("COUPON_VALIDATE_RATE"), 20),
		CouponValidateWindow:   parseDuration(k.String("COUPON_VALIDATE_WINDOW"), "1m"),
		WebhookMaxBodyBytes:    int64(parseInt(k.String("WEBHOOK_MAX_BODY_BYTES"), 1<<20)),
		QueueRedisPrefix:       valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "resto"),
		QueueConcurrency:       parseInt(k.String("QUEUE_CONCURRENCY"), 4),
		QueueMaxAttempts:       parseInt(k.String("QUEUE_MAX_ATTEMPTS"), 10),
		QueueVisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "30s"),
		LockTTL:                parseDuration(k.String("LOCK_TTL"), "15s"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Gateway.Secret == "" {
		return nil, errors.New("GATEWAY_SECRET is required")
	}
	if cfg.Gateway.WebhookSecret == "" {
		cfg.Gateway.WebhookSecret = cfg.Gateway.Secret
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

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
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
