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

// DefaultFirebaseJWKSURL publishes the keys that sign Firebase ID tokens.
const DefaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	StripeSecret           string
	StripePublishableKey   string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	PaymentCurrency        string
	ProviderTimeout        time.Duration
	ProviderMaxAttempts    int
	ProviderRetryBackoff   time.Duration

	FirebaseProjectID string
	FirebaseJWKSURL   string
	AuthClockSkew     time.Duration

	RedisURL         string
	WebhookReplayTTL time.Duration

	BodyLimitBytes   int64
	FormsRateLimit   string
	TrustedProxyHops int

	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
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
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StripeSecret:           strings.TrimSpace(k.String("STRIPE_SECRET")),
		StripePublishableKey:   strings.TrimSpace(k.String("STRIPE_PUBLIC")),
		StripeWebhookSecret:    strings.TrimSpace(k.String("STRIPE_WEBHOOK_SECRET")),
		StripeWebhookTolerance: parseDuration(k.String("STRIPE_WEBHOOK_TOLERANCE"), "5m"),
		PaymentCurrency:        strings.ToLower(valueOrDefault(k.String("PAYMENT_CURRENCY"), "brl")),
		ProviderTimeout:        parseDuration(k.String("PROVIDER_TIMEOUT"), "10s"),
		ProviderMaxAttempts:    int(parseInt64(k.String("PROVIDER_MAX_ATTEMPTS"), 2)),
		ProviderRetryBackoff:   parseDuration(k.String("PROVIDER_RETRY_BACKOFF"), "200ms"),

		FirebaseProjectID: strings.TrimSpace(k.String("FIREBASE_PROJECT_ID")),
		FirebaseJWKSURL:   valueOrDefault(k.String("FIREBASE_JWKS_URL"), DefaultFirebaseJWKSURL),
		AuthClockSkew:     parseDuration(k.String("AUTH_CLOCK_SKEW"), "1m"),

		RedisURL:         strings.TrimSpace(k.String("REDIS_URL")),
		WebhookReplayTTL: parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "72h"),

		BodyLimitBytes:   parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		FormsRateLimit:   valueOrDefault(k.String("FORMS_RATE_LIMIT"), "5-M"),
		TrustedProxyHops: parseHops(k.String("TRUSTED_PROXY_HOPS"), 1),

		BreakerMinRequests:  int(parseInt64(k.String("BREAKER_MIN_REQUESTS"), 5)),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),
	}

	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.StripeSecret != "" && cfg.StripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET is set")
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

// StripeConfigured reports whether a secret key is available for server-side calls.
func (c *Config) StripeConfigured() bool {
	return c.StripeSecret != ""
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

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// parseHops accepts zero, unlike parseInt64.
func parseHops(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
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
