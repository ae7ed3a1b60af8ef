package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"FIREBASE_PROJECT_ID":   "terapia-site",
		"STRIPE_SECRET":         "",
		"STRIPE_WEBHOOK_SECRET": "",
		"PAYMENT_CURRENCY":      "",
		"PROVIDER_TIMEOUT":      "",
		"PROVIDER_MAX_ATTEMPTS": "",
		"TRUSTED_PROXY_HOPS":    "",
		"PORT":                  "",
	})
	require.NoError(t, err)
	require.Equal(t, "brl", cfg.PaymentCurrency)
	require.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	require.Equal(t, 2, cfg.ProviderMaxAttempts)
	require.Equal(t, 200*time.Millisecond, cfg.ProviderRetryBackoff)
	require.Equal(t, 1, cfg.TrustedProxyHops)
	require.Equal(t, 5*time.Minute, cfg.StripeWebhookTolerance)
	require.Equal(t, DefaultFirebaseJWKSURL, cfg.FirebaseJWKSURL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.False(t, cfg.StripeConfigured())
}

func TestLoadRequiresProjectID(t *testing.T) {
	_, err := LoadForTests(map[string]string{"FIREBASE_PROJECT_ID": ""})
	require.Error(t, err)
}

func TestLoadRequiresWebhookSecretWithStripeKey(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"FIREBASE_PROJECT_ID":   "terapia-site",
		"STRIPE_SECRET":         "sk_test_123",
		"STRIPE_WEBHOOK_SECRET": "",
	})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"FIREBASE_PROJECT_ID":   "terapia-site",
		"STRIPE_SECRET":         "sk_test_123",
		"STRIPE_WEBHOOK_SECRET": "whsec_123",
		"PAYMENT_CURRENCY":      "BRL",
		"PROVIDER_TIMEOUT":      "2s",
		"CORS_ALLOWED_ORIGINS":  "https://a.example, https://b.example",
		"BODY_LIMIT_BYTES":      "2048",
		"PORT":                  ":9000",
		"TRUSTED_PROXY_HOPS":    "0",
	})
	require.NoError(t, err)
	require.True(t, cfg.StripeConfigured())
	require.Equal(t, "brl", cfg.PaymentCurrency)
	require.Equal(t, 2*time.Second, cfg.ProviderTimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.EqualValues(t, 2048, cfg.BodyLimitBytes)
	require.Equal(t, ":9000", cfg.HTTPAddr())
	require.Equal(t, 0, cfg.TrustedProxyHops)
}
