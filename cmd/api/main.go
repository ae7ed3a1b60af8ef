package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/consultorio-api/internal/app"
	"github.com/noah-isme/consultorio-api/internal/auth"
	"github.com/noah-isme/consultorio-api/internal/config"
	"github.com/noah-isme/consultorio-api/internal/contact"
	"github.com/noah-isme/consultorio-api/internal/health"
	"github.com/noah-isme/consultorio-api/internal/newsletter"
	"github.com/noah-isme/consultorio-api/internal/obs"
	"github.com/noah-isme/consultorio-api/internal/payment"
	"github.com/noah-isme/consultorio-api/internal/ratelimit"
	"github.com/noah-isme/consultorio-api/internal/repo"
	"github.com/noah-isme/consultorio-api/internal/resilience"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "consultorio")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "consultorio-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := newRedis(rootCtx, cfg, logger, metricsEnabled)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	stripeBreaker := newBreaker(cfg, "stripe", logger)
	storeBreaker := newBreaker(cfg, "firestore", logger)

	store, err := repo.NewFirestore(rootCtx, cfg.FirebaseProjectID, resilience.Guard{
		Breaker:     storeBreaker,
		Timeout:     cfg.ProviderTimeout,
		MaxAttempts: cfg.ProviderMaxAttempts,
		BaseBackoff: cfg.ProviderRetryBackoff,
		Jitter:      0.2,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect firestore")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("close firestore")
		}
	}()

	verifier, err := auth.NewFirebaseVerifier(rootCtx, cfg.FirebaseProjectID, cfg.FirebaseJWKSURL, cfg.AuthClockSkew,
		obs.HTTPClient(cfg.ProviderTimeout, tracingEnabled))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}

	paymentLogger := logger.With().Str("component", "payment").Logger()
	var provider payment.Provider
	if cfg.StripeConfigured() {
		stripeGuard := resilience.Guard{
			Breaker:     stripeBreaker,
			Timeout:     cfg.ProviderTimeout,
			MaxAttempts: cfg.ProviderMaxAttempts,
			BaseBackoff: cfg.ProviderRetryBackoff,
			Jitter:      0.2,
		}
		stripeProvider, err := payment.NewStripe(payment.StripeConfig{
			SecretKey:        cfg.StripeSecret,
			WebhookSecret:    cfg.StripeWebhookSecret,
			WebhookTolerance: cfg.StripeWebhookTolerance,
			HTTPClient:       obs.HTTPClient(cfg.ProviderTimeout+5*time.Second, tracingEnabled),
			Guard:            stripeGuard,
			Logger:           obs.StripeLogger{Logger: paymentLogger},
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise stripe")
		}
		provider = stripeProvider
	} else {
		logger.Warn().Msg("STRIPE_SECRET not set; payment endpoints disabled")
	}

	svc := &payment.Service{
		Provider: provider,
		Store:    repo.PaymentsRepo{Store: store},
		Currency: cfg.PaymentCurrency,
		Logger:   paymentLogger,
	}
	paymentHandler := &payment.Handler{
		Svc:            svc,
		PublishableKey: cfg.StripePublishableKey,
		Configured:     provider != nil,
	}
	webhook := payment.Webhook{
		Provider:  provider,
		ReplayTTL: cfg.WebhookReplayTTL,
		Handlers:  payment.DefaultHandlers(paymentLogger),
		Logger:    paymentLogger,
	}
	if redisClient != nil {
		webhook.Replay = redisClient
	}

	formsLimiter, err := ratelimit.NewLimiter(cfg.FormsRateLimit, redisClient, "consultorio:forms")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise forms rate limiter")
	}

	deps := app.Dependencies{
		Logger:           logger,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		BodyLimitBytes:   cfg.BodyLimitBytes,
		HSTS:             cfg.AppEnv == "production",
		TrustedProxyHops: cfg.TrustedProxyHops,
		Gate:             auth.Gate{Verifier: verifier, Timeout: cfg.ProviderTimeout},
		Payments:         paymentHandler,
		Webhook:          webhook,
		Newsletter: &newsletter.Handler{Svc: &newsletter.Service{
			Store:  repo.NewsletterRepo{Store: store},
			Logger: logger.With().Str("component", "newsletter").Logger(),
		}},
		Contact: &contact.Handler{Svc: &contact.Service{
			Store:  repo.ContactRepo{Store: store},
			Logger: logger.With().Str("component", "contact").Logger(),
		}},
		FormsLimit: ratelimit.Handler{
			Limiter:     formsLimiter,
			TrustedHops: cfg.TrustedProxyHops,
			OnError:     func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		},
		Health: health.Handler{
			Checker:      health.Probes{Store: store, Redis: optionalRedis(redisClient)},
			StoreTimeout: envDurationMillis("HEALTH_READY_STORE_TIMEOUT_MS", 500),
			RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
			Breakers:     []*resilience.Breaker{stripeBreaker, storeBreaker},
		},
		Tracing: tracingEnabled,
	}
	if metricsEnabled {
		deps.HTTPMetrics = obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", "")), nil)
		deps.MetricsHandler = app.DefaultMetricsHandler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           app.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-rootCtx.Done()
		health.SetReady(false)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Bool("stripe_configured", provider != nil).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metricsEnabled bool) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set; webhook replay guard disabled and rate limits are per instance")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

// optionalRedis avoids storing a typed nil in the interface.
func optionalRedis(c *redis.Client) redis.UniversalClient {
	if c == nil {
		return nil
	}
	return c
}

func newBreaker(cfg *config.Config, target string, logger zerolog.Logger) *resilience.Breaker {
	return resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget(target).
		WithLogger(logger)
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
