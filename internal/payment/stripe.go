package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/noah-isme/consultorio-api/internal/obs"
	"github.com/noah-isme/consultorio-api/internal/resilience"
)

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	// BaseURL overrides the API host, used by tests.
	BaseURL    string
	HTTPClient *http.Client
	Guard      resilience.Guard
	Logger     stripe.LeveledLoggerInterface
}

// Stripe implements Provider on top of the Stripe PaymentIntents API.
type Stripe struct {
	intents          paymentintent.Client
	webhookSecret    string
	webhookTolerance time.Duration
	guard            resilience.Guard
}

// NewStripe builds the Stripe adapter. It is constructed once at startup and shared.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("payment: stripe secret key is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        client,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.Logger != nil {
		backendCfg.LeveledLogger = cfg.Logger
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		backendCfg.URL = stripe.String(base)
	}
	guard := cfg.Guard
	if guard.IsFailure == nil {
		guard.IsFailure = IsProviderOutage
	}
	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Stripe{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: tolerance,
		guard:            guard,
	}, nil
}

// CreateIntent opens a payment intent.
func (s *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	// Without an idempotency key a retried create could open a second intent.
	guard := s.guard
	if req.IdempotencyKey == "" {
		guard = guard.Once()
	}
	var pi *stripe.PaymentIntent
	err := s.call(ctx, guard, "create_intent", func(ctx context.Context) error {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(req.Amount),
			Currency: stripe.String(req.Currency),
		}
		params.Context = ctx
		if req.Description != "" {
			params.Description = stripe.String(req.Description)
		}
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
		}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
		var err error
		pi, err = s.intents.New(params)
		return err
	})
	if err != nil {
		return Intent{}, fmt.Errorf("stripe create intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

// GetIntent retrieves the current state of an intent from Stripe.
func (s *Stripe) GetIntent(ctx context.Context, id string) (Intent, error) {
	var pi *stripe.PaymentIntent
	err := s.call(ctx, s.guard, "get_intent", func(ctx context.Context) error {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		var err error
		pi, err = s.intents.Get(id, params)
		return err
	})
	if err != nil {
		return Intent{}, fmt.Errorf("stripe get intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw payload.
func (s *Stripe) ConstructEvent(payload []byte, signature string) (WebhookEvent, error) {
	if s.webhookSecret == "" {
		return WebhookEvent{}, fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                s.webhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	out := WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	out.Kind = kindForType(out.Type)
	if out.Kind != EventUnhandled && ev.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			out.DecodeErr = fmt.Errorf("decode payment intent: %w", err)
			return out, nil
		}
		intent := intentFromStripe(&pi)
		out.Intent = &intent
	}
	return out, nil
}

func (s *Stripe) call(ctx context.Context, guard resilience.Guard, operation string, fn func(context.Context) error) error {
	start := time.Now()
	err := guard.Do(ctx, fn)
	result := "success"
	if err != nil {
		result = "error"
	}
	obs.ObserveProviderCall("stripe", operation, result, obs.DurationMillis(time.Since(start)))
	return err
}

// IsProviderOutage reports whether err should count against the breaker.
// Request errors (4xx other than 429) describe the caller, not the provider.
func IsProviderOutage(err error) bool {
	if err == nil {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return true
		}
		return status == 0
	}
	return true
}

func intentFromStripe(pi *stripe.PaymentIntent) Intent {
	if pi == nil {
		return Intent{}
	}
	return Intent{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       IntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
		Description:  pi.Description,
		Metadata:     pi.Metadata,
	}
}
