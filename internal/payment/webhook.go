package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/consultorio-api/internal/common"
	"github.com/noah-isme/consultorio-api/internal/obs"
)

const signatureHeader = "Stripe-Signature"

// EventHandler reacts to one kind of verified webhook event.
type EventHandler func(ctx context.Context, ev WebhookEvent) error

// Webhook verifies provider callbacks and dispatches them by kind.
type Webhook struct {
	Provider Provider
	// Replay, when set, suppresses re-dispatch of already seen event IDs.
	Replay    redis.UniversalClient
	ReplayTTL time.Duration
	Handlers  map[EventKind]EventHandler
	Logger    zerolog.Logger
}

// DefaultHandlers returns the observability-only handlers for intent events.
func DefaultHandlers(logger zerolog.Logger) map[EventKind]EventHandler {
	logIntent := func(msg string) EventHandler {
		return func(ctx context.Context, ev WebhookEvent) error {
			evt := logger.Info().Str("event_id", ev.ID).Str("event_type", ev.Type)
			if ev.Intent != nil {
				evt = evt.Str("payment_intent_id", ev.Intent.ID).
					Str("status", string(ev.Intent.Status)).
					Int64("amount", ev.Intent.Amount)
			}
			evt.Msg(msg)
			return nil
		}
	}
	return map[EventKind]EventHandler{
		EventIntentSucceeded: logIntent("payment_intent_succeeded"),
		EventIntentFailed:    logIntent("payment_intent_failed"),
		EventUnhandled: func(_ context.Context, ev WebhookEvent) error {
			logger.Debug().Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("webhook_event_unhandled")
			return nil
		},
	}
}

// Handle processes a provider webhook delivery.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		common.WriteError(w, errors.New("webhook provider not configured"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.WriteError(w, common.InvalidInput("Unable to read request body"))
		return
	}
	signature := strings.TrimSpace(r.Header.Get(signatureHeader))
	if signature == "" {
		obs.CountWebhook("unknown", "missing_signature")
		common.WriteError(w, common.InvalidInput("Missing provider signature"))
		return
	}
	ev, err := h.Provider.ConstructEvent(body, signature)
	if err != nil {
		obs.CountWebhook("unknown", "invalid_signature")
		h.Logger.Warn().Err(err).Msg("webhook_signature_rejected")
		common.WriteError(w, common.SignatureVerification("Webhook signature verification failed", err))
		return
	}

	ctx := r.Context()
	if seen := h.seen(ctx, ev.ID); seen {
		obs.CountWebhook(ev.Kind.String(), "replayed")
		h.Logger.Info().Str("event_id", ev.ID).Msg("webhook_event_replayed")
		common.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if ev.DecodeErr != nil {
		obs.CountWebhook(ev.Kind.String(), "decode_error")
		h.Logger.Error().Err(ev.DecodeErr).Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("webhook_event_undecodable")
		common.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	result := "handled"
	if err := h.dispatch(ctx, ev); err != nil {
		result = "handler_error"
		h.Logger.Error().Err(err).Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("webhook_handler_failed")
	}
	obs.CountWebhook(ev.Kind.String(), result)
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

// dispatch runs the handler for ev.Kind, converting a panic into an error.
func (h Webhook) dispatch(ctx context.Context, ev WebhookEvent) (err error) {
	handler, ok := h.Handlers[ev.Kind]
	if !ok || handler == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("webhook handler panic: %v", rec)
		}
	}()
	return handler(ctx, ev)
}

// seen claims the event ID in the replay store. Store errors fail open.
func (h Webhook) seen(ctx context.Context, eventID string) bool {
	if h.Replay == nil || eventID == "" {
		return false
	}
	ttl := h.ReplayTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	ok, err := h.Replay.SetNX(ctx, "webhook:event:"+eventID, "1", ttl).Result()
	if err != nil {
		h.Logger.Warn().Err(err).Str("event_id", eventID).Msg("webhook_replay_store_unavailable")
		return false
	}
	return !ok
}
