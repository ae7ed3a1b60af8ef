package payment

import (
	"context"
	"errors"
)

// IntentStatus mirrors the provider's payment intent lifecycle. Values the
// service does not know about are carried verbatim.
type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	StatusRequiresAction        IntentStatus = "requires_action"
	StatusProcessing            IntentStatus = "processing"
	StatusSucceeded             IntentStatus = "succeeded"
	StatusCanceled              IntentStatus = "canceled"
)

// Intent is the provider-owned payment intent as seen by this service.
type Intent struct {
	ID       string
	Amount   int64
	Currency string
	Status   IntentStatus
	// ClientSecret authorises client-side confirmation. Never persisted or logged.
	ClientSecret string
	Description  string
	Metadata     map[string]string
}

// IntentRequest captures the information required to open a payment intent.
type IntentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// EventKind tags the webhook events the reconciler understands.
type EventKind int

const (
	EventUnhandled EventKind = iota
	EventIntentSucceeded
	EventIntentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventIntentSucceeded:
		return "intent_succeeded"
	case EventIntentFailed:
		return "intent_failed"
	default:
		return "unhandled"
	}
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID   string
	Type string
	Kind EventKind
	// Intent is populated for intent events.
	Intent *Intent
	// DecodeErr is set when the signature verified but the intent payload
	// could not be decoded. Intent is nil in that case.
	DecodeErr error
}

// ErrSignature is returned by ConstructEvent when the payload cannot be authenticated.
var ErrSignature = errors.New("payment: webhook signature verification failed")

// Provider abstracts the operations required from the upstream payment provider.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	// ConstructEvent verifies signature against the raw payload and decodes the event.
	ConstructEvent(payload []byte, signature string) (WebhookEvent, error)
}

func kindForType(eventType string) EventKind {
	switch eventType {
	case "payment_intent.succeeded":
		return EventIntentSucceeded
	case "payment_intent.payment_failed":
		return EventIntentFailed
	default:
		return EventUnhandled
	}
}
