package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/consultorio-api/internal/common"
	"github.com/noah-isme/consultorio-api/internal/obs"
)

const (
	defaultServiceType = "general"

	metadataUserID    = "userId"
	metadataUserEmail = "userEmail"
)

// CreateIntentInput is the caller-supplied part of an intent request.
type CreateIntentInput struct {
	Amount         decimal.Decimal
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// RecordPaymentInput identifies a confirmed intent and the booking it pays for.
type RecordPaymentInput struct {
	PaymentIntentID string
	ServiceType     string
	Details         map[string]any
}

// Service coordinates payment intents and payment records.
type Service struct {
	Provider Provider
	Store    RecordStore
	Currency string
	Logger   zerolog.Logger
}

// CreateIntent opens a provider intent for the authenticated caller and
// returns its client secret.
func (s *Service) CreateIntent(ctx context.Context, in CreateIntentInput, id common.Identity) (string, error) {
	if s == nil || s.Provider == nil {
		return "", errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	start := time.Now()
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.Float64("payment.intent.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("payment.intent.result", result),
		)
		obs.CountIntent(result)
	}()

	minor, err := ToMinorUnits(in.Amount)
	if err != nil {
		result = "invalid"
		return "", common.InvalidInput("Invalid amount")
	}

	intent, err := s.Provider.CreateIntent(ctx, IntentRequest{
		Amount:         minor,
		Currency:       s.Currency,
		Description:    in.Description,
		Metadata:       intentMetadata(in.Metadata, id),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider create failed")
		s.logger(ctx).Error().Err(err).Str("user_id", id.UID).Msg("payment_intent_create_failed")
		return "", common.ProviderFailure(common.CodePaymentProvider, "Failed to create payment intent", err)
	}

	result = "success"
	span.SetAttributes(attribute.String("payment.intent.id", intent.ID))
	s.logger(ctx).Info().
		Str("payment_intent_id", intent.ID).
		Str("user_id", id.UID).
		Msg("payment_intent_created")
	return intent.ClientSecret, nil
}

// RecordPayment re-reads the intent from the provider and stores a record
// once the provider reports it succeeded.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput, id common.Identity) error {
	if s == nil || s.Provider == nil || s.Store == nil {
		return errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.RecordPayment")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.record.result", result))
		obs.CountRecord(result)
	}()

	intentID := strings.TrimSpace(in.PaymentIntentID)
	if intentID == "" {
		result = "invalid"
		return common.InvalidInput("Payment intent ID is required")
	}
	span.SetAttributes(attribute.String("payment.intent.id", intentID))

	intent, err := s.Provider.GetIntent(ctx, intentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider fetch failed")
		s.logger(ctx).Error().Err(err).Str("payment_intent_id", intentID).Msg("payment_intent_fetch_failed")
		return common.ProviderFailure(common.CodeRecording, "Failed to record payment", err)
	}
	if intent.Status != StatusSucceeded {
		result = "not_succeeded"
		s.logger(ctx).Info().
			Str("payment_intent_id", intentID).
			Str("status", string(intent.Status)).
			Msg("payment_record_rejected")
		return common.InvalidState("Payment has not been completed successfully")
	}

	if intent.ID == "" {
		intent.ID = intentID
	}
	rec := buildRecord(intent, in, id)
	if err := s.Store.UpsertPayment(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
		s.logger(ctx).Error().Err(err).Str("payment_intent_id", intentID).Msg("payment_record_write_failed")
		return common.ProviderFailure(common.CodeRecording, "Failed to record payment", err)
	}

	result = "success"
	s.logger(ctx).Info().
		Str("payment_intent_id", intentID).
		Str("user_id", id.UID).
		Msg("payment_recorded")
	return nil
}

func intentMetadata(caller map[string]string, id common.Identity) map[string]string {
	out := make(map[string]string, len(caller)+2)
	for k, v := range caller {
		out[k] = v
	}
	out[metadataUserID] = id.UID
	out[metadataUserEmail] = id.Email
	return out
}

func buildRecord(intent Intent, in RecordPaymentInput, id common.Identity) Record {
	serviceType := strings.TrimSpace(in.ServiceType)
	if serviceType == "" {
		serviceType = defaultServiceType
	}
	details := in.Details
	if details == nil {
		details = map[string]any{}
	}
	return Record{
		UserID:          id.UID,
		UserEmail:       id.Email,
		PaymentIntentID: intent.ID,
		Amount:          FromMinorUnits(intent.Amount).InexactFloat64(),
		Currency:        intent.Currency,
		Description:     intent.Description,
		Status:          string(intent.Status),
		ServiceType:     serviceType,
		Details:         details,
	}
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}
