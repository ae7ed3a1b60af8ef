package newsletter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/consultorio-api/internal/common"
	"github.com/noah-isme/consultorio-api/internal/obs"
)

// Subscription is a newsletter sign-up. The document key is derived from Email.
type Subscription struct {
	Email        string    `firestore:"email"`
	SubscribedAt time.Time `firestore:"subscribedAt,serverTimestamp"`
	Active       bool      `firestore:"active"`
}

// Store persists subscriptions.
type Store interface {
	// CreateSubscription stores sub under key unless the key already exists.
	// created is false when a subscription was already present.
	CreateSubscription(ctx context.Context, key string, sub Subscription) (created bool, err error)
}

const (
	MsgSubscribed        = "Successfully subscribed to the newsletter!"
	MsgAlreadySubscribed = "You are already subscribed!"
)

type subscribeInput struct {
	Email string `validate:"required,email,max=254"`
}

// Service validates and stores newsletter subscriptions.
type Service struct {
	Store    Store
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Subscribe records email, returning the user-facing outcome message.
func (s *Service) Subscribe(ctx context.Context, email string) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("newsletter service not configured")
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := s.validator().Struct(subscribeInput{Email: normalized}); err != nil {
		obs.CountForm("newsletter", "invalid")
		return "", common.InvalidInput("Valid email is required")
	}

	created, err := s.Store.CreateSubscription(ctx, common.Sha256Hex(normalized), Subscription{
		Email:  normalized,
		Active: true,
	})
	if err != nil {
		obs.CountForm("newsletter", "error")
		s.Logger.Error().Err(err).Msg("newsletter_subscribe_failed")
		return "", common.NewAppError(common.CodeInternal, "Failed to subscribe to the newsletter", http.StatusInternalServerError, err)
	}
	if !created {
		obs.CountForm("newsletter", "duplicate")
		return MsgAlreadySubscribed, nil
	}
	obs.CountForm("newsletter", "success")
	s.Logger.Info().Msg("newsletter_subscribed")
	return MsgSubscribed, nil
}

var defaultValidate = validator.New()

func (s *Service) validator() *validator.Validate {
	if s.Validate != nil {
		return s.Validate
	}
	return defaultValidate
}
