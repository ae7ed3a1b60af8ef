package contact

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/consultorio-api/internal/common"
	"github.com/noah-isme/consultorio-api/internal/obs"
)

// Message is a visitor's contact-form submission, kept for the site owner to read.
type Message struct {
	To      string  `firestore:"to" json:"to" validate:"required,email"`
	From    string  `firestore:"from" json:"from" validate:"required,email"`
	Name    string  `firestore:"name" json:"name" validate:"required,max=200"`
	Message string  `firestore:"message" json:"message" validate:"required,max=5000"`
	Phone   *string `firestore:"phone" json:"phone" validate:"omitempty,max=40"`
	UserID  string  `firestore:"userId" json:"userId" validate:"required"`
	// Timestamp is whatever the client sent; CreatedAt is authoritative.
	Timestamp any       `firestore:"timestamp" json:"timestamp"`
	Read      bool      `firestore:"read" json:"-"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp" json:"-"`
}

// Store persists contact messages.
type Store interface {
	InsertMessage(ctx context.Context, id string, msg Message) error
}

// MsgSent is returned on a successful submission.
const MsgSent = "Message sent successfully!"

var defaultValidate = validator.New()

// Service validates and stores contact messages.
type Service struct {
	Store    Store
	Validate *validator.Validate
	Logger   zerolog.Logger
	NewID    func() string
}

// Send stores msg unread and returns its identifier.
func (s *Service) Send(ctx context.Context, msg Message) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("contact service not configured")
	}
	msg = normalise(msg)
	if err := s.validator().Struct(msg); err != nil {
		obs.CountForm("contact", "invalid")
		return "", common.InvalidInput(validationMessage(err))
	}
	msg.Read = false

	id := s.newID()
	if err := s.Store.InsertMessage(ctx, id, msg); err != nil {
		obs.CountForm("contact", "error")
		s.Logger.Error().Err(err).Str("user_id", msg.UserID).Msg("contact_message_store_failed")
		return "", common.NewAppError(common.CodeInternal, "Failed to send message", http.StatusInternalServerError, err)
	}
	obs.CountForm("contact", "success")
	s.Logger.Info().Str("message_id", id).Str("user_id", msg.UserID).Msg("contact_message_stored")
	return id, nil
}

func normalise(msg Message) Message {
	msg.To = strings.TrimSpace(msg.To)
	msg.From = strings.TrimSpace(msg.From)
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Message = strings.TrimSpace(msg.Message)
	msg.UserID = strings.TrimSpace(msg.UserID)
	if msg.Phone != nil {
		phone := strings.TrimSpace(*msg.Phone)
		if phone == "" {
			msg.Phone = nil
		} else {
			msg.Phone = &phone
		}
	}
	return msg
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return "Missing required fields"
			}
		}
		return "Invalid field: " + strings.ToLower(verrs[0].Field()[:1]) + verrs[0].Field()[1:]
	}
	return "Missing required fields"
}

func (s *Service) validator() *validator.Validate {
	if s.Validate != nil {
		return s.Validate
	}
	return defaultValidate
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
