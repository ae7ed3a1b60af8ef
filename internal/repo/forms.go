package repo

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/consultorio-api/internal/contact"
	"github.com/noah-isme/consultorio-api/internal/newsletter"
)

// NewsletterRepo stores newsletter subscriptions.
type NewsletterRepo struct {
	Store *Firestore
}

// CreateSubscription creates the document at key; an existing document is left untouched.
func (r NewsletterRepo) CreateSubscription(ctx context.Context, key string, sub newsletter.Subscription) (bool, error) {
	err := r.Store.doOnce(ctx, func(ctx context.Context, c *firestore.Client) error {
		_, err := c.Collection(NewsletterCollection).Doc(key).Create(ctx, sub)
		return err
	})
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ContactRepo stores contact-form messages.
type ContactRepo struct {
	Store *Firestore
}

// InsertMessage creates msg under id.
func (r ContactRepo) InsertMessage(ctx context.Context, id string, msg contact.Message) error {
	return r.Store.doOnce(ctx, func(ctx context.Context, c *firestore.Client) error {
		_, err := c.Collection(ContactCollection).Doc(id).Create(ctx, msg)
		return err
	})
}
