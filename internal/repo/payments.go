package repo

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/noah-isme/consultorio-api/internal/payment"
)

// PaymentsRepo stores payment records keyed by intent ID.
type PaymentsRepo struct {
	Store *Firestore
}

// UpsertPayment writes rec, replacing any document with the same intent ID.
func (r PaymentsRepo) UpsertPayment(ctx context.Context, rec payment.Record) error {
	id := strings.TrimSpace(rec.PaymentIntentID)
	if id == "" {
		return errors.New("repo: payment intent id is required")
	}
	return r.Store.do(ctx, func(ctx context.Context, c *firestore.Client) error {
		_, err := c.Collection(PaymentsCollection).Doc(id).Set(ctx, rec)
		return err
	})
}

// GetPayment loads the record for intentID.
func (r PaymentsRepo) GetPayment(ctx context.Context, intentID string) (payment.Record, error) {
	var rec payment.Record
	err := r.Store.do(ctx, func(ctx context.Context, c *firestore.Client) error {
		snap, err := c.Collection(PaymentsCollection).Doc(intentID).Get(ctx)
		if err != nil {
			return err
		}
		return snap.DataTo(&rec)
	})
	return rec, err
}
