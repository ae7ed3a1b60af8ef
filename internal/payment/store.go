package payment

import (
	"context"
	"time"
)

// Record is the durable trace of a confirmed payment. Its key is the intent ID.
type Record struct {
	UserID          string         `firestore:"userId"`
	UserEmail       string         `firestore:"userEmail"`
	PaymentIntentID string         `firestore:"paymentIntentId"`
	Amount          float64        `firestore:"amount"`
	Currency        string         `firestore:"currency"`
	Description     string         `firestore:"description"`
	Status          string         `firestore:"status"`
	ServiceType     string         `firestore:"serviceType"`
	Details         map[string]any `firestore:"details"`
	// CreatedAt is assigned by the store on write.
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

// RecordStore persists payment records.
type RecordStore interface {
	// UpsertPayment writes rec under rec.PaymentIntentID, replacing any previous version.
	UpsertPayment(ctx context.Context, rec Record) error
}
