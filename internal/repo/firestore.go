package repo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/consultorio-api/internal/resilience"
)

// Collection names.
const (
	PaymentsCollection   = "payments"
	NewsletterCollection = "newsletter_subscriptions"
	ContactCollection    = "contact_messages"
)

// ErrNotConfigured is returned when a repository has no client.
var ErrNotConfigured = errors.New("repo: firestore client not configured")

// Firestore wraps the document store client with a resilience guard shared by
// every repository built from it.
type Firestore struct {
	Client *firestore.Client
	Guard  resilience.Guard
}

// NewFirestore opens a client for projectID. FIRESTORE_EMULATOR_HOST is honoured
// by the client library.
func NewFirestore(ctx context.Context, projectID string, guard resilience.Guard) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	if guard.IsFailure == nil {
		guard.IsFailure = IsStoreOutage
	}
	return &Firestore{Client: client, Guard: guard}, nil
}

// Close releases the underlying client.
func (f *Firestore) Close() error {
	if f == nil || f.Client == nil {
		return nil
	}
	return f.Client.Close()
}

// Ping performs a minimal read to confirm the store is reachable.
func (f *Firestore) Ping(ctx context.Context) error {
	if f == nil || f.Client == nil {
		return ErrNotConfigured
	}
	return f.Guard.Do(ctx, func(ctx context.Context) error {
		iter := f.Client.Collection(PaymentsCollection).Limit(1).Documents(ctx)
		defer iter.Stop()
		_, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		return err
	})
}

// do runs fn under the shared guard, retrying store outages. Only idempotent
// operations belong here.
func (f *Firestore) do(ctx context.Context, fn func(context.Context, *firestore.Client) error) error {
	if f == nil || f.Client == nil {
		return ErrNotConfigured
	}
	return f.Guard.Do(ctx, func(ctx context.Context) error {
		return fn(ctx, f.Client)
	})
}

// doOnce is do without retries, for creates whose first attempt may have landed.
func (f *Firestore) doOnce(ctx context.Context, fn func(context.Context, *firestore.Client) error) error {
	if f == nil || f.Client == nil {
		return ErrNotConfigured
	}
	return f.Guard.Once().Do(ctx, func(ctx context.Context) error {
		return fn(ctx, f.Client)
	})
}

// IsStoreOutage reports whether err reflects store unavailability rather than
// a rejected request.
func IsStoreOutage(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.AlreadyExists, codes.NotFound, codes.InvalidArgument,
		codes.FailedPrecondition, codes.PermissionDenied, codes.Unauthenticated,
		codes.OutOfRange:
		return false
	default:
		return true
	}
}
