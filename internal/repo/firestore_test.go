package repo_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/consultorio-api/internal/contact"
	"github.com/noah-isme/consultorio-api/internal/newsletter"
	"github.com/noah-isme/consultorio-api/internal/payment"
	"github.com/noah-isme/consultorio-api/internal/repo"
	"github.com/noah-isme/consultorio-api/internal/resilience"
)

func TestIsStoreOutage(t *testing.T) {
	require.False(t, repo.IsStoreOutage(nil))
	require.False(t, repo.IsStoreOutage(status.Error(codes.AlreadyExists, "exists")))
	require.False(t, repo.IsStoreOutage(status.Error(codes.InvalidArgument, "bad")))
	require.True(t, repo.IsStoreOutage(status.Error(codes.Unavailable, "down")))
	require.True(t, repo.IsStoreOutage(status.Error(codes.DeadlineExceeded, "slow")))
	require.True(t, repo.IsStoreOutage(errors.New("dial tcp: refused")))
}

func TestReposWithoutClient(t *testing.T) {
	ctx := context.Background()
	require.ErrorIs(t, repo.PaymentsRepo{}.UpsertPayment(ctx, payment.Record{PaymentIntentID: "pi"}), repo.ErrNotConfigured)
	_, err := repo.NewsletterRepo{}.CreateSubscription(ctx, "k", newsletter.Subscription{})
	require.ErrorIs(t, err, repo.ErrNotConfigured)
	require.ErrorIs(t, repo.ContactRepo{}.InsertMessage(ctx, "id", contact.Message{}), repo.ErrNotConfigured)
	require.ErrorIs(t, (*repo.Firestore)(nil).Ping(ctx), repo.ErrNotConfigured)
}

func TestUpsertPaymentRequiresID(t *testing.T) {
	err := repo.PaymentsRepo{Store: &repo.Firestore{}}.UpsertPayment(context.Background(), payment.Record{})
	require.Error(t, err)
}

func emulator(t *testing.T) *repo.Firestore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fs, err := repo.NewFirestore(ctx, "consultorio-test", resilience.Guard{Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestPaymentsRepoUpsertIsIdempotent(t *testing.T) {
	fs := emulator(t)
	ctx := context.Background()
	payments := repo.PaymentsRepo{Store: fs}
	id := "pi_" + uuid.NewString()

	rec := payment.Record{
		UserID:          "uid-1",
		PaymentIntentID: id,
		Amount:          150,
		Currency:        "brl",
		Status:          "succeeded",
		ServiceType:     "general",
		Details:         map[string]any{},
	}
	require.NoError(t, payments.UpsertPayment(ctx, rec))
	require.NoError(t, payments.UpsertPayment(ctx, rec))

	got, err := payments.GetPayment(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rec.Amount, got.Amount)
	require.Equal(t, rec.UserID, got.UserID)
	require.False(t, got.CreatedAt.IsZero())

	require.NoError(t, fs.Ping(ctx))
}

func TestNewsletterRepoCreateIfAbsent(t *testing.T) {
	fs := emulator(t)
	ctx := context.Background()
	subs := repo.NewsletterRepo{Store: fs}
	key := uuid.NewString()

	created, err := subs.CreateSubscription(ctx, key, newsletter.Subscription{Email: "a@b.co", Active: true})
	require.NoError(t, err)
	require.True(t, created)

	created, err = subs.CreateSubscription(ctx, key, newsletter.Subscription{Email: "a@b.co", Active: true})
	require.NoError(t, err)
	require.False(t, created)
}

func TestContactRepoInsert(t *testing.T) {
	fs := emulator(t)
	err := repo.ContactRepo{Store: fs}.InsertMessage(context.Background(), uuid.NewString(), contact.Message{
		To: "a@b.co", From: "c@d.co", Name: "Ana", Message: "Oi", UserID: "uid",
	})
	require.NoError(t, err)
}
