package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultorio-api/internal/common"
)

var patient = common.Identity{UID: "uid-1", Email: "paciente@example.com"}

func newTestService(p Provider, s RecordStore) *Service {
	return &Service{Provider: p, Store: s, Currency: "brl", Logger: zerolog.Nop()}
}

func requireAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := common.AsAppError(err)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, message, appErr.Message)
}

func TestCreateIntentConvertsAmountAndForcesIdentityMetadata(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, newMemoryStore())

	secret, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		Amount:         decimal.RequireFromString("150.00"),
		Description:    "Sessão individual",
		Metadata:       map[string]string{"userId": "spoofed", "sessionDate": "2024-05-01"},
		IdempotencyKey: " key-1 ",
	}, patient)
	require.NoError(t, err)
	require.Equal(t, "pi_test_secret_xyz", secret)

	require.Len(t, provider.created, 1)
	req := provider.created[0]
	require.EqualValues(t, 15000, req.Amount)
	require.Equal(t, "brl", req.Currency)
	require.Equal(t, "Sessão individual", req.Description)
	require.Equal(t, "key-1", req.IdempotencyKey)
	require.Equal(t, map[string]string{
		"userId":      "uid-1",
		"userEmail":   "paciente@example.com",
		"sessionDate": "2024-05-01",
	}, req.Metadata)
}

func TestCreateIntentMissingEmailBecomesEmptyString(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, newMemoryStore())

	_, err := svc.CreateIntent(context.Background(), CreateIntentInput{Amount: decimal.NewFromInt(50)}, common.Identity{UID: "uid-2"})
	require.NoError(t, err)
	val, ok := provider.created[0].Metadata["userEmail"]
	require.True(t, ok)
	require.Empty(t, val)
}

func TestCreateIntentRejectsInvalidAmountWithoutCallingProvider(t *testing.T) {
	for _, amount := range []string{"0", "-10", "0.004"} {
		t.Run(amount, func(t *testing.T) {
			provider := &fakeProvider{}
			svc := newTestService(provider, newMemoryStore())

			_, err := svc.CreateIntent(context.Background(), CreateIntentInput{Amount: decimal.RequireFromString(amount)}, patient)
			requireAppError(t, err, common.CodeInvalidInput, "Invalid amount")
			require.Empty(t, provider.created)
		})
	}
}

func TestCreateIntentProviderFailureIsSanitised(t *testing.T) {
	provider := &fakeProvider{createErr: errors.New("card_declined: secret detail")}
	svc := newTestService(provider, newMemoryStore())

	_, err := svc.CreateIntent(context.Background(), CreateIntentInput{Amount: decimal.NewFromInt(50)}, patient)
	requireAppError(t, err, common.CodePaymentProvider, "Failed to create payment intent")
	require.Equal(t, 500, common.AsAppError(err).HTTPStatus)
}

func TestRecordPaymentSucceeded(t *testing.T) {
	provider := &fakeProvider{intents: map[string]Intent{
		"pi_ok": {ID: "pi_ok", Amount: 15000, Currency: "brl", Status: StatusSucceeded, Description: "Sessão"},
	}}
	store := newMemoryStore()
	svc := newTestService(provider, store)

	err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PaymentIntentID: "pi_ok",
		ServiceType:     "individual",
		Details:         map[string]any{"sessionDate": "2024-05-01"},
	}, patient)
	require.NoError(t, err)

	rec := store.records["pi_ok"]
	require.Equal(t, Record{
		UserID:          "uid-1",
		UserEmail:       "paciente@example.com",
		PaymentIntentID: "pi_ok",
		Amount:          150,
		Currency:        "brl",
		Description:     "Sessão",
		Status:          "succeeded",
		ServiceType:     "individual",
		Details:         map[string]any{"sessionDate": "2024-05-01"},
	}, rec)
}

func TestRecordPaymentDefaults(t *testing.T) {
	provider := &fakeProvider{intents: map[string]Intent{
		"pi_ok": {ID: "pi_ok", Amount: 1999, Currency: "brl", Status: StatusSucceeded},
	}}
	store := newMemoryStore()
	svc := newTestService(provider, store)

	require.NoError(t, svc.RecordPayment(context.Background(), RecordPaymentInput{PaymentIntentID: "pi_ok"}, patient))
	rec := store.records["pi_ok"]
	require.Equal(t, "general", rec.ServiceType)
	require.Equal(t, map[string]any{}, rec.Details)
	require.Equal(t, 19.99, rec.Amount)
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	provider := &fakeProvider{intents: map[string]Intent{
		"pi_ok": {ID: "pi_ok", Amount: 5000, Currency: "brl", Status: StatusSucceeded},
	}}
	store := newMemoryStore()
	svc := newTestService(provider, store)
	in := RecordPaymentInput{PaymentIntentID: "pi_ok", ServiceType: "casal"}

	require.NoError(t, svc.RecordPayment(context.Background(), in, patient))
	first := store.records["pi_ok"]
	require.NoError(t, svc.RecordPayment(context.Background(), in, patient))

	require.Len(t, store.records, 1)
	require.Equal(t, first, store.records["pi_ok"])
}

func TestRecordPaymentRejectsUnsucceededIntents(t *testing.T) {
	statuses := []IntentStatus{
		StatusRequiresPaymentMethod,
		StatusRequiresConfirmation,
		StatusRequiresAction,
		StatusProcessing,
		StatusCanceled,
		IntentStatus("requires_capture"),
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			provider := &fakeProvider{intents: map[string]Intent{"pi_x": {ID: "pi_x", Amount: 100, Status: status}}}
			store := newMemoryStore()
			svc := newTestService(provider, store)

			err := svc.RecordPayment(context.Background(), RecordPaymentInput{PaymentIntentID: "pi_x"}, patient)
			requireAppError(t, err, common.CodeInvalidState, "Payment has not been completed successfully")
			require.Zero(t, store.writes)
		})
	}
}

func TestRecordPaymentRequiresID(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, newMemoryStore())

	err := svc.RecordPayment(context.Background(), RecordPaymentInput{PaymentIntentID: "   "}, patient)
	requireAppError(t, err, common.CodeInvalidInput, "Payment intent ID is required")
	require.Zero(t, provider.getCalls)
}

func TestRecordPaymentProviderAndStoreFailures(t *testing.T) {
	t.Run("provider", func(t *testing.T) {
		store := newMemoryStore()
		svc := newTestService(&fakeProvider{getErr: errors.New("timeout")}, store)
		err := svc.RecordPayment(context.Background(), RecordPaymentInput{PaymentIntentID: "pi_1"}, patient)
		requireAppError(t, err, common.CodeRecording, "Failed to record payment")
		require.Zero(t, store.writes)
	})
	t.Run("store", func(t *testing.T) {
		provider := &fakeProvider{intents: map[string]Intent{"pi_1": {ID: "pi_1", Amount: 100, Status: StatusSucceeded}}}
		store := newMemoryStore()
		store.err = errors.New("deadline exceeded")
		svc := newTestService(provider, store)
		err := svc.RecordPayment(context.Background(), RecordPaymentInput{PaymentIntentID: "pi_1"}, patient)
		requireAppError(t, err, common.CodeRecording, "Failed to record payment")
	})
}
