package payment

import (
	"context"
	"errors"
	"sync"
)

type fakeProvider struct {
	mu        sync.Mutex
	created   []IntentRequest
	createErr error
	intents   map[string]Intent
	getErr    error
	getCalls  int
	event     WebhookEvent
	eventErr  error
}

func (f *fakeProvider) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return Intent{}, f.createErr
	}
	return Intent{
		ID:           "pi_test",
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       StatusRequiresPaymentMethod,
		ClientSecret: "pi_test_secret_xyz",
		Description:  req.Description,
		Metadata:     req.Metadata,
	}, nil
}

func (f *fakeProvider) GetIntent(_ context.Context, id string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return Intent{}, f.getErr
	}
	intent, ok := f.intents[id]
	if !ok {
		return Intent{}, errors.New("no such payment_intent")
	}
	return intent, nil
}

func (f *fakeProvider) ConstructEvent(_ []byte, _ string) (WebhookEvent, error) {
	if f.eventErr != nil {
		return WebhookEvent{}, f.eventErr
	}
	return f.event, nil
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	writes  int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]Record{}}
}

func (m *memoryStore) UpsertPayment(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.records[rec.PaymentIntentID] = rec
	return nil
}
