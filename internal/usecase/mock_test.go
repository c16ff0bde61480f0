//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/domain"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
	"dating-subscription-payments/internal/domain/ports/repository"
)

// --- Mock TransactionRepository

type MockTransactionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Transaction // by id

	CreateFunc              func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error)
	FindByCorrelationFunc   func(ctx context.Context, tx repository.Tx, provider model.Provider, correlationID string) (*model.Transaction, error)
	SetCorrelationFunc      func(ctx context.Context, tx repository.Tx, id, correlationID string, metadata map[string]any) error
	TransitionIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, metadataPatch map[string]any) (bool, error)
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{data: map[string]*model.Transaction{}}
}

func (r *MockTransactionRepo) Create(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.data[t.ID] = &cp
	return nil
}

func (r *MockTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MockTransactionRepo) FindByCorrelation(ctx context.Context, tx repository.Tx, provider model.Provider, correlationID string) (*model.Transaction, error) {
	if r.FindByCorrelationFunc != nil {
		return r.FindByCorrelationFunc(ctx, tx, provider, correlationID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.data {
		if t.Provider == provider && t.ProviderTransactionID == correlationID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRepo) SetCorrelation(ctx context.Context, tx repository.Tx, id, correlationID string, metadata map[string]any) error {
	if r.SetCorrelationFunc != nil {
		return r.SetCorrelationFunc(ctx, tx, id, correlationID, metadata)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.ProviderTransactionID = correlationID
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		t.Metadata[k] = v
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (r *MockTransactionRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, metadataPatch map[string]any) (bool, error) {
	if r.TransitionIfPendingFunc != nil {
		return r.TransitionIfPendingFunc(ctx, tx, id, status, metadataPatch)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = status
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	for k, v := range metadataPatch {
		t.Metadata[k] = v
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transaction
	for _, t := range r.data {
		if t.Status == model.TransactionStatusPending && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Get returns the stored transaction, bypassing the Func hooks.
func (r *MockTransactionRepo) Get(id string) *model.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// Count reports how many rows the mock holds.
func (r *MockTransactionRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// --- Mock SubscriptionRepository

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription // by user id

	UpsertFunc     func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	FindByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)

	UpsertCalls int
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, sub)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UpsertCalls++
	cp := *sub
	r.data[sub.UserID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if r.FindByUserFunc != nil {
		return r.FindByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// --- Mock PaymentGateway

type MockPaymentGateway struct {
	ProviderVal model.Provider

	NormalizePhoneFunc func(raw string) (string, error)
	CollectFunc        func(ctx context.Context, req adapter.CollectRequest) (adapter.CollectResult, error)

	CollectCalls int
	LastRequest  adapter.CollectRequest
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Provider() model.Provider { return g.ProviderVal }

func (g *MockPaymentGateway) NormalizePhone(raw string) (string, error) {
	if g.NormalizePhoneFunc != nil {
		return g.NormalizePhoneFunc(raw)
	}
	return raw, nil
}

func (g *MockPaymentGateway) Collect(ctx context.Context, req adapter.CollectRequest) (adapter.CollectResult, error) {
	g.CollectCalls++
	g.LastRequest = req
	if g.CollectFunc != nil {
		return g.CollectFunc(ctx, req)
	}
	return adapter.CollectResult{CorrelationID: "corr-" + req.Reference}, nil
}

// --- Mock CallbackDeduper

type MockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool

	SeenErr error
	MarkErr error
}

func NewMockDeduper() *MockDeduper {
	return &MockDeduper{seen: map[string]bool{}}
}

func (d *MockDeduper) key(p model.Provider, id string) string { return string(p) + ":" + id }

func (d *MockDeduper) Seen(ctx context.Context, provider model.Provider, correlationID string) (bool, error) {
	if d.SeenErr != nil {
		return false, d.SeenErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[d.key(provider, correlationID)], nil
}

func (d *MockDeduper) Mark(ctx context.Context, provider model.Provider, correlationID string) error {
	if d.MarkErr != nil {
		return d.MarkErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[d.key(provider, correlationID)] = true
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
