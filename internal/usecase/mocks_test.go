//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/repository"
)

// memAccountRepo is a small in-memory implementation used by unit tests.
// The Func fields override individual methods to simulate failures or races.
type memAccountRepo struct {
	mu                   sync.RWMutex
	store                map[string]*model.Account // by account id
	SaveFunc             func(ctx context.Context, tx repository.Tx, a *model.Account) error
	FindByContactKeyFunc func(ctx context.Context, tx repository.Tx, key string) (*model.Account, error)
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ContactKey != "" {
		for id, other := range m.store {
			if id != a.ID && other.ContactKey == a.ContactKey {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

// put bypasses Save and any overrides; tests use it to seed state directly.
func (m *memAccountRepo) put(a *model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
}

func (m *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) FindByContactKey(ctx context.Context, tx repository.Tx, key string) (*model.Account, error) {
	if m.FindByContactKeyFunc != nil {
		return m.FindByContactKeyFunc(ctx, tx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.ContactKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var oldest *model.Account
	for _, a := range m.store {
		if a.Username != username {
			continue
		}
		if oldest == nil || a.CreatedAt.Before(oldest.CreatedAt) {
			oldest = a
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (m *memAccountRepo) CountAccounts(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// memSubscriptionRepo keeps one ledger row per account.
type memSubscriptionRepo struct {
	mu         sync.RWMutex
	store      map[string]*model.Subscription // by account id
	setPlanErr error
	setPlanN   int // SetPlan call count
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.AccountID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) SetPlan(ctx context.Context, tx repository.Tx, accountID string, plan model.Plan, period model.Period, expiresAt *time.Time) error {
	if m.setPlanErr != nil {
		return m.setPlanErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	m.setPlanN++
	s.Plan = plan
	s.Period = period
	s.ExpiresAt = expiresAt
	s.HasPremium = plan != model.PlanFree
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSubscriptionRepo) ListExpired(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Plan != model.PlanFree && s.ExpiresAt != nil && s.ExpiresAt.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// memTransactionRepo enforces payment id uniqueness like the real table.
type memTransactionRepo struct {
	mu        sync.RWMutex
	byPayment map[string]*model.TransactionRecord
	insertErr error
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{byPayment: make(map[string]*model.TransactionRecord)}
}

func (m *memTransactionRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, rec *model.TransactionRecord) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPayment[rec.PaymentID]; ok {
		return false, nil
	}
	cp := *rec
	m.byPayment[rec.PaymentID] = &cp
	return true, nil
}

func (m *memTransactionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byPayment[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memTransactionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.TransactionRecord
	for _, rec := range m.byPayment {
		if rec.AccountID == accountID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mockTxManager runs fn directly; set WithTxFunc to control behavior.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// mockPaymentNetwork answers with the seeded funcs.
type mockPaymentNetwork struct {
	VerifyIdentityFunc  func(ctx context.Context, accessToken string) (model.ExternalIdentity, error)
	ApprovePaymentFunc  func(ctx context.Context, paymentID string) (*model.Payment, error)
	CompletePaymentFunc func(ctx context.Context, paymentID, txid string) (*model.Payment, error)
}

func (m *mockPaymentNetwork) Name() string { return "mock" }

func (m *mockPaymentNetwork) VerifyIdentity(ctx context.Context, accessToken string) (model.ExternalIdentity, error) {
	return m.VerifyIdentityFunc(ctx, accessToken)
}

func (m *mockPaymentNetwork) ApprovePayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	return m.ApprovePaymentFunc(ctx, paymentID)
}

func (m *mockPaymentNetwork) CompletePayment(ctx context.Context, paymentID, txid string) (*model.Payment, error) {
	return m.CompletePaymentFunc(ctx, paymentID, txid)
}

// mockCache records puts and invalidations.
type mockCache struct {
	mu          sync.Mutex
	store       map[string]*model.Subscription
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string]*model.Subscription)}
}

func (c *mockCache) Get(ctx context.Context, accountID string) (*model.Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.store[accountID]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

func (c *mockCache) Put(ctx context.Context, s *model.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.store[s.AccountID] = &cp
}

func (c *mockCache) Invalidate(ctx context.Context, accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, accountID)
	c.invalidated = append(c.invalidated, accountID)
}

// mockLocker never contends unless told to fail.
type mockLocker struct {
	failLock bool
	locked   int
}

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.failLock {
		return "", context.DeadlineExceeded
	}
	l.locked++
	return "tok", nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
