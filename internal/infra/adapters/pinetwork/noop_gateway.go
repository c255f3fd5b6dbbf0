package pinetwork

import (
	"context"
	"fmt"
	"sync"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentNetwork = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory network to use in dev mode and tests.
// Payments must be seeded with SeedPayment before approve/complete succeed.
type NoopGateway struct {
	mu         sync.Mutex
	identities map[string]model.ExternalIdentity // accessToken -> identity
	payments   map[string]*model.Payment
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{
		identities: make(map[string]model.ExternalIdentity),
		payments:   make(map[string]*model.Payment),
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) SeedIdentity(token string, id model.ExternalIdentity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.identities[token] = id
}

func (g *NoopGateway) SeedPayment(p *model.Payment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *p
	g.payments[p.ID] = &cp
}

func (g *NoopGateway) VerifyIdentity(ctx context.Context, accessToken string) (model.ExternalIdentity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.identities[accessToken]
	if !ok {
		return model.ExternalIdentity{}, fmt.Errorf("%w: unknown token", domain.ErrInvalidToken)
	}
	return id, nil
}

func (g *NoopGateway) ApprovePayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: payment not found", domain.ErrApprovalRejected)
	}
	p.Status = model.PaymentStatusApproved
	cp := *p
	return &cp, nil
}

func (g *NoopGateway) CompletePayment(ctx context.Context, paymentID, txid string) (*model.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: payment not found", domain.ErrCompletionRejected)
	}
	p.Status = model.PaymentStatusCompleted
	p.TxID = txid
	cp := *p
	return &cp, nil
}
