package repository

import (
	"context"
	"time"

	"pi-subscription-backend/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// FindByAccount locks the row FOR UPDATE when called inside a transaction.
	FindByAccount(ctx context.Context, tx Tx, accountID string) (*model.Subscription, error)
	// SetPlan updates the single ledger row for accountID.
	SetPlan(ctx context.Context, tx Tx, accountID string, plan model.Plan, period model.Period, expiresAt *time.Time) error
	// ListExpired returns accounts whose entitlement lapsed before cutoff,
	// used by the optional sweep worker.
	ListExpired(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Subscription, error)
}
