package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if err := s.Validate(); err != nil {
		return err
	}
	const q = `
INSERT INTO subscriptions (account_id, plan, period, expires_at, has_premium, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (account_id) DO UPDATE SET
  plan=$2, period=$3, expires_at=$4, has_premium=$5, updated_at=$6;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, s.AccountID, s.Plan, nullPeriod(s.Period), s.ExpiresAt, s.HasPremium, s.UpdatedAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

// FindByAccount reads the single ledger row. Inside a transaction the row is
// locked FOR UPDATE so lazy expiry and completion serialize per account.
func (r *subscriptionRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.Subscription, error) {
	q := `SELECT account_id, plan, period, expires_at, has_premium, updated_at FROM subscriptions WHERE account_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"

	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanSubscription(ex.QueryRow(ctx, q, accountID))
}

func (r *subscriptionRepo) SetPlan(ctx context.Context, tx repository.Tx, accountID string, plan model.Plan, period model.Period, expiresAt *time.Time) error {
	const q = `
UPDATE subscriptions
   SET plan=$2, period=$3, expires_at=$4, has_premium=$5, updated_at=NOW()
 WHERE account_id=$1;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, accountID, plan, nullPeriod(period), expiresAt, plan != model.PlanFree)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) ListExpired(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT account_id, plan, period, expires_at, has_premium, updated_at
  FROM subscriptions
 WHERE expires_at IS NOT NULL AND expires_at < $1
 ORDER BY expires_at ASC
 LIMIT $2;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	var period *string
	err := row.Scan(&s.AccountID, &s.Plan, &period, &s.ExpiresAt, &s.HasPremium, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if period != nil {
		s.Period = model.Period(*period)
	}
	return s, nil
}

// nullPeriod maps the zero Period to SQL NULL.
func nullPeriod(p model.Period) *string {
	if p == model.PeriodNone {
		return nil
	}
	s := string(p)
	return &s
}
