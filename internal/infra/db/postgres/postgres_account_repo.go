package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountCols = `id, contact_key, pi_uid, username, business_name, created_at, last_seen_at`

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, contact_key, pi_uid, username, business_name, created_at, last_seen_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  contact_key=$2, pi_uid=$3, username=$4, business_name=$5, last_seen_at=$7;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, a.ID, nullStr(a.ContactKey), a.PiUID, a.Username, a.BusinessName, a.CreatedAt, a.LastSeenAt); err != nil {
		if isUniqueViolation(err) {
			// contact_key collision: a concurrent resolution won the insert
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	return r.queryOne(ctx, tx, `SELECT `+accountCols+` FROM accounts WHERE id=$1;`, id)
}

func (r *accountRepo) FindByContactKey(ctx context.Context, tx repository.Tx, key string) (*model.Account, error) {
	return r.queryOne(ctx, tx, `SELECT `+accountCols+` FROM accounts WHERE contact_key=$1;`, key)
}

func (r *accountRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	return r.queryOne(ctx, tx, `SELECT `+accountCols+` FROM accounts WHERE username=$1 ORDER BY created_at ASC LIMIT 1;`, username)
}

func (r *accountRepo) CountAccounts(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM accounts;`).Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *accountRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Account, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	a := &model.Account{}
	var contactKey *string
	err = ex.QueryRow(ctx, q, args...).Scan(&a.ID, &contactKey, &a.PiUID, &a.Username, &a.BusinessName, &a.CreatedAt, &a.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if contactKey != nil {
		a.ContactKey = *contactKey
	}
	return a, nil
}

// nullStr maps the empty string to SQL NULL so the unique index on
// contact_key ignores unlinked accounts.
func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
