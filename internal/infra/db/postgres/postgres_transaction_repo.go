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

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const txCols = `id, account_id, plan, period, amount, payment_id, txid, expires_at, recorded_at`

// InsertIfAbsent races on the payment_id unique index. Exactly one concurrent
// completion wins; losers observe inserted=false and must re-read state.
func (r *transactionRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, rec *model.TransactionRecord) (bool, error) {
	const q = `
INSERT INTO subscription_transactions (id, account_id, plan, period, amount, payment_id, txid, expires_at, recorded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (payment_id) DO NOTHING;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, q, rec.ID, rec.AccountID, rec.Plan, rec.Period, rec.Amount, rec.PaymentID, rec.TxID, rec.ExpiresAt, rec.RecordedAt)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.TransactionRecord, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanTransaction(ex.QueryRow(ctx, `SELECT `+txCols+` FROM subscription_transactions WHERE payment_id=$1;`, paymentID))
}

func (r *transactionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, limit int) ([]*model.TransactionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + txCols + ` FROM subscription_transactions WHERE account_id=$1 ORDER BY recorded_at DESC LIMIT $2;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, accountID, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*model.TransactionRecord, error) {
	rec := &model.TransactionRecord{}
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.Plan, &rec.Period, &rec.Amount, &rec.PaymentID, &rec.TxID, &rec.ExpiresAt, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}
