package repository

import (
	"context"

	"pi-subscription-backend/internal/domain/model"
)

type TransactionRepository interface {
	// InsertIfAbsent is the idempotency gate: it inserts the record unless a
	// row with the same payment id already exists, and reports whether this
	// call was the first application.
	InsertIfAbsent(ctx context.Context, tx Tx, rec *model.TransactionRecord) (inserted bool, err error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.TransactionRecord, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string, limit int) ([]*model.TransactionRecord, error)
}
