package model

import (
	"time"

	"pi-subscription-backend/internal/domain"
)

// TransactionRecord is the append-only trail of completed payments, one row per
// network payment id. The unique payment id doubles as the idempotency gate for
// applying a completion.
type TransactionRecord struct {
	ID         string
	AccountID  string
	Plan       Plan
	Period     Period
	Amount     float64
	PaymentID  string
	TxID       string
	ExpiresAt  time.Time
	RecordedAt time.Time
}

func NewTransactionRecord(id, accountID string, plan Plan, period Period, amount float64, paymentID, txid string, expiresAt time.Time) (*TransactionRecord, error) {
	if id == "" || accountID == "" || paymentID == "" || txid == "" {
		return nil, domain.ErrInvalidArgument
	}
	if plan == PlanFree || period == PeriodNone {
		return nil, domain.ErrInvalidArgument
	}
	return &TransactionRecord{
		ID:         id,
		AccountID:  accountID,
		Plan:       plan,
		Period:     period,
		Amount:     amount,
		PaymentID:  paymentID,
		TxID:       txid,
		ExpiresAt:  expiresAt,
		RecordedAt: time.Now(),
	}, nil
}
