package repository

import (
	"context"

	"pi-subscription-backend/internal/domain/model"
)

type AccountRepository interface {
	// Save inserts or updates an account. Inserting a duplicate contact key
	// returns domain.ErrAlreadyExists so callers can re-read the winner.
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByContactKey(ctx context.Context, tx Tx, key string) (*model.Account, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.Account, error)
	CountAccounts(ctx context.Context, tx Tx) (int, error)
}
