package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must gracefully accept nil for the
// non-transactional path.
type Tx interface{}

// NoTX is passed where no transaction is wanted.
var NoTX Tx

// TransactionManager executes fn inside a database transaction, handing the
// tx handle through so repository calls within fn share one unit of atomicity.
// Keeps use-case interfaces clean of storage types.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
