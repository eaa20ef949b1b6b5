package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one storage transaction and passes the
// handle down as tx. Repositories detect a live tx and lock the rows they
// read (SELECT ... FOR UPDATE on Postgres, per-item mutexes in memory).
// A nil tx is always accepted and means "no transaction".
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
