package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and passes the
// transaction handle as tx. Repositories that receive a pgx.Tx take row locks
// (SELECT ... FOR UPDATE) where the method documents it; a nil tx runs on the pool.
//
// fn returning an error rolls back every write made through tx.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
