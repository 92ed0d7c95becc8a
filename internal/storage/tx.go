// Package storage carries a bun transaction through a context so repository
// writes issued inside a unit of work share one transaction without the
// services knowing about bun.
package storage

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

type txKey struct{}

// WithTx binds a transaction to the context for downstream repository calls.
func WithTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction bound to the context, if any.
func TxFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(bun.Tx)
	return tx, ok
}

// IDB resolves the connection a repository should issue a query on: the
// context's transaction when one is bound, the root handle otherwise.
func IDB(ctx context.Context, db bun.IDB) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// NewUnitOfWork returns a runner that executes fn inside one transaction,
// bound into fn's context so every repository write within joins it.
func NewUnitOfWork(db *bun.DB) func(ctx context.Context, fn func(context.Context) error) error {
	return func(ctx context.Context, fn func(context.Context) error) error {
		return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return fn(WithTx(ctx, tx))
		})
	}
}
