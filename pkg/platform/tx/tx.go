// Package tx carries an open *sql.Tx through context so the profile and
// audit stores join the transaction the signup coordinator opened instead of
// writing on the bare pool. Stores pick the execer per call; callers that
// never open a transaction pay nothing.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx returns a context carrying the transaction. A nil tx leaves the
// context untouched.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From returns the carried transaction, if any. Stores fall back to the
// connection pool when none is present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}
