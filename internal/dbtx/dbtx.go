// Package dbtx narrows pgx.Tx down to the handful of methods the engine's
// stores actually call. Any real pgx.Tx value (returned by
// pgxpool.Pool.BeginTx) satisfies this interface implicitly, so production
// code keeps using pgx/pgxpool directly; tests substitute an in-memory fake
// instead of implementing all of pgx.Tx's larger surface (CopyFrom,
// SendBatch, LargeObjects, Conn, ...).
package dbtx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tx is the transactional surface internal/accounts, internal/engine, and
// internal/ledger depend on.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
