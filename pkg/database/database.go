// Package database holds the Postgres plumbing shared by every service:
// the transaction manager, the DBTX abstraction and the migration runner.
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx so repositories
// can share query code between transactional and non-transactional reads.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TransactionManager opens units of work. Every domain write and the outbox
// entry describing it go through the same transaction.
type TransactionManager interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}
