package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

// Querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// conn is embedded by every repository so statements join the transaction that
// trm.Manager.Do placed in ctx, if any.
type conn struct {
	db *pgxpool.Pool
}

func (c conn) q(ctx context.Context) Querier {
	if tx, ok := trm.TxFromContext(ctx); ok {
		return tx
	}
	return c.db
}
