package trm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInvalidTx = errors.New("invalid transaction type in context")

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager runs functions inside a pgx transaction carried by the context.
// Nested Do calls join the outer transaction.
type Manager struct {
	db *pgxpool.Pool
}

// New returns a new Transaction Manager
func New(db *pgxpool.Pool) *Manager {
	return &Manager{db: db}
}

type ctxKeyTx struct{}
type ctxTxOptions struct{}

var TxKey = ctxKeyTx{}
var txOptions = ctxTxOptions{}

// TxFromContext returns the transaction started by an enclosing Do.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(TxKey).(pgx.Tx)
	return tx, ok
}

// Do executes fn within a transaction. An outer transaction found in ctx is reused
// and left for the outer call to finish. Otherwise the new transaction is committed
// when fn succeeds and rolled back when it fails or panics.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if v := ctx.Value(TxKey); v != nil {
		if _, ok := v.(pgx.Tx); !ok {
			return ErrInvalidTx
		}
		return fn(ctx)
	}

	tx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, TxKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("failed to rollback tx: %v (original error: %w)", rbErr, err)
			}
			return
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit tx: %w", commitErr)
		}
	}()

	return fn(txCtx)
}

func (m *Manager) begin(ctx context.Context) (pgx.Tx, error) {
	if opt, ok := ctx.Value(txOptions).(pgx.TxOptions); ok {
		tx, err := m.db.BeginTx(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to start new transaction with options: %w", err)
		}
		return tx, nil
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start new transaction: %w", err)
	}
	return tx, nil
}

// DoReadOnly executes fn within a read-only transaction.
func (m *Manager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Do(WithOptionsCtx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}), fn)
}

func WithOptionsCtx(ctx context.Context, opt pgx.TxOptions) context.Context {
	return context.WithValue(ctx, txOptions, opt)
}
