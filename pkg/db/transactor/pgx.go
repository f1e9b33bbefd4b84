package transactor

import (
	"context"
	"errors"

	"github.com/jackc/pgtype/pgxtype"
	"github.com/jackc/pgx/v4"
)

type pgxTxKey struct{}

func withPgTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, pgxTxKey{}, tx)
}

func pgxTxValue(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(pgxTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// PgxPool is the part of *pgxpool.Pool transactor relies on
type PgxPool interface {
	pgxtype.Querier
	Begin(context.Context) (pgx.Tx, error)
}

type PgxTransactor interface {
	Transactor
	Executor(ctx context.Context) pgxtype.Querier
}

type pgxTransactor struct {
	pool PgxPool
}

func NewPgxTransactor(p PgxPool) PgxTransactor {
	return &pgxTransactor{pool: p}
}

// WithinTransaction runs txFunc inside transaction, nested calls join the outer one
func (t *pgxTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) (err error) {
	if pgxTxValue(ctx) != nil {
		return txFunc(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}

		var txErr error
		if err != nil {
			txErr = tx.Rollback(ctx)
			if errors.Is(txErr, pgx.ErrTxClosed) {
				txErr = nil
			}
		} else {
			txErr = tx.Commit(ctx)
		}

		if txErr != nil && err == nil {
			err = txErr
		}
	}()

	err = txFunc(withPgTx(ctx, tx))
	return err
}

// Executor returns transaction bound to context or pool itself
func (t *pgxTransactor) Executor(ctx context.Context) pgxtype.Querier {
	tx := pgxTxValue(ctx)
	if tx != nil {
		return tx
	}
	return t.pool
}
