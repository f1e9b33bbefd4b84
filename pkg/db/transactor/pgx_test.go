package transactor

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock"
	"github.com/stretchr/testify/require"
)

const pgxmockExpectationsNotMetMsg = "pgxmock expectations not met"

func setupPgxTransactor(t *testing.T) (PgxTransactor, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to open a stub database connection")
	t.Cleanup(mockPool.Close)
	return NewPgxTransactor(mockPool), mockPool
}

func TestPgxTransactorCommit(t *testing.T) {
	ctx := context.Background()
	trx, mockPool := setupPgxTransactor(t)

	mockPool.ExpectBegin()
	mockPool.ExpectExec("DELETE FROM customers").WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectCommit()

	err := trx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := trx.Executor(ctx).Exec(ctx, "DELETE FROM customers WHERE id = $1", int64(1))
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPgxTransactorRollback(t *testing.T) {
	ctx := context.Background()
	trx, mockPool := setupPgxTransactor(t)
	txErr := errors.New("boom")

	mockPool.ExpectBegin()
	mockPool.ExpectRollback()

	err := trx.WithinTransaction(ctx, func(ctx context.Context) error {
		return txErr
	})
	require.ErrorIs(t, err, txErr, "original error must be returned after rollback")
	require.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPgxTransactorNested(t *testing.T) {
	ctx := context.Background()
	trx, mockPool := setupPgxTransactor(t)

	mockPool.ExpectBegin()
	mockPool.ExpectCommit()

	calls := 0
	err := trx.WithinTransaction(ctx, func(ctx context.Context) error {
		return trx.WithinTransaction(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.NoError(t, mockPool.ExpectationsWereMet(), "nested call must join outer transaction")
}

func TestPgxTransactorBeginFailed(t *testing.T) {
	ctx := context.Background()
	trx, mockPool := setupPgxTransactor(t)
	beginErr := errors.New("connection refused")

	mockPool.ExpectBegin().WillReturnError(beginErr)

	called := false
	err := trx.WithinTransaction(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, beginErr)
	require.False(t, called, "function must not run without transaction")
	require.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPgxTransactorCommitFailed(t *testing.T) {
	ctx := context.Background()
	trx, mockPool := setupPgxTransactor(t)
	commitErr := errors.New("serialization failure")

	mockPool.ExpectBegin()
	mockPool.ExpectCommit().WillReturnError(commitErr)

	err := trx.WithinTransaction(ctx, func(ctx context.Context) error {
		return nil
	})
	require.ErrorIs(t, err, commitErr)
	require.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestPgxExecutorOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	trx, mockPool := setupPgxTransactor(t)

	mockPool.ExpectExec("DELETE FROM customers").WithArgs(int64(2)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	_, err := trx.Executor(ctx).Exec(ctx, "DELETE FROM customers WHERE id = $1", int64(2))
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
