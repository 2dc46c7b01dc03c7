package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/command-gateway/repositories"
)

func TestInTransaction_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM rules WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(txCtx context.Context, tx repositories.Transaction) error {
		executor := GetExecutor(txCtx, db)
		_, err := executor.ExecContext(txCtx, `DELETE FROM rules WHERE id = $1`, uuid.New())
		return err
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tm.InTransaction(context.Background(), func(txCtx context.Context, tx repositories.Transaction) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tm.InTransaction(context.Background(), func(txCtx context.Context, tx repositories.Transaction) error {
			panic("settlement went sideways")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_CarriesTransactionInContext(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(txCtx context.Context, tx repositories.Transaction) error {
		carried, ok := GetTransactionFromContext(txCtx)
		require.True(t, ok)
		assert.Same(t, tx, carried)
		return nil
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutor(t *testing.T) {
	db, mock := newMockDB(t)

	t.Run("falls back to the database connection", func(t *testing.T) {
		executor := GetExecutor(context.Background(), db)
		assert.Equal(t, db.DB, executor)
	})

	t.Run("uses the ambient transaction", func(t *testing.T) {
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := tm.Begin(context.Background())
		require.NoError(t, err)
		defer tx.Rollback()

		txCtx := context.WithValue(context.Background(), transactionContextKey{}, tx)
		executor := GetExecutor(txCtx, db)
		assert.NotEqual(t, db.DB, executor)
	})
}

func TestTransaction_RollbackAfterCommitIsIgnored(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := tm.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
}
