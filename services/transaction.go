package services

import (
	"context"

	"github.com/upb/command-gateway/repositories"
)

// WithTransactionResult executes a function within a database
// transaction and returns its result. The function receives the
// transaction-bound context; on error the unit rolls back and the
// zero value is returned.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var result T

	err := txMgr.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
		var fnErr error
		result, fnErr = fn(txCtx, tx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
