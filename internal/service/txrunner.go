// internal/service/txrunner.go
package service

import (
	"context"
	"fmt"

	"accrual-engine/internal/metrics"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
	"accrual-engine/pkg/db"
)

// TxRunner executes a function inside a database transaction, retrying the
// whole function on transient conflicts (serialization failures, deadlocks)
// up to a bounded attempt count. Exhausting the attempts surfaces
// ErrConcurrencyConflict to the caller; the operation is never partially kept.
type TxRunner struct {
	beginner   db.DBTxBeginner
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	attempts   int
}

// NewTxRunner creates a TxRunner. attempts below 1 is treated as 1.
func NewTxRunner(
	beginner db.DBTxBeginner,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	attempts int,
) *TxRunner {
	if attempts < 1 {
		attempts = 1
	}
	return &TxRunner{
		beginner:   beginner,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		attempts:   attempts,
	}
}

// RunInTx runs fn inside a transaction. fn must be safe to re-run: it is
// retried as a whole after a conflict, never resumed mid-way.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			metrics.TxRetriesTotal.Inc()
		}
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if !db.IsRetryableConflict(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", util.ErrConcurrencyConflict, lastErr)
}

func (r *TxRunner) attempt(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	txController, err := r.beginTx(ctx, r.beginner)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollbackTx(txController)

	q, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("transaction controller does not implement DBExecutor")
	}

	if err := fn(q); err != nil {
		return err
	}
	return r.commitTx(txController)
}
