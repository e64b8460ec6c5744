// internal/repository/task_repo.go
package repository

import (
	"context"
	"time"

	"accrual-engine/internal/domain"
)

// TaskRepository defines the interface for daily-task state and the
// append-only task-credit ledger.
type TaskRepository interface {
	// GetState retrieves the account's task state without locking, or
	// util.ErrNotFound if the account has never completed a task.
	GetState(ctx context.Context, q DBExecutor, accountID int64) (*domain.DailyTaskState, error)
	// GetStateForUpdate retrieves the account's task state with a row lock, or
	// util.ErrNotFound if the account has never completed a task.
	GetStateForUpdate(ctx context.Context, q DBExecutor, accountID int64) (*domain.DailyTaskState, error)
	// UpsertState inserts or replaces the account's task state.
	UpsertState(ctx context.Context, q DBExecutor, state *domain.DailyTaskState) error
	// CreateTaskCredit appends a credit. A unique-violation on
	// (account_id, window_start, task_index) means the credit was already
	// settled by an earlier attempt.
	CreateTaskCredit(ctx context.Context, q DBExecutor, credit *domain.TaskCredit) error
	// GetTaskCredit looks up a credit by its idempotency key.
	GetTaskCredit(ctx context.Context, q DBExecutor, accountID int64, windowStart time.Time, taskIndex int) (*domain.TaskCredit, error)
}
