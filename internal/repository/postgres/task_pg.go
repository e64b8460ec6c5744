// internal/repository/postgres/task_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// TaskRepository implements repository.TaskRepository for PostgreSQL. The
// task_credits table carries UNIQUE (account_id, window_start, task_index),
// the idempotency key for task settlement.
type TaskRepository struct{}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sqlx.DB) repository.TaskRepository {
	return &TaskRepository{}
}

// GetState retrieves the account's task state without locking.
func (r *TaskRepository) GetState(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.DailyTaskState, error) {
	var state domain.DailyTaskState
	query := `SELECT account_id, window_start, tasks_completed, total_reward_window
              FROM daily_task_states WHERE account_id = $1`
	err := q.GetContext(ctx, &state, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task state for account %d: %w", accountID, err)
	}
	return &state, nil
}

// GetStateForUpdate retrieves the account's task state with FOR UPDATE.
func (r *TaskRepository) GetStateForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.DailyTaskState, error) {
	var state domain.DailyTaskState
	query := `SELECT account_id, window_start, tasks_completed, total_reward_window
              FROM daily_task_states WHERE account_id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &state, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock task state for account %d: %w", accountID, err)
	}
	return &state, nil
}

// UpsertState inserts or replaces the account's task state.
func (r *TaskRepository) UpsertState(ctx context.Context, q repository.DBExecutor, state *domain.DailyTaskState) error {
	query := `INSERT INTO daily_task_states (account_id, window_start, tasks_completed, total_reward_window)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (account_id) DO UPDATE SET
                window_start = EXCLUDED.window_start,
                tasks_completed = EXCLUDED.tasks_completed,
                total_reward_window = EXCLUDED.total_reward_window`
	_, err := q.ExecContext(ctx, query, state.AccountID, state.WindowStart, state.TasksCompleted, state.TotalRewardThisWindow)
	if err != nil {
		return fmt.Errorf("failed to upsert task state for account %d: %w", state.AccountID, err)
	}
	return nil
}

// CreateTaskCredit appends a credit to the task ledger. Unique violations
// surface unchanged so the service can resolve idempotent replays.
func (r *TaskRepository) CreateTaskCredit(ctx context.Context, q repository.DBExecutor, credit *domain.TaskCredit) error {
	query := `INSERT INTO task_credits (id, account_id, window_start, task_index, amount, currency, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := q.ExecContext(ctx, query,
		credit.ID, credit.AccountID, credit.WindowStart, credit.TaskIndex,
		credit.Amount, credit.Currency, credit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task credit for account %d: %w", credit.AccountID, err)
	}
	return nil
}

// GetTaskCredit looks up a credit by its idempotency key.
func (r *TaskRepository) GetTaskCredit(ctx context.Context, q repository.DBExecutor, accountID int64, windowStart time.Time, taskIndex int) (*domain.TaskCredit, error) {
	var credit domain.TaskCredit
	query := `SELECT id, account_id, window_start, task_index, amount, currency, created_at
              FROM task_credits WHERE account_id = $1 AND window_start = $2 AND task_index = $3`
	err := q.GetContext(ctx, &credit, query, accountID, windowStart, taskIndex)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task credit for account %d: %w", accountID, err)
	}
	return &credit, nil
}
