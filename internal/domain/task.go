// internal/domain/task.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyTaskState tracks one account's progress through the rolling 24h task
// window. The window is never advanced by a timer: it rolls lazily on the next
// access once TaskWindow has elapsed.
type DailyTaskState struct {
	AccountID             int64           `db:"account_id" json:"account_id"`
	WindowStart           time.Time       `db:"window_start" json:"window_start"`
	TasksCompleted        int             `db:"tasks_completed" json:"tasks_completed"`
	TotalRewardThisWindow decimal.Decimal `db:"total_reward_window" json:"total_reward_this_window"`
}

// NewDailyTaskState opens a fresh window starting at now.
func NewDailyTaskState(accountID int64, now time.Time) *DailyTaskState {
	return &DailyTaskState{
		AccountID:             accountID,
		WindowStart:           now,
		TasksCompleted:        0,
		TotalRewardThisWindow: decimal.Zero,
	}
}

// Expired reports whether the window must roll before the next task.
func (s *DailyTaskState) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(s.WindowStart) >= window
}

// TaskCredit is the append-only record of a single settled task reward. The
// (AccountID, WindowStart, TaskIndex) triple is the idempotency key: replaying
// a settlement after a crash lands on the same row instead of a second credit.
type TaskCredit struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	AccountID   int64           `db:"account_id" json:"account_id"`
	WindowStart time.Time       `db:"window_start" json:"window_start"`
	TaskIndex   int             `db:"task_index" json:"task_index"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Currency    string          `db:"currency" json:"currency"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewTaskCredit creates a TaskCredit for one completed task.
func NewTaskCredit(accountID int64, windowStart time.Time, taskIndex int, amount decimal.Decimal, currency string) *TaskCredit {
	return &TaskCredit{
		ID:          uuid.New(),
		AccountID:   accountID,
		WindowStart: windowStart,
		TaskIndex:   taskIndex,
		Amount:      amount,
		Currency:    currency,
		CreatedAt:   time.Now().UTC(),
	}
}
