// internal/service/task.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/metrics"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
	"accrual-engine/pkg/db"
)

// TaskReward is the outcome of one settled daily task.
type TaskReward struct {
	Credit         domain.TaskCredit `json:"credit"`
	TasksCompleted int               `json:"tasks_completed"`
	Quota          int               `json:"quota"`
	// Replayed is true when this call re-settled a credit an earlier attempt
	// had already committed.
	Replayed bool `json:"replayed"`
}

// DailyTaskAccrual generates and settles the bounded number of daily tasks an
// account may complete inside a rolling 24h window. The window rolls lazily
// on access; there is no background job.
type DailyTaskAccrual interface {
	RemainingTasks(ctx context.Context, accountID int64) (int, error)
	CompleteTask(ctx context.Context, accountID int64) (*TaskReward, error)
}

type taskAccrual struct {
	tx         *TxRunner
	dbExecutor repository.DBExecutor

	accountRepo repository.AccountRepository
	walletRepo  repository.WalletRepository
	taskRepo    repository.TaskRepository
	membership  MembershipEngine
	referral    ReferralCommissionEngine

	locks    *AccountLocker
	rng      Rand
	window   time.Duration
	currency string
	now      func() time.Time
	logger   *slog.Logger
}

// NewDailyTaskAccrual creates a DailyTaskAccrual. now may be nil, in which
// case the wall clock is used.
func NewDailyTaskAccrual(
	tx *TxRunner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	walletRepo repository.WalletRepository,
	taskRepo repository.TaskRepository,
	membership MembershipEngine,
	referral ReferralCommissionEngine,
	locks *AccountLocker,
	rng Rand,
	window time.Duration,
	currency string,
	now func() time.Time,
	logger *slog.Logger,
) DailyTaskAccrual {
	if now == nil {
		now = time.Now
	}
	return &taskAccrual{
		tx:          tx,
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		walletRepo:  walletRepo,
		taskRepo:    taskRepo,
		membership:  membership,
		referral:    referral,
		locks:       locks,
		rng:         rng,
		window:      window,
		currency:    currency,
		now:         now,
		logger:      logger,
	}
}

// RemainingTasks reports how many tasks the account may still complete in the
// current window. An expired window counts as a fresh one; nothing is written.
func (s *taskAccrual) RemainingTasks(ctx context.Context, accountID int64) (int, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return 0, fmt.Errorf("remaining tasks: %w", err)
	}
	quota := s.membership.TaskQuota(account.MembershipTier)

	state, err := s.taskRepo.GetState(ctx, s.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return quota, nil
		}
		return 0, fmt.Errorf("remaining tasks: %w", err)
	}
	if state.Expired(s.now().UTC(), s.window) {
		return quota, nil
	}

	remaining := quota - state.TasksCompleted
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// taskReplay signals that the credit for this idempotency key was already
// committed by an earlier attempt. It aborts the transaction; the caller
// resolves it by reading the committed credit back.
type taskReplay struct {
	windowStart time.Time
	taskIndex   int
}

func (e *taskReplay) Error() string {
	return fmt.Sprintf("task credit already settled for index %d", e.taskIndex)
}

// CompleteTask settles one task: it lazily rolls the window, enforces the
// quota, draws a reward within the tier's rate band over the wallet balance,
// credits it, and fans out task commissions to the upline, all in a single
// transaction. Concurrent calls for the same account serialize on the account
// lock and the wallet row lock, so two callers can never both pass the quota
// check.
func (s *taskAccrual) CompleteTask(ctx context.Context, accountID int64) (*TaskReward, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	var reward *TaskReward
	err := s.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		account, err := s.accountRepo.GetAccountByID(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		now := s.now().UTC()

		state, err := s.taskRepo.GetStateForUpdate(ctx, q, accountID)
		if err != nil {
			if !util.IsError(err, util.ErrNotFound) {
				return fmt.Errorf("complete task: %w", err)
			}
			state = domain.NewDailyTaskState(accountID, now)
		} else if state.Expired(now, s.window) {
			state = domain.NewDailyTaskState(accountID, now)
		}

		quota := s.membership.TaskQuota(account.MembershipTier)
		if state.TasksCompleted >= quota {
			return util.ErrQuotaExhausted
		}

		wallet, err := s.walletRepo.GetWalletForUpdate(ctx, q, accountID, s.currency)
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}

		rateMin, rateMax := s.membership.RateBand(account.MembershipTier)
		ratePct := rateMin.Add(rateMax.Sub(rateMin).Mul(decimal.NewFromFloat(s.rng.Float64())))
		amount := wallet.Balance.Mul(ratePct).Div(decimal.NewFromInt(100))

		taskIndex := state.TasksCompleted + 1
		credit := domain.NewTaskCredit(accountID, state.WindowStart, taskIndex, amount, s.currency)
		if err := s.taskRepo.CreateTaskCredit(ctx, q, credit); err != nil {
			if db.IsUniqueViolation(err) {
				return &taskReplay{windowStart: state.WindowStart, taskIndex: taskIndex}
			}
			return fmt.Errorf("complete task: %w", err)
		}

		if err := s.walletRepo.ApplyProfit(ctx, q, wallet.ID, amount); err != nil {
			return fmt.Errorf("complete task: %w", err)
		}

		state.TasksCompleted = taskIndex
		state.TotalRewardThisWindow = state.TotalRewardThisWindow.Add(amount)
		if err := s.taskRepo.UpsertState(ctx, q, state); err != nil {
			return fmt.Errorf("complete task: %w", err)
		}

		if _, err := s.referral.Propagate(ctx, q, account, domain.EventTypeTask, amount, s.currency); err != nil {
			return fmt.Errorf("complete task: %w", err)
		}

		reward = &TaskReward{Credit: *credit, TasksCompleted: taskIndex, Quota: quota}
		return nil
	})
	if err != nil {
		var replay *taskReplay
		if errors.As(err, &replay) {
			return s.resolveReplay(ctx, accountID, replay)
		}
		return nil, err
	}

	metrics.TasksCompletedTotal.Inc()
	s.logger.Info("task settled",
		"account_id", accountID,
		"task_index", reward.TasksCompleted,
		"amount", reward.Credit.Amount,
	)
	return reward, nil
}

// resolveReplay reads back the credit a previous attempt committed, so a
// replay after a crash yields exactly one credit.
func (s *taskAccrual) resolveReplay(ctx context.Context, accountID int64, replay *taskReplay) (*TaskReward, error) {
	credit, err := s.taskRepo.GetTaskCredit(ctx, s.dbExecutor, accountID, replay.windowStart, replay.taskIndex)
	if err != nil {
		return nil, fmt.Errorf("complete task: failed to resolve replayed credit: %w", err)
	}
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return &TaskReward{
		Credit:         *credit,
		TasksCompleted: replay.taskIndex,
		Quota:          s.membership.TaskQuota(account.MembershipTier),
		Replayed:       true,
	}, nil
}
