// internal/service/wheel.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/metrics"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// RewardWheelEngine grants one weighted-random prize per eligibility window.
// Prizes land on the bonus-restricted balance: spendable for investment,
// excluded from withdrawal.
type RewardWheelEngine interface {
	// CanSpin reports eligibility and, when blocked, when it next opens.
	CanSpin(ctx context.Context, accountID int64) (bool, time.Time, error)
	// Spin draws a prize. Eligibility is re-checked inside the transaction
	// that records the spin; a separate check-then-act would race.
	Spin(ctx context.Context, accountID int64) (*domain.WheelPrize, error)
}

type wheelEngine struct {
	tx         *TxRunner
	dbExecutor repository.DBExecutor

	walletRepo repository.WalletRepository
	spinRepo   repository.SpinRepository

	prizes   []domain.WheelPrize
	interval time.Duration
	locks    *AccountLocker
	rng      Rand
	now      func() time.Time
	logger   *slog.Logger
}

// NewRewardWheelEngine creates a RewardWheelEngine. The prize set is
// validated at configuration load; by the time it reaches here the weights
// sum to 100. now may be nil for the wall clock.
func NewRewardWheelEngine(
	tx *TxRunner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	spinRepo repository.SpinRepository,
	prizes []domain.WheelPrize,
	interval time.Duration,
	locks *AccountLocker,
	rng Rand,
	now func() time.Time,
	logger *slog.Logger,
) RewardWheelEngine {
	if now == nil {
		now = time.Now
	}
	return &wheelEngine{
		tx:         tx,
		dbExecutor: dbExecutor,
		walletRepo: walletRepo,
		spinRepo:   spinRepo,
		prizes:     prizes,
		interval:   interval,
		locks:      locks,
		rng:        rng,
		now:        now,
		logger:     logger,
	}
}

func (e *wheelEngine) CanSpin(ctx context.Context, accountID int64) (bool, time.Time, error) {
	record, err := e.spinRepo.Get(ctx, e.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return true, e.now().UTC(), nil
		}
		return false, time.Time{}, fmt.Errorf("can spin: %w", err)
	}
	now := e.now().UTC()
	return record.Eligible(now), record.NextEligibleAt, nil
}

// selectPrize performs an inverse-CDF draw over the discrete prize
// distribution: exactly one prize is always selected and long-run frequencies
// converge to the configured weights.
func (e *wheelEngine) selectPrize(x float64) domain.WheelPrize {
	cumulative := 0
	for _, p := range e.prizes {
		cumulative += p.ProbabilityWeight
		if float64(cumulative) > x {
			return p
		}
	}
	// x can only reach the total weight if Float64 returned exactly 1.0.
	return e.prizes[len(e.prizes)-1]
}

func (e *wheelEngine) Spin(ctx context.Context, accountID int64) (*domain.WheelPrize, error) {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	var prize domain.WheelPrize
	err := e.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		record, err := e.spinRepo.GetForUpdate(ctx, q, accountID)
		if err != nil && !util.IsError(err, util.ErrNotFound) {
			return fmt.Errorf("spin: %w", err)
		}
		now := e.now().UTC()
		if record != nil && !record.Eligible(now) {
			return util.ErrNotEligible
		}

		prize = e.selectPrize(e.rng.Float64() * 100)

		wallet, err := e.walletRepo.EnsureWallet(ctx, q, accountID, prize.Currency)
		if err != nil {
			return fmt.Errorf("spin: %w", err)
		}
		if err := e.walletRepo.ApplyBonus(ctx, q, wallet.ID, prize.Amount); err != nil {
			return fmt.Errorf("spin: %w", err)
		}

		return e.spinRepo.Upsert(ctx, q, &domain.SpinRecord{
			AccountID:      accountID,
			LastSpinAt:     now,
			NextEligibleAt: now.Add(e.interval),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.WheelSpinsTotal.Inc()
	e.logger.Info("wheel spin settled", "account_id", accountID, "amount", prize.Amount)
	return &prize, nil
}
