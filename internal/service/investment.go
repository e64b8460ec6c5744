// internal/service/investment.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// InvestmentEngine manages fixed-term positions. Profit accrues inside the
// position and is settled lazily whenever the position is read or mutated;
// principal plus profit return to the wallet at maturity. Early cancellation
// refunds the principal minus the configured penalty and forfeits accrued
// profit.
type InvestmentEngine interface {
	OpenInvestment(ctx context.Context, accountID int64, principal decimal.Decimal, currency string, dailyRate decimal.Decimal, days int) (*domain.Investment, error)
	CancelInvestment(ctx context.Context, accountID int64, investmentID uuid.UUID) (*domain.Investment, error)
	// ListInvestments settles lazy accrual on active positions, completing
	// any that matured, then returns all of the account's positions.
	ListInvestments(ctx context.Context, accountID int64) ([]domain.Investment, error)
}

type investmentEngine struct {
	tx         *TxRunner
	dbExecutor repository.DBExecutor

	accountRepo    repository.AccountRepository
	walletRepo     repository.WalletRepository
	investmentRepo repository.InvestmentRepository
	membership     MembershipEngine

	penaltyPercent decimal.Decimal
	locks          *AccountLocker
	now            func() time.Time
	logger         *slog.Logger
}

// NewInvestmentEngine creates an InvestmentEngine. now may be nil for the
// wall clock.
func NewInvestmentEngine(
	tx *TxRunner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	walletRepo repository.WalletRepository,
	investmentRepo repository.InvestmentRepository,
	membership MembershipEngine,
	penaltyPercent decimal.Decimal,
	locks *AccountLocker,
	now func() time.Time,
	logger *slog.Logger,
) InvestmentEngine {
	if now == nil {
		now = time.Now
	}
	return &investmentEngine{
		tx:             tx,
		dbExecutor:     dbExecutor,
		accountRepo:    accountRepo,
		walletRepo:     walletRepo,
		investmentRepo: investmentRepo,
		membership:     membership,
		penaltyPercent: penaltyPercent,
		locks:          locks,
		now:            now,
		logger:         logger,
	}
}

// OpenInvestment debits the principal (main balance first, bonus balance for
// the remainder) and opens an active position. The daily rate must fall
// within the account tier's rate band.
func (e *investmentEngine) OpenInvestment(ctx context.Context, accountID int64, principal decimal.Decimal, currency string, dailyRate decimal.Decimal, days int) (*domain.Investment, error) {
	if !principal.IsPositive() || days < 1 || currency == "" {
		return nil, util.ErrInvalidInput
	}

	unlock := e.locks.Lock(accountID)
	defer unlock()

	var investment *domain.Investment
	err := e.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		account, err := e.accountRepo.GetAccountByID(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("open investment: %w", err)
		}
		rateMin, rateMax := e.membership.RateBand(account.MembershipTier)
		if dailyRate.LessThan(rateMin) || dailyRate.GreaterThan(rateMax) {
			return fmt.Errorf("open investment: daily rate %s outside tier band [%s, %s]: %w",
				dailyRate, rateMin, rateMax, util.ErrInvalidInput)
		}

		wallet, err := e.walletRepo.GetWalletForUpdate(ctx, q, accountID, currency)
		if err != nil {
			return fmt.Errorf("open investment: %w", err)
		}
		if principal.GreaterThan(wallet.Spendable()) {
			return util.ErrInsufficientFunds
		}
		fromBalance := principal
		fromBonus := decimal.Zero
		if fromBalance.GreaterThan(wallet.Balance) {
			fromBalance = wallet.Balance
			fromBonus = principal.Sub(fromBalance)
		}
		if err := e.walletRepo.DebitForInvestment(ctx, q, wallet.ID, fromBalance, fromBonus); err != nil {
			return fmt.Errorf("open investment: %w", err)
		}

		investment = domain.NewInvestment(accountID, principal, currency, dailyRate, days, e.now().UTC())
		return e.investmentRepo.CreateInvestment(ctx, q, investment)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("investment opened",
		"account_id", accountID,
		"investment_id", investment.ID,
		"principal", principal,
	)
	return investment, nil
}

// CancelInvestment closes an active position early: the principal minus the
// penalty returns to the main balance, accrued profit is forfeited.
func (e *investmentEngine) CancelInvestment(ctx context.Context, accountID int64, investmentID uuid.UUID) (*domain.Investment, error) {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	var investment *domain.Investment
	err := e.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		inv, err := e.investmentRepo.GetInvestmentForUpdate(ctx, q, investmentID)
		if err != nil {
			return fmt.Errorf("cancel investment: %w", err)
		}
		if inv.AccountID != accountID {
			return util.ErrNotFound
		}
		if inv.Status != domain.InvestmentStatusActive {
			return fmt.Errorf("cancel investment: position is %s: %w", inv.Status, util.ErrInvalidInput)
		}

		now := e.now().UTC()
		if inv.Matured(now) {
			// Matured while sitting idle: settle as a completion instead.
			return e.settleMatured(ctx, q, inv, now, &investment)
		}

		penalty := inv.Principal.Mul(e.penaltyPercent).Div(decimal.NewFromInt(100))
		refund := inv.Principal.Sub(penalty)

		wallet, err := e.walletRepo.EnsureWallet(ctx, q, accountID, inv.Currency)
		if err != nil {
			return fmt.Errorf("cancel investment: %w", err)
		}
		if refund.IsPositive() {
			if err := e.walletRepo.CreditBalance(ctx, q, wallet.ID, refund); err != nil {
				return fmt.Errorf("cancel investment: %w", err)
			}
		}

		inv.Status = domain.InvestmentStatusCancelled
		inv.UpdatedAt = now
		if err := e.investmentRepo.UpdateInvestment(ctx, q, inv); err != nil {
			return fmt.Errorf("cancel investment: %w", err)
		}
		investment = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("investment closed early", "account_id", accountID, "investment_id", investmentID)
	return investment, nil
}

func (e *investmentEngine) ListInvestments(ctx context.Context, accountID int64) ([]domain.Investment, error) {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	var investments []domain.Investment
	err := e.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		active, err := e.investmentRepo.ListActiveForUpdate(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("list investments: %w", err)
		}
		now := e.now().UTC()
		for i := range active {
			inv := &active[i]
			if inv.Matured(now) {
				var settled *domain.Investment
				if err := e.settleMatured(ctx, q, inv, now, &settled); err != nil {
					return err
				}
				continue
			}
			if accrued := inv.Accrue(now); accrued.IsPositive() {
				inv.UpdatedAt = now
				if err := e.investmentRepo.UpdateInvestment(ctx, q, inv); err != nil {
					return fmt.Errorf("list investments: %w", err)
				}
			}
		}

		investments, err = e.investmentRepo.ListByAccount(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("list investments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return investments, nil
}

// settleMatured accrues up to the end date, returns principal plus profit to
// the wallet, and marks the position completed. Profit flows through
// total_profit so it becomes withdrawable.
func (e *investmentEngine) settleMatured(ctx context.Context, q repository.DBExecutor, inv *domain.Investment, now time.Time, out **domain.Investment) error {
	inv.Accrue(now)

	wallet, err := e.walletRepo.EnsureWallet(ctx, q, inv.AccountID, inv.Currency)
	if err != nil {
		return fmt.Errorf("settle investment: %w", err)
	}
	if err := e.walletRepo.CreditBalance(ctx, q, wallet.ID, inv.Principal); err != nil {
		return fmt.Errorf("settle investment: %w", err)
	}
	if inv.AccumulatedProfit.IsPositive() {
		if err := e.walletRepo.ApplyProfit(ctx, q, wallet.ID, inv.AccumulatedProfit); err != nil {
			return fmt.Errorf("settle investment: %w", err)
		}
	}

	inv.Status = domain.InvestmentStatusCompleted
	inv.UpdatedAt = now
	if err := e.investmentRepo.UpdateInvestment(ctx, q, inv); err != nil {
		return fmt.Errorf("settle investment: %w", err)
	}
	*out = inv
	return nil
}
