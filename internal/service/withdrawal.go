// internal/service/withdrawal.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/metrics"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// WithdrawalGate computes the profit-only withdrawable amount and enforces
// the single-pending-request and min/max rules. Requesting a withdrawal never
// debits the wallet; the debit happens under the administrative approval
// action, which is idempotent.
type WithdrawalGate interface {
	AvailableForWithdrawal(ctx context.Context, accountID int64, currency string) (decimal.Decimal, error)
	RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, currency, destination string) (*domain.WithdrawalRequest, error)
	// ApproveWithdrawal debits the wallet and marks the request approved.
	// The caller must hold the admin role. Approving an already-approved
	// request is a no-op, not a double debit.
	ApproveWithdrawal(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error)
	// RejectWithdrawal marks a pending request rejected without any debit.
	RejectWithdrawal(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, accountID int64, limit, offset int) ([]domain.WithdrawalRequest, int64, error)
}

type withdrawalGate struct {
	tx         *TxRunner
	dbExecutor repository.DBExecutor

	accountRepo    repository.AccountRepository
	walletRepo     repository.WalletRepository
	withdrawalRepo repository.WithdrawalRepository

	minWithdrawal decimal.Decimal
	maxWithdrawal decimal.Decimal
	locks         *AccountLocker
	now           func() time.Time
	logger        *slog.Logger
}

// NewWithdrawalGate creates a WithdrawalGate. now may be nil for the wall clock.
func NewWithdrawalGate(
	tx *TxRunner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	walletRepo repository.WalletRepository,
	withdrawalRepo repository.WithdrawalRepository,
	minWithdrawal, maxWithdrawal decimal.Decimal,
	locks *AccountLocker,
	now func() time.Time,
	logger *slog.Logger,
) WithdrawalGate {
	if now == nil {
		now = time.Now
	}
	return &withdrawalGate{
		tx:             tx,
		dbExecutor:     dbExecutor,
		accountRepo:    accountRepo,
		walletRepo:     walletRepo,
		withdrawalRepo: withdrawalRepo,
		minWithdrawal:  minWithdrawal,
		maxWithdrawal:  maxWithdrawal,
		locks:          locks,
		now:            now,
		logger:         logger,
	}
}

// AvailableForWithdrawal returns totalProfit − totalWithdrawn clamped to
// [0, balance]. Principal and bonus funds are never withdrawable.
func (g *withdrawalGate) AvailableForWithdrawal(ctx context.Context, accountID int64, currency string) (decimal.Decimal, error) {
	wallet, err := g.walletRepo.GetWallet(ctx, g.dbExecutor, accountID, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("available for withdrawal: %w", err)
	}
	return wallet.Withdrawable(), nil
}

func (g *withdrawalGate) RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, currency, destination string) (*domain.WithdrawalRequest, error) {
	if !amount.IsPositive() || currency == "" {
		return nil, util.ErrInvalidInput
	}

	unlock := g.locks.Lock(accountID)
	defer unlock()

	var request *domain.WithdrawalRequest
	err := g.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		wallet, err := g.walletRepo.GetWalletForUpdate(ctx, q, accountID, currency)
		if err != nil {
			return fmt.Errorf("request withdrawal: %w", err)
		}

		pending, err := g.withdrawalRepo.HasPending(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("request withdrawal: %w", err)
		}
		if pending {
			return util.ErrPendingWithdrawalExists
		}

		if amount.LessThan(g.minWithdrawal) {
			return util.ErrBelowMinimum
		}
		if amount.GreaterThan(g.maxWithdrawal) {
			return util.ErrAboveMaximum
		}
		if amount.GreaterThan(wallet.Withdrawable()) {
			return util.ErrExceedsAvailable
		}

		request = domain.NewWithdrawalRequest(accountID, amount, currency, destination)
		return g.withdrawalRepo.CreateRequest(ctx, q, request)
	})
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalRequestsTotal.WithLabelValues("pending").Inc()
	g.logger.Info("withdrawal requested", "account_id", accountID, "amount", amount, "request_id", request.ID)
	return request, nil
}

func (g *withdrawalGate) ApproveWithdrawal(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	if err := g.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	var request *domain.WithdrawalRequest
	var transitioned bool
	err := g.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		transitioned = false
		req, err := g.withdrawalRepo.GetRequestForUpdate(ctx, q, requestID)
		if err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}
		switch req.Status {
		case domain.WithdrawalStatusApproved:
			// Idempotent re-approval.
			request = req
			return nil
		case domain.WithdrawalStatusRejected:
			return fmt.Errorf("approve withdrawal: request %s was rejected: %w", req.ID, util.ErrInvalidInput)
		}

		wallet, err := g.walletRepo.GetWalletForUpdate(ctx, q, req.AccountID, req.Currency)
		if err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}
		if err := g.walletRepo.ApplyWithdrawal(ctx, q, wallet.ID, req.Amount); err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}

		now := g.now().UTC()
		req.Status = domain.WithdrawalStatusApproved
		req.DecidedAt = &now
		if err := g.withdrawalRepo.UpdateStatus(ctx, q, req); err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}
		request = req
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		metrics.WithdrawalRequestsTotal.WithLabelValues("approved").Inc()
	}
	g.logger.Info("withdrawal approved", "request_id", requestID, "caller_id", callerID)
	return request, nil
}

func (g *withdrawalGate) RejectWithdrawal(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	if err := g.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	var request *domain.WithdrawalRequest
	var transitioned bool
	err := g.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		transitioned = false
		req, err := g.withdrawalRepo.GetRequestForUpdate(ctx, q, requestID)
		if err != nil {
			return fmt.Errorf("reject withdrawal: %w", err)
		}
		switch req.Status {
		case domain.WithdrawalStatusRejected:
			request = req
			return nil
		case domain.WithdrawalStatusApproved:
			return fmt.Errorf("reject withdrawal: request %s was approved: %w", req.ID, util.ErrInvalidInput)
		}

		now := g.now().UTC()
		req.Status = domain.WithdrawalStatusRejected
		req.DecidedAt = &now
		if err := g.withdrawalRepo.UpdateStatus(ctx, q, req); err != nil {
			return fmt.Errorf("reject withdrawal: %w", err)
		}
		request = req
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		metrics.WithdrawalRequestsTotal.WithLabelValues("rejected").Inc()
	}
	g.logger.Info("withdrawal rejected", "request_id", requestID, "caller_id", callerID)
	return request, nil
}

func (g *withdrawalGate) ListWithdrawals(ctx context.Context, accountID int64, limit, offset int) ([]domain.WithdrawalRequest, int64, error) {
	return g.withdrawalRepo.ListByAccount(ctx, g.dbExecutor, accountID, limit, offset)
}

// requireAdmin checks the caller's role attribute; administrative approval is
// never keyed to a hard-coded account.
func (g *withdrawalGate) requireAdmin(ctx context.Context, callerID int64) error {
	caller, err := g.accountRepo.GetAccountByID(ctx, g.dbExecutor, callerID)
	if err != nil {
		return fmt.Errorf("authorization check: %w", err)
	}
	if !caller.IsAdmin() {
		return util.ErrUnauthorized
	}
	return nil
}
