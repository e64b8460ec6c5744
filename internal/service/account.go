// internal/service/account.go
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// AccountService handles registration, deposit confirmation, and read paths
// over accounts and wallets. Deposit verification itself happens outside the
// engine; ConfirmDeposit is the entry point the external pipeline calls once
// a deposit is verified.
type AccountService interface {
	Register(ctx context.Context, username string, referredBy *int64) (*domain.Account, *domain.Wallet, error)
	// ConfirmDeposit credits the deposit, fans out deposit commissions to the
	// upline, and re-evaluates membership for the account and its referrer in
	// one transaction. The caller must hold the admin role.
	ConfirmDeposit(ctx context.Context, callerID, accountID int64, amount decimal.Decimal, currency string) (*domain.Wallet, error)
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	GetWallet(ctx context.Context, accountID int64, currency string) (*domain.Wallet, error)
	GetCommissionHistory(ctx context.Context, accountID int64, limit, offset int) ([]domain.CommissionRecord, int64, error)
}

type accountService struct {
	tx         *TxRunner
	dbExecutor repository.DBExecutor

	accountRepo    repository.AccountRepository
	walletRepo     repository.WalletRepository
	commissionRepo repository.CommissionRepository
	referral       ReferralCommissionEngine
	membership     MembershipEngine

	locks    *AccountLocker
	currency string
	logger   *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(
	tx *TxRunner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	walletRepo repository.WalletRepository,
	commissionRepo repository.CommissionRepository,
	referral ReferralCommissionEngine,
	membership MembershipEngine,
	locks *AccountLocker,
	currency string,
	logger *slog.Logger,
) AccountService {
	return &accountService{
		tx:             tx,
		dbExecutor:     dbExecutor,
		accountRepo:    accountRepo,
		walletRepo:     walletRepo,
		commissionRepo: commissionRepo,
		referral:       referral,
		membership:     membership,
		locks:          locks,
		currency:       currency,
		logger:         logger,
	}
}

// Register creates an account and its platform-currency wallet. The referrer,
// when given, must already exist: referredBy can never point at a descendant,
// so creation order alone precludes referral cycles.
func (s *accountService) Register(ctx context.Context, username string, referredBy *int64) (*domain.Account, *domain.Wallet, error) {
	if username == "" {
		return nil, nil, util.ErrInvalidInput
	}

	var (
		account *domain.Account
		wallet  *domain.Wallet
	)
	err := s.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		_, err := s.accountRepo.GetAccountByUsername(ctx, q, username)
		if err == nil {
			return fmt.Errorf("register: username %q taken: %w", username, util.ErrDuplicateEntry)
		}
		if !util.IsError(err, util.ErrNotFound) {
			return fmt.Errorf("register: failed to check existing account: %w", err)
		}

		var referrer *domain.Account
		if referredBy != nil {
			referrer, err = s.accountRepo.GetAccountByID(ctx, q, *referredBy)
			if err != nil {
				if util.IsError(err, util.ErrNotFound) {
					return fmt.Errorf("register: referrer %d does not exist: %w", *referredBy, util.ErrInvalidInput)
				}
				return fmt.Errorf("register: failed to load referrer: %w", err)
			}
		}

		account = domain.NewAccount(username, referredBy)
		if err := s.accountRepo.CreateAccount(ctx, q, account); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		wallet = domain.NewWallet(account.ID, s.currency)
		if err := s.walletRepo.CreateWallet(ctx, q, wallet); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		if referrer != nil {
			if _, err := s.membership.EvaluateUpgrade(ctx, q, referrer); err != nil {
				return fmt.Errorf("register: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("account registered", "account_id", account.ID, "referred_by", referredBy)
	return account, wallet, nil
}

func (s *accountService) ConfirmDeposit(ctx context.Context, callerID, accountID int64, amount decimal.Decimal, currency string) (*domain.Wallet, error) {
	if !amount.IsPositive() || currency == "" {
		return nil, util.ErrInvalidInput
	}

	caller, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, callerID)
	if err != nil {
		return nil, fmt.Errorf("confirm deposit: authorization check: %w", err)
	}
	if !caller.IsAdmin() {
		return nil, util.ErrUnauthorized
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	var wallet *domain.Wallet
	err = s.tx.RunInTx(ctx, func(q repository.DBExecutor) error {
		account, err := s.accountRepo.GetAccountByID(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("confirm deposit: %w", err)
		}

		w, err := s.walletRepo.EnsureWallet(ctx, q, accountID, currency)
		if err != nil {
			return fmt.Errorf("confirm deposit: %w", err)
		}
		if err := s.walletRepo.ApplyDeposit(ctx, q, w.ID, amount); err != nil {
			return fmt.Errorf("confirm deposit: %w", err)
		}

		if _, err := s.referral.Propagate(ctx, q, account, domain.EventTypeDeposit, amount, currency); err != nil {
			return fmt.Errorf("confirm deposit: %w", err)
		}

		if _, err := s.membership.EvaluateUpgrade(ctx, q, account); err != nil {
			return fmt.Errorf("confirm deposit: %w", err)
		}
		if account.ReferredBy != nil {
			referrer, err := s.accountRepo.GetAccountByID(ctx, q, *account.ReferredBy)
			if err == nil {
				if _, err := s.membership.EvaluateUpgrade(ctx, q, referrer); err != nil {
					return fmt.Errorf("confirm deposit: %w", err)
				}
			} else if !util.IsError(err, util.ErrNotFound) {
				return fmt.Errorf("confirm deposit: %w", err)
			}
		}

		wallet, err = s.walletRepo.GetWallet(ctx, q, accountID, currency)
		if err != nil {
			return fmt.Errorf("confirm deposit: failed to re-fetch wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit confirmed", "account_id", accountID, "amount", amount, "currency", currency)
	return wallet, nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *accountService) GetWallet(ctx context.Context, accountID int64, currency string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWallet(ctx, s.dbExecutor, accountID, currency)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

func (s *accountService) GetCommissionHistory(ctx context.Context, accountID int64, limit, offset int) ([]domain.CommissionRecord, int64, error) {
	return s.commissionRepo.ListByBeneficiary(ctx, s.dbExecutor, accountID, limit, offset)
}
