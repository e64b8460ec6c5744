// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
)

// WalletRepository defines the interface for wallet data operations. The
// Apply* methods bump the balance together with the matching accumulator in
// one statement so the pair can never drift apart.
type WalletRepository interface {
	// CreateWallet adds a new wallet using the provided DBExecutor.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWallet retrieves a wallet by account ID and currency.
	GetWallet(ctx context.Context, q DBExecutor, accountID int64, currency string) (*domain.Wallet, error)
	// GetWalletForUpdate retrieves the wallet with a row lock, serializing
	// concurrent engine operations on the same account. Must run inside a
	// transaction.
	GetWalletForUpdate(ctx context.Context, q DBExecutor, accountID int64, currency string) (*domain.Wallet, error)
	// EnsureWallet creates the wallet if it does not exist yet and returns it
	// with a row lock held.
	EnsureWallet(ctx context.Context, q DBExecutor, accountID int64, currency string) (*domain.Wallet, error)
	// ApplyDeposit credits balance and total_deposited.
	ApplyDeposit(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) error
	// ApplyProfit credits balance and total_profit.
	ApplyProfit(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) error
	// ApplyCommission credits balance and total_referral_earnings.
	ApplyCommission(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) error
	// ApplyBonus credits the bonus-restricted balance.
	ApplyBonus(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) error
	// ApplyWithdrawal debits balance and credits total_withdrawn.
	ApplyWithdrawal(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) error
	// DebitForInvestment removes fromBalance from the main balance and
	// fromBonus from the bonus balance.
	DebitForInvestment(ctx context.Context, q DBExecutor, walletID int64, fromBalance, fromBonus decimal.Decimal) error
	// CreditBalance adds amount to the main balance only (investment payouts
	// returning principal).
	CreditBalance(ctx context.Context, q DBExecutor, walletID int64, amount decimal.Decimal) error
	// TotalDeposited sums total_deposited across all of the account's wallets.
	TotalDeposited(ctx context.Context, q DBExecutor, accountID int64) (decimal.Decimal, error)
}
