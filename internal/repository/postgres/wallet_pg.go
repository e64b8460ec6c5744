// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

const walletColumns = `id, account_id, currency, balance, bonus_balance, total_deposited,
	total_withdrawn, total_profit, total_referral_earnings, created_at, updated_at`

// WalletRepository implements repository.WalletRepository for PostgreSQL.
// Monetary columns are NUMERIC(30, 8): eight fractional digits carried in the
// store, full precision carried in decimal.Decimal in memory.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts a new wallet using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := `INSERT INTO wallets (account_id, currency, balance, bonus_balance, total_deposited,
                  total_withdrawn, total_profit, total_referral_earnings, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		wallet.AccountID, wallet.Currency, wallet.Balance, wallet.BonusBalance,
		wallet.TotalDeposited, wallet.TotalWithdrawn, wallet.TotalProfit,
		wallet.TotalReferralEarnings, wallet.CreatedAt, wallet.UpdatedAt).Scan(&wallet.ID)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetWallet retrieves a wallet by account ID and currency.
func (r *WalletRepository) GetWallet(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1 AND currency = $2`
	err := q.GetContext(ctx, &wallet, query, accountID, currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for account %d currency %s: %w", accountID, currency, err)
	}
	return &wallet, nil
}

// GetWalletForUpdate retrieves the wallet with FOR UPDATE, serializing
// concurrent mutations of the same account.
func (r *WalletRepository) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1 AND currency = $2 FOR UPDATE`
	err := q.GetContext(ctx, &wallet, query, accountID, currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet for account %d currency %s: %w", accountID, currency, err)
	}
	return &wallet, nil
}

// EnsureWallet returns the account's wallet with a row lock, creating it first
// if the account has never held this currency.
func (r *WalletRepository) EnsureWallet(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	query := `INSERT INTO wallets (account_id, currency, balance, bonus_balance, total_deposited,
                  total_withdrawn, total_profit, total_referral_earnings, created_at, updated_at)
              VALUES ($1, $2, 0, 0, 0, 0, 0, 0, $3, $3)
              ON CONFLICT (account_id, currency) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, accountID, currency, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet for account %d currency %s: %w", accountID, currency, err)
	}
	return r.GetWalletForUpdate(ctx, q, accountID, currency)
}

// ApplyDeposit credits balance and total_deposited together.
func (r *WalletRepository) ApplyDeposit(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance + $1, total_deposited = total_deposited + $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, q, query, walletID, amount)
}

// ApplyProfit credits balance and total_profit together.
func (r *WalletRepository) ApplyProfit(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance + $1, total_profit = total_profit + $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, q, query, walletID, amount)
}

// ApplyCommission credits balance and total_referral_earnings together.
func (r *WalletRepository) ApplyCommission(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance + $1, total_referral_earnings = total_referral_earnings + $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, q, query, walletID, amount)
}

// ApplyBonus credits the bonus-restricted balance.
func (r *WalletRepository) ApplyBonus(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET bonus_balance = bonus_balance + $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, q, query, walletID, amount)
}

// ApplyWithdrawal debits balance and credits total_withdrawn.
func (r *WalletRepository) ApplyWithdrawal(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance - $1, total_withdrawn = total_withdrawn + $1, updated_at = $2
              WHERE id = $3 AND balance >= $1`
	result, err := q.ExecContext(ctx, query, amount, time.Now().UTC(), walletID)
	if err != nil {
		return fmt.Errorf("failed to apply withdrawal on wallet %d: %w", walletID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for wallet %d: %w", walletID, err)
	}
	if rowsAffected == 0 {
		return util.ErrInsufficientFunds
	}
	return nil
}

// DebitForInvestment removes principal from the main and bonus balances.
func (r *WalletRepository) DebitForInvestment(ctx context.Context, q repository.DBExecutor, walletID int64, fromBalance, fromBonus decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance - $1, bonus_balance = bonus_balance - $2, updated_at = $3
              WHERE id = $4 AND balance >= $1 AND bonus_balance >= $2`
	result, err := q.ExecContext(ctx, query, fromBalance, fromBonus, time.Now().UTC(), walletID)
	if err != nil {
		return fmt.Errorf("failed to debit wallet %d for investment: %w", walletID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for wallet %d: %w", walletID, err)
	}
	if rowsAffected == 0 {
		return util.ErrInsufficientFunds
	}
	return nil
}

// CreditBalance adds amount to the main balance only.
func (r *WalletRepository) CreditBalance(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, q, query, walletID, amount)
}

// TotalDeposited sums total_deposited across the account's wallets.
func (r *WalletRepository) TotalDeposited(ctx context.Context, q repository.DBExecutor, accountID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(total_deposited), 0) FROM wallets WHERE account_id = $1`
	err := q.GetContext(ctx, &total, query, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum deposits for account %d: %w", accountID, err)
	}
	return total, nil
}

func (r *WalletRepository) exec(ctx context.Context, q repository.DBExecutor, query string, walletID int64, amount decimal.Decimal) error {
	result, err := q.ExecContext(ctx, query, amount, time.Now().UTC(), walletID)
	if err != nil {
		return fmt.Errorf("failed to update wallet %d: %w", walletID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for wallet %d: %w", walletID, err)
	}
	if rowsAffected == 0 {
		return util.ErrWalletNotFound
	}
	return nil
}
