// internal/repository/postgres/account_pg.go
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
	"accrual-engine/pkg/db"
)

// AccountRepository implements repository.AccountRepository for PostgreSQL.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &AccountRepository{}
}

// CreateAccount inserts a new account using the provided DBExecutor.
func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	query := `INSERT INTO accounts (username, role, membership_tier, referred_by, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		account.Username, account.Role, account.MembershipTier, account.ReferredBy,
		account.CreatedAt, account.UpdatedAt).Scan(&account.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves an account by its ID using the provided DBExecutor.
func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, username, role, membership_tier, referred_by, archived_at, created_at, updated_at
              FROM accounts WHERE id = $1 AND archived_at IS NULL`
	err := q.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID %d: %w", id, err)
	}
	return &account, nil
}

// GetAccountByUsername retrieves an account by username using the provided DBExecutor.
func (r *AccountRepository) GetAccountByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, username, role, membership_tier, referred_by, archived_at, created_at, updated_at
              FROM accounts WHERE username = $1 AND archived_at IS NULL`
	err := q.GetContext(ctx, &account, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by username %s: %w", username, err)
	}
	return &account, nil
}

// UpdateMembershipTier persists a tier change for the account.
func (r *AccountRepository) UpdateMembershipTier(ctx context.Context, q repository.DBExecutor, accountID int64, tier domain.Tier) error {
	query := `UPDATE accounts SET membership_tier = $1, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, tier, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update membership tier for account %d: %w", accountID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after tier update for account %d: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return util.ErrAccountNotFound
	}
	return nil
}

// CountQualifiedReferrals counts direct referrals that have at least one
// confirmed deposit.
func (r *AccountRepository) CountQualifiedReferrals(ctx context.Context, q repository.DBExecutor, accountID int64) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT a.id)
              FROM accounts a
              JOIN wallets w ON w.account_id = a.id
              WHERE a.referred_by = $1 AND a.archived_at IS NULL AND w.total_deposited > 0`
	err := q.GetContext(ctx, &count, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to count qualified referrals for account %d: %w", accountID, err)
	}
	return count, nil
}
