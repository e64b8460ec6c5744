// internal/repository/account_repo.go
package repository

import (
	"context"

	"accrual-engine/internal/domain"
)

// AccountRepository defines the interface for account data operations.
type AccountRepository interface {
	// CreateAccount adds a new account using the provided DBExecutor.
	CreateAccount(ctx context.Context, q DBExecutor, account *domain.Account) error
	// GetAccountByID retrieves an account by its ID.
	GetAccountByID(ctx context.Context, q DBExecutor, id int64) (*domain.Account, error)
	// GetAccountByUsername retrieves an account by its unique username.
	GetAccountByUsername(ctx context.Context, q DBExecutor, username string) (*domain.Account, error)
	// UpdateMembershipTier persists a tier upgrade. Tiers never move down.
	UpdateMembershipTier(ctx context.Context, q DBExecutor, accountID int64, tier domain.Tier) error
	// CountQualifiedReferrals counts direct referrals that have confirmed at
	// least one deposit.
	CountQualifiedReferrals(ctx context.Context, q DBExecutor, accountID int64) (int, error)
}
