// internal/repository/spin_repo.go
package repository

import (
	"context"

	"accrual-engine/internal/domain"
)

// SpinRepository defines the interface for reward-wheel spin records.
type SpinRepository interface {
	// Get retrieves the account's spin record without locking, or
	// util.ErrNotFound if the account has never spun.
	Get(ctx context.Context, q DBExecutor, accountID int64) (*domain.SpinRecord, error)
	// GetForUpdate retrieves the account's spin record with a row lock, or
	// util.ErrNotFound if the account has never spun. The lock is what makes
	// the eligibility re-check inside the transaction race-free.
	GetForUpdate(ctx context.Context, q DBExecutor, accountID int64) (*domain.SpinRecord, error)
	// Upsert inserts or replaces the account's spin record.
	Upsert(ctx context.Context, q DBExecutor, record *domain.SpinRecord) error
}
