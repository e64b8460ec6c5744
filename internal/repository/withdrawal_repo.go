// internal/repository/withdrawal_repo.go
package repository

import (
	"context"

	"github.com/google/uuid"

	"accrual-engine/internal/domain"
)

// WithdrawalRepository defines the interface for withdrawal requests. The
// single-pending-request invariant is enforced twice: HasPending inside the
// requesting transaction, and a partial unique index on
// (account_id) WHERE status = 'PENDING' as the backstop.
type WithdrawalRepository interface {
	// CreateRequest adds a new pending request.
	CreateRequest(ctx context.Context, q DBExecutor, req *domain.WithdrawalRequest) error
	// GetRequestForUpdate retrieves a request with a row lock.
	GetRequestForUpdate(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.WithdrawalRequest, error)
	// HasPending reports whether the account has a pending request.
	HasPending(ctx context.Context, q DBExecutor, accountID int64) (bool, error)
	// UpdateStatus records the administrative decision.
	UpdateStatus(ctx context.Context, q DBExecutor, req *domain.WithdrawalRequest) error
	// ListByAccount returns a page of the account's requests, newest first,
	// together with the total count.
	ListByAccount(ctx context.Context, q DBExecutor, accountID int64, limit, offset int) ([]domain.WithdrawalRequest, int64, error)
}
