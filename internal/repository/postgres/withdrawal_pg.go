// internal/repository/postgres/withdrawal_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
	"accrual-engine/pkg/db"
)

// WithdrawalRepository implements repository.WithdrawalRepository for
// PostgreSQL. A partial unique index
//   CREATE UNIQUE INDEX ON withdrawal_requests (account_id) WHERE status = 'PENDING'
// backs the single-pending-request invariant at the storage layer.
type WithdrawalRepository struct{}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(db *sqlx.DB) repository.WithdrawalRepository {
	return &WithdrawalRepository{}
}

// CreateRequest inserts a new pending request.
func (r *WithdrawalRepository) CreateRequest(ctx context.Context, q repository.DBExecutor, req *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (id, account_id, amount, currency, destination, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := q.ExecContext(ctx, query,
		req.ID, req.AccountID, req.Amount, req.Currency, req.Destination, req.Status, req.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return util.ErrPendingWithdrawalExists
		}
		return fmt.Errorf("failed to create withdrawal request for account %d: %w", req.AccountID, err)
	}
	return nil
}

// GetRequestForUpdate retrieves a request with FOR UPDATE.
func (r *WithdrawalRepository) GetRequestForUpdate(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	query := `SELECT id, account_id, amount, currency, destination, status, created_at, decided_at
              FROM withdrawal_requests WHERE id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &req, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock withdrawal request %s: %w", id, err)
	}
	return &req, nil
}

// HasPending reports whether the account has a pending request.
func (r *WithdrawalRepository) HasPending(ctx context.Context, q repository.DBExecutor, accountID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM withdrawal_requests WHERE account_id = $1 AND status = $2)`
	err := q.GetContext(ctx, &exists, query, accountID, domain.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to check pending withdrawals for account %d: %w", accountID, err)
	}
	return exists, nil
}

// UpdateStatus records the administrative decision.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, q repository.DBExecutor, req *domain.WithdrawalRequest) error {
	query := `UPDATE withdrawal_requests SET status = $1, decided_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, req.Status, req.DecidedAt, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal request %s: %w", req.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for withdrawal request %s: %w", req.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// ListByAccount returns a page of the account's requests, newest first.
func (r *WithdrawalRepository) ListByAccount(ctx context.Context, q repository.DBExecutor, accountID int64, limit, offset int) ([]domain.WithdrawalRequest, int64, error) {
	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM withdrawal_requests WHERE account_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, accountID); err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawal requests for account %d: %w", accountID, err)
	}

	requests := []domain.WithdrawalRequest{}
	query := `SELECT id, account_id, amount, currency, destination, status, created_at, decided_at
              FROM withdrawal_requests WHERE account_id = $1
              ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &requests, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests for account %d: %w", accountID, err)
	}
	return requests, totalCount, nil
}
