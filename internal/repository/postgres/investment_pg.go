// internal/repository/postgres/investment_pg.go
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
)

const investmentColumns = `id, account_id, principal, currency, daily_rate, start_date, end_date,
	status, accumulated_profit, last_accrued_at, created_at, updated_at`

// InvestmentRepository implements repository.InvestmentRepository for PostgreSQL.
type InvestmentRepository struct{}

// NewInvestmentRepository creates a new InvestmentRepository.
func NewInvestmentRepository(db *sqlx.DB) repository.InvestmentRepository {
	return &InvestmentRepository{}
}

// CreateInvestment inserts a new position.
func (r *InvestmentRepository) CreateInvestment(ctx context.Context, q repository.DBExecutor, inv *domain.Investment) error {
	query := `INSERT INTO investments (id, account_id, principal, currency, daily_rate, start_date, end_date,
                  status, accumulated_profit, last_accrued_at, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := q.ExecContext(ctx, query,
		inv.ID, inv.AccountID, inv.Principal, inv.Currency, inv.DailyRate,
		inv.StartDate, inv.EndDate, inv.Status, inv.AccumulatedProfit,
		inv.LastAccruedAt, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment for account %d: %w", inv.AccountID, err)
	}
	return nil
}

// GetInvestmentForUpdate retrieves a position with FOR UPDATE.
func (r *InvestmentRepository) GetInvestmentForUpdate(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Investment, error) {
	var inv domain.Investment
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &inv, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock investment %s: %w", id, err)
	}
	return &inv, nil
}

// ListByAccount returns all of the account's positions, newest first.
func (r *InvestmentRepository) ListByAccount(ctx context.Context, q repository.DBExecutor, accountID int64) ([]domain.Investment, error) {
	investments := []domain.Investment{}
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE account_id = $1 ORDER BY created_at DESC`
	if err := q.SelectContext(ctx, &investments, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list investments for account %d: %w", accountID, err)
	}
	return investments, nil
}

// ListActiveForUpdate returns the account's active positions with row locks.
func (r *InvestmentRepository) ListActiveForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) ([]domain.Investment, error) {
	investments := []domain.Investment{}
	query := `SELECT ` + investmentColumns + ` FROM investments
              WHERE account_id = $1 AND status = $2 ORDER BY created_at FOR UPDATE`
	if err := q.SelectContext(ctx, &investments, query, accountID, domain.InvestmentStatusActive); err != nil {
		return nil, fmt.Errorf("failed to lock active investments for account %d: %w", accountID, err)
	}
	return investments, nil
}

// UpdateInvestment persists accrual progress and status transitions.
func (r *InvestmentRepository) UpdateInvestment(ctx context.Context, q repository.DBExecutor, inv *domain.Investment) error {
	query := `UPDATE investments SET status = $1, accumulated_profit = $2, last_accrued_at = $3, updated_at = $4
              WHERE id = $5`
	result, err := q.ExecContext(ctx, query, inv.Status, inv.AccumulatedProfit, inv.LastAccruedAt, inv.UpdatedAt, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update investment %s: %w", inv.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for investment %s: %w", inv.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
