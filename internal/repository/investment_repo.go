// internal/repository/investment_repo.go
package repository

import (
	"context"

	"github.com/google/uuid"

	"accrual-engine/internal/domain"
)

// InvestmentRepository defines the interface for investment positions.
type InvestmentRepository interface {
	// CreateInvestment adds a new position.
	CreateInvestment(ctx context.Context, q DBExecutor, inv *domain.Investment) error
	// GetInvestmentForUpdate retrieves a position with a row lock.
	GetInvestmentForUpdate(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Investment, error)
	// ListByAccount returns all of the account's positions, newest first.
	ListByAccount(ctx context.Context, q DBExecutor, accountID int64) ([]domain.Investment, error)
	// ListActiveForUpdate returns the account's active positions with row
	// locks held, for lazy accrual.
	ListActiveForUpdate(ctx context.Context, q DBExecutor, accountID int64) ([]domain.Investment, error)
	// UpdateInvestment persists accrual progress and status transitions.
	UpdateInvestment(ctx context.Context, q DBExecutor, inv *domain.Investment) error
}
