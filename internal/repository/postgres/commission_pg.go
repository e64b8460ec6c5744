// internal/repository/postgres/commission_pg.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
)

// CommissionRepository implements repository.CommissionRepository for
// PostgreSQL. The table is insert-only; there are no update paths.
type CommissionRepository struct{}

// NewCommissionRepository creates a new CommissionRepository.
func NewCommissionRepository(db *sqlx.DB) repository.CommissionRepository {
	return &CommissionRepository{}
}

// CreateCommissionRecord appends one immutable commission record.
func (r *CommissionRepository) CreateCommissionRecord(ctx context.Context, q repository.DBExecutor, record *domain.CommissionRecord) error {
	query := `INSERT INTO commission_records (id, beneficiary_id, source_account_id, level, event_type, amount, currency, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		record.ID, record.BeneficiaryID, record.SourceAccountID, record.Level,
		record.EventType, record.Amount, record.Currency, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create commission record for beneficiary %d: %w", record.BeneficiaryID, err)
	}
	return nil
}

// SumByBeneficiary totals the account's commission records in one currency.
func (r *CommissionRepository) SumByBeneficiary(ctx context.Context, q repository.DBExecutor, beneficiaryID int64, currency string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM commission_records WHERE beneficiary_id = $1 AND currency = $2`
	err := q.GetContext(ctx, &total, query, beneficiaryID, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum commissions for beneficiary %d: %w", beneficiaryID, err)
	}
	return total, nil
}

// ListByBeneficiary returns a page of commission history, newest first.
func (r *CommissionRepository) ListByBeneficiary(ctx context.Context, q repository.DBExecutor, beneficiaryID int64, limit, offset int) ([]domain.CommissionRecord, int64, error) {
	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM commission_records WHERE beneficiary_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, beneficiaryID); err != nil {
		return nil, 0, fmt.Errorf("failed to count commissions for beneficiary %d: %w", beneficiaryID, err)
	}

	records := []domain.CommissionRecord{}
	query := `SELECT id, beneficiary_id, source_account_id, level, event_type, amount, currency, created_at
              FROM commission_records WHERE beneficiary_id = $1
              ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &records, query, beneficiaryID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list commissions for beneficiary %d: %w", beneficiaryID, err)
	}
	return records, totalCount, nil
}
