// internal/repository/postgres/spin_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// SpinRepository implements repository.SpinRepository for PostgreSQL.
type SpinRepository struct{}

// NewSpinRepository creates a new SpinRepository.
func NewSpinRepository(db *sqlx.DB) repository.SpinRepository {
	return &SpinRepository{}
}

// Get retrieves the account's spin record without locking.
func (r *SpinRepository) Get(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.SpinRecord, error) {
	var record domain.SpinRecord
	query := `SELECT account_id, last_spin_at, next_eligible_at FROM spin_records WHERE account_id = $1`
	err := q.GetContext(ctx, &record, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get spin record for account %d: %w", accountID, err)
	}
	return &record, nil
}

// GetForUpdate retrieves the account's spin record with FOR UPDATE.
func (r *SpinRepository) GetForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.SpinRecord, error) {
	var record domain.SpinRecord
	query := `SELECT account_id, last_spin_at, next_eligible_at FROM spin_records WHERE account_id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &record, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock spin record for account %d: %w", accountID, err)
	}
	return &record, nil
}

// Upsert inserts or replaces the account's spin record.
func (r *SpinRepository) Upsert(ctx context.Context, q repository.DBExecutor, record *domain.SpinRecord) error {
	query := `INSERT INTO spin_records (account_id, last_spin_at, next_eligible_at)
              VALUES ($1, $2, $3)
              ON CONFLICT (account_id) DO UPDATE SET
                last_spin_at = EXCLUDED.last_spin_at,
                next_eligible_at = EXCLUDED.next_eligible_at`
	_, err := q.ExecContext(ctx, query, record.AccountID, record.LastSpinAt, record.NextEligibleAt)
	if err != nil {
		return fmt.Errorf("failed to upsert spin record for account %d: %w", record.AccountID, err)
	}
	return nil
}
