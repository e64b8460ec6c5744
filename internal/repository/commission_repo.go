// internal/repository/commission_repo.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
)

// CommissionRepository defines the interface for the append-only commission
// ledger. Records are never updated or deleted.
type CommissionRepository interface {
	// CreateCommissionRecord appends one immutable record.
	CreateCommissionRecord(ctx context.Context, q DBExecutor, record *domain.CommissionRecord) error
	// SumByBeneficiary totals all commission amounts credited to the account
	// in the given currency (reconciliation against total_referral_earnings).
	SumByBeneficiary(ctx context.Context, q DBExecutor, beneficiaryID int64, currency string) (decimal.Decimal, error)
	// ListByBeneficiary returns a page of the account's commission history,
	// newest first, together with the total count.
	ListByBeneficiary(ctx context.Context, q DBExecutor, beneficiaryID int64, limit, offset int) ([]domain.CommissionRecord, int64, error)
}
