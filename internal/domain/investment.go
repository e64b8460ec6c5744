// internal/domain/investment.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentStatus defines the lifecycle state of an investment position.
type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "ACTIVE"
	InvestmentStatusCompleted InvestmentStatus = "COMPLETED"
	InvestmentStatusCancelled InvestmentStatus = "CANCELLED"
)

// Investment is one position earning DailyRate percent of Principal per day.
// Profit accrues lazily: LastAccruedAt advances in whole-day steps on access,
// never via a background timer.
type Investment struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	AccountID         int64            `db:"account_id" json:"account_id"`
	Principal         decimal.Decimal  `db:"principal" json:"principal"`
	Currency          string           `db:"currency" json:"currency"`
	DailyRate         decimal.Decimal  `db:"daily_rate" json:"daily_rate"` // percent per day
	StartDate         time.Time        `db:"start_date" json:"start_date"`
	EndDate           time.Time        `db:"end_date" json:"end_date"`
	Status            InvestmentStatus `db:"status" json:"status"`
	AccumulatedProfit decimal.Decimal  `db:"accumulated_profit" json:"accumulated_profit"`
	LastAccruedAt     time.Time        `db:"last_accrued_at" json:"last_accrued_at"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// NewInvestment opens an active position running for the given number of days.
func NewInvestment(accountID int64, principal decimal.Decimal, currency string, dailyRate decimal.Decimal, days int, now time.Time) *Investment {
	return &Investment{
		ID:                uuid.New(),
		AccountID:         accountID,
		Principal:         principal,
		Currency:          currency,
		DailyRate:         dailyRate,
		StartDate:         now,
		EndDate:           now.Add(time.Duration(days) * 24 * time.Hour),
		Status:            InvestmentStatusActive,
		AccumulatedProfit: decimal.Zero,
		LastAccruedAt:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Accrue settles profit for the whole days elapsed since LastAccruedAt, capped
// at EndDate, and returns the newly accrued amount. It does not change Status.
func (inv *Investment) Accrue(now time.Time) decimal.Decimal {
	until := now
	if until.After(inv.EndDate) {
		until = inv.EndDate
	}
	elapsed := until.Sub(inv.LastAccruedAt)
	days := int64(elapsed / (24 * time.Hour))
	if days <= 0 {
		return decimal.Zero
	}
	profit := inv.Principal.Mul(inv.DailyRate).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(days))
	inv.AccumulatedProfit = inv.AccumulatedProfit.Add(profit)
	inv.LastAccruedAt = inv.LastAccruedAt.Add(time.Duration(days) * 24 * time.Hour)
	return profit
}

// Matured reports whether the position has reached its end date.
func (inv *Investment) Matured(now time.Time) bool {
	return !now.Before(inv.EndDate)
}
