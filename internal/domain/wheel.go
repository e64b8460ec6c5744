// internal/domain/wheel.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WheelPrize is one slot of the reward wheel. ProbabilityWeight is a whole
// percent; the active prize set must sum to exactly 100.
type WheelPrize struct {
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	ProbabilityWeight int             `json:"probability_weight"`
}

// SpinRecord tracks one account's wheel eligibility. An account with no record
// has never spun and is eligible immediately.
type SpinRecord struct {
	AccountID      int64     `db:"account_id" json:"account_id"`
	LastSpinAt     time.Time `db:"last_spin_at" json:"last_spin_at"`
	NextEligibleAt time.Time `db:"next_eligible_at" json:"next_eligible_at"`
}

// Eligible reports whether the account may spin at the given instant.
func (r *SpinRecord) Eligible(now time.Time) bool {
	return !now.Before(r.NextEligibleAt)
}
