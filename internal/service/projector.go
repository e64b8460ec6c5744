// internal/service/projector.go
package service

import (
	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
)

// CompoundProjector computes forward-looking balance projections for display.
// It is pure and side-effect-free; its output is an estimate, never an
// authoritative balance.
type CompoundProjector struct{}

// NewCompoundProjector creates a CompoundProjector.
func NewCompoundProjector() *CompoundProjector {
	return &CompoundProjector{}
}

// ProjectFutureValue returns principal × (1 + dailyRatePercent/100)^days.
// Intermediate values keep full decimal precision; callers round only the
// presented value.
func (p *CompoundProjector) ProjectFutureValue(principal, dailyRatePercent decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return principal
	}
	factor := decimal.NewFromInt(1).Add(dailyRatePercent.Div(decimal.NewFromInt(100)))
	return principal.Mul(factor.Pow(decimal.NewFromInt(int64(days))))
}

// TotalInterestEarned returns the already-realized profit on the wallet.
func (p *CompoundProjector) TotalInterestEarned(wallet *domain.Wallet) decimal.Decimal {
	return wallet.TotalProfit
}
