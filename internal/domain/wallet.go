// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Wallet holds an account's funds in one currency, together with the monotonic
// accumulators the engines reconcile against. Balance and BonusBalance are kept
// apart because bonus funds (reward wheel) are spendable but never withdrawable.
type Wallet struct {
	ID                    int64           `db:"id" json:"id"`
	AccountID             int64           `db:"account_id" json:"account_id"`
	Currency              string          `db:"currency" json:"currency"`
	Balance               decimal.Decimal `db:"balance" json:"balance"`
	BonusBalance          decimal.Decimal `db:"bonus_balance" json:"bonus_balance"`
	TotalDeposited        decimal.Decimal `db:"total_deposited" json:"total_deposited"`
	TotalWithdrawn        decimal.Decimal `db:"total_withdrawn" json:"total_withdrawn"`
	TotalProfit           decimal.Decimal `db:"total_profit" json:"total_profit"`
	TotalReferralEarnings decimal.Decimal `db:"total_referral_earnings" json:"total_referral_earnings"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a zeroed Wallet for the given account and currency.
func NewWallet(accountID int64, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		AccountID:             accountID,
		Currency:              currency,
		Balance:               decimal.Zero,
		BonusBalance:          decimal.Zero,
		TotalDeposited:        decimal.Zero,
		TotalWithdrawn:        decimal.Zero,
		TotalProfit:           decimal.Zero,
		TotalReferralEarnings: decimal.Zero,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Spendable returns the funds usable for investments: balance plus bonus.
func (w *Wallet) Spendable() decimal.Decimal {
	return w.Balance.Add(w.BonusBalance)
}

// Withdrawable returns the profit-only amount eligible for withdrawal:
// realized profit net of prior withdrawals, clamped to [0, balance].
// Principal and the bonus balance are never included.
func (w *Wallet) Withdrawable() decimal.Decimal {
	available := w.TotalProfit.Sub(w.TotalWithdrawn)
	if available.IsNegative() {
		return decimal.Zero
	}
	if available.GreaterThan(w.Balance) {
		return w.Balance
	}
	return available
}
