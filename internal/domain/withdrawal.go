// internal/domain/withdrawal.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus defines the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved WithdrawalStatus = "APPROVED"
	WithdrawalStatusRejected WithdrawalStatus = "REJECTED"
)

// WithdrawalRequest is a user's request to withdraw realized profit. Creating
// it does not debit the wallet; the debit happens on administrative approval.
// At most one pending request may exist per account.
type WithdrawalRequest struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	AccountID   int64            `db:"account_id" json:"account_id"`
	Amount      decimal.Decimal  `db:"amount" json:"amount"`
	Currency    string           `db:"currency" json:"currency"`
	Destination string           `db:"destination" json:"destination"`
	Status      WithdrawalStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	DecidedAt   *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
}

// NewWithdrawalRequest creates a pending request.
func NewWithdrawalRequest(accountID int64, amount decimal.Decimal, currency, destination string) *WithdrawalRequest {
	return &WithdrawalRequest{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Currency:    currency,
		Destination: destination,
		Status:      WithdrawalStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}
