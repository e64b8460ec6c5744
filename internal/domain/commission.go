// internal/domain/commission.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies the monetary event a commission derives from. It is a
// closed set: rate lookups are keyed by (tier, EventType, level).
type EventType string

const (
	EventTypeDeposit EventType = "DEPOSIT"
	EventTypeTask    EventType = "TASK"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return t == EventTypeDeposit || t == EventTypeTask
}

// CommissionRecord is one immutable upline credit: ancestor at hop Level earned
// Amount from SourceAccountID's event. The sum of records per beneficiary must
// equal the wallet's TotalReferralEarnings at all times.
type CommissionRecord struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	BeneficiaryID   int64           `db:"beneficiary_id" json:"beneficiary_id"`
	SourceAccountID int64           `db:"source_account_id" json:"source_account_id"`
	Level           int             `db:"level" json:"level"`
	EventType       EventType       `db:"event_type" json:"event_type"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Currency        string          `db:"currency" json:"currency"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// NewCommissionRecord creates a CommissionRecord for one upline credit.
func NewCommissionRecord(beneficiaryID, sourceAccountID int64, level int, eventType EventType, amount decimal.Decimal, currency string) *CommissionRecord {
	return &CommissionRecord{
		ID:              uuid.New(),
		BeneficiaryID:   beneficiaryID,
		SourceAccountID: sourceAccountID,
		Level:           level,
		EventType:       eventType,
		Amount:          amount,
		Currency:        currency,
		CreatedAt:       time.Now().UTC(),
	}
}
