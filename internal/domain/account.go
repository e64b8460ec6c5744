// internal/domain/account.go
package domain

import "time"

// Role controls access to administrative operations such as withdrawal approval.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Tier is the ordinal membership level (0..5) gating task quota and profit-rate band.
type Tier int

const (
	TierBasic Tier = iota
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
	TierElite
)

// MaxTier is the highest configurable membership tier.
const MaxTier = TierElite

// Account represents a user of the rewards platform. ReferredBy is set once at
// creation and never changes, so the referral graph is a forest by construction.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Role           Role      `db:"role" json:"role"`
	MembershipTier Tier      `db:"membership_tier" json:"membership_tier"`
	ReferredBy     *int64    `db:"referred_by" json:"referred_by"`
	ArchivedAt     *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// NewAccount creates a new Account at the base tier.
func NewAccount(username string, referredBy *int64) *Account {
	now := time.Now().UTC()
	return &Account{
		Username:       username,
		Role:           RoleUser,
		MembershipTier: TierBasic,
		ReferredBy:     referredBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsAdmin reports whether the account may perform administrative approvals.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
