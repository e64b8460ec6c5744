// internal/service/membership.go
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"accrual-engine/internal/config"
	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
)

// MembershipEngine derives and upgrades an account's tier from its deposit
// history and qualified-referral count, and exposes the per-tier parameters
// the other engines consult. Upgrades are event-driven: EvaluateUpgrade runs
// after deposit confirmation and after direct-referral registration.
// Downgrades never happen.
type MembershipEngine interface {
	TierOf(account *domain.Account) domain.Tier
	RateBand(tier domain.Tier) (min, max decimal.Decimal)
	TaskQuota(tier domain.Tier) int
	PromotersRequired(tier domain.Tier) int
	MinUnlockAmount(tier domain.Tier) decimal.Decimal
	// EvaluateUpgrade re-checks the upgrade rule inside the caller's
	// transaction and persists any tier change. It returns the (possibly
	// unchanged) tier and updates account.MembershipTier in place.
	EvaluateUpgrade(ctx context.Context, q repository.DBExecutor, account *domain.Account) (domain.Tier, error)
}

type membershipEngine struct {
	tiers       []config.TierParams
	accountRepo repository.AccountRepository
	walletRepo  repository.WalletRepository
	logger      *slog.Logger
}

// NewMembershipEngine creates a MembershipEngine backed by the configured
// tier table.
func NewMembershipEngine(
	tiers []config.TierParams,
	accountRepo repository.AccountRepository,
	walletRepo repository.WalletRepository,
	logger *slog.Logger,
) MembershipEngine {
	return &membershipEngine{
		tiers:       tiers,
		accountRepo: accountRepo,
		walletRepo:  walletRepo,
		logger:      logger,
	}
}

func (m *membershipEngine) tier(t domain.Tier) config.TierParams {
	if t < 0 {
		t = 0
	}
	if int(t) >= len(m.tiers) {
		t = domain.Tier(len(m.tiers) - 1)
	}
	return m.tiers[t]
}

func (m *membershipEngine) TierOf(account *domain.Account) domain.Tier {
	return account.MembershipTier
}

func (m *membershipEngine) RateBand(tier domain.Tier) (decimal.Decimal, decimal.Decimal) {
	tp := m.tier(tier)
	return tp.RateMin, tp.RateMax
}

func (m *membershipEngine) TaskQuota(tier domain.Tier) int {
	return m.tier(tier).TaskQuota
}

func (m *membershipEngine) PromotersRequired(tier domain.Tier) int {
	return m.tier(tier).PromotersRequired
}

func (m *membershipEngine) MinUnlockAmount(tier domain.Tier) decimal.Decimal {
	return m.tier(tier).MinUnlockAmount
}

// EvaluateUpgrade advances the account through every tier whose unlock amount
// and promoter count are both satisfied. A single deposit can clear more than
// one threshold, so the check loops until a gate fails.
func (m *membershipEngine) EvaluateUpgrade(ctx context.Context, q repository.DBExecutor, account *domain.Account) (domain.Tier, error) {
	totalDeposited, err := m.walletRepo.TotalDeposited(ctx, q, account.ID)
	if err != nil {
		return account.MembershipTier, fmt.Errorf("evaluate upgrade: %w", err)
	}
	qualified, err := m.accountRepo.CountQualifiedReferrals(ctx, q, account.ID)
	if err != nil {
		return account.MembershipTier, fmt.Errorf("evaluate upgrade: %w", err)
	}

	tier := account.MembershipTier
	for int(tier) < len(m.tiers)-1 {
		next := m.tiers[tier+1]
		if totalDeposited.LessThan(next.MinUnlockAmount) || qualified < next.PromotersRequired {
			break
		}
		tier++
	}

	if tier == account.MembershipTier {
		return tier, nil
	}

	if err := m.accountRepo.UpdateMembershipTier(ctx, q, account.ID, tier); err != nil {
		return account.MembershipTier, fmt.Errorf("evaluate upgrade: %w", err)
	}
	m.logger.Info("membership tier upgraded",
		"account_id", account.ID,
		"from_tier", account.MembershipTier,
		"to_tier", tier,
	)
	account.MembershipTier = tier
	return tier, nil
}
