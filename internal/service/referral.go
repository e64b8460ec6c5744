// internal/service/referral.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/metrics"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// RateProvider resolves the percent commission an ancestor earns, keyed by
// the ancestor's tier, the event type, and the upline level.
type RateProvider interface {
	CommissionRate(tier domain.Tier, event domain.EventType, level int) (decimal.Decimal, bool)
}

// ReferralCommissionEngine walks the upline chain of a source account and
// credits each ancestor its commission on a qualifying monetary event.
type ReferralCommissionEngine interface {
	// Propagate fans out commissions for one source event. It must run inside
	// the same transaction as the source credit: the set of ancestor credits
	// and records commits or rolls back as one unit. A chain shorter than the
	// configured depth is normal termination, not an error.
	Propagate(ctx context.Context, q repository.DBExecutor, source *domain.Account, event domain.EventType, baseAmount decimal.Decimal, currency string) ([]domain.CommissionRecord, error)
}

type referralEngine struct {
	rates          RateProvider
	maxDepth       int
	accountRepo    repository.AccountRepository
	walletRepo     repository.WalletRepository
	commissionRepo repository.CommissionRepository
	logger         *slog.Logger
}

// NewReferralCommissionEngine creates a ReferralCommissionEngine.
func NewReferralCommissionEngine(
	rates RateProvider,
	maxDepth int,
	accountRepo repository.AccountRepository,
	walletRepo repository.WalletRepository,
	commissionRepo repository.CommissionRepository,
	logger *slog.Logger,
) ReferralCommissionEngine {
	return &referralEngine{
		rates:          rates,
		maxDepth:       maxDepth,
		accountRepo:    accountRepo,
		walletRepo:     walletRepo,
		commissionRepo: commissionRepo,
		logger:         logger,
	}
}

func (e *referralEngine) Propagate(ctx context.Context, q repository.DBExecutor, source *domain.Account, event domain.EventType, baseAmount decimal.Decimal, currency string) ([]domain.CommissionRecord, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("propagate: unknown event type %q: %w", event, util.ErrInvalidInput)
	}
	if !baseAmount.IsPositive() {
		return nil, nil
	}

	records := []domain.CommissionRecord{}
	ancestorID := source.ReferredBy
	for level := 1; level <= e.maxDepth && ancestorID != nil; level++ {
		ancestor, err := e.accountRepo.GetAccountByID(ctx, q, *ancestorID)
		if err != nil {
			if util.IsError(err, util.ErrNotFound) {
				// Archived ancestor ends the chain.
				break
			}
			return nil, fmt.Errorf("propagate: failed to load ancestor at level %d: %w", level, err)
		}

		rate, ok := e.rates.CommissionRate(ancestor.MembershipTier, event, level)
		if !ok {
			break
		}
		commission := baseAmount.Mul(rate).Div(decimal.NewFromInt(100))
		if commission.IsPositive() {
			wallet, err := e.walletRepo.EnsureWallet(ctx, q, ancestor.ID, currency)
			if err != nil {
				return nil, fmt.Errorf("propagate: failed to ensure wallet for ancestor %d: %w", ancestor.ID, err)
			}
			if err := e.walletRepo.ApplyCommission(ctx, q, wallet.ID, commission); err != nil {
				return nil, fmt.Errorf("propagate: failed to credit ancestor %d: %w", ancestor.ID, err)
			}
			record := domain.NewCommissionRecord(ancestor.ID, source.ID, level, event, commission, currency)
			if err := e.commissionRepo.CreateCommissionRecord(ctx, q, record); err != nil {
				return nil, fmt.Errorf("propagate: failed to record commission for ancestor %d: %w", ancestor.ID, err)
			}
			records = append(records, *record)
			metrics.CommissionsPaidTotal.WithLabelValues(string(event), strconv.Itoa(level)).Inc()
		}

		ancestorID = ancestor.ReferredBy
	}

	return records, nil
}
