// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/pkg/db"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// stubTxController satisfies both db.TxController and repository.DBExecutor
// so TxRunner can hand it to the transactional closure.
type stubTxController struct {
	repository.DBExecutor
}

func (stubTxController) Commit() error   { return nil }
func (stubTxController) Rollback() error { return nil }

// newTestTxRunner returns a TxRunner whose transactions are plain pass-throughs
// over the given executor.
func newTestTxRunner(exec repository.DBExecutor) *TxRunner {
	return NewTxRunner(
		nil,
		func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return stubTxController{exec}, nil
		},
		func(tx db.TxController) error { return tx.Commit() },
		func(tx db.TxController) { _ = tx.Rollback() },
		1,
	)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fixedRand always returns the same draw.
type fixedRand struct {
	v float64
}

func (r fixedRand) Float64() float64 { return r.v }

func decEq(want decimal.Decimal) interface{} {
	return mock.MatchedBy(func(got decimal.Decimal) bool { return got.Equal(want) })
}

// MockAccountRepository is a mock implementation of repository.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	args := m.Called(ctx, q, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Account, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetAccountByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.Account, error) {
	args := m.Called(ctx, q, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateMembershipTier(ctx context.Context, q repository.DBExecutor, accountID int64, tier domain.Tier) error {
	args := m.Called(ctx, q, accountID, tier)
	return args.Error(0)
}

func (m *MockAccountRepository) CountQualifiedReferrals(ctx context.Context, q repository.DBExecutor, accountID int64) (int, error) {
	args := m.Called(ctx, q, accountID)
	return args.Int(0), args.Error(1)
}

// MockWalletRepository is a mock implementation of repository.WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	args := m.Called(ctx, q, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetWallet(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) EnsureWallet(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	args := m.Called(ctx, q, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyDeposit(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) ApplyProfit(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) ApplyCommission(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) ApplyBonus(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) ApplyWithdrawal(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) DebitForInvestment(ctx context.Context, q repository.DBExecutor, walletID int64, fromBalance, fromBonus decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, fromBalance, fromBonus)
	return args.Error(0)
}

func (m *MockWalletRepository) CreditBalance(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) TotalDeposited(ctx context.Context, q repository.DBExecutor, accountID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, q, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTaskRepository is a mock implementation of repository.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) GetState(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.DailyTaskState, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyTaskState), args.Error(1)
}

func (m *MockTaskRepository) GetStateForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.DailyTaskState, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyTaskState), args.Error(1)
}

func (m *MockTaskRepository) UpsertState(ctx context.Context, q repository.DBExecutor, state *domain.DailyTaskState) error {
	args := m.Called(ctx, q, state)
	return args.Error(0)
}

func (m *MockTaskRepository) CreateTaskCredit(ctx context.Context, q repository.DBExecutor, credit *domain.TaskCredit) error {
	args := m.Called(ctx, q, credit)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTaskCredit(ctx context.Context, q repository.DBExecutor, accountID int64, windowStart time.Time, taskIndex int) (*domain.TaskCredit, error) {
	args := m.Called(ctx, q, accountID, windowStart, taskIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskCredit), args.Error(1)
}

// MockCommissionRepository is a mock implementation of repository.CommissionRepository.
type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) CreateCommissionRecord(ctx context.Context, q repository.DBExecutor, record *domain.CommissionRecord) error {
	args := m.Called(ctx, q, record)
	return args.Error(0)
}

func (m *MockCommissionRepository) SumByBeneficiary(ctx context.Context, q repository.DBExecutor, beneficiaryID int64, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, q, beneficiaryID, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCommissionRepository) ListByBeneficiary(ctx context.Context, q repository.DBExecutor, beneficiaryID int64, limit, offset int) ([]domain.CommissionRecord, int64, error) {
	args := m.Called(ctx, q, beneficiaryID, limit, offset)
	return args.Get(0).([]domain.CommissionRecord), args.Get(1).(int64), args.Error(2)
}

// MockInvestmentRepository is a mock implementation of repository.InvestmentRepository.
type MockInvestmentRepository struct {
	mock.Mock
}

func (m *MockInvestmentRepository) CreateInvestment(ctx context.Context, q repository.DBExecutor, inv *domain.Investment) error {
	args := m.Called(ctx, q, inv)
	return args.Error(0)
}

func (m *MockInvestmentRepository) GetInvestmentForUpdate(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Investment, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) ListByAccount(ctx context.Context, q repository.DBExecutor, accountID int64) ([]domain.Investment, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) ListActiveForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) ([]domain.Investment, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) UpdateInvestment(ctx context.Context, q repository.DBExecutor, inv *domain.Investment) error {
	args := m.Called(ctx, q, inv)
	return args.Error(0)
}

// MockSpinRepository is a mock implementation of repository.SpinRepository.
type MockSpinRepository struct {
	mock.Mock
}

func (m *MockSpinRepository) Get(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.SpinRecord, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SpinRecord), args.Error(1)
}

func (m *MockSpinRepository) GetForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.SpinRecord, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SpinRecord), args.Error(1)
}

func (m *MockSpinRepository) Upsert(ctx context.Context, q repository.DBExecutor, record *domain.SpinRecord) error {
	args := m.Called(ctx, q, record)
	return args.Error(0)
}

// MockWithdrawalRepository is a mock implementation of repository.WithdrawalRepository.
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) CreateRequest(ctx context.Context, q repository.DBExecutor, req *domain.WithdrawalRequest) error {
	args := m.Called(ctx, q, req)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetRequestForUpdate(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) HasPending(ctx context.Context, q repository.DBExecutor, accountID int64) (bool, error) {
	args := m.Called(ctx, q, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepository) UpdateStatus(ctx context.Context, q repository.DBExecutor, req *domain.WithdrawalRequest) error {
	args := m.Called(ctx, q, req)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) ListByAccount(ctx context.Context, q repository.DBExecutor, accountID int64, limit, offset int) ([]domain.WithdrawalRequest, int64, error) {
	args := m.Called(ctx, q, accountID, limit, offset)
	return args.Get(0).([]domain.WithdrawalRequest), args.Get(1).(int64), args.Error(2)
}

// MockMembershipEngine is a mock implementation of MembershipEngine.
type MockMembershipEngine struct {
	mock.Mock
}

func (m *MockMembershipEngine) TierOf(account *domain.Account) domain.Tier {
	args := m.Called(account)
	return args.Get(0).(domain.Tier)
}

func (m *MockMembershipEngine) RateBand(tier domain.Tier) (decimal.Decimal, decimal.Decimal) {
	args := m.Called(tier)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal)
}

func (m *MockMembershipEngine) TaskQuota(tier domain.Tier) int {
	args := m.Called(tier)
	return args.Int(0)
}

func (m *MockMembershipEngine) PromotersRequired(tier domain.Tier) int {
	args := m.Called(tier)
	return args.Int(0)
}

func (m *MockMembershipEngine) MinUnlockAmount(tier domain.Tier) decimal.Decimal {
	args := m.Called(tier)
	return args.Get(0).(decimal.Decimal)
}

func (m *MockMembershipEngine) EvaluateUpgrade(ctx context.Context, q repository.DBExecutor, account *domain.Account) (domain.Tier, error) {
	args := m.Called(ctx, q, account)
	return args.Get(0).(domain.Tier), args.Error(1)
}

// MockReferralEngine is a mock implementation of ReferralCommissionEngine.
type MockReferralEngine struct {
	mock.Mock
}

func (m *MockReferralEngine) Propagate(ctx context.Context, q repository.DBExecutor, source *domain.Account, event domain.EventType, baseAmount decimal.Decimal, currency string) ([]domain.CommissionRecord, error) {
	args := m.Called(ctx, q, source, event, baseAmount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CommissionRecord), args.Error(1)
}
