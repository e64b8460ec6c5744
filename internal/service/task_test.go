// internal/service/task_test.go
package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accrual-engine/internal/domain"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/util"
)

// memStore backs the in-memory fakes below. The fakes exist for the paths
// where expectation mocks are awkward: concurrent callers and idempotent
// replays need real shared state.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*domain.Account
	wallets  map[int64]*domain.Wallet
	states   map[int64]*domain.DailyTaskState
	credits  map[string]*domain.TaskCredit
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]*domain.Account{},
		wallets:  map[int64]*domain.Wallet{},
		states:   map[int64]*domain.DailyTaskState{},
		credits:  map[string]*domain.TaskCredit{},
	}
}

func creditKey(accountID int64, windowStart time.Time, taskIndex int) string {
	return fmt.Sprintf("%d|%d|%d", accountID, windowStart.UnixNano(), taskIndex)
}

type fakeAccountRepo struct{ store *memStore }

func (r *fakeAccountRepo) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	account.ID = int64(len(r.store.accounts) + 1)
	cp := *account
	r.store.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetAccountByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) GetAccountByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, util.ErrNotFound
}

func (r *fakeAccountRepo) UpdateMembershipTier(ctx context.Context, q repository.DBExecutor, accountID int64, tier domain.Tier) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if a, ok := r.store.accounts[accountID]; ok {
		a.MembershipTier = tier
	}
	return nil
}

func (r *fakeAccountRepo) CountQualifiedReferrals(ctx context.Context, q repository.DBExecutor, accountID int64) (int, error) {
	return 0, nil
}

type fakeWalletRepo struct{ store *memStore }

func (r *fakeWalletRepo) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wallet.ID = int64(len(r.store.wallets) + 1)
	cp := *wallet
	r.store.wallets[wallet.AccountID] = &cp
	return nil
}

func (r *fakeWalletRepo) get(accountID int64) (*domain.Wallet, error) {
	w, ok := r.store.wallets[accountID]
	if !ok {
		return nil, util.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) GetWallet(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.get(accountID)
}

func (r *fakeWalletRepo) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.get(accountID)
}

func (r *fakeWalletRepo) EnsureWallet(ctx context.Context, q repository.DBExecutor, accountID int64, currency string) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.wallets[accountID]; !ok {
		w := domain.NewWallet(accountID, currency)
		w.ID = int64(len(r.store.wallets) + 1)
		r.store.wallets[accountID] = w
	}
	return r.get(accountID)
}

func (r *fakeWalletRepo) apply(walletID int64, fn func(w *domain.Wallet)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.wallets {
		if w.ID == walletID {
			fn(w)
			return nil
		}
	}
	return util.ErrWalletNotFound
}

func (r *fakeWalletRepo) ApplyDeposit(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.Balance = w.Balance.Add(amount)
		w.TotalDeposited = w.TotalDeposited.Add(amount)
	})
}

func (r *fakeWalletRepo) ApplyProfit(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.Balance = w.Balance.Add(amount)
		w.TotalProfit = w.TotalProfit.Add(amount)
	})
}

func (r *fakeWalletRepo) ApplyCommission(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.Balance = w.Balance.Add(amount)
		w.TotalReferralEarnings = w.TotalReferralEarnings.Add(amount)
	})
}

func (r *fakeWalletRepo) ApplyBonus(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.BonusBalance = w.BonusBalance.Add(amount)
	})
}

func (r *fakeWalletRepo) ApplyWithdrawal(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.Balance = w.Balance.Sub(amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	})
}

func (r *fakeWalletRepo) DebitForInvestment(ctx context.Context, q repository.DBExecutor, walletID int64, fromBalance, fromBonus decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.Balance = w.Balance.Sub(fromBalance)
		w.BonusBalance = w.BonusBalance.Sub(fromBonus)
	})
}

func (r *fakeWalletRepo) CreditBalance(ctx context.Context, q repository.DBExecutor, walletID int64, amount decimal.Decimal) error {
	return r.apply(walletID, func(w *domain.Wallet) {
		w.Balance = w.Balance.Add(amount)
	})
}

func (r *fakeWalletRepo) TotalDeposited(ctx context.Context, q repository.DBExecutor, accountID int64) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if w, ok := r.store.wallets[accountID]; ok {
		return w.TotalDeposited, nil
	}
	return decimal.Zero, nil
}

type fakeTaskRepo struct {
	store *memStore
	// lockedReads counts GetStateForUpdate calls so tests can tell the
	// locking and non-locking read paths apart.
	lockedReads int
}

func (r *fakeTaskRepo) getState(accountID int64) (*domain.DailyTaskState, error) {
	s, ok := r.store.states[accountID]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeTaskRepo) GetState(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.DailyTaskState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.getState(accountID)
}

func (r *fakeTaskRepo) GetStateForUpdate(ctx context.Context, q repository.DBExecutor, accountID int64) (*domain.DailyTaskState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.lockedReads++
	return r.getState(accountID)
}

func (r *fakeTaskRepo) UpsertState(ctx context.Context, q repository.DBExecutor, state *domain.DailyTaskState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *state
	r.store.states[state.AccountID] = &cp
	return nil
}

func (r *fakeTaskRepo) CreateTaskCredit(ctx context.Context, q repository.DBExecutor, credit *domain.TaskCredit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := creditKey(credit.AccountID, credit.WindowStart, credit.TaskIndex)
	if _, exists := r.store.credits[key]; exists {
		return &pq.Error{Code: "23505"}
	}
	cp := *credit
	r.store.credits[key] = &cp
	return nil
}

func (r *fakeTaskRepo) GetTaskCredit(ctx context.Context, q repository.DBExecutor, accountID int64, windowStart time.Time, taskIndex int) (*domain.TaskCredit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.credits[creditKey(accountID, windowStart, taskIndex)]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// fakeCommissionRepo collects commission records in memory.
type fakeCommissionRepo struct {
	mu      sync.Mutex
	records []domain.CommissionRecord
}

func (r *fakeCommissionRepo) CreateCommissionRecord(ctx context.Context, q repository.DBExecutor, record *domain.CommissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeCommissionRepo) SumByBeneficiary(ctx context.Context, q repository.DBExecutor, beneficiaryID int64, currency string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, rec := range r.records {
		if rec.BeneficiaryID == beneficiaryID && rec.Currency == currency {
			total = total.Add(rec.Amount)
		}
	}
	return total, nil
}

func (r *fakeCommissionRepo) ListByBeneficiary(ctx context.Context, q repository.DBExecutor, beneficiaryID int64, limit, offset int) ([]domain.CommissionRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := []domain.CommissionRecord{}
	for _, rec := range r.records {
		if rec.BeneficiaryID == beneficiaryID {
			records = append(records, rec)
		}
	}
	return records, int64(len(records)), nil
}

// taskFixture wires a DailyTaskAccrual over the in-memory store with one
// base-tier account holding a 1000 USDT balance.
type taskFixture struct {
	store   *memStore
	tasks   *fakeTaskRepo
	engine  DailyTaskAccrual
	account *domain.Account
	now     time.Time
}

func newTaskFixture(t *testing.T, rng Rand) *taskFixture {
	t.Helper()
	store := newMemStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	accountRepo := &fakeAccountRepo{store}
	walletRepo := &fakeWalletRepo{store}
	taskRepo := &fakeTaskRepo{store: store}

	ctx := context.Background()
	account := domain.NewAccount("worker", nil)
	require.NoError(t, accountRepo.CreateAccount(ctx, nil, account))
	wallet := domain.NewWallet(account.ID, "USDT")
	wallet.Balance = decimal.NewFromInt(1000)
	require.NoError(t, walletRepo.CreateWallet(ctx, nil, wallet))

	membership := NewMembershipEngine(testTiers(), accountRepo, walletRepo, testLogger())
	referral := NewReferralCommissionEngine(tableRates{}, 3, accountRepo, walletRepo, new(MockCommissionRepository), testLogger())

	engine := NewDailyTaskAccrual(
		newTestTxRunner(new(MockDBExecutor)),
		new(MockDBExecutor),
		accountRepo,
		walletRepo,
		taskRepo,
		membership,
		referral,
		NewAccountLocker(),
		rng,
		24*time.Hour,
		"USDT",
		fixedNow(now),
		testLogger(),
	)
	return &taskFixture{store: store, tasks: taskRepo, engine: engine, account: account, now: now}
}

func TestCompleteTaskRewardWithinBand(t *testing.T) {
	ctx := context.Background()

	t.Run("LowestDraw", func(t *testing.T) {
		f := newTaskFixture(t, fixedRand{0})

		reward, err := f.engine.CompleteTask(ctx, f.account.ID)

		require.NoError(t, err)
		assert.Equal(t, 1, reward.TasksCompleted)
		assert.Equal(t, 3, reward.Quota)
		assert.False(t, reward.Replayed)
		// 2.5% of the 1000 balance.
		assert.True(t, reward.Credit.Amount.Equal(decimal.NewFromInt(25)), "got %s", reward.Credit.Amount)

		wallet := f.store.wallets[f.account.ID]
		assert.True(t, wallet.TotalProfit.Equal(decimal.NewFromInt(25)))
		assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(1025)))
	})

	t.Run("MidBandDraw", func(t *testing.T) {
		f := newTaskFixture(t, fixedRand{0.5})

		reward, err := f.engine.CompleteTask(ctx, f.account.ID)

		require.NoError(t, err)
		// 2.5 + (4.5-2.5)*0.5 = 3.5 percent of 1000.
		assert.True(t, reward.Credit.Amount.Equal(decimal.NewFromInt(35)), "got %s", reward.Credit.Amount)
	})
}

func TestCompleteTaskPaysUplineCommission(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	accountRepo := &fakeAccountRepo{store}
	walletRepo := &fakeWalletRepo{store}
	taskRepo := &fakeTaskRepo{store: store}
	commissionRepo := &fakeCommissionRepo{}

	promoter := domain.NewAccount("promoter", nil)
	require.NoError(t, accountRepo.CreateAccount(ctx, nil, promoter))
	require.NoError(t, walletRepo.CreateWallet(ctx, nil, domain.NewWallet(promoter.ID, "USDT")))

	worker := domain.NewAccount("worker", &promoter.ID)
	require.NoError(t, accountRepo.CreateAccount(ctx, nil, worker))
	wallet := domain.NewWallet(worker.ID, "USDT")
	wallet.Balance = decimal.NewFromInt(1000)
	require.NoError(t, walletRepo.CreateWallet(ctx, nil, wallet))

	membership := NewMembershipEngine(testTiers(), accountRepo, walletRepo, testLogger())
	referral := NewReferralCommissionEngine(tableRates{1: "5"}, 3, accountRepo, walletRepo, commissionRepo, testLogger())
	engine := NewDailyTaskAccrual(
		newTestTxRunner(new(MockDBExecutor)),
		new(MockDBExecutor),
		accountRepo,
		walletRepo,
		taskRepo,
		membership,
		referral,
		NewAccountLocker(),
		fixedRand{0},
		24*time.Hour,
		"USDT",
		fixedNow(now),
		testLogger(),
	)

	reward, err := engine.CompleteTask(ctx, worker.ID)

	require.NoError(t, err)
	assert.True(t, reward.Credit.Amount.Equal(decimal.NewFromInt(25)), "got %s", reward.Credit.Amount)

	// Exactly one level-1 record for 5% of the reward.
	require.Len(t, commissionRepo.records, 1)
	record := commissionRepo.records[0]
	assert.Equal(t, promoter.ID, record.BeneficiaryID)
	assert.Equal(t, worker.ID, record.SourceAccountID)
	assert.Equal(t, 1, record.Level)
	assert.Equal(t, domain.EventTypeTask, record.EventType)
	assert.True(t, record.Amount.Equal(decimal.RequireFromString("1.25")), "got %s", record.Amount)

	// The wallet accumulator reconciles against the ledger.
	recorded, err := commissionRepo.SumByBeneficiary(ctx, nil, promoter.ID, "USDT")
	require.NoError(t, err)
	upline := store.wallets[promoter.ID]
	assert.True(t, upline.TotalReferralEarnings.Equal(recorded))
	assert.True(t, upline.Balance.Equal(recorded))
}

func TestCompleteTaskQuota(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t, fixedRand{0})

	for i := 1; i <= 3; i++ {
		reward, err := f.engine.CompleteTask(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, i, reward.TasksCompleted)
	}

	reward, err := f.engine.CompleteTask(ctx, f.account.ID)
	assert.ErrorIs(t, err, util.ErrQuotaExhausted)
	assert.Nil(t, reward)

	// Exactly quota credits in the ledger.
	assert.Len(t, f.store.credits, 3)
}

func TestCompleteTaskWindowRollsLazily(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t, fixedRand{0})

	// Quota fully used in a window that ended an hour ago.
	staleStart := f.now.Add(-25 * time.Hour)
	f.store.states[f.account.ID] = &domain.DailyTaskState{
		AccountID:             f.account.ID,
		WindowStart:           staleStart,
		TasksCompleted:        3,
		TotalRewardThisWindow: decimal.NewFromInt(75),
	}

	reward, err := f.engine.CompleteTask(ctx, f.account.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, reward.TasksCompleted)
	assert.Equal(t, f.now, reward.Credit.WindowStart)

	state := f.store.states[f.account.ID]
	assert.Equal(t, f.now, state.WindowStart)
	assert.Equal(t, 1, state.TasksCompleted)
	assert.True(t, state.TotalRewardThisWindow.Equal(decimal.NewFromInt(25)))
}

func TestCompleteTaskReplayYieldsSingleCredit(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t, fixedRand{0})

	// A prior attempt committed the credit but its caller never saw the
	// response; the task state still says zero tasks done.
	committed := domain.NewTaskCredit(f.account.ID, f.now, 1, decimal.NewFromInt(25), "USDT")
	f.store.credits[creditKey(f.account.ID, f.now, 1)] = committed
	f.store.states[f.account.ID] = domain.NewDailyTaskState(f.account.ID, f.now)

	reward, err := f.engine.CompleteTask(ctx, f.account.ID)

	require.NoError(t, err)
	assert.True(t, reward.Replayed)
	assert.Equal(t, committed.ID, reward.Credit.ID)
	assert.Len(t, f.store.credits, 1)
	// The replay path never credits the wallet a second time.
	wallet := f.store.wallets[f.account.ID]
	assert.True(t, wallet.TotalProfit.IsZero())
}

func TestCompleteTaskConcurrentCallersRespectQuota(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t, fixedRand{0})

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CompleteTask(ctx, f.account.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, exhausted int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case util.IsError(err, util.ErrQuotaExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 3, successes)
	assert.Equal(t, callers-3, exhausted)
	assert.Len(t, f.store.credits, 3)
	assert.Equal(t, 3, f.store.states[f.account.ID].TasksCompleted)

	// Wallet profit equals the sum of the settled credits.
	total := decimal.Zero
	for _, c := range f.store.credits {
		total = total.Add(c.Amount)
	}
	assert.True(t, f.store.wallets[f.account.ID].TotalProfit.Equal(total))
}

func TestRemainingTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("FreshAccountGetsFullQuota", func(t *testing.T) {
		f := newTaskFixture(t, fixedRand{0})

		remaining, err := f.engine.RemainingTasks(ctx, f.account.ID)

		require.NoError(t, err)
		assert.Equal(t, 3, remaining)
	})

	t.Run("CountsDownWithinTheWindow", func(t *testing.T) {
		f := newTaskFixture(t, fixedRand{0})
		_, err := f.engine.CompleteTask(ctx, f.account.ID)
		require.NoError(t, err)

		remaining, err := f.engine.RemainingTasks(ctx, f.account.ID)

		require.NoError(t, err)
		assert.Equal(t, 2, remaining)
	})

	t.Run("ExpiredWindowReadsAsFull", func(t *testing.T) {
		f := newTaskFixture(t, fixedRand{0})
		f.store.states[f.account.ID] = &domain.DailyTaskState{
			AccountID:      f.account.ID,
			WindowStart:    f.now.Add(-24 * time.Hour),
			TasksCompleted: 3,
		}

		remaining, err := f.engine.RemainingTasks(ctx, f.account.ID)

		require.NoError(t, err)
		assert.Equal(t, 3, remaining)
	})

	t.Run("ReadsWithoutTakingTheRowLock", func(t *testing.T) {
		f := newTaskFixture(t, fixedRand{0})
		_, err := f.engine.CompleteTask(ctx, f.account.ID)
		require.NoError(t, err)
		lockedBefore := f.tasks.lockedReads

		_, err = f.engine.RemainingTasks(ctx, f.account.ID)

		require.NoError(t, err)
		assert.Equal(t, lockedBefore, f.tasks.lockedReads)
	})
}
