// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "accrual-engine/internal/api"
	"accrual-engine/internal/api/handler"
	"accrual-engine/internal/config"
	"accrual-engine/internal/repository"
	"accrual-engine/internal/repository/postgres"
	"accrual-engine/internal/service"
	"accrual-engine/internal/util"
	"accrual-engine/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	AccountRepository    repository.AccountRepository
	WalletRepository     repository.WalletRepository
	TaskRepository       repository.TaskRepository
	CommissionRepository repository.CommissionRepository
	InvestmentRepository repository.InvestmentRepository
	SpinRepository       repository.SpinRepository
	WithdrawalRepository repository.WithdrawalRepository

	// Engines
	MembershipEngine service.MembershipEngine
	ReferralEngine   service.ReferralCommissionEngine
	TaskAccrual      service.DailyTaskAccrual
	WheelEngine      service.RewardWheelEngine
	WithdrawalGate   service.WithdrawalGate
	InvestmentEngine service.InvestmentEngine
	AccountService   service.AccountService
	Projector        *service.CompoundProjector

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()

	// 2. Load Configuration. A configuration error (bad tier table, prize
	// weights not summing to 100) aborts startup here.
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if err := db.EnsureSchema(ctx, app.DB); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}
	app.Logger.Info("Database schema verified.")

	// 4. Initialize Repositories
	app.AccountRepository = postgres.NewAccountRepository(app.DB)
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.TaskRepository = postgres.NewTaskRepository(app.DB)
	app.CommissionRepository = postgres.NewCommissionRepository(app.DB)
	app.InvestmentRepository = postgres.NewInvestmentRepository(app.DB)
	app.SpinRepository = postgres.NewSpinRepository(app.DB)
	app.WithdrawalRepository = postgres.NewWithdrawalRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Engines
	txRunner := service.NewTxRunner(app.DB, db.BeginTx, db.CommitTx, db.RollbackTx, cfg.MaxTxAttempts)
	locks := service.NewAccountLocker()
	rng := service.NewTimeSeededRand()

	app.MembershipEngine = service.NewMembershipEngine(cfg.Tiers, app.AccountRepository, app.WalletRepository, app.Logger)
	app.ReferralEngine = service.NewReferralCommissionEngine(cfg, cfg.MaxReferralDepth,
		app.AccountRepository, app.WalletRepository, app.CommissionRepository, app.Logger)
	app.TaskAccrual = service.NewDailyTaskAccrual(txRunner, app.DB,
		app.AccountRepository, app.WalletRepository, app.TaskRepository,
		app.MembershipEngine, app.ReferralEngine, locks, rng, cfg.TaskWindow, cfg.Currency, nil, app.Logger)
	app.WheelEngine = service.NewRewardWheelEngine(txRunner, app.DB,
		app.WalletRepository, app.SpinRepository,
		cfg.WheelPrizes, cfg.SpinInterval, locks, rng, nil, app.Logger)
	app.WithdrawalGate = service.NewWithdrawalGate(txRunner, app.DB,
		app.AccountRepository, app.WalletRepository, app.WithdrawalRepository,
		cfg.MinWithdrawal, cfg.MaxWithdrawal, locks, nil, app.Logger)
	app.InvestmentEngine = service.NewInvestmentEngine(txRunner, app.DB,
		app.AccountRepository, app.WalletRepository, app.InvestmentRepository,
		app.MembershipEngine, cfg.InvestmentPenalty, locks, nil, app.Logger)
	app.AccountService = service.NewAccountService(txRunner, app.DB,
		app.AccountRepository, app.WalletRepository, app.CommissionRepository,
		app.ReferralEngine, app.MembershipEngine, locks, cfg.Currency, app.Logger)
	app.Projector = service.NewCompoundProjector()
	app.Logger.Info("Engines initialized.")

	// 6. Initialize HTTP Handlers and Router
	app.HTTPHandler = router.NewRouter(router.Handlers{
		Account:    handler.NewAccountHandler(app.AccountService, app.Logger),
		Task:       handler.NewTaskHandler(app.TaskAccrual, app.Logger),
		Wheel:      handler.NewWheelHandler(app.WheelEngine, app.Logger),
		Withdrawal: handler.NewWithdrawalHandler(app.WithdrawalGate, app.Logger),
		Investment: handler.NewInvestmentHandler(app.InvestmentEngine, app.AccountService, app.Projector, app.Logger),
	}, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
