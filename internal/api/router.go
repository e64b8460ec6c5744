// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accrual-engine/internal/api/handler"
)

// Handlers bundles the per-engine HTTP handlers the router mounts.
type Handlers struct {
	Account    *handler.AccountHandler
	Task       *handler.TaskHandler
	Wheel      *handler.WheelHandler
	Withdrawal *handler.WithdrawalHandler
	Investment *handler.InvestmentHandler
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.Account.Register)
		r.Get("/{accountID}/wallets/{currency}", h.Account.GetWallet)
		r.Get("/{accountID}/commissions", h.Account.GetCommissions)

		r.Get("/{accountID}/tasks", h.Task.Remaining)
		r.Post("/{accountID}/tasks/complete", h.Task.Complete)

		r.Get("/{accountID}/wheel", h.Wheel.Eligibility)
		r.Post("/{accountID}/wheel/spin", h.Wheel.Spin)

		r.Get("/{accountID}/withdrawals/available", h.Withdrawal.Available)
		r.Get("/{accountID}/withdrawals", h.Withdrawal.List)
		r.Post("/{accountID}/withdrawals", h.Withdrawal.Request)

		r.Get("/{accountID}/investments", h.Investment.List)
		r.Post("/{accountID}/investments", h.Investment.Open)
		r.Post("/{accountID}/investments/{investmentID}/cancel", h.Investment.Cancel)
		r.Get("/{accountID}/projection", h.Investment.Projection)
	})

	// Administrative approval surface: the only callers allowed here hold the
	// admin role, enforced inside the services.
	r.Route("/admin", func(r chi.Router) {
		r.Post("/deposits", h.Account.ConfirmDeposit)
		r.Post("/withdrawals/{requestID}/approve", h.Withdrawal.Approve)
		r.Post("/withdrawals/{requestID}/reject", h.Withdrawal.Reject)
	})

	return r
}
