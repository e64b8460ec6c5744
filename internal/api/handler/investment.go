// internal/api/handler/investment.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/service"
	"accrual-engine/internal/util"
)

// InvestmentHandler handles investment positions and compound projections.
type InvestmentHandler struct {
	service   service.InvestmentEngine
	accounts  service.AccountService
	projector *service.CompoundProjector
	logger    *slog.Logger
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(svc service.InvestmentEngine, accounts service.AccountService, projector *service.CompoundProjector, logger *slog.Logger) *InvestmentHandler {
	return &InvestmentHandler{service: svc, accounts: accounts, projector: projector, logger: logger}
}

// OpenInvestmentRequest represents the request body for opening a position.
type OpenInvestmentRequest struct {
	Principal decimal.Decimal `json:"principal"`
	Currency  string          `json:"currency"`
	DailyRate decimal.Decimal `json:"daily_rate"`
	Days      int             `json:"days"`
}

// Open handles opening a position.
// POST /accounts/{accountID}/investments
func (h *InvestmentHandler) Open(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req OpenInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	investment, err := h.service.OpenInvestment(r.Context(), accountID, req.Principal, req.Currency, req.DailyRate, req.Days)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, investment)
}

// Cancel handles early cancellation.
// POST /accounts/{accountID}/investments/{investmentID}/cancel
func (h *InvestmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	investmentID, err := uuid.Parse(chi.URLParam(r, "investmentID"))
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	investment, err := h.service.CancelInvestment(r.Context(), accountID, investmentID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, investment)
}

// List handles listing positions (settling lazy accrual first).
// GET /accounts/{accountID}/investments
func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	investments, err := h.service.ListInvestments(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"data": investments,
	})
}

// Projection handles display-only compound projections. The result is an
// estimate, rounded to 8 fractional digits only at this presentation edge.
// GET /accounts/{accountID}/projection?principal=&rate=&days=
func (h *InvestmentHandler) Projection(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	principal, err := decimal.NewFromString(r.URL.Query().Get("principal"))
	if err != nil || principal.IsNegative() {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	rate, err := decimal.NewFromString(r.URL.Query().Get("rate"))
	if err != nil || rate.IsNegative() {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days < 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	futureValue := h.projector.ProjectFutureValue(principal, rate, days)

	currency := r.URL.Query().Get("currency")
	response := map[string]interface{}{
		"account_id":   accountID,
		"principal":    principal,
		"daily_rate":   rate,
		"days":         days,
		"future_value": futureValue.Round(8),
	}
	if currency != "" {
		if wallet, err := h.accounts.GetWallet(r.Context(), accountID, currency); err == nil {
			response["total_interest_earned"] = h.projector.TotalInterestEarned(wallet)
		}
	}

	respondWithJSON(w, h.logger, http.StatusOK, response)
}
