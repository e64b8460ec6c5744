// internal/api/handler/account.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/api/types"
	"accrual-engine/internal/domain"
	"accrual-engine/internal/service"
	"accrual-engine/internal/util"
)

// AccountHandler handles registration, deposit confirmation, and wallet reads.
type AccountHandler struct {
	service service.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// RegisterRequest represents the request body for account registration.
type RegisterRequest struct {
	Username   string `json:"username"`
	ReferredBy *int64 `json:"referred_by"`
}

// Register handles account creation.
// POST /accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.Username == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	account, wallet, err := h.service.Register(r.Context(), req.Username, req.ReferredBy)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"account": account,
		"wallet":  wallet,
	})
}

// GetWallet handles wallet balance reads.
// GET /accounts/{accountID}/wallets/{currency}
func (h *AccountHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	currency := chi.URLParam(r, "currency")
	if currency == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), accountID, currency)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, wallet)
}

// GetCommissions handles commission history reads.
// GET /accounts/{accountID}/commissions
func (h *AccountHandler) GetCommissions(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	limit, offset := pagination(r)

	records, totalCount, err := h.service.GetCommissionHistory(r.Context(), accountID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.CommissionRecord]{
		Data:       records,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// ConfirmDepositRequest represents the request body for deposit confirmation.
type ConfirmDepositRequest struct {
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// ConfirmDeposit handles the admin-side deposit confirmation.
// POST /admin/deposits
func (h *AccountHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	callerID, err := callerIDHeader(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req ConfirmDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.AccountID <= 0 || req.Amount.IsNegative() || req.Amount.IsZero() || req.Currency == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	wallet, err := h.service.ConfirmDeposit(r.Context(), callerID, req.AccountID, req.Amount, req.Currency)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":     "Deposit confirmed",
		"account_id":  req.AccountID,
		"new_balance": wallet.Balance,
	})
}
