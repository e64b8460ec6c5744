// internal/api/handler/withdrawal.go
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"accrual-engine/internal/api/types"
	"accrual-engine/internal/domain"
	"accrual-engine/internal/service"
	"accrual-engine/internal/util"
)

// WithdrawalHandler handles withdrawal requests and the administrative
// approval surface.
type WithdrawalHandler struct {
	service service.WithdrawalGate
	logger  *slog.Logger
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(svc service.WithdrawalGate, logger *slog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{service: svc, logger: logger}
}

// Available handles the withdrawable-amount query.
// GET /accounts/{accountID}/withdrawals/available
func (h *WithdrawalHandler) Available(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	available, err := h.service.AvailableForWithdrawal(r.Context(), accountID, currency)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"currency":   currency,
		"available":  available,
	})
}

// WithdrawalRequestBody represents the request body for a withdrawal.
type WithdrawalRequestBody struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Destination string          `json:"destination"`
}

// Request handles creating a withdrawal request.
// POST /accounts/{accountID}/withdrawals
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req WithdrawalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() || req.Currency == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	request, err := h.service.RequestWithdrawal(r.Context(), accountID, req.Amount, req.Currency, req.Destination)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, request)
}

// List handles withdrawal history reads.
// GET /accounts/{accountID}/withdrawals
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	limit, offset := pagination(r)

	requests, totalCount, err := h.service.ListWithdrawals(r.Context(), accountID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.WithdrawalRequest]{
		Data:       requests,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// Approve handles administrative approval.
// POST /admin/withdrawals/{requestID}/approve
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.ApproveWithdrawal)
}

// Reject handles administrative rejection.
// POST /admin/withdrawals/{requestID}/reject
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.RejectWithdrawal)
}

func (h *WithdrawalHandler) decide(w http.ResponseWriter, r *http.Request, decideFn func(ctx context.Context, callerID int64, requestID uuid.UUID) (*domain.WithdrawalRequest, error)) {
	callerID, err := callerIDHeader(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	request, err := decideFn(r.Context(), callerID, requestID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, request)
}
