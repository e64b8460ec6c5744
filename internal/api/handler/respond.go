// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"accrual-engine/internal/util"
)

// DefaultTimeout bounds request handling at the router level.
const DefaultTimeout = 30 * time.Second

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps service sentinels onto HTTP status codes. User-facing
// engine errors surface verbatim; anything unmapped logs and returns 500.
func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrBelowMinimum),
		util.IsError(err, util.ErrAboveMaximum),
		util.IsError(err, util.ErrExceedsAvailable):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound),
		util.IsError(err, util.ErrAccountNotFound),
		util.IsError(err, util.ErrWalletNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired
		message = "Insufficient funds"
	case util.IsError(err, util.ErrQuotaExhausted),
		util.IsError(err, util.ErrNotEligible):
		statusCode = http.StatusTooManyRequests
		message = err.Error()
	case util.IsError(err, util.ErrPendingWithdrawalExists),
		util.IsError(err, util.ErrDuplicateEntry),
		util.IsError(err, util.ErrConcurrencyConflict):
		statusCode = http.StatusConflict
		message = err.Error()
	case util.IsError(err, util.ErrUnauthorized):
		statusCode = http.StatusForbidden
		message = "Not authorized"
	default:
		logger.Error("Unhandled service error", "error", err)
	}

	respondWithJSON(w, logger, statusCode, map[string]string{"error": message})
}

// accountIDParam parses the {accountID} URL parameter.
func accountIDParam(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "accountID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, util.ErrInvalidInput
	}
	return id, nil
}

// callerIDHeader reads the authenticated caller from X-Account-ID. The
// identity provider in front of this service is trusted to set it.
func callerIDHeader(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.Header.Get("X-Account-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.ErrUnauthorized
	}
	return id, nil
}

// pagination reads limit/offset query parameters with defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err = strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
