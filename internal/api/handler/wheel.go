// internal/api/handler/wheel.go
package handler

import (
	"log/slog"
	"net/http"

	"accrual-engine/internal/service"
)

// WheelHandler handles reward wheel requests.
type WheelHandler struct {
	service service.RewardWheelEngine
	logger  *slog.Logger
}

// NewWheelHandler creates a new WheelHandler.
func NewWheelHandler(svc service.RewardWheelEngine, logger *slog.Logger) *WheelHandler {
	return &WheelHandler{service: svc, logger: logger}
}

// Eligibility handles the eligibility query.
// GET /accounts/{accountID}/wheel
func (h *WheelHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	eligible, nextAt, err := h.service.CanSpin(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"account_id":       accountID,
		"can_spin":         eligible,
		"next_eligible_at": nextAt,
	})
}

// Spin handles a spin request.
// POST /accounts/{accountID}/wheel/spin
func (h *WheelHandler) Spin(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	prize, err := h.service.Spin(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message": "Spin successful",
		"prize":   prize,
	})
}
