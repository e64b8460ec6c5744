// internal/api/handler/task.go
package handler

import (
	"log/slog"
	"net/http"

	"accrual-engine/internal/service"
)

// TaskHandler handles daily task requests.
type TaskHandler struct {
	service service.DailyTaskAccrual
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc service.DailyTaskAccrual, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{service: svc, logger: logger}
}

// Remaining handles the remaining-tasks query.
// GET /accounts/{accountID}/tasks
func (h *TaskHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	remaining, err := h.service.RemainingTasks(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"account_id":      accountID,
		"remaining_tasks": remaining,
	})
}

// Complete handles task completion.
// POST /accounts/{accountID}/tasks/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDParam(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	reward, err := h.service.CompleteTask(r.Context(), accountID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, reward)
}
