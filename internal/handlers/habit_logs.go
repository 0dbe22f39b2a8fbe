package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

type HabitLogRepository interface {
	UpsertLog(ctx context.Context, owner, habitID int, in store.LogInput) (*models.HabitLog, bool, error)
	QueryLogs(ctx context.Context, owner, habitID int, q store.LogQuery) ([]models.HabitLog, error)
	AllLogs(ctx context.Context, owner, habitID int) ([]models.HabitLog, error)
	DeleteLog(ctx context.Context, owner, habitID, logID int) error
}

type HabitLogHandler struct {
	logs   HabitLogRepository
	logger *zap.Logger
}

func NewHabitLogHandler(logs HabitLogRepository, logger *zap.Logger) *HabitLogHandler {
	return &HabitLogHandler{logs: logs, logger: logger}
}

// Both dates are YYYY-MM-DD in the user's local calendar; local_date is their today.
type logRequest struct {
	LogDate   datekey.Date  `json:"log_date"`
	Completed bool          `json:"completed"`
	Count     *int          `json:"count"`
	LocalDate *datekey.Date `json:"local_date"`
}

type logResponse struct {
	*models.HabitLog
	IsUpdate bool `json:"is_update"`
}

// Upsert records the habit for log_date, overwriting any earlier log for that day.
func (h *HabitLogHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	habitID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}

	log, inserted, err := h.logs.UpsertLog(r.Context(), userID(r), habitID, store.LogInput{
		LogDate:    req.LogDate,
		Completed:  req.Completed,
		Count:      req.Count,
		LocalToday: nonZero(req.LocalDate),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, logResponse{HabitLog: log, IsUpdate: !inserted})
}

// List accepts optional from/to (YYYY-MM-DD), limit and offset.
func (h *HabitLogHandler) List(w http.ResponseWriter, r *http.Request) {
	habitID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	page, err := queryPage(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	logs, err := h.logs.QueryLogs(r.Context(), userID(r), habitID, store.LogQuery{Range: rng, Page: page})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *HabitLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	habitID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	logID, ok := pathID(r, "logID")
	if !ok {
		badRequest(w, "invalid log id")
		return
	}
	if err := h.logs.DeleteLog(r.Context(), userID(r), habitID, logID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
