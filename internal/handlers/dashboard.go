package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
	"nutritrack/internal/stats"
	"nutritrack/internal/streak"
)

type DashboardHandler struct {
	logs   HabitLogRepository
	clock  datekey.Clock
	logger *zap.Logger
}

func NewDashboardHandler(logs HabitLogRepository, clock datekey.Clock, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{logs: logs, clock: clock, logger: logger}
}

type habitStatsResponse struct {
	HabitID       int           `json:"habit_id"`
	ReferenceDate datekey.Date  `json:"reference_date"`
	Streak        models.Streak `json:"streak"`
	stats.Summary
}

// HabitStats derives streak and completion figures from the habit's full log history.
// Accepts optional query param: local_date=YYYY-MM-DD to use as the user's "today".
func (h *DashboardHandler) HabitStats(w http.ResponseWriter, r *http.Request) {
	habitID, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	ref, err := queryDate(r, "local_date")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if ref == nil {
		today := datekey.Today(h.clock)
		ref = &today
	}

	logs, err := h.logs.AllLogs(r.Context(), userID(r), habitID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, habitStatsResponse{
		HabitID:       habitID,
		ReferenceDate: *ref,
		Streak:        streak.Calculate(logs),
		Summary:       stats.Summarize(logs, *ref),
	})
}
