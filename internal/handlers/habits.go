package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

type HabitRepository interface {
	CreateHabit(ctx context.Context, owner int, in store.NewHabit) (*models.Habit, error)
	GetHabit(ctx context.Context, owner, id int) (*models.Habit, error)
	ListHabits(ctx context.Context, owner int, includeArchived bool) ([]models.Habit, error)
	ArchiveHabit(ctx context.Context, owner, id int) error
	DeleteHabit(ctx context.Context, owner, id int) error
}

type HabitHandler struct {
	habits HabitRepository
	logger *zap.Logger
}

func NewHabitHandler(habits HabitRepository, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, logger: logger}
}

type habitRequest struct {
	Title           string `json:"title"`
	TargetFrequency int    `json:"target_frequency"`
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	habit, err := h.habits.CreateHabit(r.Context(), userID(r), store.NewHabit{
		Title:           req.Title,
		TargetFrequency: req.TargetFrequency,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// List hides archived habits unless include_archived=true.
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	habits, err := h.habits.ListHabits(r.Context(), userID(r), includeArchived)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	habit, err := h.habits.GetHabit(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *HabitHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	if err := h.habits.ArchiveHabit(r.Context(), userID(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid habit id")
		return
	}
	if err := h.habits.DeleteHabit(r.Context(), userID(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
