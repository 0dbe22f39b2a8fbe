package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

type UserHandler struct {
	users  UserRepository
	goals  GoalRepository
	logger *zap.Logger
}

func NewUserHandler(users UserRepository, goals GoalRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, goals: goals, logger: logger}
}

// GetMe returns the current user's profile with the goal active today, if any.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	u, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var active *models.Goal
	g, err := h.goals.FindActiveGoal(r.Context(), id, nil)
	switch {
	case err == nil:
		active = g
	case !errors.Is(err, store.ErrNotFound):
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ToUserDTO(*u, active))
}
