package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

type GoalRepository interface {
	CreateGoal(ctx context.Context, owner int, in store.NewGoal) (*models.Goal, error)
	FindActiveGoal(ctx context.Context, owner int, asOf *datekey.Date) (*models.Goal, error)
	FindGoalHistory(ctx context.Context, owner int, q store.GoalHistoryQuery) ([]models.Goal, error)
	GetGoal(ctx context.Context, owner, id int) (*models.Goal, error)
}

type GoalHandler struct {
	goals  GoalRepository
	logger *zap.Logger
}

func NewGoalHandler(goals GoalRepository, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{goals: goals, logger: logger}
}

type goalRequest struct {
	TargetProtein decimal.Decimal `json:"target_protein"`
	StartDate     datekey.Date    `json:"start_date"`
	EndDate       *datekey.Date   `json:"end_date"`
	LocalDate     *datekey.Date   `json:"local_date"` // the user's today, YYYY-MM-DD
}

// Create replaces the user's current goal from start_date onward.
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	req.EndDate = nonZero(req.EndDate)

	g, err := h.goals.CreateGoal(r.Context(), userID(r), store.NewGoal{
		TargetProtein: req.TargetProtein,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		LocalToday:    nonZero(req.LocalDate),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// Active returns the goal in effect on as_of, defaulting to today.
func (h *GoalHandler) Active(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	g, err := h.goals.FindActiveGoal(r.Context(), userID(r), asOf)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *GoalHandler) History(w http.ResponseWriter, r *http.Request) {
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
	goals, err := h.goals.FindGoalHistory(r.Context(), userID(r), store.GoalHistoryQuery{Range: rng, Page: page})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid goal id")
		return
	}
	g, err := h.goals.GetGoal(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
