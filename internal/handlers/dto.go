package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
)

// ActiveGoalDTO is the slice of the active goal shown alongside the profile.
type ActiveGoalDTO struct {
	ID            int             `json:"id"`
	TargetProtein decimal.Decimal `json:"target_protein"`
	StartDate     datekey.Date    `json:"start_date"`
	EndDate       *datekey.Date   `json:"end_date,omitempty"`
}

type UserDTO struct {
	ID         int            `json:"id"`
	Email      string         `json:"email"`
	CreatedAt  string         `json:"created_at"`
	ActiveGoal *ActiveGoalDTO `json:"active_goal"`
}

// ToUserDTO converts User and optional Goal to UserDTO
func ToUserDTO(u models.User, g *models.Goal) UserDTO {
	dto := UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if g != nil {
		dto.ActiveGoal = &ActiveGoalDTO{
			ID:            g.ID,
			TargetProtein: g.TargetProtein,
			StartDate:     g.StartDate,
			EndDate:       g.EndDate,
		}
	}
	return dto
}
