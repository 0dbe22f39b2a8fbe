package models

import (
	"time"

	"github.com/shopspring/decimal"

	"nutritrack/internal/datekey"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Goal is a daily protein target effective over [StartDate, EndDate]. A nil EndDate is open-ended.
type Goal struct {
	ID            int             `db:"id" json:"id"`
	UserID        int             `db:"user_id" json:"user_id"`
	TargetProtein decimal.Decimal `db:"target_protein" json:"target_protein"`
	StartDate     datekey.Date    `db:"start_date" json:"start_date"`
	EndDate       *datekey.Date   `db:"end_date" json:"end_date"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Contains reports whether d falls inside the goal's interval.
func (g Goal) Contains(d datekey.Date) bool {
	if d.Before(g.StartDate) {
		return false
	}
	return g.EndDate == nil || !d.After(*g.EndDate)
}

type Habit struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"user_id"`
	Title           string    `db:"title" json:"title"`
	TargetFrequency int       `db:"target_frequency" json:"target_frequency"` // per week
	Archived        bool      `db:"archived" json:"archived"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// HabitLog is the single record for a habit on one calendar day.
type HabitLog struct {
	ID        int          `db:"id" json:"id"`
	HabitID   int          `db:"habit_id" json:"habit_id"`
	LogDate   datekey.Date `db:"log_date" json:"log_date"`
	Completed bool         `db:"completed" json:"completed"`
	Count     int          `db:"count" json:"count"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Streak is derived from a habit's log history and never persisted.
type Streak struct {
	CurrentStreak     int           `json:"current_streak"`
	LongestStreak     int           `json:"longest_streak"`
	LastCompletedDate *datekey.Date `json:"last_completed_date"`
}
