package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"nutritrack/internal/models"
)

const habitColumns = "id, user_id, title, target_frequency, archived, created_at, updated_at"

type HabitStore struct {
	db *sqlx.DB
}

func NewHabitStore(db *sqlx.DB) *HabitStore { return &HabitStore{db: db} }

type NewHabit struct {
	Title           string
	TargetFrequency int // times per week, 1..7
}

func (s *HabitStore) CreateHabit(ctx context.Context, owner int, in NewHabit) (*models.Habit, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title", "required")
	}
	if in.TargetFrequency == 0 {
		in.TargetFrequency = 7
	}
	if in.TargetFrequency < 1 || in.TargetFrequency > 7 {
		return nil, invalid("target_frequency", "must be between 1 and 7")
	}

	var h models.Habit
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO habits (user_id, title, target_frequency)
		VALUES ($1, $2, $3)
		RETURNING `+habitColumns, owner, in.Title, in.TargetFrequency).StructScan(&h)
	if err != nil {
		return nil, storageErr("create habit", err)
	}
	return &h, nil
}

func (s *HabitStore) GetHabit(ctx context.Context, owner, id int) (*models.Habit, error) {
	var h models.Habit
	err := s.db.GetContext(ctx, &h, `SELECT `+habitColumns+` FROM habits WHERE id = $1 AND user_id = $2`, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get habit", err)
	}
	return &h, nil
}

func (s *HabitStore) ListHabits(ctx context.Context, owner int, includeArchived bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1`
	if !includeArchived {
		query += ` AND archived = false`
	}
	query += ` ORDER BY created_at, id`

	habits := []models.Habit{}
	if err := s.db.SelectContext(ctx, &habits, query, owner); err != nil {
		return nil, storageErr("list habits", err)
	}
	return habits, nil
}

func (s *HabitStore) ArchiveHabit(ctx context.Context, owner, id int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET archived = true, updated_at = NOW() WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return storageErr("archive habit", err)
	}
	return requireAffected(res)
}

// DeleteHabit removes the habit; its logs go with it through ON DELETE CASCADE.
func (s *HabitStore) DeleteHabit(ctx context.Context, owner, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return storageErr("delete habit", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
