package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
)

const logColumns = "id, habit_id, log_date, completed, count, created_at, updated_at"

// HabitLogStore keeps at most one log per (habit, day). Writes for the same day overwrite.
type HabitLogStore struct {
	db    *sqlx.DB
	clock datekey.Clock
}

func NewHabitLogStore(db *sqlx.DB, clock datekey.Clock) *HabitLogStore {
	return &HabitLogStore{db: db, clock: clock}
}

type LogInput struct {
	LogDate    datekey.Date
	Completed  bool
	Count      *int          // defaults to 1 when completed, else 0
	LocalToday *datekey.Date // the user's calendar day; server day when nil
}

type LogQuery struct {
	Range DateRange
	Page  Page
}

func (s *HabitLogStore) validate(in LogInput) error {
	if in.LogDate.IsZero() {
		return invalid("log_date", "required")
	}
	today, err := referenceDay(s.clock, in.LocalToday)
	if err != nil {
		return err
	}
	if in.LogDate.After(today) {
		return invalid("log_date", "must not be in the future")
	}
	if in.Count != nil && *in.Count < 0 {
		return invalid("count", "must not be negative")
	}
	return nil
}

// UpsertLog writes the log for in.LogDate, replacing any existing one for that day.
// The bool result is true when a new row was inserted.
func (s *HabitLogStore) UpsertLog(ctx context.Context, owner, habitID int, in LogInput) (*models.HabitLog, bool, error) {
	if err := s.validate(in); err != nil {
		return nil, false, err
	}
	count := 0
	if in.Completed {
		count = 1
	}
	if in.Count != nil {
		count = *in.Count
	}

	var row struct {
		models.HabitLog
		Inserted bool `db:"inserted"`
	}
	// The SELECT yields no row unless owner owns the habit, so nothing is written for strangers.
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO habit_logs (habit_id, log_date, completed, count, created_at, updated_at)
		SELECT h.id, $3, $4, $5, NOW(), NOW() FROM habits h WHERE h.id = $1 AND h.user_id = $2
		ON CONFLICT (habit_id, log_date) DO UPDATE SET
			completed = EXCLUDED.completed,
			count = EXCLUDED.count,
			updated_at = NOW()
		RETURNING `+logColumns+`, (xmax = 0) AS inserted`,
		habitID, owner, in.LogDate, in.Completed, count).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, storageErr("upsert habit log", err)
	}
	return &row.HabitLog, row.Inserted, nil
}

func (s *HabitLogStore) QueryLogs(ctx context.Context, owner, habitID int, q LogQuery) ([]models.HabitLog, error) {
	if err := q.Range.validate(); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, owner, habitID); err != nil {
		return nil, err
	}

	f := newFilter("habit_id = $%d", habitID)
	if q.Range.From != nil {
		f.and("log_date >= $%d", *q.Range.From)
	}
	if q.Range.To != nil {
		f.and("log_date <= $%d", *q.Range.To)
	}
	query := "SELECT " + logColumns + " FROM habit_logs " + f.where() + " ORDER BY log_date DESC"
	query += f.page(q.Page)

	logs := []models.HabitLog{}
	if err := s.db.SelectContext(ctx, &logs, query, f.args...); err != nil {
		return nil, storageErr("query habit logs", err)
	}
	return logs, nil
}

// AllLogs returns the full history of a habit, the input to the streak and stats calculators.
func (s *HabitLogStore) AllLogs(ctx context.Context, owner, habitID int) ([]models.HabitLog, error) {
	if err := s.checkOwner(ctx, owner, habitID); err != nil {
		return nil, err
	}
	logs := []models.HabitLog{}
	err := s.db.SelectContext(ctx, &logs,
		`SELECT `+logColumns+` FROM habit_logs WHERE habit_id = $1 ORDER BY log_date DESC`, habitID)
	if err != nil {
		return nil, storageErr("load habit logs", err)
	}
	return logs, nil
}

func (s *HabitLogStore) DeleteLog(ctx context.Context, owner, habitID, logID int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM habit_logs l USING habits h
		WHERE l.id = $1 AND l.habit_id = $2 AND h.id = l.habit_id AND h.user_id = $3`,
		logID, habitID, owner)
	if err != nil {
		return storageErr("delete habit log", err)
	}
	return requireAffected(res)
}

func (s *HabitLogStore) checkOwner(ctx context.Context, owner, habitID int) error {
	var owned bool
	err := s.db.GetContext(ctx, &owned,
		`SELECT EXISTS (SELECT 1 FROM habits WHERE id = $1 AND user_id = $2)`, habitID, owner)
	if err != nil {
		return storageErr("check habit owner", err)
	}
	if !owned {
		return ErrNotFound
	}
	return nil
}
