package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
)

const goalColumns = "id, user_id, target_protein, start_date, end_date, created_at, updated_at"

// GoalStore owns each user's history of protein targets. For a given user no two goal
// intervals overlap; creating a goal closes whatever was open at its start date.
type GoalStore struct {
	db     *sqlx.DB
	clock  datekey.Clock
	logger *zap.Logger
}

func NewGoalStore(db *sqlx.DB, clock datekey.Clock, logger *zap.Logger) *GoalStore {
	return &GoalStore{db: db, clock: clock, logger: logger}
}

// MaxTargetProtein is the exclusive upper bound the goals.target_protein column can hold.
var MaxTargetProtein = decimal.NewFromInt(100000)

type NewGoal struct {
	TargetProtein decimal.Decimal
	StartDate     datekey.Date
	EndDate       *datekey.Date
	LocalToday    *datekey.Date // the user's calendar day; server day when nil
}

type GoalHistoryQuery struct {
	Range DateRange
	Page  Page
}

func (s *GoalStore) validate(in NewGoal) error {
	if !in.TargetProtein.IsPositive() {
		return invalid("target_protein", "must be positive")
	}
	if !in.TargetProtein.LessThan(MaxTargetProtein) {
		return invalid("target_protein", "must be less than "+MaxTargetProtein.String())
	}
	if in.StartDate.IsZero() {
		return invalid("start_date", "required")
	}
	today, err := referenceDay(s.clock, in.LocalToday)
	if err != nil {
		return err
	}
	if in.StartDate.After(today) {
		return invalid("start_date", "must not be in the future")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return invalid("end_date", "must not be before start_date")
	}
	return nil
}

// CreateGoal closes every goal of owner still open at in.StartDate (its end_date becomes the
// day before) and inserts the new goal, all in one transaction. The transaction holds a
// per-owner advisory lock so concurrent creations for the same owner are serialized while
// other owners proceed independently.
func (s *GoalStore) CreateGoal(ctx context.Context, owner int, in NewGoal) (*models.Goal, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin goal transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('goals'), $1)`, owner); err != nil {
		return nil, storageErr("lock goals", err)
	}

	// A goal starting inside the new interval cannot be closed before it begins. A bounded
	// goal that ends before the next one starts is fine.
	var later int
	if err := tx.GetContext(ctx, &later,
		`SELECT COUNT(*) FROM goals WHERE user_id = $1 AND start_date >= $2 AND ($3::date IS NULL OR start_date <= $3)`,
		owner, in.StartDate, nullableDate(in.EndDate)); err != nil {
		return nil, storageErr("check later goals", err)
	}
	if later > 0 {
		return nil, invalid("start_date", "another goal starts within this goal's interval")
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE goals SET end_date = $3, updated_at = NOW()
		WHERE user_id = $1 AND start_date < $2 AND (end_date IS NULL OR end_date >= $2)`,
		owner, in.StartDate, in.StartDate.AddDays(-1))
	if err != nil {
		return nil, storageErr("close previous goals", err)
	}
	closed, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("close previous goals", err)
	}

	f := newFilter("user_id = $%d", owner).and("(end_date IS NULL OR end_date >= $%d)", in.StartDate)
	if in.EndDate != nil {
		f.and("start_date <= $%d", *in.EndDate)
	}
	var overlapping int
	if err := tx.GetContext(ctx, &overlapping, "SELECT COUNT(*) FROM goals "+f.where(), f.args...); err != nil {
		return nil, storageErr("check goal overlap", err)
	}
	if overlapping > 0 {
		s.logger.Error("overlapping goals after close; aborting create",
			zap.Int("user_id", owner),
			zap.Stringer("start_date", in.StartDate),
			zap.Int("overlapping", overlapping),
		)
		return nil, fmt.Errorf("create goal for user %d: %w", owner, ErrInvariantViolation)
	}

	var g models.Goal
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO goals (user_id, target_protein, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+goalColumns,
		owner, in.TargetProtein, in.StartDate, nullableDate(in.EndDate)).StructScan(&g)
	if err != nil {
		return nil, storageErr("insert goal", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit goal", err)
	}

	s.logger.Info("goal created",
		zap.Int("user_id", owner),
		zap.Int("goal_id", g.ID),
		zap.Stringer("start_date", g.StartDate),
		zap.Int64("closed", closed),
	)
	return &g, nil
}

// FindActiveGoal returns the goal whose interval contains asOf (today when nil).
// ErrNotFound means the owner had no goal on that day.
func (s *GoalStore) FindActiveGoal(ctx context.Context, owner int, asOf *datekey.Date) (*models.Goal, error) {
	d := datekey.Today(s.clock)
	if asOf != nil {
		d = *asOf
	}

	var g models.Goal
	err := s.db.GetContext(ctx, &g, `
		SELECT `+goalColumns+` FROM goals
		WHERE user_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date DESC, id DESC
		LIMIT 1`, owner, d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("find active goal", err)
	}
	return &g, nil
}

// FindGoalHistory lists goals whose interval intersects q.Range, newest start first.
func (s *GoalStore) FindGoalHistory(ctx context.Context, owner int, q GoalHistoryQuery) ([]models.Goal, error) {
	if err := q.Range.validate(); err != nil {
		return nil, err
	}

	f := newFilter("user_id = $%d", owner)
	if q.Range.From != nil {
		f.and("(end_date IS NULL OR end_date >= $%d)", *q.Range.From)
	}
	if q.Range.To != nil {
		f.and("start_date <= $%d", *q.Range.To)
	}
	query := "SELECT " + goalColumns + " FROM goals " + f.where() + " ORDER BY start_date DESC, id DESC"
	query += f.page(q.Page)

	goals := []models.Goal{}
	if err := s.db.SelectContext(ctx, &goals, query, f.args...); err != nil {
		return nil, storageErr("find goal history", err)
	}
	return goals, nil
}

func (s *GoalStore) GetGoal(ctx context.Context, owner, id int) (*models.Goal, error) {
	var g models.Goal
	err := s.db.GetContext(ctx, &g, `SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get goal", err)
	}
	return &g, nil
}

func nullableDate(d *datekey.Date) any {
	if d == nil {
		return nil
	}
	return *d
}
