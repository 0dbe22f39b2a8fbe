package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"nutritrack/internal/models"
)

const userColumns = "id, email, password_hash, created_at"

// ErrEmailTaken is returned by CreateUser when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		email, passwordHash).StructScan(&u)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, storageErr("create user", err)
	}
	return &u, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *UserStore) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return &u, nil
}
