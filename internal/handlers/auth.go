package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
}

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	users     UserRepository
	jwtSecret []byte
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthHandler(users UserRepository, jwtSecret []byte, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, logger: logger, now: time.Now}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func decodeCredentials(r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, false
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	return c, c.Email != "" && c.Password != ""
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok {
		badRequest(w, "email and password required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), c.Email, string(hashed))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user signed up", zap.Int("user_id", user.ID))
	h.respondToken(w, r, user.ID, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok {
		badRequest(w, "email and password required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), c.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
		return
	}
	h.respondToken(w, r, user.ID, http.StatusOK)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, userID, status int) {
	token, err := h.issueJWT(userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: token})
}

func (h *AuthHandler) issueJWT(userID int) (string, error) {
	now := h.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}
