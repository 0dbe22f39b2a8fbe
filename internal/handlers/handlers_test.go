package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"nutritrack/internal/datekey"
	mw "nutritrack/internal/middleware"
	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

var (
	testSecret = []byte("handler-secret")
	testClock  = datekey.FixedClock{T: time.Date(2024, 6, 27, 9, 30, 0, 0, time.UTC)}
)

type fakeUsers struct {
	byEmail map[string]*models.User
	nextID  int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*models.User{}, nextID: 1} }

func (f *fakeUsers) CreateUser(_ context.Context, email, hash string) (*models.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, store.ErrEmailTaken
	}
	u := &models.User{ID: f.nextID, Email: email, PasswordHash: hash, CreatedAt: testClock.T}
	f.nextID++
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetUser(_ context.Context, id int) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeGoals struct {
	create  func(owner int, in store.NewGoal) (*models.Goal, error)
	active  func(owner int, asOf *datekey.Date) (*models.Goal, error)
	history func(owner int, q store.GoalHistoryQuery) ([]models.Goal, error)
}

func (f *fakeGoals) CreateGoal(_ context.Context, owner int, in store.NewGoal) (*models.Goal, error) {
	return f.create(owner, in)
}

func (f *fakeGoals) FindActiveGoal(_ context.Context, owner int, asOf *datekey.Date) (*models.Goal, error) {
	if f.active == nil {
		return nil, store.ErrNotFound
	}
	return f.active(owner, asOf)
}

func (f *fakeGoals) FindGoalHistory(_ context.Context, owner int, q store.GoalHistoryQuery) ([]models.Goal, error) {
	return f.history(owner, q)
}

func (f *fakeGoals) GetGoal(_ context.Context, owner, id int) (*models.Goal, error) {
	return nil, store.ErrNotFound
}

type fakeHabits struct{ archived []int }

func (f *fakeHabits) CreateHabit(_ context.Context, owner int, in store.NewHabit) (*models.Habit, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &store.ValidationError{Field: "title", Reason: "required"}
	}
	return &models.Habit{ID: 3, UserID: owner, Title: in.Title, TargetFrequency: 7}, nil
}

func (f *fakeHabits) GetHabit(_ context.Context, owner, id int) (*models.Habit, error) {
	return nil, store.ErrNotFound
}

func (f *fakeHabits) ListHabits(_ context.Context, owner int, includeArchived bool) ([]models.Habit, error) {
	return []models.Habit{}, nil
}

func (f *fakeHabits) ArchiveHabit(_ context.Context, owner, id int) error {
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeHabits) DeleteHabit(_ context.Context, owner, id int) error { return store.ErrNotFound }

type fakeLogs struct {
	logs  map[string]*models.HabitLog
	query store.LogQuery
	last  store.LogInput
}

func newFakeLogs() *fakeLogs { return &fakeLogs{logs: map[string]*models.HabitLog{}} }

func (f *fakeLogs) UpsertLog(_ context.Context, owner, habitID int, in store.LogInput) (*models.HabitLog, bool, error) {
	if habitID != 3 {
		return nil, false, store.ErrNotFound
	}
	f.last = in
	key := in.LogDate.String()
	existing, ok := f.logs[key]
	l := &models.HabitLog{ID: len(f.logs) + 1, HabitID: habitID, LogDate: in.LogDate, Completed: in.Completed}
	if ok {
		l.ID = existing.ID
	}
	f.logs[key] = l
	return l, !ok, nil
}

func (f *fakeLogs) QueryLogs(_ context.Context, owner, habitID int, q store.LogQuery) ([]models.HabitLog, error) {
	f.query = q
	return []models.HabitLog{}, nil
}

func (f *fakeLogs) AllLogs(_ context.Context, owner, habitID int) ([]models.HabitLog, error) {
	out := []models.HabitLog{}
	for _, l := range f.logs {
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeLogs) DeleteLog(_ context.Context, owner, habitID, logID int) error { return nil }

type testServer struct {
	handler http.Handler
	users   *fakeUsers
	goals   *fakeGoals
	habits  *fakeHabits
	logs    *fakeLogs
	logged  *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	core, logged := observer.New(zapcore.InfoLevel)
	s := &testServer{
		users:  newFakeUsers(),
		goals:  &fakeGoals{},
		habits: &fakeHabits{},
		logs:   newFakeLogs(),
		logged: logged,
	}
	logger := zap.New(core)
	s.handler = NewRouter(RouterConfig{
		Users:       s.users,
		Goals:       s.goals,
		Habits:      s.habits,
		Logs:        s.logs,
		Clock:       testClock,
		JWTSecret:   testSecret,
		CORSOrigins: []string{"*"},
		Limiter:     mw.NewRateLimiter(1000, 1000, logger),
		Logger:      logger,
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, body string, userID int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": userID,
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", `{"email":" Ana@Example.com ","password":"pw"}`, 0)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decode[tokenResponse](t, rec).Token)

	stored := s.users.byEmail["ana@example.com"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw")))

	rec = s.do(t, http.MethodPost, "/api/auth/signup", `{"email":"ana@example.com","password":"pw"}`, 0)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"pw"}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[tokenResponse](t, rec).Token

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return testSecret, nil })
	require.NoError(t, err)
	assert.Equal(t, float64(stored.ID), parsed.Claims.(jwt.MapClaims)["sub"])
}

func TestLoginRejects(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/signup", `{"email":"ana@example.com","password":"pw"}`, 0)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"wrong password", `{"email":"ana@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"bob@example.com","password":"pw"}`, http.StatusUnauthorized},
		{"missing password", `{"email":"ana@example.com"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/login", tt.body, 0)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/me", "/api/goals", "/api/habits"} {
		rec := s.do(t, http.MethodGet, path, "", 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestGetMeWithActiveGoal(t *testing.T) {
	s := newTestServer(t)
	u, _ := s.users.CreateUser(context.Background(), "ana@example.com", "x")
	start := datekey.MustParse("2024-06-01")
	s.goals.active = func(owner int, asOf *datekey.Date) (*models.Goal, error) {
		assert.Nil(t, asOf)
		return &models.Goal{ID: 9, UserID: owner, TargetProtein: decimal.NewFromInt(140), StartDate: start}, nil
	}

	rec := s.do(t, http.MethodGet, "/api/me", "", u.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[UserDTO](t, rec)
	assert.Equal(t, "ana@example.com", dto.Email)
	require.NotNil(t, dto.ActiveGoal)
	assert.Equal(t, 9, dto.ActiveGoal.ID)
	assert.Equal(t, "2024-06-01", dto.ActiveGoal.StartDate.String())
	assert.True(t, dto.ActiveGoal.TargetProtein.Equal(decimal.NewFromInt(140)))
}

func TestGetMeWithoutGoal(t *testing.T) {
	s := newTestServer(t)
	u, _ := s.users.CreateUser(context.Background(), "ana@example.com", "x")

	rec := s.do(t, http.MethodGet, "/api/me", "", u.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[UserDTO](t, rec).ActiveGoal)
}

func TestCreateGoal(t *testing.T) {
	s := newTestServer(t)
	s.goals.create = func(owner int, in store.NewGoal) (*models.Goal, error) {
		assert.Equal(t, 7, owner)
		assert.Equal(t, "2024-02-01", in.StartDate.String())
		assert.Nil(t, in.EndDate)
		return &models.Goal{ID: 2, UserID: owner, TargetProtein: in.TargetProtein, StartDate: in.StartDate}, nil
	}

	rec := s.do(t, http.MethodPost, "/api/goals", `{"target_protein":150.5,"start_date":"2024-02-01"}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)
	g := decode[models.Goal](t, rec)
	assert.Equal(t, 2, g.ID)
	assert.True(t, g.TargetProtein.Equal(decimal.RequireFromString("150.5")))
}

func TestCreateGoalPassesLocalDate(t *testing.T) {
	s := newTestServer(t)
	var got store.NewGoal
	s.goals.create = func(owner int, in store.NewGoal) (*models.Goal, error) {
		got = in
		return &models.Goal{ID: 3, UserID: owner, TargetProtein: in.TargetProtein, StartDate: in.StartDate}, nil
	}

	rec := s.do(t, http.MethodPost, "/api/goals", `{"target_protein":140,"start_date":"2024-06-28","local_date":"2024-06-28"}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, got.LocalToday)
	assert.Equal(t, "2024-06-28", got.LocalToday.String())

	rec = s.do(t, http.MethodPost, "/api/goals", `{"target_protein":140,"start_date":"2024-06-27"}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, got.LocalToday)
}

func TestGoalErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &store.ValidationError{Field: "start_date", Reason: "must not be in the future"}, http.StatusBadRequest},
		{"invariant", store.ErrInvariantViolation, http.StatusInternalServerError},
		{"storage", &store.StorageError{Op: "commit", Err: errors.New("conn reset")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.goals.create = func(int, store.NewGoal) (*models.Goal, error) { return nil, tt.err }

			rec := s.do(t, http.MethodPost, "/api/goals", `{"target_protein":100,"start_date":"2024-06-01"}`, 7)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[errorBody](t, rec)
			if tt.status == http.StatusBadRequest {
				assert.Equal(t, "start_date", body.Field)
			} else {
				assert.Equal(t, "internal error", body.Error)
				assert.Equal(t, 1, s.logged.FilterMessage("handler error").FilterField(zap.Error(tt.err)).Len())
			}
		})
	}
}

func TestActiveGoal(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/goals/active", "", 7)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.goals.active = func(owner int, asOf *datekey.Date) (*models.Goal, error) {
		require.NotNil(t, asOf)
		assert.Equal(t, "2024-02-15", asOf.String())
		return &models.Goal{ID: 4}, nil
	}
	rec = s.do(t, http.MethodGet, "/api/goals/active?as_of=2024-02-15", "", 7)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/goals/active?as_of=15-02-2024", "", 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoalHistoryPassesRangeAndPage(t *testing.T) {
	s := newTestServer(t)
	var got store.GoalHistoryQuery
	s.goals.history = func(owner int, q store.GoalHistoryQuery) ([]models.Goal, error) {
		got = q
		return []models.Goal{}, nil
	}

	rec := s.do(t, http.MethodGet, "/api/goals?from=2024-01-01&to=2024-03-31&limit=5&offset=10", "", 7)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	require.NotNil(t, got.Range.From)
	assert.Equal(t, "2024-01-01", got.Range.From.String())
	assert.Equal(t, "2024-03-31", got.Range.To.String())
	assert.Equal(t, store.Page{Limit: 5, Offset: 10}, got.Page)

	rec = s.do(t, http.MethodGet, "/api/goals?limit=-1", "", 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHabitRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/habits", `{"title":"Walk"}`, 7)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/habits", `{"title":" "}`, 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/habits/3/archive", "", 7)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{3}, s.habits.archived)

	rec = s.do(t, http.MethodDelete, "/api/habits/3", "", 7)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/habits/abc", "", 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertLogStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"2024-06-26","completed":true}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decode[logResponse](t, rec).IsUpdate)

	rec = s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"2024-06-26","completed":false}`, 7)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[logResponse](t, rec)
	assert.True(t, resp.IsUpdate)
	assert.False(t, resp.Completed)
	assert.Len(t, s.logs.logs, 1)

	rec = s.do(t, http.MethodPut, "/api/habits/4/logs", `{"log_date":"2024-06-26","completed":true}`, 7)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"June 26","completed":true}`, 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertLogPassesLocalDate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"2024-06-28","completed":true,"local_date":"2024-06-28"}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, s.logs.last.LocalToday)
	assert.Equal(t, "2024-06-28", s.logs.last.LocalToday.String())

	rec = s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"2024-06-27","completed":true}`, 7)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, s.logs.last.LocalToday)
}

func TestListAndDeleteLogs(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/habits/3/logs?from=2024-06-01", "", 7)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, s.logs.query.Range.From)
	assert.Nil(t, s.logs.query.Range.To)

	rec = s.do(t, http.MethodDelete, "/api/habits/3/logs/11", "", 7)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/habits/3/logs/zero", "", 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHabitStats(t *testing.T) {
	s := newTestServer(t)
	for _, d := range []string{"2024-06-24", "2024-06-25", "2024-06-26"} {
		s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"`+d+`","completed":true}`, 7)
	}
	s.do(t, http.MethodPut, "/api/habits/3/logs", `{"log_date":"2024-06-20","completed":false}`, 7)

	rec := s.do(t, http.MethodGet, "/api/habits/3/stats", "", 7)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[habitStatsResponse](t, rec)

	assert.Equal(t, "2024-06-27", resp.ReferenceDate.String())
	assert.Equal(t, 3, resp.Streak.CurrentStreak)
	assert.Equal(t, 3, resp.Streak.LongestStreak)
	require.NotNil(t, resp.Streak.LastCompletedDate)
	assert.Equal(t, "2024-06-26", resp.Streak.LastCompletedDate.String())
	assert.Equal(t, 4, resp.TotalLogs)
	assert.InDelta(t, 75.0, resp.CompletionRate, 0.001)
	assert.Equal(t, 3, resp.WeeklyCompletions)

	rec = s.do(t, http.MethodGet, "/api/habits/3/stats?local_date=2024-07-10", "", 7)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[habitStatsResponse](t, rec).WeeklyCompletions)
}

func TestRateLimitedAfterBurst(t *testing.T) {
	logger := zap.NewNop()
	h := NewRouter(RouterConfig{
		Users:       newFakeUsers(),
		Goals:       &fakeGoals{},
		Habits:      &fakeHabits{},
		Logs:        newFakeLogs(),
		Clock:       testClock,
		JWTSecret:   testSecret,
		CORSOrigins: []string{"*"},
		Limiter:     mw.NewRateLimiter(0.001, 1, logger),
		Logger:      logger,
	})

	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`)))
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
