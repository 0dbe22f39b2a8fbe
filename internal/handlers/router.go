package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"nutritrack/internal/datekey"
	mw "nutritrack/internal/middleware"
)

type RouterConfig struct {
	Users       UserRepository
	Goals       GoalRepository
	Habits      HabitRepository
	Logs        HabitLogRepository
	Clock       datekey.Clock
	JWTSecret   []byte
	CORSOrigins []string
	Limiter     *mw.RateLimiter
	Logger      *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.ZapRequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := NewAuthHandler(cfg.Users, cfg.JWTSecret, cfg.Logger)
	userHandler := NewUserHandler(cfg.Users, cfg.Goals, cfg.Logger)
	goalHandler := NewGoalHandler(cfg.Goals, cfg.Logger)
	habitHandler := NewHabitHandler(cfg.Habits, cfg.Logger)
	logHandler := NewHabitLogHandler(cfg.Logs, cfg.Logger)
	dashboardHandler := NewDashboardHandler(cfg.Logs, cfg.Clock, cfg.Logger)
	authMW := mw.NewAuthMiddleware(cfg.JWTSecret)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			// Anonymous requests are limited per remote IP.
			if cfg.Limiter != nil {
				pub.Use(cfg.Limiter.Handler)
			}
			pub.Post("/auth/signup", authHandler.Signup)
			pub.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			if cfg.Limiter != nil {
				pr.Use(cfg.Limiter.Handler)
			}
			pr.Get("/me", userHandler.GetMe)

			pr.Post("/goals", goalHandler.Create)
			pr.Get("/goals", goalHandler.History)
			pr.Get("/goals/active", goalHandler.Active)
			pr.Get("/goals/{id}", goalHandler.Get)

			pr.Post("/habits", habitHandler.Create)
			pr.Get("/habits", habitHandler.List)
			pr.Route("/habits/{id}", func(hr chi.Router) {
				hr.Get("/", habitHandler.Get)
				hr.Delete("/", habitHandler.Delete)
				hr.Post("/archive", habitHandler.Archive)
				hr.Put("/logs", logHandler.Upsert)
				hr.Get("/logs", logHandler.List)
				hr.Delete("/logs/{logID}", logHandler.Delete)
				hr.Get("/stats", dashboardHandler.HabitStats)
			})
		})
	})
	return r
}
