package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"nutritrack/internal/config"
	"nutritrack/internal/datekey"
	"nutritrack/internal/db"
	"nutritrack/internal/handlers"
	mw "nutritrack/internal/middleware"
	"nutritrack/internal/store"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on config, so this one goes to stderr.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	dbConn.SetConnMaxLifetime(2 * time.Hour)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbConn.PingContext(startCtx); err != nil {
		logger.Fatal("failed to ping db", zap.Error(err))
	}
	if err := db.RunMigrations(startCtx, dbConn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}
	cancelStart()

	clock := datekey.SystemClock{}
	limiter := mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	stopSweeper := make(chan struct{})
	limiter.StartSweeper(time.Minute, stopSweeper)
	defer close(stopSweeper)

	router := handlers.NewRouter(handlers.RouterConfig{
		Users:       store.NewUserStore(dbConn),
		Goals:       store.NewGoalStore(dbConn, clock, logger),
		Habits:      store.NewHabitStore(dbConn),
		Logs:        store.NewHabitLogStore(dbConn, clock),
		Clock:       clock,
		JWTSecret:   []byte(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
