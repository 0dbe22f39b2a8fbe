package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	JWTSecret      string
	Port           string
	Env            string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	DBMaxOpenConns int
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		DatabaseURL: get("DATABASE_URL", ""),
		JWTSecret:   get("JWT_SECRET", ""),
		Port:        get("PORT", "8080"),
		Env:         get("APP_ENV", "development"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	for _, o := range strings.Split(get("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "10"), 64); err != nil || cfg.RateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "20")); err != nil || cfg.RateLimitBurst < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_BURST must be a positive integer")
	}
	if cfg.DBMaxOpenConns, err = strconv.Atoi(get("DB_MAX_OPEN_CONNS", "10")); err != nil || cfg.DBMaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be a positive integer")
	}
	return cfg, nil
}
