// Package config loads server configuration from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLen = 16

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	JWTSecret []byte
	TokenTTL  time.Duration
}

// Load reads configuration from the environment. A .env file, when present,
// fills in variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply values
// without touching the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:      getenv("SHOPSYNC_PORT"),
		DBPath:    getenv("SHOPSYNC_DB_PATH"),
		LogLevel:  getenv("SHOPSYNC_LOG_LEVEL"),
		LogFormat: getenv("SHOPSYNC_LOG_FORMAT"),
		TokenTTL:  7 * 24 * time.Hour,
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "shopsync.db"
	}

	secret := getenv("SHOPSYNC_JWT_SECRET")
	if len(secret) < minSecretLen {
		return Config{}, fmt.Errorf("SHOPSYNC_JWT_SECRET must be at least %d characters", minSecretLen)
	}
	cfg.JWTSecret = []byte(secret)

	if raw := getenv("SHOPSYNC_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse SHOPSYNC_TOKEN_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, fmt.Errorf("SHOPSYNC_TOKEN_TTL must be positive")
		}
		cfg.TokenTTL = ttl
	}

	return cfg, nil
}
