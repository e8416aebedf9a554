// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DBPath   string
	LogLevel string
	// StateKey selects the row the ledger state is stored under.
	StateKey string
}

// Load reads an optional .env file, then environment variables. Values already
// set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		slog.Debug("No .env file found, using environment")
	}

	return &Config{
		DBPath:   getEnv("UDHARI_DB_PATH", "./data/udhari.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		StateKey: getEnv("UDHARI_STATE_KEY", "udhari-storage"),
	}, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
