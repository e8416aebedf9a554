package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test. godotenv never overrides a
// variable that is present, even when empty.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		unsetenv(t, "UDHARI_DB_PATH")
		unsetenv(t, "LOG_LEVEL")
		unsetenv(t, "UDHARI_STATE_KEY")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, &Config{
			DBPath:   "./data/udhari.db",
			LogLevel: "info",
			StateKey: "udhari-storage",
		}, cfg)
	})

	t.Run("env file and environment", func(t *testing.T) {
		unsetenv(t, "UDHARI_DB_PATH")
		t.Setenv("LOG_LEVEL", "warn")
		unsetenv(t, "UDHARI_STATE_KEY")

		envFile := filepath.Join(t.TempDir(), ".env")
		content := "UDHARI_DB_PATH=/tmp/ledger.db\nLOG_LEVEL=debug\n"
		require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

		cfg, err := Load(envFile)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/ledger.db", cfg.DBPath)
		assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
		assert.Equal(t, "udhari-storage", cfg.StateKey)
	})

	t.Run("malformed env file", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("BAD-KEY=1\n"), 0o600))

		_, err := Load(envFile)
		assert.Error(t, err)
	})
}
