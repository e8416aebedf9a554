// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/udhari/internal/models"
	"github.com/mmynk/udhari/internal/storage"
)

// DefaultKey is the key the ledger state is stored under.
const DefaultKey = "udhari-storage"

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// New creates a new SQLiteStore with the given database path, storing state
// under key (DefaultKey when empty).
// It creates the parent directories and runs migrations automatically.
func New(dbPath, key string) (*SQLiteStore, error) {
	if key == "" {
		key = DefaultKey
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; keeps saves strictly ordered.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, key: key}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the state blob. A missing row yields a fresh state.
func (s *SQLiteStore) Load(ctx context.Context) (*models.State, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", s.key).Scan(&value)
	if err == sql.ErrNoRows {
		return models.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	state := &models.State{}
	if err := json.Unmarshal([]byte(value), state); err != nil {
		return nil, fmt.Errorf("failed to decode state %q: %w", s.key, err)
	}
	return state, nil
}

// Save upserts the state blob.
func (s *SQLiteStore) Save(ctx context.Context, state *models.State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(blob), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
