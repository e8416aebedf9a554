// Package storage provides abstractions for persisting the ledger state.
package storage

import (
	"context"

	"github.com/mmynk/udhari/internal/models"
)

// Store persists the whole ledger state as a single blob.
// This abstraction allows swapping storage backends (SQLite, in-memory, ...)
// without changing the ledger.
type Store interface {
	// Load returns the saved state, or a fresh models.NewState() when nothing
	// has been saved yet.
	Load(ctx context.Context) (*models.State, error)

	// Save replaces the saved state.
	Save(ctx context.Context, state *models.State) error

	// Close releases any resources held by the store.
	Close() error
}
