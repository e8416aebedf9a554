package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mmynk/udhari/internal/models"
)

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the serialized state in memory. It encodes on every save so
// callers observe the same round-trip behaviour as a durable store.
type MemoryStore struct {
	mu    sync.Mutex
	blob  []byte
	saves int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blob == nil {
		return models.NewState(), nil
	}
	state := &models.State{}
	if err := json.Unmarshal(s.blob, state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}

func (s *MemoryStore) Save(ctx context.Context, state *models.State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = blob
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemoryStore) Close() error {
	return nil
}
