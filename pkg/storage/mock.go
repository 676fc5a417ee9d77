package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

// MockStorage is an in-memory Storage for testing. Games are deep-copied on
// the way in and out so callers never share state with the store.
type MockStorage struct {
	mu        sync.RWMutex
	games     map[uuid.UUID]*state.Game
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		games: make(map[uuid.UUID]*state.Game),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail every SaveGame with err
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SaveCount reports how many successful saves were made
func (m *MockStorage) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveGame(ctx context.Context, g *state.Game) error {
	if g == nil {
		return errors.New("game cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.games[g.Metadata.ID] = g.DeepCopy()
	m.saves++
	return nil
}

func (m *MockStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, exists := m.games[id]
	if !exists {
		return nil, nil
	}
	return g.DeepCopy(), nil
}

func (m *MockStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

func (m *MockStorage) ListGames(ctx context.Context) ([]state.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]state.Metadata, 0, len(m.games))
	for _, g := range m.games {
		result = append(result, g.Metadata)
	}
	SortMetadata(result)
	return result, nil
}

// SortMetadata orders metadata newest first, breaking ties by ID.
func SortMetadata(md []state.Metadata) {
	sort.Slice(md, func(i, j int) bool {
		if !md[i].CreationDateTime.Equal(md[j].CreationDateTime) {
			return md[i].CreationDateTime.After(md[j].CreationDateTime)
		}
		return md[i].ID.String() < md[j].ID.String()
	})
}
