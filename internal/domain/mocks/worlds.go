package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// WorldStore is a mock implementation of ports.WorldStore.
type WorldStore struct {
	mu     sync.Mutex
	Worlds map[string][]entities.World
	Active map[string]string
	Err    error

	SaveCallCount int
}

// NewWorldStore creates an empty mock WorldStore.
func NewWorldStore() *WorldStore {
	return &WorldStore{
		Worlds: make(map[string][]entities.World),
		Active: make(map[string]string),
	}
}

// LoadWorlds returns a copy of the owner's worlds.
func (m *WorldStore) LoadWorlds(_ context.Context, ownerID string) ([]entities.World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]entities.World, len(m.Worlds[ownerID]))
	copy(out, m.Worlds[ownerID])
	return out, nil
}

// SaveWorlds replaces the owner's worlds.
func (m *WorldStore) SaveWorlds(_ context.Context, ownerID string, worlds []entities.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCallCount++
	if m.Err != nil {
		return m.Err
	}
	cp := make([]entities.World, len(worlds))
	copy(cp, worlds)
	m.Worlds[ownerID] = cp
	return nil
}

// LoadActiveWorld returns the stored active world id.
func (m *WorldStore) LoadActiveWorld(_ context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Active[ownerID], nil
}

// SaveActiveWorld stores the active world id.
func (m *WorldStore) SaveActiveWorld(_ context.Context, ownerID, worldID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Active[ownerID] = worldID
	return nil
}
