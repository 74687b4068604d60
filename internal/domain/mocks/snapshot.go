package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// SnapshotStore is a mock implementation of ports.SnapshotStore.
type SnapshotStore struct {
	mu      sync.Mutex
	Records map[string]map[entities.Kind][]entities.Entity
	LoadErr error
	SaveErr error

	SaveCallCount int
}

// NewSnapshotStore creates an empty mock SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		Records: make(map[string]map[entities.Kind][]entities.Entity),
	}
}

// LoadSnapshot returns a copy of the stored record.
func (m *SnapshotStore) LoadSnapshot(_ context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	src, ok := m.Records[worldID][kind]
	if !ok {
		return nil, nil
	}
	out := make([]entities.Entity, len(src))
	copy(out, src)
	return out, nil
}

// SaveSnapshot overwrites the record.
func (m *SnapshotStore) SaveSnapshot(_ context.Context, worldID string, kind entities.Kind, items []entities.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCallCount++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.Records[worldID] == nil {
		m.Records[worldID] = make(map[entities.Kind][]entities.Entity)
	}
	cp := make([]entities.Entity, len(items))
	copy(cp, items)
	m.Records[worldID][kind] = cp
	return nil
}

// DeleteSnapshots drops every record of a world.
func (m *SnapshotStore) DeleteSnapshots(_ context.Context, worldID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	delete(m.Records, worldID)
	return nil
}
