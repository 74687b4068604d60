// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

// ContentStore is an in-memory mock implementation of ports.ContentStore.
type ContentStore struct {
	mu     sync.Mutex
	items  map[string]map[entities.Kind][]entities.Entity
	nextID int

	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// BeforeList runs inside List before the collection is read. Tests use it
	// to interleave a world switch with an in-flight fetch.
	BeforeList func(worldID string, kind entities.Kind)

	// Call tracking
	ListCallCount   int
	CreateCallCount int
	UpdateCallCount int
	DeleteCallCount int
}

// NewContentStore creates an empty mock ContentStore.
func NewContentStore() *ContentStore {
	return &ContentStore{
		items: make(map[string]map[entities.Kind][]entities.Entity),
	}
}

// Seed adds entities directly, bypassing call tracking and error injection.
func (m *ContentStore) Seed(worldID string, kind entities.Kind, payloads ...entities.Payload) []entities.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.Entity, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, m.insertLocked(worldID, kind, p))
	}
	return out
}

// List returns a copy of the collection.
func (m *ContentStore) List(_ context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error) {
	m.mu.Lock()
	m.ListCallCount++
	hook := m.BeforeList
	m.mu.Unlock()

	if hook != nil {
		hook(worldID, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	src := m.items[worldID][kind]
	out := make([]entities.Entity, len(src))
	copy(out, src)
	return out, nil
}

// Get returns one entity.
func (m *ContentStore) Get(_ context.Context, worldID string, kind entities.Kind, id string) (entities.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return entities.Entity{}, m.GetErr
	}
	for _, e := range m.items[worldID][kind] {
		if e.ID == id {
			return e, nil
		}
	}
	return entities.Entity{}, fmt.Errorf("%s %s: %w", kind.Singular(), id, ports.ErrNotFound)
}

// Create appends a new entity.
func (m *ContentStore) Create(_ context.Context, worldID string, kind entities.Kind, payload entities.Payload) (entities.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCallCount++
	if m.CreateErr != nil {
		return entities.Entity{}, m.CreateErr
	}
	return m.insertLocked(worldID, kind, payload), nil
}

// Update merges a patch into an existing entity.
func (m *ContentStore) Update(_ context.Context, worldID string, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCallCount++
	if m.UpdateErr != nil {
		return entities.Entity{}, m.UpdateErr
	}
	list := m.items[worldID][kind]
	for i := range list {
		if list[i].ID == id {
			list[i].Payload = list[i].Payload.Merge(patch)
			list[i].UpdatedAt = time.Now()
			return list[i], nil
		}
	}
	return entities.Entity{}, fmt.Errorf("%s %s: %w", kind.Singular(), id, ports.ErrNotFound)
}

// Delete removes an entity.
func (m *ContentStore) Delete(_ context.Context, worldID string, kind entities.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCallCount++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	list := m.items[worldID][kind]
	for i := range list {
		if list[i].ID == id {
			m.items[worldID][kind] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", kind.Singular(), id, ports.ErrNotFound)
}

func (m *ContentStore) insertLocked(worldID string, kind entities.Kind, payload entities.Payload) entities.Entity {
	m.nextID++
	now := time.Now()
	e := entities.Entity{
		ID:        fmt.Sprintf("%s-%d", kind, m.nextID),
		WorldID:   worldID,
		Kind:      kind,
		Payload:   payload.WithoutReserved(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.items[worldID] == nil {
		m.items[worldID] = make(map[entities.Kind][]entities.Entity)
	}
	m.items[worldID][kind] = append(m.items[worldID][kind], e)
	return e
}
