// Package localstore keeps world content on the local machine when no
// content service is reachable.
package localstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

// Store implements ports.ContentStore over a ports.SnapshotStore. Each
// mutation reads the whole (world, kind) record, changes it and writes it
// back; a mutex serializes these read-modify-write cycles.
type Store struct {
	snapshots ports.SnapshotStore

	// now and newID are swapped in tests.
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// New creates a local store.
func New(snapshots ports.SnapshotStore) *Store {
	return &Store{
		snapshots: snapshots,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// List returns the stored collection.
func (s *Store) List(ctx context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error) {
	items, err := s.snapshots.LoadSnapshot(ctx, worldID, kind)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entities.Entity{}
	}
	return items, nil
}

// Get returns one entity.
func (s *Store) Get(ctx context.Context, worldID string, kind entities.Kind, id string) (entities.Entity, error) {
	items, err := s.snapshots.LoadSnapshot(ctx, worldID, kind)
	if err != nil {
		return entities.Entity{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return entities.Entity{}, notFound(kind, id)
	}
	return items[idx], nil
}

// Create appends a new entity to the record.
func (s *Store) Create(ctx context.Context, worldID string, kind entities.Kind, payload entities.Payload) (entities.Entity, error) {
	var created entities.Entity
	err := s.modify(ctx, worldID, kind, func(items []entities.Entity) ([]entities.Entity, error) {
		now := s.now().UTC()
		created = entities.Entity{
			ID:        s.newID(),
			WorldID:   worldID,
			Kind:      kind,
			Payload:   payload.WithoutReserved(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return append(items, created), nil
	})
	return created, err
}

// Update merges patch into an entity of the record.
func (s *Store) Update(ctx context.Context, worldID string, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error) {
	var updated entities.Entity
	err := s.modify(ctx, worldID, kind, func(items []entities.Entity) ([]entities.Entity, error) {
		idx := indexOf(items, id)
		if idx < 0 {
			return nil, notFound(kind, id)
		}
		items[idx].Payload = items[idx].Payload.Merge(patch)
		items[idx].UpdatedAt = s.now().UTC()
		updated = items[idx]
		return items, nil
	})
	return updated, err
}

// Delete removes an entity from the record.
func (s *Store) Delete(ctx context.Context, worldID string, kind entities.Kind, id string) error {
	return s.modify(ctx, worldID, kind, func(items []entities.Entity) ([]entities.Entity, error) {
		idx := indexOf(items, id)
		if idx < 0 {
			return nil, notFound(kind, id)
		}
		return append(items[:idx], items[idx+1:]...), nil
	})
}

// DeleteWorld drops every record of a world.
func (s *Store) DeleteWorld(ctx context.Context, worldID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.DeleteSnapshots(ctx, worldID)
}

func (s *Store) modify(ctx context.Context, worldID string, kind entities.Kind, change func([]entities.Entity) ([]entities.Entity, error)) error {
	if worldID == "" {
		return fmt.Errorf("world_id is required: %w", ports.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.snapshots.LoadSnapshot(ctx, worldID, kind)
	if err != nil {
		return err
	}
	items, err = change(items)
	if err != nil {
		return err
	}
	return s.snapshots.SaveSnapshot(ctx, worldID, kind, items)
}

func indexOf(items []entities.Entity, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(kind entities.Kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind.Singular(), id, ports.ErrNotFound)
}
