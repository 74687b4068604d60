// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// ContentStore is a CRUD collection service holding world content.
// Every call is scoped to one world and one kind.
type ContentStore interface {
	// List returns the full collection of a kind for a world.
	List(ctx context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error)

	// Get returns a single entity, or an error wrapping ErrNotFound.
	Get(ctx context.Context, worldID string, kind entities.Kind, id string) (entities.Entity, error)

	// Create stores a new entity and returns it with server-assigned fields.
	Create(ctx context.Context, worldID string, kind entities.Kind, payload entities.Payload) (entities.Entity, error)

	// Update merges patch into an existing entity and returns the result.
	Update(ctx context.Context, worldID string, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error)

	// Delete removes an entity.
	Delete(ctx context.Context, worldID string, kind entities.Kind, id string) error
}
