package ports

import (
	"context"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// WorldStore persists an owner's world list and active world selection.
type WorldStore interface {
	// LoadWorlds returns the owner's worlds in list order.
	LoadWorlds(ctx context.Context, ownerID string) ([]entities.World, error)

	// SaveWorlds replaces the owner's world list.
	SaveWorlds(ctx context.Context, ownerID string, worlds []entities.World) error

	// LoadActiveWorld returns the persisted active world id, or "" if none.
	LoadActiveWorld(ctx context.Context, ownerID string) (string, error)

	// SaveActiveWorld persists the active world id ("" clears it).
	SaveActiveWorld(ctx context.Context, ownerID, worldID string) error
}
