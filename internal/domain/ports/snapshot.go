package ports

import (
	"context"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// SnapshotStore keeps one record per (world, kind) pair, always read and
// written whole.
type SnapshotStore interface {
	// LoadSnapshot returns the stored collection, or nil if none was saved.
	LoadSnapshot(ctx context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error)

	// SaveSnapshot overwrites the stored collection.
	SaveSnapshot(ctx context.Context, worldID string, kind entities.Kind, items []entities.Entity) error

	// DeleteSnapshots removes every record of a world.
	DeleteSnapshots(ctx context.Context, worldID string) error
}
