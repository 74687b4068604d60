package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// SnapshotStore implements ports.SnapshotStore. Each (world, kind) pair is
// one row holding the zstd-compressed JSON array of the collection.
type SnapshotStore struct {
	repo *Repository

	once    sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
}

// NewSnapshotStore creates a snapshot store on repo.
func NewSnapshotStore(repo *Repository) *SnapshotStore {
	return &SnapshotStore{repo: repo}
}

func (s *SnapshotStore) codec() error {
	s.once.Do(func() {
		s.enc, s.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if s.initErr != nil {
			return
		}
		s.dec, s.initErr = zstd.NewReader(nil)
	})
	return s.initErr
}

// LoadSnapshot returns the stored collection, or nil if none was saved.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error) {
	if err := s.codec(); err != nil {
		return nil, fmt.Errorf("initializing zstd: %w", err)
	}

	var blob []byte
	query := `SELECT data FROM snapshots WHERE world_id = ? AND kind = ?`
	err := s.repo.db.QueryRowContext(ctx, query, worldID, string(kind)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s snapshot: %w", kind.Plural(), err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s snapshot: %w", kind.Plural(), err)
	}

	var items []entities.Entity
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding %s snapshot: %w", kind.Plural(), err)
	}
	for i := range items {
		items[i].Kind = kind
	}
	return items, nil
}

// SaveSnapshot overwrites the stored collection.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, worldID string, kind entities.Kind, items []entities.Entity) error {
	if err := s.codec(); err != nil {
		return fmt.Errorf("initializing zstd: %w", err)
	}
	if items == nil {
		items = []entities.Entity{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", kind.Plural(), err)
	}
	blob := s.enc.EncodeAll(raw, nil)

	query := `
		INSERT INTO snapshots (world_id, kind, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(world_id, kind) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := s.repo.db.ExecContext(ctx, query, worldID, string(kind), blob, timeNow().UTC()); err != nil {
		return fmt.Errorf("saving %s snapshot: %w", kind.Plural(), err)
	}
	return nil
}

// DeleteSnapshots removes every record of a world.
func (s *SnapshotStore) DeleteSnapshots(ctx context.Context, worldID string) error {
	if _, err := s.repo.db.ExecContext(ctx, `DELETE FROM snapshots WHERE world_id = ?`, worldID); err != nil {
		return fmt.Errorf("deleting snapshots: %w", err)
	}
	return nil
}
