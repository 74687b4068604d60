package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

// ContentStore implements ports.ContentStore on the content table. Every
// mutation also appends a change_log row in the same transaction.
// An empty worldID on Get, Update and Delete matches any world, as the
// collection API addresses entities by id alone.
type ContentStore struct {
	repo *Repository
}

// NewContentStore creates a content store on repo.
func NewContentStore(repo *Repository) *ContentStore {
	return &ContentStore{repo: repo}
}

// List returns the world's entities of kind in creation order.
func (s *ContentStore) List(ctx context.Context, worldID string, kind entities.Kind) ([]entities.Entity, error) {
	query := `
		SELECT id, world_id, kind, data, created_at, updated_at
		FROM content
		WHERE world_id = ? AND kind = ?
		ORDER BY created_at, rowid
	`
	rows, err := s.repo.db.QueryContext(ctx, query, worldID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Plural(), err)
	}
	defer rows.Close()

	result := []entities.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// Get returns one entity.
func (s *ContentStore) Get(ctx context.Context, worldID string, kind entities.Kind, id string) (entities.Entity, error) {
	e, err := s.find(ctx, s.repo.db, worldID, kind, id)
	if err != nil {
		return entities.Entity{}, err
	}
	return *e, nil
}

// Create inserts a new entity with a fresh id.
func (s *ContentStore) Create(ctx context.Context, worldID string, kind entities.Kind, payload entities.Payload) (entities.Entity, error) {
	if worldID == "" {
		return entities.Entity{}, fmt.Errorf("world_id is required: %w", ports.ErrValidation)
	}

	now := timeNow().UTC()
	e := entities.Entity{
		ID:        generateUUID(),
		WorldID:   worldID,
		Kind:      kind,
		Payload:   payload.WithoutReserved(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return entities.Entity{}, fmt.Errorf("marshaling payload: %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO content (id, world_id, kind, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query, e.ID, e.WorldID, string(kind), string(data), e.CreatedAt, e.UpdatedAt); err != nil {
			return fmt.Errorf("inserting %s: %w", kind.Singular(), err)
		}
		return logChange(ctx, tx, entities.ChangeCreated, &e, now)
	})
	if err != nil {
		return entities.Entity{}, err
	}
	return e, nil
}

// Update merges patch into the stored payload.
func (s *ContentStore) Update(ctx context.Context, worldID string, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error) {
	var updated entities.Entity
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		e, err := s.find(ctx, tx, worldID, kind, id)
		if err != nil {
			return err
		}

		e.Payload = e.Payload.Merge(patch)
		e.UpdatedAt = timeNow().UTC()
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}

		query := `UPDATE content SET data = ?, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query, string(data), e.UpdatedAt, e.ID); err != nil {
			return fmt.Errorf("updating %s: %w", kind.Singular(), err)
		}
		updated = *e
		return logChange(ctx, tx, entities.ChangeUpdated, e, e.UpdatedAt)
	})
	if err != nil {
		return entities.Entity{}, err
	}
	return updated, nil
}

// Delete removes an entity.
func (s *ContentStore) Delete(ctx context.Context, worldID string, kind entities.Kind, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		e, err := s.find(ctx, tx, worldID, kind, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, e.ID); err != nil {
			return fmt.Errorf("deleting %s: %w", kind.Singular(), err)
		}
		return logChange(ctx, tx, entities.ChangeDeleted, e, timeNow().UTC())
	})
}

// DeleteWorld removes every entity of a world and returns how many went.
func (s *ContentStore) DeleteWorld(ctx context.Context, worldID string) (int64, error) {
	res, err := s.repo.db.ExecContext(ctx, `DELETE FROM content WHERE world_id = ?`, worldID)
	if err != nil {
		return 0, fmt.Errorf("deleting world content: %w", err)
	}
	return res.RowsAffected()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *ContentStore) find(ctx context.Context, q querier, worldID string, kind entities.Kind, id string) (*entities.Entity, error) {
	query := `
		SELECT id, world_id, kind, data, created_at, updated_at
		FROM content
		WHERE id = ? AND kind = ? AND (? = '' OR world_id = ?)
	`
	e, err := scanEntity(q.QueryRowContext(ctx, query, id, string(kind), worldID, worldID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind.Singular(), id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *ContentStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEntity reads one content row.
func scanEntity(row scanner) (*entities.Entity, error) {
	var e entities.Entity
	var kind, data string
	if err := row.Scan(&e.ID, &e.WorldID, &kind, &data, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entity: %w", err)
	}
	e.Kind = entities.Kind(kind)
	if err := json.Unmarshal([]byte(data), &e.Payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload of %s: %w", e.ID, err)
	}
	return &e, nil
}
