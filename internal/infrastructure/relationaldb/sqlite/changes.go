package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// logChange appends a change_log row inside tx.
func logChange(ctx context.Context, tx *sql.Tx, op entities.ChangeOp, e *entities.Entity, at time.Time) error {
	query := `INSERT INTO change_log (op, kind, world_id, entity_id, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, string(op), string(e.Kind), e.WorldID, e.ID, at); err != nil {
		return fmt.Errorf("logging change: %w", err)
	}
	return nil
}

// RecentChanges returns up to limit of the world's latest changes, oldest
// first.
func (s *ContentStore) RecentChanges(ctx context.Context, worldID string, limit int) ([]entities.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT op, kind, world_id, entity_id, created_at FROM (
			SELECT id, op, kind, world_id, entity_id, created_at
			FROM change_log
			WHERE world_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id
	`
	rows, err := s.repo.db.QueryContext(ctx, query, worldID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying change log: %w", err)
	}
	defer rows.Close()

	changes := make([]entities.ChangeEvent, 0, limit)
	for rows.Next() {
		var ev entities.ChangeEvent
		var op, kind string
		if err := rows.Scan(&op, &kind, &ev.WorldID, &ev.EntityID, &ev.At); err != nil {
			return nil, fmt.Errorf("scanning change: %w", err)
		}
		ev.Op = entities.ChangeOp(op)
		ev.Kind = entities.Kind(kind)
		changes = append(changes, ev)
	}
	return changes, rows.Err()
}
