package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/services"
)

// ContentHandler runs content operations against the active world of a
// session.
type ContentHandler struct {
	session *services.Session
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(session *services.Session) *ContentHandler {
	return &ContentHandler{session: session}
}

// ContentListResult contains one collection of the active world.
type ContentListResult struct {
	Kind  entities.Kind     `json:"kind"`
	World string            `json:"world"`
	Items []entities.Entity `json:"items"`
	Total int               `json:"total"`
}

// HandleList returns the kind's collection, filtered to items whose payload
// contains every field of match.
func (h *ContentHandler) HandleList(ctx context.Context, kind entities.Kind, match entities.Payload) (*ContentListResult, error) {
	items, err := h.session.Content.Collection(ctx, kind)
	if err != nil {
		return nil, h.userError(kind, err)
	}

	if len(match) > 0 {
		filtered := items[:0]
		for _, e := range items {
			if e.Payload.Matches(match) {
				filtered = append(filtered, e)
			}
		}
		items = filtered
	}

	return &ContentListResult{
		Kind:  kind,
		World: h.session.Worlds.Scope().WorldID,
		Items: items,
		Total: len(items),
	}, nil
}

// HandleGet returns a single entity.
func (h *ContentHandler) HandleGet(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error) {
	e, err := h.session.Content.Get(ctx, kind, id)
	if err != nil {
		return entities.Entity{}, h.userError(kind, err)
	}
	return e, nil
}

// HandleCreate adds an entity to the active world.
func (h *ContentHandler) HandleCreate(ctx context.Context, kind entities.Kind, payload entities.Payload) (entities.Entity, error) {
	e, err := h.session.Content.Create(ctx, kind, payload.WithoutReserved())
	if err != nil {
		return e, h.userError(kind, err)
	}
	return e, nil
}

// HandleUpdate merges patch into an entity.
func (h *ContentHandler) HandleUpdate(ctx context.Context, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error) {
	e, err := h.session.Content.Update(ctx, kind, id, patch.WithoutReserved())
	if err != nil {
		return e, h.userError(kind, err)
	}
	return e, nil
}

// HandleDelete removes an entity.
func (h *ContentHandler) HandleDelete(ctx context.Context, kind entities.Kind, id string) error {
	if err := h.session.Content.Delete(ctx, kind, id); err != nil {
		return h.userError(kind, err)
	}
	return nil
}

// userError prefixes err with the kind's user-facing failure message.
func (h *ContentHandler) userError(kind entities.Kind, err error) error {
	if errors.Is(err, services.ErrNoActiveWorld) {
		return fmt.Errorf("%w (use 'realm worlds use' or --world)", err)
	}
	if msg := h.session.Sync.Err(kind); msg != "" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
