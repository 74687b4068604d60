package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/services"
)

// WorldHandler manages an owner's worlds and the active selection.
type WorldHandler struct {
	scopes *services.WorldScopeManager
}

// NewWorldHandler creates a new WorldHandler.
func NewWorldHandler(scopes *services.WorldScopeManager) *WorldHandler {
	return &WorldHandler{scopes: scopes}
}

// WorldSummary is a world with its selection flag.
type WorldSummary struct {
	entities.World
	Active bool `json:"active"`
}

// HandleList returns the owner's worlds in list order.
func (h *WorldHandler) HandleList() []WorldSummary {
	active := h.scopes.Scope().WorldID
	worlds := h.scopes.Worlds()
	out := make([]WorldSummary, len(worlds))
	for i, w := range worlds {
		out[i] = WorldSummary{World: w, Active: w.ID == active}
	}
	return out
}

// Resolve finds a world by id, or by case-insensitive name when no id
// matches. A name shared by several worlds is an error.
func (h *WorldHandler) Resolve(ref string) (entities.World, error) {
	ref = strings.TrimSpace(ref)
	if w, err := h.scopes.Get(ref); err == nil {
		return w, nil
	}

	var matches []entities.World
	for _, w := range h.scopes.Worlds() {
		if strings.EqualFold(w.Name, ref) {
			matches = append(matches, w)
		}
	}
	switch len(matches) {
	case 0:
		return entities.World{}, fmt.Errorf("%w: %q", services.ErrWorldNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return entities.World{}, fmt.Errorf("world name %q is ambiguous (%d worlds), use the id", ref, len(matches))
	}
}

// HandleCreate creates a world, activating it when use is set.
func (h *WorldHandler) HandleCreate(ctx context.Context, name, description, imageURL string, use bool) (entities.World, error) {
	w, err := h.scopes.CreateWorld(ctx, name, description, imageURL)
	if err != nil {
		return entities.World{}, err
	}
	if use {
		if _, err := h.scopes.Use(ctx, w.ID); err != nil {
			return w, err
		}
	}
	return w, nil
}

// HandleUse activates the world named by ref.
func (h *WorldHandler) HandleUse(ctx context.Context, ref string) (entities.World, error) {
	w, err := h.Resolve(ref)
	if err != nil {
		return entities.World{}, err
	}
	return h.scopes.Use(ctx, w.ID)
}

// HandleUpdate applies patch to the world named by ref.
func (h *WorldHandler) HandleUpdate(ctx context.Context, ref string, patch entities.WorldPatch) (entities.World, error) {
	w, err := h.Resolve(ref)
	if err != nil {
		return entities.World{}, err
	}
	return h.scopes.UpdateWorld(ctx, w.ID, patch)
}

// HandleDelete removes the world named by ref and returns it together with
// the world that is active afterwards, if any.
func (h *WorldHandler) HandleDelete(ctx context.Context, ref string) (deleted entities.World, active *entities.World, err error) {
	w, err := h.Resolve(ref)
	if err != nil {
		return entities.World{}, nil, err
	}
	if err := h.scopes.DeleteWorld(ctx, w.ID); err != nil {
		return entities.World{}, nil, err
	}
	return w, h.scopes.Current(), nil
}
