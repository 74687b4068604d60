package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

const maxBodyBytes = 1 << 20

// ListContent returns a world's collection. world_id is required.
func (s *HTTPServer) ListContent(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	kind := entities.Kind(vars["kind"])
	worldID := r.URL.Query().Get("world_id")
	if worldID == "" {
		return badRequest("world_id query parameter is required")
	}

	items, err := s.Store.List(r.Context(), worldID, kind)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, items)
}

// GetContent returns one entity by id.
func (s *HTTPServer) GetContent(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	kind := entities.Kind(vars["kind"])
	e, err := s.Store.Get(r.Context(), r.URL.Query().Get("world_id"), kind, vars["id"])
	if errors.Is(err, ports.ErrNotFound) {
		return notFound(kind)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, e)
}

// CreateContent validates the body and stores it in the world named by its
// world_id field.
func (s *HTTPServer) CreateContent(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	kind := entities.Kind(vars["kind"])
	body, err := decodeBody(r)
	if err != nil {
		return err
	}
	if err := s.schema.validateCreate(kind, body); err != nil {
		return err
	}

	worldID, _ := body["world_id"].(string)
	created, err := s.Store.Create(r.Context(), worldID, kind, body)
	if err != nil {
		return err
	}
	s.publish(entities.ChangeCreated, created)
	return writeJSON(w, http.StatusCreated, created)
}

// UpdateContent merges the body into an existing entity.
func (s *HTTPServer) UpdateContent(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	kind := entities.Kind(vars["kind"])
	body, err := decodeBody(r)
	if err != nil {
		return err
	}
	if err := s.schema.validateUpdate(kind, body); err != nil {
		return err
	}

	updated, err := s.Store.Update(r.Context(), r.URL.Query().Get("world_id"), kind, vars["id"], body.WithoutReserved())
	if errors.Is(err, ports.ErrNotFound) {
		return notFound(kind)
	}
	if err != nil {
		return err
	}
	s.publish(entities.ChangeUpdated, updated)
	return writeJSON(w, http.StatusOK, updated)
}

// DeleteContent removes an entity. An optional world_id scopes the lookup.
func (s *HTTPServer) DeleteContent(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	kind := entities.Kind(vars["kind"])
	ctx := r.Context()

	existing, err := s.Store.Get(ctx, r.URL.Query().Get("world_id"), kind, vars["id"])
	if errors.Is(err, ports.ErrNotFound) {
		return notFound(kind)
	}
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, existing.WorldID, kind, existing.ID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return notFound(kind)
		}
		return err
	}
	s.publish(entities.ChangeDeleted, existing)

	msg := fmt.Sprintf("%s deleted successfully", capitalize(kind.Singular()))
	return writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

// GetChanges returns the world's recent changes, oldest first.
func (s *HTTPServer) GetChanges(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	q := r.URL.Query()
	worldID := q.Get("world_id")
	if worldID == "" {
		return badRequest("world_id query parameter is required")
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest("limit must be a non-negative integer")
		}
		limit = n
	}

	changes, err := s.Store.RecentChanges(r.Context(), worldID, limit)
	if err != nil {
		return err
	}
	if changes == nil {
		changes = []entities.ChangeEvent{}
	}
	return writeJSON(w, http.StatusOK, changes)
}

func (s *HTTPServer) publish(op entities.ChangeOp, e entities.Entity) {
	at := e.UpdatedAt
	if op == entities.ChangeDeleted || at.IsZero() {
		at = time.Now().UTC()
	}
	ev := entities.ChangeEvent{Op: op, Kind: e.Kind, WorldID: e.WorldID, EntityID: e.ID, At: at}
	s.Hub.Publish(ev)
	s.logger.WithFields(logrus.Fields{"op": op, "kind": e.Kind, "id": e.ID, "world": e.WorldID}).Info("content changed")
}

// decodeBody reads a JSON object body.
func decodeBody(r *http.Request) (entities.Payload, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, badRequest("reading body: %v", err)
	}
	if len(raw) > maxBodyBytes {
		return nil, &apiError{code: http.StatusRequestEntityTooLarge, msg: "request body too large"}
	}

	var body entities.Payload
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, badRequest("invalid JSON body: %v", err)
	}
	if body == nil {
		return nil, badRequest("request body must be a JSON object")
	}
	return body, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
