package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

// ErrStaleScope is returned when a fetch resolved after the active world
// changed. The response is discarded and the cache is left alone.
var ErrStaleScope = errors.New("response discarded: active world changed")

type operation int

const (
	opFetch operation = iota
	opCreate
	opUpdate
	opDelete
)

// failureMessage is the single user-facing string for a failed operation.
func failureMessage(op operation, kind entities.Kind) string {
	switch op {
	case opCreate:
		return "Failed to add " + kind.Singular()
	case opUpdate:
		return "Failed to update " + kind.Singular()
	case opDelete:
		return "Failed to delete " + kind.Singular()
	default:
		return "Failed to fetch " + kind.Plural()
	}
}

type collection struct {
	token uint64
	items []entities.Entity
}

// ContentRepository keeps one in-memory collection per content kind for the
// active world. Every successful mutation is followed by exactly one full
// refetch of that kind; nothing is patched locally.
type ContentRepository struct {
	store   ports.ContentStore
	scopes  *WorldScopeManager
	tracker *SyncStateTracker
	logger  logrus.FieldLogger

	mu          sync.RWMutex
	collections map[entities.Kind]*collection
}

// NewContentRepository creates a repository and subscribes it to scope
// changes so that collections are dropped on every world switch.
func NewContentRepository(store ports.ContentStore, scopes *WorldScopeManager, tracker *SyncStateTracker, logger logrus.FieldLogger) *ContentRepository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &ContentRepository{
		store:       store,
		scopes:      scopes,
		tracker:     tracker,
		logger:      logger,
		collections: make(map[entities.Kind]*collection),
	}
	scopes.OnScopeChange(r.invalidate)
	return r
}

// FetchAll replaces the kind's collection with the store's full list for the
// active world. On failure the previous collection stays as it was.
func (r *ContentRepository) FetchAll(ctx context.Context, kind entities.Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	end := r.tracker.Begin(kind)
	defer end()

	return r.resync(ctx, kind)
}

// Collection returns the kind's collection, fetching it on first access for
// the active world.
func (r *ContentRepository) Collection(ctx context.Context, kind entities.Kind) ([]entities.Entity, error) {
	if items, ok := r.cached(kind); ok {
		return items, nil
	}
	if err := r.FetchAll(ctx, kind); err != nil {
		return nil, err
	}
	items, _ := r.cached(kind)
	return items, nil
}

// Items returns the cached collection without any I/O. It is nil when the
// kind has not been fetched for the active world.
func (r *ContentRepository) Items(kind entities.Kind) []entities.Entity {
	items, _ := r.cached(kind)
	return items
}

// Get reads a single entity straight from the store.
func (r *ContentRepository) Get(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error) {
	if !kind.IsValid() {
		return entities.Entity{}, fmt.Errorf("unknown content kind %q", kind)
	}
	end := r.tracker.Begin(kind)
	defer end()

	scope, err := r.activeScope(kind, opFetch)
	if err != nil {
		return entities.Entity{}, err
	}
	e, err := r.store.Get(ctx, scope.WorldID, kind, id)
	if err != nil {
		r.tracker.Fail(kind, "Failed to fetch "+kind.Singular())
		return entities.Entity{}, fmt.Errorf("fetching %s %s: %w", kind.Singular(), id, err)
	}
	return e, nil
}

// Create submits payload and then refetches the kind once.
func (r *ContentRepository) Create(ctx context.Context, kind entities.Kind, payload entities.Payload) (entities.Entity, error) {
	if !kind.IsValid() {
		return entities.Entity{}, fmt.Errorf("unknown content kind %q", kind)
	}
	end := r.tracker.Begin(kind)
	defer end()

	scope, err := r.activeScope(kind, opCreate)
	if err != nil {
		return entities.Entity{}, err
	}
	created, err := r.store.Create(ctx, scope.WorldID, kind, payload)
	if err != nil {
		r.tracker.Fail(kind, failureMessage(opCreate, kind))
		return entities.Entity{}, fmt.Errorf("creating %s: %w", kind.Singular(), err)
	}
	r.logger.WithFields(logrus.Fields{"kind": kind, "id": created.ID, "world": scope.WorldID}).Debug("created entity")

	return created, r.resync(ctx, kind)
}

// Update submits patch for id and then refetches the kind once.
func (r *ContentRepository) Update(ctx context.Context, kind entities.Kind, id string, patch entities.Payload) (entities.Entity, error) {
	if !kind.IsValid() {
		return entities.Entity{}, fmt.Errorf("unknown content kind %q", kind)
	}
	end := r.tracker.Begin(kind)
	defer end()

	scope, err := r.activeScope(kind, opUpdate)
	if err != nil {
		return entities.Entity{}, err
	}
	updated, err := r.store.Update(ctx, scope.WorldID, kind, id, patch)
	if err != nil {
		r.tracker.Fail(kind, failureMessage(opUpdate, kind))
		return entities.Entity{}, fmt.Errorf("updating %s %s: %w", kind.Singular(), id, err)
	}
	r.logger.WithFields(logrus.Fields{"kind": kind, "id": id, "world": scope.WorldID}).Debug("updated entity")

	return updated, r.resync(ctx, kind)
}

// Delete removes id and then refetches the kind once.
func (r *ContentRepository) Delete(ctx context.Context, kind entities.Kind, id string) error {
	if !kind.IsValid() {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	end := r.tracker.Begin(kind)
	defer end()

	scope, err := r.activeScope(kind, opDelete)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, scope.WorldID, kind, id); err != nil {
		r.tracker.Fail(kind, failureMessage(opDelete, kind))
		return fmt.Errorf("deleting %s %s: %w", kind.Singular(), id, err)
	}
	r.logger.WithFields(logrus.Fields{"kind": kind, "id": id, "world": scope.WorldID}).Debug("deleted entity")

	return r.resync(ctx, kind)
}

// resync fetches the kind for the active scope and swaps the collection in.
// It does not touch the loading flag; callers own the outermost Begin.
func (r *ContentRepository) resync(ctx context.Context, kind entities.Kind) error {
	scope, err := r.activeScope(kind, opFetch)
	if err != nil {
		return err
	}

	items, err := r.store.List(ctx, scope.WorldID, kind)
	if err != nil {
		r.tracker.Fail(kind, failureMessage(opFetch, kind))
		return fmt.Errorf("fetching %s: %w", kind.Plural(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current := r.scopes.Scope(); current.Token != scope.Token {
		r.logger.WithFields(logrus.Fields{
			"kind":      kind,
			"world":     scope.WorldID,
			"token":     scope.Token,
			"new_token": current.Token,
		}).Debug("discarding stale fetch")
		return fmt.Errorf("fetching %s: %w", kind.Plural(), ErrStaleScope)
	}

	if items == nil {
		items = []entities.Entity{}
	}
	r.collections[kind] = &collection{token: scope.Token, items: items}
	return nil
}

func (r *ContentRepository) activeScope(kind entities.Kind, op operation) (Scope, error) {
	scope := r.scopes.Scope()
	if scope.WorldID == "" {
		r.tracker.Fail(kind, failureMessage(op, kind))
		return Scope{}, ErrNoActiveWorld
	}
	return scope, nil
}

func (r *ContentRepository) cached(kind entities.Kind) ([]entities.Entity, bool) {
	token := r.scopes.Scope().Token

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[kind]
	if !ok || c.token != token {
		return nil, false
	}
	out := make([]entities.Entity, len(c.items))
	copy(out, c.items)
	return out, true
}

func (r *ContentRepository) invalidate(scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, c := range r.collections {
		if c.token != scope.Token {
			delete(r.collections, k)
		}
	}
}
