package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

var (
	// ErrWorldNotFound is returned when a world id is not in the world list.
	ErrWorldNotFound = errors.New("world not found")

	// ErrNoActiveWorld is returned by content operations when no world is active.
	ErrNoActiveWorld = errors.New("no world selected")
)

// Scope identifies the active world at a moment. Token increases on every
// change of active world, so two scopes with the same token are the same
// selection even if the world was re-selected in between.
type Scope struct {
	WorldID string
	Token   uint64
}

// WorldScopeManager tracks an owner's world list and the active world.
// It does not own content collections: observers registered with
// OnScopeChange are told when the active world changes.
type WorldScopeManager struct {
	store   ports.WorldStore
	ownerID string
	logger  logrus.FieldLogger

	// now and newID are swapped in tests.
	now   func() time.Time
	newID func() string

	mu        sync.RWMutex
	worlds    []entities.World
	current   *entities.World
	token     uint64
	observers []func(Scope)
}

// NewWorldScopeManager creates a manager for ownerID. A nil store keeps the
// world list in memory only.
func NewWorldScopeManager(store ports.WorldStore, ownerID string, logger logrus.FieldLogger) *WorldScopeManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WorldScopeManager{
		store:   store,
		ownerID: ownerID,
		logger:  logger.WithField("owner", ownerID),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Load reads the owner's worlds and active selection from the store. An
// owner without worlds gets a default world, which becomes active.
func (m *WorldScopeManager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	worlds, err := m.store.LoadWorlds(ctx, m.ownerID)
	if err != nil {
		return fmt.Errorf("loading worlds: %w", err)
	}

	if len(worlds) == 0 {
		seed := m.newWorld(entities.DefaultWorldName, entities.DefaultWorldDescription, "")
		worlds = []entities.World{seed}
		if err := m.store.SaveWorlds(ctx, m.ownerID, worlds); err != nil {
			return fmt.Errorf("seeding default world: %w", err)
		}
		if err := m.store.SaveActiveWorld(ctx, m.ownerID, seed.ID); err != nil {
			return fmt.Errorf("saving active world: %w", err)
		}
		m.logger.WithField("world", seed.ID).Info("seeded default world")
	}

	activeID, err := m.store.LoadActiveWorld(ctx, m.ownerID)
	if err != nil {
		return fmt.Errorf("loading active world: %w", err)
	}

	m.mu.Lock()
	m.worlds = worlds
	active := findWorld(worlds, activeID)
	if active == nil && len(worlds) > 0 {
		active = &worlds[0]
	}
	changed := m.setCurrentLocked(active)
	scope := m.scopeLocked()
	m.mu.Unlock()

	if changed {
		m.notify(scope)
	}
	return nil
}

// Worlds returns a copy of the world list.
func (m *WorldScopeManager) Worlds() []entities.World {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.World, len(m.worlds))
	copy(out, m.worlds)
	return out
}

// Current returns a copy of the active world, or nil.
func (m *WorldScopeManager) Current() *entities.World {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	w := *m.current
	return &w
}

// Scope returns the active scope.
func (m *WorldScopeManager) Scope() Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scopeLocked()
}

// Get returns the world with id.
func (m *WorldScopeManager) Get(id string) (entities.World, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w := findWorld(m.worlds, id)
	if w == nil {
		return entities.World{}, m.notFoundLocked(id)
	}
	return *w, nil
}

// OnScopeChange registers fn to run after every change of active world.
func (m *WorldScopeManager) OnScopeChange(fn func(Scope)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// SetCurrentWorld replaces the active world (nil clears it). It does not
// refetch any content; scope observers are notified instead.
func (m *WorldScopeManager) SetCurrentWorld(world *entities.World) {
	m.mu.Lock()
	changed := m.setCurrentLocked(world)
	scope := m.scopeLocked()
	m.mu.Unlock()

	if changed {
		m.logger.WithFields(logrus.Fields{"world": scope.WorldID, "token": scope.Token}).Debug("active world changed")
		m.notify(scope)
	}
}

// Use activates the world with id and persists the selection.
func (m *WorldScopeManager) Use(ctx context.Context, id string) (entities.World, error) {
	w, err := m.Get(id)
	if err != nil {
		return entities.World{}, err
	}
	if m.store != nil {
		if err := m.store.SaveActiveWorld(ctx, m.ownerID, w.ID); err != nil {
			return entities.World{}, fmt.Errorf("saving active world: %w", err)
		}
	}
	m.SetCurrentWorld(&w)
	return w, nil
}

// CreateWorld allocates a world with a unique id and appends it to the list.
func (m *WorldScopeManager) CreateWorld(ctx context.Context, name, description, imageURL string) (entities.World, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.World{}, errors.New("world name is required")
	}

	w := m.newWorld(name, description, imageURL)

	m.mu.Lock()
	defer m.mu.Unlock()

	updated := append(m.worldsCopyLocked(), w)
	if err := m.saveLocked(ctx, updated); err != nil {
		return entities.World{}, err
	}
	m.worlds = updated

	m.logger.WithFields(logrus.Fields{"world": w.ID, "name": w.Name}).Info("created world")
	return w, nil
}

// UpdateWorld merges patch into the world with id.
func (m *WorldScopeManager) UpdateWorld(ctx context.Context, id string, patch entities.WorldPatch) (entities.World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := m.worldsCopyLocked()
	idx := indexOfWorld(updated, id)
	if idx < 0 {
		return entities.World{}, m.notFoundLocked(id)
	}

	patch.Apply(&updated[idx])
	if strings.TrimSpace(updated[idx].Name) == "" {
		return entities.World{}, errors.New("world name is required")
	}
	updated[idx].UpdatedAt = m.now()

	if err := m.saveLocked(ctx, updated); err != nil {
		return entities.World{}, err
	}
	m.worlds = updated

	// Same world id, so the scope token stays put.
	if m.current != nil && m.current.ID == id {
		w := updated[idx]
		m.current = &w
	}
	return updated[idx], nil
}

// DeleteWorld removes the world with id. Deleting the active world activates
// the first remaining world, or none.
func (m *WorldScopeManager) DeleteWorld(ctx context.Context, id string) error {
	m.mu.Lock()

	idx := indexOfWorld(m.worlds, id)
	if idx < 0 {
		err := m.notFoundLocked(id)
		m.mu.Unlock()
		return err
	}

	updated := make([]entities.World, 0, len(m.worlds)-1)
	updated = append(updated, m.worlds[:idx]...)
	updated = append(updated, m.worlds[idx+1:]...)

	if err := m.saveLocked(ctx, updated); err != nil {
		m.mu.Unlock()
		return err
	}
	m.worlds = updated

	changed := false
	if m.current != nil && m.current.ID == id {
		var next *entities.World
		if len(updated) > 0 {
			next = &updated[0]
		}
		changed = m.setCurrentLocked(next)
		if m.store != nil {
			nextID := ""
			if next != nil {
				nextID = next.ID
			}
			if err := m.store.SaveActiveWorld(ctx, m.ownerID, nextID); err != nil {
				m.logger.WithError(err).Warn("saving active world after delete")
			}
		}
	}
	scope := m.scopeLocked()
	m.mu.Unlock()

	m.logger.WithField("world", id).Info("deleted world")
	if changed {
		m.notify(scope)
	}
	return nil
}

func (m *WorldScopeManager) newWorld(name, description, imageURL string) entities.World {
	now := m.now()
	return entities.World{
		ID:          m.newID(),
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		OwnerID:     m.ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// setCurrentLocked swaps the active world and reports whether the world id
// changed, advancing the token if so.
func (m *WorldScopeManager) setCurrentLocked(world *entities.World) bool {
	prevID := ""
	if m.current != nil {
		prevID = m.current.ID
	}
	if world == nil {
		m.current = nil
	} else {
		w := *world
		m.current = &w
	}
	nextID := ""
	if m.current != nil {
		nextID = m.current.ID
	}
	if prevID == nextID {
		return false
	}
	m.token++
	return true
}

func (m *WorldScopeManager) scopeLocked() Scope {
	s := Scope{Token: m.token}
	if m.current != nil {
		s.WorldID = m.current.ID
	}
	return s
}

func (m *WorldScopeManager) saveLocked(ctx context.Context, worlds []entities.World) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SaveWorlds(ctx, m.ownerID, worlds); err != nil {
		return fmt.Errorf("saving worlds: %w", err)
	}
	return nil
}

func (m *WorldScopeManager) worldsCopyLocked() []entities.World {
	out := make([]entities.World, len(m.worlds), len(m.worlds)+1)
	copy(out, m.worlds)
	return out
}

func (m *WorldScopeManager) notFoundLocked(id string) error {
	if len(m.worlds) == 0 {
		return fmt.Errorf("world %q: %w (no worlds configured)", id, ErrWorldNotFound)
	}
	var b strings.Builder
	for i, w := range m.worlds {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= 5 {
			b.WriteString("...")
			break
		}
		b.WriteString(w.ID)
	}
	return fmt.Errorf("world %q: %w (available: %s)", id, ErrWorldNotFound, b.String())
}

func (m *WorldScopeManager) notify(scope Scope) {
	m.mu.RLock()
	observers := make([]func(Scope), len(m.observers))
	copy(observers, m.observers)
	m.mu.RUnlock()

	for _, fn := range observers {
		fn(scope)
	}
}

func findWorld(worlds []entities.World, id string) *entities.World {
	if id == "" {
		return nil
	}
	idx := indexOfWorld(worlds, id)
	if idx < 0 {
		return nil
	}
	return &worlds[idx]
}

func indexOfWorld(worlds []entities.World, id string) int {
	for i := range worlds {
		if worlds[i].ID == id {
			return i
		}
	}
	return -1
}
