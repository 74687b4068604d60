package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	OwnerID string
	Spatial SpatialConfig
	Logger  logrus.FieldLogger
}

// Session bundles the per-user sync state: active world, shared loading and
// error flags, cached collections, and map hit-testing settings. Sessions
// share nothing, so one process can host many users.
type Session struct {
	Worlds  *WorldScopeManager
	Sync    *SyncStateTracker
	Content *ContentRepository

	spatial SpatialConfig
	logger  logrus.FieldLogger
}

// NewSession wires a session over the given stores.
func NewSession(worlds ports.WorldStore, content ports.ContentStore, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("owner", opts.OwnerID)

	spatial := opts.Spatial
	if spatial == (SpatialConfig{}) {
		spatial = DefaultSpatialConfig()
	}

	scopes := NewWorldScopeManager(worlds, opts.OwnerID, logger)
	tracker := NewSyncStateTracker()
	return &Session{
		Worlds:  scopes,
		Sync:    tracker,
		Content: NewContentRepository(content, scopes, tracker, logger),
		spatial: spatial,
		logger:  logger,
	}
}

// Spatial returns the hit-testing settings of the session.
func (s *Session) Spatial() SpatialConfig {
	return s.spatial
}

// LoadMap returns the map document with mapID from the active world's map
// collection, fetching the collection on first access.
func (s *Session) LoadMap(ctx context.Context, mapID string) (entities.MapDocument, error) {
	maps, err := s.Content.Collection(ctx, entities.KindMap)
	if err != nil {
		return entities.MapDocument{}, err
	}
	for _, m := range maps {
		if m.ID == mapID {
			return entities.DecodeMap(m)
		}
	}
	return entities.MapDocument{}, fmt.Errorf("map %s: %w", mapID, ports.ErrNotFound)
}

// OpenMap loads a map and creates a view of it on a width x height canvas.
func (s *Session) OpenMap(ctx context.Context, mapID string, width, height float64, renderer Renderer) (*MapView, error) {
	doc, err := s.LoadMap(ctx, mapID)
	if err != nil {
		return nil, err
	}
	return NewMapView(doc, s.spatial, width, height, renderer), nil
}

// ApplyChange resyncs the affected kind when ev belongs to the active world.
// Events of other worlds are ignored. It reports whether a resync ran.
func (s *Session) ApplyChange(ctx context.Context, ev entities.ChangeEvent) (bool, error) {
	if !ev.Kind.IsValid() || ev.WorldID != s.Worlds.Scope().WorldID {
		return false, nil
	}
	s.logger.WithFields(logrus.Fields{"op": ev.Op, "kind": ev.Kind, "id": ev.EntityID}).Debug("applying remote change")
	return true, s.Content.FetchAll(ctx, ev.Kind)
}

// Follow applies events from feed until ctx is done or the feed closes.
// Resync failures are logged and do not stop the loop.
func (s *Session) Follow(ctx context.Context, feed ports.ChangeFeed, applied func(entities.ChangeEvent)) error {
	events, err := feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to changes: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			ran, err := s.ApplyChange(ctx, ev)
			if err != nil {
				s.logger.WithError(err).WithField("kind", ev.Kind).Warn("resync after remote change failed")
				continue
			}
			if ran && applied != nil {
				applied(ev)
			}
		}
	}
}
