package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/application/handlers"
	"github.com/ersonp/realmforge/internal/domain/ports"
	"github.com/ersonp/realmforge/internal/domain/services"
	"github.com/ersonp/realmforge/internal/infrastructure/config"
	"github.com/ersonp/realmforge/internal/infrastructure/localstore"
	"github.com/ersonp/realmforge/internal/infrastructure/logging"
	"github.com/ersonp/realmforge/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/realmforge/internal/infrastructure/remote"
)

// Deps holds high-level dependencies for commands.
// Only handlers and the session are exposed; stores stay internal.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Session *services.Session

	Worlds  *handlers.WorldHandler
	Content *handlers.ContentHandler
	Maps    *handlers.MapHandler
	Import  *handlers.ImportHandler

	// Remote is nil on the local backend.
	Remote *remote.Client

	// purgeWorld removes a deleted world's content where the CLI owns it.
	purgeWorld func(ctx context.Context, worldID string) error
}

// loadConfig reads config from the working directory and applies the
// global flags.
func loadConfig() (string, *config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	if globalOwner != "" {
		cfg.Owner = globalOwner
	}
	return cwd, cfg, nil
}

// withDeps builds a session for the configured owner and storage backend,
// applies --world, then calls fn. It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)

	tieBreak, err := services.ParseTieBreak(cfg.Map.TieBreak)
	if err != nil {
		return err
	}

	deps := &Deps{Config: cfg, Logger: logger}

	var store ports.ContentStore
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		dbPath := cfg.LocalStorePath(cwd)
		repo, err := sqlite.Open(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("opening local store %s: %w", dbPath, err)
		}
		defer repo.Close()

		local := localstore.New(sqlite.NewSnapshotStore(repo))
		store = local
		deps.purgeWorld = local.DeleteWorld
		logger.WithField("path", dbPath).Debug("using local content store")
	default:
		client, err := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger)
		if err != nil {
			return fmt.Errorf("creating content client: %w", err)
		}
		store = client
		deps.Remote = client
		logger.WithField("url", client.BaseURL()).Debug("using remote content service")
	}

	session := services.NewSession(config.NewWorldsFile(cwd), store, services.SessionOptions{
		OwnerID: cfg.Owner,
		Spatial: services.SpatialConfig{
			MarkerRadius: cfg.Map.MarkerRadius,
			RegionRadius: cfg.Map.RegionRadius,
			TieBreak:     tieBreak,
		},
		Logger: logger,
	})
	if err := session.Worlds.Load(ctx); err != nil {
		return fmt.Errorf("loading worlds: %w", err)
	}

	deps.Session = session
	deps.Worlds = handlers.NewWorldHandler(session.Worlds)
	deps.Content = handlers.NewContentHandler(session)
	deps.Maps = handlers.NewMapHandler(session)
	deps.Import = handlers.NewImportHandler(services.NewImportService(session.Content))

	// --world selects a world for this invocation only.
	if globalWorld != "" {
		w, err := deps.Worlds.Resolve(globalWorld)
		if err != nil {
			return err
		}
		session.Worlds.SetCurrentWorld(&w)
	}

	return fn(deps)
}
