// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/services"
	"github.com/ersonp/realmforge/internal/infrastructure/config"
)

// InitHandler sets up a realm workspace.
type InitHandler struct {
	logger logrus.FieldLogger
}

// NewInitHandler creates a new init handler.
func NewInitHandler(logger logrus.FieldLogger) *InitHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InitHandler{logger: logger}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath  string
	WorldsPath  string
	Owner       string
	ActiveWorld string
}

// Handle writes the default config and seeds the owner's first world.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("realm already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	scopes := services.NewWorldScopeManager(config.NewWorldsFile(basePath), cfg.Owner, h.logger)
	if err := scopes.Load(ctx); err != nil {
		return nil, fmt.Errorf("seeding worlds: %w", err)
	}

	result := &InitResult{
		ConfigPath: config.ConfigFilePath(basePath),
		WorldsPath: config.WorldsFilePath(basePath),
		Owner:      cfg.Owner,
	}
	if w := scopes.Current(); w != nil {
		result.ActiveWorld = w.Name
	}
	return result, nil
}
