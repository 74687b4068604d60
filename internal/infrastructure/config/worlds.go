package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// WorldsConfig holds every owner's world list and active selection (read/write).
type WorldsConfig struct {
	Owners map[string]OwnerWorlds `yaml:"owners,omitempty"`
}

// OwnerWorlds holds one owner's worlds.
type OwnerWorlds struct {
	Active string           `yaml:"active,omitempty"`
	Worlds []entities.World `yaml:"worlds,omitempty"`
}

// LoadWorlds loads world configuration from the .realm directory.
func LoadWorlds(basePath string) (*WorldsConfig, error) {
	data, err := os.ReadFile(WorldsFilePath(basePath))
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &WorldsConfig{
			Owners: make(map[string]OwnerWorlds),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading worlds file: %w", err)
	}

	var cfg WorldsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing worlds file: %w", err)
	}

	if cfg.Owners == nil {
		cfg.Owners = make(map[string]OwnerWorlds)
	}

	return &cfg, nil
}

// Save writes the worlds configuration to the worlds file.
func (w *WorldsConfig) Save(basePath string) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshaling worlds config: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a file.
	tmp, err := os.CreateTemp(ConfigDir(basePath), DefaultWorldsFile+".*")
	if err != nil {
		return fmt.Errorf("writing worlds file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing worlds file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing worlds file: %w", err)
	}
	if err := os.Rename(tmp.Name(), WorldsFilePath(basePath)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing worlds file: %w", err)
	}

	return nil
}

// WorldsExists checks if a worlds file exists in the given path.
func WorldsExists(basePath string) bool {
	_, err := os.Stat(WorldsFilePath(basePath))
	return err == nil
}

// WorldsFile is a ports.WorldStore backed by .realm/worlds.yaml.
// Every call re-reads the file, so several processes see each other's changes.
type WorldsFile struct {
	basePath string
	mu       sync.Mutex
}

// NewWorldsFile creates a world store rooted at basePath.
func NewWorldsFile(basePath string) *WorldsFile {
	return &WorldsFile{basePath: filepath.Clean(basePath)}
}

// LoadWorlds returns the owner's worlds.
func (f *WorldsFile) LoadWorlds(_ context.Context, ownerID string) ([]entities.World, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := LoadWorlds(f.basePath)
	if err != nil {
		return nil, err
	}
	return cfg.Owners[ownerID].Worlds, nil
}

// SaveWorlds replaces the owner's worlds.
func (f *WorldsFile) SaveWorlds(_ context.Context, ownerID string, worlds []entities.World) error {
	return f.update(ownerID, func(o *OwnerWorlds) { o.Worlds = worlds })
}

// LoadActiveWorld returns the owner's active world id, or "".
func (f *WorldsFile) LoadActiveWorld(_ context.Context, ownerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := LoadWorlds(f.basePath)
	if err != nil {
		return "", err
	}
	return cfg.Owners[ownerID].Active, nil
}

// SaveActiveWorld stores the owner's active world id.
func (f *WorldsFile) SaveActiveWorld(_ context.Context, ownerID, worldID string) error {
	return f.update(ownerID, func(o *OwnerWorlds) { o.Active = worldID })
}

func (f *WorldsFile) update(ownerID string, change func(*OwnerWorlds)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := LoadWorlds(f.basePath)
	if err != nil {
		return err
	}
	o := cfg.Owners[ownerID]
	change(&o)
	cfg.Owners[ownerID] = o
	return cfg.Save(f.basePath)
}
