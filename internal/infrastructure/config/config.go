// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for realm configuration.
	DefaultConfigDir = ".realm"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultWorldsFile is the default worlds file name.
	DefaultWorldsFile = "worlds.yaml"
)

// Storage backends.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static configuration (read-only after init).
type Config struct {
	Owner   string        `yaml:"owner,omitempty" env:"REALM_OWNER"`
	Remote  RemoteConfig  `yaml:"remote,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Map     MapConfig     `yaml:"map,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
}

// RemoteConfig holds the address of the content service.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url,omitempty" env:"REALM_API_URL"`
	Timeout time.Duration `yaml:"timeout,omitempty" env:"REALM_API_TIMEOUT"`
}

// StorageConfig selects where content is kept.
type StorageConfig struct {
	// Backend is "remote" (content service) or "local" (fallback database).
	Backend string `yaml:"backend,omitempty" env:"REALM_STORAGE"`
	// Path is the local fallback database. Relative paths are resolved
	// against the project directory.
	Path string `yaml:"path,omitempty" env:"REALM_LOCAL_PATH"`
}

// ServerConfig holds settings for `realm serve`.
type ServerConfig struct {
	Addr   string `yaml:"addr,omitempty" env:"REALM_LISTEN_ADDR"`
	DBPath string `yaml:"db_path,omitempty" env:"REALM_DB_PATH"`
}

// MapConfig tunes map hit-testing and the default canvas size.
type MapConfig struct {
	MarkerRadius float64 `yaml:"marker_radius,omitempty"`
	RegionRadius float64 `yaml:"region_radius,omitempty"`
	// TieBreak is "first" or "nearest".
	TieBreak     string  `yaml:"tie_break,omitempty"`
	CanvasWidth  float64 `yaml:"canvas_width,omitempty"`
	CanvasHeight float64 `yaml:"canvas_height,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"LOG_FORMAT"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Owner: "local",
		Remote: RemoteConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendRemote,
			Path:    filepath.Join(DefaultConfigDir, "local.db"),
		},
		Server: ServerConfig{
			Addr:   ":5000",
			DBPath: filepath.Join(DefaultConfigDir, "server.db"),
		},
		Map: MapConfig{
			MarkerRadius: 15,
			RegionRadius: 30,
			TieBreak:     "first",
			CanvasWidth:  800,
			CanvasHeight: 600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the .realm directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'realm init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Unset variables
// leave the file value in place.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values that cannot be fixed up later.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendRemote, BackendLocal:
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q (valid: remote, local)", c.Storage.Backend))
	}

	if strings.TrimSpace(c.Owner) == "" {
		errs = append(errs, errors.New("owner: must not be empty"))
	}

	if c.Map.MarkerRadius < 0 || c.Map.RegionRadius < 0 {
		errs = append(errs, errors.New("map: radii must not be negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (valid: text, json)", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ConfigDir returns the path to the .realm config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// WorldsFilePath returns the path to the worlds file.
func WorldsFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultWorldsFile)
}

// ResolvePath makes p absolute relative to basePath.
func ResolvePath(basePath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}

// LocalStorePath returns the fallback database path for an owner. Each owner
// gets a separate file next to the configured path.
func (c *Config) LocalStorePath(basePath string) string {
	p := ResolvePath(basePath, c.Storage.Path)
	dir, file := filepath.Split(p)
	return filepath.Join(dir, "owners", SanitizeName(c.Owner), file)
}

// SanitizeName converts a name to a safe path segment.
func SanitizeName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}
