// Package config loads the service configuration from TOML files and
// FOLLOWUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/followup/internal/agent"
	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/followup"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
	"github.com/JaimeStill/followup/pkg/database"
	"github.com/JaimeStill/followup/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvFollowupEnv             = "FOLLOWUP_ENV"
	EnvFollowupShutdownTimeout = "FOLLOWUP_SHUTDOWN_TIMEOUT"
	EnvFollowupVersion         = "FOLLOWUP_VERSION"
	EnvFollowupStore           = "FOLLOWUP_STORE"
)

// Case store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the root configuration for the follow-up service.
type Config struct {
	Log             LogConfig        `toml:"log"`
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Agent           agent.Config     `toml:"agent"`
	Routing         routing.Config   `toml:"routing"`
	Followup        followup.Config  `toml:"followup"`
	Transport       transport.Config `toml:"transport"`
	Directory       directory.Config `toml:"directory"`
	Audit           audit.Config     `toml:"audit"`
	Store           string           `toml:"store"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the FOLLOWUP_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvFollowupEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout)
}

// UsesDatabase reports whether any configured component needs Postgres.
func (c *Config) UsesDatabase() bool {
	return c.Store == StorePostgres || c.Audit.Uses(audit.SinkPostgres)
}

// Load is LoadFile on config.toml in the working directory.
func Load() (*Config, error) {
	return LoadFile(BaseConfigFile)
}

// LoadFile reads the base config at path, merges the FOLLOWUP_ENV overlay
// found beside it, then applies environment overrides and defaults. A
// missing base file is not an error; defaults and the environment then
// supply everything.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	loaded, err := load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		cfg = loaded
	}

	if env := os.Getenv(EnvFollowupEnv); env != "" {
		overlayPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(OverlayConfigPattern, env))
		overlay, err := load(overlayPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("overlay: %w", err)
		default:
			cfg.Merge(overlay)
		}
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.Store != "" {
		c.Store = overlay.Store
	}
	c.Log.Merge(&overlay.Log)
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Routing.Merge(&overlay.Routing)
	c.Followup.Merge(&overlay.Followup)
	c.Transport.Merge(&overlay.Transport)
	c.Directory.Merge(&overlay.Directory)
	c.Audit.Merge(&overlay.Audit)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()
	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"log", c.Log.Finalize},
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"agent", func() error { return c.Agent.Finalize(agentEnv) }},
		{"routing", func() error { return c.Routing.Finalize(routingEnv) }},
		{"followup", func() error { return c.Followup.Finalize(followupEnv) }},
		{"transport", func() error { return c.Transport.Finalize(transportEnv) }},
		{"directory", func() error { return c.Directory.Finalize(directoryEnv) }},
		{"audit", func() error { return c.Audit.Finalize(auditEnv) }},
	}
	for _, sec := range sections {
		if err := sec.finalize(); err != nil {
			return fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Store == "" {
		c.Store = StorePostgres
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvFollowupShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvFollowupVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvFollowupStore); v != "" {
		c.Store = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
