package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Storage backends.
const (
	BackendAzure  = "azure"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config selects and configures the blob backend. An empty backend
// resolves to azure when an endpoint is set and to none otherwise.
type Config struct {
	Backend          string `toml:"backend"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// Env names the environment variables that override Config.
type Env struct {
	Backend          string
	ContainerName    string
	ConnectionString string
	AccountURL       string
}

// Finalize applies env overrides, resolves the backend, then validates.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		for name, dst := range map[string]*string{
			env.Backend:          &c.Backend,
			env.ContainerName:    &c.ContainerName,
			env.ConnectionString: &c.ConnectionString,
			env.AccountURL:       &c.AccountURL,
		} {
			if name == "" {
				continue
			}
			if v := os.Getenv(name); v != "" {
				*dst = v
			}
		}
	}

	if c.ContainerName == "" {
		c.ContainerName = "followup"
	}
	if c.Backend == "" {
		c.Backend = BackendNone
		if c.ConnectionString != "" || c.AccountURL != "" {
			c.Backend = BackendAzure
		}
	}
	return c.validate()
}

// Merge copies non-empty fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range map[*string]string{
		&c.Backend:          overlay.Backend,
		&c.ContainerName:    overlay.ContainerName,
		&c.ConnectionString: overlay.ConnectionString,
		&c.AccountURL:       overlay.AccountURL,
	} {
		if v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendNone:
		return nil
	case BackendAzure:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch {
	case c.ContainerName == "":
		return errors.New("container_name required")
	case c.ConnectionString == "" && c.AccountURL == "":
		return errors.New("azure backend requires connection_string or account_url")
	case c.ConnectionString != "" && c.AccountURL != "":
		return errors.New("connection_string and account_url are mutually exclusive")
	}
	if c.AccountURL != "" {
		if _, err := url.ParseRequestURI(c.AccountURL); err != nil {
			return fmt.Errorf("invalid account_url: %w", err)
		}
	}
	return nil
}
