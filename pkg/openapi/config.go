package openapi

import "os"

// Config titles and describes the generated document.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	Title       string
	Description string
}

// Finalize applies env overrides, then fills blanks with defaults.
func (c *Config) Finalize(env *ConfigEnv) error {
	if env != nil {
		override(&c.Title, env.Title)
		override(&c.Description, env.Description)
	}
	if c.Title == "" {
		c.Title = "Followup API"
	}
	if c.Description == "" {
		c.Description = "Post-visit patient follow-up routing service."
	}
	return nil
}

// Merge copies non-empty fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
}

func override(dst *string, name string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
