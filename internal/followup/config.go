package followup

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config tunes how follow-up requests fan out and wait.
type Config struct {
	MaxConcurrency  int    `toml:"max_concurrency"`
	CallTimeout     string `toml:"call_timeout"`
	ClassifyTimeout string `toml:"classify_timeout"`
	PersistTimeout  string `toml:"persist_timeout"`
	RetryWaitCap    string `toml:"retry_wait_cap"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxConcurrency  string
	CallTimeout     string
	ClassifyTimeout string
	PersistTimeout  string
	RetryWaitCap    string
}

// CallTimeoutDuration returns CallTimeout as a time.Duration.
func (c *Config) CallTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CallTimeout)
	return d
}

// ClassifyTimeoutDuration returns ClassifyTimeout as a time.Duration.
func (c *Config) ClassifyTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ClassifyTimeout)
	return d
}

// PersistTimeoutDuration bounds case store and blob writes, which run
// detached from request cancellation.
func (c *Config) PersistTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PersistTimeout)
	return d
}

// RetryWaitCapDuration returns RetryWaitCap as a time.Duration.
func (c *Config) RetryWaitCapDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryWaitCap)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxConcurrency != 0 {
		c.MaxConcurrency = overlay.MaxConcurrency
	}
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
	if overlay.ClassifyTimeout != "" {
		c.ClassifyTimeout = overlay.ClassifyTimeout
	}
	if overlay.PersistTimeout != "" {
		c.PersistTimeout = overlay.PersistTimeout
	}
	if overlay.RetryWaitCap != "" {
		c.RetryWaitCap = overlay.RetryWaitCap
	}
}

func (c *Config) loadDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.CallTimeout == "" {
		c.CallTimeout = "5m"
	}
	if c.ClassifyTimeout == "" {
		c.ClassifyTimeout = "45s"
	}
	if c.PersistTimeout == "" {
		c.PersistTimeout = "10s"
	}
	if c.RetryWaitCap == "" {
		c.RetryWaitCap = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxConcurrency != "" {
		if v := os.Getenv(env.MaxConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxConcurrency = n
			}
		}
	}
	if env.CallTimeout != "" {
		if v := os.Getenv(env.CallTimeout); v != "" {
			c.CallTimeout = v
		}
	}
	if env.ClassifyTimeout != "" {
		if v := os.Getenv(env.ClassifyTimeout); v != "" {
			c.ClassifyTimeout = v
		}
	}
	if env.PersistTimeout != "" {
		if v := os.Getenv(env.PersistTimeout); v != "" {
			c.PersistTimeout = v
		}
	}
	if env.RetryWaitCap != "" {
		if v := os.Getenv(env.RetryWaitCap); v != "" {
			c.RetryWaitCap = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.ClassifyTimeout); err != nil {
		return fmt.Errorf("invalid classify_timeout: %w", err)
	}
	if d, err := time.ParseDuration(c.PersistTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid persist_timeout: %q", c.PersistTimeout)
	}
	if d, err := time.ParseDuration(c.RetryWaitCap); err != nil || d < 0 {
		return fmt.Errorf("invalid retry_wait_cap: %q", c.RetryWaitCap)
	}
	return nil
}
