package transport

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Transport providers.
const (
	ProviderSimulated = "simulated"
	ProviderHTTP      = "http"
)

// Config selects and configures the call provider.
type Config struct {
	Provider    string   `toml:"provider"`
	URL         string   `toml:"url"`
	Token       string   `toml:"token"`
	Timeout     string   `toml:"timeout"`
	FailureRate *float64 `toml:"failure_rate"`
	Seed        uint64   `toml:"seed"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider    string
	URL         string
	Token       string
	Timeout     string
	FailureRate string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Rate returns the simulated failure rate.
func (c *Config) Rate() float64 {
	if c.FailureRate == nil {
		return 0
	}
	return *c.FailureRate
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.FailureRate != nil {
		c.FailureRate = overlay.FailureRate
	}
	if overlay.Seed != 0 {
		c.Seed = overlay.Seed
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderSimulated
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.Provider != "" {
		if v := os.Getenv(env.Provider); v != "" {
			c.Provider = v
		}
	}
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.FailureRate != "" {
		if v := os.Getenv(env.FailureRate); v != "" {
			rate, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.FailureRate, err)
			}
			c.FailureRate = &rate
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderSimulated:
	case ProviderHTTP:
		if _, err := url.ParseRequestURI(c.URL); err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if r := c.Rate(); r < 0 || r > 1 {
		return fmt.Errorf("failure_rate must be within [0, 1], got %v", r)
	}
	return nil
}
