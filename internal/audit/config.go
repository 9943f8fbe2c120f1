package audit

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/followup/pkg/formatting"
)

// Sink names accepted in Config.Sinks.
const (
	SinkMemory   = "memory"
	SinkFile     = "jsonl"
	SinkPostgres = "postgres"
)

// Config holds audit trail settings.
type Config struct {
	Sinks        []string `toml:"sinks"`
	Path         string   `toml:"path"`
	MaxSize      string   `toml:"max_size"`
	Checksum     *bool    `toml:"checksum"`
	FaultBuffer  int      `toml:"fault_buffer"`
	WriteTimeout string   `toml:"write_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Sinks        string
	Path         string
	MaxSize      string
	Checksum     string
	FaultBuffer  string
	WriteTimeout string
}

// MaxSizeBytes returns MaxSize as a byte count.
func (c *Config) MaxSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxSize)
	return n
}

// ChecksumEnabled reports whether file records carry a checksum.
func (c *Config) ChecksumEnabled() bool {
	return c.Checksum == nil || *c.Checksum
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *Config) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// Uses reports whether the named sink is enabled.
func (c *Config) Uses(sink string) bool {
	return slices.Contains(c.Sinks, sink)
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
	if overlay.Sinks != nil {
		c.Sinks = overlay.Sinks
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.MaxSize != "" {
		c.MaxSize = overlay.MaxSize
	}
	if overlay.Checksum != nil {
		c.Checksum = overlay.Checksum
	}
	if overlay.FaultBuffer != 0 {
		c.FaultBuffer = overlay.FaultBuffer
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
}

func (c *Config) loadDefaults() {
	if len(c.Sinks) == 0 {
		c.Sinks = []string{SinkFile}
	}
	if c.Path == "" {
		c.Path = "data/audit/audit.jsonl"
	}
	if c.MaxSize == "" {
		c.MaxSize = "100MB"
	}
	if c.FaultBuffer == 0 {
		c.FaultBuffer = 64
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Sinks != "" {
		if v := os.Getenv(env.Sinks); v != "" {
			sinks := strings.Split(v, ",")
			c.Sinks = make([]string, 0, len(sinks))
			for _, s := range sinks {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					c.Sinks = append(c.Sinks, strings.ToLower(trimmed))
				}
			}
		}
	}
	if env.Path != "" {
		if v := os.Getenv(env.Path); v != "" {
			c.Path = v
		}
	}
	if env.MaxSize != "" {
		if v := os.Getenv(env.MaxSize); v != "" {
			c.MaxSize = v
		}
	}
	if env.Checksum != "" {
		if v := os.Getenv(env.Checksum); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Checksum = &b
			}
		}
	}
	if env.FaultBuffer != "" {
		if v := os.Getenv(env.FaultBuffer); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.FaultBuffer = n
			}
		}
	}
	if env.WriteTimeout != "" {
		if v := os.Getenv(env.WriteTimeout); v != "" {
			c.WriteTimeout = v
		}
	}
}

func (c *Config) validate() error {
	for _, s := range c.Sinks {
		switch s {
		case SinkMemory, SinkFile, SinkPostgres:
		default:
			return fmt.Errorf("unknown audit sink %q", s)
		}
	}
	if _, err := formatting.ParseBytes(c.MaxSize); err != nil {
		return fmt.Errorf("invalid max_size: %w", err)
	}
	if c.FaultBuffer < 0 {
		return fmt.Errorf("fault_buffer must not be negative: %d", c.FaultBuffer)
	}
	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write_timeout: %w", err)
	}
	return nil
}
