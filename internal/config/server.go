package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost         = "FOLLOWUP_SERVER_HOST"
	EnvServerPort         = "FOLLOWUP_SERVER_PORT"
	EnvServerReadTimeout  = "FOLLOWUP_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout = "FOLLOWUP_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout  = "FOLLOWUP_SERVER_IDLE_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. WriteTimeout bounds a whole
// follow-up submission, which may span several call attempts, so it defaults
// well above the per-call timeout.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
	IdleTimeout  string `toml:"idle_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration  { return mustDuration(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration { return mustDuration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration  { return mustDuration(c.IdleTimeout) }

// durations pairs each timeout field with its TOML key, env var and default.
func (c *ServerConfig) durations() []durationField {
	return []durationField{
		{"read_timeout", EnvServerReadTimeout, "30s", &c.ReadTimeout},
		{"write_timeout", EnvServerWriteTimeout, "30m", &c.WriteTimeout},
		{"idle_timeout", EnvServerIdleTimeout, "2m", &c.IdleTimeout},
	}
}

// Finalize fills defaults, applies FOLLOWUP_SERVER_* overrides, and
// validates the port and timeouts.
func (c *ServerConfig) Finalize() error {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}

	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvServerPort, err)
		}
		c.Port = port
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	for _, f := range c.durations() {
		if err := f.resolve(); err != nil {
			return err
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	theirs := overlay.durations()
	for i, f := range c.durations() {
		if v := *theirs[i].dst; v != "" {
			*f.dst = v
		}
	}
}

type durationField struct {
	key, env, fallback string
	dst                *string
}

func (f durationField) resolve() error {
	if v := os.Getenv(f.env); v != "" {
		*f.dst = v
	}
	if *f.dst == "" {
		*f.dst = f.fallback
	}
	d, err := time.ParseDuration(*f.dst)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", f.key, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", f.key)
	}
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
