package routing

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSafetyTerms mark a flagged rationale as a safety concern.
var DefaultSafetyTerms = []string{
	NoteDowngraded,
	"safety",
	"urgent",
	"emergency",
	"chest pain",
	"shortness of breath",
	"suicid",
	"stroke",
	"severe",
	"allergic reaction",
}

const (
	DefaultEscalationThreshold = 0.5
	DefaultMaxRetries          = 3
)

// Config holds decision and transition policy.
type Config struct {
	EscalationThreshold *float64 `toml:"escalation_threshold"`
	MaxRetries          *int     `toml:"max_retries"`
	FollowUpInterval    string   `toml:"follow_up_interval"`
	RetryBackoff        string   `toml:"retry_backoff"`
	SafetyTerms         []string `toml:"safety_terms"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	EscalationThreshold string
	MaxRetries          string
	FollowUpInterval    string
	RetryBackoff        string
	SafetyTerms         string
}

// FollowUpIntervalDuration returns FollowUpInterval as a time.Duration.
func (c *Config) FollowUpIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.FollowUpInterval)
	return d
}

// RetryBackoffDuration returns RetryBackoff as a time.Duration.
func (c *Config) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
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

// Merge overwrites fields set in overlay. EscalationThreshold and
// MaxRetries are pointers so an explicit zero survives the merge.
func (c *Config) Merge(overlay *Config) {
	if overlay.EscalationThreshold != nil {
		c.EscalationThreshold = overlay.EscalationThreshold
	}
	if overlay.MaxRetries != nil {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.FollowUpInterval != "" {
		c.FollowUpInterval = overlay.FollowUpInterval
	}
	if overlay.RetryBackoff != "" {
		c.RetryBackoff = overlay.RetryBackoff
	}
	if overlay.SafetyTerms != nil {
		c.SafetyTerms = overlay.SafetyTerms
	}
}

func (c *Config) loadDefaults() {
	if c.EscalationThreshold == nil {
		threshold := DefaultEscalationThreshold
		c.EscalationThreshold = &threshold
	}
	if c.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.MaxRetries = &retries
	}
	if c.FollowUpInterval == "" {
		c.FollowUpInterval = "720h"
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "2s"
	}
	if len(c.SafetyTerms) == 0 {
		c.SafetyTerms = DefaultSafetyTerms
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.EscalationThreshold != "" {
		if v := os.Getenv(env.EscalationThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.EscalationThreshold = &f
			}
		}
	}
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRetries = &n
			}
		}
	}
	if env.FollowUpInterval != "" {
		if v := os.Getenv(env.FollowUpInterval); v != "" {
			c.FollowUpInterval = v
		}
	}
	if env.RetryBackoff != "" {
		if v := os.Getenv(env.RetryBackoff); v != "" {
			c.RetryBackoff = v
		}
	}
	if env.SafetyTerms != "" {
		if v := os.Getenv(env.SafetyTerms); v != "" {
			terms := strings.Split(v, ",")
			c.SafetyTerms = make([]string, 0, len(terms))
			for _, term := range terms {
				if trimmed := strings.TrimSpace(term); trimmed != "" {
					c.SafetyTerms = append(c.SafetyTerms, trimmed)
				}
			}
		}
	}
}

func (c *Config) validate() error {
	if t := *c.EscalationThreshold; t < 0 || t > 1 {
		return fmt.Errorf("escalation_threshold must be within [0,1]: %v", t)
	}
	if *c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative: %d", *c.MaxRetries)
	}
	if _, err := time.ParseDuration(c.FollowUpInterval); err != nil {
		return fmt.Errorf("invalid follow_up_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retry_backoff: %w", err)
	}
	return nil
}
