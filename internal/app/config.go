package app

import (
	"fmt"
	"net"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	coredatabase "github.com/m3rciful/pharmtutor/core/database"
)

// ContentConfig locates the catalog.
type ContentConfig struct {
	// Path of the catalog YAML; empty serves the embedded catalog.
	Path string `yaml:"path" envconfig:"CONTENT_PATH" validate:"required_if=Watch true"`
	// Watch reloads the catalog when the file changes.
	Watch bool `yaml:"watch" envconfig:"CONTENT_WATCH"`
}

// OpsConfig configures the health and metrics server.
type OpsConfig struct {
	// Listen address such as ":9090"; empty disables the server.
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// SessionConfig bounds in-memory conversation sessions.
type SessionConfig struct {
	IdleMinutes int `yaml:"idle_minutes" envconfig:"SESSION_IDLE_MINUTES" validate:"gte=0"`
}

// IdleTTL returns how long an untouched session is kept.
func (c SessionConfig) IdleTTL() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// DefaultSessionIdleMinutes keeps sessions for a day.
const DefaultSessionIdleMinutes = 24 * 60

// Config is the full bot configuration: the shared core sections plus the
// bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Content  ContentConfig       `yaml:"content"`
	Ops      OpsConfig           `yaml:"ops"`
	Session  SessionConfig       `yaml:"session"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, overlays the environment and normalizes every section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	c.Content.Path = strings.TrimSpace(c.Content.Path)
	c.Ops.Listen = strings.TrimSpace(c.Ops.Listen)
	if err := coreconfig.Validate(c); err != nil {
		return err
	}
	if c.Ops.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Ops.Listen); err != nil {
			return fmt.Errorf("config: invalid ops.listen %q: %w", c.Ops.Listen, err)
		}
	}
	if c.Session.IdleMinutes == 0 {
		c.Session.IdleMinutes = DefaultSessionIdleMinutes
	}
	return nil
}
