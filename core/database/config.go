// Package database opens the progress database and applies its schema.
// PostgreSQL runs through lib/pq, SQLite through the pure-Go modernc driver.
package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the database section.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER" validate:"oneof=postgres sqlite"`
	Path           string `yaml:"path" envconfig:"DB_PATH" validate:"required_if=Driver sqlite"`
	Host           string `yaml:"host" envconfig:"DB_HOST" validate:"required_if=Driver postgres"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME" validate:"required_if=Driver postgres"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS" validate:"gte=0"`
}

// Normalize defaults the driver to postgres, validates the fields it needs
// and sizes the pool. SQLite gets a single connection.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	c.Path = strings.TrimSpace(c.Path)
	if err := coreconfig.Validate(c); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	switch c.Driver {
	case DriverPostgres:
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections == 0 {
			c.MaxConnections = 10
		}
	case DriverSQLite:
		c.MaxConnections = 1
	}
	return nil
}

// DSN is the data source name handed to sqlx.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return c.postgresURL().String()
}

// MigrateURL is the database URL in golang-migrate form.
func (c Config) MigrateURL() string {
	if c.Driver == DriverSQLite {
		return "sqlite://" + c.Path
	}
	return c.postgresURL().String()
}

func (c Config) postgresURL() *url.URL {
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
}

// target names the database in logs without credentials.
func (c Config) target() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return net.JoinHostPort(c.Host, c.Port) + "/" + c.Name
}
