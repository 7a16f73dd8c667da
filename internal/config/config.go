// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"3001"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	// AuthRateLimit is the number of /auth requests allowed per client IP per minute.
	AuthRateLimit int `envconfig:"AUTH_RATE_LIMIT" default:"20"`
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver     string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path       string `envconfig:"DB_PATH" default:"oficina.db"`
	DSN        string `envconfig:"DATABASE_DSN"`
	Debug      bool   `envconfig:"DB_DEBUG" default:"false"`
	Migrations bool   `envconfig:"MIGRATIONS" default:"false"`
	Seed       bool   `envconfig:"DB_SEED" default:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev       bool   `envconfig:"DEV" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// AuthConfig holds session and seed account settings.
type AuthConfig struct {
	SessionSecret string `envconfig:"SESSION_SECRET" default:"devsessionsecret"`
	RequireAuth   bool   `envconfig:"REQUIRE_AUTH" default:"false"`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Administrador"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("config: DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Server.AuthRateLimit <= 0 {
		return fmt.Errorf("config: AUTH_RATE_LIMIT must be positive")
	}
	if c.Auth.RequireAuth && !c.App.Dev && c.Auth.SessionSecret == "devsessionsecret" {
		return fmt.Errorf("config: SESSION_SECRET must be set when REQUIRE_AUTH is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}
