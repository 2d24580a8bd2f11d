// Package config loads the layout service configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Events   EventsConfig   `yaml:"events"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SessionsConfig bounds the lifetime of editing sessions.
type SessionsConfig struct {
	MaxAge          string `yaml:"max_age"`
	IdleTimeout     string `yaml:"idle_timeout"`
	CleanupInterval string `yaml:"cleanup_interval"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// EventsConfig configures the in-process event bus.
type EventsConfig struct {
	Buffer int `yaml:"buffer"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{
			DSN: "file:formlayout.db?_pragma=foreign_keys(1)",
		},
		Sessions: SessionsConfig{
			MaxAge:          "24h",
			IdleTimeout:     "2h",
			CleanupInterval: "5m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Events: EventsConfig{
			Buffer: 256,
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		c.Server.Port = port
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	return nil
}

// Validate checks ports, durations and the log level.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	durations := []struct{ name, value string }{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"sessions.max_age", c.Sessions.MaxAge},
		{"sessions.idle_timeout", c.Sessions.IdleTimeout},
		{"sessions.cleanup_interval", c.Sessions.CleanupInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if v <= 0 {
			return fmt.Errorf("invalid %s: must be positive", d.name)
		}
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if c.Events.Buffer < 0 {
		return fmt.Errorf("invalid events.buffer: %d", c.Events.Buffer)
	}
	return nil
}

// MaxAge returns the absolute session lifetime.
func (c *Config) MaxAge() time.Duration { return duration(c.Sessions.MaxAge, 24*time.Hour) }

// IdleTimeout returns how long an untouched session survives.
func (c *Config) IdleTimeout() time.Duration { return duration(c.Sessions.IdleTimeout, 2*time.Hour) }

// CleanupInterval returns the period of the session janitor.
func (c *Config) CleanupInterval() time.Duration {
	return duration(c.Sessions.CleanupInterval, 5*time.Minute)
}

// ShutdownTimeout returns how long in-flight requests get on shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// NewLogger builds the zap logger described by the logging section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
