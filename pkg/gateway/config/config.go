// Package config loads the server's environment-derived settings. Fields
// are parsed with envconfig from the GLASSCORE_ prefix, matching the
// convention used elsewhere in this codebase's lineage.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-derived setting the server needs at
// startup. DatabaseURI and WelcomeSoundURL are optional: an empty
// DatabaseURI means in-memory-only persistence, and an empty WelcomeSoundURL
// means a freshly connected device gets no welcome chime.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`
	Port int    `envconfig:"PORT" default:"8080"`

	DatabaseURI     string `envconfig:"DATABASE_URI" default:""`
	WelcomeSoundURL string `envconfig:"WELCOME_SOUND_URL" default:""`
	CookieSecret    string `envconfig:"COOKIE_SECRET" default:""`

	GracePeriod       time.Duration `envconfig:"GRACE_PERIOD" default:"60s"`
	SilenceWindow     time.Duration `envconfig:"SILENCE_WINDOW" default:"1500ms"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"15s"`
	AgentDeadline     time.Duration `envconfig:"AGENT_DEADLINE" default:"30s"`
	ShutdownGrace     time.Duration `envconfig:"SHUTDOWN_GRACE" default:"15s"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"10s"`
}

// Load parses Config from environment variables prefixed GLASSCORE_, e.g.
// GLASSCORE_DATABASE_URI, GLASSCORE_PORT.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("GLASSCORE", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.GracePeriod <= 0 {
		return Config{}, fmt.Errorf("GLASSCORE_GRACE_PERIOD must be > 0")
	}
	if cfg.SilenceWindow <= 0 {
		return Config{}, fmt.Errorf("GLASSCORE_SILENCE_WINDOW must be > 0")
	}
	if cfg.HeartbeatInterval <= 0 {
		return Config{}, fmt.Errorf("GLASSCORE_HEARTBEAT_INTERVAL must be > 0")
	}
	if cfg.AgentDeadline <= 0 {
		return Config{}, fmt.Errorf("GLASSCORE_AGENT_DEADLINE must be > 0")
	}
	return cfg, nil
}

// HasDatabase reports whether a durable store should be constructed.
func (c Config) HasDatabase() bool {
	return c.DatabaseURI != ""
}

// LogFields returns the subset of Config worth logging at startup, with the
// database URI redacted to avoid leaking credentials embedded in it.
func (c Config) LogFields() []any {
	dbConfigured := "false"
	if c.HasDatabase() {
		dbConfigured = "true"
	}
	return []any{
		slog.String("addr", c.Addr),
		slog.String("database_configured", dbConfigured),
		slog.Duration("grace_period", c.GracePeriod),
		slog.Duration("silence_window", c.SilenceWindow),
		slog.Duration("heartbeat_interval", c.HeartbeatInterval),
	}
}
