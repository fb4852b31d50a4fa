package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GLASSCORE_ADDR", "GLASSCORE_PORT", "GLASSCORE_DATABASE_URI",
		"GLASSCORE_WELCOME_SOUND_URL", "GLASSCORE_PROCESSING_SOUND_URL",
		"GLASSCORE_COOKIE_SECRET", "GLASSCORE_GRACE_PERIOD",
		"GLASSCORE_SILENCE_WINDOW", "GLASSCORE_HEARTBEAT_INTERVAL",
		"GLASSCORE_AGENT_DEADLINE", "GLASSCORE_SHUTDOWN_GRACE",
		"GLASSCORE_READ_HEADER_TIMEOUT",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.HasDatabase() {
		t.Fatal("expected no database configured by default")
	}
	if cfg.GracePeriod != 60*time.Second {
		t.Fatalf("GracePeriod = %v", cfg.GracePeriod)
	}
}

func TestLoad_DatabaseURIFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("GLASSCORE_DATABASE_URI", "postgres://localhost/glasscore")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.HasDatabase() {
		t.Fatal("expected database configured")
	}
}

func TestLoad_RejectsZeroGracePeriod(t *testing.T) {
	clearEnv(t)
	os.Setenv("GLASSCORE_GRACE_PERIOD", "0s")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a zero grace period")
	}
}
