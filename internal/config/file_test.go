package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile_OverlaysOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "listen_addr: \":9090\"\ndatabase:\n  url: postgres://example/drone_ops\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %s, want :9090", cfg.ListenAddr)
	}
	if cfg.Database.URL != "postgres://example/drone_ops" {
		t.Errorf("database.url = %s, want the overridden value", cfg.Database.URL)
	}
	// log_level wasn't set in the file, so it keeps its default.
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %s, want default info", cfg.LogLevel)
	}
}

func TestLoadFromFile_MissingFileErrors(t *testing.T) {
	if _, err := LoadFromFile("/no/such/path/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestApplyEnvOverrides_PrecedenceOverFileAndDefaults(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("DRONEOPS_LISTEN_ADDR", ":7070")
	t.Setenv("DRONEOPS_SECRETS_BACKEND", "local")

	cfg.ApplyEnvOverrides()

	if cfg.ListenAddr != ":7070" {
		t.Errorf("listen_addr = %s, want :7070", cfg.ListenAddr)
	}
	if cfg.Secrets.Backend != "local" {
		t.Errorf("secrets.backend = %s, want local", cfg.Secrets.Backend)
	}
	// Unset env vars leave defaults untouched.
	if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("cache.redis_url = %s, want unchanged default", cfg.Cache.RedisURL)
	}
}

func TestValidate_RequiresDatabaseURLAndListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}

	cfg.Database.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an empty database url")
	}

	cfg = DefaultConfig()
	cfg.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an empty listen_addr")
	}
}
