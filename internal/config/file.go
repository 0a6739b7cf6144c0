package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DroneOpsConfig is the control plane's server configuration: the pieces
// that aren't per-request. Precedence (highest first): command-line flags,
// environment variables (DRONEOPS_*), this YAML file, then DefaultConfig.
//
// # Example Config File
//
//	listen_addr: ":8080"
//	log_level: info
//
//	database:
//	  url: postgres://drone-ops@localhost:5432/drone_ops
//
//	cache:
//	  redis_url: redis://localhost:6379/0
//
//	secrets:
//	  backend: auto
//	  local_key_dir: /var/lib/drone-ops/keys
type DroneOpsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Secrets  SecretsConfig  `yaml:"secrets"`
}

// DatabaseConfig configures the Postgres-backed store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig configures the Redis-backed device cache.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// SecretsConfig selects the signing key store backend.
type SecretsConfig struct {
	Backend     string `yaml:"backend"`
	LocalKeyDir string `yaml:"local_key_dir,omitempty"`
}

// DefaultConfig returns the configuration used when no file, env var, or
// flag overrides a field.
func DefaultConfig() *DroneOpsConfig {
	return &DroneOpsConfig{
		ListenAddr: ":8080",
		LogLevel:   "info",
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/drone_ops",
		},
		Cache: CacheConfig{
			RedisURL: "redis://localhost:6379/0",
		},
		Secrets: SecretsConfig{
			Backend: "auto",
		},
	}
}

// LoadFromFile reads and parses a YAML config file, starting from
// DefaultConfig so unset fields keep their defaults.
func LoadFromFile(path string) (*DroneOpsConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides overlays DRONEOPS_* environment variables onto cfg.
func (c *DroneOpsConfig) ApplyEnvOverrides() {
	if v := os.Getenv("DRONEOPS_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DRONEOPS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DRONEOPS_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DRONEOPS_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("DRONEOPS_SECRETS_BACKEND"); v != "" {
		c.Secrets.Backend = v
	}
	if v := os.Getenv("DRONEOPS_LOCAL_KEY_DIR"); v != "" {
		c.Secrets.LocalKeyDir = v
	}
}

// Validate checks that required fields are present.
func (c *DroneOpsConfig) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	return nil
}
