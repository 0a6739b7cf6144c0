package secrets

import (
	"fmt"
	"log/slog"
	"os"
)

// Config holds configuration for the signing key store backend.
type Config struct {
	// Backend specifies which backend to use: "1password", "local", or "auto".
	// "auto" (default) uses 1Password Connect if configured, otherwise local.
	Backend string

	// 1Password Connect configuration, set via OP_CONNECT_HOST/OP_CONNECT_TOKEN.
	OnePasswordHost  string
	OnePasswordToken string

	// 1Password vault ID (default: "drone-ops keys")
	OnePasswordVault string

	// Local storage directory (default: ~/.drone-ops/keys)
	LocalKeyDir string
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Backend:          getEnv("DRONEOPS_SECRETS_BACKEND", "auto"),
		OnePasswordHost:  os.Getenv("OP_CONNECT_HOST"),
		OnePasswordToken: os.Getenv("OP_CONNECT_TOKEN"),
		OnePasswordVault: getEnv("OP_VAULT_ID", "drone-ops keys"),
		LocalKeyDir:      os.Getenv("DRONEOPS_KEY_DIR"),
	}
}

// NewKeyStore creates a SigningKeyStore based on configuration.
func NewKeyStore(cfg Config, logger *slog.Logger) (SigningKeyStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "auto"
	}

	switch backend {
	case "1password":
		if cfg.OnePasswordHost == "" || cfg.OnePasswordToken == "" {
			return nil, fmt.Errorf("1Password backend requested but OP_CONNECT_HOST/OP_CONNECT_TOKEN not set")
		}
		return NewOnePasswordKeyStore(OnePasswordConfig{
			Host:    cfg.OnePasswordHost,
			Token:   cfg.OnePasswordToken,
			VaultID: cfg.OnePasswordVault,
		}, logger)

	case "local":
		return NewLocalKeyStore(cfg.LocalKeyDir, logger)

	case "auto":
		if cfg.OnePasswordHost != "" && cfg.OnePasswordToken != "" {
			ks, err := NewOnePasswordKeyStore(OnePasswordConfig{
				Host:    cfg.OnePasswordHost,
				Token:   cfg.OnePasswordToken,
				VaultID: cfg.OnePasswordVault,
			}, logger)
			if err != nil {
				logger.Warn("failed to initialize 1Password signing key store, falling back to local storage",
					"error", err)
				return NewLocalKeyStore(cfg.LocalKeyDir, logger)
			}
			return ks, nil
		}
		logger.Info("OP_CONNECT_HOST/OP_CONNECT_TOKEN not set, using local signing key storage")
		return NewLocalKeyStore(cfg.LocalKeyDir, logger)

	default:
		return nil, fmt.Errorf("unknown secrets backend: %s", backend)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
