package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LocalKeyStore stores the manifest signing key on the local filesystem.
// This is intended for development and single-node deployments.
//
// Keys are stored in a directory with the following structure:
//
//	<base_dir>/
//	  <key_name>.json  (metadata)
//	  <key_name>.pem   (private key)
//	  <key_name>.pub   (public key)
type LocalKeyStore struct {
	baseDir string
	logger  *slog.Logger

	mu       sync.RWMutex
	keyCache map[string]*SigningKeyPair
}

// keyMetadata is the JSON structure stored alongside keys.
type keyMetadata struct {
	Name        string     `json:"name"`
	KeyType     string     `json:"key_type"`
	PublicKey   string     `json:"public_key"`
	Fingerprint string     `json:"fingerprint"`
	CreatedAt   time.Time  `json:"created_at"`
	RotatedAt   *time.Time `json:"rotated_at,omitempty"`
}

// NewLocalKeyStore creates a new local filesystem-backed key store.
// If baseDir is empty, it defaults to ~/.drone-ops/keys.
func NewLocalKeyStore(baseDir string, logger *slog.Logger) (*LocalKeyStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".drone-ops", "keys")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}

	logger.Info("using local signing key store", "path", baseDir)

	return &LocalKeyStore{
		baseDir:  baseDir,
		logger:   logger,
		keyCache: make(map[string]*SigningKeyPair),
	}, nil
}

// GetOrCreateSigningKey returns the control plane's manifest signing key,
// creating one if it doesn't exist.
func (ks *LocalKeyStore) GetOrCreateSigningKey(ctx context.Context) (*SigningKeyPair, error) {
	ks.mu.RLock()
	if cached, ok := ks.keyCache[DefaultKeyName]; ok {
		ks.mu.RUnlock()
		return cached, nil
	}
	ks.mu.RUnlock()

	keyPair, err := ks.loadKey(DefaultKeyName)
	if err != nil {
		return nil, fmt.Errorf("loading key: %w", err)
	}

	if keyPair != nil {
		ks.mu.Lock()
		ks.keyCache[DefaultKeyName] = keyPair
		ks.mu.Unlock()
		return keyPair, nil
	}

	ks.logger.Info("creating new manifest signing key", "name", DefaultKeyName)

	keyPair, err = GenerateSigningKeyPair(DefaultKeyName)
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}

	if err := ks.saveKey(keyPair); err != nil {
		return nil, fmt.Errorf("saving key: %w", err)
	}

	ks.mu.Lock()
	ks.keyCache[DefaultKeyName] = keyPair
	ks.mu.Unlock()

	ks.logger.Info("created new manifest signing key",
		"name", DefaultKeyName,
		"fingerprint", keyPair.Fingerprint,
		"path", ks.baseDir)

	return keyPair, nil
}

// GetPrivateKey retrieves only the private key bytes for a named key.
func (ks *LocalKeyStore) GetPrivateKey(ctx context.Context, name string) ([]byte, error) {
	keyPair, err := ks.loadKey(name)
	if err != nil {
		return nil, err
	}
	if keyPair == nil {
		return nil, nil
	}
	return keyPair.PrivateKey, nil
}

// GetPublicKey retrieves the public key in OpenSSH format.
func (ks *LocalKeyStore) GetPublicKey(ctx context.Context, name string) (string, error) {
	ks.mu.RLock()
	if cached, ok := ks.keyCache[name]; ok {
		ks.mu.RUnlock()
		return cached.PublicKey, nil
	}
	ks.mu.RUnlock()

	keyPair, err := ks.loadKey(name)
	if err != nil {
		return "", err
	}
	if keyPair == nil {
		return "", fmt.Errorf("key not found: %s", name)
	}
	return keyPair.PublicKey, nil
}

// RotateKey creates a new key pair and archives the old one.
func (ks *LocalKeyStore) RotateKey(ctx context.Context) (*SigningKeyPair, error) {
	oldKey, err := ks.loadKey(DefaultKeyName)
	if err != nil {
		return nil, fmt.Errorf("loading old key: %w", err)
	}

	if oldKey != nil {
		archiveName := fmt.Sprintf("%s-archived-%s", DefaultKeyName, time.Now().Format("20060102-150405"))
		oldKey.Name = archiveName
		if err := ks.saveKey(oldKey); err != nil {
			ks.logger.Warn("failed to archive old signing key", "error", err)
		}
	}

	newKey, err := GenerateSigningKeyPair(DefaultKeyName)
	if err != nil {
		return nil, fmt.Errorf("generating new key: %w", err)
	}
	now := time.Now()
	newKey.RotatedAt = &now

	if err := ks.saveKey(newKey); err != nil {
		return nil, fmt.Errorf("saving new key: %w", err)
	}

	ks.mu.Lock()
	ks.keyCache[DefaultKeyName] = newKey
	ks.mu.Unlock()

	ks.logger.Info("rotated manifest signing key",
		"fingerprint", newKey.Fingerprint)

	return newKey, nil
}

// Close releases any resources.
func (ks *LocalKeyStore) Close() error {
	ks.mu.Lock()
	ks.keyCache = make(map[string]*SigningKeyPair)
	ks.mu.Unlock()
	return nil
}

// loadKey loads a key from disk by name.
func (ks *LocalKeyStore) loadKey(name string) (*SigningKeyPair, error) {
	metadataPath := filepath.Join(ks.baseDir, name+".json")
	privatePath := filepath.Join(ks.baseDir, name+".pem")

	if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
		return nil, nil
	}

	metadataBytes, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var meta keyMetadata
	if err := json.Unmarshal(metadataBytes, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	privateBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	return &SigningKeyPair{
		Name:        meta.Name,
		KeyType:     meta.KeyType,
		PublicKey:   meta.PublicKey,
		PrivateKey:  privateBytes,
		Fingerprint: meta.Fingerprint,
		CreatedAt:   meta.CreatedAt,
		RotatedAt:   meta.RotatedAt,
	}, nil
}

// saveKey saves a key to disk.
func (ks *LocalKeyStore) saveKey(keyPair *SigningKeyPair) error {
	metadataPath := filepath.Join(ks.baseDir, keyPair.Name+".json")
	privatePath := filepath.Join(ks.baseDir, keyPair.Name+".pem")
	publicPath := filepath.Join(ks.baseDir, keyPair.Name+".pub")

	meta := keyMetadata{
		Name:        keyPair.Name,
		KeyType:     keyPair.KeyType,
		PublicKey:   keyPair.PublicKey,
		Fingerprint: keyPair.Fingerprint,
		CreatedAt:   keyPair.CreatedAt,
		RotatedAt:   keyPair.RotatedAt,
	}
	metadataBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, metadataBytes, 0600); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	if err := os.WriteFile(privatePath, keyPair.PrivateKey, 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	if err := os.WriteFile(publicPath, []byte(keyPair.PublicKey), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}
