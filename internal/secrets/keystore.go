// Package secrets provides secure storage for the control plane's evidence
// signing identity.
//
// This package defines a SigningKeyStore interface for managing the Ed25519
// key pair used to produce detached signatures over evidence manifests. The
// primary implementation uses 1Password Connect for production environments,
// with a local file-based fallback for development.
package secrets

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// SigningKeyPair is an Ed25519 key pair used to sign evidence manifests.
type SigningKeyPair struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	KeyType     string     `json:"key_type"`    // "ed25519"
	PublicKey   string     `json:"public_key"`  // OpenSSH-format authorized_keys line
	PrivateKey  []byte     `json:"-"`           // PEM encoded, never serialized to JSON
	Fingerprint string     `json:"fingerprint"` // SHA256 fingerprint
	CreatedAt   time.Time  `json:"created_at"`
	RotatedAt   *time.Time `json:"rotated_at,omitempty"`
}

// SigningKeyStore provides secure storage and retrieval of the manifest
// signing identity.
type SigningKeyStore interface {
	// GetOrCreateSigningKey returns the control plane's manifest signing key,
	// creating one if it doesn't exist.
	GetOrCreateSigningKey(ctx context.Context) (*SigningKeyPair, error)

	// GetPrivateKey retrieves only the private key bytes for a named key.
	// Returns nil if the key doesn't exist.
	GetPrivateKey(ctx context.Context, name string) ([]byte, error)

	// RotateKey creates a new key pair, archives the old one, and returns the
	// new key. Manifests already signed under the old key remain verifiable
	// against its archived public key.
	RotateKey(ctx context.Context) (*SigningKeyPair, error)

	// GetPublicKey retrieves the public key in OpenSSH format.
	GetPublicKey(ctx context.Context, name string) (string, error)

	// Close releases any resources held by the key store.
	Close() error
}

// DefaultKeyName is the name of the default manifest signing key.
const DefaultKeyName = "drone-ops-manifest-signing"

// GenerateSigningKeyPair generates a new Ed25519 key pair for manifest signing.
func GenerateSigningKeyPair(name string) (*SigningKeyPair, error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key: %w", err)
	}

	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("converting to ssh public key: %w", err)
	}

	privKeyPEM, err := ssh.MarshalPrivateKey(privKey, "")
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w", err)
	}

	fingerprint := ssh.FingerprintSHA256(sshPubKey)
	pubKeyStr := string(ssh.MarshalAuthorizedKey(sshPubKey))

	return &SigningKeyPair{
		Name:        name,
		KeyType:     "ed25519",
		PublicKey:   pubKeyStr,
		PrivateKey:  pem.EncodeToMemory(privKeyPEM),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}, nil
}

// ParsePrivateKey parses a PEM-encoded private key and returns an ssh.Signer.
// The returned signer's Sign method produces the evidence manifest's
// detached signature.
func ParsePrivateKey(pemBytes []byte) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return signer, nil
}
