package secrets

import (
	"context"
	"testing"

	"github.com/skywatch/drone-ops/internal/testutil"
)

func TestGenerateSigningKeyPair_ProducesValidEd25519Key(t *testing.T) {
	pair, err := GenerateSigningKeyPair("test-key")
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair: %v", err)
	}
	if pair.KeyType != "ed25519" {
		t.Errorf("key_type = %s, want ed25519", pair.KeyType)
	}
	if pair.PublicKey == "" || pair.Fingerprint == "" {
		t.Error("expected non-empty public key and fingerprint")
	}
	if _, err := ParsePrivateKey(pair.PrivateKey); err != nil {
		t.Errorf("ParsePrivateKey on generated key: %v", err)
	}
}

func TestLocalKeyStore_GetOrCreateSigningKeyIsStable(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewLocalKeyStore(dir, testutil.NewTestLogger())
	if err != nil {
		t.Fatalf("NewLocalKeyStore: %v", err)
	}
	defer ks.Close()

	first, err := ks.GetOrCreateSigningKey(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreateSigningKey: %v", err)
	}

	second, err := ks.GetOrCreateSigningKey(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreateSigningKey (second call): %v", err)
	}

	if first.Fingerprint != second.Fingerprint {
		t.Errorf("expected the same key across calls, got fingerprints %s and %s", first.Fingerprint, second.Fingerprint)
	}
}

func TestLocalKeyStore_GetOrCreateSigningKeySurvivesReload(t *testing.T) {
	dir := t.TempDir()
	ks1, err := NewLocalKeyStore(dir, testutil.NewTestLogger())
	if err != nil {
		t.Fatalf("NewLocalKeyStore: %v", err)
	}
	created, err := ks1.GetOrCreateSigningKey(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreateSigningKey: %v", err)
	}
	ks1.Close()

	ks2, err := NewLocalKeyStore(dir, testutil.NewTestLogger())
	if err != nil {
		t.Fatalf("NewLocalKeyStore (reload): %v", err)
	}
	defer ks2.Close()

	loaded, err := ks2.GetOrCreateSigningKey(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreateSigningKey (reload): %v", err)
	}
	if loaded.Fingerprint != created.Fingerprint {
		t.Errorf("expected the on-disk key to be reused across store instances, got %s vs %s", loaded.Fingerprint, created.Fingerprint)
	}
}

func TestLocalKeyStore_RotateKeyChangesFingerprint(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewLocalKeyStore(dir, testutil.NewTestLogger())
	if err != nil {
		t.Fatalf("NewLocalKeyStore: %v", err)
	}
	defer ks.Close()

	original, err := ks.GetOrCreateSigningKey(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreateSigningKey: %v", err)
	}

	rotated, err := ks.RotateKey(context.Background())
	if err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	if rotated.Fingerprint == original.Fingerprint {
		t.Error("expected rotation to produce a new fingerprint")
	}
	if rotated.RotatedAt == nil {
		t.Error("expected RotatedAt to be set on a rotated key")
	}

	current, err := ks.GetOrCreateSigningKey(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreateSigningKey (post-rotate): %v", err)
	}
	if current.Fingerprint != rotated.Fingerprint {
		t.Error("expected the rotated key to become the current default key")
	}
}

func TestLocalKeyStore_GetPublicKeyUnknownName(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewLocalKeyStore(dir, testutil.NewTestLogger())
	if err != nil {
		t.Fatalf("NewLocalKeyStore: %v", err)
	}
	defer ks.Close()

	if _, err := ks.GetPublicKey(context.Background(), "no-such-key"); err == nil {
		t.Fatal("expected an error for an unknown key name")
	}
}
