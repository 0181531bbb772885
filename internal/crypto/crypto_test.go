package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func init() {
	kdfIterations = 1000
}

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKey {
		t.Fatalf("round trip mismatch: %s", got)
	}
	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestLoadKey(t *testing.T) {
	if _, err := LoadKey(KeySource{}); err == nil {
		t.Fatal("expected error with no source")
	}
	if _, err := LoadKey(KeySource{PrivateKey: "zz"}); err == nil {
		t.Fatal("expected error for bad hex")
	}

	got, err := LoadKey(KeySource{PrivateKey: "0x" + strings.ToUpper(testKey)})
	if err != nil || got != testKey {
		t.Fatalf("raw key: got %q, %v", got, err)
	}

	blob, err := EncryptKey(testKey, "pw")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = LoadKey(KeySource{KeyFile: path, Password: "pw"})
	if err != nil || got != testKey {
		t.Fatalf("key file: got %q, %v", got, err)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	payload := []byte(`{"order_id":"42"}`)
	sig, err := s.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	addr, err := Recover(payload, sig)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if addr != s.Address() {
		t.Fatalf("recovered %s, want %s", addr.Hex(), s.Address().Hex())
	}

	other, err := Recover([]byte("tampered"), sig)
	if err == nil && other == s.Address() {
		t.Fatal("signature should not verify for a different payload")
	}
}
