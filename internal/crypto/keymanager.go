// Package crypto resolves the bot's wallet key and signs exchange requests
// with it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen     = 16
	aesKeyLen   = 32
	keyFileVers = 1
)

// kdfIterations is the PBKDF2-HMAC-SHA256 work factor for key files.
var kdfIterations = 480_000

// keyFile is the on-disk format of an encrypted wallet key.
type keyFile struct {
	Version    int    `json:"version"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource says where the wallet key comes from. A raw key wins over a
// key file.
type KeySource struct {
	PrivateKey string // hex, optional 0x prefix
	KeyFile    string // path to a file written by EncryptKey
	Password   string // password for KeyFile
}

// EncryptKey seals a hex private key with password (PBKDF2 + AES-256-GCM)
// and returns the JSON key file contents.
func EncryptKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: encrypt key: empty password")
	}
	raw, err := decodeKey(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: salt: %w", err)
	}
	gcm, err := newGCM(password, salt, kdfIterations)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: nonce: %w", err)
	}

	return json.MarshalIndent(keyFile{
		Version:    keyFileVers,
		Iterations: kdfIterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, raw, nil)),
	}, "", "  ")
}

// DecryptKey opens a key file produced by EncryptKey and returns the hex
// private key without 0x prefix.
func DecryptKey(data []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: decrypt key: empty password")
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("crypto: decrypt key: parse: %w", err)
	}
	if kf.Version != keyFileVers {
		return "", fmt.Errorf("crypto: decrypt key: unsupported version %d", kf.Version)
	}
	if kf.Iterations <= 0 {
		kf.Iterations = kdfIterations
	}

	fields := make([][]byte, 3)
	for i, s := range []string{kf.Salt, kf.Nonce, kf.Ciphertext} {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", fmt.Errorf("crypto: decrypt key: decode field %d: %w", i, err)
		}
		fields[i] = b
	}

	gcm, err := newGCM(password, fields[0], kf.Iterations)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: %w", err)
	}
	plain, err := gcm.Open(nil, fields[1], fields[2], nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: wrong password or corrupt file: %w", err)
	}
	return hex.EncodeToString(plain), nil
}

// LoadKey resolves the wallet key from src.
func LoadKey(src KeySource) (string, error) {
	if src.PrivateKey != "" {
		raw, err := decodeKey(src.PrivateKey)
		if err != nil {
			return "", fmt.Errorf("crypto: load key: %w", err)
		}
		return hex.EncodeToString(raw), nil
	}
	if src.KeyFile != "" {
		data, err := os.ReadFile(src.KeyFile)
		if err != nil {
			return "", fmt.Errorf("crypto: load key: %w", err)
		}
		return DecryptKey(data, src.Password)
	}
	return "", errors.New("crypto: load key: set wallet.private_key or wallet.key_file")
}

func decodeKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	return raw, nil
}

func newGCM(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key([]byte(password), salt, iterations, aesKeyLen, sha256.New))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
