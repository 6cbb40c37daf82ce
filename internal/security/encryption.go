package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters, OWASP recommended minimums for interactive use
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32 // AES-256
	saltSize     = 32
	nonceSize    = 12 // GCM standard
)

// encryptedPayload is the serialized form of a sealed value
type encryptedPayload struct {
	Version    uint8  `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// TokenCipher seals and opens the persisted license token. The key is
// derived from the machine's core fingerprint, so a settings row copied to
// another machine cannot be decrypted there.
type TokenCipher struct {
	secret []byte
}

// NewTokenCipher creates a cipher keyed from the given secret material,
// typically the core hardware fingerprint.
func NewTokenCipher(secret string) *TokenCipher {
	return &TokenCipher{secret: []byte(secret)}
}

// Seal encrypts plaintext and returns a base64 string suitable for a
// settings row.
func (c *TokenCipher) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := c.deriveKey(salt)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	payload := encryptedPayload{
		Version:    1,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, []byte(plaintext), nil),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Open decrypts a value produced by Seal.
func (c *TokenCipher) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	var payload encryptedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Version != 1 {
		return "", fmt.Errorf("unsupported payload version: %d", payload.Version)
	}
	if len(payload.Nonce) != nonceSize {
		return "", fmt.Errorf("invalid nonce size: %d", len(payload.Nonce))
	}

	key, err := c.deriveKey(payload.Salt)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// deriveKey stretches the secret with scrypt
func (c *TokenCipher) deriveKey(salt []byte) ([]byte, error) {
	key, err := scrypt.Key(c.secret, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}
