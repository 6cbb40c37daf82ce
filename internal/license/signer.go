package license

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// Signer issues signed license tokens. It lives on the vendor side and
// is never deployed with the product binary.
type Signer struct {
	key ed25519.PrivateKey
}

// NewSigner wraps an Ed25519 private key.
func NewSigner(key ed25519.PrivateKey) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("license: private key must be %d bytes, got %d",
			ed25519.PrivateKeySize, len(key))
	}
	return &Signer{key: key}, nil
}

// ParsePrivateKey decodes a base64 standard-encoded Ed25519 private key.
func ParsePrivateKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("license: private key is not base64: %w", err)
	}
	if len(raw) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(raw), nil
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("license: private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

// PublicKey returns the verification key matching the signer.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// Issue validates the token, signs its canonical payload and returns the
// wire form.
func (s *Signer) Issue(token Token) (string, error) {
	if err := token.validate(); err != nil {
		return "", err
	}
	if token.IssuedAt > 0 && token.ExpiresAt <= token.IssuedAt {
		return "", fmt.Errorf("license: token expires before it is issued")
	}

	payload, err := token.CanonicalPayload()
	if err != nil {
		return "", err
	}

	signature := ed25519.Sign(s.key, payload)
	return encodeWire(payload, signature), nil
}
