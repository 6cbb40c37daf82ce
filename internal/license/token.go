package license

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BindMode declares which hardware fingerprint a token is bound to.
type BindMode string

const (
	// BindFull binds the token to the full fingerprint including the
	// primary MAC address.
	BindFull BindMode = "full"
	// BindCore binds the token to the core fingerprint only.
	BindCore BindMode = "core"
)

// wireSeparator joins the payload and signature segments on the wire.
const wireSeparator = "."

// Token is the canonical license payload. Field order is part of the
// wire contract: canonical encoding follows declaration order, so the
// bytes that were signed can be reproduced from a decoded token.
// Timestamps are Unix seconds to keep the encoding independent of the
// local timezone.
type Token struct {
	Product    string   `json:"product"`
	Edition    string   `json:"edition,omitempty"`
	IssuedAt   int64    `json:"iat"`
	ExpiresAt  int64    `json:"exp"`
	BindMode   BindMode `json:"bind"`
	HWCore     string   `json:"hw_core"`
	HWFull     string   `json:"hw_full,omitempty"`
	MaxUsers   int      `json:"max_users,omitempty"`
	Customer   string   `json:"customer,omitempty"`
	ContractID string   `json:"contract_id,omitempty"`
}

// CanonicalPayload returns the exact bytes that are signed and carried
// on the wire.
func (t Token) CanonicalPayload() ([]byte, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("license: failed to encode token payload: %w", err)
	}
	return payload, nil
}

// IssuedTime returns the issuance timestamp.
func (t Token) IssuedTime() time.Time {
	return time.Unix(t.IssuedAt, 0).UTC()
}

// ExpiryTime returns the expiry timestamp.
func (t Token) ExpiryTime() time.Time {
	return time.Unix(t.ExpiresAt, 0).UTC()
}

// Expired reports whether the token's validity window has closed at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiryTime())
}

// validate checks the structural requirements every token must meet
// regardless of signature state.
func (t Token) validate() error {
	if t.Product == "" {
		return fmt.Errorf("license: token has no product")
	}
	if t.ExpiresAt <= 0 {
		return fmt.Errorf("license: token has no expiry")
	}
	switch t.BindMode {
	case BindFull:
		if t.HWFull == "" {
			return fmt.Errorf("license: full-bound token has no full fingerprint")
		}
	case BindCore:
	default:
		return fmt.Errorf("license: unknown bind mode %q", t.BindMode)
	}
	if t.HWCore == "" {
		return fmt.Errorf("license: token has no core fingerprint")
	}
	return nil
}

// encodeWire joins a payload and signature into the wire form.
func encodeWire(payload, signature []byte) string {
	return base64.RawURLEncoding.EncodeToString(payload) +
		wireSeparator +
		base64.RawURLEncoding.EncodeToString(signature)
}

// decodeWire splits a wire token into its decoded token, the payload
// bytes that were signed, and the signature. Any structural problem,
// including a payload that does not re-encode to the same bytes, is a
// format error.
func decodeWire(raw string) (Token, []byte, []byte, error) {
	var zero Token

	parts := strings.Split(strings.TrimSpace(raw), wireSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return zero, nil, nil, fmt.Errorf("license: token is not payload.signature")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return zero, nil, nil, fmt.Errorf("license: payload is not base64url: %w", err)
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return zero, nil, nil, fmt.Errorf("license: signature is not base64url: %w", err)
	}

	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return zero, nil, nil, fmt.Errorf("license: payload is not valid JSON: %w", err)
	}
	if err := token.validate(); err != nil {
		return zero, nil, nil, err
	}

	// Reject payloads with extra fields or non-canonical encoding so
	// that exactly one byte sequence represents each token.
	canonical, err := token.CanonicalPayload()
	if err != nil {
		return zero, nil, nil, err
	}
	if string(canonical) != string(payload) {
		return zero, nil, nil, fmt.Errorf("license: payload is not in canonical form")
	}

	return token, payload, signature, nil
}
