package license

import (
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"terratrust/internal/security"
)

// State summarizes the outcome of a verification run.
type State string

const (
	// StateNone means no token is installed.
	StateNone State = "none"
	// StateInvalid means the token failed format, signature or
	// hardware checks.
	StateInvalid State = "invalid"
	// StateExpired means the token is authentic but past its expiry.
	StateExpired State = "expired"
	// StateTolerated means a full-bound token mismatched on the full
	// fingerprint but was accepted against the core fingerprint.
	StateTolerated State = "tolerated"
	// StateValid means every check passed.
	StateValid State = "valid"
)

// Reason names the first check that failed.
type Reason string

const (
	ReasonFormat    Reason = "format"
	ReasonSignature Reason = "signature"
	ReasonExpiry    Reason = "exp"
	ReasonHardware  Reason = "hw_mismatch"
)

// embeddedPublicKey is the production verification key, baked into the
// binary at build time.
const embeddedPublicKey = "oY/ubtONZtuwTnf70DRLK7nySeBkub0ZS3xMy3QC2Uo="

// VerificationResult reports the state of a token after the full check
// chain. Token is only populated when the payload decoded successfully.
type VerificationResult struct {
	State     State     `json:"state"`
	Reason    Reason    `json:"reason,omitempty"`
	Bound     BindMode  `json:"bound,omitempty"`
	Token     Token     `json:"-"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Accepted reports whether the result permits the product to run.
func (r VerificationResult) Accepted() bool {
	return r.State == StateValid || r.State == StateTolerated
}

// Verifier checks wire tokens against a public key. The zero value is
// not usable; construct with NewVerifier or DefaultVerifier.
type Verifier struct {
	publicKey ed25519.PublicKey
	now       func() time.Time
}

// NewVerifier builds a verifier for the given key. A nil clock defaults
// to time.Now.
func NewVerifier(publicKey ed25519.PublicKey, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{publicKey: publicKey, now: now}
}

// DefaultVerifier returns a verifier bound to the embedded production
// key.
func DefaultVerifier() *Verifier {
	raw, err := base64.StdEncoding.DecodeString(embeddedPublicKey)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		// The constant is fixed at build time; a bad value means a
		// broken build, not a runtime condition.
		panic("license: embedded public key is corrupt")
	}
	return NewVerifier(ed25519.PublicKey(raw), nil)
}

// Verify runs the check chain against a wire token and stops at the
// first failure. The chain is format, signature, expiry, hardware.
// When tolerant is set, a full-bound token that fails the full
// fingerprint comparison is rechecked against the core fingerprint and
// accepted as tolerated on a match. Verify never touches storage.
func (v *Verifier) Verify(raw string, tolerant bool, hw security.HardwareIdentity) VerificationResult {
	checkedAt := v.now().UTC()

	if raw == "" {
		return VerificationResult{State: StateNone, CheckedAt: checkedAt}
	}

	token, payload, signature, err := decodeWire(raw)
	if err != nil {
		return VerificationResult{State: StateInvalid, Reason: ReasonFormat, CheckedAt: checkedAt}
	}

	if !ed25519.Verify(v.publicKey, payload, signature) {
		return VerificationResult{
			State: StateInvalid, Reason: ReasonSignature,
			Token: token, CheckedAt: checkedAt,
		}
	}

	result := VerificationResult{
		Token:     token,
		ExpiresAt: token.ExpiryTime(),
		CheckedAt: checkedAt,
	}

	if token.Expired(checkedAt) {
		result.State = StateExpired
		result.Reason = ReasonExpiry
		return result
	}

	switch token.BindMode {
	case BindCore:
		if !security.FingerprintsEqual(token.HWCore, hw.Core) {
			result.State = StateInvalid
			result.Reason = ReasonHardware
			result.Bound = BindCore
			return result
		}
		result.State = StateValid
		result.Bound = BindCore
	case BindFull:
		if security.FingerprintsEqual(token.HWFull, hw.Full) {
			result.State = StateValid
			result.Bound = BindFull
			return result
		}
		if tolerant && security.FingerprintsEqual(token.HWCore, hw.Core) {
			result.State = StateTolerated
			result.Bound = BindCore
			return result
		}
		result.State = StateInvalid
		result.Reason = ReasonHardware
		result.Bound = BindFull
	}
	return result
}
