package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"terratrust/internal/audit"
	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
	"terratrust/internal/security"
	"terratrust/internal/store"
)

// Setting keys under which the activation state is persisted. The token
// itself is sealed with a key derived from the core fingerprint, so a
// copied settings row is useless on other hardware.
const (
	settingToken     = "license.token"
	settingTolerance = "license.tolerance"

	toleranceOn = "1"
)

// Info describes the installed license as seen by the current hardware.
type Info struct {
	State       State     `json:"state"`
	Reason      Reason    `json:"reason,omitempty"`
	Bound       BindMode  `json:"bound,omitempty"`
	Tolerant    bool      `json:"tolerant"`
	Product     string    `json:"product,omitempty"`
	Edition     string    `json:"edition,omitempty"`
	Customer    string    `json:"customer,omitempty"`
	ContractID  string    `json:"contract_id,omitempty"`
	MaxUsers    int       `json:"max_users,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// Manager owns the activation lifecycle: verifying incoming tokens,
// sealing the accepted token into settings storage, and reporting the
// installed state. Every state change is recorded on the audit trail.
type Manager struct {
	settings store.SettingsStore
	recorder audit.Recorder
	provider security.Provider
	verifier *Verifier
	logger   *slog.Logger
	metrics  *infrastructure.TrustMetrics
	now      func() time.Time
}

// NewManager wires a manager. Metrics may be nil; a nil clock defaults
// to time.Now.
func NewManager(settings store.SettingsStore, recorder audit.Recorder,
	provider security.Provider, verifier *Verifier,
	logger *slog.Logger, metrics *infrastructure.TrustMetrics) *Manager {
	return &Manager{
		settings: settings,
		recorder: recorder,
		provider: provider,
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Activate verifies a wire token against the current hardware and, on
// acceptance, seals it into settings storage. The strict check runs
// first; when it fails only on the full fingerprint and the caller
// opted into tolerance, the token is rechecked against the core
// fingerprint and installed in tolerance mode. Any other failure maps
// to a sentinel error and leaves the installed state untouched.
func (m *Manager) Activate(ctx context.Context, actor, raw string, allowTolerance bool) (Info, error) {
	started := m.now()

	hw, err := m.provider.Identity()
	if err != nil {
		return Info{}, fmt.Errorf("license: failed to read hardware identity: %w", err)
	}

	result := m.verifier.Verify(raw, false, hw)
	tolerant := false
	if result.State == StateInvalid && result.Reason == ReasonHardware && allowTolerance {
		retry := m.verifier.Verify(raw, true, hw)
		if retry.State == StateTolerated {
			result = retry
			tolerant = true
		}
	}
	m.observeVerification(ctx, "activate", result, started)

	if !result.Accepted() {
		err := verificationError(result)
		m.logger.WarnContext(ctx, "license activation rejected",
			slog.String("actor", actor),
			slog.String("state", string(result.State)),
			slog.String("reason", string(result.Reason)),
		)
		return Info{}, err
	}

	previousToken, previousRaw, previousErr := m.installed(ctx, hw)

	sealed, err := security.NewTokenCipher(hw.Core).Seal(raw)
	if err != nil {
		return Info{}, fmt.Errorf("license: failed to seal token: %w", err)
	}
	if err := m.settings.PutSetting(ctx, settingToken, sealed); err != nil {
		return Info{}, fmt.Errorf("license: failed to persist token: %w", err)
	}
	if tolerant {
		err = m.settings.PutSetting(ctx, settingTolerance, toleranceOn)
	} else {
		err = m.settings.DeleteSetting(ctx, settingTolerance)
	}
	if err != nil {
		return Info{}, fmt.Errorf("license: failed to persist tolerance flag: %w", err)
	}

	details := map[string]any{
		"product":      result.Token.Product,
		"expires_at":   result.ExpiresAt.Format(time.RFC3339),
		"bound":        string(result.Bound),
		"tolerant":     tolerant,
		"token_digest": tokenDigest(raw),
	}
	if previousErr == nil {
		details["replaced_token_digest"] = tokenDigest(previousRaw)
		details["replaced_expires_at"] = previousToken.ExpiryTime().Format(time.RFC3339)
	}
	if err := m.recorder.Record(ctx, audit.New(actor, audit.ActionLicenseActivated,
		result.Token.Product, details)); err != nil {
		return Info{}, fmt.Errorf("license: failed to record activation: %w", err)
	}

	if m.metrics != nil {
		m.metrics.LicenseActivations.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("tolerant", tolerant)))
	}
	m.logger.InfoContext(ctx, "license activated",
		slog.String("actor", actor),
		slog.String("product", result.Token.Product),
		slog.String("state", string(result.State)),
		slog.Bool("tolerant", tolerant),
		slog.Time("expires_at", result.ExpiresAt),
	)

	return m.info(result, tolerant, hw), nil
}

// Deactivate removes the installed token. The prior expiry, when one
// could be read, is carried on the audit event.
func (m *Manager) Deactivate(ctx context.Context, actor string) error {
	hw, err := m.provider.Identity()
	if err != nil {
		return fmt.Errorf("license: failed to read hardware identity: %w", err)
	}

	sealed, err := m.settings.GetSetting(ctx, settingToken)
	if errors.Is(err, store.ErrSettingNotFound) {
		return apperrors.ErrLicenseNotActivated
	} else if err != nil {
		return fmt.Errorf("license: failed to read installed token: %w", err)
	}
	previousToken, previousRaw, previousErr := m.installed(ctx, hw)

	if err := m.settings.DeleteSetting(ctx, settingToken); err != nil {
		return fmt.Errorf("license: failed to remove token: %w", err)
	}
	if err := m.settings.DeleteSetting(ctx, settingTolerance); err != nil {
		return fmt.Errorf("license: failed to remove tolerance flag: %w", err)
	}

	details := map[string]any{}
	if previousErr == nil {
		details["token_digest"] = tokenDigest(previousRaw)
		details["expires_at"] = previousToken.ExpiryTime().Format(time.RFC3339)
	} else {
		// The seal does not open on this hardware; the sealed form
		// stands in as the prior value.
		details["sealed_token_digest"] = tokenDigest(sealed)
	}
	if err := m.recorder.Record(ctx, audit.New(actor, audit.ActionLicenseDeactivated,
		"license", details)); err != nil {
		return fmt.Errorf("license: failed to record deactivation: %w", err)
	}

	m.logger.InfoContext(ctx, "license deactivated", slog.String("actor", actor))
	return nil
}

// Status re-verifies the installed token against the current hardware
// with the persisted tolerance flag and reports the result. An absent
// token yields state none without error.
func (m *Manager) Status(ctx context.Context) (Info, error) {
	started := m.now()

	hw, err := m.provider.Identity()
	if err != nil {
		return Info{}, fmt.Errorf("license: failed to read hardware identity: %w", err)
	}

	sealed, err := m.settings.GetSetting(ctx, settingToken)
	if errors.Is(err, store.ErrSettingNotFound) {
		return Info{
			State:       StateNone,
			CheckedAt:   m.now().UTC(),
			Fingerprint: hw.Full,
		}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("license: failed to read installed token: %w", err)
	}

	raw, err := security.NewTokenCipher(hw.Core).Open(sealed)
	if err != nil {
		// The sealed token does not open on this hardware. Report it
		// as a hardware mismatch rather than failing the status call.
		m.logger.WarnContext(ctx, "installed token does not open on this hardware",
			slog.String("error", err.Error()))
		return Info{
			State:       StateInvalid,
			Reason:      ReasonHardware,
			CheckedAt:   m.now().UTC(),
			Fingerprint: hw.Full,
		}, nil
	}

	tolerant := m.toleranceEnabled(ctx)
	result := m.verifier.Verify(raw, tolerant, hw)
	m.observeVerification(ctx, "status", result, started)

	return m.info(result, tolerant, hw), nil
}

// installed reads and opens the currently installed token, tolerating
// every failure mode. Used only to enrich audit events.
func (m *Manager) installed(ctx context.Context, hw security.HardwareIdentity) (Token, string, error) {
	sealed, err := m.settings.GetSetting(ctx, settingToken)
	if err != nil {
		return Token{}, "", err
	}
	raw, err := security.NewTokenCipher(hw.Core).Open(sealed)
	if err != nil {
		return Token{}, "", err
	}
	token, _, _, err := decodeWire(raw)
	if err != nil {
		return Token{}, "", err
	}
	return token, raw, nil
}

// tokenDigest identifies a token value on audit events without exposing
// the token itself.
func tokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

func (m *Manager) toleranceEnabled(ctx context.Context) bool {
	value, err := m.settings.GetSetting(ctx, settingTolerance)
	return err == nil && value == toleranceOn
}

func (m *Manager) info(result VerificationResult, tolerant bool, hw security.HardwareIdentity) Info {
	info := Info{
		State:       result.State,
		Reason:      result.Reason,
		Bound:       result.Bound,
		Tolerant:    tolerant,
		CheckedAt:   result.CheckedAt,
		Fingerprint: hw.Full,
	}
	if result.Token.Product != "" {
		info.Product = result.Token.Product
		info.Edition = result.Token.Edition
		info.Customer = result.Token.Customer
		info.ContractID = result.Token.ContractID
		info.MaxUsers = result.Token.MaxUsers
		info.IssuedAt = result.Token.IssuedTime()
		info.ExpiresAt = result.Token.ExpiryTime()
	}
	return info
}

func (m *Manager) observeVerification(ctx context.Context, operation string,
	result VerificationResult, started time.Time) {
	if m.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("state", string(result.State)),
	)
	m.metrics.LicenseVerifications.Add(ctx, 1, attrs)
	m.metrics.VerificationDuration.Record(ctx, m.now().Sub(started).Seconds(), attrs)
}

// verificationError maps a rejected result onto the sentinel taxonomy.
func verificationError(result VerificationResult) error {
	switch result.State {
	case StateNone:
		return apperrors.ErrLicenseNotActivated
	case StateExpired:
		return apperrors.ErrLicenseExpired
	case StateInvalid:
		switch result.Reason {
		case ReasonFormat:
			return apperrors.ErrLicenseFormat
		case ReasonSignature:
			return apperrors.ErrLicenseSignature
		case ReasonHardware:
			return apperrors.ErrHardwareMismatch
		}
	}
	return apperrors.ErrActivationRejected
}
