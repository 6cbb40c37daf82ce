// Package domain contains the canonical request and response types of
// the trust API. All layers and API clients share these definitions.
package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LicenseActivationRequest installs a signed license token.
type LicenseActivationRequest struct {
	Token          string `json:"token" validate:"required,contains=."`
	AllowTolerance bool   `json:"allow_tolerance,omitempty"`
}

// Validate checks the request against its constraints.
func (r *LicenseActivationRequest) Validate() error {
	return validate.Struct(r)
}

// PasswordChangeRequest carries the replacement credential. The secret
// is handed to the identity platform once the gate permits the change
// and never appears in logs or audit details.
type PasswordChangeRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Validate checks the request against its constraints.
func (r *PasswordChangeRequest) Validate() error {
	return validate.Struct(r)
}

// RoleAssignmentRequest updates the role mirror for an account.
type RoleAssignmentRequest struct {
	Role string `json:"role" validate:"required,min=2,max=64"`
}

// Validate checks the request against its constraints.
func (r *RoleAssignmentRequest) Validate() error {
	return validate.Struct(r)
}

// GateDecision is the API shape for gated operation attempts.
type GateDecision struct {
	Permitted bool      `json:"permitted"`
	Protected bool      `json:"protected"`
	Message   string    `json:"message,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}
