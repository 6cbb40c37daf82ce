package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// License and approval sentinel errors. Format and signature failures are
// both integrity violations: they carry precise internal reasons for logs,
// but the user-facing mapping below deliberately collapses them into a
// coarse "invalid license" message.
var (
	ErrLicenseNotActivated = errors.New("license not activated")
	ErrLicenseFormat       = errors.New("license token format invalid")
	ErrLicenseSignature    = errors.New("license signature invalid")
	ErrLicenseExpired      = errors.New("license expired")
	ErrHardwareMismatch    = errors.New("license hardware mismatch")
	ErrActivationRejected  = errors.New("license activation rejected")

	ErrApprovalRequired = errors.New("approval confirmation required")
	ErrActorMissing     = errors.New("actor identity missing for protected operation")
	ErrRootImmutable    = errors.New("reserved administrator account cannot be deleted")
	ErrRateLimited      = errors.New("rate limited")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapLicenseError maps license domain errors to HTTP problem details.
// Integrity violations (format, signature) are collapsed into a single
// coarse message so the response aids nobody probing the token format.
func MapLicenseError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/license#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrLicenseFormat), errors.Is(err, ErrLicenseSignature):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-license",
			"Invalid License",
			"The provided license is invalid. Please contact your vendor.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_LICENSE")

	case errors.Is(err, ErrLicenseExpired):
		return NewProblemDetails(
			http.StatusForbidden,
			"/errors/license-expired",
			"License Expired",
			"Your license has expired. Please renew to continue.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_EXPIRED")

	case errors.Is(err, ErrHardwareMismatch):
		return NewProblemDetails(
			http.StatusForbidden,
			"/errors/invalid-license",
			"Invalid License",
			"This license is not valid for this machine. Please contact support.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_MACHINE_MISMATCH")

	case errors.Is(err, ErrLicenseNotActivated):
		return NewProblemDetails(
			http.StatusPreconditionRequired,
			"/errors/license-not-activated",
			"License Not Activated",
			"No license has been activated. Please activate a license to continue.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_NOT_ACTIVATED")

	case errors.Is(err, ErrRateLimited):
		return NewProblemDetails(
			http.StatusTooManyRequests,
			"/errors/rate-limited",
			"Too Many Requests",
			"Too many license operations. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RATE_LIMITED").
			WithExtension("retry_after", 900)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}

// MapApprovalError maps approval gate errors to HTTP problem details.
// A pending approval is not routed through here; it is a normal protocol
// step rendered by the handler as an actionable prompt.
func MapApprovalError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/accounts#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrActorMissing):
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/actor-missing",
			"Configuration Error",
			"The operation targets a protected account but no actor identity was supplied. This operation is denied.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "ACTOR_MISSING")

	case errors.Is(err, ErrRootImmutable):
		return NewProblemDetails(
			http.StatusForbidden,
			"/errors/root-immutable",
			"Account Protected",
			"The reserved administrator account cannot be deleted.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "ROOT_IMMUTABLE")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
