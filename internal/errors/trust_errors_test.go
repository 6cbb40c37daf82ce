package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapLicenseError_IntegrityViolationsAreCoarse(t *testing.T) {
	// Format and signature failures must not be distinguishable to callers.
	formatProblem := MapLicenseError(ErrLicenseFormat, "t1").(*ProblemDetails)
	sigProblem := MapLicenseError(ErrLicenseSignature, "t1").(*ProblemDetails)

	assert.Equal(t, formatProblem.Title, sigProblem.Title)
	assert.Equal(t, formatProblem.Detail, sigProblem.Detail)
	assert.Equal(t, formatProblem.Extensions["error_code"], sigProblem.Extensions["error_code"])
	assert.NotContains(t, formatProblem.Detail, "format")
	assert.NotContains(t, sigProblem.Detail, "signature")
}

func TestMapLicenseError_Taxonomy(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{ErrLicenseFormat, http.StatusBadRequest, "INVALID_LICENSE"},
		{ErrLicenseSignature, http.StatusBadRequest, "INVALID_LICENSE"},
		{ErrLicenseExpired, http.StatusForbidden, "LICENSE_EXPIRED"},
		{ErrHardwareMismatch, http.StatusForbidden, "LICENSE_MACHINE_MISMATCH"},
		{ErrLicenseNotActivated, http.StatusPreconditionRequired, "LICENSE_NOT_ACTIVATED"},
		{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{fmt.Errorf("storage exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			problem, ok := MapLicenseError(tt.err, "trace-1").(*ProblemDetails)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantCode, problem.Extensions["error_code"])
		})
	}
}

func TestMapApprovalError(t *testing.T) {
	actorProblem := MapApprovalError(ErrActorMissing, "t2").(*ProblemDetails)
	assert.Equal(t, http.StatusInternalServerError, actorProblem.Status)
	assert.Contains(t, actorProblem.Detail, "denied")

	rootProblem := MapApprovalError(ErrRootImmutable, "t2").(*ProblemDetails)
	assert.Equal(t, http.StatusForbidden, rootProblem.Status)
	assert.Contains(t, rootProblem.Detail, "cannot be deleted")
}

func TestProblemDetails_MarshalIncludesExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusForbidden, "/errors/x", "X", "detail", "/api/x").
		WithExtension("error_code", "X_CODE")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "X_CODE", decoded["error_code"])
	assert.Equal(t, float64(http.StatusForbidden), decoded["status"])
}

func TestAPIError(t *testing.T) {
	err := NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   "target",
		Message: "required",
	})

	assert.Equal(t, "Request validation failed", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}
