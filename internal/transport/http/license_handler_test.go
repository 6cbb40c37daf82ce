package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "terratrust/internal/errors"
	"terratrust/internal/services"
)

type stubLicenseService struct {
	status     *services.LicenseStatusResponse
	statusErr  error
	activate   *services.LicenseStatusResponse
	activateErr error
	deactivateErr error

	lastActor string
	lastReq   services.ActivationRequest
}

func (s *stubLicenseService) GetStatus(ctx context.Context) (*services.LicenseStatusResponse, error) {
	return s.status, s.statusErr
}

func (s *stubLicenseService) Activate(ctx context.Context, actor string, req services.ActivationRequest) (*services.LicenseStatusResponse, error) {
	s.lastActor = actor
	s.lastReq = req
	return s.activate, s.activateErr
}

func (s *stubLicenseService) Deactivate(ctx context.Context, actor string) error {
	return s.deactivateErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLicenseStatusEndpoint(t *testing.T) {
	stub := &stubLicenseService{status: &services.LicenseStatusResponse{
		LicenseStatus: services.StatusActive,
		Message:       "license is active",
		DaysLeft:      120,
		Timestamp:     time.Now().UTC(),
	}}
	handler := NewLicenseHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp services.LicenseStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, services.StatusActive, resp.LicenseStatus)
	assert.Equal(t, 120, resp.DaysLeft)
}

func TestActivateRequiresToken(t *testing.T) {
	handler := NewLicenseHandler(&stubLicenseService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/activate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivatePassesActorAndTolerance(t *testing.T) {
	stub := &stubLicenseService{activate: &services.LicenseStatusResponse{
		LicenseStatus: services.StatusActive,
		Tolerant:      true,
	}}
	handler := NewLicenseHandler(stub, testLogger())

	body := `{"token":"abc.def","allow_tolerance":true}`
	req := httptest.NewRequest(http.MethodPost, "/activate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "ops@acme.example")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@acme.example", stub.lastActor)
	assert.Equal(t, "abc.def", stub.lastReq.Token)
	assert.True(t, stub.lastReq.AllowTolerance)
}

func TestActivateRendersProblemDetails(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"expired", apperrors.ErrLicenseExpired, http.StatusForbidden, "LICENSE_EXPIRED"},
		{"bad signature", apperrors.ErrLicenseSignature, http.StatusBadRequest, "INVALID_LICENSE"},
		{"bad format", apperrors.ErrLicenseFormat, http.StatusBadRequest, "INVALID_LICENSE"},
		{"hardware mismatch", apperrors.ErrHardwareMismatch, http.StatusForbidden, "LICENSE_MACHINE_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewLicenseHandler(&stubLicenseService{activateErr: tt.err}, testLogger())

			body := `{"token":"abc.def"}`
			req := httptest.NewRequest(http.MethodPost, "/activate", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			var problem map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantCode, problem["error_code"])
		})
	}
}

func TestDeactivateWithoutLicense(t *testing.T) {
	handler := NewLicenseHandler(
		&stubLicenseService{deactivateErr: apperrors.ErrLicenseNotActivated}, testLogger())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/deactivate", nil))

	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
}

func TestDeactivateSuccessIsNoContent(t *testing.T) {
	handler := NewLicenseHandler(&stubLicenseService{}, testLogger())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/deactivate", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
