package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terratrust/internal/services"
)

type stubChecker struct {
	status string
	err    error
	calls  int
}

func (s *stubChecker) GetStatus(ctx context.Context) (*services.LicenseStatusResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &services.LicenseStatusResponse{LicenseStatus: s.status}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardPassesWithAcceptedLicense(t *testing.T) {
	for _, status := range []string{services.StatusActive, services.StatusWarning, services.StatusCritical} {
		t.Run(status, func(t *testing.T) {
			guard := NewLicenseGuard(&stubChecker{status: status}, testLogger())

			rec := httptest.NewRecorder()
			guard.Handler(okHandler()).ServeHTTP(rec,
				httptest.NewRequest(http.MethodGet, "/api/reports", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestGuardBlocksInRestrictedMode(t *testing.T) {
	for _, status := range []string{services.StatusNotActivated, services.StatusExpired, services.StatusInvalid} {
		t.Run(status, func(t *testing.T) {
			guard := NewLicenseGuard(&stubChecker{status: status}, testLogger())

			rec := httptest.NewRecorder()
			guard.Handler(okHandler()).ServeHTTP(rec,
				httptest.NewRequest(http.MethodGet, "/api/reports", nil))

			require.Equal(t, http.StatusPreconditionFailed, rec.Code)
			var problem map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, "LICENSE_REQUIRED", problem["error_code"])
			assert.Equal(t, status, problem["license_status"])
		})
	}
}

func TestGuardExcludesManagementEndpoints(t *testing.T) {
	checker := &stubChecker{status: services.StatusNotActivated}
	guard := NewLicenseGuard(checker, testLogger())

	for _, path := range []string{
		"/healthz",
		"/metrics",
		"/api/license/status",
		"/api/license/activate",
	} {
		rec := httptest.NewRecorder()
		guard.Handler(okHandler()).ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Zero(t, checker.calls, "excluded paths must not trigger license checks")
}

func TestGuardCachesStatus(t *testing.T) {
	checker := &stubChecker{status: services.StatusActive}
	guard := NewLicenseGuard(checker, testLogger())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		guard.Handler(okHandler()).ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, checker.calls)
}

func TestGuardInvalidateForcesRefresh(t *testing.T) {
	checker := &stubChecker{status: services.StatusNotActivated}
	guard := NewLicenseGuard(checker, testLogger())

	rec := httptest.NewRecorder()
	guard.Handler(okHandler()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)

	checker.status = services.StatusActive
	guard.Invalidate()

	rec = httptest.NewRecorder()
	guard.Handler(okHandler()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardFailsClosedOnCheckerError(t *testing.T) {
	guard := NewLicenseGuard(&stubChecker{err: errors.New("store down")}, testLogger())

	rec := httptest.NewRecorder()
	guard.Handler(okHandler()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}
