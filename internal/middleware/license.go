// Package middleware contains the HTTP middleware chain: license
// enforcement, rate limiting and request logging.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"

	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
	"terratrust/internal/services"
)

// Validation cache lifetimes. Failures are cached briefly so a broken
// install retries soon, while accepted results stay for five minutes.
const (
	acceptedTTL = 5 * time.Minute
	rejectedTTL = 30 * time.Second
)

// LicenseChecker is the slice of the license service the guard needs.
type LicenseChecker interface {
	GetStatus(ctx context.Context) (*services.LicenseStatusResponse, error)
}

// LicenseGuard blocks API traffic while no accepted license is
// installed. License management, health and metrics endpoints stay
// reachable so operators can fix the situation.
type LicenseGuard struct {
	checker LicenseChecker
	logger  *slog.Logger

	excludePaths    map[string]struct{}
	excludePrefixes []string

	mu        sync.Mutex
	cached    string
	cachedAt  time.Time
	cachedTTL time.Duration
}

// NewLicenseGuard creates the guard middleware.
func NewLicenseGuard(checker LicenseChecker, logger *slog.Logger) *LicenseGuard {
	paths := map[string]struct{}{}
	for _, p := range []string{
		"/healthz",
		"/metrics",
		"/api/license/status",
		"/api/license/activate",
		"/api/license/deactivate",
	} {
		paths[p] = struct{}{}
	}
	return &LicenseGuard{
		checker:      checker,
		logger:       logger.With(slog.String("component", "license_guard")),
		excludePaths: paths,
	}
}

// Handler wraps next with license enforcement.
func (g *LicenseGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		status := g.currentStatus(r)
		if !licenseStatusAccepted(status) {
			traceID := infrastructure.TraceIDFromContext(r.Context())
			g.logger.WarnContext(r.Context(), "request blocked in restricted mode",
				slog.String("path", r.URL.Path),
				slog.String("license_status", status),
			)
			render.Render(w, r, apperrors.NewProblemDetails(
				http.StatusPreconditionFailed,
				"/errors/license-required",
				"License Required",
				"This deployment is running in restricted mode until a valid license is activated.",
				r.URL.Path,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", "LICENSE_REQUIRED").
				WithExtension("license_status", status))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *LicenseGuard) excluded(path string) bool {
	if _, ok := g.excludePaths[path]; ok {
		return true
	}
	for _, prefix := range g.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// currentStatus returns the cached classification, refreshing it when
// the cache entry aged out. A checker failure counts as rejected.
func (g *LicenseGuard) currentStatus(r *http.Request) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cached != "" && time.Since(g.cachedAt) < g.cachedTTL {
		return g.cached
	}

	status, err := g.checker.GetStatus(r.Context())
	if err != nil {
		g.logger.ErrorContext(r.Context(), "license status refresh failed",
			slog.String("error", err.Error()))
		g.cached = services.StatusInvalid
		g.cachedAt = time.Now()
		g.cachedTTL = rejectedTTL
		return g.cached
	}

	g.cached = status.LicenseStatus
	g.cachedAt = time.Now()
	if licenseStatusAccepted(g.cached) {
		g.cachedTTL = acceptedTTL
	} else {
		g.cachedTTL = rejectedTTL
	}
	return g.cached
}

// Invalidate drops the cached result, forcing a fresh check on the
// next request. Called after activation and deactivation.
func (g *LicenseGuard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cached = ""
}

func licenseStatusAccepted(status string) bool {
	switch status {
	case services.StatusActive, services.StatusWarning, services.StatusCritical:
		return true
	}
	return false
}
