package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"terratrust/internal/infrastructure"
	"terratrust/internal/license"
)

// License status classifications exposed through the API.
const (
	StatusActive       = "active"
	StatusWarning      = "warning"  // 30 days or less remaining
	StatusCritical     = "critical" // 7 days or less remaining
	StatusExpired      = "expired"
	StatusInvalid      = "invalid"
	StatusNotActivated = "not_activated"
)

// Renewal thresholds in days.
const (
	warningThreshold  = 30
	criticalThreshold = 7
)

// LicenseStatusResponse is the API shape for license status queries.
type LicenseStatusResponse struct {
	LicenseStatus string       `json:"license_status"`
	Message       string       `json:"message"`
	DaysLeft      int          `json:"days_left,omitempty"`
	Tolerant      bool         `json:"tolerant,omitempty"`
	Info          license.Info `json:"info"`
	TraceID       string       `json:"trace_id,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// ActivationRequest carries a token activation.
type ActivationRequest struct {
	Token          string `json:"token" validate:"required"`
	AllowTolerance bool   `json:"allow_tolerance"`
}

// LicenseService exposes license lifecycle operations to the transport.
type LicenseService interface {
	GetStatus(ctx context.Context) (*LicenseStatusResponse, error)
	Activate(ctx context.Context, actor string, req ActivationRequest) (*LicenseStatusResponse, error)
	Deactivate(ctx context.Context, actor string) error
}

type licenseService struct {
	manager *license.Manager
	logger  *slog.Logger
	now     func() time.Time
}

// NewLicenseService wires the service around a manager.
func NewLicenseService(manager *license.Manager, logger *slog.Logger) LicenseService {
	return &licenseService{manager: manager, logger: logger, now: time.Now}
}

func (s *licenseService) GetStatus(ctx context.Context) (*LicenseStatusResponse, error) {
	info, err := s.manager.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("license status check failed: %w", err)
	}
	return s.respond(ctx, info), nil
}

func (s *licenseService) Activate(ctx context.Context, actor string, req ActivationRequest) (*LicenseStatusResponse, error) {
	info, err := s.manager.Activate(ctx, actor, req.Token, req.AllowTolerance)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, info), nil
}

func (s *licenseService) Deactivate(ctx context.Context, actor string) error {
	return s.manager.Deactivate(ctx, actor)
}

func (s *licenseService) respond(ctx context.Context, info license.Info) *LicenseStatusResponse {
	status, message, daysLeft := Classify(info, s.now())
	return &LicenseStatusResponse{
		LicenseStatus: status,
		Message:       message,
		DaysLeft:      daysLeft,
		Tolerant:      info.Tolerant,
		Info:          info,
		TraceID:       infrastructure.TraceIDFromContext(ctx),
		Timestamp:     s.now().UTC(),
	}
}

// Classify maps a verification outcome onto the API status vocabulary
// and computes the remaining days for accepted licenses.
func Classify(info license.Info, now time.Time) (status, message string, daysLeft int) {
	switch info.State {
	case license.StateNone:
		return StatusNotActivated, "no license is activated on this machine", 0
	case license.StateExpired:
		return StatusExpired, "the license has expired; contact your vendor to renew", 0
	case license.StateInvalid:
		return StatusInvalid, fmt.Sprintf("the installed license is not valid here (%s)", info.Reason), 0
	}

	daysLeft = int(info.ExpiresAt.Sub(now).Hours() / 24)
	if daysLeft < 0 {
		daysLeft = 0
	}

	switch {
	case daysLeft <= criticalThreshold:
		status = StatusCritical
		message = fmt.Sprintf("license expires in %d days; renew now", daysLeft)
	case daysLeft <= warningThreshold:
		status = StatusWarning
		message = fmt.Sprintf("license expires in %d days", daysLeft)
	default:
		status = StatusActive
		message = "license is active"
	}
	if info.State == license.StateTolerated {
		message += " (hardware tolerance mode)"
	}
	return status, message, daysLeft
}
