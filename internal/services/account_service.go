package services

import (
	"context"
	"fmt"
	"log/slog"

	"terratrust/internal/approval"
	"terratrust/internal/audit"
	"terratrust/internal/infrastructure"
	"terratrust/pkg/contracts/domain"
)

// ActionExecuted qualifies the audit entry written when a permitted
// destructive operation is carried out.
const actionExecutedQualifier = "executed"

// GateDecisionResponse is an alias to the canonical contract type.
type GateDecisionResponse = domain.GateDecision

// CredentialWriter pushes a permitted password change to the identity
// platform. Implementations must never log the secret.
type CredentialWriter interface {
	SetPassword(ctx context.Context, username, secret string) error
}

// AccountService runs destructive account operations through the
// approval gate and maintains the role directory.
type AccountService interface {
	DeleteUser(ctx context.Context, actor, target string) (*GateDecisionResponse, error)
	ChangePassword(ctx context.Context, actor, target, newSecret string) (*GateDecisionResponse, error)
	SetRole(ctx context.Context, actor, target, role string) error
}

type accountService struct {
	gate        *approval.Gate
	directory   *SettingsDirectory
	recorder    audit.Recorder
	credentials CredentialWriter
	logger      *slog.Logger
}

// NewAccountService wires the service. credentials may be nil when the
// deployment lets the identity platform poll permitted changes instead
// of receiving a push.
func NewAccountService(gate *approval.Gate, directory *SettingsDirectory,
	recorder audit.Recorder, credentials CredentialWriter, logger *slog.Logger) AccountService {
	return &accountService{
		gate:        gate,
		directory:   directory,
		recorder:    recorder,
		credentials: credentials,
		logger:      logger,
	}
}

// DeleteUser asks the gate whether actor may delete target. When the
// gate permits, the account's directory entry is removed and the
// execution is recorded.
func (s *accountService) DeleteUser(ctx context.Context, actor, target string) (*GateDecisionResponse, error) {
	decision, err := s.gate.CheckDelete(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if decision.Permitted {
		if err := s.directory.Remove(ctx, target); err != nil {
			return nil, err
		}
		if err := s.recordExecution(ctx, actor, approval.ActionDelete, target); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "account deleted",
			slog.String("actor", actor), slog.String("target", target))
	}
	return s.respond(ctx, decision), nil
}

// ChangePassword asks the gate whether actor may change target's
// password. The new secret travels through to the identity platform on
// a permit and is never logged or audited here.
func (s *accountService) ChangePassword(ctx context.Context, actor, target, newSecret string) (*GateDecisionResponse, error) {
	decision, err := s.gate.CheckPasswordChange(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if decision.Permitted {
		if s.credentials != nil {
			if err := s.credentials.SetPassword(ctx, target, newSecret); err != nil {
				return nil, fmt.Errorf("failed to apply password change: %w", err)
			}
		}
		if decision.Protected {
			if err := s.recordExecution(ctx, actor, approval.ActionPasswordChange, target); err != nil {
				return nil, err
			}
		}
	}
	return s.respond(ctx, decision), nil
}

// SetRole updates the role mirror for target.
func (s *accountService) SetRole(ctx context.Context, actor, target, role string) error {
	if err := s.directory.SetRole(ctx, target, role); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "account role updated",
		slog.String("actor", actor),
		slog.String("target", target),
		slog.String("role", role),
	)
	return nil
}

func (s *accountService) recordExecution(ctx context.Context, actor, action, target string) error {
	event := audit.New(actor, action+"."+actionExecutedQualifier, target, nil)
	if err := s.recorder.Record(ctx, event); err != nil {
		return fmt.Errorf("failed to record execution of %s: %w", action, err)
	}
	return nil
}

func (s *accountService) respond(ctx context.Context, decision approval.Decision) *GateDecisionResponse {
	return &GateDecisionResponse{
		Permitted: decision.Permitted,
		Protected: decision.Protected,
		Message:   decision.Message,
		ExpiresAt: decision.ExpiresAt,
		TraceID:   infrastructure.TraceIDFromContext(ctx),
	}
}
