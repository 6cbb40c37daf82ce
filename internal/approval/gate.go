package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"terratrust/internal/audit"
	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
	"terratrust/internal/store"
)

// Action kinds guarded by the gate.
const (
	ActionDelete         = "user.delete"
	ActionPasswordChange = "user.password_change"
)

// Window is how long an opened approval stays confirmable.
const Window = 2 * time.Minute

// RootAccount is the reserved administrator identity. It can never be
// deleted, and operations against it are always protected.
const RootAccount = "admin"

// privilegedRole marks directory accounts whose operations require
// approval. Comparison is case-insensitive.
const privilegedRole = "administrator"

// UserDirectory resolves the current role of an account. Role returns
// an empty string for unknown accounts. The gate looks roles up fresh
// on every check so that a freshly promoted administrator is protected
// immediately.
type UserDirectory interface {
	Role(ctx context.Context, username string) (string, error)
}

// Decision is the gate's answer for one protected-operation attempt.
type Decision struct {
	Permitted bool      `json:"permitted"`
	Protected bool      `json:"protected"`
	Message   string    `json:"message,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Gate enforces the two-step confirmation protocol.
type Gate struct {
	approvals store.ApprovalStore
	directory UserDirectory
	recorder  audit.Recorder
	logger    *slog.Logger
	metrics   *infrastructure.TrustMetrics
	now       func() time.Time
}

// NewGate wires a gate. Metrics may be nil; a nil clock defaults to
// time.Now.
func NewGate(approvals store.ApprovalStore, directory UserDirectory,
	recorder audit.Recorder, logger *slog.Logger,
	metrics *infrastructure.TrustMetrics) *Gate {
	return &Gate{
		approvals: approvals,
		directory: directory,
		recorder:  recorder,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// CheckDelete gates the deletion of target by actor. The reserved root
// account is rejected outright before any window handling.
func (g *Gate) CheckDelete(ctx context.Context, actor, target string) (Decision, error) {
	if target == RootAccount {
		g.logger.WarnContext(ctx, "deletion of reserved account rejected",
			slog.String("actor", actor))
		return Decision{}, apperrors.ErrRootImmutable
	}
	return g.check(ctx, actor, target, ActionDelete)
}

// CheckPasswordChange gates a password change for target by actor.
func (g *Gate) CheckPasswordChange(ctx context.Context, actor, target string) (Decision, error) {
	return g.check(ctx, actor, target, ActionPasswordChange)
}

func (g *Gate) check(ctx context.Context, actor, target, action string) (Decision, error) {
	protected, err := g.isProtected(ctx, target)
	if err != nil {
		return Decision{}, err
	}
	if !protected {
		return Decision{Permitted: true}, nil
	}

	// Actor identity only matters once the target is protected; an
	// unprotected target passes through without it.
	if actor == "" {
		return Decision{}, apperrors.ErrActorMissing
	}

	now := g.now()
	key := store.ApprovalKey{Actor: actor, Target: target, Action: action}

	if err := g.approvals.PurgeExpired(ctx, key, now); err != nil {
		return Decision{}, fmt.Errorf("approval: failed to purge expired window: %w", err)
	}

	pending, err := g.approvals.FindApproval(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("approval: failed to look up window: %w", err)
	}

	if pending != nil {
		if err := g.approvals.DeleteApproval(ctx, key); err != nil {
			return Decision{}, fmt.Errorf("approval: failed to consume window: %w", err)
		}
		if err := g.record(ctx, actor, target, action, audit.QualifierConfirmed, pending.ExpiresAt); err != nil {
			return Decision{}, err
		}
		g.observe(ctx, action, "confirmed")
		g.logger.InfoContext(ctx, "protected operation confirmed",
			slog.String("actor", actor),
			slog.String("target", target),
			slog.String("action", action),
		)
		return Decision{Permitted: true, Protected: true}, nil
	}

	approval := store.Approval{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(Window),
	}
	if err := g.approvals.InsertApproval(ctx, approval); err != nil {
		// A concurrent request won the insert; that request's window
		// now stands and this attempt stays denied.
		if !errors.Is(err, store.ErrDuplicateApproval) {
			return Decision{}, fmt.Errorf("approval: failed to open window: %w", err)
		}
	}
	if err := g.record(ctx, actor, target, action, audit.QualifierRequested, approval.ExpiresAt); err != nil {
		return Decision{}, err
	}
	g.observe(ctx, action, "requested")
	g.logger.InfoContext(ctx, "protected operation requires confirmation",
		slog.String("actor", actor),
		slog.String("target", target),
		slog.String("action", action),
		slog.Time("expires_at", approval.ExpiresAt),
	)

	return Decision{
		Protected: true,
		Message: fmt.Sprintf("operation on protected account %q requires confirmation; repeat the request within %s",
			target, Window),
		ExpiresAt: approval.ExpiresAt,
	}, nil
}

// isProtected reports whether target is the reserved root account or
// currently holds the privileged role. Directory failures propagate so
// the caller denies the operation.
func (g *Gate) isProtected(ctx context.Context, target string) (bool, error) {
	if target == RootAccount {
		return true, nil
	}
	role, err := g.directory.Role(ctx, target)
	if err != nil {
		return false, fmt.Errorf("approval: failed to resolve role of %q: %w", target, err)
	}
	return strings.EqualFold(role, privilegedRole), nil
}

func (g *Gate) record(ctx context.Context, actor, target, action, qualifier string, expiresAt time.Time) error {
	event := audit.New(actor, action+"."+qualifier, target, map[string]any{
		"window_expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
	if err := g.recorder.Record(ctx, event); err != nil {
		return fmt.Errorf("approval: failed to record %s: %w", qualifier, err)
	}
	return nil
}

func (g *Gate) observe(ctx context.Context, action, outcome string) {
	if g.metrics == nil {
		return
	}
	g.metrics.ApprovalDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
	infrastructure.AddSpanEvent(ctx, "approval.decision", map[string]interface{}{
		"action":  action,
		"outcome": outcome,
	})
}
