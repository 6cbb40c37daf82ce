package services

import (
	"context"
	"fmt"

	"terratrust/internal/audit"
)

// Audit listing bounds.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditService exposes read access to the audit trail.
type AuditService interface {
	ListEvents(ctx context.Context, limit int) ([]audit.Event, error)
}

type auditService struct {
	reader audit.Reader
}

// NewAuditService wraps an audit reader.
func NewAuditService(reader audit.Reader) AuditService {
	return &auditService{reader: reader}
}

// ListEvents returns the newest events, clamping limit into bounds.
func (s *auditService) ListEvents(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	events, err := s.reader.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
