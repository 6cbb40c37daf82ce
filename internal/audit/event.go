// Package audit defines the append-only audit trail consumed by the
// license and approval subsystems. Every security-relevant transition
// writes exactly one event. Events are permanent: nothing in this
// codebase deletes or rewrites an audit row, and deleting ephemeral
// approval rows is unrelated to the audit trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable security record answering: who did what, to which
// resource, when, and with what context.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`   // e.g. "license.activated", "user.delete.requested"
	Resource  string         `json:"resource"` // e.g. "license", "user:jdoe"
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Qualified action names. The approval gate appends ".requested" or
// ".confirmed" to the gated action kind.
const (
	ActionLicenseActivated   = "license.activated"
	ActionLicenseDeactivated = "license.deactivated"

	QualifierRequested = "requested"
	QualifierConfirmed = "confirmed"
)

// New builds an event with a fresh id and timestamp. Details must never
// contain raw secrets; callers diff old/new values where relevant.
func New(actor, action, resource string, details map[string]any) Event {
	return Event{
		ID:        uuid.New(),
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// Recorder appends events to the audit trail.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Reader lists recent events, newest first. limit caps the result size;
// zero or less returns every event.
type Reader interface {
	List(ctx context.Context, limit int) ([]Event, error)
}
