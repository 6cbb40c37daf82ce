// Package store defines the persistence capabilities consumed by the
// license manager and the approval gate: a key-value settings store, an
// approvals table with a uniqueness guarantee on (actor, target, action),
// and the append-only audit table. Implementations live in the postgres
// and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSettingNotFound is returned when a settings key does not exist.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrDuplicateApproval is returned when an insert collides with an
	// existing row for the same key. Callers treat this the same as
	// observing the row: the externally visible effect ("please repeat
	// this request") is identical.
	ErrDuplicateApproval = errors.New("approval row already exists")
)

// ApprovalKey uniquely identifies a pending approval. Actor identity is
// part of the key, so each operator gets an independent approval clock.
type ApprovalKey struct {
	Actor  string
	Target string
	Action string
}

// Approval is an ephemeral protocol row. At most one live row may exist
// per key at any instant.
type Approval struct {
	Key       ApprovalKey
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the row's window has elapsed at the given time.
func (a Approval) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// SettingsStore is generic key-value persistence for the license token
// and the tolerance flag. Single-writer-expected, many-reader;
// last-write-wins is sufficient.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// ApprovalStore persists ephemeral approval rows. Implementations must
// enforce uniqueness on the key; concurrent first-attempt races resolve
// to exactly one live row.
type ApprovalStore interface {
	// FindApproval returns the row for the key, or nil if none exists.
	FindApproval(ctx context.Context, key ApprovalKey) (*Approval, error)

	// InsertApproval creates a fresh row, returning ErrDuplicateApproval
	// if a row for the key already exists.
	InsertApproval(ctx context.Context, approval Approval) error

	// DeleteApproval removes the row for the key. Deleting a missing row
	// is not an error.
	DeleteApproval(ctx context.Context, key ApprovalKey) error

	// PurgeExpired removes rows for the key whose window elapsed before now.
	PurgeExpired(ctx context.Context, key ApprovalKey, now time.Time) error
}
