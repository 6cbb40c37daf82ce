package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"terratrust/internal/store"
)

// FindApproval returns the pending approval for key, or nil when none
// exists.
func (r *Repo) FindApproval(ctx context.Context, key store.ApprovalKey) (*store.Approval, error) {
	const q = `
		SELECT created_at, expires_at FROM approvals
		WHERE actor = $1 AND target = $2 AND action = $3`

	approval := store.Approval{Key: key}
	err := r.pool.QueryRow(ctx, q, key.Actor, key.Target, key.Action).
		Scan(&approval.CreatedAt, &approval.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to find approval: %w", err)
	}
	return &approval, nil
}

// InsertApproval creates a pending approval. The primary key enforces a
// single row per (actor, target, action); a conflicting insert returns
// store.ErrDuplicateApproval.
func (r *Repo) InsertApproval(ctx context.Context, approval store.Approval) error {
	const q = `
		INSERT INTO approvals (actor, target, action, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (actor, target, action) DO NOTHING`

	tag, err := r.pool.Exec(ctx, q,
		approval.Key.Actor, approval.Key.Target, approval.Key.Action,
		approval.CreatedAt, approval.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDuplicateApproval
	}
	return nil
}

// DeleteApproval removes the approval for key. Deleting a missing row is
// not an error.
func (r *Repo) DeleteApproval(ctx context.Context, key store.ApprovalKey) error {
	const q = `DELETE FROM approvals WHERE actor = $1 AND target = $2 AND action = $3`

	if _, err := r.pool.Exec(ctx, q, key.Actor, key.Target, key.Action); err != nil {
		return fmt.Errorf("postgres: failed to delete approval: %w", err)
	}
	return nil
}

// PurgeExpired removes the approval for key when its window has already
// closed at now.
func (r *Repo) PurgeExpired(ctx context.Context, key store.ApprovalKey, now time.Time) error {
	const q = `
		DELETE FROM approvals
		WHERE actor = $1 AND target = $2 AND action = $3 AND expires_at <= $4`

	if _, err := r.pool.Exec(ctx, q, key.Actor, key.Target, key.Action, now); err != nil {
		return fmt.Errorf("postgres: failed to purge expired approval: %w", err)
	}
	return nil
}
