package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"terratrust/internal/audit"
)

// Record appends an audit event. The table has no update or delete path,
// so recorded events are immutable.
func (r *Repo) Record(ctx context.Context, event audit.Event) error {
	const q = `
		INSERT INTO audit_events (id, actor, action, resource, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("postgres: failed to encode audit details: %w", err)
		}
	}

	if _, err := r.pool.Exec(ctx, q,
		event.ID, event.Actor, event.Action, event.Resource, details, event.CreatedAt); err != nil {
		return fmt.Errorf("postgres: failed to record audit event: %w", err)
	}
	return nil
}

// List returns the most recent audit events, newest first. A limit of
// zero or less returns every event, like the in-memory backend.
func (r *Repo) List(ctx context.Context, limit int) ([]audit.Event, error) {
	const q = `
		SELECT id, actor, action, resource, details, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1`

	// LIMIT NULL means no limit in Postgres.
	bound := any(limit)
	if limit <= 0 {
		bound = nil
	}

	rows, err := r.pool.Query(ctx, q, bound)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var details []byte
		if err := rows.Scan(&event.ID, &event.Actor, &event.Action,
			&event.Resource, &details, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit event: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("postgres: failed to decode audit details: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read audit events: %w", err)
	}
	return events, nil
}
