// Package postgres implements the store interfaces on PostgreSQL using
// pgx. The approvals table carries the primary key that backs the
// at-most-one-live-row guarantee per (actor, target, action).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"terratrust/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS approvals (
	actor      TEXT NOT NULL,
	target     TEXT NOT NULL,
	action     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (actor, target, action)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id         UUID PRIMARY KEY,
	actor      TEXT NOT NULL,
	action     TEXT NOT NULL,
	resource   TEXT NOT NULL,
	details    JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
`

// Repo implements store.SettingsStore, store.ApprovalStore,
// audit.Recorder and audit.Reader on a shared connection pool.
type Repo struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and ensures the schema exists.
func New(ctx context.Context, cfg config.StoreConfig) (*Repo, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = cfg.Timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	repo := &Repo{pool: pool}
	if err := repo.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return repo, nil
}

// initSchema creates the tables if they do not exist yet
func (r *Repo) initSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}
