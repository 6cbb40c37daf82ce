package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"terratrust/internal/store"
)

// GetSetting returns the stored value for key, or store.ErrSettingNotFound.
func (r *Repo) GetSetting(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM settings WHERE key = $1`

	var value string
	err := r.pool.QueryRow(ctx, q, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: failed to read setting %q: %w", key, err)
	}
	return value, nil
}

// PutSetting inserts or replaces the value for key.
func (r *Repo) PutSetting(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("postgres: failed to write setting %q: %w", key, err)
	}
	return nil
}

// DeleteSetting removes the value for key. Deleting a missing key is not
// an error.
func (r *Repo) DeleteSetting(ctx context.Context, key string) error {
	const q = `DELETE FROM settings WHERE key = $1`

	if _, err := r.pool.Exec(ctx, q, key); err != nil {
		return fmt.Errorf("postgres: failed to delete setting %q: %w", key, err)
	}
	return nil
}
