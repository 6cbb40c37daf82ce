package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"terratrust/internal/store"
)

// roleKeyPrefix namespaces account roles in settings storage.
const roleKeyPrefix = "account.role."

// SettingsDirectory keeps the subsystem's mirror of account roles in
// settings storage. The approval gate reads it fresh on every check,
// so role changes take effect immediately.
type SettingsDirectory struct {
	settings store.SettingsStore
}

// NewSettingsDirectory wraps a settings store.
func NewSettingsDirectory(settings store.SettingsStore) *SettingsDirectory {
	return &SettingsDirectory{settings: settings}
}

// Role returns the stored role for username, or an empty string when
// the account is unknown.
func (d *SettingsDirectory) Role(ctx context.Context, username string) (string, error) {
	role, err := d.settings.GetSetting(ctx, roleKeyPrefix+username)
	if errors.Is(err, store.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("directory: failed to read role of %q: %w", username, err)
	}
	return role, nil
}

// SetRole stores or replaces the role for username.
func (d *SettingsDirectory) SetRole(ctx context.Context, username, role string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("directory: username must not be empty")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return fmt.Errorf("directory: role must not be empty")
	}
	if err := d.settings.PutSetting(ctx, roleKeyPrefix+username, role); err != nil {
		return fmt.Errorf("directory: failed to store role of %q: %w", username, err)
	}
	return nil
}

// Remove drops the role entry for username. Removing an unknown
// account is not an error.
func (d *SettingsDirectory) Remove(ctx context.Context, username string) error {
	if err := d.settings.DeleteSetting(ctx, roleKeyPrefix+username); err != nil {
		return fmt.Errorf("directory: failed to remove %q: %w", username, err)
	}
	return nil
}
