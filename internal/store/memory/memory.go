// Package memory provides in-process implementations of the store
// interfaces. It backs tests and single-node evaluation deployments;
// production installs use the postgres package.
package memory

import (
	"context"
	"sync"
	"time"

	"terratrust/internal/audit"
	"terratrust/internal/store"
)

// Store holds all state behind a single mutex. The approval uniqueness
// guarantee falls out of the map semantics under the lock.
type Store struct {
	mu        sync.Mutex
	settings  map[string]string
	approvals map[store.ApprovalKey]store.Approval
	events    []audit.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		settings:  make(map[string]string),
		approvals: make(map[store.ApprovalKey]store.Approval),
	}
}

// GetSetting implements store.SettingsStore.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.settings[key]
	if !ok {
		return "", store.ErrSettingNotFound
	}
	return value, nil
}

// PutSetting implements store.SettingsStore.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return nil
}

// DeleteSetting implements store.SettingsStore.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.settings, key)
	return nil
}

// FindApproval implements store.ApprovalStore.
func (s *Store) FindApproval(ctx context.Context, key store.ApprovalKey) (*store.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval, ok := s.approvals[key]
	if !ok {
		return nil, nil
	}
	copied := approval
	return &copied, nil
}

// InsertApproval implements store.ApprovalStore.
func (s *Store) InsertApproval(ctx context.Context, approval store.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.approvals[approval.Key]; exists {
		return store.ErrDuplicateApproval
	}
	s.approvals[approval.Key] = approval
	return nil
}

// DeleteApproval implements store.ApprovalStore.
func (s *Store) DeleteApproval(ctx context.Context, key store.ApprovalKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.approvals, key)
	return nil
}

// PurgeExpired implements store.ApprovalStore.
func (s *Store) PurgeExpired(ctx context.Context, key store.ApprovalKey, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if approval, ok := s.approvals[key]; ok && approval.Expired(now) {
		delete(s.approvals, key)
	}
	return nil
}

// Record implements audit.Recorder. Events are append-only.
func (s *Store) Record(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

// List implements audit.Reader, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	out := make([]audit.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
