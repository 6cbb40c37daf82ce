package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terratrust/internal/approval"
	apperrors "terratrust/internal/errors"
	"terratrust/internal/store/memory"
)

type recordingCredentialWriter struct {
	username string
	secret   string
}

func (w *recordingCredentialWriter) SetPassword(ctx context.Context, username, secret string) error {
	w.username, w.secret = username, secret
	return nil
}

func newAccountFixture(t *testing.T) (AccountService, *SettingsDirectory, *memory.Store, *recordingCredentialWriter) {
	t.Helper()
	st := memory.New()
	directory := NewSettingsDirectory(st)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := approval.NewGate(st, directory, st, logger, nil)
	credentials := &recordingCredentialWriter{}
	return NewAccountService(gate, directory, st, credentials, logger), directory, st, credentials
}

func TestDeleteUserUnprotectedRemovesDirectoryEntry(t *testing.T) {
	svc, directory, _, _ := newAccountFixture(t)
	ctx := context.Background()
	require.NoError(t, directory.SetRole(ctx, "dave", "analyst"))

	resp, err := svc.DeleteUser(ctx, "alice", "dave")
	require.NoError(t, err)
	assert.True(t, resp.Permitted)
	assert.False(t, resp.Protected)

	role, err := directory.Role(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, role)
}

func TestDeleteProtectedUserNeedsConfirmation(t *testing.T) {
	svc, directory, st, _ := newAccountFixture(t)
	ctx := context.Background()
	require.NoError(t, directory.SetRole(ctx, "carol", "administrator"))

	first, err := svc.DeleteUser(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.False(t, first.Permitted)
	assert.True(t, first.Protected)
	assert.NotZero(t, first.ExpiresAt)

	// The directory entry survives the denied first attempt.
	role, err := directory.Role(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "administrator", role)

	second, err := svc.DeleteUser(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.True(t, second.Permitted)

	role, err = directory.Role(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, role)

	events, err := st.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "user.delete.executed", events[0].Action)
	assert.Equal(t, "user.delete.confirmed", events[1].Action)
	assert.Equal(t, "user.delete.requested", events[2].Action)
}

func TestDeleteRootAccountAlwaysFails(t *testing.T) {
	svc, _, _, _ := newAccountFixture(t)

	_, err := svc.DeleteUser(context.Background(), "alice", approval.RootAccount)

	assert.ErrorIs(t, err, apperrors.ErrRootImmutable)
}

func TestChangePasswordProtectedRecordsExecution(t *testing.T) {
	svc, _, st, credentials := newAccountFixture(t)
	ctx := context.Background()

	first, err := svc.ChangePassword(ctx, "alice", approval.RootAccount, "hunter2hunter2")
	require.NoError(t, err)
	assert.False(t, first.Permitted)
	assert.Empty(t, credentials.secret, "a denied attempt must not touch credentials")

	second, err := svc.ChangePassword(ctx, "alice", approval.RootAccount, "hunter2hunter2")
	require.NoError(t, err)
	assert.True(t, second.Permitted)
	assert.Equal(t, approval.RootAccount, credentials.username)
	assert.Equal(t, "hunter2hunter2", credentials.secret)

	events, err := st.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "user.password_change.executed", events[0].Action)
	for _, event := range events {
		assert.NotContains(t, event.Details, "new_password")
	}
}

func TestChangePasswordUnprotectedLeavesNoTrail(t *testing.T) {
	svc, _, st, credentials := newAccountFixture(t)
	ctx := context.Background()

	resp, err := svc.ChangePassword(ctx, "alice", "dave", "hunter2hunter2")
	require.NoError(t, err)
	assert.True(t, resp.Permitted)
	assert.Equal(t, "dave", credentials.username)

	events, err := st.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSetRoleValidation(t *testing.T) {
	svc, directory, _, _ := newAccountFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.SetRole(ctx, "alice", "erin", "auditor"))
	role, err := directory.Role(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, "auditor", role)

	assert.Error(t, svc.SetRole(ctx, "alice", "", "auditor"))
	assert.Error(t, svc.SetRole(ctx, "alice", "erin", "  "))
}
