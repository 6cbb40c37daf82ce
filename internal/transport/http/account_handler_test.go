package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "terratrust/internal/errors"
	"terratrust/internal/services"
)

type stubAccountService struct {
	decision *services.GateDecisionResponse
	err      error

	lastActor  string
	lastTarget string
	lastRole   string
	lastSecret string
}

func (s *stubAccountService) DeleteUser(ctx context.Context, actor, target string) (*services.GateDecisionResponse, error) {
	s.lastActor, s.lastTarget = actor, target
	return s.decision, s.err
}

func (s *stubAccountService) ChangePassword(ctx context.Context, actor, target, newSecret string) (*services.GateDecisionResponse, error) {
	s.lastActor, s.lastTarget = actor, target
	s.lastSecret = newSecret
	return s.decision, s.err
}

func (s *stubAccountService) SetRole(ctx context.Context, actor, target, role string) error {
	s.lastActor, s.lastTarget, s.lastRole = actor, target, role
	return s.err
}

func TestDeletePermittedAnswersOK(t *testing.T) {
	stub := &stubAccountService{decision: &services.GateDecisionResponse{Permitted: true}}
	handler := NewAccountHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/dave", nil)
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", stub.lastActor)
	assert.Equal(t, "dave", stub.lastTarget)
}

func TestDeletePendingApprovalAnswersAccepted(t *testing.T) {
	expires := time.Now().Add(2 * time.Minute).UTC()
	stub := &stubAccountService{decision: &services.GateDecisionResponse{
		Protected: true,
		Message:   `operation on protected account "carol" requires confirmation`,
		ExpiresAt: expires,
	}}
	handler := NewAccountHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/carol", nil)
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp services.GateDecisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Permitted)
	assert.True(t, resp.Protected)
	assert.Contains(t, resp.Message, "confirmation")
}

func TestDeleteRootAccountAnswersForbidden(t *testing.T) {
	stub := &stubAccountService{err: apperrors.ErrRootImmutable}
	handler := NewAccountHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "ROOT_IMMUTABLE", problem["error_code"])
}

func TestMissingActorAnswersServerError(t *testing.T) {
	stub := &stubAccountService{err: apperrors.ErrActorMissing}
	handler := NewAccountHandler(stub, testLogger())

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/carol", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChangePasswordRoutesToService(t *testing.T) {
	stub := &stubAccountService{decision: &services.GateDecisionResponse{Permitted: true}}
	handler := NewAccountHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/carol/password",
		strings.NewReader(`{"new_password":"correct-horse-battery"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol", stub.lastTarget)
	assert.Equal(t, "correct-horse-battery", stub.lastSecret)
}

func TestChangePasswordRejectsShortSecret(t *testing.T) {
	handler := NewAccountHandler(&stubAccountService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/carol/password",
		strings.NewReader(`{"new_password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetRole(t *testing.T) {
	stub := &stubAccountService{}
	handler := NewAccountHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/erin/role", strings.NewReader(`{"role":"auditor"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "auditor", stub.lastRole)

	// Missing role field fails binding.
	badReq := httptest.NewRequest(http.MethodPut, "/erin/role", strings.NewReader(`{}`))
	badReq.Header.Set("Content-Type", "application/json")
	badRec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(badRec, badReq)
	assert.Equal(t, http.StatusBadRequest, badRec.Code)
}
