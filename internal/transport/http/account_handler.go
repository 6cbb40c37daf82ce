package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
	"terratrust/internal/services"
	"terratrust/pkg/contracts/domain"
)

// AccountHandler serves the gated account operations. A denied but
// protected attempt answers 202 Accepted with the open approval window
// so callers can distinguish "confirm me" from success.
type AccountHandler struct {
	service services.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service services.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "account")),
	}
}

// PasswordRequest is an alias to the canonical contract type.
type PasswordRequest = domain.PasswordChangeRequest

// bindPasswordRequest decodes and validates a password change payload.
func bindPasswordRequest(r *http.Request, req *PasswordRequest) error {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		return errors.New("request body must be valid JSON")
	}
	return req.Validate()
}

// RoleRequest is an alias to the canonical contract type.
type RoleRequest = domain.RoleAssignmentRequest

// bindRoleRequest decodes and validates a role assignment payload.
func bindRoleRequest(r *http.Request, req *RoleRequest) error {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		return errors.New("request body must be valid JSON")
	}
	return req.Validate()
}

// Routes returns a chi router for account endpoints.
func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))

	r.Delete("/{username}", h.Delete)
	r.Post("/{username}/password", h.ChangePassword)
	r.Put("/{username}/role", h.SetRole)

	return r
}

// Delete handles DELETE /api/accounts/{username}.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := chi.URLParam(r, "username")

	decision, err := h.service.DeleteUser(ctx, actorFromRequest(r), target)
	if err != nil {
		h.logger.WarnContext(ctx, "account deletion rejected",
			slog.String("target", target),
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapApprovalError(err, infrastructure.TraceIDFromContext(ctx)))
		return
	}

	h.renderDecision(w, r, decision)
}

// ChangePassword handles POST /api/accounts/{username}/password.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := chi.URLParam(r, "username")

	var req PasswordRequest
	if err := bindPasswordRequest(r, &req); err != nil {
		render.Render(w, r, apperrors.NewErrorResponse(apperrors.InvalidRequestWithError(err)))
		return
	}

	decision, err := h.service.ChangePassword(ctx, actorFromRequest(r), target, req.NewPassword)
	if err != nil {
		h.logger.WarnContext(ctx, "password change rejected",
			slog.String("target", target),
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapApprovalError(err, infrastructure.TraceIDFromContext(ctx)))
		return
	}

	h.renderDecision(w, r, decision)
}

// SetRole handles PUT /api/accounts/{username}/role.
func (h *AccountHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := chi.URLParam(r, "username")

	var req RoleRequest
	if err := bindRoleRequest(r, &req); err != nil {
		render.Render(w, r, apperrors.NewErrorResponse(apperrors.InvalidRequestWithError(err)))
		return
	}

	if err := h.service.SetRole(ctx, actorFromRequest(r), target, req.Role); err != nil {
		render.Render(w, r, apperrors.NewErrorResponse(apperrors.InvalidRequestWithError(err)))
		return
	}

	render.NoContent(w, r)
}

func (h *AccountHandler) renderDecision(w http.ResponseWriter, r *http.Request, decision *services.GateDecisionResponse) {
	if !decision.Permitted {
		render.Status(r, http.StatusAccepted)
	}
	render.JSON(w, r, decision)
}
