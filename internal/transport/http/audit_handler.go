package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"terratrust/internal/audit"
	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
	"terratrust/internal/services"
)

// AuditHandler serves read-only access to the audit trail.
type AuditHandler struct {
	service services.AuditService
	logger  *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(service services.AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "audit")),
	}
}

// AuditListResponse wraps the returned events.
type AuditListResponse struct {
	Events  []audit.Event `json:"events"`
	Count   int           `json:"count"`
	TraceID string        `json:"trace_id,omitempty"`
}

// Routes returns a chi router for audit endpoints.
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", h.List)

	return r
}

// List handles GET /api/audit?limit=n.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			render.Render(w, r, apperrors.NewErrorResponse(
				apperrors.ErrValidation("limit", "must be an integer")))
			return
		}
		limit = parsed
	}

	events, err := h.service.ListEvents(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit listing failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.NewErrorResponse(
			apperrors.New(http.StatusInternalServerError, "AUDIT_READ_FAILED",
				"Failed to read the audit trail")))
		return
	}

	render.JSON(w, r, AuditListResponse{
		Events:  events,
		Count:   len(events),
		TraceID: infrastructure.TraceIDFromContext(ctx),
	})
}
