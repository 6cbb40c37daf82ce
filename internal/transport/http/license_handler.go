package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
	"terratrust/internal/services"
	"terratrust/pkg/contracts/domain"
)

// LicenseHandler serves the license lifecycle endpoints.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// ActivationRequest is an alias to the canonical contract type.
type ActivationRequest = domain.LicenseActivationRequest

// bindActivationRequest decodes and validates an activation payload.
func bindActivationRequest(r *http.Request, req *ActivationRequest) error {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		return errors.New("request body must be valid JSON")
	}
	return req.Validate()
}

// Routes returns a chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/status", h.GetStatus)
	r.Post("/activate", h.Activate)
	r.Post("/deactivate", h.Deactivate)

	return r
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)

	status, err := h.service.GetStatus(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "license status check failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapLicenseError(err, traceID))
		return
	}

	render.JSON(w, r, status)
}

// Activate handles POST /api/license/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(r.Context(), "license.activate")
	defer span.End()
	traceID := infrastructure.TraceIDFromContext(ctx)

	var req ActivationRequest
	if err := bindActivationRequest(r, &req); err != nil {
		render.Render(w, r, apperrors.NewErrorResponse(apperrors.InvalidRequestWithError(err)))
		return
	}

	status, err := h.service.Activate(ctx, actorFromRequest(r), services.ActivationRequest{
		Token:          req.Token,
		AllowTolerance: req.AllowTolerance,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "license activation failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapLicenseError(err, traceID))
		return
	}

	span.SetAttributes(
		attribute.String("license.status", status.LicenseStatus),
		attribute.Bool("license.tolerant", status.Tolerant),
	)
	render.JSON(w, r, status)
}

// Deactivate handles POST /api/license/deactivate.
func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)

	if err := h.service.Deactivate(ctx, actorFromRequest(r)); err != nil {
		h.logger.WarnContext(ctx, "license deactivation failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapLicenseError(err, traceID))
		return
	}

	render.NoContent(w, r)
}
