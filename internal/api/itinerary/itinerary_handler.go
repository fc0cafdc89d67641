package itinerary

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/meetspot/meetspot-api/internal/api"
)

type Handler struct {
	plans  Service
	logger *slog.Logger
}

func NewHandler(plans Service, logger *slog.Logger) *Handler {
	return &Handler{
		plans:  plans,
		logger: logger,
	}
}

type processRequest struct {
	Preferences string `json:"preferences"`
}

type processResponse struct {
	SessionID string `json:"sessionId"`
}

// ProcessTravelPlan generates a travel plan from free-text preferences and
// returns the session id to fetch it with.
func (h *Handler) ProcessTravelPlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProcessTravelPlan").Start(r.Context(), "ProcessTravelPlan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/travel/process"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ProcessTravelPlan"))

	var req processRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Preferences) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Travel preferences are required")
		return
	}

	sessionID, err := h.plans.Process(ctx, req.Preferences)
	if err != nil {
		span.RecordError(err)
		l.ErrorContext(ctx, "Failed to generate travel plan", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to process travel plan")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, processResponse{SessionID: sessionID})
}

// GetResults returns a stored travel plan by the `session` query parameter.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GetTravelResults").Start(r.Context(), "GetTravelResults", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/travel/results"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetTravelResults"))

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	plan, err := h.plans.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Travel plan not found")
			return
		}
		span.RecordError(err)
		l.ErrorContext(ctx, "Failed to load travel plan", slog.String("sessionID", sessionID), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load travel plan")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}
