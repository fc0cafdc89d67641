package session

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/meetspot/meetspot-api/internal/api"
	"github.com/meetspot/meetspot-api/internal/api/prefparse"
	"github.com/meetspot/meetspot-api/internal/types"
)

type Handler struct {
	sessions Service
	parser   prefparse.Service
	logger   *slog.Logger
}

func NewHandler(sessions Service, parser prefparse.Service, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		parser:   parser,
		logger:   logger,
	}
}

type processRequest struct {
	People               []types.Person              `json:"people"`
	Preferences          string                      `json:"preferences"`
	TransportPreferences []types.TransportPreference `json:"transportPreferences"`
}

type processResponse struct {
	SessionID string `json:"sessionId"`
}

// ProcessLocations accepts a meeting request, parses the free-text
// preferences and starts asynchronous processing. It answers 202 with the
// session id the client polls GetResults with.
func (h *Handler) ProcessLocations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProcessLocations").Start(r.Context(), "ProcessLocations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/meeting/process"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ProcessLocations"))
	l.DebugContext(ctx, "Process locations handler invoked")

	var req processRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.People) < 2 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "At least two people are required")
		return
	}
	if strings.TrimSpace(req.Preferences) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Preferences text is required")
		return
	}
	for _, person := range req.People {
		if strings.TrimSpace(person.Name) == "" || strings.TrimSpace(person.Address) == "" {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Each person needs a name and an address")
			return
		}
	}

	prefs, err := h.parser.Parse(ctx, req.Preferences)
	if err != nil {
		span.RecordError(err)
		l.ErrorContext(ctx, "Failed to parse preferences", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to parse preferences")
		return
	}

	sessionID, err := h.sessions.Submit(ctx, req.People, prefs, req.TransportPreferences)
	if err != nil {
		if errors.Is(err, ErrInsufficientPeople) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "At least two people are required")
			return
		}
		span.RecordError(err)
		l.ErrorContext(ctx, "Failed to submit session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to process request")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusAccepted, processResponse{SessionID: sessionID})
}

// GetResults returns the current state of a session identified by the
// `session` query parameter.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GetResults").Start(r.Context(), "GetResults", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/meeting/results"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetResults"))

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	results, err := h.sessions.Results(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Session not found")
			return
		}
		span.RecordError(err)
		l.ErrorContext(ctx, "Failed to load session results", slog.String("sessionID", sessionID), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load results")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, results)
}
