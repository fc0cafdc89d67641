package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/meetspot/meetspot-api/internal/api/prefparse"
	"github.com/meetspot/meetspot-api/internal/types"
)

var ErrPlanNotFound = errors.New("travel plan not found")

var _ Service = (*ServiceImpl)(nil)

// Service generates travel plans from free-text preferences and keeps the
// generated plans retrievable by session id. Unlike meeting sessions, plans
// are stored already completed: generation happens inline.
type Service interface {
	Process(ctx context.Context, preferencesText string) (string, error)
	Get(ctx context.Context, sessionID string) (*types.TravelPlan, error)
}

type ServiceImpl struct {
	generator prefparse.ContentGenerator
	parser    prefparse.Service
	logger    *slog.Logger
	plans     *cache.Cache
}

func NewServiceImpl(generator prefparse.ContentGenerator, parser prefparse.Service, ttl time.Duration, logger *slog.Logger) *ServiceImpl {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ServiceImpl{
		generator: generator,
		parser:    parser,
		logger:    logger,
		plans:     cache.New(ttl, ttl/4),
	}
}

var htmlPattern = regexp.MustCompile(`(?is)<html.*</html>`)

const itineraryPromptTemplate = `You are an experienced travel itinerary planner. Based on the travel
preferences below, plan a detailed itinerary and present it as a single,
complete, self-contained HTML5 page styled with Tailwind CSS from a CDN.
The page must include a title section with the destination, a day-by-day
overview, a detailed schedule with times and places, transportation notes,
and accommodation and dining suggestions. Optimize the layout for mobile.

Original user input: "%s"

Parsed preferences:
%s

The destination appears to be: %s

Return only the HTML document.`

// Process parses the preferences, generates the plan and stores it under a
// fresh session id.
func (s *ServiceImpl) Process(ctx context.Context, preferencesText string) (string, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Process", trace.WithAttributes(
		attribute.Int("text.length", len(preferencesText)),
	))
	defer span.End()

	prefs, err := s.parser.Parse(ctx, preferencesText)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("parse travel preferences: %w", err)
	}

	plan, err := s.generate(ctx, prefs, preferencesText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan generation failed")
		return "", err
	}

	id := uuid.NewString()
	s.plans.Set(id, plan, cache.DefaultExpiration)

	s.logger.InfoContext(ctx, "travel plan stored",
		slog.String("sessionID", id), slog.String("destination", plan.Destination))
	span.SetStatus(codes.Ok, "plan stored")
	return id, nil
}

func (s *ServiceImpl) generate(ctx context.Context, prefs []types.ParsedPreference, original string) (*types.TravelPlan, error) {
	destination := "Unknown destination"
	for _, pref := range prefs {
		switch pref.Type {
		case "destination", "city", "country":
			destination = pref.Value
		}
		if destination != "Unknown destination" {
			break
		}
	}

	lines := make([]string, 0, len(prefs))
	for _, pref := range prefs {
		lines = append(lines, fmt.Sprintf("%s: %s (importance: %d/10)", pref.Type, pref.Value, pref.Importance))
	}

	prompt := fmt.Sprintf(itineraryPromptTemplate, original, strings.Join(lines, "\n"), destination)
	response, err := s.generator.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("generate itinerary: %w", err)
	}

	// The whole response is kept when no document markers are found; some
	// models answer with a fragment instead of a full document.
	html := response
	if match := htmlPattern.FindString(response); match != "" {
		html = match
	}

	return &types.TravelPlan{
		HTML:          html,
		Destination:   destination,
		Preferences:   prefs,
		OriginalInput: original,
	}, nil
}

func (s *ServiceImpl) Get(ctx context.Context, sessionID string) (*types.TravelPlan, error) {
	_, span := otel.Tracer("ItineraryService").Start(ctx, "Get")
	defer span.End()

	value, ok := s.plans.Get(sessionID)
	if !ok {
		return nil, ErrPlanNotFound
	}
	return value.(*types.TravelPlan), nil
}
