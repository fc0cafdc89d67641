package prefparse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/meetspot/meetspot-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// ContentGenerator is the slice of the AI client the parser needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

// Service turns a free-text preference description into structured
// preferences the matcher can score against.
type Service interface {
	Parse(ctx context.Context, preferencesText string) ([]types.ParsedPreference, error)
}

type ServiceImpl struct {
	generator   ContentGenerator
	logger      *slog.Logger
	temperature float32
}

func NewServiceImpl(generator ContentGenerator, temperature float32, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		generator:   generator,
		logger:      logger,
		temperature: temperature,
	}
}

// Models wrap the JSON array in prose or markdown fences; grab the array.
var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

const parsePromptTemplate = `Parse the following meeting location preferences into structured data.
For each preference, identify:
1. Type (e.g., "brand", "amenity", "location_type", "distance", "transportation")
2. Value (the specific brand, amenity, etc.)
3. Importance (a number from 1-10, where 10 is most important)

User preferences: "%s"

Return a JSON array of objects with the structure:
[
  {
    "type": "brand",
    "value": "Starbucks",
    "importance": 8
  },
  ...
]`

// Parse extracts structured preferences from free text. Empty input yields
// an empty slice without calling the model.
func (s *ServiceImpl) Parse(ctx context.Context, preferencesText string) ([]types.ParsedPreference, error) {
	ctx, span := otel.Tracer("PrefParseService").Start(ctx, "Parse", trace.WithAttributes(
		attribute.Int("text.length", len(preferencesText)),
	))
	defer span.End()

	if strings.TrimSpace(preferencesText) == "" {
		return []types.ParsedPreference{}, nil
	}

	prompt := fmt.Sprintf(parsePromptTemplate, preferencesText)
	response, err := s.generator.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.temperature),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, fmt.Errorf("generate preferences: %w", err)
	}

	raw := jsonArrayPattern.FindString(response)
	if raw == "" {
		err := fmt.Errorf("no JSON array in model response")
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable response")
		return nil, err
	}

	var prefs []types.ParsedPreference
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid JSON")
		return nil, fmt.Errorf("decode preferences: %w", err)
	}

	for i := range prefs {
		if prefs[i].Importance < 1 {
			prefs[i].Importance = 1
		}
		if prefs[i].Importance > 10 {
			prefs[i].Importance = 10
		}
	}

	s.logger.DebugContext(ctx, "parsed preferences", slog.Int("count", len(prefs)))
	span.SetStatus(codes.Ok, "preferences parsed")
	return prefs, nil
}
