package poisearch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meetspot/meetspot-api/internal/api/amap"
	"github.com/meetspot/meetspot-api/internal/types"
)

const (
	// DefaultRadius bounds the around-point search in meters.
	DefaultRadius = 3000

	// detailLimit caps detail lookups to keep provider round-trips bounded.
	detailLimit = 5
)

var _ Service = (*ServiceImpl)(nil)

// Service produces candidate meeting points near a center coordinate.
type Service interface {
	SearchCandidates(ctx context.Context, center types.Coordinate, prefs []types.ParsedPreference, radius int) ([]types.CandidatePOI, error)
}

type ServiceImpl struct {
	client      *amap.Client
	logger      *slog.Logger
	defaultCity string
}

func NewServiceImpl(client *amap.Client, defaultCity string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		client:      client,
		logger:      logger,
		defaultCity: defaultCity,
	}
}

// SearchCandidates merges an around-point search with an optional typed text
// search, ranks the union by distance to center and enriches the top
// candidates with detail lookups. The caller always receives a non-empty
// list: on provider failure a small synthetic candidate set is generated
// around the center instead.
func (s *ServiceImpl) SearchCandidates(ctx context.Context, center types.Coordinate, prefs []types.ParsedPreference, radius int) ([]types.CandidatePOI, error) {
	ctx, span := otel.Tracer("POISearchService").Start(ctx, "SearchCandidates")
	defer span.End()

	if radius <= 0 {
		radius = DefaultRadius
	}

	keywords := joinValues(prefs, types.PreferenceBrand, types.PreferenceAmenity)
	poiTypes := joinValues(prefs, types.PreferenceLocationType)

	candidates, err := s.collect(ctx, center, keywords, poiTypes, radius)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		span.RecordError(err)
		s.logger.WarnContext(ctx, "POI search failed, generating synthetic candidates", slog.Any("error", err))
		return s.syntheticCandidates(center), nil
	}
	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))

	sortByCenterDistance(candidates, center)

	limit := len(candidates)
	if limit > detailLimit {
		limit = detailLimit
	}
	out := make([]types.CandidatePOI, 0, limit)
	for _, candidate := range candidates[:limit] {
		out = append(out, s.withDetails(ctx, candidate))
	}
	return out, nil
}

func (s *ServiceImpl) collect(ctx context.Context, center types.Coordinate, keywords, poiTypes string, radius int) ([]types.CandidatePOI, error) {
	around, err := s.client.AroundSearch(ctx, amap.FormatLocation(center), keywords, radius)
	if err != nil {
		return nil, fmt.Errorf("around search: %w", err)
	}

	merged := make([]types.CandidatePOI, 0, len(around.Pois))
	seen := make(map[string]bool, len(around.Pois))
	for _, raw := range around.Pois {
		if candidate, ok := s.toCandidate(raw); ok && !seen[candidate.ID] {
			seen[candidate.ID] = true
			merged = append(merged, candidate)
		}
	}

	// A supplementary text search only runs when the preferences constrain
	// the POI type; its results never displace around-search hits.
	if poiTypes != "" {
		textKeywords := keywords
		if textKeywords == "" {
			textKeywords = "meeting point"
		}
		text, err := s.client.TextSearch(ctx, textKeywords, poiTypes, s.defaultCity)
		if err != nil {
			s.logger.WarnContext(ctx, "text search failed, keeping around-search results", slog.Any("error", err))
		} else {
			for _, raw := range text.Pois {
				if candidate, ok := s.toCandidate(raw); ok && !seen[candidate.ID] {
					seen[candidate.ID] = true
					merged = append(merged, candidate)
				}
			}
		}
	}
	return merged, nil
}

func (s *ServiceImpl) toCandidate(raw amap.POI) (types.CandidatePOI, bool) {
	lng, lat, err := amap.ParseLocation(raw.Location)
	if err != nil {
		s.logger.Debug("skipping POI with malformed location", slog.String("id", raw.ID), slog.Any("error", err))
		return types.CandidatePOI{}, false
	}
	address := raw.Address
	if address == "" {
		address = "No address available"
	}
	return types.CandidatePOI{
		ID:       raw.ID,
		Name:     raw.Name,
		Address:  address,
		Location: types.Coordinate{Longitude: lng, Latitude: lat},
		Type:     raw.Type,
	}, true
}

// withDetails enriches a candidate via the detail endpoint. A failed lookup
// degrades that entry to its basic search fields instead of failing the call.
func (s *ServiceImpl) withDetails(ctx context.Context, candidate types.CandidatePOI) types.CandidatePOI {
	resp, err := s.client.SearchDetail(ctx, candidate.ID)
	if err != nil || len(resp.Pois) == 0 {
		s.logger.DebugContext(ctx, "POI detail lookup failed, keeping basic fields",
			slog.String("id", candidate.ID), slog.Any("error", err))
		return candidate
	}

	detail := resp.Pois[0]
	if detail.Address != "" {
		candidate.Address = detail.Address
	}
	candidate.Type = detail.Type
	candidate.Tel = detail.Tel
	candidate.Website = detail.Website
	candidate.BusinessArea = detail.BusinessArea
	if lng, lat, perr := amap.ParseLocation(detail.Location); perr == nil {
		candidate.Location = types.Coordinate{Longitude: lng, Latitude: lat}
	}
	return candidate
}

// sortByCenterDistance orders candidates by squared degree distance to the
// center, ascending. No trig needed at city scale.
func sortByCenterDistance(candidates []types.CandidatePOI, center types.Coordinate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return squaredDistance(candidates[i].Location, center) < squaredDistance(candidates[j].Location, center)
	})
}

func squaredDistance(a, b types.Coordinate) float64 {
	dLat := a.Latitude - b.Latitude
	dLng := a.Longitude - b.Longitude
	return dLat*dLat + dLng*dLng
}

func joinValues(prefs []types.ParsedPreference, wanted ...types.PreferenceType) string {
	var values []string
	for _, pref := range prefs {
		for _, t := range wanted {
			if pref.Type == t {
				values = append(values, pref.Value)
				break
			}
		}
	}
	return strings.Join(values, "|")
}

var syntheticNames = []string{"Shopping Mall", "Office Building", "Restaurant", "Cafe", "Park"}

// syntheticCandidates keeps the pipeline fed when the provider is down.
func (s *ServiceImpl) syntheticCandidates(center types.Coordinate) []types.CandidatePOI {
	count := 3 + rand.Intn(3)
	out := make([]types.CandidatePOI, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, types.CandidatePOI{
			ID:      fmt.Sprintf("poi-%d", i),
			Name:    fmt.Sprintf("%s %d", syntheticNames[rand.Intn(len(syntheticNames))], i+1),
			Address: fmt.Sprintf("Sample Street %d, %s", 100+i, s.defaultCity),
			Location: types.Coordinate{
				Longitude:   center.Longitude + (rand.Float64()-0.5)*0.01,
				Latitude:    center.Latitude + (rand.Float64()-0.5)*0.01,
				Approximate: true,
			},
		})
	}
	return out
}
