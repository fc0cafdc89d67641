package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meetspot/meetspot-api/internal/api/match"
	"github.com/meetspot/meetspot-api/internal/api/poisearch"
	"github.com/meetspot/meetspot-api/internal/api/routing"
	"github.com/meetspot/meetspot-api/internal/api/weather"
	"github.com/meetspot/meetspot-api/internal/types"
)

// maxCandidates bounds per-person routing fan-out; each extra candidate
// costs one provider round-trip per participant.
const maxCandidates = 3

var ErrNoPeople = errors.New("at least one located person is required")

var _ Service = (*ServiceImpl)(nil)

// Service ranks candidate meeting points for a group of located people.
type Service interface {
	Find(ctx context.Context, people []types.LocatedPerson, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference) ([]types.Recommendation, error)
}

type ServiceImpl struct {
	pois         poisearch.Service
	routes       routing.Service
	weather      weather.Service
	logger       *slog.Logger
	weatherCity  string
	searchRadius int
}

func NewServiceImpl(pois poisearch.Service, routes routing.Service, weatherSvc weather.Service, weatherCity string, searchRadius int, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		pois:         pois,
		routes:       routes,
		weather:      weatherSvc,
		logger:       logger,
		weatherCity:  weatherCity,
		searchRadius: searchRadius,
	}
}

// Find searches around the group centroid, routes every person to each of
// the top candidates and scores the candidates against the preferences.
// The result is ordered by match score descending; equal scores keep the
// candidate discovery order.
func (s *ServiceImpl) Find(ctx context.Context, people []types.LocatedPerson, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference) ([]types.Recommendation, error) {
	ctx, span := otel.Tracer("MeetingService").Start(ctx, "Find", trace.WithAttributes(
		attribute.Int("people.count", len(people)),
		attribute.Int("preferences.count", len(prefs)),
	))
	defer span.End()

	if len(people) == 0 {
		return nil, ErrNoPeople
	}

	centroid := centroidOf(people)

	// Weather is fetched once per call and shared across candidates, and
	// only when a weather preference makes it relevant.
	var weatherData *types.WeatherData
	if hasWeatherPreference(prefs) {
		var err error
		weatherData, err = s.weather.Forecast(ctx, s.weatherCity)
		if err != nil {
			s.logger.WarnContext(ctx, "weather unavailable, weather preferences will not match", slog.Any("error", err))
			weatherData = nil
		}
	}

	candidates, err := s.pois.SearchCandidates(ctx, centroid, prefs, s.searchRadius)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("candidate search: %w", err)
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	recommendations := make([]types.Recommendation, 0, len(candidates))
	for _, candidate := range candidates {
		recommendation, err := s.assess(ctx, candidate, centroid, people, prefs, transportPrefs, weatherData)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		recommendations = append(recommendations, recommendation)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].MatchScore > recommendations[j].MatchScore
	})

	span.SetStatus(codes.Ok, "recommendations produced")
	return recommendations, nil
}

func (s *ServiceImpl) assess(ctx context.Context, candidate types.CandidatePOI, centroid types.Coordinate, people []types.LocatedPerson, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference, weatherData *types.WeatherData) (types.Recommendation, error) {
	straightLine, err := s.routes.Distance(ctx, centroid, candidate.Location)
	if err != nil {
		return types.Recommendation{}, fmt.Errorf("distance to %s: %w", candidate.Name, err)
	}

	resultPeople := make([]types.ResultPerson, 0, len(people))
	totalMinutes := 0
	minMinutes := math.MaxInt
	maxMinutes := -1
	var closest, furthest types.PersonTravel

	for _, person := range people {
		mode := resolveMode(person.ID, transportPrefs)
		route, err := s.routes.Route(ctx, person.Coordinate, candidate.Location, mode)
		if err != nil {
			return types.Recommendation{}, fmt.Errorf("route for %s: %w", person.Name, err)
		}

		resultPerson := types.ResultPerson{
			Name:          person.Name,
			TravelTime:    fmt.Sprintf("%d min", route.Duration),
			TransitInfo:   strings.Join(route.Steps, ", "),
			TransportMode: mode,
		}
		totalMinutes += route.Duration

		// Strict comparisons keep the first-seen person on ties.
		if route.Duration < minMinutes {
			minMinutes = route.Duration
			closest = types.PersonTravel{Name: person.Name, TravelTime: resultPerson.TravelTime}
		}
		if route.Duration > maxMinutes {
			maxMinutes = route.Duration
			furthest = types.PersonTravel{Name: person.Name, TravelTime: resultPerson.TravelTime}
		}
		resultPeople = append(resultPeople, resultPerson)
	}

	matched := match.Preferences(candidate, prefs, weatherData)
	matchedValues := make([]string, 0, len(matched))
	for _, pref := range matched {
		matchedValues = append(matchedValues, pref.Value)
	}

	average := int(math.Round(float64(totalMinutes) / float64(len(resultPeople))))
	return types.Recommendation{
		ID:                   candidate.ID,
		Name:                 candidate.Name,
		Address:              candidate.Address,
		MatchScore:           match.Score(matched, prefs),
		Rationale:            match.Rationale(matched, len(resultPeople)),
		MatchedPreferences:   matchedValues,
		People:               resultPeople,
		AverageTravelTime:    fmt.Sprintf("%d min avg", average),
		FurthestPerson:       furthest,
		ClosestPerson:        closest,
		Type:                 candidate.Type,
		Tel:                  candidate.Tel,
		Website:              candidate.Website,
		BusinessArea:         candidate.BusinessArea,
		StraightLineDistance: fmt.Sprintf("%.1f km", straightLine/1000),
	}, nil
}

// centroidOf is the arithmetic mean of the coordinates, which is close
// enough to a geodesic mean at city scale.
func centroidOf(people []types.LocatedPerson) types.Coordinate {
	var centroid types.Coordinate
	for _, person := range people {
		centroid.Longitude += person.Coordinate.Longitude / float64(len(people))
		centroid.Latitude += person.Coordinate.Latitude / float64(len(people))
	}
	return centroid
}

func hasWeatherPreference(prefs []types.ParsedPreference) bool {
	for _, pref := range prefs {
		if pref.Type == types.PreferenceWeather {
			return true
		}
	}
	return false
}

func resolveMode(personID string, transportPrefs []types.TransportPreference) types.TransportMode {
	if personID != "" {
		for _, pref := range transportPrefs {
			if pref.PersonID == personID {
				return pref.Mode
			}
		}
	}
	return types.ModeTransit
}
