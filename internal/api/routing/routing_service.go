package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meetspot/meetspot-api/internal/api/amap"
	"github.com/meetspot/meetspot-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service computes routes and distances between coordinates.
type Service interface {
	Route(ctx context.Context, origin, destination types.Coordinate, mode types.TransportMode) (types.RouteResult, error)
	Distance(ctx context.Context, origin, destination types.Coordinate) (float64, error)
}

type ServiceImpl struct {
	client      *amap.Client
	logger      *slog.Logger
	transitCity string
}

func NewServiceImpl(client *amap.Client, transitCity string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		client:      client,
		logger:      logger,
		transitCity: transitCity,
	}
}

var errNoRoute = errors.New("no route results found")

// Route normalizes the mode-specific provider payload into a common result.
// When the provider yields no usable path (zero duration and distance) or the
// call fails, a deterministic straight-line estimate takes its place.
func (s *ServiceImpl) Route(ctx context.Context, origin, destination types.Coordinate, mode types.TransportMode) (types.RouteResult, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "Route")
	defer span.End()

	if mode == "" {
		mode = types.ModeTransit
	}
	span.SetAttributes(attribute.String("transport.mode", string(mode)))

	normalize, ok := normalizers[mode]
	if !ok {
		return types.RouteResult{}, fmt.Errorf("unsupported transport mode %q", mode)
	}

	durationSec, distance, steps, err := normalize(ctx, s, origin, destination)
	if err == nil && (durationSec != 0 || distance != 0) {
		return types.RouteResult{
			Duration: int(math.Round(durationSec / 60)),
			Distance: int(math.Round(distance)),
			Steps:    steps,
			Mode:     mode,
		}, nil
	}

	if ctx.Err() != nil {
		return types.RouteResult{}, ctx.Err()
	}
	if err == nil {
		err = errNoRoute
	}
	span.RecordError(err)
	s.logger.WarnContext(ctx, "route calculation failed, using straight-line estimate",
		slog.String("mode", string(mode)), slog.Any("error", err))
	return estimateRoute(origin, destination, mode), nil
}

// Distance is the straight-line distance in meters, preferring the provider
// and falling back to the local approximation.
func (s *ServiceImpl) Distance(ctx context.Context, origin, destination types.Coordinate) (float64, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "Distance")
	defer span.End()

	resp, err := s.client.Distance(ctx, amap.FormatLocation(origin), amap.FormatLocation(destination), 0)
	if err == nil && len(resp.Results) > 0 && resp.Results[0].Distance > 0 {
		return resp.Results[0].Distance, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	span.RecordError(err)
	s.logger.WarnContext(ctx, "distance calculation failed, using straight-line approximation", slog.Any("error", err))
	return straightLineMeters(origin, destination), nil
}

// normalizeFunc fetches one mode's provider payload and reduces it to
// duration (seconds), distance (meters) and human-readable steps.
type normalizeFunc func(ctx context.Context, s *ServiceImpl, origin, destination types.Coordinate) (durationSec, distanceM float64, steps []string, err error)

var normalizers = map[types.TransportMode]normalizeFunc{
	types.ModeWalking:   normalizeWalking,
	types.ModeBicycling: normalizeBicycling,
	types.ModeDriving:   normalizeDriving,
	types.ModeTransit:   normalizeTransit,
}

func normalizeWalking(ctx context.Context, s *ServiceImpl, origin, destination types.Coordinate) (float64, float64, []string, error) {
	resp, err := s.client.DirectionWalking(ctx, amap.FormatLocation(origin), amap.FormatLocation(destination))
	if err != nil {
		return 0, 0, nil, err
	}
	if len(resp.Route.Paths) == 0 {
		return 0, 0, nil, nil
	}
	path := resp.Route.Paths[0]
	return path.Duration, path.Distance, prefixedSteps("Walk", path.Steps), nil
}

func normalizeBicycling(ctx context.Context, s *ServiceImpl, origin, destination types.Coordinate) (float64, float64, []string, error) {
	resp, err := s.client.DirectionBicycling(ctx, amap.FormatLocation(origin), amap.FormatLocation(destination))
	if err != nil {
		return 0, 0, nil, err
	}
	if len(resp.Data.Paths) == 0 {
		return 0, 0, nil, nil
	}
	path := resp.Data.Paths[0]
	return path.Duration, path.Distance, prefixedSteps("Cycle", path.Steps), nil
}

func normalizeDriving(ctx context.Context, s *ServiceImpl, origin, destination types.Coordinate) (float64, float64, []string, error) {
	resp, err := s.client.DirectionDriving(ctx, amap.FormatLocation(origin), amap.FormatLocation(destination))
	if err != nil {
		return 0, 0, nil, err
	}
	if len(resp.Route.Paths) == 0 {
		return 0, 0, nil, nil
	}
	path := resp.Route.Paths[0]
	return path.Duration, path.Distance, prefixedSteps("Drive", path.Steps), nil
}

func normalizeTransit(ctx context.Context, s *ServiceImpl, origin, destination types.Coordinate) (float64, float64, []string, error) {
	resp, err := s.client.DirectionTransit(ctx, amap.FormatLocation(origin), amap.FormatLocation(destination), s.transitCity, s.transitCity)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(resp.Route.Transits) == 0 {
		return 0, 0, nil, nil
	}

	transit := resp.Route.Transits[0]
	steps := make([]string, 0, len(transit.Segments))
	for _, segment := range transit.Segments {
		switch {
		case segment.Walking != nil:
			steps = append(steps, fmt.Sprintf("Walk %.0fm", segment.Walking.Distance))
		case segment.Bus != nil && len(segment.Bus.Buslines) > 0:
			line := segment.Bus.Buslines[0]
			steps = append(steps, fmt.Sprintf("Take %s for %d stops", line.Name, line.ViaStops))
		case segment.Railway != nil:
			steps = append(steps, fmt.Sprintf("Take %s for %d stops", segment.Railway.Name, segment.Railway.ViaStops))
		default:
			steps = append(steps, "Transit")
		}
	}
	return transit.Duration, transit.Distance, steps, nil
}

func prefixedSteps(verb string, steps []amap.Step) []string {
	out := make([]string, 0, len(steps))
	for _, step := range steps {
		out = append(out, verb+" "+step.Instruction)
	}
	return out
}

// Empirical speeds in meters per minute used by the fallback estimate.
var metersPerMinute = map[types.TransportMode]float64{
	types.ModeWalking:   80,
	types.ModeBicycling: 250,
	types.ModeDriving:   800,
	types.ModeTransit:   500,
}

var fallbackStep = map[types.TransportMode]string{
	types.ModeWalking:   "Walk to destination",
	types.ModeBicycling: "Cycle to destination",
	types.ModeDriving:   "Drive to destination",
	types.ModeTransit:   "Take public transit to destination",
}

// estimateRoute is pure arithmetic: the same inputs always produce the same
// output.
func estimateRoute(origin, destination types.Coordinate, mode types.TransportMode) types.RouteResult {
	distance := straightLineMeters(origin, destination)
	return types.RouteResult{
		Duration: int(math.Round(distance / metersPerMinute[mode])),
		Distance: int(math.Round(distance)),
		Steps:    []string{fallbackStep[mode]},
		Mode:     mode,
	}
}

const earthRadiusMeters = 6371000

// straightLineMeters uses the equirectangular approximation, fine at city
// scale.
func straightLineMeters(a, b types.Coordinate) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := latB - latA
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180
	x := dLng * math.Cos((latA+latB)/2)
	return earthRadiusMeters * math.Sqrt(x*x+dLat*dLat)
}
