package geocode

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/meetspot/meetspot-api/internal/api/amap"
	"github.com/meetspot/meetspot-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service resolves free-text addresses to coordinates and back.
type Service interface {
	Geocode(ctx context.Context, address, city string) (types.Coordinate, error)
	ReverseGeocode(ctx context.Context, coord types.Coordinate) (string, error)
}

type ServiceImpl struct {
	client      *amap.Client
	logger      *slog.Logger
	defaultCity string
	refLng      float64
	refLat      float64
}

func NewServiceImpl(client *amap.Client, defaultCity string, refLng, refLat float64, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		client:      client,
		logger:      logger,
		defaultCity: defaultCity,
		refLng:      refLng,
		refLat:      refLat,
	}
}

// Geocode resolves an address to a coordinate. Provider failures never
// propagate: a synthetic coordinate jittered around the reference point is
// returned instead, marked Approximate, so one bad address cannot stall a
// whole session. Only context cancellation surfaces as an error.
func (s *ServiceImpl) Geocode(ctx context.Context, address, city string) (types.Coordinate, error) {
	ctx, span := otel.Tracer("GeocodeService").Start(ctx, "Geocode")
	defer span.End()

	if city == "" {
		city = s.defaultCity
	}

	resp, err := s.client.Geo(ctx, address, city)
	if err == nil {
		if len(resp.Geocodes) == 0 {
			err = fmt.Errorf("no geocoding results for %q", address)
		} else if lng, lat, perr := amap.ParseLocation(resp.Geocodes[0].Location); perr != nil {
			err = perr
		} else {
			return types.Coordinate{Longitude: lng, Latitude: lat}, nil
		}
	}

	if ctx.Err() != nil {
		return types.Coordinate{}, ctx.Err()
	}

	span.RecordError(err)
	fallback := s.fallbackCoordinate(address)
	s.logger.WarnContext(ctx, "geocoding failed, using fallback coordinate",
		slog.String("address", address),
		slog.Float64("longitude", fallback.Longitude),
		slog.Float64("latitude", fallback.Latitude),
		slog.Any("error", err))
	return fallback, nil
}

// ReverseGeocode returns the formatted address for a coordinate, or a
// placeholder when the provider cannot resolve it.
func (s *ServiceImpl) ReverseGeocode(ctx context.Context, coord types.Coordinate) (string, error) {
	ctx, span := otel.Tracer("GeocodeService").Start(ctx, "ReverseGeocode")
	defer span.End()

	resp, err := s.client.ReGeocode(ctx, amap.FormatLocation(coord))
	if err != nil || resp.Regeocode.FormattedAddress == "" {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		span.RecordError(err)
		s.logger.WarnContext(ctx, "reverse geocoding failed", slog.Any("error", err))
		return "Unknown location", nil
	}
	return resp.Regeocode.FormattedAddress, nil
}

// fallbackCoordinate derives its jitter from the address so repeated lookups
// of the same address agree, keeping fallback behaviour reproducible.
func (s *ServiceImpl) fallbackCoordinate(address string) types.Coordinate {
	h := fnv.New64a()
	h.Write([]byte(address))
	sum := h.Sum64()

	jitterLng := float64(sum&0xffff) / 0xffff * 0.1
	jitterLat := float64((sum>>16)&0xffff) / 0xffff * 0.1

	return types.Coordinate{
		Longitude:   clamp(s.refLng+jitterLng, -180, 180),
		Latitude:    clamp(s.refLat+jitterLat, -90, 90),
		Approximate: true,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
