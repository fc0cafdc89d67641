package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"

	"github.com/meetspot/meetspot-api/internal/api/amap"
	"github.com/meetspot/meetspot-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service fetches the forecast for a city. A nil result with a nil error
// means the provider had nothing usable; scoring then simply treats weather
// preferences as unmatched.
type Service interface {
	Forecast(ctx context.Context, city string) (*types.WeatherData, error)
}

type ServiceImpl struct {
	client *amap.Client
	logger *slog.Logger
	cache  *cache.Cache
}

func NewServiceImpl(client *amap.Client, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		client: client,
		logger: logger,
		cache:  cache.New(30*time.Minute, 10*time.Minute),
	}
}

func (s *ServiceImpl) Forecast(ctx context.Context, city string) (*types.WeatherData, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "Forecast")
	defer span.End()

	if cached, ok := s.cache.Get(city); ok {
		return cached.(*types.WeatherData), nil
	}

	resp, err := s.client.Weather(ctx, city)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		span.RecordError(err)
		s.logger.WarnContext(ctx, "weather lookup failed", slog.String("city", city), slog.Any("error", err))
		return nil, nil
	}

	data := &types.WeatherData{City: city}
	for _, forecast := range resp.Forecasts {
		data.Forecasts = append(data.Forecasts, types.WeatherForecast{
			Date:         forecast.Date,
			DayWeather:   forecast.DayWeather,
			NightWeather: forecast.NightWeather,
			DayTemp:      forecast.DayTemp,
			NightTemp:    forecast.NightTemp,
		})
	}
	s.cache.Set(city, data, cache.DefaultExpiration)
	return data, nil
}
