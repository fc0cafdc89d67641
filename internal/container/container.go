package container

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/meetspot/meetspot-api/config"
	"github.com/meetspot/meetspot-api/internal/api/amap"
	"github.com/meetspot/meetspot-api/internal/api/generative"
	"github.com/meetspot/meetspot-api/internal/api/geocode"
	"github.com/meetspot/meetspot-api/internal/api/itinerary"
	"github.com/meetspot/meetspot-api/internal/api/meeting"
	"github.com/meetspot/meetspot-api/internal/api/poisearch"
	"github.com/meetspot/meetspot-api/internal/api/prefparse"
	"github.com/meetspot/meetspot-api/internal/api/routing"
	"github.com/meetspot/meetspot-api/internal/api/session"
	"github.com/meetspot/meetspot-api/internal/api/weather"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	MeetingHandler *session.Handler
	TravelHandler  *itinerary.Handler

	redisClient *redis.Client
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// The environment overrides the baked-in provider endpoint and carries
	// the key, which never lives in config files.
	endpoint := os.Getenv("MCP_API_ENDPOINT")
	if endpoint == "" {
		endpoint = cfg.Amap.Endpoint
	}
	apiKey := os.Getenv("MCP_API_KEY")

	amapClient := amap.NewClient(endpoint, apiKey, cfg.Amap.Timeout, logger)

	geocodeService := geocode.NewServiceImpl(amapClient, cfg.Amap.DefaultCity, cfg.Amap.ReferenceLongitude, cfg.Amap.ReferenceLatitude, logger)
	poiService := poisearch.NewServiceImpl(amapClient, cfg.Amap.DefaultCity, logger)
	routingService := routing.NewServiceImpl(amapClient, cfg.Amap.DefaultCity, logger)
	weatherService := weather.NewServiceImpl(amapClient, logger)

	meetingService := meeting.NewServiceImpl(poiService, routingService, weatherService, cfg.Amap.WeatherCity, cfg.Amap.SearchRadius, logger)

	aiClient, err := generative.NewAIClient(ctx, cfg.LLM.Model)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		return nil, err
	}
	parserService := prefparse.NewServiceImpl(aiClient, cfg.LLM.Temperature, logger)

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	var store session.Store
	if cfg.Session.Store == "redis" {
		c.redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		store = session.NewRedisStore(c.redisClient, cfg.Session.TTL)
	} else {
		store = session.NewMemoryStore(cfg.Session.TTL)
	}

	sessionService := session.NewServiceImpl(store, geocodeService, meetingService, cfg.Session.Timeout, logger)
	c.MeetingHandler = session.NewHandler(sessionService, parserService, logger)

	itineraryService := itinerary.NewServiceImpl(aiClient, parserService, cfg.Session.TTL, logger)
	c.TravelHandler = itinerary.NewHandler(itineraryService, logger)

	return c, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Error("Failed to close redis client", slog.Any("error", err))
		}
	}
}
