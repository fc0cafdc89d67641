package routing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetspot/meetspot-api/internal/api/amap"
	"github.com/meetspot/meetspot-api/internal/types"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, handler http.Handler) (*ServiceImpl, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := amap.NewClient(server.URL, "test-key", 5*time.Second, newTestLogger())
	return NewServiceImpl(client, "北京", newTestLogger()), server
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

func failingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	})
}

var (
	origin      = types.Coordinate{Longitude: 116.30, Latitude: 39.90}
	destination = types.Coordinate{Longitude: 116.40, Latitude: 39.95}
)

func TestServiceImpl_Route(t *testing.T) {
	t.Run("walking route is normalized to minutes and prefixed steps", func(t *testing.T) {
		svc, _ := newService(t, jsonHandler(`{
			"route": {"paths": [{
				"duration": 1250,
				"distance": 1650,
				"steps": [{"instruction": "north 200m"}, {"instruction": "east 300m"}]
			}]}
		}`))

		route, err := svc.Route(context.Background(), origin, destination, types.ModeWalking)
		require.NoError(t, err)
		assert.Equal(t, 21, route.Duration) // 1250s rounds to 21min
		assert.Equal(t, 1650, route.Distance)
		assert.Equal(t, []string{"Walk north 200m", "Walk east 300m"}, route.Steps)
		assert.Equal(t, types.ModeWalking, route.Mode)
	})

	t.Run("bicycling reads paths from the data envelope", func(t *testing.T) {
		svc, _ := newService(t, jsonHandler(`{
			"data": {"paths": [{
				"duration": 600,
				"distance": 2500,
				"steps": [{"instruction": "along the river"}]
			}]}
		}`))

		route, err := svc.Route(context.Background(), origin, destination, types.ModeBicycling)
		require.NoError(t, err)
		assert.Equal(t, 10, route.Duration)
		assert.Equal(t, []string{"Cycle along the river"}, route.Steps)
	})

	t.Run("transit segments become human-readable steps", func(t *testing.T) {
		svc, _ := newService(t, jsonHandler(`{
			"route": {"transits": [{
				"duration": 1800,
				"distance": 9000,
				"segments": [
					{"walking": {"distance": 320.4}},
					{"bus": {"buslines": [{"name": "Line 10", "via_stops": 4}]}},
					{"railway": {"name": "Airport Express", "via_stops": 2}},
					{}
				]
			}]}
		}`))

		route, err := svc.Route(context.Background(), origin, destination, types.ModeTransit)
		require.NoError(t, err)
		assert.Equal(t, 30, route.Duration)
		assert.Equal(t, []string{
			"Walk 320m",
			"Take Line 10 for 4 stops",
			"Take Airport Express for 2 stops",
			"Transit",
		}, route.Steps)
	})

	t.Run("empty mode defaults to transit", func(t *testing.T) {
		var calledTool bool
		svc, _ := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledTool = r.URL.Path == "/maps_direction_transit_integrated"
			w.Write([]byte(`{"route": {"transits": [{"duration": 60, "distance": 500, "segments": []}]}}`))
		}))

		route, err := svc.Route(context.Background(), origin, destination, "")
		require.NoError(t, err)
		assert.True(t, calledTool)
		assert.Equal(t, types.ModeTransit, route.Mode)
	})

	t.Run("unsupported mode is an error", func(t *testing.T) {
		svc, _ := newService(t, failingHandler())
		_, err := svc.Route(context.Background(), origin, destination, "teleport")
		assert.Error(t, err)
	})

	t.Run("provider failure falls back to a deterministic estimate", func(t *testing.T) {
		svc, _ := newService(t, failingHandler())

		first, err := svc.Route(context.Background(), origin, destination, types.ModeWalking)
		require.NoError(t, err)
		second, err := svc.Route(context.Background(), origin, destination, types.ModeWalking)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, []string{"Walk to destination"}, first.Steps)
		assert.Greater(t, first.Duration, 0)
		assert.Greater(t, first.Distance, 0)
	})

	t.Run("fallback durations reflect per-mode speeds", func(t *testing.T) {
		svc, _ := newService(t, failingHandler())

		walking, err := svc.Route(context.Background(), origin, destination, types.ModeWalking)
		require.NoError(t, err)
		driving, err := svc.Route(context.Background(), origin, destination, types.ModeDriving)
		require.NoError(t, err)

		assert.Equal(t, walking.Distance, driving.Distance)
		assert.Greater(t, walking.Duration, driving.Duration)
	})

	t.Run("zero duration and distance triggers the fallback", func(t *testing.T) {
		svc, _ := newService(t, jsonHandler(`{"route": {"paths": []}}`))

		route, err := svc.Route(context.Background(), origin, destination, types.ModeDriving)
		require.NoError(t, err)
		assert.Equal(t, []string{"Drive to destination"}, route.Steps)
	})

	t.Run("cancelled context surfaces instead of the fallback", func(t *testing.T) {
		svc, _ := newService(t, failingHandler())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Route(ctx, origin, destination, types.ModeWalking)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestServiceImpl_Distance(t *testing.T) {
	t.Run("provider distance wins", func(t *testing.T) {
		svc, _ := newService(t, jsonHandler(`{"results": [{"distance": 4321}]}`))

		got, err := svc.Distance(context.Background(), origin, destination)
		require.NoError(t, err)
		assert.Equal(t, 4321.0, got)
	})

	t.Run("failure falls back to the straight-line approximation", func(t *testing.T) {
		svc, _ := newService(t, failingHandler())

		got, err := svc.Distance(context.Background(), origin, destination)
		require.NoError(t, err)
		// ~0.1 deg lng and 0.05 deg lat near Beijing is on the order of 10km.
		assert.InDelta(t, 10000, got, 2500)
	})
}

func TestStraightLineMeters(t *testing.T) {
	assert.Zero(t, straightLineMeters(origin, origin))

	// One degree of latitude is about 111km regardless of longitude.
	a := types.Coordinate{Longitude: 116.0, Latitude: 39.0}
	b := types.Coordinate{Longitude: 116.0, Latitude: 40.0}
	assert.InDelta(t, 111195, straightLineMeters(a, b), 200)
}
