package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetspot/meetspot-api/internal/types"
)

// MockGeocodeService is a mock implementation of geocode.Service
type MockGeocodeService struct {
	mock.Mock
}

func (m *MockGeocodeService) Geocode(ctx context.Context, address, city string) (types.Coordinate, error) {
	args := m.Called(ctx, address, city)
	return args.Get(0).(types.Coordinate), args.Error(1)
}

func (m *MockGeocodeService) ReverseGeocode(ctx context.Context, coord types.Coordinate) (string, error) {
	args := m.Called(ctx, coord)
	return args.String(0), args.Error(1)
}

// MockMeetingService is a mock implementation of meeting.Service
type MockMeetingService struct {
	mock.Mock
}

func (m *MockMeetingService) Find(ctx context.Context, people []types.LocatedPerson, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference) ([]types.Recommendation, error) {
	args := m.Called(ctx, people, prefs, transportPrefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Recommendation), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testPeople = []types.Person{
	{ID: "p1", Name: "Alice", Address: "Alice's place"},
	{ID: "p2", Name: "Bob", Address: "Bob's office"},
}

func waitForTerminal(t *testing.T, svc Service, id string) *types.ResultsResponse {
	t.Helper()
	var results *types.ResultsResponse
	require.Eventually(t, func() bool {
		var err error
		results, err = svc.Results(context.Background(), id)
		return err == nil && results.Status != string(types.StatusProcessing)
	}, 2*time.Second, 10*time.Millisecond)
	return results
}

func TestServiceImpl_Submit(t *testing.T) {
	t.Run("fewer than two people is rejected before a session exists", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		svc := NewServiceImpl(store, new(MockGeocodeService), new(MockMeetingService), time.Second, newTestLogger())

		_, err := svc.Submit(context.Background(), testPeople[:1], nil, nil)
		assert.ErrorIs(t, err, ErrInsufficientPeople)
	})

	t.Run("successful pipeline completes the session", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		geocoder := new(MockGeocodeService)
		finder := new(MockMeetingService)
		svc := NewServiceImpl(store, geocoder, finder, time.Second, newTestLogger())

		geocoder.On("Geocode", mock.Anything, "Alice's place", "").Return(types.Coordinate{Longitude: 116.3, Latitude: 39.9}, nil)
		geocoder.On("Geocode", mock.Anything, "Bob's office", "").Return(types.Coordinate{Longitude: 116.4, Latitude: 39.92}, nil)

		recommendations := []types.Recommendation{{ID: "c1", Name: "Starbucks", MatchScore: 9.4}}
		finder.On("Find", mock.Anything, mock.MatchedBy(func(located []types.LocatedPerson) bool {
			return len(located) == 2 && located[0].Name == "Alice" && located[1].Name == "Bob"
		}), mock.Anything, mock.Anything).Return(recommendations, nil)

		id, err := svc.Submit(context.Background(), testPeople, nil, nil)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		results := waitForTerminal(t, svc, id)
		assert.Empty(t, results.Status)
		assert.Empty(t, results.Error)
		require.Len(t, results.Recommendations, 1)
		assert.Equal(t, "Starbucks", results.Recommendations[0].Name)

		// Terminal state is immutable: repeated reads agree.
		again, err := svc.Results(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, results, again)
	})

	t.Run("finder failure moves the session to error with a generic message", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		geocoder := new(MockGeocodeService)
		finder := new(MockMeetingService)
		svc := NewServiceImpl(store, geocoder, finder, time.Second, newTestLogger())

		geocoder.On("Geocode", mock.Anything, mock.Anything, "").Return(types.Coordinate{Longitude: 116.3, Latitude: 39.9}, nil)
		finder.On("Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("amap exploded: secret details"))

		id, err := svc.Submit(context.Background(), testPeople, nil, nil)
		require.NoError(t, err)

		results := waitForTerminal(t, svc, id)
		assert.Equal(t, string(types.StatusError), results.Status)
		assert.Equal(t, "Failed to process request", results.Error)
		assert.Empty(t, results.Recommendations)
	})

	t.Run("geocode failure also fails the session", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		geocoder := new(MockGeocodeService)
		finder := new(MockMeetingService)
		svc := NewServiceImpl(store, geocoder, finder, time.Second, newTestLogger())

		geocoder.On("Geocode", mock.Anything, "Alice's place", "").Return(types.Coordinate{}, context.Canceled)
		geocoder.On("Geocode", mock.Anything, "Bob's office", "").Return(types.Coordinate{Longitude: 116.4, Latitude: 39.92}, nil).Maybe()

		id, err := svc.Submit(context.Background(), testPeople, nil, nil)
		require.NoError(t, err)

		results := waitForTerminal(t, svc, id)
		assert.Equal(t, string(types.StatusError), results.Status)
		finder.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("slow pipeline times out with a timeout message", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		geocoder := new(MockGeocodeService)
		finder := new(MockMeetingService)
		svc := NewServiceImpl(store, geocoder, finder, 50*time.Millisecond, newTestLogger())

		geocoder.On("Geocode", mock.Anything, mock.Anything, "").Return(types.Coordinate{Longitude: 116.3, Latitude: 39.9}, nil)
		finder.On("Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).Return(nil, context.DeadlineExceeded)

		id, err := svc.Submit(context.Background(), testPeople, nil, nil)
		require.NoError(t, err)

		results := waitForTerminal(t, svc, id)
		assert.Equal(t, string(types.StatusError), results.Status)
		assert.Equal(t, "Processing timed out", results.Error)
	})

	t.Run("session is visible as processing immediately after submit", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		geocoder := new(MockGeocodeService)
		finder := new(MockMeetingService)
		svc := NewServiceImpl(store, geocoder, finder, time.Second, newTestLogger())

		release := make(chan struct{})
		geocoder.On("Geocode", mock.Anything, mock.Anything, "").Run(func(mock.Arguments) {
			<-release
		}).Return(types.Coordinate{Longitude: 116.3, Latitude: 39.9}, nil)
		finder.On("Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.Recommendation{}, nil)

		id, err := svc.Submit(context.Background(), testPeople, nil, nil)
		require.NoError(t, err)

		results, err := svc.Results(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, string(types.StatusProcessing), results.Status)
		assert.NotNil(t, results.Recommendations)
		assert.Empty(t, results.Recommendations)

		close(release)
		waitForTerminal(t, svc, id)
	})
}

func TestServiceImpl_Results(t *testing.T) {
	t.Run("unknown session yields ErrSessionNotFound", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		svc := NewServiceImpl(store, new(MockGeocodeService), new(MockMeetingService), time.Second, newTestLogger())

		_, err := svc.Results(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("completed session with nil recommendations reports an empty list", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		svc := NewServiceImpl(store, new(MockGeocodeService), new(MockMeetingService), time.Second, newTestLogger())

		require.NoError(t, store.Set(context.Background(), "done", &types.Session{
			ID:     "done",
			Status: types.StatusCompleted,
		}))

		results, err := svc.Results(context.Background(), "done")
		require.NoError(t, err)
		assert.Empty(t, results.Status)
		assert.NotNil(t, results.Recommendations)
		assert.Empty(t, results.Recommendations)
	})

	t.Run("error session without a message reports unknown error", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		svc := NewServiceImpl(store, new(MockGeocodeService), new(MockMeetingService), time.Second, newTestLogger())

		require.NoError(t, store.Set(context.Background(), "broken", &types.Session{
			ID:     "broken",
			Status: types.StatusError,
		}))

		results, err := svc.Results(context.Background(), "broken")
		require.NoError(t, err)
		assert.Equal(t, "Unknown error", results.Error)
	})
}
