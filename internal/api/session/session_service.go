package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/meetspot/meetspot-api/app/observability/metrics"
	"github.com/meetspot/meetspot-api/internal/api/geocode"
	"github.com/meetspot/meetspot-api/internal/api/meeting"
	"github.com/meetspot/meetspot-api/internal/types"
)

var ErrInsufficientPeople = errors.New("at least two people are required")

var _ Service = (*ServiceImpl)(nil)

// Service owns the asynchronous processing state machine: submission
// returns a session id immediately, the pipeline runs out of band, and
// results are retrieved by polling.
type Service interface {
	Submit(ctx context.Context, people []types.Person, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference) (string, error)
	Results(ctx context.Context, sessionID string) (*types.ResultsResponse, error)
}

type ServiceImpl struct {
	store    Store
	geocoder geocode.Service
	finder   meeting.Service
	logger   *slog.Logger
	timeout  time.Duration
}

func NewServiceImpl(store Store, geocoder geocode.Service, finder meeting.Service, timeout time.Duration, logger *slog.Logger) *ServiceImpl {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ServiceImpl{
		store:    store,
		geocoder: geocoder,
		finder:   finder,
		logger:   logger,
		timeout:  timeout,
	}
}

// Submit validates the request, stores a processing session and launches the
// background pipeline. It returns as soon as the session record exists;
// geocoding, search and scoring never block the caller.
func (s *ServiceImpl) Submit(ctx context.Context, people []types.Person, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference) (string, error) {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "Submit", trace.WithAttributes(
		attribute.Int("people.count", len(people)),
	))
	defer span.End()

	if len(people) < 2 {
		return "", ErrInsufficientPeople
	}

	id := uuid.NewString()
	session := &types.Session{
		ID:                   id,
		People:               people,
		Preferences:          prefs,
		TransportPreferences: transportPrefs,
		Status:               types.StatusProcessing,
		CreatedAt:            time.Now(),
	}
	if err := s.store.Set(ctx, id, session); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("store session: %w", err)
	}

	if m := metrics.Get(); m != nil {
		m.SessionsSubmittedTotal.Add(ctx, 1)
	}

	go s.process(id, people, prefs, transportPrefs)

	s.logger.InfoContext(ctx, "session submitted", slog.String("sessionID", id))
	return id, nil
}

// process runs the whole pipeline for one session under a wall-clock
// timeout. Whatever happens, the session ends in exactly one terminal state.
func (s *ServiceImpl) process(id string, people []types.Person, prefs []types.ParsedPreference, transportPrefs []types.TransportPreference) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()

	// Fan out geocoding: addresses resolve independently, and the finder
	// only starts once every one of them has settled.
	located := make([]types.LocatedPerson, len(people))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, person := range people {
		group.Go(func() error {
			coord, err := s.geocoder.Geocode(groupCtx, person.Address, "")
			if err != nil {
				return fmt.Errorf("geocode %s: %w", person.Name, err)
			}
			located[i] = types.LocatedPerson{ID: person.ID, Name: person.Name, Coordinate: coord}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.fail(ctx, id, err)
		return
	}

	recommendations, err := s.finder.Find(ctx, located, prefs, transportPrefs)
	if err != nil {
		s.fail(ctx, id, err)
		return
	}

	s.complete(ctx, id, recommendations)
	if m := metrics.Get(); m != nil {
		m.ProcessingDurationSeconds.Record(ctx, time.Since(started).Seconds())
	}
}

func (s *ServiceImpl) fail(ctx context.Context, id string, cause error) {
	// The stored message stays generic; provider internals are only logged.
	s.logger.ErrorContext(ctx, "session processing failed",
		slog.String("sessionID", id), slog.Any("error", cause))

	message := "Failed to process request"
	if errors.Is(cause, context.DeadlineExceeded) {
		message = "Processing timed out"
	}
	s.finish(id, func(session *types.Session) {
		session.Status = types.StatusError
		session.Error = message
	})
	if m := metrics.Get(); m != nil {
		m.SessionsFailedTotal.Add(ctx, 1)
	}
}

func (s *ServiceImpl) complete(ctx context.Context, id string, recommendations []types.Recommendation) {
	now := time.Now()
	s.finish(id, func(session *types.Session) {
		session.Status = types.StatusCompleted
		session.Recommendations = recommendations
		session.CompletedAt = &now
	})
	if m := metrics.Get(); m != nil {
		m.SessionsCompletedTotal.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "session completed",
		slog.String("sessionID", id), slog.Int("recommendations", len(recommendations)))
}

// finish applies the single terminal transition. The stored record is
// replaced wholesale so readers either see the old state or the complete new
// one, and a session that already reached a terminal state is left alone.
// A fresh context is used so a timed-out pipeline can still record its
// outcome.
func (s *ServiceImpl) finish(id string, update func(*types.Session)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("cannot load session for terminal update", slog.String("sessionID", id), slog.Any("error", err))
		return
	}
	if session.Status != types.StatusProcessing {
		return
	}

	updated := *session
	update(&updated)
	if err := s.store.Set(ctx, id, &updated); err != nil {
		s.logger.Error("cannot store terminal session state", slog.String("sessionID", id), slog.Any("error", err))
	}
}

// Results returns the polling view of a session. A completed session is
// reported without a status marker: its absence is the completion signal.
func (s *ServiceImpl) Results(ctx context.Context, sessionID string) (*types.ResultsResponse, error) {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "Results")
	defer span.End()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case types.StatusProcessing:
		return &types.ResultsResponse{
			Status:          string(types.StatusProcessing),
			Recommendations: []types.Recommendation{},
		}, nil
	case types.StatusError:
		message := session.Error
		if message == "" {
			message = "Unknown error"
		}
		return &types.ResultsResponse{
			Status:          string(types.StatusError),
			Error:           message,
			Recommendations: []types.Recommendation{},
		}, nil
	default:
		recommendations := session.Recommendations
		if recommendations == nil {
			recommendations = []types.Recommendation{}
		}
		return &types.ResultsResponse{Recommendations: recommendations}, nil
	}
}
