package session

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/meetspot/meetspot-api/internal/types"
)

var ErrSessionNotFound = errors.New("session not found")

// Store is the key-value abstraction the orchestrator writes sessions
// through. Implementations must provide atomic per-key get/set; the
// orchestrator only ever issues one insert and one terminal update per key.
type Store interface {
	Get(ctx context.Context, id string) (*types.Session, error)
	Set(ctx context.Context, id string, session *types.Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory with a TTL, suitable for a
// single-process deployment and for tests.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{cache: cache.New(ttl, ttl/4)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*types.Session, error) {
	value, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return value.(*types.Session), nil
}

func (m *MemoryStore) Set(_ context.Context, id string, session *types.Session) error {
	m.cache.Set(id, session, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}
