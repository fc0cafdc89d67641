package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetspot/meetspot-api/internal/types"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	t.Run("unknown id yields ErrSessionNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		session := &types.Session{
			ID:     "abc",
			Status: types.StatusProcessing,
			People: []types.Person{{Name: "Alice", Address: "Somewhere"}},
		}
		require.NoError(t, store.Set(ctx, "abc", session))

		got, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, session, got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "abc", &types.Session{ID: "abc", Status: types.StatusCompleted}))

		got, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, got.Status)
	})

	t.Run("delete removes the session", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "abc"))
		_, err := store.Get(ctx, "abc")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expired sessions disappear", func(t *testing.T) {
		short := NewMemoryStore(10 * time.Millisecond)
		require.NoError(t, short.Set(ctx, "gone", &types.Session{ID: "gone"}))
		time.Sleep(30 * time.Millisecond)

		_, err := short.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
