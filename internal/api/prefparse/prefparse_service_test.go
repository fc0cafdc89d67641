package prefparse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/meetspot/meetspot-api/internal/types"
)

// MockContentGenerator is a mock implementation of ContentGenerator
type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	args := m.Called(ctx, prompt, config)
	return args.String(0), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceImpl_Parse(t *testing.T) {
	t.Run("empty text yields an empty slice without a model call", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		got, err := svc.Parse(context.Background(), "   \n\t ")
		require.NoError(t, err)
		assert.Empty(t, got)
		generator.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("model JSON array is decoded", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		generator.On("GenerateContent", mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "I want a Starbucks with wifi")
		}), mock.Anything).Return(`[
			{"type": "brand", "value": "Starbucks", "importance": 8},
			{"type": "amenity", "value": "wifi", "importance": 3}
		]`, nil)

		got, err := svc.Parse(context.Background(), "I want a Starbucks with wifi")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, types.PreferenceBrand, got[0].Type)
		assert.Equal(t, "Starbucks", got[0].Value)
		assert.Equal(t, 8, got[0].Importance)
	})

	t.Run("prose and markdown fences around the array are stripped", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		generator.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(
			"Here are the parsed preferences:\n```json\n[{\"type\": \"brand\", \"value\": \"Costa\", \"importance\": 6}]\n```\nLet me know if you need more.", nil)

		got, err := svc.Parse(context.Background(), "somewhere like Costa")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Costa", got[0].Value)
	})

	t.Run("importance is clamped to 1..10", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		generator.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(`[
			{"type": "brand", "value": "A", "importance": 0},
			{"type": "brand", "value": "B", "importance": 99},
			{"type": "brand", "value": "C", "importance": -3}
		]`, nil)

		got, err := svc.Parse(context.Background(), "whatever")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, 1, got[0].Importance)
		assert.Equal(t, 10, got[1].Importance)
		assert.Equal(t, 1, got[2].Importance)
	})

	t.Run("response without a JSON array is an error", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		generator.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(
			"I could not understand those preferences.", nil)

		_, err := svc.Parse(context.Background(), "gibberish")
		assert.Error(t, err)
	})

	t.Run("invalid JSON inside the array is an error", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		generator.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return(
			`[{"type": "brand", "value": }]`, nil)

		_, err := svc.Parse(context.Background(), "whatever")
		assert.Error(t, err)
	})

	t.Run("model failure propagates", func(t *testing.T) {
		generator := new(MockContentGenerator)
		svc := NewServiceImpl(generator, 0.2, newTestLogger())

		generator.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

		_, err := svc.Parse(context.Background(), "whatever")
		assert.Error(t, err)
	})
}
