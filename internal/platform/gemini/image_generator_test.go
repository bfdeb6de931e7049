package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/quenby/atelier-api/internal/config"
	"github.com/quenby/atelier-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewImageGeneratorValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewImageGenerator(ctx, nil, config.LLMConfig{
		GeminiAPIKey:   "key",
		ImageModelName: "imagen-3.0-generate-002",
	})
	assert.Error(t, err)

	logger := testLogger()

	_, err = NewImageGenerator(ctx, logger, config.LLMConfig{
		ImageModelName: "imagen-3.0-generate-002",
	})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewImageGenerator(ctx, logger, config.LLMConfig{
		GeminiAPIKey: "key",
	})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestMapProviderError(t *testing.T) {
	t.Parallel()

	t.Run("context errors pass through", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, mapProviderError(context.Canceled), context.Canceled)
		assert.ErrorIs(t, mapProviderError(context.DeadlineExceeded), context.DeadlineExceeded)
	})

	t.Run("api error keeps its status code", func(t *testing.T) {
		t.Parallel()

		mapped := mapProviderError(genai.APIError{Code: 429, Message: "quota exhausted"})

		code, ok := generation.ProviderStatusCode(mapped)
		assert.True(t, ok)
		assert.Equal(t, 429, code)
		assert.Contains(t, mapped.Error(), "quota exhausted")
	})

	t.Run("wrapped api error keeps its status code", func(t *testing.T) {
		t.Parallel()

		wrapped := fmt.Errorf("call failed: %w", genai.APIError{Code: 401, Message: "bad key"})
		mapped := mapProviderError(wrapped)

		code, ok := generation.ProviderStatusCode(mapped)
		assert.True(t, ok)
		assert.Equal(t, 401, code)
	})

	t.Run("unknown errors wrap ErrGenerationFailed", func(t *testing.T) {
		t.Parallel()

		mapped := mapProviderError(errors.New("connection reset"))

		assert.ErrorIs(t, mapped, generation.ErrGenerationFailed)
		_, ok := generation.ProviderStatusCode(mapped)
		assert.False(t, ok)
	})
}
