package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/quenby/atelier-api/internal/generation"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "bad request is fatal",
			err:  generation.NewProviderError(400, "invalid prompt"),
			want: false,
		},
		{
			name: "unauthorized is fatal",
			err:  generation.NewProviderError(401, "bad credentials"),
			want: false,
		},
		{
			name: "forbidden is fatal",
			err:  generation.NewProviderError(403, "access denied"),
			want: false,
		},
		{
			name: "not found is fatal",
			err:  generation.NewProviderError(404, "model not found"),
			want: false,
		},
		{
			name: "rate limit is retryable",
			err:  generation.NewProviderError(429, "too many requests"),
			want: true,
		},
		{
			name: "server error is retryable",
			err:  generation.NewProviderError(500, "internal error"),
			want: true,
		},
		{
			name: "wrapped provider error keeps its classification",
			err:  fmt.Errorf("generation attempt: %w", generation.NewProviderError(401, "bad credentials")),
			want: false,
		},
		{
			name: "plain network error is retryable",
			err:  errors.New("connection reset by peer"),
			want: true,
		},
		{
			name: "timeout is retryable",
			err:  fmt.Errorf("generation timed out: %w", context.DeadlineExceeded),
			want: true,
		},
		{
			name: "context cancellation is fatal",
			err:  fmt.Errorf("task cancelled: %w", context.Canceled),
			want: false,
		},
		{
			name: "cancellation phrase is fatal",
			err:  errors.New("request cancelled by caller"),
			want: false,
		},
		{
			name: "authentication phrase is fatal",
			err:  errors.New("authentication failed for project"),
			want: false,
		},
		{
			name: "insufficient balance phrase is fatal",
			err:  errors.New("insufficient balance on account"),
			want: false,
		},
		{
			name: "unclassified provider error is retryable",
			err:  errors.New("something strange happened"),
			want: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "status 429",
			err:  generation.NewProviderError(429, "slow down"),
			want: true,
		},
		{
			name: "rate limit phrase",
			err:  errors.New("rate limit exceeded for model"),
			want: true,
		},
		{
			name: "quota phrase",
			err:  errors.New("quota exceeded for project"),
			want: true,
		},
		{
			name: "resource exhausted phrase",
			err:  errors.New("RESOURCE EXHAUSTED"),
			want: true,
		},
		{
			name: "server error is not rate limited",
			err:  generation.NewProviderError(500, "internal error"),
			want: false,
		},
		{
			name: "plain error is not rate limited",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isRateLimited(tt.err))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	cfg := Config{
		RetryDelay:          2 * time.Second,
		RateLimitRetryDelay: 30 * time.Second,
	}

	transient := errors.New("connection reset")
	rateLimited := generation.NewProviderError(429, "too many requests")

	// Exponential growth from the ordinary base.
	assert.Equal(t, 2*time.Second, cfg.retryDelay(transient, 0))
	assert.Equal(t, 4*time.Second, cfg.retryDelay(transient, 1))
	assert.Equal(t, 8*time.Second, cfg.retryDelay(transient, 2))

	// Rate-limited errors use the elevated base.
	assert.Equal(t, 30*time.Second, cfg.retryDelay(rateLimited, 0))
	assert.Equal(t, 60*time.Second, cfg.retryDelay(rateLimited, 1))

	// At every attempt the rate-limit delay strictly dominates the
	// ordinary delay.
	for attempt := 0; attempt < 5; attempt++ {
		assert.Greater(t,
			cfg.retryDelay(rateLimited, attempt),
			cfg.retryDelay(transient, attempt),
			"attempt %d", attempt)
	}
}
