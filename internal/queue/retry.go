package queue

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/quenby/atelier-api/internal/generation"
)

// fatalPhrases mark errors that no retry can fix, regardless of any
// provider status code: caller intent (cancellation), bad credentials,
// or an exhausted account.
var fatalPhrases = []string{
	"cancel",
	"authentication failed",
	"invalid api key",
	"insufficient balance",
}

// rateLimitPhrases is the vocabulary providers use to signal throttling
// when no 429 status code is attached.
var rateLimitPhrases = []string{
	"rate limit",
	"too many requests",
	"quota exceeded",
	"resource exhausted",
}

// fatalStatusCodes are provider responses that indicate malformed input,
// bad credentials, or missing resources. A retry cannot fix any of them.
var fatalStatusCodes = map[int]bool{
	http.StatusBadRequest:   true,
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

// isRetryable reports whether a failed generation attempt is worth
// retrying. The default bias is to retry unless the error is proven
// futile: network failures, timeouts, 429s, 5xx and unclassified errors
// are all retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Explicit cancellation represents caller intent, not transient failure.
	if errors.Is(err, context.Canceled) {
		return false
	}

	if code, ok := generation.ProviderStatusCode(err); ok && fatalStatusCodes[code] {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range fatalPhrases {
		if strings.Contains(msg, phrase) {
			return false
		}
	}

	return true
}

// isRateLimited reports whether the provider signalled throughput
// limiting. This is evaluated independently of isRetryable: a
// rate-limited error needs a longer backoff floor, not a different
// retry decision.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}

	if code, ok := generation.ProviderStatusCode(err); ok && code == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}

	return false
}

// retryDelay computes the backoff before retry attempt number attempt
// (0-based): base * 2^attempt, where the base is RateLimitRetryDelay for
// rate-limited errors and RetryDelay otherwise. A provider-side rate
// limit typically needs on the order of a minute to clear, while a
// transient network blip clears in seconds; a single base would either
// hammer the rate limit or make ordinary errors recover too slowly.
func (c Config) retryDelay(err error, attempt int) time.Duration {
	base := c.RetryDelay
	if isRateLimited(err) {
		base = c.RateLimitRetryDelay
	}

	// Bound the shift so pathological attempt counts cannot overflow.
	if attempt > 16 {
		attempt = 16
	}

	return base * time.Duration(1<<uint(attempt))
}
