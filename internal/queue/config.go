package queue

import "time"

// Config holds configuration for the queue manager. All values are fixed
// at construction time.
type Config struct {
	// MaxConcurrent caps how many tasks may be generating at once. The
	// provider enforces its own concurrency limit, so admitting more than
	// this only shifts contention to provider-side 429s.
	MaxConcurrent int

	// MaxQueueSize caps the pending queue; submissions beyond it are rejected.
	MaxQueueSize int

	// TaskTimeout is the absolute budget for one attempt of a task,
	// covering the whole multi-image generation call.
	TaskTimeout time.Duration

	// MaxRetries bounds how many times a failed task is re-queued before
	// it is failed terminally.
	MaxRetries int

	// RetryDelay is the backoff base for ordinary transient errors.
	RetryDelay time.Duration

	// RateLimitRetryDelay is the backoff base when the provider signalled
	// rate limiting. Rate limits typically need on the order of a minute
	// to clear, so this base is much larger than RetryDelay.
	RateLimitRetryDelay time.Duration

	// HistorySize bounds the recent-history set of terminal tasks kept
	// for introspection. Oldest entries are evicted first.
	HistorySize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:       3,
		MaxQueueSize:        100,
		TaskTimeout:         5 * time.Minute,
		MaxRetries:          3,
		RetryDelay:          2 * time.Second,
		RateLimitRetryDelay: 30 * time.Second,
		HistorySize:         50,
	}
}
