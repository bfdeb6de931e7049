package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the queue manager
var (
	ErrQueueFull   = errors.New("generation queue is full")
	ErrQueueClosed = errors.New("generation queue is closed")
)

// Status represents the in-memory scheduling state of a queue task
type Status string

// Possible queue task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// QueueTask is the transient in-memory record the manager uses to drive one
// task's execution. It is owned exclusively by the manager; callers observe
// it through Info, which returns a snapshot copy.
type QueueTask struct {
	// ID is the queue-side identifier, unique per enqueue.
	ID uuid.UUID `json:"id"`

	// TaskID references the durable task record in the persistent store.
	// At most one live QueueTask exists per TaskID at any time.
	TaskID uuid.UUID `json:"task_id"`

	// Prompt is the opaque input forwarded to the generation call.
	Prompt string `json:"prompt"`

	// ImageCount is how many artifacts the generation call should produce.
	ImageCount int `json:"image_count"`

	Status       Status     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// cancel aborts the in-flight generation call and its timeout race.
	// Set only while the task is running.
	cancel context.CancelFunc

	// retryTimer is set while the task waits out a backoff delay before
	// re-entering the pending queue. Stopping it cancels the retry.
	retryTimer *time.Timer
}

// snapshot returns a copy of the task safe to hand to callers, with the
// manager-internal fields stripped.
func (t *QueueTask) snapshot() *QueueTask {
	snap := *t
	snap.cancel = nil
	snap.retryTimer = nil
	return &snap
}

// terminal reports whether the task has reached a final state.
func (t *QueueTask) terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}
