package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/quenby/atelier-api/internal/domain"
)

// TaskStore defines the persistence operations the queue needs to keep the
// durable task record in sync with in-memory state transitions. Calls are
// best-effort from the queue's perspective: a failed write is logged but
// never rolls back the in-memory state machine, since the two are expected
// to converge on the next successful write. Each operation must tolerate
// at-least-once invocation.
type TaskStore interface {
	// MarkStarted records that generation has begun for the task.
	MarkStarted(ctx context.Context, taskID uuid.UUID) error

	// AppendArtifact persists one generated artifact as soon as the
	// provider yields it, stamped with its position within the task.
	AppendArtifact(ctx context.Context, taskID uuid.UUID, artifact *domain.Artifact, index int) error

	// MarkCompleted records that all artifacts for the task were produced.
	MarkCompleted(ctx context.Context, taskID uuid.UUID) error

	// MarkFailed records a terminal failure with a human-readable message.
	MarkFailed(ctx context.Context, taskID uuid.UUID, message string) error

	// ListUnfinished returns durable tasks still in a pending or
	// generating status, used by the startup recovery sweep to re-submit
	// work lost in a process restart.
	ListUnfinished(ctx context.Context) ([]*domain.Task, error)
}
