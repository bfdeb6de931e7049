package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quenby/atelier-api/internal/domain"
	"github.com/quenby/atelier-api/internal/platform/logger"
	"github.com/quenby/atelier-api/internal/store"
)

// PostgresTaskStore persists generation tasks and their artifacts in
// PostgreSQL. It implements the queue's TaskStore contract plus the
// read/create operations the HTTP layer needs.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// CreateTask persists a new task record.
func (s *PostgresTaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO tasks (id, user_id, prompt, image_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Prompt,
		task.ImageCount,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	return nil
}

// GetTask retrieves a task by its ID.
// Returns store.ErrTaskNotFound when no task matches.
func (s *PostgresTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, user_id, prompt, image_count, status, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var task domain.Task
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.UserID,
		&task.Prompt,
		&task.ImageCount,
		&task.Status,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.ErrorMessage = errorMessage.String
	return &task, nil
}

// MarkStarted transitions the task's durable status to generating.
// Repeated calls are harmless; retried attempts re-mark the same row.
func (s *PostgresTaskStore) MarkStarted(ctx context.Context, taskID uuid.UUID) error {
	return s.updateStatus(ctx, taskID, domain.TaskStatusGenerating, "")
}

// MarkCompleted transitions the task's durable status to completed.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, taskID uuid.UUID) error {
	return s.updateStatus(ctx, taskID, domain.TaskStatusCompleted, "")
}

// MarkFailed transitions the task's durable status to failed with the
// given message.
func (s *PostgresTaskStore) MarkFailed(ctx context.Context, taskID uuid.UUID, message string) error {
	return s.updateStatus(ctx, taskID, domain.TaskStatusFailed, message)
}

// updateStatus writes a status transition. A missing task is treated as a
// no-op: the queue's writes are best-effort and the durable record may
// have been removed out of band.
func (s *PostgresTaskStore) updateStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus, errorMessage string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMessage,
		time.Now().UTC(),
		taskID,
	)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no task found with ID to update status", "task_id", taskID)
	}

	return nil
}

// AppendArtifact persists one generated artifact. The (task_id, idx) pair
// is unique, and conflicts overwrite the existing row so that re-run
// attempts after a recovery sweep stay idempotent.
func (s *PostgresTaskStore) AppendArtifact(ctx context.Context, taskID uuid.UUID, artifact *domain.Artifact, index int) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO task_artifacts (id, task_id, idx, mime_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (task_id, idx)
		DO UPDATE SET id = EXCLUDED.id, mime_type = EXCLUDED.mime_type,
			data = EXCLUDED.data, created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		artifact.ID,
		taskID,
		index,
		artifact.MIMEType,
		artifact.Data,
		artifact.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save artifact",
			"task_id", taskID,
			"artifact_index", index,
			"error", err)
		return fmt.Errorf("failed to save artifact to database: %w", err)
	}

	return nil
}

// GetTaskArtifacts returns the artifacts persisted for a task in yield order.
func (s *PostgresTaskStore) GetTaskArtifacts(ctx context.Context, taskID uuid.UUID) ([]*domain.Artifact, error) {
	query := `
		SELECT id, task_id, idx, mime_type, data, created_at
		FROM task_artifacts
		WHERE task_id = $1
		ORDER BY idx ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []*domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Index, &a.MIMEType, &a.Data, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		artifacts = append(artifacts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifact rows: %w", err)
	}

	return artifacts, nil
}

// ListUnfinished returns tasks still marked pending or generating, oldest
// first, for the startup recovery sweep.
func (s *PostgresTaskStore) ListUnfinished(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, prompt, image_count, status, error_message, created_at, updated_at
		FROM tasks
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, domain.TaskStatusPending, domain.TaskStatusGenerating)
	if err != nil {
		log.Error("failed to query unfinished tasks", "error", err)
		return nil, fmt.Errorf("failed to query unfinished tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		var task domain.Task
		var errorMessage sql.NullString

		if err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Prompt,
			&task.ImageCount,
			&task.Status,
			&errorMessage,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		task.ErrorMessage = errorMessage.String
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// WithTx returns a new PostgresTaskStore that uses the provided
// transaction. The transaction is created and managed by the caller.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) *PostgresTaskStore {
	return &PostgresTaskStore{db: tx}
}
