package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the generation state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID   = errors.New("task user ID cannot be empty")
	ErrEmptyTaskPrompt   = errors.New("task prompt cannot be empty")
	ErrInvalidImageCount = errors.New("task image count must be between 1 and 8")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// Task represents a user-submitted generation request. It is the durable,
// user-visible unit of work: the prompt, how many images to produce, and
// the current generation state.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Prompt       string     `json:"prompt"`
	ImageCount   int        `json:"image_count"`
	Status       TaskStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask creates a new Task with the given user ID, prompt, and image count.
// It generates a new UUID for the task ID, sets the status to pending,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(userID uuid.UUID, prompt string, imageCount int) (*Task, error) {
	task := &Task{
		ID:         uuid.New(),
		UserID:     userID,
		Prompt:     prompt,
		ImageCount: imageCount,
		Status:     TaskStatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.Prompt == "" {
		return ErrEmptyTaskPrompt
	}

	if t.ImageCount < 1 || t.ImageCount > 8 {
		return ErrInvalidImageCount
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// UpdateStatus updates the task's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusGenerating, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
