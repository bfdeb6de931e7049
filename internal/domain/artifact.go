package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Artifact
var (
	ErrEmptyArtifactID     = errors.New("artifact ID cannot be empty")
	ErrEmptyArtifactTaskID = errors.New("artifact task ID cannot be empty")
	ErrEmptyArtifactData   = errors.New("artifact data cannot be empty")
	ErrNegativeArtifactIdx = errors.New("artifact index cannot be negative")
)

// Artifact represents one unit of generated output: a single image produced
// by the external provider for a task. Artifacts are persisted one at a time
// as the provider yields them, so partial progress survives a later failure
// within the same task.
type Artifact struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Index     int       `json:"index"`
	MIMEType  string    `json:"mime_type"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArtifact creates a new Artifact for the given task with the provided
// image data. The index records the position in which the provider yielded
// the artifact within its task.
// Returns an error if validation fails.
func NewArtifact(taskID uuid.UUID, index int, mimeType string, data []byte) (*Artifact, error) {
	artifact := &Artifact{
		ID:        uuid.New(),
		TaskID:    taskID,
		Index:     index,
		MIMEType:  mimeType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	return artifact, nil
}

// Validate checks if the Artifact has valid data.
// Returns an error if any field fails validation.
func (a *Artifact) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyArtifactID
	}

	if a.TaskID == uuid.Nil {
		return ErrEmptyArtifactTaskID
	}

	if a.Index < 0 {
		return ErrNegativeArtifactIdx
	}

	if len(a.Data) == 0 {
		return ErrEmptyArtifactData
	}

	return nil
}
