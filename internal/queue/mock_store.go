package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/quenby/atelier-api/internal/domain"
)

// MockTaskStore implements the TaskStore interface for testing. It
// records every call and lets individual operations be overridden per
// test.
type MockTaskStore struct {
	mutex sync.Mutex

	StartedIDs   []uuid.UUID
	CompletedIDs []uuid.UUID
	FailedIDs    []uuid.UUID
	FailMessages map[uuid.UUID]string
	Artifacts    map[uuid.UUID][]*domain.Artifact

	MarkStartedFn    func(ctx context.Context, taskID uuid.UUID) error
	AppendArtifactFn func(ctx context.Context, taskID uuid.UUID, artifact *domain.Artifact, index int) error
	MarkCompletedFn  func(ctx context.Context, taskID uuid.UUID) error
	MarkFailedFn     func(ctx context.Context, taskID uuid.UUID, message string) error
	ListUnfinishedFn func(ctx context.Context) ([]*domain.Task, error)
}

// NewMockTaskStore creates a MockTaskStore with recording defaults.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		FailMessages: make(map[uuid.UUID]string),
		Artifacts:    make(map[uuid.UUID][]*domain.Artifact),
	}
}

// MarkStarted implements TaskStore.
func (s *MockTaskStore) MarkStarted(ctx context.Context, taskID uuid.UUID) error {
	if s.MarkStartedFn != nil {
		return s.MarkStartedFn(ctx, taskID)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.StartedIDs = append(s.StartedIDs, taskID)
	return nil
}

// AppendArtifact implements TaskStore.
func (s *MockTaskStore) AppendArtifact(ctx context.Context, taskID uuid.UUID, artifact *domain.Artifact, index int) error {
	if s.AppendArtifactFn != nil {
		return s.AppendArtifactFn(ctx, taskID, artifact, index)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Artifacts[taskID] = append(s.Artifacts[taskID], artifact)
	return nil
}

// MarkCompleted implements TaskStore.
func (s *MockTaskStore) MarkCompleted(ctx context.Context, taskID uuid.UUID) error {
	if s.MarkCompletedFn != nil {
		return s.MarkCompletedFn(ctx, taskID)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.CompletedIDs = append(s.CompletedIDs, taskID)
	return nil
}

// MarkFailed implements TaskStore.
func (s *MockTaskStore) MarkFailed(ctx context.Context, taskID uuid.UUID, message string) error {
	if s.MarkFailedFn != nil {
		return s.MarkFailedFn(ctx, taskID, message)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.FailedIDs = append(s.FailedIDs, taskID)
	s.FailMessages[taskID] = message
	return nil
}

// ListUnfinished implements TaskStore.
func (s *MockTaskStore) ListUnfinished(ctx context.Context) ([]*domain.Task, error) {
	if s.ListUnfinishedFn != nil {
		return s.ListUnfinishedFn(ctx)
	}
	return nil, nil
}

// CompletedCount returns how many tasks were marked completed.
func (s *MockTaskStore) CompletedCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.CompletedIDs)
}

// FailMessage returns the recorded failure message for taskID.
func (s *MockTaskStore) FailMessage(taskID uuid.UUID) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.FailMessages[taskID]
}

// ArtifactCount returns how many artifacts were persisted for taskID.
func (s *MockTaskStore) ArtifactCount(taskID uuid.UUID) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.Artifacts[taskID])
}
