package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quenby/atelier-api/internal/api/shared"
	"github.com/quenby/atelier-api/internal/domain"
	"github.com/quenby/atelier-api/internal/queue"
)

// TaskQueue is the slice of the queue manager the HTTP layer depends on.
type TaskQueue interface {
	Submit(taskID uuid.UUID, prompt string, imageCount int) (uuid.UUID, error)
	Cancel(taskID uuid.UUID) bool
	Stats() queue.Stats
	Info(taskID uuid.UUID) *queue.QueueTask
}

// TaskReaderWriter is the slice of the task store the HTTP layer depends on.
type TaskReaderWriter interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	GetTaskArtifacts(ctx context.Context, taskID uuid.UUID) ([]*domain.Artifact, error)
}

// TaskHandler handles task submission, cancellation, and queue
// introspection endpoints.
type TaskHandler struct {
	queue  TaskQueue
	tasks  TaskReaderWriter
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(q TaskQueue, tasks TaskReaderWriter, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		queue:  q,
		tasks:  tasks,
		logger: logger.With("component", "task_handler"),
	}
}

// SubmitTaskRequest is the payload for creating a generation task.
type SubmitTaskRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	Prompt     string `json:"prompt" validate:"required"`
	ImageCount int    `json:"image_count" validate:"omitempty,min=1,max=8"`
}

// SubmitTaskResponse is returned when a task has been accepted.
type SubmitTaskResponse struct {
	TaskID      string `json:"task_id"`
	QueueTaskID string `json:"queue_task_id"`
	Status      string `json:"status"`
}

// SubmitTask handles POST /api/tasks. The durable record is created
// first, then the task is enqueued; generation happens asynchronously,
// so acceptance is reported with 202.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With("trace_id", shared.GetTraceID(ctx))

	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode submit request", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Warn("submit request failed validation", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid user ID")
		return
	}

	imageCount := req.ImageCount
	if imageCount == 0 {
		imageCount = 1
	}

	task, err := domain.NewTask(userID, req.Prompt, imageCount)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	if err := h.tasks.CreateTask(ctx, task); err != nil {
		log.Error("failed to persist task", "task_id", task.ID, "error", err)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	queueTaskID, err := h.queue.Submit(task.ID, task.Prompt, task.ImageCount)
	if err != nil {
		// The durable record stays behind in pending; a later recovery
		// sweep can pick it up once the queue has room again.
		log.Warn("failed to enqueue task", "task_id", task.ID, "error", err)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	log.Info("task submitted",
		"task_id", task.ID,
		"queue_task_id", queueTaskID,
		"image_count", task.ImageCount)

	shared.RespondWithJSON(w, http.StatusAccepted, SubmitTaskResponse{
		TaskID:      task.ID.String(),
		QueueTaskID: queueTaskID.String(),
		Status:      string(task.Status),
	})
}

// GetTask handles GET /api/tasks/{id}. The response combines the durable
// record with the queue's live view when one exists.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task ID")
		return
	}

	task, err := h.tasks.GetTask(ctx, taskID)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	resp := struct {
		Task      *domain.Task     `json:"task"`
		QueueTask *queue.QueueTask `json:"queue_task,omitempty"`
	}{
		Task:      task,
		QueueTask: h.queue.Info(taskID),
	}

	shared.RespondWithJSON(w, http.StatusOK, resp)
}

// GetTaskArtifacts handles GET /api/tasks/{id}/artifacts, returning the
// artifact metadata persisted so far. Partial results for a failed or
// still-running task are visible here.
func (h *TaskHandler) GetTaskArtifacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task ID")
		return
	}

	if _, err := h.tasks.GetTask(ctx, taskID); err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	artifacts, err := h.tasks.GetTaskArtifacts(ctx, taskID)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	resp := struct {
		TaskID    string             `json:"task_id"`
		Artifacts []*domain.Artifact `json:"artifacts"`
	}{
		TaskID:    taskID.String(),
		Artifacts: artifacts,
	}

	shared.RespondWithJSON(w, http.StatusOK, resp)
}

// CancelTask handles DELETE /api/tasks/{id}. Cancelling a pending task
// removes it from the queue immediately; cancelling a running task
// signals the in-flight generation and resolves asynchronously.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With("trace_id", shared.GetTraceID(r.Context()))

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task ID")
		return
	}

	if !h.queue.Cancel(taskID) {
		shared.RespondWithError(w, r, http.StatusNotFound, "no active task with that ID")
		return
	}

	log.Info("task cancellation requested", "task_id", taskID)
	shared.RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID.String(),
		"status":  "cancelling",
	})
}

// QueueStatus handles GET /api/queue/status with a point-in-time
// occupancy snapshot.
func (h *TaskHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, http.StatusOK, h.queue.Stats())
}
