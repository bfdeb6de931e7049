package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quenby/atelier-api/internal/api"
	"github.com/quenby/atelier-api/internal/domain"
	"github.com/quenby/atelier-api/internal/queue"
	"github.com/quenby/atelier-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQueue implements api.TaskQueue for handler tests.
type mockQueue struct {
	SubmitFn func(taskID uuid.UUID, prompt string, imageCount int) (uuid.UUID, error)
	CancelFn func(taskID uuid.UUID) bool
	InfoFn   func(taskID uuid.UUID) *queue.QueueTask
	stats    queue.Stats

	submitted []uuid.UUID
}

func (m *mockQueue) Submit(taskID uuid.UUID, prompt string, imageCount int) (uuid.UUID, error) {
	m.submitted = append(m.submitted, taskID)
	if m.SubmitFn != nil {
		return m.SubmitFn(taskID, prompt, imageCount)
	}
	return uuid.New(), nil
}

func (m *mockQueue) Cancel(taskID uuid.UUID) bool {
	if m.CancelFn != nil {
		return m.CancelFn(taskID)
	}
	return false
}

func (m *mockQueue) Stats() queue.Stats {
	return m.stats
}

func (m *mockQueue) Info(taskID uuid.UUID) *queue.QueueTask {
	if m.InfoFn != nil {
		return m.InfoFn(taskID)
	}
	return nil
}

// mockTaskStore implements api.TaskReaderWriter for handler tests.
type mockTaskStore struct {
	CreateTaskFn       func(ctx context.Context, task *domain.Task) error
	GetTaskFn          func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	GetTaskArtifactsFn func(ctx context.Context, taskID uuid.UUID) ([]*domain.Artifact, error)

	created []*domain.Task
}

func (m *mockTaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	m.created = append(m.created, task)
	if m.CreateTaskFn != nil {
		return m.CreateTaskFn(ctx, task)
	}
	return nil
}

func (m *mockTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	if m.GetTaskFn != nil {
		return m.GetTaskFn(ctx, taskID)
	}
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) GetTaskArtifacts(ctx context.Context, taskID uuid.UUID) ([]*domain.Artifact, error) {
	if m.GetTaskArtifactsFn != nil {
		return m.GetTaskArtifactsFn(ctx, taskID)
	}
	return nil, nil
}

func newTestRouter(q *mockQueue, ts *mockTaskStore) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := api.NewTaskHandler(q, ts, logger)

	r := chi.NewRouter()
	r.Post("/api/tasks", handler.SubmitTask)
	r.Get("/api/tasks/{id}", handler.GetTask)
	r.Get("/api/tasks/{id}/artifacts", handler.GetTaskArtifacts)
	r.Delete("/api/tasks/{id}", handler.CancelTask)
	r.Get("/api/queue/status", handler.QueueStatus)
	return r
}

func TestSubmitTask(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid submission", func(t *testing.T) {
		t.Parallel()

		q := &mockQueue{}
		ts := &mockTaskStore{}
		router := newTestRouter(q, ts)

		body := fmt.Sprintf(`{"user_id":%q,"prompt":"a quiet harbour at dawn","image_count":4}`, uuid.New())
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp api.SubmitTaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(domain.TaskStatusPending), resp.Status)
		assert.NotEmpty(t, resp.TaskID)
		assert.NotEmpty(t, resp.QueueTaskID)

		require.Len(t, ts.created, 1)
		assert.Equal(t, "a quiet harbour at dawn", ts.created[0].Prompt)
		assert.Equal(t, 4, ts.created[0].ImageCount)

		require.Len(t, q.submitted, 1)
		assert.Equal(t, ts.created[0].ID, q.submitted[0])
	})

	t.Run("defaults image count to one", func(t *testing.T) {
		t.Parallel()

		q := &mockQueue{}
		ts := &mockTaskStore{}
		router := newTestRouter(q, ts)

		body := fmt.Sprintf(`{"user_id":%q,"prompt":"a lighthouse"}`, uuid.New())
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, ts.created, 1)
		assert.Equal(t, 1, ts.created[0].ImageCount)
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name string
			body string
		}{
			{name: "malformed JSON", body: `{"user_id":`},
			{name: "missing prompt", body: fmt.Sprintf(`{"user_id":%q}`, uuid.New())},
			{name: "missing user ID", body: `{"prompt":"a lighthouse"}`},
			{name: "image count too high", body: fmt.Sprintf(`{"user_id":%q,"prompt":"x","image_count":20}`, uuid.New())},
			{name: "unknown field", body: fmt.Sprintf(`{"user_id":%q,"prompt":"x","model":"other"}`, uuid.New())},
		}

		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				q := &mockQueue{}
				ts := &mockTaskStore{}
				router := newTestRouter(q, ts)

				req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(tc.body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Empty(t, ts.created)
				assert.Empty(t, q.submitted)
			})
		}
	})

	t.Run("reports a full queue as 429", func(t *testing.T) {
		t.Parallel()

		q := &mockQueue{
			SubmitFn: func(uuid.UUID, string, int) (uuid.UUID, error) {
				return uuid.Nil, queue.ErrQueueFull
			},
		}
		ts := &mockTaskStore{}
		router := newTestRouter(q, ts)

		body := fmt.Sprintf(`{"user_id":%q,"prompt":"a lighthouse"}`, uuid.New())
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		// The durable record is created before enqueueing so a recovery
		// sweep can pick it up later.
		assert.Len(t, ts.created, 1)
	})

	t.Run("hides store failures behind a generic message", func(t *testing.T) {
		t.Parallel()

		q := &mockQueue{}
		ts := &mockTaskStore{
			CreateTaskFn: func(context.Context, *domain.Task) error {
				return fmt.Errorf("pq: connection refused")
			},
		}
		router := newTestRouter(q, ts)

		body := fmt.Sprintf(`{"user_id":%q,"prompt":"a lighthouse"}`, uuid.New())
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	t.Run("returns the durable record with queue state", func(t *testing.T) {
		t.Parallel()

		task, err := domain.NewTask(uuid.New(), "a lighthouse", 2)
		require.NoError(t, err)

		q := &mockQueue{
			InfoFn: func(taskID uuid.UUID) *queue.QueueTask {
				return &queue.QueueTask{TaskID: taskID, Status: queue.StatusRunning}
			},
		}
		ts := &mockTaskStore{
			GetTaskFn: func(_ context.Context, taskID uuid.UUID) (*domain.Task, error) {
				require.Equal(t, task.ID, taskID)
				return task, nil
			},
		}
		router := newTestRouter(q, ts)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Task      *domain.Task     `json:"task"`
			QueueTask *queue.QueueTask `json:"queue_task"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, task.ID, resp.Task.ID)
		require.NotNil(t, resp.QueueTask)
		assert.Equal(t, queue.StatusRunning, resp.QueueTask.Status)
	})

	t.Run("unknown task is 404", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&mockQueue{}, &mockTaskStore{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed ID is 400", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&mockQueue{}, &mockTaskStore{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetTaskArtifacts(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask(uuid.New(), "a lighthouse", 2)
	require.NoError(t, err)

	artifact, err := domain.NewArtifact(task.ID, 0, "image/png", []byte{0x89, 0x50})
	require.NoError(t, err)

	ts := &mockTaskStore{
		GetTaskFn: func(context.Context, uuid.UUID) (*domain.Task, error) {
			return task, nil
		},
		GetTaskArtifactsFn: func(context.Context, uuid.UUID) ([]*domain.Artifact, error) {
			return []*domain.Artifact{artifact}, nil
		},
	}
	router := newTestRouter(&mockQueue{}, ts)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String()+"/artifacts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TaskID    string `json:"task_id"`
		Artifacts []struct {
			ID       uuid.UUID `json:"id"`
			MIMEType string    `json:"mime_type"`
		} `json:"artifacts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, task.ID.String(), resp.TaskID)
	require.Len(t, resp.Artifacts, 1)
	assert.Equal(t, "image/png", resp.Artifacts[0].MIMEType)
	// Raw bytes stay out of list responses.
	assert.NotContains(t, rec.Body.String(), `"data"`)
}

func TestCancelTask(t *testing.T) {
	t.Parallel()

	t.Run("cancels an active task", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		q := &mockQueue{
			CancelFn: func(id uuid.UUID) bool {
				return id == taskID
			},
		}
		router := newTestRouter(q, &mockTaskStore{})

		req := httptest.NewRequest(http.MethodDelete, "/api/tasks/"+taskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("unknown or finished task is 404", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&mockQueue{}, &mockTaskStore{})

		req := httptest.NewRequest(http.MethodDelete, "/api/tasks/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestQueueStatus(t *testing.T) {
	t.Parallel()

	q := &mockQueue{
		stats: queue.Stats{Pending: 2, Running: 3, MaxConcurrent: 3, MaxQueueSize: 100},
	}
	router := newTestRouter(q, &mockTaskStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/queue/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats queue.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 3, stats.Running)
	assert.Equal(t, 3, stats.MaxConcurrent)
}
