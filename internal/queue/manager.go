package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quenby/atelier-api/internal/domain"
	"github.com/quenby/atelier-api/internal/generation"
)

// Dependency validation errors
var (
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilStore     = errors.New("task store cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// Stats is a point-in-time snapshot of queue occupancy.
type Stats struct {
	Pending         int `json:"pending"`
	Running         int `json:"running"`
	CompletedRecent int `json:"completed_recent"`
	MaxConcurrent   int `json:"max_concurrent"`
	MaxQueueSize    int `json:"max_queue_size"`
}

// Manager is the generation queue orchestrator. It accepts task
// submissions, holds a FIFO pending queue and a bounded set of running
// tasks, drives each admitted task through generation under a timeout,
// and retries classified-transient failures with exponential backoff.
//
// The Manager is single-process and in-memory: queue state does not
// survive a restart. Recover re-submits durable tasks left unfinished by
// a previous process (see recover.go).
//
// All internal state is serialized through a single mutex, and the
// scheduling pass is additionally protected by a re-entrancy flag so
// that near-simultaneous triggers (a submit racing a completion) never
// run two admission loops.
type Manager struct {
	cfg    Config
	gen    generation.Generator
	store  TaskStore
	logger *slog.Logger

	mu         sync.Mutex
	scheduling bool
	closed     bool
	pending    []*QueueTask
	byTaskID   map[uuid.UUID]*QueueTask
	running    int
	history    []*QueueTask
	wg         sync.WaitGroup
}

// NewManager creates a queue manager with the given dependencies. Zero or
// negative config values fall back to the defaults from DefaultConfig.
func NewManager(cfg Config, gen generation.Generator, store TaskStore, logger *slog.Logger) (*Manager, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	defaults := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaults.MaxConcurrent
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = defaults.MaxQueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaults.TaskTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.RateLimitRetryDelay <= 0 {
		cfg.RateLimitRetryDelay = defaults.RateLimitRetryDelay
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}

	return &Manager{
		cfg:      cfg,
		gen:      gen,
		store:    store,
		logger:   logger.With("component", "queue_manager"),
		byTaskID: make(map[uuid.UUID]*QueueTask),
	}, nil
}

// Submit enqueues generation work for the durable task identified by
// taskID. It is idempotent per task: if a live QueueTask already exists
// for taskID (pending, running, or waiting out a retry delay), the
// existing queue task ID is returned and no duplicate is created.
// Returns ErrQueueFull when the pending queue is at capacity, without
// mutating queue state. Submit never waits for execution; the scheduling
// pass runs independently.
func (m *Manager) Submit(taskID uuid.UUID, prompt string, imageCount int) (uuid.UUID, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return uuid.Nil, ErrQueueClosed
	}

	if existing, ok := m.byTaskID[taskID]; ok {
		id := existing.ID
		m.mu.Unlock()
		m.logger.Debug("duplicate submission for task, returning existing queue task",
			"task_id", taskID,
			"queue_task_id", id)
		return id, nil
	}

	if len(m.pending) >= m.cfg.MaxQueueSize {
		m.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, m.cfg.MaxQueueSize)
	}

	qt := &QueueTask{
		ID:         uuid.New(),
		TaskID:     taskID,
		Prompt:     prompt,
		ImageCount: imageCount,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	m.pending = append(m.pending, qt)
	m.byTaskID[taskID] = qt
	queueLen := len(m.pending)
	m.mu.Unlock()

	m.logger.Debug("task enqueued",
		"task_id", taskID,
		"queue_task_id", qt.ID,
		"queue_len", queueLen)

	m.schedule()
	return qt.ID, nil
}

// Cancel aborts the task identified by taskID. A pending task is removed
// from the queue immediately and synchronously; it will never be
// admitted, even if capacity frees up later. A running task has its
// cancellation signal raised, which aborts the in-flight generation call
// and its timeout race; the terminal transition is observed
// asynchronously. Returns false when no live task matches, including
// already-terminal tasks.
func (m *Manager) Cancel(taskID uuid.UUID) bool {
	m.mu.Lock()
	qt, ok := m.byTaskID[taskID]
	if !ok || qt.terminal() {
		m.mu.Unlock()
		return false
	}

	switch qt.Status {
	case StatusPending:
		if qt.retryTimer != nil {
			// Waiting out a backoff delay. Stopping the timer (or
			// clearing it, if it already fired and the requeue is
			// waiting on the lock) prevents re-admission.
			qt.retryTimer.Stop()
			qt.retryTimer = nil
		} else {
			m.removePendingLocked(qt)
		}
		m.terminateLocked(qt, StatusFailed, "task cancelled")
		m.mu.Unlock()

		if err := m.store.MarkFailed(context.Background(), taskID, "task cancelled"); err != nil {
			m.logger.Warn("failed to persist cancellation", "task_id", taskID, "error", err)
		}
		m.logger.Info("pending task cancelled", "task_id", taskID)
		return true

	case StatusRunning:
		cancel := qt.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.logger.Info("cancellation signalled for running task", "task_id", taskID)
		return true

	default:
		m.mu.Unlock()
		return false
	}
}

// Stats returns a point-in-time snapshot of queue occupancy. Tasks
// waiting out a retry delay are not counted as pending until they
// re-enter the queue.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Pending:         len(m.pending),
		Running:         m.running,
		CompletedRecent: len(m.history),
		MaxConcurrent:   m.cfg.MaxConcurrent,
		MaxQueueSize:    m.cfg.MaxQueueSize,
	}
}

// Info looks up the queue task for taskID across the live set and the
// recent-history set. Returns a snapshot copy, or nil when the task is
// unknown (never submitted, or evicted from history).
func (m *Manager) Info(taskID uuid.UUID) *QueueTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qt, ok := m.byTaskID[taskID]; ok {
		return qt.snapshot()
	}

	// Newest history entries are at the end; search backwards so the most
	// recent terminal record for the task wins.
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].TaskID == taskID {
			return m.history[i].snapshot()
		}
	}

	return nil
}

// Stop shuts the queue down: pending tasks are dropped, retry timers are
// stopped, running tasks are cancelled, and Stop blocks until their
// goroutines finish. Submit returns ErrQueueClosed afterwards.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.wg.Wait()
		return
	}
	m.closed = true
	m.pending = nil

	for _, qt := range m.byTaskID {
		if qt.retryTimer != nil {
			qt.retryTimer.Stop()
			qt.retryTimer = nil
		}
		if qt.cancel != nil {
			qt.cancel()
		}
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("queue manager stopped")
}

// schedule runs one admission pass: while the pending queue is non-empty
// and a concurrency slot is free, the head of the queue is started
// without awaiting completion. The pass is re-entered on every submit and
// on every task completion but never runs concurrently with itself; the
// scheduling flag makes concurrent triggers no-ops instead of
// double-admitting.
func (m *Manager) schedule() {
	m.mu.Lock()
	if m.scheduling || m.closed {
		m.mu.Unlock()
		return
	}
	m.scheduling = true

	for len(m.pending) > 0 && m.running < m.cfg.MaxConcurrent {
		qt := m.pending[0]
		m.pending = m.pending[1:]

		now := time.Now().UTC()
		qt.Status = StatusRunning
		if qt.StartedAt == nil {
			qt.StartedAt = &now
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.TaskTimeout)
		qt.cancel = cancel
		m.running++

		m.wg.Add(1)
		go m.execute(ctx, cancel, qt)
	}

	m.scheduling = false
	m.mu.Unlock()
}

// execute drives one admitted task through a single generation attempt.
// Store writes use a background context: the attempt context only bounds
// the provider call, and a timed-out attempt must still be able to
// persist its transition.
func (m *Manager) execute(ctx context.Context, cancel context.CancelFunc, qt *QueueTask) {
	defer m.wg.Done()
	defer cancel()

	logger := m.logger.With(
		"task_id", qt.TaskID,
		"queue_task_id", qt.ID,
		"attempt", qt.RetryCount+1,
	)
	logger.Info("starting generation", "image_count", qt.ImageCount)

	if err := m.store.MarkStarted(context.Background(), qt.TaskID); err != nil {
		logger.Warn("failed to persist generation start", "error", err)
	}

	produced := 0
	var genErr error
	for res := range m.gen.Generate(ctx, qt.Prompt, qt.ImageCount) {
		if res.Err != nil {
			genErr = res.Err
			break
		}

		artifact, err := domain.NewArtifact(qt.TaskID, produced, res.Image.MIMEType, res.Image.Data)
		if err != nil {
			genErr = fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
			break
		}

		if err := m.store.AppendArtifact(context.Background(), qt.TaskID, artifact, produced); err != nil {
			logger.Warn("failed to persist artifact",
				"artifact_index", produced,
				"error", err)
		}
		produced++
	}

	// A generator that stops on cancellation by closing its channel still
	// counts as a failed attempt; pick up the race outcome from the context.
	if genErr == nil && ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			genErr = fmt.Errorf("generation timed out after %s", m.cfg.TaskTimeout)
		} else {
			genErr = fmt.Errorf("task cancelled: %w", ctx.Err())
		}
	}

	if genErr == nil {
		m.finishCompleted(qt, produced, logger)
		return
	}
	m.handleFailure(qt, genErr, logger)
}

// finishCompleted records a successful task and frees its slot.
func (m *Manager) finishCompleted(qt *QueueTask, produced int, logger *slog.Logger) {
	m.mu.Lock()
	m.running--
	m.terminateLocked(qt, StatusCompleted, "")
	m.mu.Unlock()

	if err := m.store.MarkCompleted(context.Background(), qt.TaskID); err != nil {
		logger.Warn("failed to persist completion", "error", err)
	}

	logger.Info("generation completed", "artifacts", produced, "retries", qt.RetryCount)
	m.schedule()
}

// handleFailure classifies a failed attempt and either schedules a
// delayed re-enqueue or fails the task terminally. The backoff delay
// elapses off the concurrency-accounted set: the slot is released
// immediately and the task re-enters the pending queue when the timer
// fires.
func (m *Manager) handleFailure(qt *QueueTask, genErr error, logger *slog.Logger) {
	retryable := isRetryable(genErr)

	m.mu.Lock()
	m.running--

	if retryable && qt.RetryCount < m.cfg.MaxRetries && !m.closed {
		delay := m.cfg.retryDelay(genErr, qt.RetryCount)
		qt.RetryCount++
		qt.Status = StatusPending
		qt.cancel = nil
		qt.retryTimer = time.AfterFunc(delay, func() { m.requeue(qt) })
		m.mu.Unlock()

		logger.Warn("generation attempt failed, will retry",
			"error", genErr,
			"rate_limited", isRateLimited(genErr),
			"retry_count", qt.RetryCount,
			"delay", delay)
		m.schedule()
		return
	}

	m.terminateLocked(qt, StatusFailed, genErr.Error())
	m.mu.Unlock()

	if err := m.store.MarkFailed(context.Background(), qt.TaskID, genErr.Error()); err != nil {
		logger.Warn("failed to persist failure", "error", err)
	}

	reason := "error is not retryable"
	if retryable {
		reason = "retry budget exhausted"
	}
	logger.Error("generation failed terminally",
		"error", genErr,
		"reason", reason,
		"retry_count", qt.RetryCount)
	m.schedule()
}

// requeue moves a task back into the pending queue after its backoff
// delay. Re-entry bypasses the capacity check: the task was admitted
// once and never left the manager's ownership.
func (m *Manager) requeue(qt *QueueTask) {
	m.mu.Lock()
	if m.closed || qt.retryTimer == nil {
		// Cancelled or shut down while the delay elapsed.
		m.mu.Unlock()
		return
	}
	qt.retryTimer = nil
	m.pending = append(m.pending, qt)
	m.mu.Unlock()

	m.logger.Debug("task re-queued after backoff",
		"task_id", qt.TaskID,
		"retry_count", qt.RetryCount)
	m.schedule()
}

// terminateLocked moves a task into a terminal status and the bounded
// recent-history set, evicting the oldest entry when full. Caller must
// hold m.mu and account for the concurrency slot separately.
func (m *Manager) terminateLocked(qt *QueueTask, status Status, errorMessage string) {
	now := time.Now().UTC()
	qt.Status = status
	qt.ErrorMessage = errorMessage
	qt.CompletedAt = &now
	qt.cancel = nil
	qt.retryTimer = nil

	delete(m.byTaskID, qt.TaskID)

	m.history = append(m.history, qt)
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[1:]
	}
}

// removePendingLocked removes qt from the pending slice. Caller must
// hold m.mu.
func (m *Manager) removePendingLocked(qt *QueueTask) {
	for i, p := range m.pending {
		if p == qt {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
