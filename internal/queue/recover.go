package queue

import (
	"context"
	"errors"
	"fmt"
)

// Recover re-submits durable tasks left unfinished by a previous process.
// Because queue state is in-memory only, a restart mid-task would
// otherwise leave the durable record stuck in a generating status
// forever. Recover scans the store for tasks still marked pending or
// generating and enqueues each one again; generation restarts from the
// beginning of the task (already-persisted artifacts are overwritten by
// index on the next pass).
//
// Tasks that no longer fit the queue are left for the next restart and
// logged rather than failed, since the durable record is intact.
func (m *Manager) Recover(ctx context.Context) error {
	tasks, err := m.store.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unfinished tasks: %w", err)
	}

	if len(tasks) == 0 {
		m.logger.Info("no unfinished tasks to recover")
		return nil
	}

	m.logger.Info("recovering unfinished tasks", "count", len(tasks))

	recovered := 0
	for _, t := range tasks {
		if _, err := m.Submit(t.ID, t.Prompt, t.ImageCount); err != nil {
			if errors.Is(err, ErrQueueFull) {
				m.logger.Warn("queue full during recovery, task left for next restart",
					"task_id", t.ID)
				continue
			}
			return fmt.Errorf("failed to re-submit task %s: %w", t.ID, err)
		}
		recovered++
	}

	m.logger.Info("recovery complete", "recovered", recovered, "skipped", len(tasks)-recovered)
	return nil
}
