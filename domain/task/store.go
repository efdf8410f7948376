package task

import (
	"context"

	"github.com/unifiedsync/syncd/domain/store"
)

// TaskStore defines the interface for Task persistence operations.
type TaskStore interface {
	// Get retrieves a task by ID.
	Get(ctx context.Context, id int64) (Task, error)

	// FindPending retrieves pending tasks ordered by priority.
	FindPending(ctx context.Context, options ...store.Option) ([]Task, error)

	// Save creates a new task. If a task with the same dedup key is already
	// queued, its priority is raised instead of adding a duplicate.
	Save(ctx context.Context, task Task) (Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, task Task) error

	// CountPending returns the number of pending tasks.
	CountPending(ctx context.Context, options ...store.Option) (int64, error)

	// Dequeue retrieves and removes the highest priority task.
	// Returns the task and true if one was found, or zero-value and false if queue is empty.
	Dequeue(ctx context.Context) (Task, bool, error)
}
