// Package task provides the persisted work queue used for sync triggers.
package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Priority represents task queue priority levels.
type Priority int

// Priority values.
const (
	PriorityBackground    Priority = 1000
	PriorityNormal        Priority = 2000
	PriorityUserInitiated Priority = 5000
	PriorityCritical      Priority = 10000
)

// Task represents an item in the queue waiting to be processed.
// If the item exists, it is in the queue and waiting to be processed.
// There is no status associated - existence implies pending.
type Task struct {
	id        int64
	dedupKey  string
	operation Operation
	priority  int
	payload   map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// NewTask creates a new Task with the given operation, priority, and payload.
// The dedup key is generated automatically from the operation and payload.
func NewTask(operation Operation, priority int, payload map[string]any) Task {
	p := copyPayload(payload)
	return Task{
		dedupKey:  createDedupKey(operation, p),
		operation: operation,
		priority:  priority,
		payload:   p,
	}
}

// NewTaskWithID creates a Task with all fields (used by repository).
func NewTaskWithID(
	id int64,
	dedupKey string,
	operation Operation,
	priority int,
	payload map[string]any,
	createdAt, updatedAt time.Time,
) Task {
	return Task{
		id:        id,
		dedupKey:  dedupKey,
		operation: operation,
		priority:  priority,
		payload:   copyPayload(payload),
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the task ID.
func (t Task) ID() int64 { return t.id }

// DedupKey returns the deduplication key.
func (t Task) DedupKey() string { return t.dedupKey }

// Operation returns the task operation.
func (t Task) Operation() Operation { return t.operation }

// Priority returns the task priority.
func (t Task) Priority() int { return t.priority }

// Payload returns a copy of the task payload.
func (t Task) Payload() map[string]any {
	return copyPayload(t.payload)
}

// CreatedAt returns when the task was created.
func (t Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the task was last updated.
func (t Task) UpdatedAt() time.Time { return t.updatedAt }

// WithID returns a copy of the task with the given ID.
func (t Task) WithID(id int64) Task {
	t.id = id
	return t
}

// WithTimestamps returns a copy of the task with the given timestamps.
func (t Task) WithTimestamps(createdAt, updatedAt time.Time) Task {
	t.createdAt = createdAt
	t.updatedAt = updatedAt
	return t
}

// PayloadJSON returns the payload as JSON bytes.
func (t Task) PayloadJSON() ([]byte, error) {
	return json.Marshal(t.payload)
}

// createDedupKey creates a unique key for deduplication.
// Format: "{operation}:{k1}={v1},{k2}={v2}" with keys sorted, so two triggers
// for the same work collapse into one queued task.
func createDedupKey(operation Operation, payload map[string]any) string {
	keys := slices.Sorted(maps.Keys(payload))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return fmt.Sprintf("%s:%s", operation, strings.Join(parts, ","))
}

// copyPayload creates a shallow copy of the payload map.
func copyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(payload))
	maps.Copy(result, payload)
	return result
}
