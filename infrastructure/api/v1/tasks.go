package v1

import (
	"time"

	"github.com/unifiedsync/syncd/domain/task"
)

// TaskResponse is the JSON shape of a queued task.
type TaskResponse struct {
	ID        int64          `json:"id"`
	Operation string         `json:"operation"`
	Priority  int            `json:"priority"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func taskToResponse(t task.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID(),
		Operation: t.Operation().String(),
		Priority:  t.Priority(),
		Payload:   t.Payload(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}

func tasksToResponse(tasks []task.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = taskToResponse(t)
	}
	return out
}
