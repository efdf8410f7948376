package service

import (
	"context"
	"log/slog"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/internal/metrics"
)

// Payload keys of sync tasks.
const (
	PayloadEntityType      = "entity_type"
	PayloadTenantID        = "tenant_id"
	PayloadProjectID       = "project_id"
	PayloadLinkedAccountID = "linked_account_id"
	PayloadProvider        = "provider"
	PayloadScopeID         = "scope_id"
)

// TaskListParams configures task listing.
type TaskListParams struct {
	Operation *task.Operation
	Limit     int
	Offset    int
}

// SyncRequest asks for a sync. With both LinkedAccountID and Provider set it
// targets a single connection, otherwise every matching tenant.
type SyncRequest struct {
	EntityType      entity.Type
	TenantID        string
	ProjectID       string
	LinkedAccountID string
	Provider        string
	ScopeID         string
}

// Operation returns the task operation that serves the request.
func (r SyncRequest) Operation() task.Operation {
	if r.LinkedAccountID != "" && r.Provider != "" {
		return task.OperationSyncConnection
	}
	return task.OperationSyncEntity
}

// Payload returns the task payload. Empty fields are omitted so equal
// requests share a dedup key.
func (r SyncRequest) Payload() map[string]any {
	payload := map[string]any{PayloadEntityType: r.EntityType.String()}
	for key, value := range map[string]string{
		PayloadTenantID:        r.TenantID,
		PayloadProjectID:       r.ProjectID,
		PayloadLinkedAccountID: r.LinkedAccountID,
		PayloadProvider:        r.Provider,
		PayloadScopeID:         r.ScopeID,
	} {
		if value != "" {
			payload[key] = value
		}
	}
	return payload
}

// Queue provides the main interface for enqueuing and managing tasks.
type Queue struct {
	store   task.TaskStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQueue creates a new queue service. metrics may be nil.
func NewQueue(store task.TaskStore, m *metrics.Metrics, logger *slog.Logger) *Queue {
	return &Queue{
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Enqueue adds a task to the queue.
// If a task with the same dedup_key exists, it updates the priority instead.
func (s *Queue) Enqueue(ctx context.Context, t task.Task) (task.Task, error) {
	saved, err := s.store.Save(ctx, t)
	if err != nil {
		return task.Task{}, err
	}

	s.logger.DebugContext(ctx, "task enqueued",
		slog.String("dedup_key", t.DedupKey()),
		slog.String("operation", t.Operation().String()),
	)
	s.refreshDepth(ctx)
	return saved, nil
}

// EnqueueSync queues a sync request.
func (s *Queue) EnqueueSync(ctx context.Context, req SyncRequest, priority task.Priority) (task.Task, error) {
	return s.Enqueue(ctx, task.NewTask(req.Operation(), int(priority), req.Payload()))
}

// List returns tasks matching the given params.
// Tasks are sorted by priority (highest first) then by created_at (oldest first).
func (s *Queue) List(ctx context.Context, params *TaskListParams) ([]task.Task, error) {
	var options []store.Option

	if params != nil && params.Operation != nil {
		options = append(options, store.WithType(params.Operation.String()))
	}
	if params != nil && params.Limit > 0 {
		options = append(options, store.WithLimit(params.Limit), store.WithOffset(params.Offset))
	}

	return s.store.FindPending(ctx, options...)
}

// Count returns the total number of pending tasks.
func (s *Queue) Count(ctx context.Context) (int64, error) {
	n, err := s.store.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.QueueDepth(n)
	return n, nil
}

// Get retrieves a task by ID.
func (s *Queue) Get(ctx context.Context, id int64) (task.Task, error) {
	return s.store.Get(ctx, id)
}

func (s *Queue) refreshDepth(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if _, err := s.Count(ctx); err != nil {
		s.logger.DebugContext(ctx, "queue depth unavailable", slog.String("error", err.Error()))
	}
}
