package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/infrastructure/persistence"
	"github.com/unifiedsync/syncd/internal/metrics"
	"github.com/unifiedsync/syncd/internal/testdb"
)

func newTestQueue(t *testing.T) (*Queue, persistence.TaskStore) {
	t.Helper()
	store := persistence.NewTaskStore(testdb.New(t))
	return NewQueue(store, metrics.New(), discardLogger()), store
}

func TestSyncRequest_Operation(t *testing.T) {
	all := SyncRequest{EntityType: entity.CRMNote}
	assert.Equal(t, task.OperationSyncEntity, all.Operation())
	assert.Equal(t, map[string]any{"entity_type": "crm.note"}, all.Payload())

	accountOnly := SyncRequest{EntityType: entity.CRMNote, LinkedAccountID: "la-1"}
	assert.Equal(t, task.OperationSyncEntity, accountOnly.Operation())

	one := SyncRequest{EntityType: entity.CRMNote, LinkedAccountID: "la-1", Provider: "hubspot"}
	assert.Equal(t, task.OperationSyncConnection, one.Operation())
	assert.Equal(t, map[string]any{
		"entity_type":       "crm.note",
		"linked_account_id": "la-1",
		"provider":          "hubspot",
	}, one.Payload())
}

func TestQueue_EnqueueSyncDeduplicates(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	first, err := q.EnqueueSync(ctx, SyncRequest{EntityType: entity.CRMNote}, task.PriorityBackground)
	require.NoError(t, err)
	second, err := q.EnqueueSync(ctx, SyncRequest{EntityType: entity.CRMNote}, task.PriorityUserInitiated)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, int(task.PriorityUserInitiated), second.Priority())

	_, err = q.EnqueueSync(ctx, SyncRequest{EntityType: entity.CRMNote, LinkedAccountID: "la-1", Provider: "hubspot"}, task.PriorityNormal)
	require.NoError(t, err)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Get(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, task.OperationSyncEntity, got.Operation())
}

func TestQueue_List(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	_, err := q.EnqueueSync(ctx, SyncRequest{EntityType: entity.CRMNote}, task.PriorityBackground)
	require.NoError(t, err)
	_, err = q.EnqueueSync(ctx, SyncRequest{EntityType: entity.CRMUser}, task.PriorityCritical)
	require.NoError(t, err)
	_, err = q.EnqueueSync(ctx, SyncRequest{EntityType: entity.CRMDeal, LinkedAccountID: "la-1", Provider: "hubspot"}, task.PriorityNormal)
	require.NoError(t, err)

	all, err := q.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "crm.user", all[0].Payload()["entity_type"], "highest priority first")

	op := task.OperationSyncConnection
	filtered, err := q.List(ctx, &TaskListParams{Operation: &op})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "crm.deal", filtered[0].Payload()["entity_type"])

	page, err := q.List(ctx, &TaskListParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "crm.deal", page[0].Payload()["entity_type"])
}
