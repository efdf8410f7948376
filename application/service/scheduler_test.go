package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/task"
)

func TestScheduler_RegisterIsIdempotent(t *testing.T) {
	s := NewScheduler(discardLogger())
	var calls atomic.Int32
	fn := func(context.Context) { calls.Add(1) }

	require.NoError(t, s.Register("crm-sync-notes", "0 */8 * * *", fn))
	require.NoError(t, s.Register("crm-sync-notes", "0 */8 * * *", fn))
	assert.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Register("crm-sync-notes", "*/5 * * * *", fn))
	assert.Len(t, s.cron.Entries(), 1)
	assert.Equal(t, map[string]string{"crm-sync-notes": "*/5 * * * *"}, s.Jobs())

	assert.True(t, s.Run("crm-sync-notes"))
	assert.False(t, s.Run("missing"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_RejectsInvalidExpression(t *testing.T) {
	s := NewScheduler(discardLogger())
	err := s.Register("bad", "every tuesday", func(context.Context) {})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(discardLogger())
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

func TestScheduleSyncs(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)
	s := NewScheduler(discardLogger())
	catalog := entity.Builtin()

	require.NoError(t, ScheduleSyncs(s, catalog, q, ""))
	jobs := s.Jobs()
	require.Len(t, jobs, len(catalog.All()))
	assert.Equal(t, entity.DefaultCron, jobs["ats-sync-attachments"])

	require.NoError(t, ScheduleSyncs(s, catalog, q, "*/15 * * * *"))
	assert.Equal(t, "*/15 * * * *", s.Jobs()["crm-sync-notes"])
	assert.Len(t, s.cron.Entries(), len(catalog.All()))

	require.True(t, s.Run("crm-sync-notes"))
	tasks, err := q.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.OperationSyncEntity, tasks[0].Operation())
	assert.Equal(t, "crm.note", tasks[0].Payload()["entity_type"])
	assert.Equal(t, int(task.PriorityBackground), tasks[0].Priority())
}
