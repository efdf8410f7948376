package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/event"
	"github.com/unifiedsync/syncd/domain/tenant"
)

func testConnection() tenant.Connection {
	return tenant.NewConnection("conn-1", "hubspot", entity.VerticalCRM, "valid", "la-1", "proj-1", time.Now())
}

func TestNotifier_DispatchFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.dispatcher.err = errors.New("connection refused")
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	h.notifier.WithClock(func() time.Time { return fixed })

	rec := entity.NewRecordWithID("rec-1", "n1", "conn-1", map[string]any{"content": "hi"}, fixed, fixed)
	saved, err := h.notifier.RecordAndNotify(ctx, Notification{
		Records:    []entity.Record{rec},
		EntityType: entity.CRMNote,
		Connection: testConnection(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID())
	assert.Equal(t, "crm.note.synced", saved.Type())
	assert.Equal(t, "/sync", saved.URL())
	assert.Equal(t, "la-1", saved.LinkedAccountID())
	assert.True(t, fixed.Equal(saved.Timestamp()))

	deliveries := h.dispatcher.Deliveries()
	require.Len(t, deliveries, 1, "delivery was attempted")
	assert.Equal(t, "crm.note.pulled", deliveries[0].EventType)
	assert.Equal(t, "proj-1", deliveries[0].ProjectID)
}

func TestNotifier_FailedRunDispatchesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	saved, err := h.notifier.RecordAndNotify(ctx, Notification{
		EntityType: entity.CRMNote,
		Connection: testConnection(),
		Status:     event.StatusFail,
	})
	require.NoError(t, err)
	assert.Equal(t, event.StatusFail, saved.Status())
	assert.Empty(t, h.dispatcher.Deliveries())
}

func TestNotifier_RecordPush(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	rec := entity.NewRecord("n1", map[string]any{"content": "hi"}, nil, nil).WithID("rec-1")

	saved, err := h.notifier.RecordPush(ctx, entity.CRMNote, testConnection(), []entity.Record{rec}, 201)
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, saved.Status())
	assert.Equal(t, "crm.note.push", saved.Type())
	assert.Equal(t, "POST", saved.Method())
	assert.Equal(t, "/crm/note", saved.URL())
	assert.Equal(t, event.DirectionPush, saved.Direction())

	deliveries := h.dispatcher.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "crm.note.created", deliveries[0].EventType)
	assert.Equal(t, saved.ID(), deliveries[0].EventID)

	rejected, err := h.notifier.RecordPush(ctx, entity.CRMNote, testConnection(), nil, 422)
	require.NoError(t, err)
	assert.Equal(t, event.StatusFail, rejected.Status())
	assert.Len(t, h.dispatcher.Deliveries(), 1)
}
