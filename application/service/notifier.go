package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/event"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/domain/webhook"
	"github.com/unifiedsync/syncd/internal/metrics"
)

// Event methods and endpoints written to the audit trail.
const (
	methodSync = "SYNC"
	methodPost = "POST"
	urlSync    = "/sync"
)

// Notification describes the outcome of one pipeline run.
type Notification struct {
	Records    []entity.Record
	EntityType entity.Type
	Connection tenant.Connection
	// Status defaults to event.StatusSuccess.
	Status event.Status
}

// Notifier writes audit events and dispatches webhooks for them.
type Notifier struct {
	events     event.Store
	dispatcher webhook.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotifier creates a Notifier. metrics may be nil.
func NewNotifier(events event.Store, dispatcher webhook.Dispatcher, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	return &Notifier{
		events:     events,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock sets the clock used for event timestamps.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

// RecordAndNotify inserts the sync event and, for successful runs,
// dispatches the records tagged "<type>.pulled". Dispatch failures are
// logged and never returned.
func (n *Notifier) RecordAndNotify(ctx context.Context, note Notification) (event.Event, error) {
	status := note.Status
	if status == "" {
		status = event.StatusSuccess
	}

	saved, err := n.events.Save(ctx, event.NewEvent(
		status,
		note.EntityType.SyncedEvent(),
		methodSync,
		urlSync,
		note.Connection.Provider(),
		event.DirectionPull,
		note.Connection.LinkedAccountID(),
		n.now().UTC(),
	))
	if err != nil {
		return event.Event{}, fmt.Errorf("record sync event: %w", err)
	}

	if status != event.StatusSuccess {
		return saved, nil
	}

	n.dispatch(ctx, webhook.Delivery{
		Payload:   NewRecordViews(note.Records),
		EventType: note.EntityType.PulledWebhook(),
		ProjectID: note.Connection.ProjectID(),
		EventID:   saved.ID(),
	})
	return saved, nil
}

// RecordPush inserts the push event. Its status follows the provider status
// code. Accepted pushes dispatch the stored records tagged "<type>.created".
func (n *Notifier) RecordPush(ctx context.Context, t entity.Type, conn tenant.Connection, records []entity.Record, statusCode int) (event.Event, error) {
	status := event.StatusFail
	if accepted(statusCode) {
		status = event.StatusSuccess
	}

	saved, err := n.events.Save(ctx, event.NewEvent(
		status,
		t.PushEvent(),
		methodPost,
		"/"+string(t.Vertical())+"/"+t.Name(),
		conn.Provider(),
		event.DirectionPush,
		conn.LinkedAccountID(),
		n.now().UTC(),
	))
	if err != nil {
		return event.Event{}, fmt.Errorf("record push event: %w", err)
	}

	if status != event.StatusSuccess || len(records) == 0 {
		return saved, nil
	}

	n.dispatch(ctx, webhook.Delivery{
		Payload:   NewRecordViews(records),
		EventType: t.CreatedWebhook(),
		ProjectID: conn.ProjectID(),
		EventID:   saved.ID(),
	})
	return saved, nil
}

func (n *Notifier) dispatch(ctx context.Context, d webhook.Delivery) {
	if n.dispatcher == nil {
		return
	}
	if err := n.dispatcher.Dispatch(ctx, d); err != nil {
		n.metrics.WebhookFailure(d.EventType)
		n.logger.WarnContext(ctx, "webhook dispatch failed",
			slog.String("event_type", d.EventType),
			slog.String("event_id", d.EventID),
			slog.String("project_id", d.ProjectID),
			slog.String("error", err.Error()),
		)
	}
}

func accepted(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
