// Package webhook delivers notifications over HTTP or onto a Redis stream.
package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/unifiedsync/syncd/domain/webhook"
)

// Envelope is the wire form of one delivery.
type Envelope struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	ProjectID string    `json:"project_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

func newEnvelope(d webhook.Delivery, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		EventType: d.EventType,
		ProjectID: d.ProjectID,
		EventID:   d.EventID,
		CreatedAt: now.UTC(),
		Data:      d.Payload,
	}
}

// Noop discards deliveries. It is used when no transport is configured.
type Noop struct{}

// Dispatch does nothing.
func (Noop) Dispatch(context.Context, webhook.Delivery) error { return nil }

// Fanout sends each delivery to every dispatcher and joins their errors.
type Fanout []webhook.Dispatcher

// Dispatch delivers to all dispatchers, continuing past failures.
func (f Fanout) Dispatch(ctx context.Context, d webhook.Delivery) error {
	var errs []error
	for _, disp := range f {
		if err := disp.Dispatch(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
