// Package event defines the append-only audit trail of sync and push runs.
package event

import (
	"context"
	"time"

	"github.com/unifiedsync/syncd/domain/store"
)

// Status of a recorded run.
type Status string

// Status values.
const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Direction of the data flow.
type Direction string

// Direction values. Pulls record "0", pushes record "1".
const (
	DirectionPull Direction = "0"
	DirectionPush Direction = "1"
)

// Event is one audit row.
type Event struct {
	id              string
	status          Status
	eventType       string
	method          string
	url             string
	provider        string
	direction       Direction
	timestamp       time.Time
	linkedAccountID string
}

// NewEvent creates an Event without an id.
func NewEvent(
	status Status,
	eventType, method, url, provider string,
	direction Direction,
	linkedAccountID string,
	timestamp time.Time,
) Event {
	return Event{
		status:          status,
		eventType:       eventType,
		method:          method,
		url:             url,
		provider:        provider,
		direction:       direction,
		linkedAccountID: linkedAccountID,
		timestamp:       timestamp,
	}
}

// ID returns the event id.
func (e Event) ID() string { return e.id }

// Status returns the run status.
func (e Event) Status() Status { return e.status }

// Type returns the event type, e.g. "ats.attachment.synced".
func (e Event) Type() string { return e.eventType }

// Method returns the operation method ("SYNC", "POST").
func (e Event) Method() string { return e.method }

// URL returns the logical endpoint.
func (e Event) URL() string { return e.url }

// Provider returns the provider slug.
func (e Event) Provider() string { return e.provider }

// Direction returns the data direction.
func (e Event) Direction() Direction { return e.direction }

// Timestamp returns when the event happened.
func (e Event) Timestamp() time.Time { return e.timestamp }

// LinkedAccountID returns the linked account the run was for.
func (e Event) LinkedAccountID() string { return e.linkedAccountID }

// WithID returns a copy with the id set.
func (e Event) WithID(id string) Event {
	e.id = id
	return e
}

// Store persists events.
type Store interface {
	Save(ctx context.Context, e Event) (Event, error)
	Find(ctx context.Context, options ...store.Option) ([]Event, error)
	Count(ctx context.Context, options ...store.Option) (int64, error)
}
