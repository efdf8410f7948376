// Package webhook defines the outbound notification contract.
package webhook

import "context"

// Delivery is one notification for a project.
type Delivery struct {
	Payload   any
	EventType string
	ProjectID string
	EventID   string
}

// Dispatcher delivers notifications. Delivery is at-least-once; callers treat
// a returned error as informational only.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Delivery) error
}
