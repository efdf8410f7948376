// Package record defines the persistence port for canonical records.
package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/tenant"
)

// Retention controls what happens to earlier custom field values when a
// record is persisted again.
type Retention string

// Retention values.
const (
	// RetentionLatest replaces the previous value set of a record.
	RetentionLatest Retention = "latest"
	// RetentionHistory keeps every value set ever written.
	RetentionHistory Retention = "history"
)

// ErrInvalidRetention is returned by ParseRetention.
var ErrInvalidRetention = errors.New("invalid value retention")

// ParseRetention parses a retention name. Empty means latest.
func ParseRetention(s string) (Retention, error) {
	switch Retention(s) {
	case "", RetentionLatest:
		return RetentionLatest, nil
	case RetentionHistory:
		return RetentionHistory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRetention, s)
	}
}

// PersistRequest is one batch of unified records for one connection.
type PersistRequest struct {
	Connection tenant.Connection
	Descriptor entity.Descriptor
	Records    []entity.Record
	// ScopeID is the canonical id of the parent row for scoped types.
	ScopeID string
}

// Store persists and reads canonical records.
type Store interface {
	// Persist upserts a batch in one transaction and returns the stored
	// records in input order. Any error rolls the whole batch back.
	Persist(ctx context.Context, req PersistRequest) ([]entity.Record, error)
	Get(ctx context.Context, desc entity.Descriptor, id string) (entity.Record, error)
	List(ctx context.Context, desc entity.Descriptor, options ...store.Option) ([]entity.Record, error)
	Exists(ctx context.Context, desc entity.Descriptor, id string) (bool, error)
	// FieldMappings returns slug to stored data for the record's latest value
	// set.
	FieldMappings(ctx context.Context, recordID string) (map[string]any, error)
	// RemoteData returns the cached raw payload, or an error wrapping
	// entity.ErrNotFound.
	RemoteData(ctx context.Context, recordID string) (entity.Raw, error)
}

const (
	cursorCreatedAtParam = "cursor_created_at"
	cursorIDParam        = "cursor_id"
)

// WithCursor restricts a List to rows after (createdAt, id) in
// (created_at, id) order.
func WithCursor(createdAt time.Time, id string) store.Option {
	return func(q store.Query) store.Query {
		q = store.WithParam(cursorCreatedAtParam, createdAt)(q)
		return store.WithParam(cursorIDParam, id)(q)
	}
}

// CursorFrom extracts a cursor set by WithCursor.
func CursorFrom(q store.Query) (time.Time, string, bool) {
	at, ok := q.Param(cursorCreatedAtParam)
	if !ok {
		return time.Time{}, "", false
	}
	id, _ := q.Param(cursorIDParam)
	t, _ := at.(time.Time)
	s, _ := id.(string)
	return t, s, true
}
