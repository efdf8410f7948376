package persistence

import (
	"context"

	"github.com/unifiedsync/syncd/domain/event"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/internal/database"
)

// EventStore implements event.Store using GORM. Events are append-only.
type EventStore struct {
	database.Repository[event.Event, EventModel]
}

// NewEventStore creates a new EventStore.
func NewEventStore(db database.Database) EventStore {
	return EventStore{
		Repository: database.NewRepository[event.Event, EventModel](db, EventMapper{}, "event"),
	}
}

// Save inserts an event and returns it with its id.
func (s EventStore) Save(ctx context.Context, e event.Event) (event.Event, error) {
	return s.Create(ctx, e)
}

// Find returns events matching the options, newest first unless the options
// order otherwise.
func (s EventStore) Find(ctx context.Context, options ...store.Option) ([]event.Event, error) {
	if len(store.Build(options...).Orders()) == 0 {
		options = append(options, store.WithOrderDesc("timestamp"))
	}
	return s.Repository.Find(ctx, options...)
}
