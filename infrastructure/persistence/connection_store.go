package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/internal/database"
)

// ConnectionStore implements tenant.ConnectionStore using GORM.
type ConnectionStore struct {
	database.Repository[tenant.Connection, ConnectionModel]
}

// NewConnectionStore creates a new ConnectionStore.
func NewConnectionStore(db database.Database) ConnectionStore {
	return ConnectionStore{
		Repository: database.NewRepository[tenant.Connection, ConnectionModel](db, ConnectionMapper{}, "connection"),
	}
}

// Find returns the connection for (linked account, provider, vertical). When
// several exist the oldest wins.
func (s ConnectionStore) Find(ctx context.Context, linkedAccountID, provider string, vertical entity.Vertical) (tenant.Connection, error) {
	conn, err := s.FindOne(ctx,
		store.WithLinkedAccountID(linkedAccountID),
		store.WithCondition("provider_slug", provider),
		store.WithCondition("vertical", string(vertical)),
		store.WithOrderAsc("created_at"),
	)
	if errors.Is(err, database.ErrNotFound) {
		return tenant.Connection{}, fmt.Errorf("%w: %s/%s for linked account %s", tenant.ErrNoConnection, vertical, provider, linkedAccountID)
	}
	return conn, err
}

// Get returns a connection by id.
func (s ConnectionStore) Get(ctx context.Context, id string) (tenant.Connection, error) {
	conn, err := s.FindOne(ctx, store.WithConnectionID(id))
	if errors.Is(err, database.ErrNotFound) {
		return tenant.Connection{}, fmt.Errorf("%w: connection %s", tenant.ErrNoConnection, id)
	}
	return conn, err
}

// Create inserts a connection. Connections are immutable once created.
func (s ConnectionStore) Create(ctx context.Context, c tenant.Connection) (tenant.Connection, error) {
	return s.Repository.Create(ctx, c)
}
