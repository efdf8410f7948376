package persistence

import (
	"context"
	"fmt"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/mapping"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/internal/database"
)

// MappingStore implements mapping.Store over the attribute table.
type MappingStore struct {
	database.Repository[mapping.Attribute, AttributeModel]
}

// NewMappingStore creates a new MappingStore.
func NewMappingStore(db database.Database) MappingStore {
	return MappingStore{
		Repository: database.NewRepository[mapping.Attribute, AttributeModel](db, AttributeMapper{}, "attribute"),
	}
}

// Resolve returns the field mappings defined for (provider, linked account,
// entity type), oldest first.
func (s MappingStore) Resolve(ctx context.Context, provider, linkedAccountID string, entityType entity.Type) ([]mapping.FieldMapping, error) {
	attrs, err := s.Find(ctx,
		store.WithCondition("source", provider),
		store.WithCondition("id_consumer", linkedAccountID),
		store.WithCondition("ressource_owner_type", entityType.String()),
		store.WithComparison("remote_id", "!=", ""),
		store.WithOrderAsc("created_at"),
		store.WithOrderAsc("id_attribute"),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve field mappings: %w", err)
	}
	mappings := make([]mapping.FieldMapping, 0, len(attrs))
	for _, a := range attrs {
		mappings = append(mappings, mapping.NewFieldMapping(a.RemoteProperty, a.Slug))
	}
	return mappings, nil
}

// Define creates an attribute. An attribute with a RemoteProperty is a field
// mapping.
func (s MappingStore) Define(ctx context.Context, a mapping.Attribute) (mapping.Attribute, error) {
	return s.Create(ctx, a)
}
