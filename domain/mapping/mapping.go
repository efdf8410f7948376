// Package mapping holds tenant-defined custom field mappings.
//
// A mapping says: for this provider and linked account, the remote property
// named RemoteProperty of an entity type is surfaced under Slug.
package mapping

import (
	"context"

	"github.com/unifiedsync/syncd/domain/entity"
)

// FieldMapping maps a provider property to a tenant slug.
type FieldMapping struct {
	remoteProperty string
	slug           string
}

// NewFieldMapping creates a FieldMapping.
func NewFieldMapping(remoteProperty, slug string) FieldMapping {
	return FieldMapping{remoteProperty: remoteProperty, slug: slug}
}

// RemoteProperty returns the provider-side property name.
func (m FieldMapping) RemoteProperty() string { return m.remoteProperty }

// Slug returns the tenant-side name.
func (m FieldMapping) Slug() string { return m.slug }

// RemoteProperties returns the provider property names of mappings, in order.
func RemoteProperties(mappings []FieldMapping) []string {
	out := make([]string, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, m.remoteProperty)
	}
	return out
}

// Attribute is an EAV schema entry: a slug defined for an entity type, owned
// by a provider and linked account.
type Attribute struct {
	ID              string
	Slug            string
	Provider        string
	LinkedAccountID string
	EntityType      entity.Type
	RemoteProperty  string
	DataType        string
}

// Store resolves mappings.
type Store interface {
	// Resolve returns the mappings for (provider, linked account, entity
	// type) ordered by definition time. No mappings is an empty slice.
	Resolve(ctx context.Context, provider, linkedAccountID string, entityType entity.Type) ([]FieldMapping, error)
}
