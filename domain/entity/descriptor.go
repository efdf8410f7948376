package entity

import "fmt"

// Kind is the storage kind of a canonical field.
type Kind string

// Kind values.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
)

// FieldSpec describes one typed core field of a canonical entity.
type FieldSpec struct {
	// Name is the canonical field name used by transform rules and the API.
	Name string
	// Column is the database column backing the field.
	Column string
	Kind   Kind
	// Ref names the entity type whose canonical id this field holds, if any.
	// Pushes are rejected when a referenced id does not exist.
	Ref *Type
}

// Scope makes an entity type sync once per row of a parent entity of the same
// connection instead of once per connection.
type Scope struct {
	Parent Type
	// LinkField is the parent's canonical field that receives the id of each
	// record persisted under that parent.
	LinkField string
}

// Descriptor parameterizes the generic pipeline for one entity type.
type Descriptor struct {
	Type     Type
	Table    string
	IDColumn string
	Fields   []FieldSpec
	// Providers is the static provider list enumerated for this type.
	Providers []string
	JobName   string
	Cron      string
	Scope     *Scope
}

// Field returns the spec for a canonical field name.
func (d Descriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the canonical field names in declaration order.
func (d Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// SupportsProvider reports whether provider is in the static list.
func (d Descriptor) SupportsProvider(provider string) bool {
	for _, p := range d.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// Catalog is an immutable set of descriptors keyed by entity type.
type Catalog struct {
	byType map[string]Descriptor
	order  []Type
}

// NewCatalog creates a Catalog. Later descriptors replace earlier ones of the
// same type.
func NewCatalog(descriptors ...Descriptor) Catalog {
	c := Catalog{byType: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, exists := c.byType[d.Type.String()]; !exists {
			c.order = append(c.order, d.Type)
		}
		c.byType[d.Type.String()] = d
	}
	return c
}

// Lookup returns the descriptor for t.
func (c Catalog) Lookup(t Type) (Descriptor, bool) {
	d, ok := c.byType[t.String()]
	return d, ok
}

// Get returns the descriptor for t or an ErrUnknownType-wrapping error.
func (c Catalog) Get(t Type) (Descriptor, error) {
	d, ok := c.Lookup(t)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return d, nil
}

// Types returns registered types in registration order.
func (c Catalog) Types() []Type {
	out := make([]Type, len(c.order))
	copy(out, c.order)
	return out
}

// All returns all descriptors in registration order.
func (c Catalog) All() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.byType[t.String()])
	}
	return out
}
