package entity

import (
	"maps"
	"time"
)

// Raw is a provider payload exactly as the adapter returned it.
type Raw map[string]any

// Clone returns a deep copy of the payload.
func (r Raw) Clone() Raw {
	if r == nil {
		return nil
	}
	return Raw(cloneValue(map[string]any(r)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Raw:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// Record is a canonical record of some entity type.
//
// Fields holds the typed core fields by canonical name. When merging into an
// existing row only present fields overwrite: a field is present when it is
// in the map with a non-nil value that is not the empty string.
type Record struct {
	id            string
	remoteID      string
	connectionID  string
	fields        map[string]any
	fieldMappings map[string]any
	raw           Raw
	createdAt     time.Time
	modifiedAt    time.Time
}

// NewRecord creates an unsaved Record.
func NewRecord(remoteID string, fields map[string]any, fieldMappings map[string]any, raw Raw) Record {
	return Record{
		remoteID:      remoteID,
		fields:        copyMap(fields),
		fieldMappings: copyMap(fieldMappings),
		raw:           raw.Clone(),
	}
}

// NewRecordWithID reconstructs a persisted Record.
func NewRecordWithID(
	id, remoteID, connectionID string,
	fields map[string]any,
	createdAt, modifiedAt time.Time,
) Record {
	return Record{
		id:           id,
		remoteID:     remoteID,
		connectionID: connectionID,
		fields:       copyMap(fields),
		createdAt:    createdAt,
		modifiedAt:   modifiedAt,
	}
}

// ID returns the canonical id (empty until persisted).
func (r Record) ID() string { return r.id }

// RemoteID returns the provider id.
func (r Record) RemoteID() string { return r.remoteID }

// ConnectionID returns the owning connection id.
func (r Record) ConnectionID() string { return r.connectionID }

// Fields returns a copy of the core fields.
func (r Record) Fields() map[string]any { return copyMap(r.fields) }

// Field returns one core field and whether it is present.
func (r Record) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// FieldMappings returns a copy of the slug -> value bag.
func (r Record) FieldMappings() map[string]any { return copyMap(r.fieldMappings) }

// Raw returns a copy of the provider payload the record was unified from.
func (r Record) Raw() Raw { return r.raw.Clone() }

// CreatedAt returns when the canonical row was first inserted.
func (r Record) CreatedAt() time.Time { return r.createdAt }

// ModifiedAt returns when the canonical row was last written.
func (r Record) ModifiedAt() time.Time { return r.modifiedAt }

// WithID returns a copy with the canonical id set.
func (r Record) WithID(id string) Record {
	r.id = id
	return r
}

// WithRemoteID returns a copy with the provider id set.
func (r Record) WithRemoteID(id string) Record {
	r.remoteID = id
	return r
}

// WithConnectionID returns a copy with the connection id set.
func (r Record) WithConnectionID(id string) Record {
	r.connectionID = id
	return r
}

// WithFields returns a copy with the core fields replaced.
func (r Record) WithFields(fields map[string]any) Record {
	r.fields = copyMap(fields)
	return r
}

// WithFieldMappings returns a copy with the slug -> value bag replaced.
func (r Record) WithFieldMappings(m map[string]any) Record {
	r.fieldMappings = copyMap(m)
	return r
}

// WithRaw returns a copy with the raw payload replaced.
func (r Record) WithRaw(raw Raw) Record {
	r.raw = raw.Clone()
	return r
}

// WithTimestamps returns a copy with the timestamps set.
func (r Record) WithTimestamps(createdAt, modifiedAt time.Time) Record {
	r.createdAt = createdAt
	r.modifiedAt = modifiedAt
	return r
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
