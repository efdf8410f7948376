// Package unification converts provider payloads to canonical records and
// back, driven by declarative rule sets.
package unification

import (
	"errors"
	"fmt"

	"github.com/unifiedsync/syncd/domain/entity"
)

var (
	// ErrNoRuleSet indicates no rule set exists for (provider, entity type).
	ErrNoRuleSet = errors.New("no transform rule set")

	// ErrInvalidRuleSet indicates a rule set failed validation.
	ErrInvalidRuleSet = errors.New("invalid transform rule set")

	// ErrTransform marks a record that could not be mapped.
	ErrTransform = errors.New("transform failed")
)

// Kind is the canonical value kind a rule converts to.
type Kind string

// Kind values.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	KindAny    Kind = "any"
)

// DefaultTimeLayout is used to format times when a rule sets no layout.
const DefaultTimeLayout = "2006-01-02T15:04:05Z07:00"

// FieldRule maps one provider path onto one canonical field.
type FieldRule struct {
	Field string
	// Path is a dotted path into the provider payload ("owner.email",
	// "emails.0.value").
	Path string
	Kind Kind
	// Layout is the time layout for KindTime. Parsing also accepts RFC 3339
	// and plain dates when Layout is empty.
	Layout   string
	Required bool
	// Values maps provider enum values to canonical ones.
	Values map[string]string
	// ReadOnly fields are never written back to the provider.
	ReadOnly bool
}

// RuleSet is the transform for one (provider, entity type).
type RuleSet struct {
	Provider   string
	EntityType entity.Type
	// RemoteIDPath locates the provider id in the payload.
	RemoteIDPath string
	Fields       []FieldRule
}

// Validate checks the rule set is usable.
func (rs RuleSet) Validate() error {
	if rs.Provider == "" {
		return fmt.Errorf("%w: provider is empty", ErrInvalidRuleSet)
	}
	if rs.EntityType.IsZero() {
		return fmt.Errorf("%w: %s: entity type is empty", ErrInvalidRuleSet, rs.Provider)
	}
	if rs.RemoteIDPath == "" {
		return fmt.Errorf("%w: %s/%s: remote_id path is empty", ErrInvalidRuleSet, rs.Provider, rs.EntityType)
	}
	seen := make(map[string]struct{}, len(rs.Fields))
	for _, f := range rs.Fields {
		if f.Field == "" || f.Path == "" {
			return fmt.Errorf("%w: %s/%s: field and path are required", ErrInvalidRuleSet, rs.Provider, rs.EntityType)
		}
		if _, dup := seen[f.Field]; dup {
			return fmt.Errorf("%w: %s/%s: duplicate field %q", ErrInvalidRuleSet, rs.Provider, rs.EntityType, f.Field)
		}
		seen[f.Field] = struct{}{}
		switch f.Kind {
		case "", KindString, KindNumber, KindBool, KindTime, KindAny:
		default:
			return fmt.Errorf("%w: %s/%s: field %q has unknown kind %q", ErrInvalidRuleSet, rs.Provider, rs.EntityType, f.Field, f.Kind)
		}
	}
	return nil
}

// TransformWarning records a raw record that was dropped.
type TransformWarning struct {
	Index    int
	RemoteID string
	Field    string
	Reason   string
}

func (w TransformWarning) Error() string {
	return fmt.Sprintf("%s: record %d (remote_id %q) field %q: %s", ErrTransform, w.Index, w.RemoteID, w.Field, w.Reason)
}

func (w TransformWarning) Unwrap() error { return ErrTransform }
