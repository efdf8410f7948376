package unification

import (
	"fmt"
	"sync"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/mapping"
)

// Result is the output of Unify.
type Result struct {
	Records  []entity.Record
	Warnings []TransformWarning
}

// Engine holds rule sets keyed by (provider, entity type).
type Engine struct {
	rules map[string]RuleSet
	mu    sync.RWMutex
}

// NewEngine creates an Engine from rule sets.
func NewEngine(sets ...RuleSet) (*Engine, error) {
	e := &Engine{rules: make(map[string]RuleSet, len(sets))}
	for _, rs := range sets {
		if err := e.Register(rs); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func ruleKey(provider string, t entity.Type) string {
	return provider + "/" + t.String()
}

// Register validates and adds a rule set, replacing any previous one for the
// same (provider, entity type).
func (e *Engine) Register(rs RuleSet) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[ruleKey(rs.Provider, rs.EntityType)] = rs
	return nil
}

// RuleSet returns the rule set for (provider, entity type).
func (e *Engine) RuleSet(provider string, t entity.Type) (RuleSet, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rs, ok := e.rules[ruleKey(provider, t)]
	return rs, ok
}

// Len returns the number of registered rule sets.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Supports reports whether a rule set exists for (provider, entity type).
func (e *Engine) Supports(provider string, t entity.Type) bool {
	_, ok := e.RuleSet(provider, t)
	return ok
}

// Unify maps raw provider records to canonical records.
//
// Records missing a required path or holding a value that cannot be converted
// are dropped and reported in Result.Warnings. A record whose remote id is
// absent is kept with an empty remote id; persistence rejects it.
func (e *Engine) Unify(raws []entity.Raw, provider string, t entity.Type, mappings []mapping.FieldMapping) (Result, error) {
	rs, ok := e.RuleSet(provider, t)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNoRuleSet, provider, t)
	}

	result := Result{Records: make([]entity.Record, 0, len(raws))}
	for i, raw := range raws {
		rec, warn, ok := unifyOne(rs, i, raw, mappings)
		if !ok {
			result.Warnings = append(result.Warnings, warn)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func unifyOne(rs RuleSet, index int, raw entity.Raw, mappings []mapping.FieldMapping) (entity.Record, TransformWarning, bool) {
	idValue, _ := lookup(raw, rs.RemoteIDPath)
	remoteID := remoteIDString(idValue)

	fields := make(map[string]any, len(rs.Fields))
	for _, rule := range rs.Fields {
		v, found := lookup(raw, rule.Path)
		if !found || v == nil {
			if rule.Required {
				return entity.Record{}, TransformWarning{
					Index: index, RemoteID: remoteID, Field: rule.Field,
					Reason: "required path " + rule.Path + " is missing",
				}, false
			}
			continue
		}
		converted, err := convert(rule, v)
		if err != nil {
			return entity.Record{}, TransformWarning{
				Index: index, RemoteID: remoteID, Field: rule.Field, Reason: err.Error(),
			}, false
		}
		if len(rule.Values) > 0 {
			if s, ok := converted.(string); ok {
				if canonical, mapped := rule.Values[s]; mapped {
					converted = canonical
				}
			}
		}
		fields[rule.Field] = converted
	}

	bag := make(map[string]any, len(mappings))
	for _, m := range mappings {
		if v, found := lookup(raw, m.RemoteProperty()); found {
			bag[m.Slug()] = v
		}
	}

	return entity.NewRecord(remoteID, fields, bag, raw), TransformWarning{}, true
}

// Desunify converts a canonical record into the provider payload shape.
// Read-only rules and absent fields are skipped. Field-mapping values are
// written back to their remote properties when mappings are given.
func (e *Engine) Desunify(rec entity.Record, provider string, t entity.Type, mappings ...mapping.FieldMapping) (entity.Raw, error) {
	rs, ok := e.RuleSet(provider, t)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoRuleSet, provider, t)
	}

	out := entity.Raw{}
	if rec.RemoteID() != "" {
		assign(out, rs.RemoteIDPath, rec.RemoteID())
	}
	for _, rule := range rs.Fields {
		if rule.ReadOnly {
			continue
		}
		v, present := rec.Field(rule.Field)
		if !present {
			continue
		}
		assign(out, rule.Path, outward(rule, v))
	}

	bag := rec.FieldMappings()
	for _, m := range mappings {
		if v, present := bag[m.Slug()]; present {
			assign(out, m.RemoteProperty(), v)
		}
	}
	return out, nil
}
