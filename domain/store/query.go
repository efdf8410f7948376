// Package store provides the query option builder shared by every persistence
// port in syncd.
package store

import "fmt"

// Option applies a modification to a Query.
type Option func(Query) Query

// Query holds conditions, ordering, and pagination for store lookups.
type Query struct {
	conditions []Condition
	orders     []Order
	limit      int
	offset     int
	params     map[string]any
}

// Build creates a Query from a set of options.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the query conditions.
func (q Query) Conditions() []Condition {
	result := make([]Condition, len(q.conditions))
	copy(result, q.conditions)
	return result
}

// Orders returns the query ordering specifications.
func (q Query) Orders() []Order {
	result := make([]Order, len(q.orders))
	copy(result, q.orders)
	return result
}

// LimitValue returns the limit (0 means no limit).
func (q Query) LimitValue() int { return q.limit }

// OffsetValue returns the offset.
func (q Query) OffsetValue() int { return q.offset }

// Param retrieves a parameter by key.
func (q Query) Param(key string) (any, bool) {
	if q.params == nil {
		return nil, false
	}
	v, ok := q.params[key]
	return v, ok
}

// Condition is a single equality, IN, or comparison predicate.
type Condition struct {
	field string
	op    string
	value any
}

// Field returns the condition column.
func (c Condition) Field() string { return c.field }

// Operator returns the SQL operator ("=", "IN", ">"...).
func (c Condition) Operator() string { return c.op }

// Value returns the condition value.
func (c Condition) Value() any { return c.value }

// In reports whether the condition is an IN predicate.
func (c Condition) In() bool { return c.op == "IN" }

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.field, c.op, c.value)
}

// Order represents a sort specification.
type Order struct {
	field     string
	ascending bool
}

// Field returns the order column.
func (o Order) Field() string { return o.field }

// Ascending returns true for ASC, false for DESC.
func (o Order) Ascending() bool { return o.ascending }

// WithCondition adds a field = value condition.
func WithCondition(field string, value any) Option {
	return WithComparison(field, "=", value)
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return WithComparison(field, "IN", values)
}

// WithComparison adds a field <op> value condition. Only operators known to
// the database adapter are honoured.
func WithComparison(field, op string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, op: op, value: value})
		return q
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset sets the result offset.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithOrderAsc adds ascending ordering on a field.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc adds descending ordering on a field.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: false})
		return q
	}
}

// WithParam stores an arbitrary key-value pair on the query.
func WithParam(key string, value any) Option {
	return func(q Query) Query {
		if q.params == nil {
			q.params = make(map[string]any)
		}
		q.params[key] = value
		return q
	}
}
