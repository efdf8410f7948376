// Package provider defines the contract between the pipeline and third-party
// API adapters.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/unifiedsync/syncd/domain/entity"
)

// ErrMissingCapability indicates no adapter can serve an entity type for a
// provider. It is a normal skip.
var ErrMissingCapability = errors.New("provider has no capability for entity type")

// FetchRequest asks an adapter for all records of one entity type.
type FetchRequest struct {
	EntityType      entity.Type
	LinkedAccountID string
	// ScopeID is the canonical id of the parent row for scoped types.
	ScopeID string
	// ScopeRemoteID is the provider id of the same parent row.
	ScopeRemoteID string
	// RemoteProperties lists extra provider properties the caller wants
	// returned so custom field mappings can be filled.
	RemoteProperties []string
}

// FetchResponse carries raw provider records.
type FetchResponse struct {
	Data       []entity.Raw
	StatusCode int
}

// PushRequest asks an adapter to create one record upstream.
type PushRequest struct {
	EntityType       entity.Type
	LinkedAccountID  string
	Payload          entity.Raw
	RemoteProperties []string
}

// PushResponse carries the created provider record.
type PushResponse struct {
	Data       entity.Raw
	StatusCode int
}

// Adapter reads records from one provider.
type Adapter interface {
	Provider() string
	Supports(t entity.Type) bool
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// Pusher is implemented by adapters that can create records upstream.
type Pusher interface {
	Push(ctx context.Context, req PushRequest) (PushResponse, error)
}

// FetchError wraps an adapter failure with its provider and entity type.
type FetchError struct {
	Provider   string
	EntityType entity.Type
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.EntityType, e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Registry maps provider slugs to adapters. It is safe for concurrent use.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a Registry holding adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its provider.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Lookup returns the adapter for provider.
func (r *Registry) Lookup(provider string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[provider]
	return a, ok
}

// Capability returns the adapter for provider if it supports t.
func (r *Registry) Capability(provider string, t entity.Type) (Adapter, bool) {
	a, ok := r.Lookup(provider)
	if !ok || !a.Supports(t) {
		return nil, false
	}
	return a, true
}

// Providers returns the registered provider slugs, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
