package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/mapping"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/record"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/domain/unification"
)

// List page sizes.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// RecordView is the outward shape of a canonical record.
type RecordView struct {
	ID            string         `json:"id"`
	RemoteID      string         `json:"remote_id"`
	ConnectionID  string         `json:"id_connection"`
	Fields        map[string]any `json:"fields"`
	FieldMappings map[string]any `json:"field_mappings,omitempty"`
	RemoteData    entity.Raw     `json:"remote_data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ModifiedAt    time.Time      `json:"modified_at"`
}

// NewRecordView converts a record.
func NewRecordView(rec entity.Record) RecordView {
	mappings := rec.FieldMappings()
	if len(mappings) == 0 {
		mappings = nil
	}
	return RecordView{
		ID:            rec.ID(),
		RemoteID:      rec.RemoteID(),
		ConnectionID:  rec.ConnectionID(),
		Fields:        rec.Fields(),
		FieldMappings: mappings,
		CreatedAt:     rec.CreatedAt(),
		ModifiedAt:    rec.ModifiedAt(),
	}
}

// NewRecordViews converts records.
func NewRecordViews(records []entity.Record) []RecordView {
	out := make([]RecordView, len(records))
	for i, r := range records {
		out[i] = NewRecordView(r)
	}
	return out
}

// ListParams configures Records.List.
type ListParams struct {
	ConnectionID string
	Limit        int
	// Cursor is the NextCursor of the previous page.
	Cursor     string
	RemoteData bool
}

// Page is one page of records.
type Page struct {
	Records    []RecordView `json:"data"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// PushInput is a record to create upstream.
type PushInput struct {
	EntityType      entity.Type
	LinkedAccountID string
	Provider        string
	Record          entity.Record
}

// Records reads canonical records and pushes new ones to providers.
type Records struct {
	catalog     entity.Catalog
	records     record.Store
	connections tenant.ConnectionStore
	mappings    mapping.Store
	adapters    *provider.Registry
	engine      *unification.Engine
	notifier    *Notifier
	locks       *KeyLock
	logger      *slog.Logger
}

// NewRecords creates a Records service. locks should be shared with Sync.
func NewRecords(
	catalog entity.Catalog,
	records record.Store,
	connections tenant.ConnectionStore,
	mappings mapping.Store,
	adapters *provider.Registry,
	engine *unification.Engine,
	notifier *Notifier,
	locks *KeyLock,
	logger *slog.Logger,
) *Records {
	if locks == nil {
		locks = NewKeyLock()
	}
	return &Records{
		catalog:     catalog,
		records:     records,
		connections: connections,
		mappings:    mappings,
		adapters:    adapters,
		engine:      engine,
		notifier:    notifier,
		locks:       locks,
		logger:      logger,
	}
}

// Get returns one record with its field mappings, and its cached provider
// payload when withRemoteData is set.
func (s *Records) Get(ctx context.Context, t entity.Type, id string, withRemoteData bool) (RecordView, error) {
	desc, err := s.catalog.Get(t)
	if err != nil {
		return RecordView{}, err
	}
	rec, err := s.records.Get(ctx, desc, id)
	if err != nil {
		return RecordView{}, err
	}
	return s.view(ctx, rec, withRemoteData)
}

// List returns records ordered by creation time.
func (s *Records) List(ctx context.Context, t entity.Type, params ListParams) (Page, error) {
	desc, err := s.catalog.Get(t)
	if err != nil {
		return Page{}, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	options := []store.Option{store.WithLimit(limit + 1)}
	if params.ConnectionID != "" {
		options = append(options, store.WithConnectionID(params.ConnectionID))
	}
	if params.Cursor != "" {
		after, err := s.cursor(ctx, desc, params.Cursor)
		if err != nil {
			return Page{}, err
		}
		options = append(options, record.WithCursor(after.CreatedAt(), after.ID()))
	}

	recs, err := s.records.List(ctx, desc, options...)
	if err != nil {
		return Page{}, err
	}

	page := Page{Records: make([]RecordView, 0, min(len(recs), limit))}
	if len(recs) > limit {
		recs = recs[:limit]
		page.NextCursor = base64.StdEncoding.EncodeToString([]byte(recs[limit-1].ID()))
	}
	for _, rec := range recs {
		v, err := s.view(ctx, rec, params.RemoteData)
		if err != nil {
			return Page{}, err
		}
		page.Records = append(page.Records, v)
	}
	return page, nil
}

// cursor decodes a cursor into the record it points after.
func (s *Records) cursor(ctx context.Context, desc entity.Descriptor, cursor string) (entity.Record, error) {
	id, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return entity.Record{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	rec, err := s.records.Get(ctx, desc, string(id))
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Record{}, fmt.Errorf("%w: unknown record", ErrInvalidCursor)
	}
	return rec, err
}

func (s *Records) view(ctx context.Context, rec entity.Record, withRemoteData bool) (RecordView, error) {
	bag, err := s.records.FieldMappings(ctx, rec.ID())
	if err != nil {
		return RecordView{}, err
	}
	v := NewRecordView(rec.WithFieldMappings(bag))

	if withRemoteData {
		raw, err := s.records.RemoteData(ctx, rec.ID())
		switch {
		case errors.Is(err, entity.ErrNotFound):
		case err != nil:
			return RecordView{}, err
		default:
			v.RemoteData = raw
		}
	}
	return v, nil
}

// Push creates a record at the provider, then persists the provider's
// version of it and notifies about it.
func (s *Records) Push(ctx context.Context, in PushInput) (RecordView, error) {
	desc, err := s.catalog.Get(in.EntityType)
	if err != nil {
		return RecordView{}, err
	}
	t := desc.Type

	conn, err := s.connections.Find(ctx, in.LinkedAccountID, in.Provider, t.Vertical())
	if err != nil {
		return RecordView{}, err
	}

	outgoing, err := s.remoteReferences(ctx, desc, conn, in.Record)
	if err != nil {
		return RecordView{}, err
	}

	pusher, ok := s.pusher(in.Provider, t)
	if !ok {
		return RecordView{}, fmt.Errorf("%w: push %s/%s", provider.ErrMissingCapability, in.Provider, t)
	}

	mappings, err := s.mappings.Resolve(ctx, in.Provider, in.LinkedAccountID, t)
	if err != nil {
		return RecordView{}, fmt.Errorf("resolve field mappings: %w", err)
	}

	payload, err := s.engine.Desunify(outgoing, in.Provider, t, mappings...)
	if err != nil {
		return RecordView{}, err
	}

	resp, err := pusher.Push(ctx, provider.PushRequest{
		EntityType:       t,
		LinkedAccountID:  in.LinkedAccountID,
		Payload:          payload,
		RemoteProperties: mapping.RemoteProperties(mappings),
	})
	if err != nil || !accepted(resp.StatusCode) {
		s.recordPush(ctx, t, conn, nil, resp.StatusCode)
		if err == nil {
			err = fmt.Errorf("%w: status %d", ErrPushRejected, resp.StatusCode)
		}
		return RecordView{}, fmt.Errorf("push %s to %s: %w", t, in.Provider, err)
	}

	result, err := s.engine.Unify([]entity.Raw{resp.Data}, in.Provider, t, mappings)
	if err != nil {
		return RecordView{}, err
	}
	if len(result.Records) == 0 {
		if len(result.Warnings) > 0 {
			return RecordView{}, result.Warnings[0]
		}
		return RecordView{}, fmt.Errorf("push %s to %s: empty response", t, in.Provider)
	}

	unlock := s.locks.Lock(conn.ID())
	stored, err := s.records.Persist(ctx, record.PersistRequest{
		Connection: conn,
		Descriptor: desc,
		Records:    result.Records[:1],
	})
	unlock()
	if err != nil {
		return RecordView{}, fmt.Errorf("persist: %w", err)
	}

	s.recordPush(ctx, t, conn, stored, resp.StatusCode)
	return s.view(ctx, stored[0], false)
}

func (s *Records) pusher(providerName string, t entity.Type) (provider.Pusher, bool) {
	adapter, ok := s.adapters.Capability(providerName, t)
	if !ok {
		return nil, false
	}
	pusher, ok := adapter.(provider.Pusher)
	return pusher, ok
}

// remoteReferences checks that every referenced canonical id exists under
// conn and returns rec with those ids replaced by the provider's ids.
func (s *Records) remoteReferences(ctx context.Context, desc entity.Descriptor, conn tenant.Connection, rec entity.Record) (entity.Record, error) {
	fields := rec.Fields()
	for _, f := range desc.Fields {
		if f.Ref == nil {
			continue
		}
		v, ok := fields[f.Name]
		if !ok || v == nil {
			continue
		}
		id, ok := v.(string)
		if !ok {
			return entity.Record{}, fmt.Errorf("%w: %s must be an id, got %T", entity.ErrInvalidReference, f.Name, v)
		}
		if id == "" {
			continue
		}
		target, err := s.catalog.Get(*f.Ref)
		if err != nil {
			return entity.Record{}, err
		}
		ref, err := s.records.Get(ctx, target, id)
		if errors.Is(err, entity.ErrNotFound) {
			return entity.Record{}, fmt.Errorf("%w: %s %q does not exist", entity.ErrInvalidReference, f.Name, id)
		}
		if err != nil {
			return entity.Record{}, err
		}
		if ref.ConnectionID() != conn.ID() {
			return entity.Record{}, fmt.Errorf("%w: %s %q belongs to another connection", entity.ErrInvalidReference, f.Name, id)
		}
		fields[f.Name] = ref.RemoteID()
	}
	return rec.WithFields(fields), nil
}

func (s *Records) recordPush(ctx context.Context, t entity.Type, conn tenant.Connection, stored []entity.Record, statusCode int) {
	if _, err := s.notifier.RecordPush(ctx, t, conn, stored, statusCode); err != nil {
		s.logger.ErrorContext(ctx, "failed to record push event",
			slog.String("entity_type", t.String()),
			slog.String("error", err.Error()),
		)
	}
}
