package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/record"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordStore implements record.Store. Canonical tables are addressed by
// name from the descriptor, so one store serves every entity type.
type RecordStore struct {
	db        database.Database
	catalog   entity.Catalog
	retention record.Retention
	now       func() time.Time
}

// RecordStoreOption configures a RecordStore.
type RecordStoreOption func(*RecordStore)

// WithRetention sets the custom value retention policy.
func WithRetention(r record.Retention) RecordStoreOption {
	return func(s *RecordStore) { s.retention = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RecordStoreOption {
	return func(s *RecordStore) { s.now = now }
}

// NewRecordStore creates a new RecordStore. The catalog resolves scope
// parents.
func NewRecordStore(db database.Database, catalog entity.Catalog, opts ...RecordStoreOption) RecordStore {
	s := RecordStore{
		db:        db,
		catalog:   catalog,
		retention: record.RetentionLatest,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s RecordStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Persist upserts a batch keyed by (remote_id, connection) in one
// transaction.
func (s RecordStore) Persist(ctx context.Context, req record.PersistRequest) ([]entity.Record, error) {
	desc := req.Descriptor
	if len(req.Records) == 0 {
		return []entity.Record{}, nil
	}

	return database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) ([]entity.Record, error) {
		stored := make([]entity.Record, 0, len(req.Records))
		for i, rec := range req.Records {
			if rec.RemoteID() == "" {
				return nil, fmt.Errorf("%w: %s record at index %d", entity.ErrMissingRemoteID, desc.Type, i)
			}

			saved, err := s.upsert(tx, desc, req.Connection.ID(), rec)
			if err != nil {
				return nil, err
			}

			bag := rec.FieldMappings()
			if len(bag) > 0 {
				if err := s.writeValues(tx, saved.ID(), req.Connection, bag); err != nil {
					return nil, err
				}
			}

			if err := s.writeRemoteData(tx, saved.ID(), rec.Raw()); err != nil {
				return nil, err
			}

			if err := s.linkScope(tx, desc, req.ScopeID, saved.ID()); err != nil {
				return nil, err
			}

			stored = append(stored, saved.WithFieldMappings(bag).WithRaw(rec.Raw()))
		}
		return stored, nil
	})
}

func (s RecordStore) upsert(tx *gorm.DB, desc entity.Descriptor, connectionID string, rec entity.Record) (entity.Record, error) {
	now := s.timestamp()
	columns := presentColumns(desc, rec.Fields())
	if err := s.resolveReferences(tx, desc, connectionID, columns); err != nil {
		return entity.Record{}, err
	}

	var existing map[string]any
	err := tx.Table(desc.Table).
		Where("remote_id = ? AND id_connection = ?", rec.RemoteID(), connectionID).
		Take(&existing).Error

	var id string
	switch {
	case err == nil:
		id = asString(existing[desc.IDColumn])
		columns["modified_at"] = now
		err = tx.Table(desc.Table).
			Where(fmt.Sprintf("%s = ?", desc.IDColumn), id).
			Updates(columns).Error
		if err != nil {
			return entity.Record{}, fmt.Errorf("update %s %s: %w", desc.Table, id, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		id = uuid.NewString()
		columns[desc.IDColumn] = id
		columns["remote_id"] = rec.RemoteID()
		columns["id_connection"] = connectionID
		columns["created_at"] = now
		columns["modified_at"] = now
		if err := tx.Table(desc.Table).Create(columns).Error; err != nil {
			return entity.Record{}, fmt.Errorf("insert %s: %w", desc.Table, err)
		}
	default:
		return entity.Record{}, fmt.Errorf("find %s by remote id: %w", desc.Table, err)
	}

	return s.load(tx, desc, id)
}

// presentColumns maps present canonical fields to their columns. A field is
// present when it has a non-nil value that is not the empty string.
func presentColumns(desc entity.Descriptor, fields map[string]any) map[string]any {
	columns := make(map[string]any, len(fields)+5)
	for _, spec := range desc.Fields {
		v, ok := fields[spec.Name]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		if t, isTime := v.(time.Time); isTime {
			v = t.UTC()
		}
		columns[spec.Column] = v
	}
	return columns
}

// resolveReferences replaces the provider ids held by reference columns
// with the canonical ids of the referenced records of the same connection.
// A reference that does not resolve is left unset.
func (s RecordStore) resolveReferences(tx *gorm.DB, desc entity.Descriptor, connectionID string, columns map[string]any) error {
	for _, f := range desc.Fields {
		if f.Ref == nil {
			continue
		}
		v, ok := columns[f.Column]
		if !ok {
			continue
		}
		target, err := s.catalog.Get(*f.Ref)
		if err != nil {
			return err
		}

		var ids []string
		err = tx.Table(target.Table).
			Where("remote_id = ? AND id_connection = ?", asString(v), connectionID).
			Limit(1).
			Pluck(target.IDColumn, &ids).Error
		if err != nil {
			return fmt.Errorf("resolve %s reference: %w", f.Name, err)
		}
		if len(ids) == 0 {
			delete(columns, f.Column)
			continue
		}
		columns[f.Column] = ids[0]
	}
	return nil
}

func (s RecordStore) writeValues(tx *gorm.DB, recordID string, conn tenant.Connection, bag map[string]any) error {
	now := s.timestamp()

	if s.retention == record.RetentionLatest {
		var previous []string
		if err := tx.Model(&EntityModel{}).Where("ressource_owner_id = ?", recordID).Pluck("id_entity", &previous).Error; err != nil {
			return fmt.Errorf("find previous value sets: %w", err)
		}
		if len(previous) > 0 {
			if err := tx.Where("id_entity IN ?", previous).Delete(&ValueModel{}).Error; err != nil {
				return fmt.Errorf("delete previous values: %w", err)
			}
			if err := tx.Where("id_entity IN ?", previous).Delete(&EntityModel{}).Error; err != nil {
				return fmt.Errorf("delete previous value sets: %w", err)
			}
		}
	}

	set := EntityModel{ID: uuid.NewString(), OwnerID: recordID, CreatedAt: now}
	if err := tx.Create(&set).Error; err != nil {
		return fmt.Errorf("create value set: %w", err)
	}

	for _, slug := range slices.Sorted(maps.Keys(bag)) {
		var attr AttributeModel
		err := tx.Where("slug = ? AND source = ? AND id_consumer = ?", slug, conn.Provider(), conn.LinkedAccountID()).
			Order("created_at ASC").
			Take(&attr).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("resolve attribute %s: %w", slug, err)
		}

		value := ValueModel{
			ID:          uuid.NewString(),
			Data:        stringify(bag[slug]),
			EntityID:    set.ID,
			AttributeID: attr.ID,
			CreatedAt:   now,
		}
		if err := tx.Create(&value).Error; err != nil {
			return fmt.Errorf("create value for %s: %w", slug, err)
		}
	}
	return nil
}

func (s RecordStore) writeRemoteData(tx *gorm.DB, recordID string, raw entity.Raw) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode remote data: %w", err)
	}
	model := RemoteDataModel{
		ID:        uuid.NewString(),
		OwnerID:   recordID,
		Format:    "json",
		Data:      string(data),
		CreatedAt: s.timestamp(),
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ressource_owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"format", "data", "created_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert remote data: %w", err)
	}
	return nil
}

// linkScope points the scope parent row at the record just stored.
func (s RecordStore) linkScope(tx *gorm.DB, desc entity.Descriptor, scopeID, recordID string) error {
	if desc.Scope == nil || scopeID == "" {
		return nil
	}
	parent, err := s.catalog.Get(desc.Scope.Parent)
	if err != nil {
		return err
	}
	link, ok := parent.Field(desc.Scope.LinkField)
	if !ok {
		return fmt.Errorf("%s has no field %s", parent.Type, desc.Scope.LinkField)
	}
	err = tx.Table(parent.Table).
		Where(fmt.Sprintf("%s = ?", parent.IDColumn), scopeID).
		Update(link.Column, recordID).Error
	if err != nil {
		return fmt.Errorf("link %s %s: %w", parent.Table, scopeID, err)
	}
	return nil
}

// Get returns one record by canonical id.
func (s RecordStore) Get(ctx context.Context, desc entity.Descriptor, id string) (entity.Record, error) {
	return s.load(s.db.Session(ctx), desc, id)
}

func (s RecordStore) load(tx *gorm.DB, desc entity.Descriptor, id string) (entity.Record, error) {
	var row map[string]any
	err := tx.Table(desc.Table).Where(fmt.Sprintf("%s = ?", desc.IDColumn), id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Record{}, fmt.Errorf("%w: %s %s", entity.ErrNotFound, desc.Type, id)
	}
	if err != nil {
		return entity.Record{}, fmt.Errorf("get %s: %w", desc.Table, err)
	}
	return toRecord(desc, row), nil
}

// List returns records ordered by (created_at, id) unless the options order
// otherwise. A cursor set with record.WithCursor is honoured.
func (s RecordStore) List(ctx context.Context, desc entity.Descriptor, options ...store.Option) ([]entity.Record, error) {
	q := store.Build(options...)
	db := s.db.Session(ctx).Table(desc.Table)
	if at, id, ok := record.CursorFrom(q); ok {
		db = db.Where(
			fmt.Sprintf("(created_at > ? OR (created_at = ? AND %s > ?))", desc.IDColumn),
			at.UTC(), at.UTC(), id,
		)
	}
	if len(q.Orders()) == 0 {
		options = append(options, store.WithOrderAsc("created_at"), store.WithOrderAsc(desc.IDColumn))
	}
	db = database.ApplyOptions(db, options...)

	var rows []map[string]any
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", desc.Table, err)
	}
	records := make([]entity.Record, len(rows))
	for i, row := range rows {
		records[i] = toRecord(desc, row)
	}
	return records, nil
}

// Exists reports whether a record with the canonical id exists.
func (s RecordStore) Exists(ctx context.Context, desc entity.Descriptor, id string) (bool, error) {
	var count int64
	err := s.db.Session(ctx).Table(desc.Table).
		Where(fmt.Sprintf("%s = ?", desc.IDColumn), id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", desc.Table, err)
	}
	return count > 0, nil
}

// FieldMappings returns slug to data for the record's most recent value set.
func (s RecordStore) FieldMappings(ctx context.Context, recordID string) (map[string]any, error) {
	db := s.db.Session(ctx)

	var set EntityModel
	err := db.Where("ressource_owner_id = ?", recordID).
		Order("created_at DESC").
		Take(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find value set: %w", err)
	}

	var rows []struct {
		Slug string
		Data string
	}
	err = db.Table("value").
		Select("attribute.slug AS slug, value.data AS data").
		Joins("JOIN attribute ON attribute.id_attribute = value.id_attribute").
		Where("value.id_entity = ?", set.ID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}

	out := make(map[string]any, len(rows))
	for _, r := range rows {
		out[r.Slug] = r.Data
	}
	return out, nil
}

// RemoteData returns the cached raw payload of a record.
func (s RecordStore) RemoteData(ctx context.Context, recordID string) (entity.Raw, error) {
	var model RemoteDataModel
	err := s.db.Session(ctx).Where("ressource_owner_id = ?", recordID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: remote data for %s", entity.ErrNotFound, recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("get remote data: %w", err)
	}
	var raw entity.Raw
	if err := json.Unmarshal([]byte(model.Data), &raw); err != nil {
		return nil, fmt.Errorf("decode remote data: %w", err)
	}
	return raw, nil
}

func toRecord(desc entity.Descriptor, row map[string]any) entity.Record {
	fields := make(map[string]any, len(desc.Fields))
	for _, spec := range desc.Fields {
		v, ok := row[spec.Column]
		if !ok || v == nil {
			continue
		}
		if normalized, ok := normalize(spec.Kind, v); ok {
			fields[spec.Name] = normalized
		}
	}
	createdAt, _ := normalize(entity.KindTime, row["created_at"])
	modifiedAt, _ := normalize(entity.KindTime, row["modified_at"])
	created, _ := createdAt.(time.Time)
	modified, _ := modifiedAt.(time.Time)
	return entity.NewRecordWithID(
		asString(row[desc.IDColumn]),
		asString(row["remote_id"]),
		asString(row["id_connection"]),
		fields,
		created, modified,
	)
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// normalize converts a driver value to the Go type of kind. SQLite and
// PostgreSQL drivers disagree on text, bool and time representations.
func normalize(kind entity.Kind, v any) (any, bool) {
	switch kind {
	case entity.KindNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		default:
			f, err := strconv.ParseFloat(asString(v), 64)
			return f, err == nil
		}
	case entity.KindBool:
		switch b := v.(type) {
		case bool:
			return b, true
		case int64:
			return b != 0, true
		default:
			parsed, err := strconv.ParseBool(asString(v))
			return parsed, err == nil
		}
	case entity.KindTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), true
		case nil:
			return time.Time{}, false
		default:
			s := strings.TrimSpace(asString(v))
			for _, layout := range storedTimeLayouts {
				if parsed, err := time.Parse(layout, s); err == nil {
					return parsed.UTC(), true
				}
			}
			return time.Time{}, false
		}
	default:
		return asString(v), true
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// stringify renders a custom field value for the value table: "null" for
// nil, strings as-is and JSON for everything else.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
