package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/unifiedsync/syncd/domain/store"
	"gorm.io/gorm"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = errors.New("entity not found")

// EntityMapper defines the interface for mapping between domain and database model types.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Preparer is implemented by models that fill generated columns, such as
// a UUID key, before they are written.
type Preparer interface {
	Prepare()
}

// Repository provides generic persistence operations for database entities
// using store.Option-based queries.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a new Repository.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{
		db:     db,
		mapper: mapper,
		label:  label,
	}
}

func (r Repository[D, E]) modelDB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx).Model(new(E))
}

// Save inserts or updates the entity and returns it as stored.
func (r Repository[D, E]) Save(ctx context.Context, d D) (D, error) {
	return r.write(ctx, d, "save", (*gorm.DB).Save)
}

// Create inserts the entity and returns it as stored.
func (r Repository[D, E]) Create(ctx context.Context, d D) (D, error) {
	return r.write(ctx, d, "create", (*gorm.DB).Create)
}

func (r Repository[D, E]) write(ctx context.Context, d D, verb string, op func(*gorm.DB, any) *gorm.DB) (D, error) {
	model := r.mapper.ToModel(d)
	if p, ok := any(&model).(Preparer); ok {
		p.Prepare()
	}
	if err := op(r.db.Session(ctx), &model).Error; err != nil {
		var zero D
		return zero, fmt.Errorf("%s %s: %w", verb, r.label, err)
	}
	return r.mapper.ToDomain(model), nil
}

// Find retrieves entities matching the given options.
func (r Repository[D, E]) Find(ctx context.Context, options ...store.Option) ([]D, error) {
	var entities []E
	db := ApplyOptions(r.modelDB(ctx), options...)
	result := db.Find(&entities)
	if result.Error != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, result.Error)
	}

	domains := make([]D, len(entities))
	for i, entity := range entities {
		domains[i] = r.mapper.ToDomain(entity)
	}
	return domains, nil
}

// FindOne retrieves a single entity matching the given options.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...store.Option) (D, error) {
	var entity E
	db := ApplyOptions(r.db.Session(ctx), options...)
	result := db.First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			var zero D
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		var zero D
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	return r.mapper.ToDomain(entity), nil
}

// Exists checks if any entity matches the given options.
func (r Repository[D, E]) Exists(ctx context.Context, options ...store.Option) (bool, error) {
	var count int64
	db := ApplyOptions(r.modelDB(ctx), options...)
	result := db.Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("check %s exists: %w", r.label, result.Error)
	}
	return count > 0, nil
}

// DB returns a GORM session for queries the options cannot express.
func (r Repository[D, E]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Count returns the number of entities matching the given options.
func (r Repository[D, E]) Count(ctx context.Context, options ...store.Option) (int64, error) {
	var count int64
	db := ApplyConditions(r.modelDB(ctx), options...)
	if result := db.Count(&count); result.Error != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, result.Error)
	}
	return count, nil
}

// Mapper returns the entity mapper for external use.
func (r Repository[D, E]) Mapper() EntityMapper[D, E] {
	return r.mapper
}
