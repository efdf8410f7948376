package database

import (
	"fmt"

	"github.com/unifiedsync/syncd/domain/store"
	"gorm.io/gorm"
)

var allowedOperators = map[string]bool{
	"=": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true, "IN": true,
}

// ApplyOptions builds a store.Query from the given options and applies it to a GORM session.
func ApplyOptions(db *gorm.DB, options ...store.Option) *gorm.DB {
	q := store.Build(options...)

	db = applyConditions(db, q)

	for _, ord := range q.Orders() {
		dir := "ASC"
		if !ord.Ascending() {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", ord.Field(), dir))
	}

	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}

	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}

	return db
}

// ApplyConditions applies only WHERE conditions (no limit/offset/order) for COUNT queries.
func ApplyConditions(db *gorm.DB, options ...store.Option) *gorm.DB {
	return applyConditions(db, store.Build(options...))
}

func applyConditions(db *gorm.DB, q store.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		op := cond.Operator()
		if !allowedOperators[op] {
			op = "="
		}
		if cond.In() {
			db = db.Where(fmt.Sprintf("%s IN ?", cond.Field()), cond.Value())
			continue
		}
		db = db.Where(fmt.Sprintf("%s %s ?", cond.Field(), op), cond.Value())
	}
	return db
}
