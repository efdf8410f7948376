// Package persistence provides the GORM-backed stores behind syncd's domain
// ports: tenancy, connections, field mappings, canonical records, events and
// the task queue.
package persistence

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/internal/database"
)

// AutoMigrate creates or updates every table: the fixed models through GORM
// and one canonical table per descriptor in the catalog.
func AutoMigrate(db database.Database, catalog entity.Catalog) error {
	if err := db.GORM().AutoMigrate(
		&TenantModel{},
		&ProjectModel{},
		&LinkedAccountModel{},
		&ConnectionModel{},
		&AttributeModel{},
		&EntityModel{},
		&ValueModel{},
		&RemoteDataModel{},
		&EventModel{},
		&TaskModel{},
	); err != nil {
		return err
	}
	for _, desc := range catalog.All() {
		if err := migrateCanonical(db, desc); err != nil {
			return fmt.Errorf("migrate %s: %w", desc.Table, err)
		}
	}
	return nil
}

// migrateCanonical creates a descriptor's table, adds columns that are
// missing from an existing table, and ensures the dedup index. Column
// types are never altered.
func migrateCanonical(db database.Database, desc entity.Descriptor) error {
	gdb := db.GORM()
	columns := canonicalColumns(db, desc)

	if !gdb.Migrator().HasTable(desc.Table) {
		defs := make([]string, 0, len(columns)+1)
		for _, c := range columns {
			defs = append(defs, c.name+" "+c.sqlType)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", desc.IDColumn))
		stmt := fmt.Sprintf("CREATE TABLE %s (%s)", desc.Table, strings.Join(defs, ", "))
		if err := gdb.Exec(stmt).Error; err != nil {
			return err
		}
	} else {
		for _, c := range columns {
			if gdb.Migrator().HasColumn(desc.Table, c.name) {
				continue
			}
			slog.Info("adding column", "table", desc.Table, "column", c.name)
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", desc.Table, c.name, c.sqlType)
			if err := gdb.Exec(stmt).Error; err != nil {
				return err
			}
		}
	}

	indexes := []string{
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_remote ON %s (remote_id, id_connection)", desc.Table, desc.Table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS ix_%s_created ON %s (created_at)", desc.Table, desc.Table),
	}
	for _, stmt := range indexes {
		if err := gdb.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

type columnDef struct {
	name    string
	sqlType string
}

func canonicalColumns(db database.Database, desc entity.Descriptor) []columnDef {
	timeType := "TIMESTAMP"
	if db.IsPostgres() {
		timeType = "TIMESTAMPTZ"
	}
	cols := []columnDef{
		{desc.IDColumn, "VARCHAR(36) NOT NULL"},
		{"remote_id", "VARCHAR(255) NOT NULL"},
		{"id_connection", "VARCHAR(36) NOT NULL"},
		{"created_at", timeType},
		{"modified_at", timeType},
	}
	for _, f := range desc.Fields {
		var t string
		switch f.Kind {
		case entity.KindNumber:
			t = "DOUBLE PRECISION"
		case entity.KindBool:
			t = "BOOLEAN"
		case entity.KindTime:
			t = timeType
		case entity.KindString:
			t = "TEXT"
		default:
			t = "TEXT"
		}
		cols = append(cols, columnDef{f.Column, t})
	}
	return cols
}
