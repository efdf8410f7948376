// Package database owns the GORM connection and the generic repository and
// transaction helpers used by the persistence adapters.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrUnsupportedDriver is returned for database URLs with an unknown scheme.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Database wraps a GORM connection.
type Database struct {
	db      *gorm.DB
	dialect string
}

// NewDatabase opens a database from a URL.
// Supported forms: sqlite:///path/to/file.db, sqlite:///:memory:,
// postgres://... and postgresql://...
func NewDatabase(ctx context.Context, url string) (Database, error) {
	dialector, err := parseDialector(url)
	if err != nil {
		return Database{}, fmt.Errorf("parse database url: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         slogGormLogger{},
		TranslateError: true,
	})
	if err != nil {
		return Database{}, fmt.Errorf("open database: %w", err)
	}

	d := Database{db: db, dialect: dialector.Name()}

	sqlDB, err := db.DB()
	if err != nil {
		return Database{}, fmt.Errorf("get sql db: %w", err)
	}
	if d.IsSQLite() {
		// One connection keeps :memory: databases shared and serialises writers.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return Database{}, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func parseDialector(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "sqlite:///"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite:///")), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

// Session returns a GORM session bound to ctx.
func (d Database) Session(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

// GORM returns the underlying GORM handle, for migrations.
func (d Database) GORM() *gorm.DB {
	return d.db
}

// IsPostgres reports whether the database is PostgreSQL.
func (d Database) IsPostgres() bool { return d.dialect == "postgres" }

// IsSQLite reports whether the database is SQLite.
func (d Database) IsSQLite() bool { return d.dialect == "sqlite" }

// ConfigurePool sets connection pool limits. SQLite keeps a single open
// connection regardless of maxOpen.
func (d Database) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	if !d.IsSQLite() {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)
	return nil
}

// Close closes the underlying connection pool.
func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
