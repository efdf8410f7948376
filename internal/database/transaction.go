package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Transaction is an explicit begin/commit/rollback handle. Most callers want
// WithTransaction instead.
type Transaction struct {
	tx       *gorm.DB
	finished bool
}

// NewTransaction begins a transaction bound to ctx.
func NewTransaction(ctx context.Context, db Database) (Transaction, error) {
	tx := db.Session(ctx).Begin()
	if tx.Error != nil {
		return Transaction{}, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return Transaction{tx: tx}, nil
}

// Session returns the handle every statement of the transaction must use.
// With SQLite's single connection, touching the outer Database while a
// transaction is open blocks forever.
func (t Transaction) Session() *gorm.DB {
	return t.tx
}

// Commit commits the transaction. It is a no-op once finished.
func (t *Transaction) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back. It is a no-op once finished.
func (t *Transaction) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a transaction that commits when fn returns nil
// and rolls back otherwise, including when fn panics.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	_, err := WithTransactionResult(ctx, db, func(tx *gorm.DB) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTransactionResult is WithTransaction for functions producing a value.
// The zero value is returned on any failure.
func WithTransactionResult[T any](ctx context.Context, db Database, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var zero T

	txn, err := NewTransaction(ctx, db)
	if err != nil {
		return zero, err
	}
	defer func() {
		if !txn.finished {
			_ = txn.Rollback()
		}
	}()

	result, err := fn(txn.Session())
	if err != nil {
		return zero, err
	}
	if err := txn.Commit(); err != nil {
		return zero, err
	}
	return result, nil
}
