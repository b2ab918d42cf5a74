package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

// Tx wraps a started gorm transaction. Commit and Rollback clear the
// inner handle so a double call is a no-op error instead of a corrupt
// write.
type Tx struct {
	tx *gorm.DB
}

var errTxNotStarted = errors.New("transaction hasn't started yet")

// Commit finishes the transaction carried by the context, if any. A
// context without a transaction commits nothing and is not an error.
func Commit(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, txKey{}, nil), tx.Commit()
}

// Rollback discards the transaction carried by the context, if any.
func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok {
		return ctx, nil
	}
	return context.WithValue(ctx, txKey{}, nil), tx.Rollback()
}

// FromContext returns the transaction handle on the context, or nil when
// the caller runs outside a transaction.
func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(txKey{}).(*Tx); found && tx != nil {
		if db, err := tx.Db(); err == nil {
			return db
		}
	}
	return nil
}

// newTransactionContext begins a transaction and attaches it to the
// context. A context that already carries one is returned unchanged, so
// nested service calls share the outer transaction.
func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if _, found := ctx.Value(txKey{}).(*Tx); found {
		return ctx, nil
	}

	conn := db.Session(&gorm.Session{Context: ctx})
	tx := conn.Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}

	return context.WithValue(ctx, txKey{}, &Tx{tx: tx}), nil
}

func (t *Tx) Db() (*gorm.DB, error) {
	if t.tx == nil {
		return nil, errTxNotStarted
	}
	return t.tx, nil
}

func (t *Tx) Commit() error {
	if t.tx == nil {
		return errTxNotStarted
	}

	if err := t.tx.Commit().Error; err != nil {
		zap.S().Named("store").Errorf("failed to commit transaction: %v", err)
		return err
	}
	t.tx = nil
	return nil
}

func (t *Tx) Rollback() error {
	if t.tx == nil {
		return errTxNotStarted
	}

	if err := t.tx.Rollback().Error; err != nil {
		zap.S().Named("store").Errorf("failed to rollback transaction: %v", err)
		return err
	}
	t.tx = nil
	return nil
}
