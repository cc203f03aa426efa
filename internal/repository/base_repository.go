package repository

import (
	"context"

	"gorm.io/gorm"

	"tabletop_session/internal/storage"
)

// Transactor runs fn atomically. Repository calls made with the ctx passed to
// fn join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type baseRepository struct {
	db *storage.PostgresDB
}

func newBaseRepository(db *storage.PostgresDB) baseRepository {
	return baseRepository{db: db}
}

// conn picks up the transaction carried by ctx, if any.
func (r baseRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.Conn(ctx)
}

type transactor struct {
	db *storage.PostgresDB
}

func NewTransactor(db *storage.PostgresDB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.Transaction(ctx, fn)
}
