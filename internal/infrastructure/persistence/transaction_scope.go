package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/openpos/settlement/internal/application/settlement"
	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/domain/stock"
)

// GormTransactionScope implements settlement.TransactionScope using
// GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. If the
// function returns an error every write is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos settlement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Orders returns the order repository scoped to the current transaction
func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

// Stock returns the stock balance repository scoped to the current transaction
func (r *gormTransactionalRepositories) Stock() stock.Repository {
	return NewGormStockBalanceRepository(r.tx)
}

var _ settlement.TransactionScope = (*GormTransactionScope)(nil)
var _ settlement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
