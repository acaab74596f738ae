package settlement

import (
	"context"

	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/domain/stock"
)

// TransactionalRepositories exposes repositories bound to a single
// database transaction
type TransactionalRepositories interface {
	Orders() order.Repository
	Stock() stock.Repository
}

// TransactionScope executes a unit of work atomically. If fn returns an
// error every write issued through the transactional repositories is
// rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// NoOpTransactionScope runs the unit of work against the given
// repositories without transactional guarantees. Intended for tests.
type NoOpTransactionScope struct {
	OrderRepo order.Repository
	StockRepo stock.Repository
}

func NewNoOpTransactionScope(orders order.Repository, stocks stock.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{OrderRepo: orders, StockRepo: stocks}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(noOpRepos{s})
}

type noOpRepos struct {
	scope *NoOpTransactionScope
}

func (r noOpRepos) Orders() order.Repository { return r.scope.OrderRepo }
func (r noOpRepos) Stock() stock.Repository  { return r.scope.StockRepo }
