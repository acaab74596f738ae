package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openpos/settlement/internal/application/settlement"
	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
	"github.com/openpos/settlement/internal/domain/stock"
)

func setupScopeTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&order.Order{}, &order.Line{}, &stock.Balance{}))
	return db
}

func TestGormTransactionScope(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db := setupScopeTestDB(t)
		scope := NewGormTransactionScope(db)

		o := buildOrder(t)
		b := buildBalance(t, 10)

		err := scope.Execute(context.Background(), func(repos settlement.TransactionalRepositories) error {
			if err := repos.Orders().Save(context.Background(), o); err != nil {
				return err
			}
			return repos.Stock().Save(context.Background(), b)
		})
		require.NoError(t, err)

		found, err := NewGormOrderRepository(db).FindByID(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
	})

	t.Run("rolls back every write on error", func(t *testing.T) {
		db := setupScopeTestDB(t)
		scope := NewGormTransactionScope(db)

		o := buildOrder(t)
		bang := errors.New("bang")

		err := scope.Execute(context.Background(), func(repos settlement.TransactionalRepositories) error {
			if err := repos.Orders().Save(context.Background(), o); err != nil {
				return err
			}
			b, err := stock.NewBalance(uuid.New(), uuid.New())
			if err != nil {
				return err
			}
			if err := b.Adjust(decimal.NewFromInt(5), valueobject.NewMoneyUSDFromFloat(3)); err != nil {
				return err
			}
			if err := repos.Stock().Save(context.Background(), b); err != nil {
				return err
			}
			return bang
		})
		assert.ErrorIs(t, err, bang)

		_, err = NewGormOrderRepository(db).FindByID(context.Background(), o.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var count int64
		require.NoError(t, db.Model(&stock.Balance{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}
