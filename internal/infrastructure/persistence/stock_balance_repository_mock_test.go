package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/stock"
)

// newMockStockRepository wires the repository to a mocked postgres
// connection so the emitted SQL can be asserted directly
func newMockStockRepository(t *testing.T) (*GormStockBalanceRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormStockBalanceRepository(gormDB), mock, mockDB
}

func TestGormStockBalanceRepository_FindByProductAndLocationSQL(t *testing.T) {
	repo, mock, mockDB := newMockStockRepository(t)
	defer mockDB.Close()

	productID, locationID := uuid.New(), uuid.New()
	balanceID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "product_id", "location_id", "quantity", "unit_price",
		"total_value", "min_quantity", "version",
	}).AddRow(
		balanceID, productID, locationID,
		decimal.NewFromInt(12), decimal.NewFromInt(4),
		decimal.NewFromInt(48), decimal.Zero, 1,
	)

	mock.ExpectQuery(`SELECT \* FROM "stock_balances" WHERE product_id = \$1 AND location_id = \$2`).
		WithArgs(productID, locationID, 1).
		WillReturnRows(rows)

	b, err := repo.FindByProductAndLocation(context.Background(), productID, locationID)
	require.NoError(t, err)
	assert.Equal(t, balanceID, b.ID)
	assert.True(t, b.Quantity.Equal(decimal.NewFromInt(12)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStockBalanceRepository_FindByProductAndLocationNotFound(t *testing.T) {
	repo, mock, mockDB := newMockStockRepository(t)
	defer mockDB.Close()

	productID, locationID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "stock_balances"`).
		WithArgs(productID, locationID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByProductAndLocation(context.Background(), productID, locationID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStockBalanceRepository_FindAllIgnoresHostileSortInput(t *testing.T) {
	repo, mock, mockDB := newMockStockRepository(t)
	defer mockDB.Close()

	// a smuggled sort expression must never reach the SQL; the query
	// falls back to the default sort column
	mock.ExpectQuery(`SELECT \* FROM "stock_balances" ORDER BY updated_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	filter := shared.DefaultFilter()
	filter.OrderBy = "(SELECT count(*) FROM stock_balances)"
	filter.OrderDir = "DESC; DROP TABLE stock_balances;--"

	_, err := repo.FindAll(context.Background(), filter)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStockBalanceRepository_SaveWithLockSQL(t *testing.T) {
	buildVersioned := func(t *testing.T) *stock.Balance {
		b, err := stock.NewBalance(uuid.New(), uuid.New())
		require.NoError(t, err)
		b.Quantity = decimal.NewFromInt(9)
		b.UpdatedAt = time.Now()
		b.IncrementVersion()
		return b
	}

	t.Run("update is guarded by the previous version", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		b := buildVersioned(t)
		mock.ExpectExec(`UPDATE "stock_balances" SET .+ WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveWithLock(context.Background(), b))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows means a lost race", func(t *testing.T) {
		repo, mock, mockDB := newMockStockRepository(t)
		defer mockDB.Close()

		b := buildVersioned(t)
		mock.ExpectExec(`UPDATE "stock_balances" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), b)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
