package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&order.Order{}, &order.Line{}))
	return db
}

func buildOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New(order.KindSale, uuid.New(), nil, "Walk-in")
	require.NoError(t, err)

	_, err = o.AddLine(uuid.New(), "French press", decimal.NewFromInt(2),
		valueobject.NewMoneyUSDFromFloat(35), valueobject.ZeroUSD())
	require.NoError(t, err)
	_, err = o.AddLine(uuid.New(), "Kettle", decimal.NewFromInt(1),
		valueobject.NewMoneyUSDFromFloat(60), valueobject.NewMoneyUSDFromFloat(10))
	require.NoError(t, err)

	return o
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := buildOrder(t)
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	assert.Equal(t, order.KindSale, found.Kind)
	assert.Len(t, found.Lines, 2)
	assert.True(t, found.FinalTotal.Equal(decimal.NewFromInt(120)))
}

func TestGormOrderRepository_FindByIDNotFound(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_SaveReplacesLines(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := buildOrder(t)
	require.NoError(t, repo.Save(ctx, o))

	// replace both lines with a single new one
	newLine, err := order.NewLine(o.ID, uuid.New(), "Decanter", decimal.NewFromInt(3),
		valueobject.NewMoneyUSDFromFloat(20), valueobject.ZeroUSD())
	require.NoError(t, err)
	require.NoError(t, o.ReplaceLines([]order.Line{*newLine}))
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, "Decanter", found.Lines[0].ProductName)

	// no orphaned lines survive the edit
	var lineCount int64
	require.NoError(t, db.Model(&order.Line{}).Count(&lineCount).Error)
	assert.Equal(t, int64(1), lineCount)
}

func TestGormOrderRepository_FindAllAndCount(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	sale := buildOrder(t)
	require.NoError(t, repo.Save(ctx, sale))

	purchase, err := order.New(order.KindPurchase, uuid.New(), nil, "Supplier")
	require.NoError(t, err)
	_, err = purchase.AddLine(uuid.New(), "Beans", decimal.NewFromInt(10),
		valueobject.NewMoneyUSDFromFloat(12), valueobject.ZeroUSD())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, purchase))

	filter := shared.DefaultFilter()
	orders, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	filter.Filters["kind"] = "PURCHASE"
	orders, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.KindPurchase, orders[0].Kind)

	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := buildOrder(t)
	require.NoError(t, repo.Save(ctx, o))

	t.Run("succeeds with matching version", func(t *testing.T) {
		o.SetNotes("left at the counter")
		o.IncrementVersion()
		require.NoError(t, repo.SaveWithLock(ctx, o))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "left at the counter", found.Notes)
		assert.Equal(t, o.Version, found.Version)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		stale := *o
		stale.Version = o.Version + 5
		err := repo.SaveWithLock(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}
