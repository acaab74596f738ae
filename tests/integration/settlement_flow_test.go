package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	settlementapp "github.com/openpos/settlement/internal/application/settlement"
	stockapp "github.com/openpos/settlement/internal/application/stock"
	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/infrastructure/persistence"
)

type fixture struct {
	db         *TestDB
	settlement *settlementapp.Service
	stock      *stockapp.Service
	stockRepo  *persistence.GormStockBalanceRepository
	orderRepo  *persistence.GormOrderRepository
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tdb := NewTestDB(t)

	scope := persistence.NewGormTransactionScope(tdb.DB)
	log := zap.NewNop()

	return &fixture{
		db:         tdb,
		settlement: settlementapp.NewService(scope, discardPublisher{}, log),
		stock:      stockapp.NewService(persistence.NewGormStockBalanceRepository(tdb.DB), discardPublisher{}, log),
		stockRepo:  persistence.NewGormStockBalanceRepository(tdb.DB),
		orderRepo:  persistence.NewGormOrderRepository(tdb.DB),
	}
}

func (f *fixture) seedStock(t *testing.T, productID, locationID uuid.UUID, qty int64) {
	t.Helper()
	_, err := f.stock.Adjust(context.Background(), stockapp.AdjustRequest{
		ProductID:  productID,
		LocationID: locationID,
		Delta:      decimal.NewFromInt(qty),
		UnitPrice:  decimal.NewFromInt(10),
		Reason:     "opening stock",
	})
	require.NoError(t, err)
}

func (f *fixture) quantity(t *testing.T, productID, locationID uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := f.stockRepo.FindByProductAndLocation(context.Background(), productID, locationID)
	require.NoError(t, err)
	return b.Quantity
}

func saleRequest(productID, locationID uuid.UUID, qty, price, paid int64) settlementapp.Request {
	return settlementapp.Request{
		Kind:       order.KindSale,
		LocationID: locationID,
		Lines: []settlementapp.LineInput{{
			ProductID:   productID,
			ProductName: "House Blend 500g",
			Quantity:    decimal.NewFromInt(qty),
			UnitPrice:   decimal.NewFromInt(price),
		}},
		DeliveryStatus: order.DeliveryDelivered,
		PaidAmount:     decimal.NewFromInt(paid),
	}
}

func TestSettlementLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID, locationID := uuid.New(), uuid.New()
	f.seedStock(t, productID, locationID, 10)

	// Settle a fully paid, fully delivered sale
	res, err := f.settlement.Settle(ctx, saleRequest(productID, locationID, 3, 25, 75))
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, res.Order.PaymentStatus)
	assert.Equal(t, order.DeliveryDelivered, res.Order.DeliveryStatus)
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(7)))

	// Read it back through the repository with its lines
	stored, err := f.orderRepo.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.FinalTotal.Equal(decimal.NewFromInt(75)))

	// Cancel returns the delivered stock
	_, err = f.settlement.Cancel(ctx, res.Order.ID, "customer returned goods")
	require.NoError(t, err)
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(10)))

	cancelled, err := f.orderRepo.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled())
}

func TestResettlementMovesOnlyDeliveryDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID, locationID := uuid.New(), uuid.New()
	f.seedStock(t, productID, locationID, 10)

	// Partial delivery of 2 out of 5
	req := saleRequest(productID, locationID, 5, 20, 0)
	req.DeliveryStatus = order.DeliveryPartial
	req.DeliveryOverrides = map[uuid.UUID]decimal.Decimal{
		productID: decimal.NewFromInt(2),
	}
	res, err := f.settlement.Settle(ctx, req)
	require.NoError(t, err)
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(8)))

	// Deliver the remaining 3
	update := saleRequest(productID, locationID, 5, 20, 100)
	update.OrderID = &res.Order.ID
	_, err = f.settlement.Settle(ctx, update)
	require.NoError(t, err)
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(5)))

	// Re-settling with identical deliveries moves nothing
	again := saleRequest(productID, locationID, 5, 20, 100)
	again.OrderID = &res.Order.ID
	_, err = f.settlement.Settle(ctx, again)
	require.NoError(t, err)
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(5)))
}

func TestOversellRejectedAtTheStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID, locationID := uuid.New(), uuid.New()
	f.seedStock(t, productID, locationID, 2)

	_, err := f.settlement.Settle(ctx, saleRequest(productID, locationID, 5, 25, 0))
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

	// Nothing moved and no order row survived the rollback
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(2)))

	count, err := f.orderRepo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID, locationID := uuid.New(), uuid.New()
	f.seedStock(t, productID, locationID, 30)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlement.Settle(ctx, saleRequest(productID, locationID, 4, 15, 60))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}

	remaining := f.quantity(t, productID, locationID)
	expected := decimal.NewFromInt(30 - int64(succeeded)*4)
	assert.True(t, remaining.Equal(expected),
		"remaining %s, expected %s after %d successful sales", remaining, expected, succeeded)
	assert.False(t, remaining.IsNegative())
}

func TestPurchaseIncreasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID, locationID := uuid.New(), uuid.New()

	req := settlementapp.Request{
		Kind:       order.KindPurchase,
		LocationID: locationID,
		Lines: []settlementapp.LineInput{{
			ProductID:   productID,
			ProductName: "House Blend 500g",
			Quantity:    decimal.NewFromInt(20),
			UnitPrice:   decimal.NewFromInt(8),
		}},
		DeliveryStatus: order.DeliveryDelivered,
		PaidAmount:     decimal.NewFromInt(160),
	}
	_, err := f.settlement.Settle(ctx, req)
	require.NoError(t, err)

	// Balance was created lazily by the purchase itself
	assert.True(t, f.quantity(t, productID, locationID).Equal(decimal.NewFromInt(20)))
}
