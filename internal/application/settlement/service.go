package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
	"github.com/openpos/settlement/internal/domain/stock"
)

// stockRetryAttempts bounds the optimistic-lock retry loop for stock
// balance updates before the settlement gives up with a conflict.
const stockRetryAttempts = 3

// Service orchestrates settlement: it computes payment and delivery
// state for an order and applies the resulting stock movements, all in
// a single transaction. Domain events are published after commit.
type Service struct {
	scope         TransactionScope
	publisher     shared.EventPublisher
	logger        *zap.Logger
	retryAttempts int
}

// NewService creates a settlement service
func NewService(scope TransactionScope, publisher shared.EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		scope:         scope,
		publisher:     publisher,
		logger:        logger,
		retryAttempts: stockRetryAttempts,
	}
}

// WithRetryAttempts overrides the optimistic-lock retry budget
func (s *Service) WithRetryAttempts(n int) *Service {
	if n >= 1 {
		s.retryAttempts = n
	}
	return s
}

// Settle creates or updates an order from the request, recomputes its
// payment and delivery status and adjusts stock by the change in
// delivered quantity per line. Re-settling with unchanged deliveries
// produces no stock movement.
func (s *Service) Settle(ctx context.Context, req Request) (*Result, error) {
	if len(req.Lines) == 0 {
		return nil, shared.ErrEmptyOrder
	}
	if !req.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Order kind must be SALE or PURCHASE")
	}
	if !req.DeliveryStatus.IsValid() {
		return nil, shared.NewDomainError("INVALID_DELIVERY_STATUS",
			fmt.Sprintf("Unknown delivery status: %s", req.DeliveryStatus))
	}
	if req.LocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}

	var (
		o      *order.Order
		events []shared.DomainEvent
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		var previousDelivered map[uuid.UUID]decimal.Decimal
		var previousLines []order.Line

		if req.OrderID != nil {
			o, err = repos.Orders().FindByID(ctx, *req.OrderID)
			if err != nil {
				return s.mapStoreError(err)
			}
			if !o.CanModify() {
				return shared.ErrInvalidState
			}
			previousDelivered = deliveredByProduct(o)
			previousLines = append([]order.Line(nil), o.Lines...)
		} else {
			o, err = order.New(req.Kind, req.LocationID, req.PartyID, req.PartyName)
			if err != nil {
				return err
			}
			previousDelivered = map[uuid.UUID]decimal.Decimal{}
		}

		lines, err := buildLines(o.ID, req.Lines)
		if err != nil {
			return err
		}
		if err := o.ReplaceLines(lines); err != nil {
			return err
		}
		if err := o.ApplyDiscount(valueobject.NewMoneyUSD(req.Discount)); err != nil {
			return err
		}
		if err := o.SetShippingFee(valueobject.NewMoneyUSD(req.ShippingFee)); err != nil {
			return err
		}
		o.SetNotes(req.Notes)

		delivered, err := order.ComputeLineDeliveries(o.Lines, req.DeliveryStatus, req.DeliveryOverrides)
		if err != nil {
			return err
		}
		if err := o.ApplyDeliveries(req.DeliveryStatus, delivered); err != nil {
			return err
		}
		if err := o.ApplyPayment(valueobject.NewMoneyUSD(req.PaidAmount)); err != nil {
			return err
		}

		o.AddDomainEvent(order.NewOrderSettledEvent(o))
		if req.OrderID != nil {
			o.IncrementVersion()
			if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
				return s.mapStoreError(err)
			}
		} else {
			if err := repos.Orders().Save(ctx, o); err != nil {
				return s.mapStoreError(err)
			}
		}

		currentProducts := make(map[uuid.UUID]bool, len(o.Lines))
		for i := range o.Lines {
			line := &o.Lines[i]
			currentProducts[line.ProductID] = true
			deliveredDelta := line.DeliveredQuantity.Sub(previousDelivered[line.ProductID])
			if deliveredDelta.IsZero() {
				continue
			}
			stockDelta := o.Kind.StockDirection().Mul(deliveredDelta)
			balanceEvents, err := s.adjustBalance(ctx, repos.Stock(),
				line.ProductID, o.LocationID, stockDelta, line.UnitPriceMoney())
			if err != nil {
				return err
			}
			events = append(events, balanceEvents...)
		}

		// lines dropped by the replace still have delivered stock out
		// there; undo their movement
		for i := range previousLines {
			prev := &previousLines[i]
			if currentProducts[prev.ProductID] || prev.DeliveredQuantity.IsZero() {
				continue
			}
			stockDelta := o.Kind.StockDirection().Mul(prev.DeliveredQuantity).Neg()
			balanceEvents, err := s.adjustBalance(ctx, repos.Stock(),
				prev.ProductID, o.LocationID, stockDelta, prev.UnitPriceMoney())
			if err != nil {
				return err
			}
			events = append(events, balanceEvents...)
		}

		events = append(events, o.GetDomainEvents()...)
		o.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, s.mapContextError(ctx, err)
	}

	s.publishEvents(ctx, events)

	s.logger.Info("order settled",
		zap.String("order_id", o.ID.String()),
		zap.String("kind", o.Kind.String()),
		zap.String("payment_status", o.PaymentStatus.String()),
		zap.String("delivery_status", o.DeliveryStatus.String()),
		zap.String("final_total", o.FinalTotal.String()))

	return &Result{Order: ToOrderResponse(o)}, nil
}

// Cancel voids an order and returns any delivered quantities to stock
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*Result, error) {
	var (
		o      *order.Order
		events []shared.DomainEvent
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		o, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return s.mapStoreError(err)
		}
		if err := o.Cancel(reason); err != nil {
			return err
		}
		o.IncrementVersion()
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return s.mapStoreError(err)
		}

		for i := range o.Lines {
			line := &o.Lines[i]
			if line.DeliveredQuantity.IsZero() {
				continue
			}
			// reverse the movement the deliveries caused
			stockDelta := o.Kind.StockDirection().Neg().Mul(line.DeliveredQuantity)
			balanceEvents, err := s.adjustBalance(ctx, repos.Stock(),
				line.ProductID, o.LocationID, stockDelta, line.UnitPriceMoney())
			if err != nil {
				return err
			}
			events = append(events, balanceEvents...)
		}

		events = append(events, o.GetDomainEvents()...)
		o.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, s.mapContextError(ctx, err)
	}

	s.publishEvents(ctx, events)

	s.logger.Info("order cancelled",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", reason))

	return &Result{Order: ToOrderResponse(o)}, nil
}

// GetOrder loads a single order with its lines
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	var o *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		o, err = repos.Orders().FindByID(ctx, orderID)
		return s.mapStoreError(err)
	})
	if err != nil {
		return nil, s.mapContextError(ctx, err)
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListOrders returns a page of orders matching the filter
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) (*shared.Paginated[OrderResponse], error) {
	repoFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		repoFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		repoFilter.OrderDir = filter.OrderDir
	}
	if filter.Kind != nil {
		repoFilter.Filters["kind"] = filter.Kind.String()
	}
	if filter.PartyID != nil {
		repoFilter.Filters["party_id"] = *filter.PartyID
	}
	if filter.PaymentStatus != nil {
		repoFilter.Filters["payment_status"] = filter.PaymentStatus.String()
	}
	if filter.DeliveryStatus != nil {
		repoFilter.Filters["delivery_status"] = filter.DeliveryStatus.String()
	}
	if filter.StartDate != nil {
		repoFilter.Filters["start_date"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		repoFilter.Filters["end_date"] = *filter.EndDate
	}

	var (
		orders []order.Order
		total  int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		orders, err = repos.Orders().FindAll(ctx, repoFilter)
		if err != nil {
			return s.mapStoreError(err)
		}
		total, err = repos.Orders().Count(ctx, repoFilter)
		return s.mapStoreError(err)
	})
	if err != nil {
		return nil, s.mapContextError(ctx, err)
	}

	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	page := shared.NewPaginated(items, total, repoFilter.Page, repoFilter.PageSize)
	return &page, nil
}

// adjustBalance applies a signed quantity change to the balance of a
// product at a location, creating the balance row on first movement.
// Version conflicts are retried with a fresh read; after the retry
// budget is exhausted the settlement fails with a stock conflict.
func (s *Service) adjustBalance(ctx context.Context, repo stock.Repository,
	productID, locationID uuid.UUID, delta decimal.Decimal, unitPrice valueobject.Money) ([]shared.DomainEvent, error) {

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		b, err := repo.FindByProductAndLocation(ctx, productID, locationID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			b, err = stock.NewBalance(productID, locationID)
			if err != nil {
				return nil, err
			}
			if err := b.Adjust(delta, unitPrice); err != nil {
				return nil, err
			}
			if err := repo.Save(ctx, b); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					// another transaction created the row first
					continue
				}
				return nil, s.mapStoreError(err)
			}
			return drainEvents(b), nil
		case err != nil:
			return nil, s.mapStoreError(err)
		}

		if err := b.Adjust(delta, unitPrice); err != nil {
			return nil, err
		}
		err = repo.SaveWithLock(ctx, b)
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Debug("stock version conflict, retrying",
				zap.String("product_id", productID.String()),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, s.mapStoreError(err)
		}
		return drainEvents(b), nil
	}
	return nil, shared.ErrStockConflict
}

// publishEvents delivers events best-effort after the transaction has
// committed; a failing handler never rolls back the settlement
func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

// mapStoreError keeps domain errors intact and wraps infrastructure
// failures as a store-unavailable error
func (s *Service) mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	s.logger.Error("store operation failed", zap.Error(err))
	return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
}

func (s *Service) mapContextError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return err
}

func buildLines(orderID uuid.UUID, inputs []LineInput) ([]order.Line, error) {
	lines := make([]order.Line, 0, len(inputs))
	for _, in := range inputs {
		line, err := order.NewLine(orderID, in.ProductID, in.ProductName, in.Quantity,
			valueobject.NewMoneyUSD(in.UnitPrice), valueobject.NewMoneyUSD(in.Discount))
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, nil
}

func deliveredByProduct(o *order.Order) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(o.Lines))
	for i := range o.Lines {
		out[o.Lines[i].ProductID] = o.Lines[i].DeliveredQuantity
	}
	return out
}

func drainEvents(b *stock.Balance) []shared.DomainEvent {
	events := b.GetDomainEvents()
	b.ClearDomainEvents()
	return events
}
