package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
	"github.com/openpos/settlement/internal/domain/stock"
)

// adjustRetryAttempts bounds the optimistic-lock retry loop for manual
// balance adjustments
const adjustRetryAttempts = 3

// Service exposes manual stock operations: ad-hoc adjustments, low
// stock thresholds and balance queries. Order-driven stock movements go
// through the settlement service instead.
type Service struct {
	repo          stock.Repository
	publisher     shared.EventPublisher
	logger        *zap.Logger
	retryAttempts int
}

// NewService creates a stock service
func NewService(repo stock.Repository, publisher shared.EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		repo:          repo,
		publisher:     publisher,
		logger:        logger,
		retryAttempts: adjustRetryAttempts,
	}
}

// WithRetryAttempts overrides the optimistic-lock retry budget
func (s *Service) WithRetryAttempts(n int) *Service {
	if n >= 1 {
		s.retryAttempts = n
	}
	return s
}

// Adjust applies a signed quantity change to a product's balance at a
// location, creating the balance on first movement. Concurrent updates
// are retried; when the retry budget runs out the caller gets a stock
// conflict and should retry the whole request.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (*BalanceResponse, error) {
	if req.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if req.LocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if req.Delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Adjustment delta cannot be zero")
	}

	unitPrice := valueobject.NewMoneyUSD(req.UnitPrice)

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		b, err := s.repo.FindByProductAndLocation(ctx, req.ProductID, req.LocationID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			b, err = stock.NewBalance(req.ProductID, req.LocationID)
			if err != nil {
				return nil, err
			}
			if err := b.Adjust(req.Delta, unitPrice); err != nil {
				return nil, err
			}
			if err := s.repo.Save(ctx, b); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					continue
				}
				return nil, s.mapStoreError(err)
			}
			return s.finish(ctx, b, req.Reason), nil
		case err != nil:
			return nil, s.mapStoreError(err)
		}

		if err := b.Adjust(req.Delta, unitPrice); err != nil {
			return nil, err
		}
		err = s.repo.SaveWithLock(ctx, b)
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Debug("balance version conflict, retrying",
				zap.String("product_id", req.ProductID.String()),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, s.mapStoreError(err)
		}
		return s.finish(ctx, b, req.Reason), nil
	}
	return nil, shared.ErrStockConflict
}

// SetThreshold sets the low-stock threshold for a balance, creating an
// empty balance row when the product has never moved at the location
func (s *Service) SetThreshold(ctx context.Context, req SetThresholdRequest) (*BalanceResponse, error) {
	b, err := s.repo.FindByProductAndLocation(ctx, req.ProductID, req.LocationID)
	if errors.Is(err, shared.ErrNotFound) {
		b, err = stock.NewBalance(req.ProductID, req.LocationID)
		if err != nil {
			return nil, err
		}
		if err := b.SetMinQuantity(req.MinQuantity); err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, b); err != nil {
			return nil, s.mapStoreError(err)
		}
		resp := ToBalanceResponse(b)
		return &resp, nil
	}
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	if err := b.SetMinQuantity(req.MinQuantity); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, b); err != nil {
		return nil, s.mapStoreError(err)
	}
	resp := ToBalanceResponse(b)
	return &resp, nil
}

// GetBalance returns the balance for a product at a location. A product
// that never moved reports a zero on-hand quantity.
func (s *Service) GetBalance(ctx context.Context, productID, locationID uuid.UUID) (*BalanceResponse, error) {
	b, err := s.repo.FindByProductAndLocation(ctx, productID, locationID)
	if errors.Is(err, shared.ErrNotFound) {
		resp := BalanceResponse{ProductID: productID, LocationID: locationID}
		return &resp, nil
	}
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	resp := ToBalanceResponse(b)
	return &resp, nil
}

// ListBalances returns a page of balances matching the filter
func (s *Service) ListBalances(ctx context.Context, filter ListFilter) (*shared.Paginated[BalanceResponse], error) {
	repoFilter := s.toRepoFilter(filter)

	balances, err := s.repo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	total, err := s.repo.Count(ctx, repoFilter)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	return s.toPage(balances, total, repoFilter), nil
}

// ListLowStock returns balances at or below their low-stock threshold
func (s *Service) ListLowStock(ctx context.Context, filter ListFilter) (*shared.Paginated[BalanceResponse], error) {
	repoFilter := s.toRepoFilter(filter)

	balances, err := s.repo.FindBelowMinimum(ctx, repoFilter)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	return s.toPage(balances, int64(len(balances)), repoFilter), nil
}

func (s *Service) toRepoFilter(filter ListFilter) shared.Filter {
	repoFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.ProductID != nil {
		repoFilter.Filters["product_id"] = *filter.ProductID
	}
	if filter.LocationID != nil {
		repoFilter.Filters["location_id"] = *filter.LocationID
	}
	return repoFilter
}

func (s *Service) toPage(balances []stock.Balance, total int64, filter shared.Filter) *shared.Paginated[BalanceResponse] {
	items := make([]BalanceResponse, len(balances))
	for i := range balances {
		items[i] = ToBalanceResponse(&balances[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page
}

func (s *Service) finish(ctx context.Context, b *stock.Balance, reason string) *BalanceResponse {
	events := b.GetDomainEvents()
	b.ClearDomainEvents()
	if len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish stock events", zap.Error(err))
		}
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", b.ProductID.String()),
		zap.String("location_id", b.LocationID.String()),
		zap.String("quantity", b.Quantity.String()),
		zap.String("reason", reason))

	resp := ToBalanceResponse(b)
	return &resp
}

func (s *Service) mapStoreError(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	s.logger.Error("store operation failed", zap.Error(err))
	return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
}
