package stock

import (
	"context"

	"github.com/google/uuid"

	"github.com/openpos/settlement/internal/domain/shared"
)

// Repository is the persistence port for the StockBalance aggregate
type Repository interface {
	// FindByID finds a balance by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Balance, error)

	// FindByProductAndLocation finds the balance for a product-location pair
	FindByProductAndLocation(ctx context.Context, productID, locationID uuid.UUID) (*Balance, error)

	// FindAll finds balances matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Balance, error)

	// FindBelowMinimum finds balances below their low-stock threshold
	FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]Balance, error)

	// Count counts balances matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates a new balance row
	Save(ctx context.Context, b *Balance) error

	// SaveWithLock updates a balance with an optimistic version check.
	// Returns shared.ErrConcurrencyConflict when the row was modified
	// by another transaction since it was read.
	SaveWithLock(ctx context.Context, b *Balance) error
}
