package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/openpos/settlement/internal/domain/shared"
)

// Repository is the persistence port for the Order aggregate
type Repository interface {
	// FindByID finds an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindAll finds orders matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates an order. On update the line set is
	// fully replaced: existing lines are deleted and recreated so no
	// orphaned lines survive an edit.
	Save(ctx context.Context, o *Order) error

	// SaveWithLock saves with an optimistic version check
	SaveWithLock(ctx context.Context, o *Order) error
}
