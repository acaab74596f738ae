package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/stock"
)

// GormStockBalanceRepository implements stock.Repository using GORM
type GormStockBalanceRepository struct {
	db *gorm.DB
}

// NewGormStockBalanceRepository creates a new GormStockBalanceRepository
func NewGormStockBalanceRepository(db *gorm.DB) *GormStockBalanceRepository {
	return &GormStockBalanceRepository{db: db}
}

// FindByID finds a balance by its ID
func (r *GormStockBalanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Balance, error) {
	var b stock.Balance
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindByProductAndLocation finds the balance for a product-location pair
func (r *GormStockBalanceRepository) FindByProductAndLocation(ctx context.Context, productID, locationID uuid.UUID) (*stock.Balance, error) {
	var b stock.Balance
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindAll finds balances matching the filter
func (r *GormStockBalanceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stock.Balance, error) {
	var balances []stock.Balance
	query := r.applyFilter(r.db.WithContext(ctx).Model(&stock.Balance{}), filter)
	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindBelowMinimum finds balances below their low-stock threshold
func (r *GormStockBalanceRepository) FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]stock.Balance, error) {
	var balances []stock.Balance
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.Balance{}).
			Where("min_quantity > 0 AND quantity < min_quantity"),
		filter,
	)
	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Count counts balances matching the filter
func (r *GormStockBalanceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&stock.Balance{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates a new balance row. The unique index on
// (product_id, location_id) turns a concurrent double-create into
// shared.ErrAlreadyExists so callers can re-read and retry. The insert
// runs in a nested transaction: when the caller already holds a
// transaction the failed insert rolls back to a savepoint instead of
// aborting the whole transaction.
func (r *GormStockBalanceRepository) Save(ctx context.Context, b *stock.Balance) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(b).Error
	})
	if err != nil && isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock updates a balance with an optimistic version check.
// RowsAffected of zero means another transaction won the race.
func (r *GormStockBalanceRepository) SaveWithLock(ctx context.Context, b *stock.Balance) error {
	result := r.db.WithContext(ctx).
		Model(&stock.Balance{}).
		Where("id = ? AND version = ?", b.ID, b.Version-1).
		Updates(map[string]interface{}{
			"quantity":     b.Quantity,
			"unit_price":   b.UnitPrice,
			"total_value":  b.TotalValue,
			"min_quantity": b.MinQuantity,
			"version":      b.Version,
			"updated_at":   b.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormStockBalanceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	sortField := ValidateSortField(filter.OrderBy, StockBalanceSortFields, "updated_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	return query
}

func (r *GormStockBalanceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		}
	}
	return query
}

// isUniqueViolation reports whether the error is a unique constraint
// violation, covering both the postgres and sqlite drivers
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

var _ stock.Repository = (*GormStockBalanceRepository)(nil)
