package stock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
)

// Balance represents the stock of a product at a specific location
// (warehouse or point-of-sale). It is the aggregate root for stock
// operations; the composite identifier is ProductID + LocationID.
//
// Quantities are mutated exclusively through signed adjustments so
// concurrent writers never overwrite each other's totals.
type Balance struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_balance_product_location,priority:1"`
	LocationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_balance_product_location,priority:2"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalValue  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinQuantity decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
}

// TableName returns the table name for GORM
func (Balance) TableName() string {
	return "stock_balances"
}

// NewBalance creates a zero balance for a product-location pair.
// Balances are created lazily on the first stock movement and are
// never deleted; a zero quantity is a valid state.
func NewBalance(productID, locationID uuid.UUID) (*Balance, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}

	return &Balance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		LocationID:        locationID,
		Quantity:          decimal.Zero,
		UnitPrice:         decimal.Zero,
		TotalValue:        decimal.Zero,
		MinQuantity:       decimal.Zero,
	}, nil
}

// Adjust applies a signed quantity delta and recomputes the total value.
// A negative delta that would drive the quantity below zero is rejected
// with INSUFFICIENT_STOCK; the balance is left unchanged.
func (b *Balance) Adjust(delta decimal.Decimal, unitPrice valueobject.Money) error {
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	newQuantity := b.Quantity.Add(delta)
	if newQuantity.IsNegative() {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Product %s at location %s: on hand %s, requested %s",
				b.ProductID, b.LocationID, b.Quantity, delta.Neg()))
	}

	previous := b.Quantity
	b.Quantity = newQuantity
	if !unitPrice.IsZero() {
		b.UnitPrice = unitPrice.Amount()
	}
	b.TotalValue = b.Quantity.Mul(b.UnitPrice)
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewStockChangedEvent(b, previous, delta))

	if b.IsBelowMinimum() {
		b.AddDomainEvent(NewStockBelowThresholdEvent(b))
	}

	return nil
}

// SetMinQuantity sets the low-stock alert threshold
func (b *Balance) SetMinQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Minimum quantity cannot be negative")
	}
	b.MinQuantity = quantity
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// CanFulfill returns true if the quantity on hand covers the request
func (b *Balance) CanFulfill(quantity decimal.Decimal) bool {
	return b.Quantity.GreaterThanOrEqual(quantity)
}

// IsBelowMinimum returns true if the quantity is below the threshold
func (b *Balance) IsBelowMinimum() bool {
	return b.MinQuantity.GreaterThan(decimal.Zero) && b.Quantity.LessThan(b.MinQuantity)
}

// UnitPriceMoney returns the unit price as a Money value object
func (b *Balance) UnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.UnitPrice)
}

// TotalValueMoney returns the total value as a Money value object
func (b *Balance) TotalValueMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.TotalValue)
}
