package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/stock"
)

// AdjustRequest applies a manual signed quantity change to a balance,
// e.g. a stock take correction or goods receipt outside an order
type AdjustRequest struct {
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Delta      decimal.Decimal `json:"delta"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Reason     string          `json:"reason,omitempty"`
}

// SetThresholdRequest sets the low-stock threshold of a balance
type SetThresholdRequest struct {
	ProductID   uuid.UUID       `json:"product_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
}

// BalanceResponse is the API projection of a stock balance
type BalanceResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalValue   decimal.Decimal `json:"total_value"`
	MinQuantity  decimal.Decimal `json:"min_quantity"`
	BelowMinimum bool            `json:"below_minimum"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToBalanceResponse maps a domain balance to its API projection
func ToBalanceResponse(b *stock.Balance) BalanceResponse {
	return BalanceResponse{
		ID:           b.ID,
		ProductID:    b.ProductID,
		LocationID:   b.LocationID,
		Quantity:     b.Quantity,
		UnitPrice:    b.UnitPrice,
		TotalValue:   b.TotalValue,
		MinQuantity:  b.MinQuantity,
		BelowMinimum: b.IsBelowMinimum(),
		UpdatedAt:    b.UpdatedAt,
	}
}

// ListFilter holds query options for listing balances
type ListFilter struct {
	Page       int
	PageSize   int
	ProductID  *uuid.UUID
	LocationID *uuid.UUID
}
