package stock

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStockBalance = "StockBalance"

// Event type constants
const (
	EventTypeStockChanged        = "StockChanged"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
)

// StockChangedEvent is raised after a balance adjustment commits.
// Delivery to observers is best-effort and at-least-once; it is not
// part of the settlement transaction's success contract.
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID       `json:"product_id"`
	LocationID       uuid.UUID       `json:"location_id"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	Delta            decimal.Decimal `json:"delta"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// NewStockChangedEvent creates a new StockChangedEvent
func NewStockChangedEvent(b *Balance, previous, delta decimal.Decimal) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeStockBalance, b.ID),
		ProductID:        b.ProductID,
		LocationID:       b.LocationID,
		PreviousQuantity: previous,
		Delta:            delta,
		NewQuantity:      b.Quantity,
		UnitPrice:        b.UnitPrice,
	}
}

// EventType returns the event type name
func (e *StockChangedEvent) EventType() string {
	return EventTypeStockChanged
}

// StockBelowThresholdEvent is raised when a balance drops below its
// configured minimum quantity
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID       `json:"product_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(b *Balance) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStockBalance, b.ID),
		ProductID:       b.ProductID,
		LocationID:      b.LocationID,
		Quantity:        b.Quantity,
		MinQuantity:     b.MinQuantity,
	}
}

// EventType returns the event type name
func (e *StockBelowThresholdEvent) EventType() string {
	return EventTypeStockBelowThreshold
}
