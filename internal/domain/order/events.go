package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderSettled   = "OrderSettled"
	EventTypeOrderCancelled = "OrderCancelled"
)

// OrderSettledEvent is raised after an order settlement commits
type OrderSettledEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	Kind           Kind            `json:"kind"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	LineCount      int             `json:"line_count"`
}

// NewOrderSettledEvent creates a new OrderSettledEvent
func NewOrderSettledEvent(o *Order) *OrderSettledEvent {
	return &OrderSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSettled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Kind:            o.Kind,
		FinalTotal:      o.FinalTotal,
		PaidAmount:      o.PaidAmount,
		PaymentStatus:   o.PaymentStatus,
		DeliveryStatus:  o.DeliveryStatus,
		LineCount:       len(o.Lines),
	}
}

// EventType returns the event type name
func (e *OrderSettledEvent) EventType() string {
	return EventTypeOrderSettled
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	Kind         Kind      `json:"kind"`
	CancelReason string    `json:"cancel_reason"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Kind:            o.Kind,
		CancelReason:    o.CancelReason,
	}
}

// EventType returns the event type name
func (e *OrderCancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}
