package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/order"
)

// LineInput is one cart entry in a settlement request
type LineInput struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
}

// Request carries everything needed to settle an order.
// When OrderID is set the existing order is updated in place and its
// lines fully replaced; otherwise a new order is created.
type Request struct {
	OrderID           *uuid.UUID                    `json:"order_id,omitempty"`
	Kind              order.Kind                    `json:"kind"`
	LocationID        uuid.UUID                     `json:"location_id"`
	PartyID           *uuid.UUID                    `json:"party_id,omitempty"`
	PartyName         string                        `json:"party_name,omitempty"`
	Lines             []LineInput                   `json:"lines"`
	DeliveryStatus    order.DeliveryStatus          `json:"delivery_status"`
	DeliveryOverrides map[uuid.UUID]decimal.Decimal `json:"delivery_overrides,omitempty"`
	PaidAmount        decimal.Decimal               `json:"paid_amount"`
	Discount          decimal.Decimal               `json:"discount"`
	ShippingFee       decimal.Decimal               `json:"shipping_fee"`
	Notes             string                        `json:"notes,omitempty"`
}

// LineResponse is the API projection of an order line
type LineResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Discount          decimal.Decimal `json:"discount"`
	LineTotal         decimal.Decimal `json:"line_total"`
	DeliveredQuantity decimal.Decimal `json:"delivered_quantity"`
}

// OrderResponse is the API projection of an order
type OrderResponse struct {
	ID              uuid.UUID            `json:"id"`
	Kind            order.Kind           `json:"kind"`
	LocationID      uuid.UUID            `json:"location_id"`
	PartyID         *uuid.UUID           `json:"party_id,omitempty"`
	PartyName       string               `json:"party_name,omitempty"`
	Lines           []LineResponse       `json:"lines"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	DiscountAmount  decimal.Decimal      `json:"discount_amount"`
	ShippingFee     decimal.Decimal      `json:"shipping_fee"`
	FinalTotal      decimal.Decimal      `json:"final_total"`
	DeliveryStatus  order.DeliveryStatus `json:"delivery_status"`
	PaymentStatus   order.PaymentStatus  `json:"payment_status"`
	PaidAmount      decimal.Decimal      `json:"paid_amount"`
	RemainingAmount decimal.Decimal      `json:"remaining_amount"`
	Notes           string               `json:"notes,omitempty"`
	Cancelled       bool                 `json:"cancelled"`
	CancelReason    string               `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Result is returned from a successful settlement
type Result struct {
	Order OrderResponse `json:"order"`
}

// ToOrderResponse maps a domain order to its API projection
func ToOrderResponse(o *order.Order) OrderResponse {
	lines := make([]LineResponse, len(o.Lines))
	for i, line := range o.Lines {
		lines[i] = LineResponse{
			ID:                line.ID,
			ProductID:         line.ProductID,
			ProductName:       line.ProductName,
			Quantity:          line.Quantity,
			UnitPrice:         line.UnitPrice,
			Discount:          line.Discount,
			LineTotal:         line.LineTotal,
			DeliveredQuantity: line.DeliveredQuantity,
		}
	}
	return OrderResponse{
		ID:              o.ID,
		Kind:            o.Kind,
		LocationID:      o.LocationID,
		PartyID:         o.PartyID,
		PartyName:       o.PartyName,
		Lines:           lines,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		ShippingFee:     o.ShippingFee,
		FinalTotal:      o.FinalTotal,
		DeliveryStatus:  o.DeliveryStatus,
		PaymentStatus:   o.PaymentStatus,
		PaidAmount:      o.PaidAmount,
		RemainingAmount: o.RemainingAmount,
		Notes:           o.Notes,
		Cancelled:       o.IsCancelled(),
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ListFilter holds query options for listing orders
type ListFilter struct {
	Page           int
	PageSize       int
	OrderBy        string
	OrderDir       string
	Kind           *order.Kind
	PartyID        *uuid.UUID
	PaymentStatus  *order.PaymentStatus
	DeliveryStatus *order.DeliveryStatus
	StartDate      *time.Time
	EndDate        *time.Time
}
