package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openpos/settlement/internal/domain/shared"
)

// DeliveryStatus represents how much of an order has been handed over
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryPartial   DeliveryStatus = "PARTIAL"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryAwaiting  DeliveryStatus = "AWAITING"
)

// IsValid checks if the status is a valid DeliveryStatus
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryPending, DeliveryPartial, DeliveryDelivered, DeliveryAwaiting:
		return true
	}
	return false
}

// String returns the string representation of DeliveryStatus
func (s DeliveryStatus) String() string {
	return string(s)
}

// ComputeLineDeliveries derives the delivered quantity of every line
// from the order-level delivery status and optional per-product overrides.
//
//   - DELIVERED: every line is fully delivered, overrides are ignored
//   - PARTIAL: a line's delivered quantity is its override, or zero
//     without one; an override above the ordered quantity is rejected
//     rather than clamped so over-deliveries surface in audits
//   - PENDING and AWAITING: nothing is delivered
//
// The input lines are not mutated; a new slice is returned.
func ComputeLineDeliveries(lines []Line, status DeliveryStatus, overrides map[uuid.UUID]decimal.Decimal) ([]Line, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_DELIVERY_STATUS",
			fmt.Sprintf("Unknown delivery status: %s", status))
	}

	result := make([]Line, len(lines))
	copy(result, lines)

	for i := range result {
		switch status {
		case DeliveryDelivered:
			result[i].DeliveredQuantity = result[i].Quantity
		case DeliveryPartial:
			requested, ok := overrides[result[i].ProductID]
			if !ok {
				result[i].DeliveredQuantity = decimal.Zero
				continue
			}
			if requested.IsNegative() {
				return nil, shared.NewDomainError("INVALID_QUANTITY",
					fmt.Sprintf("Delivered quantity for product %s cannot be negative", result[i].ProductID))
			}
			if requested.GreaterThan(result[i].Quantity) {
				return nil, shared.NewDomainError("OVER_DELIVERY",
					fmt.Sprintf("Product %s: delivered %s exceeds ordered %s",
						result[i].ProductID, requested, result[i].Quantity))
			}
			result[i].DeliveredQuantity = requested
		default:
			result[i].DeliveredQuantity = decimal.Zero
		}
	}

	return result, nil
}
