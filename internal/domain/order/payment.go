package order

import (
	"fmt"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/shared/valueobject"
)

// PaymentStatus represents how much of an order has been paid
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentResult holds the derived payment state for an order
type PaymentResult struct {
	Status    PaymentStatus
	Remaining valueobject.Money
}

// ComputePaymentStatus derives the payment status and remaining amount
// from the final total and the amount paid.
//
// Remaining is clamped at zero: an excess payment yields status PAID
// with remaining 0, the overpaid portion is not tracked as credit.
func ComputePaymentStatus(finalTotal, paidAmount valueobject.Money) (PaymentResult, error) {
	if finalTotal.IsNegative() {
		return PaymentResult{}, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Final total cannot be negative: %s", finalTotal))
	}
	if paidAmount.IsNegative() {
		return PaymentResult{}, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Paid amount cannot be negative: %s", paidAmount))
	}

	remaining, err := finalTotal.Subtract(paidAmount)
	if err != nil {
		return PaymentResult{}, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	switch {
	case remaining.IsNegative() || remaining.IsZero():
		return PaymentResult{
			Status:    PaymentPaid,
			Remaining: valueobject.Zero(finalTotal.Currency()),
		}, nil
	case paidAmount.IsZero():
		return PaymentResult{
			Status:    PaymentPending,
			Remaining: remaining,
		}, nil
	default:
		return PaymentResult{
			Status:    PaymentPartial,
			Remaining: remaining,
		}, nil
	}
}
