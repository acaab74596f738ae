package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// Settlement errors
	ErrInvalidAmount     = NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	ErrEmptyOrder        = NewDomainError("EMPTY_ORDER", "Order must contain at least one line")
	ErrOverDelivery      = NewDomainError("OVER_DELIVERY", "Delivered quantity exceeds ordered quantity")
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrStockConflict     = NewDomainError("STOCK_CONFLICT", "Stock balance was modified concurrently")
	ErrTimeout           = NewDomainError("TIMEOUT", "Operation timed out")
	ErrStoreUnavailable  = NewDomainError("STORE_UNAVAILABLE", "Backing store is unavailable")
)
