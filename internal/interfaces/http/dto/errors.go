package dto

import "net/http"

// Error codes surfaced by the API. The domain layer produces most of
// these; the transport-only codes cover request parsing failures.
const (
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeInvalidJSON = "INVALID_JSON"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps domain and transport error codes to HTTP
// status codes. Unknown codes fall back to 500.
var errorCodeHTTPStatus = map[string]int{
	// Transport errors
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeInternal:    http.StatusInternalServerError,

	// Missing resources
	"NOT_FOUND": http.StatusNotFound,

	// Conflicts
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"STOCK_CONFLICT":       http.StatusConflict,
	"INVALID_STATE":        http.StatusConflict,

	// Validation failures
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_AMOUNT":          http.StatusBadRequest,
	"INVALID_KIND":            http.StatusBadRequest,
	"INVALID_LOCATION":        http.StatusBadRequest,
	"INVALID_PARTY":           http.StatusBadRequest,
	"INVALID_PRODUCT":         http.StatusBadRequest,
	"INVALID_PRODUCT_NAME":    http.StatusBadRequest,
	"INVALID_QUANTITY":        http.StatusBadRequest,
	"INVALID_PRICE":           http.StatusBadRequest,
	"INVALID_DISCOUNT":        http.StatusBadRequest,
	"INVALID_SHIPPING":        http.StatusBadRequest,
	"INVALID_REASON":          http.StatusBadRequest,
	"INVALID_DELIVERY_STATUS": http.StatusBadRequest,
	"INVALID_LINES":           http.StatusBadRequest,
	"INVALID_THRESHOLD":       http.StatusBadRequest,
	"DUPLICATE_PRODUCT":       http.StatusBadRequest,

	// Business rule violations
	"EMPTY_ORDER":        http.StatusUnprocessableEntity,
	"OVER_DELIVERY":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,

	// Infrastructure failures
	"TIMEOUT":           http.StatusGatewayTimeout,
	"STORE_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an error code,
// defaulting to 500 Internal Server Error
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
