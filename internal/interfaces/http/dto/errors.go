package dto

import "net/http"

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Input problems map to 400, missing resources to 404, duplicate submission
// to 409 and business-rule refusals to 422.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Input errors
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_INVOICE_DATE": http.StatusBadRequest,
	"INVALID_DUE_DATE":     http.StatusBadRequest,

	// Attachment validation
	"TOO_MANY_ATTACHMENTS":        http.StatusBadRequest,
	"DUPLICATE_ATTACHMENT":        http.StatusBadRequest,
	"ATTACHMENTS_TOO_LARGE":       http.StatusBadRequest,
	"ATTACHMENT_TOO_LARGE":        http.StatusBadRequest,
	"INVALID_ATTACHMENT":          http.StatusBadRequest,
	"INVALID_ATTACHMENT_NAME":     http.StatusBadRequest,
	"UNSUPPORTED_ATTACHMENT_TYPE": http.StatusBadRequest,
	"EMPTY_ATTACHMENT":            http.StatusBadRequest,

	// Missing resources
	"NOT_FOUND":              http.StatusNotFound,
	"ARRIVAL_NOT_FOUND":      http.StatusNotFound,
	"PAYMENT_TERM_NOT_FOUND": http.StatusNotFound,

	// Conflicts
	"ALREADY_EXISTS":     http.StatusConflict,
	"CREATION_IN_FLIGHT": http.StatusConflict,

	// Business rule refusals
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"EMPTY_SELECTION":      http.StatusUnprocessableEntity,
	"MULTI_VENDOR":         http.StatusUnprocessableEntity,
	"MULTI_ENTITY":         http.StatusUnprocessableEntity,
	"MIXED_VENDOR_TYPE":    http.StatusUnprocessableEntity,
	"PO_QUANTITY_EXCEEDED": http.StatusUnprocessableEntity,
	"NOTHING_TO_INVOICE":   http.StatusUnprocessableEntity,
	"INVOICE_PAID":         http.StatusUnprocessableEntity,
	"INVOICE_HAS_LINES":    http.StatusUnprocessableEntity,
	"RATE_UNAVAILABLE":     http.StatusUnprocessableEntity,

	// Infrastructure failures surfaced by the creation transaction
	"UPLOAD_FAILURE":      http.StatusBadGateway,
	"PERSISTENCE_FAILURE": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes default to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
