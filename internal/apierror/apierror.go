// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
//
// Every failure carries a stable machine-readable Code alongside the free-text
// Detail so that callers can branch on the reason without parsing messages.
package apierror

// Stable reason codes. These are part of the wire contract — never rename.
const (
	CodeValidation           = "validation_failed"
	CodeNotFound             = "not_found"
	CodeUnauthorized         = "unauthorized"
	CodeAlreadyCancelled     = "already_cancelled"
	CodeCancelOfCancellation = "cannot_cancel_a_cancellation"
	CodeMissingSupplierField = "missing_supplier_field"
	CodeRateLimited          = "rate_limited"
	CodeInternal             = "internal_error"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func New(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// Internal is shorthand for an opaque 500-class envelope.
func Internal(msg string) *APIError {
	return &APIError{Code: CodeInternal, Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Detail: "Validierung fehlgeschlagen", Fields: fields}
}
