// Package apperr defines the application error taxonomy shared by every layer.
//
// All failures that cross a layer boundary are expressed as *Error values with
// a fixed HTTP status and machine-readable code. Errors produced by the
// constructors in this package are operational: expected failure modes that
// handlers translate into responses without alarm. Anything else (panics,
// programming bugs, unclassified failures) is non-operational and reported
// with a stack trace.
package apperr

import "fmt"

// Codes carried by taxonomy errors. Clients switch on these, so they are
// part of the API contract and must not change.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeExternalAPI        = "EXTERNAL_API_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error is a classified application error. Values are immutable after
// construction; WithDetails returns a copy rather than mutating.
type Error struct {
	// Message is a human-readable description, safe to return to clients.
	Message string

	// Status is the HTTP status this error maps to, always in [400, 599].
	Status int

	// Operational reports whether this is an expected failure mode.
	// Operational errors are logged at warn level without a stack trace.
	Operational bool

	// Code is the machine-readable error code.
	Code string

	// Details optionally carries structured context (validation fields,
	// upstream error payloads). Values must be JSON-serializable.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetails returns a copy of e with the given details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

func newError(message string, status int, code string) *Error {
	return &Error{
		Message:     message,
		Status:      status,
		Operational: true,
		Code:        code,
	}
}

// BadRequest creates a 400 error for malformed or unparseable input.
func BadRequest(message string) *Error {
	return newError(message, 400, CodeBadRequest)
}

// Unauthorized creates a 401 error for missing or invalid credentials.
func Unauthorized(message string) *Error {
	return newError(message, 401, CodeUnauthorized)
}

// Forbidden creates a 403 error for authenticated but disallowed access.
func Forbidden(message string) *Error {
	return newError(message, 403, CodeForbidden)
}

// NotFound creates a 404 error for a missing resource.
func NotFound(message string) *Error {
	return newError(message, 404, CodeNotFound)
}

// Conflict creates a 409 error for state conflicts (duplicate booking,
// already-cancelled order).
func Conflict(message string) *Error {
	return newError(message, 409, CodeConflict)
}

// Validation creates a 422 error for well-formed input that fails
// business validation. Attach the field map via WithDetails.
func Validation(message string) *Error {
	return newError(message, 422, CodeValidation)
}

// RateLimit creates a 429 error for throttled callers.
func RateLimit(message string) *Error {
	return newError(message, 429, CodeRateLimit)
}

// Internal creates a 500 error. Unlike the other constructors this is the
// catch-all Normalize falls back to; it is still marked operational so that
// deliberately constructed internal errors do not page anyone. Unclassified
// raw errors reach the reporter as non-taxonomy values and get stacks there.
func Internal(message string) *Error {
	return newError(message, 500, CodeInternal)
}

// ExternalAPI creates a 502 error for upstream provider failures.
func ExternalAPI(message string) *Error {
	return newError(message, 502, CodeExternalAPI)
}

// ServiceUnavailable creates a 503 error. The circuit breaker rejects with
// this while open.
func ServiceUnavailable(message string) *Error {
	return newError(message, 503, CodeServiceUnavailable)
}

// Errorf is a convenience for formatted internal errors.
func Errorf(format string, args ...any) *Error {
	return Internal(fmt.Sprintf(format, args...))
}
