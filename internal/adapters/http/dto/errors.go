// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/voyago/booking-api/internal/apperr"
)

// ErrorResponse is the standard error envelope for all error responses.
// Success is always false so clients can branch on a single field.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Code is a machine-readable error code (e.g., "NOT_FOUND", "VALIDATION_ERROR").
	Code string `json:"code"`

	// Details provides additional context about the error.
	// For validation errors, this contains field-level error messages.
	Details map[string]any `json:"details,omitempty"`

	// Stack carries the stack trace for unexpected errors. Only populated
	// outside release mode.
	Stack string `json:"stack,omitempty"`
}

// NewErrorResponse builds the error envelope for a normalized error.
func NewErrorResponse(normalized *apperr.Error) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: normalized.Message,
			Code:    normalized.Code,
			Details: normalized.Details,
		},
	}
}

// WithTraceID adds a trace ID to the error response.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// DataResponse is the standard success envelope.
type DataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// OK wraps a payload in the success envelope.
func OK[T any](data T) DataResponse[T] {
	return DataResponse[T]{
		Success: true,
		Data:    data,
	}
}

// GetTraceID extracts the OpenTelemetry trace ID from the request context.
// Returns an empty string when no span is recording.
func GetTraceID(c *gin.Context) string {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.SpanContext().HasTraceID() {
		return ""
	}

	return span.SpanContext().TraceID().String()
}
