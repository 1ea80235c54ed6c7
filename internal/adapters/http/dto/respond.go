package dto

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/voyago/booking-api/internal/apperr"
)

// internalMessage is what clients see for unclassified failures. The raw
// message is reported before normalization and stays in the logs.
const internalMessage = "internal server error"

// clientError normalizes an error for the response body. Messages of errors
// that were never classified by the application are not forwarded to clients.
func clientError(err error) *apperr.Error {
	normalized := apperr.Normalize(err)

	var classified *apperr.Error
	if normalized.Code == apperr.CodeInternal && !errors.As(err, &classified) {
		return apperr.Internal(internalMessage)
	}

	return normalized
}

// RespondError reports the error and writes the normalized error envelope.
// The raw error is reported before normalization so unexpected failures are
// logged with their stack rather than as a generic internal error.
func RespondError(c *gin.Context, err error) {
	apperr.Report(c.Request.Context(), err)

	normalized := clientError(err)
	resp := NewErrorResponse(normalized)

	if traceID := GetTraceID(c); traceID != "" {
		resp.TraceID = traceID
	}

	// Stack traces help local debugging but never leave a release build.
	if normalized.Code == apperr.CodeInternal && gin.Mode() != gin.ReleaseMode {
		resp.Error.Stack = string(debug.Stack())
	}

	c.JSON(normalized.Status, resp)
}

// AbortError aborts the request chain and writes an error response.
// Use this in middleware when you want to stop further processing.
func AbortError(c *gin.Context, err error) {
	apperr.Report(c.Request.Context(), err)

	normalized := clientError(err)
	resp := NewErrorResponse(normalized)

	if traceID := GetTraceID(c); traceID != "" {
		resp.TraceID = traceID
	}

	c.AbortWithStatusJSON(normalized.Status, resp)
}

// RespondValidationErrors writes a 422 response with field-level errors from
// request binding.
func RespondValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	details := make(map[string]any, len(fieldErrors))
	for field, msg := range fieldErrors {
		details[field] = msg
	}

	RespondError(c, apperr.Validation("request validation failed").WithDetails(details))
}

// RespondBadRequest writes a 400 response for malformed requests (unreadable
// JSON, bad path or query parameters).
func RespondBadRequest(c *gin.Context, message string) {
	RespondError(c, apperr.BadRequest(message))
}

// Respond writes a payload in the success envelope.
func Respond[T any](c *gin.Context, status int, data T) {
	c.JSON(status, OK(data))
}

// RespondNoContent writes an empty 204 response.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
