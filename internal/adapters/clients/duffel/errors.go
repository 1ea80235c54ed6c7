package duffel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voyago/booking-api/internal/apperr"
)

// errorResponse is the Duffel error envelope: a list of error objects plus
// request metadata.
type errorResponse struct {
	Errors []errorDetail `json:"errors"`
	Meta   errorMeta     `json:"meta"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMeta struct {
	RequestID string `json:"request_id"`
	Status    int    `json:"status"`
}

// APIError is a non-2xx response from Duffel. It carries the provider's
// status and messages so the error normalizer can surface them.
type APIError struct {
	Status    int
	RequestID string
	Errors    []errorDetail
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("duffel: HTTP %d", e.Status)
	}

	messages := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		messages = append(messages, d.Message)
	}

	return fmt.Sprintf("duffel: HTTP %d: %s", e.Status, strings.Join(messages, "; "))
}

// ProviderStatus returns the HTTP status Duffel responded with.
func (e *APIError) ProviderStatus() int {
	return e.Status
}

// ProviderMessages returns the individual error messages from the response.
func (e *APIError) ProviderMessages() []string {
	messages := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		messages = append(messages, d.Message)
	}

	return messages
}

// decodeError turns a non-2xx response into an error. A 404 becomes a
// taxonomy NotFound directly; everything else is returned as *APIError for
// the normalizer to classify.
func decodeError(resp *http.Response, resource, id string) error {
	if resp.StatusCode == http.StatusNotFound {
		drainBody(resp)
		return apperr.NotFound(fmt.Sprintf("%s %s not found", resource, id))
	}

	apiErr := &APIError{Status: resp.StatusCode}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Errors = body.Errors
		apiErr.RequestID = body.Meta.RequestID
	}

	return apiErr
}

// drainBody discards the remaining body so the connection can be reused.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
}
