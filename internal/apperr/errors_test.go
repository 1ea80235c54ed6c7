package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		construct  func(string) *Error
		wantStatus int
		wantCode   string
	}{
		{"BadRequest", BadRequest, 400, CodeBadRequest},
		{"Unauthorized", Unauthorized, 401, CodeUnauthorized},
		{"Forbidden", Forbidden, 403, CodeForbidden},
		{"NotFound", NotFound, 404, CodeNotFound},
		{"Conflict", Conflict, 409, CodeConflict},
		{"Validation", Validation, 422, CodeValidation},
		{"RateLimit", RateLimit, 429, CodeRateLimit},
		{"Internal", Internal, 500, CodeInternal},
		{"ExternalAPI", ExternalAPI, 502, CodeExternalAPI},
		{"ServiceUnavailable", ServiceUnavailable, 503, CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.construct("boom")

			assert.Equal(t, "boom", err.Message)
			assert.Equal(t, "boom", err.Error())
			assert.Equal(t, tt.wantStatus, err.Status)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.True(t, err.Operational)
			assert.Nil(t, err.Details)
			assert.GreaterOrEqual(t, err.Status, 400)
			assert.LessOrEqual(t, err.Status, 599)
		})
	}
}

func TestError_WithDetails_ReturnsCopy(t *testing.T) {
	original := NotFound("flight offer not found")
	detailed := original.WithDetails(map[string]any{"offer_id": "off_123"})

	require.NotSame(t, original, detailed)
	assert.Nil(t, original.Details, "original must not be mutated")
	assert.Equal(t, map[string]any{"offer_id": "off_123"}, detailed.Details)
	assert.Equal(t, original.Message, detailed.Message)
	assert.Equal(t, original.Status, detailed.Status)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestError_ErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("fetching offer: %w", ExternalAPI("provider down"))

	var appErr *Error
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, CodeExternalAPI, appErr.Code)
	assert.Equal(t, 502, appErr.Status)
}

func TestError_ErrorsAs_NonTaxonomy(t *testing.T) {
	var appErr *Error
	assert.False(t, errors.As(errors.New("plain"), &appErr))
}

func TestErrorf(t *testing.T) {
	err := Errorf("unexpected state %q", "HALF_OPEN")

	assert.Equal(t, `unexpected state "HALF_OPEN"`, err.Message)
	assert.Equal(t, 500, err.Status)
	assert.Equal(t, CodeInternal, err.Code)
}
