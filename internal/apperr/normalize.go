package apperr

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
)

// ProviderFault is implemented by errors from external travel providers that
// carry an upstream HTTP status and one or more provider error messages.
// The Duffel adapter's APIError satisfies this.
type ProviderFault interface {
	error
	ProviderStatus() int
	ProviderMessages() []string
}

// Normalize maps an arbitrary error onto the taxonomy. It is total: every
// input, including nil-message errors, yields exactly one *Error, and it
// never fails itself. Already-classified errors pass through unchanged, so
// Normalize(Normalize(err)) == Normalize(err).
//
// Rules, first match wins:
//  1. *Error → unchanged.
//  2. Postgres driver error → BadRequest with the SQLSTATE and message.
//  3. ProviderFault → ExternalAPI with upstream status and messages.
//  4. validator.ValidationErrors → Validation with a field→message map.
//  5. Anything else → Internal.
func Normalize(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return BadRequest("database request failed").WithDetails(map[string]any{
			"sqlstate": pgErr.Code,
			"message":  pgErr.Message,
		})
	}

	var fault ProviderFault
	if errors.As(err, &fault) {
		return ExternalAPI("flight provider request failed").WithDetails(map[string]any{
			"status":          fault.ProviderStatus(),
			"provider_errors": fault.ProviderMessages(),
		})
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make(map[string]any, len(vErrs))
		for _, fe := range vErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return Validation("validation failed").WithDetails(fields)
	}

	msg := "internal server error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Internal(msg)
}
