package apperr

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/voyago/booking-api/internal/platform/logging"
)

// Report emits err to the request-scoped logger. Operational taxonomy errors
// are expected failure modes and go out at warn level with their code, status
// and details. Everything else is treated as an unexpected fault and logged
// at error level with a stack trace.
//
// Report never alters err or its propagation; callers still return the error
// up the stack.
func Report(ctx context.Context, err error) {
	if err == nil {
		return
	}

	log := logging.FromContext(ctx)

	var appErr *Error
	if errors.As(err, &appErr) && appErr.Operational {
		attrs := []any{
			slog.String("code", appErr.Code),
			slog.Int("status", appErr.Status),
		}
		if appErr.Details != nil {
			attrs = append(attrs, slog.Any("details", appErr.Details))
		}
		log.WarnContext(ctx, appErr.Message, attrs...)
		return
	}

	log.ErrorContext(ctx, err.Error(),
		slog.String("stack", string(debug.Stack())),
	)
}
