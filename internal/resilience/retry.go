package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"slices"
	"time"

	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/platform/logging"
)

// Options configures a retry sequence. The zero value disables retries;
// DefaultOptions returns the standard policy for provider calls.
type Options struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// operation runs at most MaxRetries+1 times.
	MaxRetries int

	// Delay is the sleep before the first retry. Subsequent retries
	// multiply it by Multiplier. Defaults to 1s when unset.
	Delay time.Duration

	// Multiplier is the exponential backoff factor. Defaults to 2.
	Multiplier float64

	// RetryableCodes lists taxonomy codes that are considered transient.
	// Errors with HTTP status >= 500 and timeouts retry regardless.
	RetryableCodes []string
}

// DefaultOptions returns the standard retry policy: 3 retries starting at
// 1s with doubling backoff, retrying provider and availability failures.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		Delay:      time.Second,
		Multiplier: 2,
		RetryableCodes: []string{
			apperr.CodeExternalAPI,
			apperr.CodeServiceUnavailable,
		},
	}
}

func (o Options) withDefaults() Options {
	if o.Delay <= 0 {
		o.Delay = time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2
	}
	return o
}

// sleep waits for d or until ctx is cancelled. Overridable for testing.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op up to opts.MaxRetries+1 times, sleeping an exponentially
// increasing delay between attempts. Only transient failures retry:
// a taxonomy code listed in opts.RetryableCodes, a carried HTTP status of
// 500 or above, or a timeout. Non-retryable failures and the final failure
// propagate unchanged. Cancellation of ctx during the inter-attempt sleep
// aborts the sequence with ctx.Err().
func Do[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()
	log := logging.FromContext(ctx)

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= opts.MaxRetries || !isRetryable(err, opts.RetryableCodes) {
			return zero, err
		}

		delay := backoffDelay(opts, attempt)
		log.WarnContext(ctx, "retrying after transient failure",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", opts.MaxRetries),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
}

// backoffDelay computes the sleep before retry k (attempt is zero-based):
// Delay × Multiplier^k, with no jitter so the sequence stays predictable.
func backoffDelay(opts Options, attempt int) time.Duration {
	return time.Duration(float64(opts.Delay) * math.Pow(opts.Multiplier, float64(attempt)))
}

func isRetryable(err error, codes []string) bool {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if slices.Contains(codes, appErr.Code) {
			return true
		}
		if appErr.Status >= 500 {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// A deadline hit inside the operation counts as a timeout; the retry
	// sequence itself still stops when the outer ctx is done.
	return errors.Is(err, context.DeadlineExceeded)
}
