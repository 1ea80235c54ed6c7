package resilience

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/platform/logging"
)

// recordSleeps replaces the inter-attempt sleep and captures requested
// delays. Restored via t.Cleanup.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()

	var delays []time.Duration
	original := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = original })
	return &delays
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	delays := recordSleeps(t)

	var calls int
	result, err := Do(context.Background(), DefaultOptions(), func(context.Context) (string, error) {
		calls++
		return "offer", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "offer", result)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDo_RetriesWithExponentialBackoff(t *testing.T) {
	delays := recordSleeps(t)

	opts := Options{
		MaxRetries:     2,
		Delay:          100 * time.Millisecond,
		Multiplier:     2,
		RetryableCodes: []string{apperr.CodeExternalAPI},
	}

	failure := apperr.ExternalAPI("provider down")
	var calls int
	_, err := Do(context.Background(), opts, func(context.Context) (string, error) {
		calls++
		return "", failure
	})

	// maxRetries = n gives exactly n+1 invocations and delays
	// retryDelay x multiplier^(k-1) before retry k.
	require.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestDo_PropagatesLastErrorUnwrapped(t *testing.T) {
	recordSleeps(t)

	attempts := []error{
		apperr.ExternalAPI("first failure"),
		apperr.ExternalAPI("final failure"),
	}
	var calls int
	_, err := Do(context.Background(), Options{MaxRetries: 1, RetryableCodes: []string{apperr.CodeExternalAPI}},
		func(context.Context) (int, error) {
			err := attempts[calls]
			calls++
			return 0, err
		})

	assert.Same(t, attempts[1], err)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	delays := recordSleeps(t)

	failure := apperr.NotFound("offer expired")
	var calls int
	_, err := Do(context.Background(), DefaultOptions(), func(context.Context) (string, error) {
		calls++
		return "", failure
	})

	require.ErrorIs(t, err, failure)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDo_RetryConditions(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		codes     []string
		retryable bool
	}{
		{"code in retryable set", apperr.ExternalAPI("bad gateway"), []string{apperr.CodeExternalAPI}, true},
		{"status >= 500 without code match", apperr.Internal("boom"), nil, true},
		{"service unavailable via status", apperr.ServiceUnavailable("open circuit"), nil, true},
		{"network timeout", timeoutError{}, nil, true},
		{"deadline exceeded", context.DeadlineExceeded, nil, true},
		{"wrapped deadline", errors.New("wrapped: " + context.DeadlineExceeded.Error()), nil, false},
		{"4xx taxonomy error", apperr.Conflict("duplicate booking"), nil, false},
		{"plain error", errors.New("parse failure"), nil, false},
		{"4xx code listed explicitly", apperr.RateLimit("throttled"), []string{apperr.CodeRateLimit}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err, tt.codes))
		})
	}
}

func TestDo_ZeroRetriesSingleAttempt(t *testing.T) {
	delays := recordSleeps(t)

	var calls int
	_, err := Do(context.Background(), Options{MaxRetries: 0}, func(context.Context) (string, error) {
		calls++
		return "", apperr.Internal("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDo_CancellationDuringSleep(t *testing.T) {
	original := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	t.Cleanup(func() { sleep = original })

	var calls int
	_, err := Do(context.Background(), Options{MaxRetries: 3}, func(context.Context) (string, error) {
		calls++
		return "", apperr.Internal("boom")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no further attempts after cancellation")
}

func TestDo_LogsEachRetry(t *testing.T) {
	recordSleeps(t)

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := logging.WithContext(context.Background(), logger)

	_, _ = Do(ctx, Options{MaxRetries: 2, RetryableCodes: []string{apperr.CodeExternalAPI}},
		func(context.Context) (string, error) {
			return "", apperr.ExternalAPI("provider down")
		})

	out := buf.String()
	assert.Contains(t, out, "retrying after transient failure")
	assert.Contains(t, out, "attempt=1")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, "max_retries=2")
	assert.Contains(t, out, "provider down")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, time.Second, opts.Delay)
	assert.Equal(t, float64(2), opts.Multiplier)
	assert.Contains(t, opts.RetryableCodes, apperr.CodeExternalAPI)
	assert.Contains(t, opts.RetryableCodes, apperr.CodeServiceUnavailable)
}

func TestBackoffDelay(t *testing.T) {
	opts := Options{Delay: 50 * time.Millisecond, Multiplier: 3}

	assert.Equal(t, 50*time.Millisecond, backoffDelay(opts, 0))
	assert.Equal(t, 150*time.Millisecond, backoffDelay(opts, 1))
	assert.Equal(t, 450*time.Millisecond, backoffDelay(opts, 2))
}
