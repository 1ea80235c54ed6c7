//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/booking-api/internal/adapters/clients"
	"github.com/voyago/booking-api/internal/apperr"
	"github.com/voyago/booking-api/internal/resilience"
)

// testClientConfig returns a client config for integration testing with fast
// retries.
func testClientConfig(baseURL string, breaker *resilience.CircuitBreaker) *clients.Config {
	return &clients.Config{
		ServiceName: "integration-test-service",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: resilience.Options{
			MaxRetries:     2,
			Delay:          10 * time.Millisecond,
			Multiplier:     2,
			RetryableCodes: []string{apperr.CodeExternalAPI, apperr.CodeServiceUnavailable},
		},
		Breaker: breaker,
	}
}

func testBreaker(threshold int, timeout time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:      "integration-test",
		Threshold: threshold,
		Timeout:   timeout,
	})
}

// TestClient_RetryBehavior_TransientFailures verifies that the client
// retries on transient server failures and eventually succeeds.
func TestClient_RetryBehavior_TransientFailures(t *testing.T) {
	var attempts int32

	// Server fails twice, then succeeds
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&attempts, 1)
		if count <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client, err := clients.New(testClientConfig(server.URL, testBreaker(10, time.Second)))
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts), "expected 3 attempts (2 failures + 1 success)")
}

// TestClient_CircuitBreaker_StateTransitions verifies the breaker opens after
// the failure threshold, rejects while open, and closes again after a
// successful trial call.
func TestClient_CircuitBreaker_StateTransitions(t *testing.T) {
	var calls int32
	var shouldFail atomic.Bool
	shouldFail.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if shouldFail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	breaker := testBreaker(2, 50*time.Millisecond)
	cfg := testClientConfig(server.URL, breaker)
	cfg.Retry.MaxRetries = 0 // No retries for clearer breaker accounting

	client, err := clients.New(cfg)
	require.NoError(t, err)

	// Phase 1: closed, failures accumulate
	assert.Equal(t, resilience.StateClosed, client.CircuitState().State)

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), "/failing")
		require.Error(t, err)
	}

	// Phase 2: open after the threshold
	assert.Equal(t, resilience.StateOpen, client.CircuitState().State)

	// Phase 3: requests are rejected without reaching the server
	callsBefore := atomic.LoadInt32(&calls)
	_, err = client.Get(context.Background(), "/failing")
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeServiceUnavailable, appErr.Code)
	assert.Equal(t, callsBefore, atomic.LoadInt32(&calls), "no server call when circuit is open")

	// Phase 4: after the cooldown a successful trial closes the circuit
	shouldFail.Store(false)
	time.Sleep(60 * time.Millisecond)

	resp, err := client.Get(context.Background(), "/recovered")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, resilience.StateClosed, client.CircuitState().State)
}

// TestClient_Timeout_SlowResponse verifies the per-attempt timeout is
// enforced.
func TestClient_Timeout_SlowResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond) // Slower than client timeout
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL, testBreaker(10, time.Second))
	cfg.Timeout = 50 * time.Millisecond
	cfg.Retry.MaxRetries = 0

	client, err := clients.New(cfg)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Get(context.Background(), "/slow")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

// TestClient_AuthHeaderOnEachAttempt verifies auth injection runs per attempt,
// not once per call.
func TestClient_AuthHeaderOnEachAttempt(t *testing.T) {
	var authedAttempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer test-token" {
			atomic.AddInt32(&authedAttempts, 1)
		}
		if atomic.LoadInt32(&authedAttempts) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL, testBreaker(10, time.Second))
	cfg.AuthFunc = func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer test-token")
	}

	client, err := clients.New(cfg)
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/secured")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&authedAttempts))
}
