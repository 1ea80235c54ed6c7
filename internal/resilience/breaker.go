// Package resilience provides the retry and circuit-breaker primitives that
// guard calls to external dependencies (flight provider, database, booking
// provider). One CircuitBreaker is created per dependency at process start
// and injected into the adapter that owns the dependency.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voyago/booking-api/internal/apperr"
)

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed is the normal operating state. Calls are allowed through.
	StateClosed State = iota

	// StateOpen is the failing state. Calls are rejected without reaching
	// the dependency until the cooldown expires.
	StateOpen

	// StateHalfOpen is the recovery probing state. A single trial call is
	// allowed through to test whether the dependency has recovered.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Name identifies the guarded dependency in logs and snapshots.
	Name string

	// Threshold is the number of consecutive failures in closed state
	// before the circuit opens. Defaults to 5.
	Threshold int

	// Timeout is the cooldown after opening before a trial call is
	// allowed. Defaults to 60s.
	Timeout time.Duration

	// MonitoringPeriod is accepted for configuration compatibility but the
	// failure count does not decay over time while closed; it only resets
	// on success. Defaults to 120s.
	MonitoringPeriod time.Duration
}

func (cfg BreakerConfig) withDefaults() BreakerConfig {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MonitoringPeriod <= 0 {
		cfg.MonitoringPeriod = 120 * time.Second
	}
	return cfg
}

// Snapshot is a read-only view of breaker state.
type Snapshot struct {
	Name         string
	State        State
	FailureCount int
	NextAttempt  time.Time
}

// CircuitBreaker guards a single external dependency.
//
// State transitions:
//   - Closed → Open: after Threshold consecutive failures
//   - Open → HalfOpen: first call at or after NextAttempt becomes the trial
//   - HalfOpen → Closed: trial call succeeds
//   - HalfOpen → Open: trial call fails, cooldown restarts
//
// While open (or while a half-open trial is in flight) calls are rejected
// with apperr.ServiceUnavailable without invoking the operation. Failures
// from the operation itself always propagate unchanged. Only dependency
// failures count toward the threshold; see countsAsFailure.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failureCount  int
	nextAttempt   time.Time
	trialInFlight bool
	cfg           BreakerConfig

	// onStateChange is called when the state changes. Used for logging/metrics.
	onStateChange func(name string, from, to State)

	// now is overridable for testing.
	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker for one dependency.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state: StateClosed,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// OnStateChange sets a callback invoked on every state transition.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Name returns the name of the guarded dependency.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Execute runs op through the breaker. If the circuit is open the call is
// rejected with apperr.ServiceUnavailable and op is never invoked. Errors
// returned by op propagate unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	trial, err := cb.acquire()
	if err != nil {
		return err
	}

	opErr := op(ctx)
	cb.record(trial, !countsAsFailure(opErr))
	return opErr
}

// countsAsFailure reports whether err indicates the dependency itself is
// unhealthy. Operational taxonomy errors below 500 are business outcomes
// (not found, conflict, validation) returned over a working connection, so
// they do not move the breaker; a lookup miss must never open the circuit.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Operational && appErr.Status < 500 {
		return false
	}

	return true
}

// acquire decides whether a call may proceed. It returns whether the call is
// the half-open trial, or the rejection error.
func (cb *CircuitBreaker) acquire() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return false, nil

	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			return false, cb.rejection()
		}
		cb.transitionTo(StateHalfOpen)
		cb.trialInFlight = true
		return true, nil

	case StateHalfOpen:
		// Only one trial call probes recovery; concurrent calls are
		// rejected until it resolves.
		if cb.trialInFlight {
			return false, cb.rejection()
		}
		cb.trialInFlight = true
		return true, nil

	default:
		return false, cb.rejection()
	}
}

// record applies the call outcome. Closed-state bookkeeping only applies
// while the breaker is still closed; a call that resolves after the circuit
// opened must not disturb the open state.
func (cb *CircuitBreaker) record(trial, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
		if success {
			cb.transitionTo(StateClosed)
			cb.failureCount = 0
		} else {
			cb.transitionTo(StateOpen)
			cb.nextAttempt = cb.now().Add(cb.cfg.Timeout)
		}
		return
	}

	if cb.state != StateClosed {
		return
	}

	if success {
		cb.failureCount = 0
		return
	}

	cb.failureCount++
	if cb.failureCount >= cb.cfg.Threshold {
		cb.transitionTo(StateOpen)
		cb.nextAttempt = cb.now().Add(cb.cfg.Timeout)
	}
}

// State returns a read-only snapshot of the breaker.
func (cb *CircuitBreaker) State() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		Name:         cb.cfg.Name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		NextAttempt:  cb.nextAttempt,
	}
}

// Reset forces the breaker closed with a clean failure count. Administrative
// override; normal recovery goes through the half-open trial.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(StateClosed)
	cb.failureCount = 0
	cb.nextAttempt = cb.now()
	cb.trialInFlight = false
}

func (cb *CircuitBreaker) rejection() error {
	return apperr.ServiceUnavailable(
		fmt.Sprintf("%s is temporarily unavailable", cb.cfg.Name),
	).WithDetails(map[string]any{
		"dependency":   cb.cfg.Name,
		"next_attempt": cb.nextAttempt,
	})
}

// transitionTo changes state. Must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	if cb.onStateChange != nil {
		// Call in goroutine to avoid blocking while holding the lock.
		go cb.onStateChange(cb.cfg.Name, oldState, newState)
	}
}

// ExecuteWith runs an operation returning a value through cb.
func ExecuteWith[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
