// Package breaker implements a consecutive-failure circuit breaker,
// adapted from the atomic/CAS lock-free design in
// _examples/1mb-dev-autobreaker's internal/breaker package, generalized
// from that package's adaptive percentage-threshold model to the simpler
// consecutive-failure model a resilience core needs for protecting
// database, scanner, and IPC clients.
package breaker

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelcore/resilience/internal/clock"
	"github.com/sentinelcore/resilience/telemetry"
)

// CircuitBreaker protects a dependency from cascading failures using a
// three-state machine (Closed, Open, HalfOpen). All fields besides the
// immutable callbacks are atomic, so Execute never blocks on a lock for
// its state-machine bookkeeping; only the guarded call itself can block.
type CircuitBreaker struct {
	name string

	isSuccessful  func(error) bool
	onStateChange func(name string, from, to State)
	logger        *zap.Logger
	sink          telemetry.Sink
	tracer        telemetry.Tracer
	clock         clock.Clock

	failureThreshold atomic.Uint32
	successThreshold atomic.Uint32
	timeout          atomic.Int64 // time.Duration
	interval         atomic.Int64 // time.Duration

	state atomic.Int32

	requests             atomic.Uint32
	totalSuccesses       atomic.Uint32
	totalFailures        atomic.Uint32
	consecutiveSuccesses atomic.Uint32
	consecutiveFailures  atomic.Uint32

	// halfOpenInFlight enforces a single in-flight half-open probe,
	// generalizing the teacher's MaxRequests half-open limiter to the
	// spec's default of exactly one concurrent probe.
	halfOpenInFlight atomic.Bool

	// saturated is set once any counter above reaches math.MaxUint32 and
	// stops incrementing further, so Metrics() can flag the window as no
	// longer numerically accurate rather than silently wrapping.
	saturated atomic.Bool

	openedAt       atomic.Int64
	lastClearedAt  atomic.Int64
	stateChangedAt atomic.Int64
}

// New constructs a CircuitBreaker in the Closed state. Panics if Interval
// is negative; a zero FailureThreshold, SuccessThreshold, or Timeout takes
// its default.
func New(settings Settings) *CircuitBreaker {
	if settings.Interval < 0 {
		panic("breaker: Interval cannot be negative")
	}

	isSuccessful := settings.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = DefaultIsSuccessful
	}
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := settings.Sink
	if sink == nil {
		sink = telemetry.Noop()
	}
	tracer := settings.Tracer
	if tracer == nil {
		tracer = telemetry.NoopTracer()
	}
	c := settings.clock
	if c == nil {
		c = clock.Real
	}

	cb := &CircuitBreaker{
		name:          settings.Name,
		isSuccessful:  isSuccessful,
		onStateChange: settings.OnStateChange,
		logger:        logger,
		sink:          sink,
		tracer:        tracer,
		clock:         c,
	}

	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb.failureThreshold.Store(threshold)

	successThreshold := settings.SuccessThreshold
	if successThreshold == 0 {
		successThreshold = 1
	}
	cb.successThreshold.Store(successThreshold)

	timeout := settings.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	cb.timeout.Store(int64(timeout))
	cb.interval.Store(int64(settings.Interval))

	now := c.Now().UnixNano()
	cb.state.Store(int32(StateClosed))
	cb.lastClearedAt.Store(now)
	cb.stateChangedAt.Store(now)

	return cb
}

// Name returns the breaker's configured name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state.
func (cb *CircuitBreaker) State() State { return State(cb.state.Load()) }

// Counts returns a snapshot of the current observation window's counters.
func (cb *CircuitBreaker) Counts() Counts {
	return Counts{
		Requests:             cb.requests.Load(),
		TotalSuccesses:       cb.totalSuccesses.Load(),
		TotalFailures:        cb.totalFailures.Load(),
		ConsecutiveSuccesses: cb.consecutiveSuccesses.Load(),
		ConsecutiveFailures:  cb.consecutiveFailures.Load(),
	}
}

// IsRequestAllowed reports whether a request would currently be allowed
// through, without consuming a half-open probe slot or running anything.
// Closed and eligible-to-probe Open/HalfOpen states report true; an Open
// circuit still within its timeout reports false.
func (cb *CircuitBreaker) IsRequestAllowed() bool {
	switch cb.State() {
	case StateOpen:
		return cb.shouldTransitionToHalfOpen()
	case StateHalfOpen:
		return !cb.halfOpenInFlight.Load()
	default:
		return true
	}
}

// RecordSuccess manually records a success outcome and applies the same
// state-machine transition Execute would after a successful call. Intended
// for callers that perform the protected operation themselves rather than
// passing it as a closure to Execute.
func (cb *CircuitBreaker) RecordSuccess() {
	currentState := cb.State()
	cb.recordOutcome(true)
	cb.sink.RecordOutcome(cb.name, true, 0)
	cb.handleStateTransition(true, currentState)
}

// RecordFailure manually records a failure outcome and applies the same
// state-machine transition Execute would after a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	currentState := cb.State()
	cb.recordOutcome(false)
	cb.sink.RecordOutcome(cb.name, false, 0)
	cb.handleStateTransition(false, currentState)
}

// Execute runs req if the breaker allows it. Equivalent to
// ExecuteContext(context.Background(), req).
func (cb *CircuitBreaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	return cb.ExecuteContext(context.Background(), req)
}

// ExecuteContext runs req if the breaker allows it, respecting ctx
// cancellation. Context cancellation observed before or during req is
// returned as-is and is never counted as a breaker failure.
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, req func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := cb.tracer.StartSpan(ctx, cb.name, "execute")
	var spanErr error
	defer func() { cb.tracer.EndSpan(span, spanErr) }()

	if cb.interval.Load() > 0 && cb.State() == StateClosed {
		cb.maybeResetCounts()
	}

	currentState := cb.State()

	switch currentState {
	case StateOpen:
		if !cb.shouldTransitionToHalfOpen() {
			spanErr = ErrOpenState
			return nil, ErrOpenState
		}
		cb.transitionToHalfOpen()
		currentState = StateHalfOpen
	}

	if currentState == StateHalfOpen {
		if !cb.halfOpenInFlight.CompareAndSwap(false, true) {
			spanErr = ErrTooManyRequests
			return nil, ErrTooManyRequests
		}
		defer cb.halfOpenInFlight.Store(false)
	}

	cb.safeIncrement(&cb.requests, "requests")

	var result interface{}
	var err error
	panicked := false

	start := cb.clock.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				cb.recordOutcome(false)
				cb.sink.RecordOutcome(cb.name, false, cb.clock.Now().Sub(start))
				cb.handleStateTransition(false, currentState)
				spanErr = fmt.Errorf("breaker: request panicked: %v", r)
				panic(r)
			}
		}()
		result, err = req()
	}()

	if panicked {
		spanErr = err
		return result, err
	}

	if cancelErr := ctx.Err(); cancelErr != nil {
		spanErr = cancelErr
		return result, cancelErr
	}

	success := cb.isSuccessful(err)
	cb.recordOutcome(success)
	cb.sink.RecordOutcome(cb.name, success, cb.clock.Now().Sub(start))
	cb.handleStateTransition(success, currentState)

	spanErr = err
	return result, err
}

func (cb *CircuitBreaker) recordOutcome(success bool) {
	if success {
		cb.safeIncrement(&cb.totalSuccesses, "total_successes")
		cb.safeIncrement(&cb.consecutiveSuccesses, "consecutive_successes")
		cb.consecutiveFailures.Store(0)
	} else {
		cb.safeIncrement(&cb.totalFailures, "total_failures")
		cb.safeIncrement(&cb.consecutiveFailures, "consecutive_failures")
		cb.consecutiveSuccesses.Store(0)
	}
}

// safeIncrement increments counter unless it is already at math.MaxUint32,
// in which case it logs a saturation warning once and leaves the counter
// pinned at its max rather than wrapping to 0, adapted from the teacher's
// safeIncrementCounter/logCounterSaturation pair.
func (cb *CircuitBreaker) safeIncrement(counter *atomic.Uint32, name string) {
	for {
		current := counter.Load()
		if current == math.MaxUint32 {
			if !cb.saturated.Swap(true) {
				cb.logger.Warn("circuit breaker counter saturated",
					zap.String("breaker", cb.name),
					zap.String("counter", name),
					zap.Uint32("value", current),
				)
			}
			return
		}
		if counter.CompareAndSwap(current, current+1) {
			return
		}
	}
}

func (cb *CircuitBreaker) clearCounts() {
	cb.requests.Store(0)
	cb.totalSuccesses.Store(0)
	cb.totalFailures.Store(0)
	cb.consecutiveSuccesses.Store(0)
	cb.consecutiveFailures.Store(0)
	cb.saturated.Store(false)
}

// Trip forces the circuit Open regardless of current counts, for manual
// intervention (e.g. an operator taking a suspected-compromised backend
// offline). A no-op if the circuit is already Open, matching spec.md
// §4.1's "transitioning to the same state is a no-op": it neither re-stamps
// openedAt/stateChangedAt nor fires a spurious state-change notification.
func (cb *CircuitBreaker) Trip() {
	prev := cb.State()
	if prev == StateOpen {
		return
	}
	if !cb.state.CompareAndSwap(int32(prev), int32(StateOpen)) {
		return
	}
	cb.openedAt.Store(cb.clock.Now().UnixNano())
	cb.stateChangedAt.Store(cb.clock.Now().UnixNano())
	cb.clearCounts()
	cb.notifyStateChange(prev, StateOpen)
}

// Reset forces the circuit Closed and clears counts, for manual recovery
// after an operator confirms the backend is healthy. A no-op if the
// circuit is already Closed, for the same same-state-transition reason as
// Trip.
func (cb *CircuitBreaker) Reset() {
	prev := cb.State()
	if prev == StateClosed {
		return
	}
	cb.state.Store(int32(StateClosed))
	cb.stateChangedAt.Store(cb.clock.Now().UnixNano())
	cb.lastClearedAt.Store(cb.clock.Now().UnixNano())
	cb.clearCounts()
	cb.halfOpenInFlight.Store(false)
	cb.notifyStateChange(prev, StateClosed)
}

// ResetMetrics zeroes counters without changing state.
func (cb *CircuitBreaker) ResetMetrics() {
	cb.clearCounts()
}

func (cb *CircuitBreaker) notifyStateChange(from, to State) {
	cb.sink.RecordStateChange(cb.name, from.String(), to.String())
	cb.logger.Info("circuit breaker state change",
		zap.String("breaker", cb.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) maybeResetCounts() {
	interval := cb.interval.Load()
	if interval == 0 {
		return
	}
	last := cb.lastClearedAt.Load()
	if time.Duration(cb.clock.Now().UnixNano()-last) < time.Duration(interval) {
		return
	}
	cb.clearCounts()
	cb.lastClearedAt.Store(cb.clock.Now().UnixNano())
}
