// Package retry implements retry-with-backoff, grounded on
// original_source/Libraries/LibCore/RetryPolicy.{h,cpp}, adapted to Go's
// explicit-error-return idiom (ErrorOr<T>::execute becomes a generic
// Execute[T] taking a func() (T, error)) and using the errs.Predicate
// taxonomy in place of the original's Error-category predicates.
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelcore/resilience/errs"
	"github.com/sentinelcore/resilience/internal/clock"
	"github.com/sentinelcore/resilience/telemetry"
)

// Settings configures a Policy.
type Settings struct {
	// Name identifies this policy for logging/metrics.
	Name string

	// MaxAttempts is the maximum number of attempts including the first.
	// Must be >= 1. Defaults to 3 if zero.
	MaxAttempts int

	// InitialDelay is the delay before the first retry. Defaults to 100ms.
	InitialDelay time.Duration

	// MaxDelay caps the computed backoff delay. Defaults to 10s.
	MaxDelay time.Duration

	// BackoffMultiplier multiplies the delay after each attempt. Defaults
	// to 2.0.
	BackoffMultiplier float64

	// JitterFactor is the fraction of the computed delay randomized in
	// either direction, e.g. 0.1 means +/-10%. Must be in [0, 1]; zero
	// disables jitter and is not defaulted to anything else since it is
	// itself a meaningful, deliberate choice.
	JitterFactor float64

	// Predicate decides whether an error is worth retrying. Defaults to
	// "retry everything".
	Predicate errs.Predicate

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Sink defaults to telemetry.Noop().
	Sink telemetry.Sink

	// Tracer defaults to telemetry.NoopTracer(). Set it to emit an
	// OpenTelemetry span around every ExecuteContext call, the same seam
	// breaker.Settings exposes.
	Tracer telemetry.Tracer

	// clock is swappable in tests.
	clock clock.Clock

	// rand is swappable in tests for deterministic jitter.
	rand *rand.Rand
}

// Metrics mirrors RetryPolicy::Metrics: counters observed across every
// Execute call made through this Policy.
type Metrics struct {
	TotalExecutions      uint64
	TotalAttempts        uint64
	SuccessfulExecutions uint64
	FailedExecutions     uint64
	RetriedExecutions    uint64
	LastExecution        time.Time
	LastSuccess          time.Time
	LastFailure          time.Time
}

// Policy executes functions with exponential backoff and jitter.
type Policy struct {
	name              string
	maxAttempts       int
	initialDelay      time.Duration
	maxDelay          time.Duration
	backoffMultiplier float64
	jitterFactor      float64
	predicate         errs.Predicate
	logger            *zap.Logger
	sink              telemetry.Sink
	tracer            telemetry.Tracer
	clock             clock.Clock

	mu      sync.Mutex
	rnd     *rand.Rand
	metrics Metrics
}

// New creates a Policy, defaulting unset fields the way RetryPolicy's
// constructor defaults its parameters. Panics if any of MaxAttempts,
// BackoffMultiplier, JitterFactor, or the MaxDelay/InitialDelay relationship
// violates the invariants spec.md §4.3/§9 require of construction
// ("exceptions vs result values" reserves panics for exactly this case,
// naming a negative JitterFactor as the canonical example).
func New(settings Settings) *Policy {
	if settings.MaxAttempts < 0 {
		panic("retry: MaxAttempts must be >= 0")
	}
	if settings.JitterFactor < 0 || settings.JitterFactor > 1 {
		panic("retry: JitterFactor must be in [0, 1]")
	}

	maxAttempts := settings.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	initialDelay := settings.InitialDelay
	if initialDelay == 0 {
		initialDelay = 100 * time.Millisecond
	}
	maxDelay := settings.MaxDelay
	if maxDelay == 0 {
		maxDelay = 10 * time.Second
	}
	if maxDelay < initialDelay {
		panic("retry: MaxDelay must be >= InitialDelay")
	}
	multiplier := settings.BackoffMultiplier
	if multiplier == 0 {
		multiplier = 2.0
	}
	if multiplier < 1.0 {
		panic("retry: BackoffMultiplier must be >= 1.0")
	}
	jitter := settings.JitterFactor
	// JitterFactor of exactly 0 is a valid, meaningful choice (disable
	// jitter), so it is not defaulted like the others.

	predicate := settings.Predicate
	if predicate == nil {
		predicate = func(error) bool { return true }
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
	rnd := settings.rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Policy{
		name:              settings.Name,
		maxAttempts:       maxAttempts,
		initialDelay:      initialDelay,
		maxDelay:          maxDelay,
		backoffMultiplier: multiplier,
		jitterFactor:      jitter,
		predicate:         predicate,
		logger:            logger,
		sink:              sink,
		tracer:            tracer,
		clock:             c,
		rnd:               rnd,
	}
}

// CalculateNextDelay returns the backoff delay before the given 0-based
// retry attempt (0 = delay before the first retry), including jitter,
// capped at MaxDelay.
func (p *Policy) CalculateNextDelay(attempt int) time.Duration {
	base := float64(p.initialDelay) * pow(p.backoffMultiplier, float64(attempt))
	if base > float64(p.maxDelay) {
		base = float64(p.maxDelay)
	}

	if p.jitterFactor <= 0 {
		return time.Duration(base)
	}

	p.mu.Lock()
	jitterMultiplier := 1.0 + (p.rnd.Float64()*2-1)*p.jitterFactor
	p.mu.Unlock()

	delay := time.Duration(base * jitterMultiplier)
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

func pow(base, exp float64) float64 {
	if exp == 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}

// Execute runs fn, retrying on retryable errors per the configured
// predicate and backoff schedule. Equivalent to ExecuteContext with
// context.Background().
func Execute[T any](p *Policy, fn func() (T, error)) (T, error) {
	return ExecuteContext(context.Background(), p, fn)
}

// ExecuteContext runs fn with retry, aborting early if ctx is canceled
// while sleeping between attempts or before the next attempt starts.
func ExecuteContext[T any](ctx context.Context, p *Policy, fn func() (T, error)) (T, error) {
	p.recordExecutionStart()

	ctx, span := p.tracer.StartSpan(ctx, p.name, "execute")
	var spanErr error
	defer func() { p.tracer.EndSpan(span, spanErr) }()

	var zero T
	lastErr := errs.New(errs.Other, "retry: no attempts made")
	neededRetry := false

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			p.recordFailure(neededRetry)
			spanErr = err
			return zero, err
		}

		p.recordAttempt()
		value, err := fn()
		if err == nil {
			p.recordSuccess(neededRetry)
			p.sink.RecordRetryAttempt(p.name, attempt, true, 0)
			return value, nil
		}

		lastErr = classify(err)

		if attempt+1 >= p.maxAttempts || !p.predicate(lastErr) {
			p.sink.RecordRetryAttempt(p.name, attempt, false, 0)
			break
		}

		neededRetry = true
		delay := p.CalculateNextDelay(attempt)
		p.sink.RecordRetryAttempt(p.name, attempt, false, delay)
		p.logger.Debug("retrying after delay",
			zap.String("policy", p.name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		done := ctx.Done()
		if !p.clock.Sleep(delay, done) {
			p.recordFailure(neededRetry)
			spanErr = ctx.Err()
			return zero, ctx.Err()
		}
	}

	p.recordFailure(neededRetry)
	spanErr = lastErr
	return zero, lastErr
}

func classify(err error) *errs.Error {
	if e, ok := err.(*errs.Error); ok {
		return e
	}
	return errs.FromNetErr(err)
}

func (p *Policy) recordExecutionStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TotalExecutions++
	p.metrics.LastExecution = p.clock.Now()
}

func (p *Policy) recordAttempt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TotalAttempts++
}

func (p *Policy) recordSuccess(neededRetry bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.SuccessfulExecutions++
	p.metrics.LastSuccess = p.clock.Now()
	if neededRetry {
		p.metrics.RetriedExecutions++
	}
}

// recordFailure records a failed execution. neededRetry must be true iff at
// least one retry was attempted before giving up, per spec.md §4.3's
// metrics contract: "retried_executions counts executions that required at
// least one retry, regardless of whether they ultimately succeeded."
func (p *Policy) recordFailure(neededRetry bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.FailedExecutions++
	p.metrics.LastFailure = p.clock.Now()
	if neededRetry {
		p.metrics.RetriedExecutions++
	}
}

// Metrics returns a snapshot of accumulated counters.
func (p *Policy) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// ResetMetrics zeroes all counters.
func (p *Policy) ResetMetrics() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = Metrics{}
}

// MaxAttempts returns the configured maximum attempt count.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// InitialDelay returns the configured initial delay.
func (p *Policy) InitialDelay() time.Duration { return p.initialDelay }

// MaxDelay returns the configured delay cap.
func (p *Policy) MaxDelay() time.Duration { return p.maxDelay }
