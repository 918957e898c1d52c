// Package telemetry provides a dependency-injected metrics sink shared by
// the resilience primitives. Nothing here is a global singleton: callers
// construct one Sink at application startup and pass it into each
// primitive's Settings/Config, resolving the "cyclic references & global
// state" design note by replacing the original's process-wide metrics
// collector with explicit injection.
package telemetry

import "time"

// Sink receives observability events from the resilience primitives. All
// methods must be safe for concurrent use; implementations should not block
// the caller for long since they are invoked on the hot path of Execute,
// TryConsume, and similar calls.
type Sink interface {
	// RecordStateChange is called by the circuit breaker on every state
	// transition, including manual Trip/Reset.
	RecordStateChange(name string, from, to string)

	// RecordOutcome is called by the circuit breaker after every guarded
	// call that actually executed and whose context was not canceled, and
	// on every manual RecordSuccess/RecordFailure (not on fail-fast
	// rejections).
	RecordOutcome(name string, success bool, duration time.Duration)

	// RecordRateLimitDecision is called by the rate limiter on every
	// TryConsume, whether allowed or refused.
	RecordRateLimitDecision(name string, allowed bool, tokensRemaining float64)

	// RecordRetryAttempt is called by the retry policy after each attempt,
	// including the final one.
	RecordRetryAttempt(name string, attempt int, succeeded bool, delay time.Duration)

	// RecordFrame is called by the IPC reader/writer after a complete
	// message is produced or consumed, and on every read or write that
	// fails (with bytes 0 and err set).
	RecordFrame(name string, direction string, bytes int, err error)
}

type noop struct{}

func (noop) RecordStateChange(string, string, string)             {}
func (noop) RecordOutcome(string, bool, time.Duration)             {}
func (noop) RecordRateLimitDecision(string, bool, float64)         {}
func (noop) RecordRetryAttempt(string, int, bool, time.Duration)   {}
func (noop) RecordFrame(string, string, int, error)                {}

// Noop returns a Sink that discards every event. It is the default used by
// every primitive's Settings/Config when no Sink is supplied.
func Noop() Sink { return noop{} }
