package breaker

import (
	"time"

	"go.uber.org/zap"

	"github.com/sentinelcore/resilience/internal/clock"
	"github.com/sentinelcore/resilience/telemetry"
)

// Settings configures a CircuitBreaker at construction time.
//
// Unlike the adaptive, percentage-based thresholds an earlier generation of
// this package supported, trip decisions here are governed solely by
// ConsecutiveFailures, matching the predictable-under-low-traffic model a
// security-sensitive client (database, scanner, IPC peer) needs: a handful
// of real backend failures should trip the breaker regardless of how much
// traffic preceded them.
type Settings struct {
	// Name identifies this breaker for logging, metrics, and Diagnostics.
	Name string

	// FailureThreshold is the number of consecutive failures that trips
	// the circuit. Zero selects the default of 5.
	FailureThreshold uint32

	// SuccessThreshold is the number of consecutive successes required in
	// HalfOpen before the circuit closes. Any single failure in HalfOpen
	// reopens the circuit regardless of this value. Defaults to 1.
	SuccessThreshold uint32

	// Timeout is how long the circuit stays Open before allowing a single
	// half-open probe. Defaults to 60s.
	Timeout time.Duration

	// Interval resets counts on this period while Closed. Zero means
	// counts are only reset on state transitions. Must be >= 0.
	Interval time.Duration

	// IsSuccessful classifies the outcome of req(); default is err == nil.
	IsSuccessful func(error) bool

	// OnStateChange is invoked after every state transition, if set.
	OnStateChange func(name string, from, to State)

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Sink defaults to telemetry.Noop().
	Sink telemetry.Sink

	// Tracer defaults to telemetry.NoopTracer(). Set it to emit an
	// OpenTelemetry span around every ExecuteContext call.
	Tracer telemetry.Tracer

	clock clock.Clock
}

// DefaultIsSuccessful treats a nil error as success.
func DefaultIsSuccessful(err error) bool { return err == nil }

// SettingsUpdate carries partial runtime reconfiguration; nil fields are
// left unchanged. Only the values the breaker exposes as atomic fields can
// be updated without reconstructing the breaker.
type SettingsUpdate struct {
	FailureThreshold *uint32
	SuccessThreshold *uint32
	Timeout          *time.Duration
	Interval         *time.Duration
}
