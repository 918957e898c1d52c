// Package ratelimit implements a token-bucket rate limiter, grounded on
// original_source/Libraries/LibCore/RateLimiter.{h,cpp} and written in the
// lock-free atomic-field style breaker uses (atomic.Uint64 storing
// math.Float64bits for the fractional token count, atomic.Int64 storing
// UnixNano for last_refill).
package ratelimit

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/sentinelcore/resilience/internal/clock"
	"github.com/sentinelcore/resilience/telemetry"
)

// Settings configures a Limiter. Bucket starts full.
type Settings struct {
	// Name identifies this limiter for logging/metrics.
	Name string

	// Capacity is the maximum (burst) token count. Must be > 0.
	Capacity float64

	// RefillRatePerSecond is how many tokens are added back per second.
	// Must be > 0.
	RefillRatePerSecond float64

	// Sink receives allow/refuse decisions. Defaults to telemetry.Noop().
	Sink telemetry.Sink

	// clock is swappable in tests; production callers never set this.
	clock clock.Clock
}

// Limiter is a thread-safe token-bucket rate limiter.
//
// Open Question resolution (§9): this implementation does NOT snap
// last_refill to now on every refill. Instead it advances last_refill by
// the exact duration consumed by the whole tokens added, retaining any
// sub-second remainder for the next call. This avoids the underdelivery the
// spec's open question flags as a possible bug: a limiter refilling at 1
// token/10s that is polled every second would otherwise never accumulate a
// token under the naive "snap to now" approach once elapsed time is
// repeatedly reset below a whole token.
type Limiter struct {
	name     string
	capacity float64
	rate     float64
	sink     telemetry.Sink
	clock    clock.Clock

	tokens     atomic.Uint64 // float64 bits
	lastRefill atomic.Int64  // UnixNano
}

// New creates a Limiter. Panics if Capacity or RefillRatePerSecond is not
// strictly positive, matching the construction-time-only invariant
// enforcement convention used throughout this module.
func New(settings Settings) *Limiter {
	if settings.Capacity <= 0 {
		panic("ratelimit: Capacity must be > 0")
	}
	if settings.RefillRatePerSecond <= 0 {
		panic("ratelimit: RefillRatePerSecond must be > 0")
	}

	c := settings.clock
	if c == nil {
		c = clock.Real
	}
	sink := settings.Sink
	if sink == nil {
		sink = telemetry.Noop()
	}

	l := &Limiter{
		name:     settings.Name,
		capacity: settings.Capacity,
		rate:     settings.RefillRatePerSecond,
		sink:     sink,
		clock:    c,
	}
	l.tokens.Store(math.Float64bits(settings.Capacity))
	l.lastRefill.Store(c.Now().UnixNano())
	return l
}

// TryConsume attempts to consume n tokens (default 1 via ConsumeOne),
// refilling lazily first. Returns true and subtracts n if tokens >= n;
// otherwise returns false and leaves the bucket unchanged.
func (l *Limiter) TryConsume(n float64) bool {
	now := l.clock.Now()
	for {
		before := l.tokens.Load()
		lastBefore := l.lastRefill.Load()

		tokens, advancedTo := l.refillFrom(before, lastBefore, now)

		if tokens < n {
			l.sink.RecordRateLimitDecision(l.name, false, tokens)
			return false
		}

		after := tokens - n
		if l.tokens.CompareAndSwap(before, math.Float64bits(after)) {
			l.lastRefill.CompareAndSwap(lastBefore, advancedTo)
			l.sink.RecordRateLimitDecision(l.name, true, after)
			return true
		}
		// Lost the race to a concurrent caller; retry with fresh state.
	}
}

func (l *Limiter) refillFrom(tokensBits uint64, last int64, now time.Time) (float64, int64) {
	current := math.Float64frombits(tokensBits)
	elapsed := now.Sub(time.Unix(0, last))
	if elapsed <= 0 {
		return current, last
	}
	added := elapsed.Seconds() * l.rate
	newTokens := current + added
	if newTokens > l.capacity {
		newTokens = l.capacity
	}
	actualAdded := newTokens - current
	var consumedNanos int64
	if actualAdded > 0 && l.rate > 0 {
		consumedNanos = int64((actualAdded / l.rate) * float64(time.Second))
	}
	if consumedNanos > int64(elapsed) {
		consumedNanos = int64(elapsed)
	}
	return newTokens, last + consumedNanos
}

// ConsumeOne consumes a single token; equivalent to TryConsume(1).
func (l *Limiter) ConsumeOne() bool { return l.TryConsume(1) }

// WouldAllow is a side-effect-free peek: it reports whether n tokens would
// be available after refill, without mutating state.
func (l *Limiter) WouldAllow(n float64) bool {
	tokens, _ := l.refillFrom(l.tokens.Load(), l.lastRefill.Load(), l.clock.Now())
	return tokens >= n
}

// AvailableTokens returns the token count after a notional refill, without
// mutating state.
func (l *Limiter) AvailableTokens() float64 {
	tokens, _ := l.refillFrom(l.tokens.Load(), l.lastRefill.Load(), l.clock.Now())
	return tokens
}

// Reset sets tokens to capacity and last_refill to now.
func (l *Limiter) Reset() {
	l.tokens.Store(math.Float64bits(l.capacity))
	l.lastRefill.Store(l.clock.Now().UnixNano())
}

// Capacity returns the configured burst capacity.
func (l *Limiter) Capacity() float64 { return l.capacity }

// RefillRatePerSecond returns the configured refill rate.
func (l *Limiter) RefillRatePerSecond() float64 { return l.rate }
