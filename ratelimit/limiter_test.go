package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelcore/resilience/internal/clock"
)

func newTestLimiter(t *testing.T, capacity, rate float64) (*Limiter, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	l := New(Settings{
		Name:                "test",
		Capacity:            capacity,
		RefillRatePerSecond: rate,
		clock:               fc,
	})
	return l, fc
}

func TestNew_StartsFull(t *testing.T) {
	l, _ := newTestLimiter(t, 10, 1)
	assert.Equal(t, 10.0, l.AvailableTokens())
}

func TestNew_PanicsOnInvalidSettings(t *testing.T) {
	assert.Panics(t, func() { New(Settings{Capacity: 0, RefillRatePerSecond: 1}) })
	assert.Panics(t, func() { New(Settings{Capacity: 1, RefillRatePerSecond: 0}) })
}

func TestTryConsume_DrainsBucket(t *testing.T) {
	l, _ := newTestLimiter(t, 3, 1)
	require.True(t, l.TryConsume(1))
	require.True(t, l.TryConsume(1))
	require.True(t, l.TryConsume(1))
	require.False(t, l.TryConsume(1))
}

func TestTryConsume_RefillsOverTime(t *testing.T) {
	l, fc := newTestLimiter(t, 5, 1)
	for i := 0; i < 5; i++ {
		require.True(t, l.TryConsume(1))
	}
	require.False(t, l.TryConsume(1))

	fc.Advance(3 * time.Second)
	assert.InDelta(t, 3.0, l.AvailableTokens(), 0.001)
	require.True(t, l.TryConsume(1))
	require.True(t, l.TryConsume(1))
	require.True(t, l.TryConsume(1))
	require.False(t, l.TryConsume(1))
}

func TestTryConsume_CapsAtCapacity(t *testing.T) {
	l, fc := newTestLimiter(t, 2, 1)
	fc.Advance(time.Hour)
	assert.Equal(t, 2.0, l.AvailableTokens())
}

// TestWouldAllow_DoesNotMutateState verifies WouldAllow is a pure peek: it
// must never consume tokens itself.
func TestWouldAllow_DoesNotMutateState(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)
	assert.True(t, l.WouldAllow(1))
	assert.True(t, l.WouldAllow(1))
	require.True(t, l.TryConsume(1))
	assert.False(t, l.WouldAllow(1))
}

// TestFractionalRefillNotLost exercises the §9 open-question resolution:
// repeated sub-token-interval polling must still accumulate whole tokens
// eventually instead of permanently losing the fractional remainder.
func TestFractionalRefillNotLost(t *testing.T) {
	l, fc := newTestLimiter(t, 1, 0.1) // one token per 10s
	require.True(t, l.TryConsume(1))
	require.False(t, l.TryConsume(1))

	for i := 0; i < 10; i++ {
		fc.Advance(time.Second)
		l.AvailableTokens() // peek must not perturb accumulation
	}

	assert.True(t, l.TryConsume(1), "ten 1s polls at 0.1/s should have accumulated one token")
}

func TestReset_RefillsToCapacityImmediately(t *testing.T) {
	l, _ := newTestLimiter(t, 4, 1)
	require.True(t, l.TryConsume(4))
	require.False(t, l.TryConsume(1))
	l.Reset()
	assert.Equal(t, 4.0, l.AvailableTokens())
}

func TestTryConsume_ConcurrentCallersNeverOversubscribe(t *testing.T) {
	l, _ := newTestLimiter(t, 100, 1)

	const workers = 20
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			results <- l.TryConsume(1)
		}()
	}

	allowed := 0
	for i := 0; i < workers; i++ {
		if <-results {
			allowed++
		}
	}
	assert.Equal(t, workers, allowed) // capacity easily covers all 20
	assert.InDelta(t, 80.0, l.AvailableTokens(), 0.01)
}
