package retry

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelcore/resilience/errs"
	"github.com/sentinelcore/resilience/internal/clock"
)

func newTestPolicy(t *testing.T, s Settings) (*Policy, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	s.clock = fc
	s.rand = rand.New(rand.NewSource(42))
	return New(s), fc
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{MaxAttempts: 3})

	calls := 0
	value, err := Execute(p, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)

	m := p.Metrics()
	assert.EqualValues(t, 1, m.TotalExecutions)
	assert.EqualValues(t, 1, m.SuccessfulExecutions)
	assert.EqualValues(t, 0, m.RetriedExecutions)
}

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{MaxAttempts: 5, JitterFactor: 0})

	calls := 0
	value, err := Execute(p, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errs.New(errs.ConnectionRefused, "refused")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 3, calls)

	m := p.Metrics()
	assert.EqualValues(t, 1, m.RetriedExecutions)
	assert.EqualValues(t, 3, m.TotalAttempts)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{MaxAttempts: 3, JitterFactor: 0})

	calls := 0
	_, err := Execute(p, func() (int, error) {
		calls++
		return 0, errs.New(errs.Timeout, "timed out")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	m := p.Metrics()
	assert.EqualValues(t, 1, m.FailedExecutions)
	assert.EqualValues(t, 0, m.SuccessfulExecutions)
	assert.EqualValues(t, 1, m.RetriedExecutions, "an execution that retried before exhausting attempts counts as retried even though it failed")
}

func TestExecute_NonRetryableErrorStopsImmediately(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{
		MaxAttempts: 5,
		Predicate:   errs.NetworkPredicate(),
	})

	calls := 0
	_, err := Execute(p, func() (int, error) {
		calls++
		return 0, errs.New(errs.InvalidArgument, "bad arg")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable error must not be retried")
}

func TestExecuteContext_AbortsOnCancel(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{MaxAttempts: 5, JitterFactor: 0})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := ExecuteContext(ctx, p, func() (int, error) {
		calls++
		cancel()
		return 0, errs.New(errs.ConnectionReset, "reset")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCalculateNextDelay_ExponentialGrowthAndCap(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0,
	})

	assert.Equal(t, 100*time.Millisecond, p.CalculateNextDelay(0))
	assert.Equal(t, 200*time.Millisecond, p.CalculateNextDelay(1))
	assert.Equal(t, 400*time.Millisecond, p.CalculateNextDelay(2))
	assert.Equal(t, 800*time.Millisecond, p.CalculateNextDelay(3))
	assert.Equal(t, 1*time.Second, p.CalculateNextDelay(4), "delay must cap at MaxDelay")
}

func TestCalculateNextDelay_JitterStaysWithinBounds(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.1,
	})

	for i := 0; i < 50; i++ {
		d := p.CalculateNextDelay(0)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestExecute_SleepsRecordedOnFakeClock(t *testing.T) {
	p, fc := newTestPolicy(t, Settings{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		JitterFactor: 0,
	})

	calls := 0
	_, _ = Execute(p, func() (int, error) {
		calls++
		return 0, errs.New(errs.Busy, "busy")
	})

	sleeps := fc.Sleeps()
	require.Len(t, sleeps, 2) // two retries between three attempts
	assert.Equal(t, 50*time.Millisecond, sleeps[0])
	assert.Equal(t, 100*time.Millisecond, sleeps[1])
}

func TestExecute_WrapsNonErrsErrors(t *testing.T) {
	p, _ := newTestPolicy(t, Settings{MaxAttempts: 1})

	_, err := Execute(p, func() (int, error) {
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
}

func TestNew_PanicsOnInvalidJitterFactor(t *testing.T) {
	assert.Panics(t, func() { New(Settings{JitterFactor: -0.1}) })
	assert.Panics(t, func() { New(Settings{JitterFactor: 1.1}) })
	assert.NotPanics(t, func() { New(Settings{JitterFactor: 0}) })
	assert.NotPanics(t, func() { New(Settings{JitterFactor: 1}) })
}

func TestNew_PanicsOnSubunityBackoffMultiplier(t *testing.T) {
	assert.Panics(t, func() { New(Settings{BackoffMultiplier: 0.5}) })
	assert.NotPanics(t, func() { New(Settings{BackoffMultiplier: 1.0}) })
	assert.NotPanics(t, func() { New(Settings{}) }, "zero BackoffMultiplier must default rather than panic")
}

func TestNew_PanicsWhenMaxDelayBelowInitialDelay(t *testing.T) {
	assert.Panics(t, func() {
		New(Settings{InitialDelay: 20 * time.Second, MaxDelay: 10 * time.Second})
	})
	assert.NotPanics(t, func() {
		New(Settings{InitialDelay: 5 * time.Second, MaxDelay: 10 * time.Second})
	})
}

func TestNew_PanicsOnNegativeMaxAttempts(t *testing.T) {
	assert.Panics(t, func() { New(Settings{MaxAttempts: -1}) })
}
