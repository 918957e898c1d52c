package breaker

// Metrics returns a combined snapshot of state, counts, and derived rates,
// intended for a single call site feeding a dashboard or health endpoint.
func (cb *CircuitBreaker) Metrics() Metrics {
	counts := cb.Counts()

	var failureRate float64
	if counts.Requests > 0 {
		failureRate = float64(counts.TotalFailures) / float64(counts.Requests)
	}

	return Metrics{
		Name:                cb.name,
		State:               cb.State(),
		Counts:              counts,
		FailureRate:         failureRate,
		StateChangedAt:      cb.stateChangedAt.Load(),
		OpenedAt:            cb.openedAt.Load(),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		ConsecutiveSuccess:  counts.ConsecutiveSuccesses,
		Saturated:           cb.saturated.Load(),
	}
}

// Diagnostics reports whether the breaker is about to trip and, if Open,
// how long remains before a half-open probe becomes eligible. Grounded on
// the forward-looking WillTripNext/TimeUntilHalfOpen accessors the teacher
// package exposes for operator tooling, supplementing what spec.md's
// Metrics alone would show.
func (cb *CircuitBreaker) Diagnostics() Diagnostics {
	state := cb.State()
	threshold := cb.failureThreshold.Load()
	consecutive := cb.consecutiveFailures.Load()

	d := Diagnostics{
		State:               state,
		ConsecutiveFailures: consecutive,
		FailureThreshold:    threshold,
		WillTripNext:        state == StateClosed && consecutive+1 >= threshold,
	}

	if state == StateOpen {
		openedAt := cb.openedAt.Load()
		elapsed := cb.clock.Now().UnixNano() - openedAt
		remaining := cb.timeout.Load() - elapsed
		if remaining > 0 {
			d.TimeUntilHalfOpen = remaining
		}
	}

	return d
}
