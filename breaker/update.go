package breaker

import "time"

// UpdateSettings applies a partial runtime reconfiguration. Fields left nil
// in update are unchanged. Safe for concurrent use; each field updates
// independently via its own atomic store.
func (cb *CircuitBreaker) UpdateSettings(update SettingsUpdate) {
	if update.FailureThreshold != nil {
		cb.failureThreshold.Store(*update.FailureThreshold)
	}
	if update.SuccessThreshold != nil {
		cb.successThreshold.Store(*update.SuccessThreshold)
	}
	if update.Timeout != nil {
		cb.timeout.Store(int64(*update.Timeout))
	}
	if update.Interval != nil {
		cb.interval.Store(int64(*update.Interval))
	}
}

// FailureThreshold returns the current consecutive-failure trip threshold.
func (cb *CircuitBreaker) FailureThreshold() uint32 { return cb.failureThreshold.Load() }

// SuccessThreshold returns the current half-open close threshold.
func (cb *CircuitBreaker) SuccessThreshold() uint32 { return cb.successThreshold.Load() }

// Timeout returns the current Open->HalfOpen duration.
func (cb *CircuitBreaker) Timeout() time.Duration { return time.Duration(cb.timeout.Load()) }

// Interval returns the current Closed-state count reset period (0 means
// counts are only reset on state transitions).
func (cb *CircuitBreaker) Interval() time.Duration { return time.Duration(cb.interval.Load()) }
