package breaker

func (cb *CircuitBreaker) handleStateTransition(success bool, currentState State) {
	switch currentState {
	case StateClosed:
		if !success {
			cb.checkAndTripCircuit()
		}
	case StateHalfOpen:
		if success {
			if cb.consecutiveSuccesses.Load() >= cb.successThreshold.Load() {
				cb.transitionToClosed()
			}
		} else {
			cb.transitionBackToOpen()
		}
	}
}

func (cb *CircuitBreaker) checkAndTripCircuit() {
	if cb.consecutiveFailures.Load() < cb.failureThreshold.Load() {
		return
	}
	if !cb.state.CompareAndSwap(int32(StateClosed), int32(StateOpen)) {
		return
	}
	cb.openedAt.Store(cb.clock.Now().UnixNano())
	cb.stateChangedAt.Store(cb.clock.Now().UnixNano())
	cb.clearCounts()
	cb.notifyStateChange(StateClosed, StateOpen)
}

func (cb *CircuitBreaker) shouldTransitionToHalfOpen() bool {
	openedAt := cb.openedAt.Load()
	if openedAt == 0 {
		return false
	}
	elapsed := cb.clock.Now().UnixNano() - openedAt
	return elapsed >= cb.timeout.Load()
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	if !cb.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
		return
	}
	cb.stateChangedAt.Store(cb.clock.Now().UnixNano())
	cb.clearCounts()
	cb.halfOpenInFlight.Store(false)
	cb.notifyStateChange(StateOpen, StateHalfOpen)
}

func (cb *CircuitBreaker) transitionToClosed() {
	if !cb.state.CompareAndSwap(int32(StateHalfOpen), int32(StateClosed)) {
		return
	}
	cb.stateChangedAt.Store(cb.clock.Now().UnixNano())
	cb.clearCounts()
	cb.lastClearedAt.Store(cb.clock.Now().UnixNano())
	cb.notifyStateChange(StateHalfOpen, StateClosed)
}

func (cb *CircuitBreaker) transitionBackToOpen() {
	if !cb.state.CompareAndSwap(int32(StateHalfOpen), int32(StateOpen)) {
		return
	}
	cb.openedAt.Store(cb.clock.Now().UnixNano())
	cb.stateChangedAt.Store(cb.clock.Now().UnixNano())
	cb.clearCounts()
	cb.notifyStateChange(StateHalfOpen, StateOpen)
}
