package breaker

import "fmt"

// State is one of the three circuit breaker states.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Counts is a point-in-time snapshot of request outcomes.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Metrics extends Counts with derived rates and state/timing information,
// the combined view Diagnostics/monitoring callers want without stitching
// together several accessor calls.
type Metrics struct {
	Name                string
	State               State
	Counts              Counts
	FailureRate         float64
	StateChangedAt      int64 // UnixNano
	OpenedAt            int64 // UnixNano, zero if never opened
	ConsecutiveFailures uint32
	ConsecutiveSuccess  uint32

	// Saturated is true once any counter in Counts has reached
	// math.MaxUint32 and stopped incrementing; FailureRate and the raw
	// counts are no longer a precise account of this window's traffic.
	Saturated bool
}

// Diagnostics reports forward-looking information useful for operators
// deciding whether a breaker is about to trip or recover, supplementing
// the backward-looking Metrics snapshot.
type Diagnostics struct {
	State               State
	WillTripNext        bool  // true if the next failure will open the circuit
	TimeUntilHalfOpen   int64 // nanoseconds until Open -> HalfOpen is eligible, 0 if not applicable
	ConsecutiveFailures uint32
	FailureThreshold    uint32
}
