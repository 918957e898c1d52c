package breaker

import "github.com/sentinelcore/resilience/errs"

// ErrOpenState is returned by Execute/ExecuteContext when the circuit is
// open and the timeout has not yet elapsed.
var ErrOpenState = errs.New(errs.CircuitOpen, "circuit breaker is open")

// ErrTooManyRequests is returned when a half-open probe is already in
// flight and a concurrent caller attempts another one.
var ErrTooManyRequests = errs.New(errs.CircuitOpen, "circuit breaker half-open probe already in flight")
