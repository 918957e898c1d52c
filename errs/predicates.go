package errs

// Predicate reports whether an error should be retried. A nil predicate
// means "retry everything" per the retry policy's default.
type Predicate func(error) bool

// categoryOf extracts the Category from err, defaulting to Other when err
// is not one of our Error values (e.g. a raw error from caller code).
func categoryOf(err error) Category {
	if e, ok := err.(*Error); ok {
		return e.Category
	}
	return Other
}

func matchAny(cat Category, set map[Category]struct{}) bool {
	_, ok := set[cat]
	return ok
}

func toSet(cats ...Category) map[Category]struct{} {
	m := make(map[Category]struct{}, len(cats))
	for _, c := range cats {
		m[c] = struct{}{}
	}
	return m
}

// DatabasePredicate retries connection and transient resource errors typical
// of a database client, grounded on RetryPolicy::database_retry_predicate in
// the original source: connection resets, network/host unreachability,
// timeouts, and busy/locked conditions. Permission, not-found, invalid
// argument, and no-space errors are never retried.
func DatabasePredicate() Predicate {
	set := toSet(ConnectionRefused, ConnectionReset, ConnectionAborted,
		NetworkUnreachable, HostUnreachable, Timeout, WouldBlock, Interrupted, Busy)
	return func(err error) bool { return matchAny(categoryOf(err), set) }
}

// FileIOPredicate retries the transient errno classes a local filesystem
// surfaces: resource temporarily unavailable, busy, interrupted syscalls,
// and "text file busy" (executable being modified).
func FileIOPredicate() Predicate {
	set := toSet(WouldBlock, Busy, Interrupted, TextBusy)
	return func(err error) bool { return matchAny(categoryOf(err), set) }
}

// IPCPredicate retries connection and pipe errors typical of a local IPC
// transport, grounded on RetryPolicy::ipc_retry_predicate. Unlike
// DatabasePredicate and NetworkPredicate, host unreachability is not in this
// set: a local IPC peer has no DNS/host-routing layer to fail transiently.
func IPCPredicate() Predicate {
	set := toSet(ConnectionRefused, ConnectionReset, ConnectionAborted,
		NetworkUnreachable, Timeout, WouldBlock, Interrupted, BrokenPipe)
	return func(err error) bool { return matchAny(categoryOf(err), set) }
}

// NetworkPredicate retries connection, network, and transient DNS errors,
// grounded on RetryPolicy::network_retry_predicate. DNS NXDOMAIN
// (DNSPermanent) and protocol errors are never retried.
func NetworkPredicate() Predicate {
	set := toSet(ConnectionRefused, ConnectionReset, ConnectionAborted,
		NetworkUnreachable, HostUnreachable, Timeout, WouldBlock, Interrupted, DNSTemporary)
	return func(err error) bool { return matchAny(categoryOf(err), set) }
}
