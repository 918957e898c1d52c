package retry

import "github.com/sentinelcore/resilience/errs"

// DatabaseRetryPredicate retries connection errors and lock timeouts.
func DatabaseRetryPredicate() errs.Predicate { return errs.DatabasePredicate() }

// FileIORetryPredicate retries EAGAIN/EBUSY-class errors.
func FileIORetryPredicate() errs.Predicate { return errs.FileIOPredicate() }

// IPCRetryPredicate retries connection-refused and timeout errors.
func IPCRetryPredicate() errs.Predicate { return errs.IPCPredicate() }

// NetworkRetryPredicate retries connection and timeout errors.
func NetworkRetryPredicate() errs.Predicate { return errs.NetworkPredicate() }
