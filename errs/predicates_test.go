package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// allCategories is the full closed set from spec.md §3, used to assert each
// predicate's accept/reject split exactly, not just spot-check a few
// members.
var allCategories = []Category{
	ConnectionRefused, ConnectionReset, ConnectionAborted, NetworkUnreachable,
	HostUnreachable, Timeout, WouldBlock, Interrupted, Busy, BrokenPipe,
	TextBusy, DNSTemporary, DNSPermanent, PermissionDenied, NotFound,
	InvalidArgument, NoSpace, IO, Protocol, CircuitOpen, MessageTooLarge,
	MessageTooSmall, ReadTimeout, ConnectionClosed, Other,
}

// retryableSet builds a membership set from a list for table comparisons.
func retryableSet(cats ...Category) map[Category]bool {
	m := make(map[Category]bool, len(cats))
	for _, c := range cats {
		m[c] = true
	}
	return m
}

// TestStandardPredicates_MatchSpecTable asserts each of the four standard
// predicates from spec.md §4.3 against its exact retryable-category table,
// over the complete closed category set, so an accidental addition (e.g.
// HostUnreachable leaking into IPCPredicate) or omission is caught instead
// of only indirectly exercised through retry/policy_test.go.
func TestStandardPredicates_MatchSpecTable(t *testing.T) {
	cases := []struct {
		name      string
		predicate Predicate
		retryable map[Category]bool
	}{
		{
			name:      "database",
			predicate: DatabasePredicate(),
			retryable: retryableSet(
				ConnectionRefused, ConnectionReset, ConnectionAborted,
				NetworkUnreachable, HostUnreachable, Timeout, WouldBlock,
				Interrupted, Busy,
			),
		},
		{
			name:      "file_io",
			predicate: FileIOPredicate(),
			retryable: retryableSet(WouldBlock, Busy, Interrupted, TextBusy),
		},
		{
			name:      "ipc",
			predicate: IPCPredicate(),
			// Unlike database/network, host_unreachable is deliberately
			// absent: a local IPC peer has no DNS/host-routing layer.
			retryable: retryableSet(
				ConnectionRefused, ConnectionReset, ConnectionAborted,
				NetworkUnreachable, Timeout, WouldBlock, Interrupted,
				BrokenPipe,
			),
		},
		{
			name:      "network",
			predicate: NetworkPredicate(),
			// dns_permanent (NXDOMAIN) is deliberately absent: it is not
			// transient.
			retryable: retryableSet(
				ConnectionRefused, ConnectionReset, ConnectionAborted,
				NetworkUnreachable, HostUnreachable, Timeout, WouldBlock,
				Interrupted, DNSTemporary,
			),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, cat := range allCategories {
				err := New(cat, "probe")
				want := tc.retryable[cat]
				got := tc.predicate(err)
				assert.Equalf(t, want, got, "%s predicate: category %q retryable=%v, want %v", tc.name, cat, got, want)
			}
		})
	}
}

// TestStandardPredicates_NonErrsErrorDefaultsToOther asserts that a plain
// Go error (not an *errs.Error) is classified as Other and therefore never
// retried by any standard predicate, matching categoryOf's documented
// default.
func TestStandardPredicates_NonErrsErrorDefaultsToOther(t *testing.T) {
	plain := errors.New("boom")

	assert.False(t, DatabasePredicate()(plain))
	assert.False(t, FileIOPredicate()(plain))
	assert.False(t, IPCPredicate()(plain))
	assert.False(t, NetworkPredicate()(plain))
}

func TestError_ErrorsIsMatchesCategoryOnly(t *testing.T) {
	a := New(Timeout, "dial timed out")
	b := New(Timeout, "a different message entirely")
	c := New(ConnectionReset, "dial timed out")

	assert.True(t, errors.Is(a, b), "errors with the same category must match regardless of message")
	assert.False(t, errors.Is(a, c), "errors with different categories must not match")
}

func TestError_ErrorStringIncludesCategoryAndMessage(t *testing.T) {
	err := New(MessageTooLarge, "payload exceeds 10MiB")
	assert.Equal(t, "message_too_large: payload exceeds 10MiB", err.Error())

	bare := New(CircuitOpen, "")
	assert.Equal(t, "circuit_open", bare.Error())
}

func TestAllCategoriesCoveredBySomePredicateOrNone(t *testing.T) {
	// Sanity check on the fixture itself: every category in allCategories
	// must be a real, distinct member of the closed set (guards against a
	// typo silently duplicating a category in the test table above).
	seen := make(map[Category]bool, len(allCategories))
	for _, c := range allCategories {
		if seen[c] {
			t.Fatalf("duplicate category in allCategories fixture: %s", c)
		}
		seen[c] = true
	}
	assert.Len(t, allCategories, 25, fmt.Sprintf("expected all 25 closed-set categories, got %d", len(allCategories)))
}
