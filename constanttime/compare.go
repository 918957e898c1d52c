// Package constanttime implements branch-free equality for secrets, tokens,
// and hashes, translated from
// original_source/Libraries/LibCrypto/ConstantTimeComparison.{h,cpp}.
//
// crypto/subtle.ConstantTimeCompare was considered and rejected as the
// backing implementation: it returns 0 immediately when the two inputs have
// different lengths, which is itself a length-dependent branch. The
// algorithm required here folds the length difference into the same
// accumulator as the byte comparison so that runtime depends only on
// max(len(a), len(b)), never on whether the lengths match or where the
// inputs first differ.
package constanttime

// Strings reports whether a and b are equal, in time independent of where
// (or whether) they differ.
func Strings(a, b string) bool {
	return equal([]byte(a), []byte(b))
}

// Bytes reports whether a and b are equal, in time independent of where
// (or whether) they differ.
func Bytes(a, b []byte) bool {
	return equal(a, b)
}

// Hashes compares two hex-encoded hashes (SHA-256 digests, checksums, and
// similar). Functionally identical to Strings, provided for a clearer call
// site when comparing hash values.
func Hashes(a, b string) bool {
	return Strings(a, b)
}

// equal performs the core constant-time comparison: length-XOR folding plus
// a full-length, no-early-exit byte scan.
func equal(a, b []byte) bool {
	lenDiff := len(a) ^ len(b)

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	var diff byte
	for i := 0; i < maxLen; i++ {
		var ai, bi byte
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		diff |= ai ^ bi
	}

	// Fold the length difference into the same accumulator. Any nonzero bit
	// of lenDiff must make diff nonzero, so inputs of different length are
	// never reported equal regardless of their (zero-padded) byte content.
	for shift := uint(0); shift < 64; shift += 8 {
		diff |= byte(uint64(lenDiff) >> shift)
	}

	return toBool(barrier(diff))
}

// barrier is a compiler barrier standing in for the original's `volatile u8
// result`: Go has no volatile qualifier, so a non-inlined identity function
// over a non-constant value is the idiomatic portable substitute, intended
// to discourage the optimizer from collapsing the loop above into a
// short-circuiting comparison.
//
//go:noinline
func barrier(diff byte) byte {
	return diff
}

// toBool converts diff (0 == equal, nonzero == different) to a bool using
// only bitwise/arithmetic operations, mirroring
// ConstantTimeComparison::to_bool's two's-complement high-bit trick.
func toBool(diff byte) bool {
	d := int32(diff)
	combined := d | -d
	highBit := uint32(combined) >> 31
	return highBit == 0
}
