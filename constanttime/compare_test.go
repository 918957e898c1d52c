package constanttime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrings_Correctness(t *testing.T) {
	assert.True(t, Strings("hello", "hello"))
	assert.False(t, Strings("hello", "hellp"))
	assert.False(t, Strings("hello", "hell"))
	assert.True(t, Strings("", ""))
}

func TestBytes_Correctness(t *testing.T) {
	assert.True(t, Bytes([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, Bytes([]byte{1, 2, 3}, []byte{1, 2, 4}))
}

func TestHashes_DelegatesToStrings(t *testing.T) {
	a := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	b := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	assert.True(t, Hashes(a, b))
}

// TestAdversarialFolding verifies the length-XOR fold: an empty string must
// never equal a single NUL byte, even though naive zero-padding would make
// every compared byte equal.
func TestAdversarialFolding(t *testing.T) {
	require.False(t, Strings("", "\x00"))
}

// TestTimingIndependence is a coarse statistical smoke test: for fixed
// length inputs, mean comparison time at a mismatch in position 0 should be
// close to a mismatch at the last position. This can be flaky under heavy
// scheduler noise, so it asserts a generous bound rather than exact parity.
func TestTimingIndependence(t *testing.T) {
	const length = 4096
	const iterations = 2000

	a := make([]byte, length)
	bEarly := make([]byte, length)
	copy(bEarly, a)
	bEarly[0] ^= 0xFF

	bLate := make([]byte, length)
	copy(bLate, a)
	bLate[length-1] ^= 0xFF

	measure := func(b []byte) time.Duration {
		start := time.Now()
		for i := 0; i < iterations; i++ {
			Bytes(a, b)
		}
		return time.Since(start)
	}

	early := measure(bEarly)
	late := measure(bLate)

	var ratio float64
	if early > late {
		ratio = float64(early) / float64(late)
	} else {
		ratio = float64(late) / float64(early)
	}

	assert.Less(t, ratio, 3.0, "mismatch-position timing diverged too much: early=%s late=%s", early, late)
}
