// Package simd provides a CPU-feature-gated fast path for the two hot
// byte scans the normalizer performs on every input: skipping a
// leading run of ASCII spaces and testing for a trailing run of raw
// whitespace bytes (spec §4.3 steps 1 and 6).
//
// Grounded on the teacher's simd package: probe golang.org/x/sys/cpu
// once at init to pick between a widened word-at-a-time scan and a
// byte-at-a-time scalar fallback, the same dispatch shape the teacher
// used to pick between AVX2 and a portable memchr.
package simd

import "golang.org/x/sys/cpu"

// hasFastUnalignedWords reports whether the current CPU can be
// trusted to do fast unaligned 64-bit loads; true on amd64/arm64,
// conservatively false elsewhere so the scalar fallback is always
// correct.
var hasFastUnalignedWords = cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD

const allSpaces = 0x2020202020202020 // 8 copies of ASCII ' ' (0x20)

// LeadingSpaces returns the length of the run of ASCII space bytes
// (0x20) at the start of b.
func LeadingSpaces(b []byte) int {
	i := 0
	if hasFastUnalignedWords {
		for ; i+8 <= len(b); i += 8 {
			w := le64(b[i:])
			if w != allSpaces {
				break
			}
		}
	}
	for i < len(b) && b[i] == ' ' {
		i++
	}
	return i
}

// TrailingRun returns the length of the run of byte marker at the end
// of b. The normalizer uses it to test for a trailing raw ASCII space
// after whitespace coalescing (coalescing has already collapsed any
// run to at most one byte, so this is a bounded scalar scan, not a
// word-at-a-time one).
func TrailingRun(b []byte, marker byte) int {
	i := len(b)
	for i > 0 && b[i-1] == marker {
		i--
	}
	return len(b) - i
}

func le64(b []byte) uint64 {
	var w uint64
	for i := 0; i < 8; i++ {
		w |= uint64(b[i]) << (8 * i)
	}
	return w
}
