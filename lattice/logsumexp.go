package lattice

import "math"

var negInf = math.Inf(-1)

// logSumExpCutoff is the fixed 50-nat short-circuit spec §4.5/§9
// prescribes: once two terms differ by more than this many nats, the
// smaller one's contribution is below float64 precision and is
// dropped instead of risking a NaN from computing exp of a very
// negative number combined with its log1p correction.
const logSumExpCutoff = 50.0

// logSumExp computes log(e^a + e^b) without overflow, short-circuiting
// to the larger term when the gap exceeds logSumExpCutoff nats.
func logSumExp(a, b float64) float64 {
	if a == negInf {
		return b
	}
	if b == negInf {
		return a
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	diff := hi - lo
	if diff > logSumExpCutoff {
		return hi
	}
	return hi + math.Log1p(math.Exp(-diff))
}
