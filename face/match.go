package face

import "math"

// DefaultMatchThreshold is the acceptance distance for embedding matching.
// Lower is stricter.
const DefaultMatchThreshold = 0.6

// Distance returns the Euclidean distance between two embedding vectors.
// Mismatched lengths are treated as maximally distant.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match compares a probe embedding against the reference set. It accepts when
// at least one reference lies within threshold, and reports the best (lowest)
// distance seen for diagnostics.
func Match(refs [][]float64, probe []float64, threshold float64) (ok bool, best float64) {
	best = math.Inf(1)
	for _, ref := range refs {
		if d := Distance(ref, probe); d < best {
			best = d
		}
	}
	return best <= threshold, best
}
