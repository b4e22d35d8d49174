package geometry

import "math"

// Tolerance decides when two floating point fields are considered equal.
// Two values match when |a-b| <= max(Abs, Rel*max(|a|,|b|)). The zero
// Tolerance demands exact equality.
type Tolerance struct {
	Abs float64
	Rel float64
}

// DefaultTolerance absorbs the rounding left behind by unit conversions and
// knot rescaling without merging visibly different geometry.
var DefaultTolerance = Tolerance{Abs: 1e-9, Rel: 1e-9}

// Floats compares two scalars.
func (t Tolerance) Floats(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	limit := t.Abs
	if rel := t.Rel * math.Max(math.Abs(a), math.Abs(b)); rel > limit {
		limit = rel
	}
	return math.Abs(a-b) <= limit
}

// FloatSlices compares two slices positionally.
func (t Tolerance) FloatSlices(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !t.Floats(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (t Tolerance) vecs(a, b []Vec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].EqualWithin(b[i], t) {
			return false
		}
	}
	return true
}
