package geometry

import "fmt"

// Domain is a closed parameter interval [Min, Max].
type Domain struct {
	Min float64
	Max float64
}

// UnitDomain is the normalized parameter interval.
var UnitDomain = Domain{Min: 0, Max: 1}

func (d Domain) Length() float64 { return d.Max - d.Min }

func (d Domain) Mid() float64 { return d.Min + d.Length()/2 }

// Normalize maps a native parameter into [0,1].
func (d Domain) Normalize(t float64) (float64, error) {
	if d.Length() <= 0 {
		return 0, fmt.Errorf("%w: [%g, %g]", ErrDegenerateDomain, d.Min, d.Max)
	}
	return (t - d.Min) / d.Length(), nil
}

// Denormalize maps a normalized parameter onto this domain.
func (d Domain) Denormalize(n float64) float64 {
	return d.Min + n*(d.Max-d.Min)
}

// NormalizeKnots maps a native knot vector spanning domain into [0,1]. Knots
// must be non-decreasing and lie inside domain (within DefaultTolerance).
func NormalizeKnots(knots []float64, domain Domain) ([]float64, error) {
	out := make([]float64, len(knots))
	for i, k := range knots {
		if i > 0 && k < knots[i-1] {
			return nil, fmt.Errorf("%w: knot %d (%g) < knot %d (%g)", ErrKnotOrder, i, k, i-1, knots[i-1])
		}
		n, err := domain.Normalize(k)
		if err != nil {
			return nil, err
		}
		out[i] = clampUnit(n)
		if out[i] != n && !DefaultTolerance.Floats(out[i], n) {
			return nil, fmt.Errorf("%w: knot %d (%g) not in [%g, %g]", ErrKnotOutOfDomain, i, k, domain.Min, domain.Max)
		}
	}
	return out, nil
}

// DenormalizeKnots rescales normalized knots onto a destination domain.
func DenormalizeKnots(normalized []float64, domain Domain) []float64 {
	out := make([]float64, len(normalized))
	for i, n := range normalized {
		out[i] = domain.Denormalize(n)
	}
	return out
}

// SpanOf returns the domain covered by a non-empty knot vector.
func SpanOf(knots []float64) Domain {
	if len(knots) == 0 {
		return Domain{}
	}
	return Domain{Min: knots[0], Max: knots[len(knots)-1]}
}

func validateNormalized(knots []float64) error {
	for i, k := range knots {
		if i > 0 && k < knots[i-1] {
			return fmt.Errorf("%w: knot %d (%g) < knot %d (%g)", ErrKnotOrder, i, k, i-1, knots[i-1])
		}
		if k < 0 || k > 1 {
			return fmt.Errorf("%w: knot %d (%g) not in [0, 1]", ErrKnotOutOfDomain, i, k)
		}
	}
	return nil
}

func clampUnit(n float64) float64 {
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	default:
		return n
	}
}
