package geometry

import (
	"fmt"
	"math"
	"slices"
)

// Line is a straight segment.
type Line struct {
	Start Vec
	End   Vec
}

func (Line) Kind() Kind { return KindLine }
func (Line) curve()     {}

func (l Line) Length() float64 { return l.End.Sub(l.Start).Length() }

func (l Line) Equal(other Value) bool { return l.EqualWithin(other, DefaultTolerance) }

func (l Line) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(Line)
	return ok && l.Start.EqualWithin(o.Start, tol) && l.End.EqualWithin(o.End, tol)
}

// Polyline is an ordered chain of points, optionally closed back to the
// first point.
type Polyline struct {
	Points []Vec
	Closed bool
}

func (*Polyline) Kind() Kind { return KindPolyline }
func (*Polyline) curve()     {}

func (p *Polyline) Equal(other Value) bool { return p.EqualWithin(other, DefaultTolerance) }

func (p *Polyline) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(*Polyline)
	if !ok || p == nil || o == nil {
		return false
	}
	return p.Closed == o.Closed && tol.vecs(p.Points, o.Points)
}

// Arc is a circular arc in the plane through Center with the given Normal.
// Angles are radians measured in that plane.
type Arc struct {
	Center     Vec
	Normal     Vec
	Radius     float64
	StartAngle float64
	EndAngle   float64
}

func (Arc) Kind() Kind { return KindArc }
func (Arc) curve()     {}

// IsCircle reports whether the arc sweeps a full turn.
func (a Arc) IsCircle() bool {
	return DefaultTolerance.Floats(math.Abs(a.EndAngle-a.StartAngle), 2*math.Pi)
}

func (a Arc) Equal(other Value) bool { return a.EqualWithin(other, DefaultTolerance) }

func (a Arc) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(Arc)
	return ok &&
		a.Center.EqualWithin(o.Center, tol) &&
		a.Normal.EqualWithin(o.Normal, tol) &&
		tol.Floats(a.Radius, o.Radius) &&
		tol.Floats(a.StartAngle, o.StartAngle) &&
		tol.Floats(a.EndAngle, o.EndAngle)
}

// NurbsCurve is a rational B-spline curve with a normalized knot vector.
type NurbsCurve struct {
	Degree  int
	Points  []Vec
	Weights []float64
	Closed  bool
	knots   []float64
}

// NewNurbsCurve validates the control polygon shape.
func NewNurbsCurve(degree int, points []Vec, weights []float64) (*NurbsCurve, error) {
	if degree < 1 || len(points) < degree+1 {
		return nil, fmt.Errorf("%w: degree %d with %d points", ErrGridSize, degree, len(points))
	}
	if weights == nil {
		weights = make([]float64, len(points))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(points) {
		return nil, fmt.Errorf("%w: %d weights for %d points", ErrGridSize, len(weights), len(points))
	}
	return &NurbsCurve{Degree: degree, Points: slices.Clone(points), Weights: slices.Clone(weights)}, nil
}

func (*NurbsCurve) Kind() Kind { return KindNurbsCurve }
func (*NurbsCurve) curve()     {}

// SetKnots stores native knots after normalizing them against domain.
func (c *NurbsCurve) SetKnots(knots []float64, domain Domain) error {
	normalized, err := NormalizeKnots(knots, domain)
	if err != nil {
		return err
	}
	c.knots = normalized
	return nil
}

// SetNormalizedKnots stores knots already expressed in [0,1].
func (c *NurbsCurve) SetNormalizedKnots(knots []float64) error {
	if err := validateNormalized(knots); err != nil {
		return err
	}
	c.knots = slices.Clone(knots)
	return nil
}

// Knots returns the normalized knot vector.
func (c *NurbsCurve) Knots() []float64 { return slices.Clone(c.knots) }

// KnotsIn returns the knot vector rescaled onto domain.
func (c *NurbsCurve) KnotsIn(domain Domain) []float64 {
	return DenormalizeKnots(c.knots, domain)
}

func (c *NurbsCurve) Equal(other Value) bool { return c.EqualWithin(other, DefaultTolerance) }

func (c *NurbsCurve) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(*NurbsCurve)
	if !ok || c == nil || o == nil {
		return false
	}
	return c.Degree == o.Degree &&
		c.Closed == o.Closed &&
		tol.vecs(c.Points, o.Points) &&
		tol.FloatSlices(c.Weights, o.Weights) &&
		tol.FloatSlices(c.knots, o.knots)
}
