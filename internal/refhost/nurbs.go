package refhost

import (
	"errors"
	"fmt"
	"slices"
)

var errInvalidKnots = errors.New("invalid knot vector")

// NurbsCurve uses n+degree-1 knots for n control points. Its domain is
// [knots[degree-1], knots[n-1]].
type NurbsCurve struct {
	Degree   int
	Points   []Point3d
	Weights  []float64
	Knots    []float64
	Periodic bool
}

func (*NurbsCurve) ObjectType() string { return "nurbs_curve" }
func (*NurbsCurve) isCurve()           {}

// Domain returns the curve's parameter interval.
func (c *NurbsCurve) Domain() Interval {
	return Interval{c.Knots[c.Degree-1], c.Knots[len(c.Points)-1]}
}

// CreateNurbsCurve validates and builds a curve. It rejects knot vectors the
// host cannot evaluate.
func CreateNurbsCurve(degree int, points []Point3d, weights []float64, knots []float64, periodic bool) (*NurbsCurve, error) {
	if degree < 1 || len(points) < degree+1 {
		return nil, fmt.Errorf("degree %d needs at least %d control points, got %d", degree, degree+1, len(points))
	}
	if err := checkWeights(weights, len(points)); err != nil {
		return nil, err
	}
	if err := checkKnots(knots, degree, len(points)); err != nil {
		return nil, err
	}
	return &NurbsCurve{
		Degree:   degree,
		Points:   slices.Clone(points),
		Weights:  slices.Clone(weights),
		Knots:    slices.Clone(knots),
		Periodic: periodic,
	}, nil
}

// NurbsSurface stores control points as Points[u][v].
type NurbsSurface struct {
	DegreeU int
	DegreeV int
	Points  [][]Point3d
	Weights [][]float64
	KnotsU  []float64
	KnotsV  []float64
	ClosedU bool
	ClosedV bool
	Normal  Vector3d
}

func (*NurbsSurface) ObjectType() string { return "nurbs_surface" }

func (s *NurbsSurface) CountU() int { return len(s.Points) }

func (s *NurbsSurface) CountV() int {
	if len(s.Points) == 0 {
		return 0
	}
	return len(s.Points[0])
}

// CreateNurbsSurface validates grid shape, weights and both knot vectors.
func CreateNurbsSurface(degreeU, degreeV int, points [][]Point3d, weights [][]float64, knotsU, knotsV []float64) (*NurbsSurface, error) {
	countU := len(points)
	if countU < degreeU+1 || degreeU < 1 {
		return nil, fmt.Errorf("u degree %d needs at least %d rows, got %d", degreeU, degreeU+1, countU)
	}
	countV := len(points[0])
	if countV < degreeV+1 || degreeV < 1 {
		return nil, fmt.Errorf("v degree %d needs at least %d columns, got %d", degreeV, degreeV+1, countV)
	}
	if len(weights) != countU {
		return nil, fmt.Errorf("%d weight rows for %d point rows", len(weights), countU)
	}
	for u := range points {
		if len(points[u]) != countV {
			return nil, fmt.Errorf("row %d has %d points, want %d", u, len(points[u]), countV)
		}
		if err := checkWeights(weights[u], countV); err != nil {
			return nil, fmt.Errorf("row %d: %w", u, err)
		}
	}
	if err := checkKnots(knotsU, degreeU, countU); err != nil {
		return nil, fmt.Errorf("u: %w", err)
	}
	if err := checkKnots(knotsV, degreeV, countV); err != nil {
		return nil, fmt.Errorf("v: %w", err)
	}
	s := &NurbsSurface{
		DegreeU: degreeU,
		DegreeV: degreeV,
		KnotsU:  slices.Clone(knotsU),
		KnotsV:  slices.Clone(knotsV),
	}
	for u := range points {
		s.Points = append(s.Points, slices.Clone(points[u]))
		s.Weights = append(s.Weights, slices.Clone(weights[u]))
	}
	return s, nil
}

func checkWeights(weights []float64, n int) error {
	if len(weights) != n {
		return fmt.Errorf("%d weights for %d control points", len(weights), n)
	}
	for i, w := range weights {
		if w <= 0 {
			return fmt.Errorf("weight %d is %g, must be positive", i, w)
		}
	}
	return nil
}

func checkKnots(knots []float64, degree, n int) error {
	if want := n + degree - 1; len(knots) != want {
		return fmt.Errorf("%w: %d knots, want %d", errInvalidKnots, len(knots), want)
	}
	run := 1
	for i := 1; i < len(knots); i++ {
		switch {
		case knots[i] < knots[i-1]:
			return fmt.Errorf("%w: knot %d decreases", errInvalidKnots, i)
		case knots[i] == knots[i-1]:
			run++
			if run > degree {
				return fmt.Errorf("%w: knot %g has multiplicity %d above degree %d", errInvalidKnots, knots[i], run, degree)
			}
		default:
			run = 1
		}
	}
	if knots[degree-1] >= knots[n-1] {
		return fmt.Errorf("%w: empty domain", errInvalidKnots)
	}
	return nil
}

// UniformKnots returns clamped uniform knots for n points of degree.
func UniformKnots(degree, n int) []float64 {
	knots := make([]float64, 0, n+degree-1)
	for range degree {
		knots = append(knots, 0)
	}
	for k := 1; k < n-degree; k++ {
		knots = append(knots, float64(k))
	}
	for range degree {
		knots = append(knots, float64(n-degree))
	}
	return knots
}

// PeriodicKnots returns unclamped uniform knots for n points of degree.
func PeriodicKnots(degree, n int) []float64 {
	knots := make([]float64, n+degree-1)
	for i := range knots {
		knots[i] = float64(i - degree + 1)
	}
	return knots
}

func fallbackKnots(degree, n int, closed bool) []float64 {
	if closed {
		return PeriodicKnots(degree, n)
	}
	return UniformKnots(degree, n)
}
