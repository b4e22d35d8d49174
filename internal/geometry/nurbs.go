package geometry

import (
	"fmt"
	"math"
	"slices"
)

// Param selects one of the two surface parameter directions.
type Param int

const (
	U Param = iota
	V
)

func (p Param) String() string {
	if p == V {
		return "v"
	}
	return "u"
}

// NurbsSurface is a rational B-spline surface over a dense U×V control grid
// stored row-major (index u*VCount+v). Knot vectors are kept normalized to
// [0,1] so hosts with different parameter conventions agree.
type NurbsSurface struct {
	UDegree       int
	VDegree       int
	ClosedU       bool
	ClosedV       bool
	SurfaceNormal Vec

	uCount  int
	vCount  int
	points  []Vec
	weights []float64
	uKnots  []float64
	vKnots  []float64
}

// NewNurbsSurface allocates a grid of origin points with unit weights.
func NewNurbsSurface(uCount, vCount, uDegree, vDegree int) (*NurbsSurface, error) {
	if uDegree < 1 || vDegree < 1 || uCount < uDegree+1 || vCount < vDegree+1 || uCount > math.MaxInt32/vCount {
		return nil, fmt.Errorf("%w: %dx%d grid with degrees %d/%d", ErrGridSize, uCount, vCount, uDegree, vDegree)
	}
	s := &NurbsSurface{
		UDegree: uDegree,
		VDegree: vDegree,
		uCount:  uCount,
		vCount:  vCount,
		points:  make([]Vec, uCount*vCount),
		weights: make([]float64, uCount*vCount),
	}
	for i := range s.points {
		s.points[i] = V3(0, 0, 0)
		s.weights[i] = 1
	}
	return s, nil
}

func (*NurbsSurface) Kind() Kind { return KindNurbsSurface }
func (*NurbsSurface) surface()   {}

func (s *NurbsSurface) UCount() int { return s.uCount }
func (s *NurbsSurface) VCount() int { return s.vCount }

func (s *NurbsSurface) Normal() Vec { return s.SurfaceNormal }

func (s *NurbsSurface) index(u, v int) (int, error) {
	if u < 0 || u >= s.uCount || v < 0 || v >= s.vCount {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrGridBounds, u, v, s.uCount, s.vCount)
	}
	return u*s.vCount + v, nil
}

func (s *NurbsSurface) SetControlPoint(u, v int, p Vec) error {
	i, err := s.index(u, v)
	if err != nil {
		return err
	}
	s.points[i] = p
	return nil
}

func (s *NurbsSurface) ControlPoint(u, v int) (Vec, error) {
	i, err := s.index(u, v)
	if err != nil {
		return Vec{}, err
	}
	return s.points[i], nil
}

func (s *NurbsSurface) SetWeight(u, v int, w float64) error {
	i, err := s.index(u, v)
	if err != nil {
		return err
	}
	s.weights[i] = w
	return nil
}

func (s *NurbsSurface) Weight(u, v int) (float64, error) {
	i, err := s.index(u, v)
	if err != nil {
		return 0, err
	}
	return s.weights[i], nil
}

// Points returns a copy of the row-major control grid.
func (s *NurbsSurface) Points() []Vec { return slices.Clone(s.points) }

// Weights returns a copy of the row-major weight grid.
func (s *NurbsSurface) Weights() []float64 { return slices.Clone(s.weights) }

// SetUKnots normalizes host-native U knots spanning domain.
func (s *NurbsSurface) SetUKnots(knots []float64, domain Domain) error {
	n, err := NormalizeKnots(knots, domain)
	if err != nil {
		return fmt.Errorf("u knots: %w", err)
	}
	s.uKnots = n
	return nil
}

// SetVKnots normalizes host-native V knots spanning domain.
func (s *NurbsSurface) SetVKnots(knots []float64, domain Domain) error {
	n, err := NormalizeKnots(knots, domain)
	if err != nil {
		return fmt.Errorf("v knots: %w", err)
	}
	s.vKnots = n
	return nil
}

// SetNormalizedKnots stores knots already expressed in [0,1].
func (s *NurbsSurface) SetNormalizedKnots(p Param, knots []float64) error {
	if err := validateNormalized(knots); err != nil {
		return fmt.Errorf("%s knots: %w", p, err)
	}
	if p == V {
		s.vKnots = slices.Clone(knots)
	} else {
		s.uKnots = slices.Clone(knots)
	}
	return nil
}

func (s *NurbsSurface) UKnots() []float64 { return slices.Clone(s.uKnots) }
func (s *NurbsSurface) VKnots() []float64 { return slices.Clone(s.vKnots) }

// UKnotsIn rescales the U knots onto dst.
func (s *NurbsSurface) UKnotsIn(dst Domain) []float64 { return DenormalizeKnots(s.uKnots, dst) }

// VKnotsIn rescales the V knots onto dst.
func (s *NurbsSurface) VKnotsIn(dst Domain) []float64 { return DenormalizeKnots(s.vKnots, dst) }

// WrapPointsToClose appends copies of the first degree rows (U) or columns
// (V) to the end of the grid so a destination can build a periodic surface.
// Knots are left untouched; the destination supplies periodic knots.
func (s *NurbsSurface) WrapPointsToClose(p Param) {
	if p == U {
		extra := s.UDegree
		for u := 0; u < extra; u++ {
			row := u * s.vCount
			s.points = append(s.points, s.points[row:row+s.vCount]...)
			s.weights = append(s.weights, s.weights[row:row+s.vCount]...)
		}
		s.uCount += extra
		s.ClosedU = true
		return
	}
	extra := s.VDegree
	newV := s.vCount + extra
	points := make([]Vec, 0, s.uCount*newV)
	weights := make([]float64, 0, s.uCount*newV)
	for u := 0; u < s.uCount; u++ {
		row := u * s.vCount
		points = append(points, s.points[row:row+s.vCount]...)
		points = append(points, s.points[row:row+extra]...)
		weights = append(weights, s.weights[row:row+s.vCount]...)
		weights = append(weights, s.weights[row:row+extra]...)
	}
	s.points, s.weights, s.vCount = points, weights, newV
	s.ClosedV = true
}

func (s *NurbsSurface) Equal(other Value) bool { return s.EqualWithin(other, DefaultTolerance) }

// EqualWithin compares degrees, grid, weights, knots and closure. The cached
// surface normal does not participate.
func (s *NurbsSurface) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(*NurbsSurface)
	if !ok || s == nil || o == nil {
		return false
	}
	return s.UDegree == o.UDegree && s.VDegree == o.VDegree &&
		s.uCount == o.uCount && s.vCount == o.vCount &&
		s.ClosedU == o.ClosedU && s.ClosedV == o.ClosedV &&
		tol.vecs(s.points, o.points) &&
		tol.FloatSlices(s.weights, o.weights) &&
		tol.FloatSlices(s.uKnots, o.uKnots) &&
		tol.FloatSlices(s.vKnots, o.vKnots)
}

// NurbsSurfaceFromGrid builds a surface from a complete row-major grid.
func NurbsSurfaceFromGrid(uCount, vCount, uDegree, vDegree int, points []Vec, weights []float64) (*NurbsSurface, error) {
	// Counts come from the wire; check them against what actually arrived
	// before sizing anything from them.
	if uCount <= 0 || vCount <= 0 || len(points)%uCount != 0 || len(points)/uCount != vCount || len(weights) != len(points) {
		return nil, fmt.Errorf("%w: %d points, %d weights for %dx%d grid", ErrGridSize, len(points), len(weights), uCount, vCount)
	}
	s, err := NewNurbsSurface(uCount, vCount, uDegree, vDegree)
	if err != nil {
		return nil, err
	}
	copy(s.points, points)
	copy(s.weights, weights)
	return s, nil
}
