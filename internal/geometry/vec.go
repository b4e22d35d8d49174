package geometry

import (
	"fmt"
	"math"
)

// Vec is a coordinate tuple with one to three components. The zero value is
// the 3D origin.
type Vec struct {
	coords [3]float64
	dim    int
}

// NewVec builds a vector from 1 to 3 coordinates.
func NewVec(coords ...float64) (Vec, error) {
	if len(coords) == 0 || len(coords) > 3 {
		return Vec{}, fmt.Errorf("%w: got %d", ErrDimension, len(coords))
	}
	v := Vec{dim: len(coords)}
	copy(v.coords[:], coords)
	return v, nil
}

// V3 builds a 3D vector.
func V3(x, y, z float64) Vec {
	return Vec{coords: [3]float64{x, y, z}, dim: 3}
}

// V2 builds a 2D vector.
func V2(x, y float64) Vec {
	return Vec{coords: [3]float64{x, y, 0}, dim: 2}
}

func (Vec) Kind() Kind { return KindVec }

// Dim returns the number of components.
func (v Vec) Dim() int {
	if v.dim == 0 {
		return 3
	}
	return v.dim
}

// Coordinates returns a copy of the components.
func (v Vec) Coordinates() []float64 {
	out := make([]float64, v.Dim())
	copy(out, v.coords[:v.Dim()])
	return out
}

func (v Vec) X() float64 { return v.coords[0] }
func (v Vec) Y() float64 { return v.coords[1] }
func (v Vec) Z() float64 { return v.coords[2] }

// Ensure3D promotes the vector to three components, filling missing ones
// with zero.
func (v Vec) Ensure3D() Vec {
	return Vec{coords: v.coords, dim: 3}
}

// Length returns the Euclidean norm.
func (v Vec) Length() float64 {
	return math.Sqrt(v.coords[0]*v.coords[0] + v.coords[1]*v.coords[1] + v.coords[2]*v.coords[2])
}

// Unitized returns a unit-length copy pointing the same way.
func (v Vec) Unitized() (Vec, error) {
	length := v.Length()
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return Vec{}, ErrZeroVector
	}
	return v.Scale(1 / length), nil
}

func (v Vec) Add(o Vec) Vec {
	return v.combine(o, func(a, b float64) float64 { return a + b })
}

func (v Vec) Sub(o Vec) Vec {
	return v.combine(o, func(a, b float64) float64 { return a - b })
}

func (v Vec) Scale(f float64) Vec {
	out := v
	for i := range out.coords {
		out.coords[i] *= f
	}
	return out
}

func (v Vec) Dot(o Vec) float64 {
	return v.coords[0]*o.coords[0] + v.coords[1]*o.coords[1] + v.coords[2]*o.coords[2]
}

// Cross returns the 3D cross product.
func (v Vec) Cross(o Vec) Vec {
	a, b := v.coords, o.coords
	return V3(
		a[1]*b[2]-a[2]*b[1],
		a[2]*b[0]-a[0]*b[2],
		a[0]*b[1]-a[1]*b[0],
	)
}

func (v Vec) combine(o Vec, fn func(a, b float64) float64) Vec {
	dim := v.Dim()
	if o.Dim() > dim {
		dim = o.Dim()
	}
	out := Vec{dim: dim}
	for i := range out.coords {
		out.coords[i] = fn(v.coords[i], o.coords[i])
	}
	return out
}

func (v Vec) String() string {
	switch v.Dim() {
	case 1:
		return fmt.Sprintf("(%g)", v.coords[0])
	case 2:
		return fmt.Sprintf("(%g, %g)", v.coords[0], v.coords[1])
	default:
		return fmt.Sprintf("(%g, %g, %g)", v.coords[0], v.coords[1], v.coords[2])
	}
}

func (v Vec) Equal(other Value) bool { return v.EqualWithin(other, DefaultTolerance) }

func (v Vec) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(Vec)
	if !ok || v.Dim() != o.Dim() {
		return false
	}
	for i := 0; i < v.Dim(); i++ {
		if !tol.Floats(v.coords[i], o.coords[i]) {
			return false
		}
	}
	return true
}
