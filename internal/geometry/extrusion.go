package geometry

import (
	"fmt"

	"thepipe/internal/pipeutil"
)

// Extrusion sweeps a planar profile along a direction. The direction is
// always stored unitized; Height carries the sweep length.
type Extrusion struct {
	Profile       Curve
	Height        float64
	Holes         []Curve
	CappedAtStart bool
	CappedAtEnd   bool
	SurfaceNormal Vec

	direction Vec
}

// NewExtrusion builds an extrusion, unitizing dir.
func NewExtrusion(profile Curve, dir Vec, height float64) (*Extrusion, error) {
	if profile == nil {
		return nil, fmt.Errorf("geometry: extrusion requires a profile")
	}
	e := &Extrusion{Profile: profile, Height: height}
	if err := e.SetDirection(dir); err != nil {
		return nil, err
	}
	return e, nil
}

func (*Extrusion) Kind() Kind { return KindExtrusion }
func (*Extrusion) surface()   {}

// Direction returns the unit sweep direction.
func (e *Extrusion) Direction() Vec { return e.direction }

// SetDirection stores dir promoted to 3D and unitized.
func (e *Extrusion) SetDirection(dir Vec) error {
	unit, err := dir.Ensure3D().Unitized()
	if err != nil {
		return fmt.Errorf("extrusion direction: %w", err)
	}
	e.direction = unit
	return nil
}

// Normal returns the cached surface normal.
func (e *Extrusion) Normal() Vec { return e.SurfaceNormal }

// IsVertical reports whether the direction is within 1e-3 of +Z.
func (e *Extrusion) IsVertical() bool {
	return 1-e.direction.Ensure3D().Dot(V3(0, 0, 1)) <= verticalTolerance
}

const verticalTolerance = 1e-3

func (e *Extrusion) Equal(other Value) bool { return e.EqualWithin(other, DefaultTolerance) }

// EqualWithin compares profile, direction, height, holes and caps. The
// cached surface normal is derived data and does not participate.
func (e *Extrusion) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(*Extrusion)
	if !ok || e == nil || o == nil {
		return false
	}
	if !EqualWithin(e.Profile, o.Profile, tol) ||
		!e.direction.EqualWithin(o.direction, tol) ||
		!tol.Floats(e.Height, o.Height) ||
		e.CappedAtStart != o.CappedAtStart ||
		e.CappedAtEnd != o.CappedAtEnd {
		return false
	}
	return pipeutil.EqualIgnoreOrder(e.Holes, o.Holes, func(a, b Curve) bool {
		return EqualWithin(a, b, tol)
	})
}
