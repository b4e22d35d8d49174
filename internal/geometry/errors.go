package geometry

import "errors"

var (
	ErrZeroVector       = errors.New("geometry: zero-length vector")
	ErrDimension        = errors.New("geometry: vector must have 1 to 3 components")
	ErrGridBounds       = errors.New("geometry: control grid index out of range")
	ErrGridSize         = errors.New("geometry: invalid control grid size")
	ErrDegenerateDomain = errors.New("geometry: degenerate parameter domain")
	ErrKnotOrder        = errors.New("geometry: knots must be non-decreasing")
	ErrKnotOutOfDomain  = errors.New("geometry: knot outside parameter domain")
)
