package refhost

import "math"

// Object is any native object a Document stores.
type Object interface {
	ObjectType() string
}

// Curve is a native curve object.
type Curve interface {
	Object
	isCurve()
}

type Point3d struct{ X, Y, Z float64 }

func (Point3d) ObjectType() string { return "point" }

func (p Point3d) Sub(o Point3d) Vector3d { return Vector3d{p.X - o.X, p.Y - o.Y, p.Z - o.Z} }

func (p Point3d) DistanceTo(o Point3d) float64 { return p.Sub(o).Length() }

type Vector3d struct{ X, Y, Z float64 }

func (Vector3d) ObjectType() string { return "vector" }

func (v Vector3d) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Interval is a parameter range.
type Interval struct{ T0, T1 float64 }

func (i Interval) Length() float64 { return i.T1 - i.T0 }

// Plane is an origin with a normal.
type Plane struct {
	Origin Point3d
	Normal Vector3d
}

// NumberValue is a plain number stored in the document.
type NumberValue float64

func (NumberValue) ObjectType() string { return "number" }

// TextDot is a text annotation.
type TextDot string

func (TextDot) ObjectType() string { return "text" }

type LineCurve struct {
	From Point3d
	To   Point3d
}

func (LineCurve) ObjectType() string { return "line" }
func (LineCurve) isCurve()           {}

// PolylineCurve is closed when its last point repeats the first.
type PolylineCurve struct {
	Points []Point3d
}

func (*PolylineCurve) ObjectType() string { return "polyline" }
func (*PolylineCurve) isCurve()           {}

// IsClosed reports whether the chain returns to its start.
func (p *PolylineCurve) IsClosed() bool {
	n := len(p.Points)
	return n > 2 && p.Points[0] == p.Points[n-1]
}

// ArcCurve is a circular arc; an Angle spanning 2π is a full circle.
type ArcCurve struct {
	Plane  Plane
	Radius float64
	Angle  Interval
}

func (ArcCurve) ObjectType() string { return "arc" }
func (ArcCurve) isCurve()           {}

// Extrusion sweeps Profile along Path. Holes share the profile plane.
type Extrusion struct {
	Profile  Curve
	Path     Vector3d
	Holes    []Curve
	CapStart bool
	CapEnd   bool
	Normal   Vector3d
}

func (*Extrusion) ObjectType() string { return "extrusion" }

// MeshFace holds four vertex indices; a triangle repeats C in D.
type MeshFace struct{ A, B, C, D int }

func (f MeshFace) IsTriangle() bool { return f.C == f.D }

type Mesh struct {
	Vertices []Point3d
	Faces    []MeshFace
}

func (*Mesh) ObjectType() string { return "mesh" }
