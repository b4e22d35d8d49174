package refhost

import (
	"errors"
	"fmt"

	"thepipe/internal/convert"
	"thepipe/internal/geometry"
)

// NewRegistry aggregates the value, point, curve and surface converters and
// checks that every pipe kind is covered.
func NewRegistry() (*convert.Registry[Object], error) {
	agg := convert.NewRegistry[Object](nil)
	for _, build := range []func() (*convert.Registry[Object], error){
		ValueRegistry,
		PointRegistry,
		CurveRegistry,
		SurfaceRegistry,
	} {
		sub, err := build()
		if err != nil {
			return nil, err
		}
		if err := agg.Include(sub); err != nil {
			return nil, err
		}
	}
	if err := agg.Require(geometry.AllKinds()...); err != nil {
		return nil, fmt.Errorf("refhost: incomplete registry: %w", err)
	}
	return agg, nil
}

// ValueRegistry converts numbers and text.
func ValueRegistry() (*convert.Registry[Object], error) {
	r := convert.NewRegistry[Object](func(o Object) (geometry.Kind, bool) {
		switch o.(type) {
		case NumberValue:
			return geometry.KindNumber, true
		case TextDot:
			return geometry.KindText, true
		}
		return geometry.KindInvalid, false
	})
	err := errors.Join(
		convert.Register(r, geometry.KindNumber,
			func(o Object) (geometry.Number, error) { return geometry.Number{Value: float64(o.(NumberValue))}, nil },
			func(n geometry.Number) (Object, error) { return NumberValue(n.Value), nil },
		),
		convert.Register(r, geometry.KindText,
			func(o Object) (geometry.Text, error) { return geometry.Text{Value: string(o.(TextDot))}, nil },
			func(t geometry.Text) (Object, error) { return TextDot(t.Value), nil },
		),
	)
	return r, err
}

// PointRegistry converts points and vectors. Both export as vectors; an
// incoming vector always becomes a point.
func PointRegistry() (*convert.Registry[Object], error) {
	r := convert.NewRegistry[Object](func(o Object) (geometry.Kind, bool) {
		switch o.(type) {
		case Point3d, Vector3d:
			return geometry.KindVec, true
		}
		return geometry.KindInvalid, false
	})
	err := convert.Register(r, geometry.KindVec,
		func(o Object) (geometry.Vec, error) {
			switch p := o.(type) {
			case Point3d:
				return pointToVec(p), nil
			case Vector3d:
				return geometry.V3(p.X, p.Y, p.Z), nil
			}
			return geometry.Vec{}, fmt.Errorf("unexpected %T", o)
		},
		func(v geometry.Vec) (Object, error) { return vecToPoint(v), nil },
	)
	return r, err
}

// CurveRegistry converts lines, polylines, arcs and NURBS curves.
func CurveRegistry() (*convert.Registry[Object], error) {
	r := convert.NewRegistry[Object](func(o Object) (geometry.Kind, bool) {
		switch o.(type) {
		case LineCurve:
			return geometry.KindLine, true
		case *PolylineCurve:
			return geometry.KindPolyline, true
		case ArcCurve:
			return geometry.KindArc, true
		case *NurbsCurve:
			return geometry.KindNurbsCurve, true
		}
		return geometry.KindInvalid, false
	})
	err := errors.Join(
		convert.Register(r, geometry.KindLine,
			func(o Object) (geometry.Line, error) { return lineToPipe(o.(LineCurve)), nil },
			func(l geometry.Line) (Object, error) { return lineFromPipe(l), nil },
		),
		convert.Register(r, geometry.KindPolyline,
			func(o Object) (*geometry.Polyline, error) { return polylineToPipe(o.(*PolylineCurve)), nil },
			func(p *geometry.Polyline) (Object, error) { return polylineFromPipe(p) },
		),
		convert.Register(r, geometry.KindArc,
			func(o Object) (geometry.Arc, error) { return arcToPipe(o.(ArcCurve)), nil },
			func(a geometry.Arc) (Object, error) { return arcFromPipe(a) },
		),
		convert.Register(r, geometry.KindNurbsCurve,
			func(o Object) (*geometry.NurbsCurve, error) { return nurbsCurveToPipe(o.(*NurbsCurve)) },
			func(c *geometry.NurbsCurve) (Object, error) { return nurbsCurveFromPipe(c) },
		),
	)
	return r, err
}

// SurfaceRegistry converts extrusions, NURBS surfaces and meshes.
func SurfaceRegistry() (*convert.Registry[Object], error) {
	r := convert.NewRegistry[Object](func(o Object) (geometry.Kind, bool) {
		switch o.(type) {
		case *Extrusion:
			return geometry.KindExtrusion, true
		case *NurbsSurface:
			return geometry.KindNurbsSurface, true
		case *Mesh:
			return geometry.KindMesh, true
		}
		return geometry.KindInvalid, false
	})
	err := errors.Join(
		convert.Register(r, geometry.KindExtrusion,
			func(o Object) (*geometry.Extrusion, error) { return extrusionToPipe(o.(*Extrusion)) },
			func(e *geometry.Extrusion) (Object, error) { return extrusionFromPipe(e) },
		),
		convert.Register(r, geometry.KindNurbsSurface,
			func(o Object) (*geometry.NurbsSurface, error) { return nurbsSurfaceToPipe(o.(*NurbsSurface)) },
			func(s *geometry.NurbsSurface) (Object, error) { return nurbsSurfaceFromPipe(s) },
		),
		convert.Register(r, geometry.KindMesh,
			func(o Object) (*geometry.Mesh, error) { return meshToPipe(o.(*Mesh)), nil },
			func(m *geometry.Mesh) (Object, error) { return meshFromPipe(m) },
		),
	)
	return r, err
}

func pointToVec(p Point3d) geometry.Vec { return geometry.V3(p.X, p.Y, p.Z) }

func vecToPoint(v geometry.Vec) Point3d {
	v = v.Ensure3D()
	return Point3d{v.X(), v.Y(), v.Z()}
}

func vectorToVec(v Vector3d) geometry.Vec { return geometry.V3(v.X, v.Y, v.Z) }

func vecToVector(v geometry.Vec) Vector3d {
	v = v.Ensure3D()
	return Vector3d{v.X(), v.Y(), v.Z()}
}

func pointsToVecs(points []Point3d) []geometry.Vec {
	out := make([]geometry.Vec, len(points))
	for i, p := range points {
		out[i] = pointToVec(p)
	}
	return out
}

func vecsToPoints(vecs []geometry.Vec) []Point3d {
	out := make([]Point3d, len(vecs))
	for i, v := range vecs {
		out[i] = vecToPoint(v)
	}
	return out
}

func lineToPipe(l LineCurve) geometry.Line {
	return geometry.Line{Start: pointToVec(l.From), End: pointToVec(l.To)}
}

func lineFromPipe(l geometry.Line) LineCurve {
	return LineCurve{From: vecToPoint(l.Start), To: vecToPoint(l.End)}
}

func polylineToPipe(p *PolylineCurve) *geometry.Polyline {
	points := p.Points
	closed := p.IsClosed()
	if closed {
		points = points[:len(points)-1]
	}
	return &geometry.Polyline{Points: pointsToVecs(points), Closed: closed}
}

func polylineFromPipe(p *geometry.Polyline) (*PolylineCurve, error) {
	if len(p.Points) < 2 {
		return nil, convert.Reconstruction(geometry.KindPolyline, fmt.Sprintf("polyline needs at least 2 points, got %d", len(p.Points)))
	}
	points := vecsToPoints(p.Points)
	if p.Closed {
		points = append(points, points[0])
	}
	return &PolylineCurve{Points: points}, nil
}

func arcToPipe(a ArcCurve) geometry.Arc {
	return geometry.Arc{
		Center:     pointToVec(a.Plane.Origin),
		Normal:     vectorToVec(a.Plane.Normal),
		Radius:     a.Radius,
		StartAngle: a.Angle.T0,
		EndAngle:   a.Angle.T1,
	}
}

func arcFromPipe(a geometry.Arc) (ArcCurve, error) {
	if a.Radius <= 0 {
		return ArcCurve{}, convert.Reconstruction(geometry.KindArc, fmt.Sprintf("radius %g must be positive", a.Radius))
	}
	if a.Normal.Length() == 0 {
		return ArcCurve{}, convert.Reconstruction(geometry.KindArc, "plane normal is zero")
	}
	return ArcCurve{
		Plane:  Plane{Origin: vecToPoint(a.Center), Normal: vecToVector(a.Normal)},
		Radius: a.Radius,
		Angle:  Interval{a.StartAngle, a.EndAngle},
	}, nil
}

func nurbsCurveToPipe(c *NurbsCurve) (*geometry.NurbsCurve, error) {
	out, err := geometry.NewNurbsCurve(c.Degree, pointsToVecs(c.Points), c.Weights)
	if err != nil {
		return nil, err
	}
	if err := out.SetKnots(c.Knots, geometry.SpanOf(c.Knots)); err != nil {
		return nil, err
	}
	out.Closed = c.Periodic
	return out, nil
}

// hostSpan is the native knot span this host builds for n points of degree.
func hostSpan(degree, n int) geometry.Domain {
	return geometry.Domain{Min: 0, Max: float64(n - degree)}
}

// nurbsCurveFromPipe rescales the normalized knots onto the host span. When
// the host rejects them it retries once with uniform knots (periodic for
// closed curves) before giving up.
func nurbsCurveFromPipe(c *geometry.NurbsCurve) (*NurbsCurve, error) {
	points := vecsToPoints(c.Points)
	knots := c.KnotsIn(hostSpan(c.Degree, len(points)))
	out, err := CreateNurbsCurve(c.Degree, points, c.Weights, knots, c.Closed)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, errInvalidKnots) {
		return nil, convert.Reconstruction(geometry.KindNurbsCurve, err.Error())
	}
	out, err = CreateNurbsCurve(c.Degree, points, c.Weights, fallbackKnots(c.Degree, len(points), c.Closed), c.Closed)
	if err != nil {
		return nil, convert.Reconstruction(geometry.KindNurbsCurve, err.Error())
	}
	return out, nil
}

func curveToPipe(c Curve) (geometry.Curve, error) {
	switch v := c.(type) {
	case LineCurve:
		return lineToPipe(v), nil
	case *PolylineCurve:
		return polylineToPipe(v), nil
	case ArcCurve:
		return arcToPipe(v), nil
	case *NurbsCurve:
		return nurbsCurveToPipe(v)
	case nil:
		return nil, errors.New("missing curve")
	}
	return nil, &convert.UnsupportedKindError{HostType: fmt.Sprintf("%T", c)}
}

func curveFromPipe(c geometry.Curve) (Curve, error) {
	switch v := c.(type) {
	case geometry.Line:
		return lineFromPipe(v), nil
	case *geometry.Polyline:
		return polylineFromPipe(v)
	case geometry.Arc:
		return arcFromPipe(v)
	case *geometry.NurbsCurve:
		return nurbsCurveFromPipe(v)
	case nil:
		return nil, errors.New("missing curve")
	}
	return nil, &convert.UnsupportedKindError{Kind: c.Kind()}
}

// extrusionToPipe exports vertical extrusions only. A missing normal is
// cached as the sweep direction, which is the profile plane normal for a
// vertical sweep.
func extrusionToPipe(e *Extrusion) (*geometry.Extrusion, error) {
	profile, err := curveToPipe(e.Profile)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	out, err := geometry.NewExtrusion(profile, vectorToVec(e.Path), e.Path.Length())
	if err != nil {
		return nil, err
	}
	if !out.IsVertical() {
		return nil, convert.Reconstruction(geometry.KindExtrusion, "not vertical")
	}
	for i, h := range e.Holes {
		hole, err := curveToPipe(h)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		out.Holes = append(out.Holes, hole)
	}
	out.CappedAtStart, out.CappedAtEnd = e.CapStart, e.CapEnd
	out.SurfaceNormal = vectorToVec(e.Normal)
	if e.Normal.Length() == 0 {
		out.SurfaceNormal = out.Direction()
	}
	return out, nil
}

func extrusionFromPipe(e *geometry.Extrusion) (*Extrusion, error) {
	profile, err := curveFromPipe(e.Profile)
	if err != nil {
		return nil, err
	}
	out := &Extrusion{
		Profile:  profile,
		Path:     vecToVector(e.Direction().Scale(e.Height)),
		CapStart: e.CappedAtStart,
		CapEnd:   e.CappedAtEnd,
		Normal:   vecToVector(e.SurfaceNormal),
	}
	for _, h := range e.Holes {
		hole, err := curveFromPipe(h)
		if err != nil {
			return nil, err
		}
		out.Holes = append(out.Holes, hole)
	}
	return out, nil
}

func nurbsSurfaceToPipe(s *NurbsSurface) (*geometry.NurbsSurface, error) {
	countU, countV := s.CountU(), s.CountV()
	points := make([]geometry.Vec, 0, countU*countV)
	weights := make([]float64, 0, countU*countV)
	for u := range countU {
		points = append(points, pointsToVecs(s.Points[u])...)
		weights = append(weights, s.Weights[u]...)
	}
	out, err := geometry.NurbsSurfaceFromGrid(countU, countV, s.DegreeU, s.DegreeV, points, weights)
	if err != nil {
		return nil, err
	}
	if err := out.SetUKnots(s.KnotsU, geometry.SpanOf(s.KnotsU)); err != nil {
		return nil, err
	}
	if err := out.SetVKnots(s.KnotsV, geometry.SpanOf(s.KnotsV)); err != nil {
		return nil, err
	}
	out.ClosedU, out.ClosedV = s.ClosedU, s.ClosedV
	out.SurfaceNormal = vectorToVec(s.Normal)
	return out, nil
}

func nurbsSurfaceFromPipe(s *geometry.NurbsSurface) (*NurbsSurface, error) {
	countU, countV := s.UCount(), s.VCount()
	flat, flatW := s.Points(), s.Weights()
	points := make([][]Point3d, countU)
	weights := make([][]float64, countU)
	for u := range countU {
		row := u * countV
		points[u] = vecsToPoints(flat[row : row+countV])
		weights[u] = flatW[row : row+countV]
	}
	knotsU := s.UKnotsIn(hostSpan(s.UDegree, countU))
	knotsV := s.VKnotsIn(hostSpan(s.VDegree, countV))
	out, err := CreateNurbsSurface(s.UDegree, s.VDegree, points, weights, knotsU, knotsV)
	if errors.Is(err, errInvalidKnots) {
		out, err = CreateNurbsSurface(s.UDegree, s.VDegree, points, weights,
			fallbackKnots(s.UDegree, countU, s.ClosedU),
			fallbackKnots(s.VDegree, countV, s.ClosedV))
	}
	if err != nil {
		return nil, convert.Reconstruction(geometry.KindNurbsSurface, err.Error())
	}
	out.ClosedU, out.ClosedV = s.ClosedU, s.ClosedV
	out.Normal = vecToVector(s.SurfaceNormal)
	return out, nil
}

func meshToPipe(m *Mesh) *geometry.Mesh {
	out := &geometry.Mesh{Vertices: pointsToVecs(m.Vertices)}
	for _, f := range m.Faces {
		if f.IsTriangle() {
			out.Faces = append(out.Faces, []int{f.A, f.B, f.C})
		} else {
			out.Faces = append(out.Faces, []int{f.A, f.B, f.C, f.D})
		}
	}
	return out
}

func meshFromPipe(m *geometry.Mesh) (*Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, convert.Reconstruction(geometry.KindMesh, err.Error())
	}
	out := &Mesh{Vertices: vecsToPoints(m.Vertices)}
	for _, f := range m.Faces {
		face := MeshFace{A: f[0], B: f[1], C: f[2], D: f[2]}
		if len(f) == 4 {
			face.D = f[3]
		}
		out.Faces = append(out.Faces, face)
	}
	return out, nil
}
