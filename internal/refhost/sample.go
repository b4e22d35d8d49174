package refhost

import "math"

// SampleScene returns a document holding one object of every native type the
// registry converts.
func SampleScene() (*Document, error) {
	doc := NewDocument()

	square := &PolylineCurve{Points: []Point3d{
		{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 10, 0}, {0, 0, 0},
	}}
	hole := &PolylineCurve{Points: []Point3d{
		{4, 4, 0}, {6, 4, 0}, {6, 6, 0}, {4, 6, 0}, {4, 4, 0},
	}}
	nurbs, err := CreateNurbsCurve(3,
		[]Point3d{{0, 0, 0}, {2, 4, 0}, {6, 4, 0}, {8, 0, 0}, {10, 2, 0}},
		[]float64{1, 1, 2, 1, 1}, UniformKnots(3, 5), false)
	if err != nil {
		return nil, err
	}
	surface, err := CreateNurbsSurface(1, 1,
		[][]Point3d{
			{{0, 0, 0}, {0, 5, 1}},
			{{5, 0, 1}, {5, 5, 0}},
		},
		[][]float64{{1, 1}, {1, 1}}, UniformKnots(1, 2), UniformKnots(1, 2))
	if err != nil {
		return nil, err
	}

	objects := []Object{
		NumberValue(42),
		TextDot("thepipe"),
		Point3d{1, 2, 3},
		LineCurve{From: Point3d{0, 0, 0}, To: Point3d{10, 10, 0}},
		square,
		ArcCurve{
			Plane:  Plane{Origin: Point3d{5, 5, 0}, Normal: Vector3d{0, 0, 1}},
			Radius: 3,
			Angle:  Interval{0, math.Pi / 2},
		},
		nurbs,
		&Extrusion{
			Profile:  square,
			Path:     Vector3d{0, 0, 3},
			Holes:    []Curve{hole},
			CapStart: true,
			CapEnd:   true,
		},
		surface,
		&Mesh{
			Vertices: []Point3d{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			Faces:    []MeshFace{{0, 1, 2, 3}, {0, 2, 3, 3}},
		},
	}
	for _, obj := range objects {
		if _, err := doc.Add(obj); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
