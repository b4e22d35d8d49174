package testsupport

import (
	"math"
	"testing"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
)

// SampleTree returns a tree holding one payload of every kind, nested two
// levels deep.
func SampleTree(t testing.TB) *datatree.Node {
	t.Helper()

	square := &geometry.Polyline{
		Points: []geometry.Vec{
			geometry.V3(0, 0, 0), geometry.V3(4, 0, 0),
			geometry.V3(4, 4, 0), geometry.V3(0, 4, 0),
		},
		Closed: true,
	}
	hole := &geometry.Polyline{
		Points: []geometry.Vec{
			geometry.V3(1, 1, 0), geometry.V3(2, 1, 0), geometry.V3(2, 2, 0),
		},
		Closed: true,
	}
	ext, err := geometry.NewExtrusion(square, geometry.V3(0, 0, 3), 3)
	if err != nil {
		t.Fatalf("extrusion: %v", err)
	}
	ext.Holes = []geometry.Curve{hole}
	ext.CappedAtStart, ext.CappedAtEnd = true, true
	ext.SurfaceNormal = geometry.V3(0, 0, 1)

	return datatree.Group(
		datatree.New(geometry.Number{Value: 42}),
		datatree.New(geometry.Text{Value: "level 1"}),
		datatree.Group(
			datatree.New(geometry.V2(1, 2)),
			datatree.New(geometry.Line{Start: geometry.V3(0, 0, 0), End: geometry.V3(1, 1, 1)}),
			datatree.New(square),
			datatree.New(geometry.Arc{
				Center: geometry.V3(0, 0, 0), Normal: geometry.V3(0, 0, 1),
				Radius: 2, StartAngle: 0, EndAngle: math.Pi / 2,
			}),
			datatree.New(SampleNurbsCurve(t)),
		),
		datatree.Group(
			datatree.New(ext),
			datatree.New(SampleNurbsSurface(t)),
			datatree.New(&geometry.Mesh{
				Vertices: []geometry.Vec{
					geometry.V3(0, 0, 0), geometry.V3(1, 0, 0),
					geometry.V3(1, 1, 0), geometry.V3(0, 1, 0),
				},
				Faces: [][]int{{0, 1, 2}, {0, 2, 3}},
			}),
		),
	)
}

// SampleNurbsCurve returns a cubic curve with clamped knots.
func SampleNurbsCurve(t testing.TB) *geometry.NurbsCurve {
	t.Helper()
	c, err := geometry.NewNurbsCurve(3, []geometry.Vec{
		geometry.V3(0, 0, 0), geometry.V3(1, 2, 0), geometry.V3(3, 2, 0), geometry.V3(4, 0, 0),
	}, []float64{1, 0.8, 0.8, 1})
	if err != nil {
		t.Fatalf("nurbs curve: %v", err)
	}
	if err := c.SetKnots([]float64{0, 0, 0, 7, 7, 7}, geometry.Domain{Min: 0, Max: 7}); err != nil {
		t.Fatalf("curve knots: %v", err)
	}
	return c
}

// SampleNurbsSurface returns a 4×3 surface of degree 3×2 with a bulge and
// clamped knots over a non-unit native domain.
func SampleNurbsSurface(t testing.TB) *geometry.NurbsSurface {
	t.Helper()
	s, err := geometry.NewNurbsSurface(4, 3, 3, 2)
	if err != nil {
		t.Fatalf("nurbs surface: %v", err)
	}
	for u := 0; u < 4; u++ {
		for v := 0; v < 3; v++ {
			z := 0.0
			if (u == 1 || u == 2) && v == 1 {
				z = 2
			}
			if err := s.SetControlPoint(u, v, geometry.V3(float64(u), float64(v), z)); err != nil {
				t.Fatalf("control point: %v", err)
			}
		}
	}
	if err := s.SetWeight(1, 1, 0.5); err != nil {
		t.Fatalf("weight: %v", err)
	}
	if err := s.SetUKnots([]float64{10, 10, 10, 20, 20, 20}, geometry.Domain{Min: 10, Max: 20}); err != nil {
		t.Fatalf("u knots: %v", err)
	}
	if err := s.SetVKnots([]float64{-1, -1, 1, 1}, geometry.Domain{Min: -1, Max: 1}); err != nil {
		t.Fatalf("v knots: %v", err)
	}
	s.SurfaceNormal = geometry.V3(0, 0, 1)
	return s
}
