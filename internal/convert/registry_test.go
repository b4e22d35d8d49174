package convert_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"thepipe/internal/convert"
	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
)

type hostPoint struct{ X, Y, Z float64 }

type hostLabel string

type hostSegments []hostPoint

func classify(h any) (geometry.Kind, bool) {
	switch h.(type) {
	case hostPoint:
		return geometry.KindVec, true
	case hostLabel:
		return geometry.KindText, true
	}
	return geometry.KindInvalid, false
}

func pointRegistry(t *testing.T) *convert.Registry[any] {
	t.Helper()
	r := convert.NewRegistry[any](func(h any) (geometry.Kind, bool) {
		if _, ok := h.(hostPoint); ok {
			return geometry.KindVec, true
		}
		return geometry.KindInvalid, false
	})
	require.NoError(t, convert.Register(r, geometry.KindVec,
		func(h any) (geometry.Vec, error) {
			p := h.(hostPoint)
			return geometry.V3(p.X, p.Y, p.Z), nil
		},
		func(v geometry.Vec) (any, error) {
			v = v.Ensure3D()
			return hostPoint{v.X(), v.Y(), v.Z()}, nil
		},
	))
	return r
}

func textRegistry(t *testing.T) *convert.Registry[any] {
	t.Helper()
	r := convert.NewRegistry[any](func(h any) (geometry.Kind, bool) {
		if _, ok := h.(hostLabel); ok {
			return geometry.KindText, true
		}
		return geometry.KindInvalid, false
	})
	require.NoError(t, convert.Register(r, geometry.KindText,
		func(h any) (geometry.Text, error) { return geometry.Text{Value: string(h.(hostLabel))}, nil },
		func(v geometry.Text) (any, error) {
			if v.Value == "" {
				return nil, errors.New("empty label")
			}
			return hostLabel(v.Value), nil
		},
	))
	return r
}

func TestAggregateDispatchesBothDirections(t *testing.T) {
	agg := convert.NewRegistry[any](nil)
	require.NoError(t, agg.Include(pointRegistry(t)))
	require.NoError(t, agg.Include(textRegistry(t)))
	require.Equal(t, []geometry.Kind{geometry.KindText, geometry.KindVec}, agg.Kinds())

	v, err := agg.ToPipe(hostPoint{1, 2, 3})
	require.NoError(t, err)
	require.True(t, v.Equal(geometry.V3(1, 2, 3)))

	h, err := agg.FromPipe(geometry.V2(4, 5))
	require.NoError(t, err)
	require.Equal(t, hostPoint{4, 5, 0}, h)

	h, err = agg.FromPipe(geometry.Text{Value: "door"})
	require.NoError(t, err)
	require.Equal(t, hostLabel("door"), h)
}

func TestUnsupportedKind(t *testing.T) {
	r := pointRegistry(t)

	_, err := r.FromPipe(geometry.Number{Value: 1})
	require.ErrorIs(t, err, convert.ErrUnsupportedKind)
	var uerr *convert.UnsupportedKindError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, geometry.KindNumber, uerr.Kind)

	_, err = r.ToPipe(hostLabel("x"))
	require.ErrorIs(t, err, convert.ErrUnsupportedKind)
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "convert_test.hostLabel", uerr.HostType)
}

func TestReconstructionFailureCarriesDiagnostic(t *testing.T) {
	r := textRegistry(t)
	_, err := r.FromPipe(geometry.Text{})
	require.ErrorIs(t, err, convert.ErrReconstructionFailed)
	var rerr *convert.ReconstructionError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, geometry.KindText, rerr.Kind)
	require.Equal(t, "empty label", rerr.Diagnostic)
}

func TestDuplicateBindingRejected(t *testing.T) {
	r := pointRegistry(t)
	err := r.Include(pointRegistry(t))
	require.ErrorIs(t, err, convert.ErrDuplicateBinding)
	require.Equal(t, []geometry.Kind{geometry.KindVec}, r.Kinds())
}

func TestRequireListsMissingKinds(t *testing.T) {
	r := pointRegistry(t)
	require.NoError(t, r.Require(geometry.KindVec))

	err := r.Require(geometry.KindVec, geometry.KindMesh, geometry.KindArc)
	require.ErrorIs(t, err, convert.ErrUnsupportedKind)
	require.Contains(t, err.Error(), "mesh")
	require.Contains(t, err.Error(), "arc")
}

func TestTreeFromPipeFlattensExpansions(t *testing.T) {
	r := convert.NewRegistry[any](classify)
	require.NoError(t, convert.RegisterExpand(r, geometry.KindPolyline,
		nil,
		func(p *geometry.Polyline) ([]any, error) {
			out := make([]any, 0, len(p.Points))
			for _, pt := range p.Points {
				out = append(out, hostPoint{pt.X(), pt.Y(), pt.Z()})
			}
			return out, nil
		},
	))
	require.NoError(t, r.Include(textRegistry(t)))
	require.False(t, r.Supports(geometry.KindPolyline), "one-way binding")

	tree := datatree.Group(
		datatree.New(&geometry.Polyline{Points: []geometry.Vec{geometry.V3(0, 0, 0), geometry.V3(1, 0, 0)}}),
		datatree.New(geometry.Text{Value: "a"}),
	)
	out, err := r.TreeFromPipe(tree)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestTreeFromPipeCollectsUnsupportedKinds(t *testing.T) {
	r := pointRegistry(t)
	tree := datatree.Leaves(
		geometry.V3(0, 0, 0),
		geometry.Number{Value: 1},
		geometry.Number{Value: 2},
		geometry.Text{Value: "x"},
	)
	_, err := r.TreeFromPipe(tree)
	require.ErrorIs(t, err, convert.ErrUnsupportedKind)
	require.Contains(t, err.Error(), "number")
	require.Contains(t, err.Error(), "text")
}

func TestTreeToPipe(t *testing.T) {
	agg := convert.NewRegistry[any](nil)
	require.NoError(t, agg.Include(pointRegistry(t)))
	require.NoError(t, agg.Include(textRegistry(t)))

	tree, err := agg.TreeToPipe([]any{hostPoint{1, 0, 0}, hostLabel("b")})
	require.NoError(t, err)
	want := datatree.Leaves(geometry.Text{Value: "b"}, geometry.V3(1, 0, 0))
	require.True(t, datatree.Equal(want, tree))

	_, err = agg.TreeToPipe([]any{hostSegments{}})
	require.ErrorIs(t, err, convert.ErrUnsupportedKind)
}

// impostorVec reports the vector kind without being a geometry.Vec.
type impostorVec struct{}

func (impostorVec) Kind() geometry.Kind                                 { return geometry.KindVec }
func (impostorVec) Equal(geometry.Value) bool                           { return false }
func (impostorVec) EqualWithin(geometry.Value, geometry.Tolerance) bool { return false }

func TestBindingTypeMismatchIsNotReconstructionFailure(t *testing.T) {
	r := pointRegistry(t)

	_, err := r.FromPipeAll(impostorVec{})
	require.ErrorIs(t, err, convert.ErrBindingMismatch)
	require.False(t, errors.Is(err, convert.ErrReconstructionFailed))
	var rerr *convert.ReconstructionError
	require.False(t, errors.As(err, &rerr))
}
