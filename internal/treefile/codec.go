package treefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
)

// ErrVersion is returned for documents written by a newer format.
var ErrVersion = errors.New("treefile: unsupported version")

// Format selects the document syntax.
type Format int

const (
	YAML Format = iota
	JSON
)

// FormatFor picks JSON for .json paths and YAML otherwise.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Encode writes tree as a versioned document.
func Encode(w io.Writer, tree *datatree.Node, format Format) error {
	doc := fileDoc{Version: Version, Tree: nodeToDoc(tree)}
	if format == JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode tree yaml: %w", err)
	}
	return enc.Close()
}

// Marshal renders tree as YAML.
func Marshal(tree *datatree.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tree, YAML); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document. A missing version is read as version 1.
func Decode(r io.Reader, format Format) (*datatree.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	if format == JSON {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse tree document: %w", err)
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}
	if doc.Tree == nil {
		return datatree.Group(), nil
	}
	return nodeFromDoc(doc.Tree, "tree")
}

// Unmarshal parses a YAML document.
func Unmarshal(data []byte) (*datatree.Node, error) {
	return Decode(bytes.NewReader(data), YAML)
}

// ReadFile loads a tree, choosing the syntax from the extension. "-" reads
// standard input as YAML.
func ReadFile(path string) (*datatree.Node, error) {
	if path == "-" {
		return Decode(os.Stdin, YAML)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tree file: %w", err)
	}
	defer f.Close()
	tree, err := Decode(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// WriteFile stores tree at path, creating parent directories.
func WriteFile(path string, tree *datatree.Node) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tree directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, tree, FormatFor(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func nodeToDoc(n *datatree.Node) *nodeDoc {
	if n == nil {
		return nil
	}
	doc := &nodeDoc{Value: valueToDoc(n.Payload)}
	for _, c := range n.Children {
		doc.Children = append(doc.Children, nodeToDoc(c))
	}
	return doc
}

func nodeFromDoc(doc *nodeDoc, path string) (*datatree.Node, error) {
	n := &datatree.Node{}
	if doc.Value != nil {
		v, err := valueFromDoc(doc.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		n.Payload = v
	}
	for i, c := range doc.Children {
		if c == nil {
			return nil, fmt.Errorf("%s.children[%d]: empty node", path, i)
		}
		child, err := nodeFromDoc(c, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func coords(v geometry.Vec) []float64 { return v.Coordinates() }

func coordList(vs []geometry.Vec) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = coords(v)
	}
	return out
}

func valueToDoc(v geometry.Value) *valueDoc {
	if v == nil {
		return nil
	}
	doc := &valueDoc{Kind: v.Kind().String()}
	switch t := v.(type) {
	case geometry.Number:
		doc.Value = t.Value
	case geometry.Text:
		doc.Value = t.Value
	case geometry.Vec:
		doc.Coords = coords(t)
	case geometry.Line:
		doc.Start, doc.End = coords(t.Start), coords(t.End)
	case *geometry.Polyline:
		doc.Points, doc.Closed = coordList(t.Points), t.Closed
	case geometry.Arc:
		doc.Center, doc.Normal = coords(t.Center), coords(t.Normal)
		doc.Radius, doc.StartAngle, doc.EndAngle = t.Radius, t.StartAngle, t.EndAngle
	case *geometry.NurbsCurve:
		doc.Degree, doc.Closed = t.Degree, t.Closed
		doc.Points, doc.Weights, doc.Knots = coordList(t.Points), t.Weights, t.Knots()
	case *geometry.Extrusion:
		doc.Profile = valueToDoc(t.Profile)
		doc.Direction, doc.Height = coords(t.Direction()), t.Height
		for _, h := range t.Holes {
			doc.Holes = append(doc.Holes, valueToDoc(h))
		}
		doc.CappedStart, doc.CappedEnd = t.CappedAtStart, t.CappedAtEnd
		doc.Normal = coords(t.SurfaceNormal)
	case *geometry.NurbsSurface:
		doc.UDegree, doc.VDegree = t.UDegree, t.VDegree
		doc.UCount, doc.VCount = t.UCount(), t.VCount()
		doc.Points, doc.Weights = coordList(t.Points()), t.Weights()
		doc.UKnots, doc.VKnots = t.UKnots(), t.VKnots()
		doc.ClosedU, doc.ClosedV = t.ClosedU, t.ClosedV
		doc.Normal = coords(t.SurfaceNormal)
	case *geometry.Mesh:
		doc.Vertices, doc.Faces = coordList(t.Vertices), t.Faces
	}
	return doc
}

func vec(c []float64, field string) (geometry.Vec, error) {
	v, err := geometry.NewVec(c...)
	if err != nil {
		return geometry.Vec{}, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// optVec reads an optional vector; absent means the zero 3D vector.
func optVec(c []float64, field string) (geometry.Vec, error) {
	if len(c) == 0 {
		return geometry.V3(0, 0, 0), nil
	}
	return vec(c, field)
}

func vecs(cs [][]float64, field string) ([]geometry.Vec, error) {
	out := make([]geometry.Vec, len(cs))
	for i, c := range cs {
		v, err := vec(c, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func valueFromDoc(doc *valueDoc) (geometry.Value, error) {
	kind, ok := geometry.ParseKind(doc.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", doc.Kind)
	}
	switch kind {
	case geometry.KindNumber:
		switch n := doc.Value.(type) {
		case int:
			return geometry.Number{Value: float64(n)}, nil
		case int64:
			return geometry.Number{Value: float64(n)}, nil
		case float64:
			return geometry.Number{Value: n}, nil
		}
		return nil, fmt.Errorf("number value %v is not numeric", doc.Value)
	case geometry.KindText:
		s, ok := doc.Value.(string)
		if !ok {
			return nil, fmt.Errorf("text value %v is not a string", doc.Value)
		}
		return geometry.Text{Value: s}, nil
	case geometry.KindVec:
		return vec(doc.Coords, "coords")
	case geometry.KindLine:
		start, err := vec(doc.Start, "start")
		if err != nil {
			return nil, err
		}
		end, err := vec(doc.End, "end")
		if err != nil {
			return nil, err
		}
		return geometry.Line{Start: start, End: end}, nil
	case geometry.KindPolyline:
		points, err := vecs(doc.Points, "points")
		if err != nil {
			return nil, err
		}
		return &geometry.Polyline{Points: points, Closed: doc.Closed}, nil
	case geometry.KindArc:
		center, err := vec(doc.Center, "center")
		if err != nil {
			return nil, err
		}
		normal, err := vec(doc.Normal, "normal")
		if err != nil {
			return nil, err
		}
		return geometry.Arc{Center: center, Normal: normal, Radius: doc.Radius, StartAngle: doc.StartAngle, EndAngle: doc.EndAngle}, nil
	case geometry.KindNurbsCurve:
		return nurbsCurveFromDoc(doc)
	case geometry.KindExtrusion:
		return extrusionFromDoc(doc)
	case geometry.KindNurbsSurface:
		return nurbsSurfaceFromDoc(doc)
	case geometry.KindMesh:
		vertices, err := vecs(doc.Vertices, "vertices")
		if err != nil {
			return nil, err
		}
		m := &geometry.Mesh{Vertices: vertices, Faces: doc.Faces}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown kind %q", doc.Kind)
}

func nurbsCurveFromDoc(doc *valueDoc) (*geometry.NurbsCurve, error) {
	points, err := vecs(doc.Points, "points")
	if err != nil {
		return nil, err
	}
	c, err := geometry.NewNurbsCurve(doc.Degree, points, doc.Weights)
	if err != nil {
		return nil, err
	}
	c.Closed = doc.Closed
	if len(doc.Knots) > 0 {
		if err := c.SetNormalizedKnots(doc.Knots); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func curveFromDoc(doc *valueDoc, field string) (geometry.Curve, error) {
	if doc == nil {
		return nil, fmt.Errorf("%s: missing curve", field)
	}
	v, err := valueFromDoc(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	c, ok := v.(geometry.Curve)
	if !ok {
		return nil, fmt.Errorf("%s: %s is not a curve", field, v.Kind())
	}
	return c, nil
}

func extrusionFromDoc(doc *valueDoc) (*geometry.Extrusion, error) {
	profile, err := curveFromDoc(doc.Profile, "profile")
	if err != nil {
		return nil, err
	}
	dir, err := vec(doc.Direction, "direction")
	if err != nil {
		return nil, err
	}
	e, err := geometry.NewExtrusion(profile, dir, doc.Height)
	if err != nil {
		return nil, err
	}
	for i, h := range doc.Holes {
		hole, err := curveFromDoc(h, fmt.Sprintf("holes[%d]", i))
		if err != nil {
			return nil, err
		}
		e.Holes = append(e.Holes, hole)
	}
	e.CappedAtStart, e.CappedAtEnd = doc.CappedStart, doc.CappedEnd
	if e.SurfaceNormal, err = optVec(doc.Normal, "normal"); err != nil {
		return nil, err
	}
	return e, nil
}

func nurbsSurfaceFromDoc(doc *valueDoc) (*geometry.NurbsSurface, error) {
	points, err := vecs(doc.Points, "points")
	if err != nil {
		return nil, err
	}
	weights := doc.Weights
	if weights == nil {
		weights = make([]float64, len(points))
		for i := range weights {
			weights[i] = 1
		}
	}
	s, err := geometry.NurbsSurfaceFromGrid(doc.UCount, doc.VCount, doc.UDegree, doc.VDegree, points, weights)
	if err != nil {
		return nil, err
	}
	if len(doc.UKnots) > 0 {
		if err := s.SetNormalizedKnots(geometry.U, doc.UKnots); err != nil {
			return nil, err
		}
	}
	if len(doc.VKnots) > 0 {
		if err := s.SetNormalizedKnots(geometry.V, doc.VKnots); err != nil {
			return nil, err
		}
	}
	s.ClosedU, s.ClosedV = doc.ClosedU, doc.ClosedV
	if s.SurfaceNormal, err = optVec(doc.Normal, "normal"); err != nil {
		return nil, err
	}
	return s, nil
}
