package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
)

// MaxDepth bounds tree nesting accepted by the decoder.
const MaxDepth = 256

var (
	ErrUnknownKind = errors.New("wire: unknown kind tag")
	ErrTooDeep     = errors.New("wire: tree nesting exceeds limit")
	ErrUnexpected  = errors.New("wire: unexpected message type")
	ErrNilChild    = errors.New("wire: nil child node")
)

// EncodeTree renders a tree as the payload of a MsgTree frame.
func EncodeTree(tree *datatree.Node) ([]byte, error) {
	node, err := nodeFields(tree, 0)
	if err != nil {
		return nil, err
	}
	return EncodeFields([]Field{RecordField(FieldNode, node)}), nil
}

// DecodeTree parses a MsgTree payload.
func DecodeTree(payload []byte) (*datatree.Node, error) {
	fields, err := DecodeFields(payload)
	if err != nil {
		return nil, err
	}
	if err := ValidateMessage(MsgTree, fields); err != nil {
		return nil, err
	}
	f, _ := GetField(fields, FieldNode)
	rec, err := f.Record()
	if err != nil {
		return nil, err
	}
	return decodeNode(rec, 0)
}

// Marshal encodes a tree as a complete MsgTree frame.
func Marshal(tree *datatree.Node, id uint64) ([]byte, error) {
	payload, err := EncodeTree(tree)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewFrame(MsgTree, id, 0, payload), DefaultLimits()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a complete MsgTree frame.
func Unmarshal(b []byte, limits Limits) (*datatree.Node, error) {
	f, err := ReadFrame(bytes.NewReader(b), limits)
	if err != nil {
		return nil, err
	}
	return TreeFromFrame(f)
}

// ReadTree reads one MsgTree frame from r.
func ReadTree(r io.Reader, limits Limits) (*datatree.Node, Header, error) {
	f, err := ReadFrame(r, limits)
	if err != nil {
		return nil, Header{}, err
	}
	tree, err := TreeFromFrame(f)
	return tree, f.Header, err
}

// TreeFromFrame decodes a MsgTree frame. A frame flagged FlagEmpty yields a
// nil tree and no error.
func TreeFromFrame(f Frame) (*datatree.Node, error) {
	if f.Header.MessageType != MsgTree {
		return nil, fmt.Errorf("%w: %d", ErrUnexpected, f.Header.MessageType)
	}
	if f.Header.Flags&FlagEmpty != 0 {
		return nil, nil
	}
	return DecodeTree(f.Payload)
}

func nodeFields(n *datatree.Node, depth int) ([]Field, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	if n == nil {
		return nil, nil
	}
	fields := make([]Field, 0, len(n.Children)+1)
	if n.Payload != nil {
		rec, err := EncodeValue(n.Payload)
		if err != nil {
			return nil, err
		}
		fields = append(fields, RecordField(FieldPayload, rec))
	}
	for i, c := range n.Children {
		if c == nil {
			return nil, fmt.Errorf("%w at depth %d index %d", ErrNilChild, depth+1, i)
		}
		child, err := nodeFields(c, depth+1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, RecordField(FieldChild, child))
	}
	return fields, nil
}

func decodeNode(fields []Field, depth int) (*datatree.Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	n := &datatree.Node{}
	if f, ok := GetField(fields, FieldPayload); ok {
		rec, err := f.Record()
		if err != nil {
			return nil, err
		}
		v, err := DecodeValue(rec)
		if err != nil {
			return nil, err
		}
		n.Payload = v
	}
	for _, f := range AllFields(fields, FieldChild) {
		rec, err := f.Record()
		if err != nil {
			return nil, err
		}
		child, err := decodeNode(rec, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// EncodeValue renders one geometry value as a value record.
func EncodeValue(v geometry.Value) ([]Field, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrUnknownKind)
	}
	fields := []Field{U16Field(FieldKind, uint16(v.Kind()))}
	switch t := v.(type) {
	case geometry.Number:
		fields = append(fields, F64Field(FieldNumber, t.Value))
	case geometry.Text:
		fields = append(fields, StringField(FieldText, t.Value))
	case geometry.Vec:
		fields = append(fields, vecField(FieldCoords, t))
	case geometry.Line:
		fields = append(fields, vecField(FieldStart, t.Start), vecField(FieldEnd, t.End))
	case *geometry.Polyline:
		fields = append(fields, BoolField(FieldClosed, t.Closed))
		fields = appendPoints(fields, t.Points)
	case geometry.Arc:
		fields = append(fields,
			vecField(FieldCenter, t.Center),
			vecField(FieldNormal, t.Normal),
			F64Field(FieldRadius, t.Radius),
			F64Field(FieldStartAngle, t.StartAngle),
			F64Field(FieldEndAngle, t.EndAngle),
		)
	case *geometry.NurbsCurve:
		fields = append(fields,
			U32Field(FieldDegree, uint32(t.Degree)),
			F64ListField(FieldWeights, t.Weights),
			F64ListField(FieldKnots, t.Knots()),
			BoolField(FieldClosed, t.Closed),
		)
		fields = appendPoints(fields, t.Points)
	case *geometry.Extrusion:
		profile, err := EncodeValue(t.Profile)
		if err != nil {
			return nil, fmt.Errorf("extrusion profile: %w", err)
		}
		fields = append(fields,
			RecordField(FieldProfile, profile),
			vecField(FieldDirection, t.Direction()),
			F64Field(FieldHeight, t.Height),
			BoolField(FieldCapStart, t.CappedAtStart),
			BoolField(FieldCapEnd, t.CappedAtEnd),
			vecField(FieldSurfaceNormal, t.SurfaceNormal),
		)
		for i, h := range t.Holes {
			rec, err := EncodeValue(h)
			if err != nil {
				return nil, fmt.Errorf("extrusion hole %d: %w", i, err)
			}
			fields = append(fields, RecordField(FieldHole, rec))
		}
	case *geometry.NurbsSurface:
		fields = append(fields,
			U32Field(FieldUCount, uint32(t.UCount())),
			U32Field(FieldVCount, uint32(t.VCount())),
			U32Field(FieldUDegree, uint32(t.UDegree)),
			U32Field(FieldVDegree, uint32(t.VDegree)),
			F64ListField(FieldWeights, t.Weights()),
			F64ListField(FieldUKnots, t.UKnots()),
			F64ListField(FieldVKnots, t.VKnots()),
			BoolField(FieldClosedU, t.ClosedU),
			BoolField(FieldClosedV, t.ClosedV),
			vecField(FieldSurfaceNormal, t.SurfaceNormal),
		)
		fields = appendPoints(fields, t.Points())
	case *geometry.Mesh:
		fields = appendPoints(fields, t.Vertices)
		for _, face := range t.Faces {
			idx := make([]uint32, len(face))
			for i, v := range face {
				idx[i] = uint32(v)
			}
			fields = append(fields, U32ListField(FieldFace, idx))
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, v.Kind())
	}
	return fields, nil
}

// DecodeValue parses a value record.
func DecodeValue(fields []Field) (geometry.Value, error) {
	kf, ok := GetField(fields, FieldKind)
	if !ok {
		return nil, ValidationError{Record: "value", FieldID: FieldKind, Reason: "missing required field"}
	}
	tag, err := kf.U16()
	if err != nil {
		return nil, err
	}
	kind := geometry.Kind(tag)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, tag)
	}
	if err := ValidateValue(kind, fields); err != nil {
		return nil, err
	}
	d := decoder{fields: fields}

	var out geometry.Value
	switch kind {
	case geometry.KindNumber:
		out = geometry.Number{Value: d.f64(FieldNumber)}
	case geometry.KindText:
		s, _ := mustField(fields, FieldText).String()
		out = geometry.Text{Value: s}
	case geometry.KindVec:
		out = d.vec(FieldCoords)
	case geometry.KindLine:
		out = geometry.Line{Start: d.vec(FieldStart), End: d.vec(FieldEnd)}
	case geometry.KindPolyline:
		out = &geometry.Polyline{Points: d.points(), Closed: d.bool(FieldClosed)}
	case geometry.KindArc:
		out = geometry.Arc{
			Center:     d.vec(FieldCenter),
			Normal:     d.vec(FieldNormal),
			Radius:     d.f64(FieldRadius),
			StartAngle: d.f64(FieldStartAngle),
			EndAngle:   d.f64(FieldEndAngle),
		}
	case geometry.KindNurbsCurve:
		out, err = d.nurbsCurve()
	case geometry.KindExtrusion:
		out, err = d.extrusion()
	case geometry.KindNurbsSurface:
		out, err = d.nurbsSurface()
	case geometry.KindMesh:
		out, err = d.mesh()
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	if d.err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, d.err)
	}
	return out, nil
}

func vecField(id uint16, v geometry.Vec) Field {
	return F64ListField(id, v.Coordinates())
}

func appendPoints(fields []Field, pts []geometry.Vec) []Field {
	for _, p := range pts {
		fields = append(fields, vecField(FieldPoint, p))
	}
	return fields
}

func mustField(fields []Field, id uint16) Field {
	f, _ := GetField(fields, id)
	return f
}

// decoder accumulates the first error so per-kind decoding reads linearly.
type decoder struct {
	fields []Field
	err    error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) f64(id uint16) float64 {
	v, err := mustField(d.fields, id).F64()
	d.fail(err)
	return v
}

func (d *decoder) u32(id uint16) int {
	v, err := mustField(d.fields, id).U32()
	d.fail(err)
	return int(v)
}

func (d *decoder) bool(id uint16) bool {
	v, err := mustField(d.fields, id).Bool()
	d.fail(err)
	return v
}

func (d *decoder) floats(id uint16) []float64 {
	v, err := mustField(d.fields, id).F64List()
	d.fail(err)
	return v
}

func (d *decoder) vec(id uint16) geometry.Vec {
	return d.toVec(mustField(d.fields, id))
}

// optVec returns the zero vector when the field is absent.
func (d *decoder) optVec(id uint16) geometry.Vec {
	f, ok := GetField(d.fields, id)
	if !ok {
		return geometry.Vec{}
	}
	return d.toVec(f)
}

func (d *decoder) toVec(f Field) geometry.Vec {
	coords, err := f.F64List()
	if err != nil {
		d.fail(err)
		return geometry.Vec{}
	}
	v, err := geometry.NewVec(coords...)
	if err != nil {
		d.fail(fmt.Errorf("field %d: %w", f.ID, err))
	}
	return v
}

func (d *decoder) points() []geometry.Vec {
	fs := AllFields(d.fields, FieldPoint)
	out := make([]geometry.Vec, 0, len(fs))
	for _, f := range fs {
		out = append(out, d.toVec(f))
	}
	return out
}

func (d *decoder) nurbsCurve() (geometry.Value, error) {
	c, err := geometry.NewNurbsCurve(d.u32(FieldDegree), d.points(), d.floats(FieldWeights))
	if err != nil || d.err != nil {
		return nil, errors.Join(d.err, err)
	}
	c.Closed = d.bool(FieldClosed)
	if err := c.SetNormalizedKnots(d.floats(FieldKnots)); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *decoder) extrusion() (geometry.Value, error) {
	profile, err := d.curveRecord(mustField(d.fields, FieldProfile))
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	e, err := geometry.NewExtrusion(profile, d.vec(FieldDirection), d.f64(FieldHeight))
	if err != nil {
		return nil, err
	}
	e.CappedAtStart = d.bool(FieldCapStart)
	e.CappedAtEnd = d.bool(FieldCapEnd)
	e.SurfaceNormal = d.optVec(FieldSurfaceNormal)
	for i, f := range AllFields(d.fields, FieldHole) {
		hole, err := d.curveRecord(f)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		e.Holes = append(e.Holes, hole)
	}
	return e, nil
}

// curveRecord decodes a nested curve. The kind tag is checked before the
// record is decoded, so curve slots never recurse into surfaces.
func (d *decoder) curveRecord(f Field) (geometry.Curve, error) {
	rec, err := f.Record()
	if err != nil {
		return nil, err
	}
	if kf, ok := GetField(rec, FieldKind); ok {
		tag, err := kf.U16()
		if err != nil {
			return nil, err
		}
		if k := geometry.Kind(tag); k.Valid() && !k.IsCurve() {
			return nil, fmt.Errorf("wire: %s is not a curve", k)
		}
	}
	v, err := DecodeValue(rec)
	if err != nil {
		return nil, err
	}
	c, ok := v.(geometry.Curve)
	if !ok {
		return nil, fmt.Errorf("wire: %s is not a curve", v.Kind())
	}
	return c, nil
}

func (d *decoder) nurbsSurface() (geometry.Value, error) {
	s, err := geometry.NurbsSurfaceFromGrid(
		d.u32(FieldUCount), d.u32(FieldVCount),
		d.u32(FieldUDegree), d.u32(FieldVDegree),
		d.points(), d.floats(FieldWeights),
	)
	if err != nil || d.err != nil {
		return nil, errors.Join(d.err, err)
	}
	if err := s.SetNormalizedKnots(geometry.U, d.floats(FieldUKnots)); err != nil {
		return nil, err
	}
	if err := s.SetNormalizedKnots(geometry.V, d.floats(FieldVKnots)); err != nil {
		return nil, err
	}
	s.ClosedU = d.bool(FieldClosedU)
	s.ClosedV = d.bool(FieldClosedV)
	s.SurfaceNormal = d.optVec(FieldSurfaceNormal)
	return s, nil
}

func (d *decoder) mesh() (geometry.Value, error) {
	m := &geometry.Mesh{Vertices: d.points()}
	for _, f := range AllFields(d.fields, FieldFace) {
		idx, err := f.U32List()
		if err != nil {
			return nil, err
		}
		face := make([]int, len(idx))
		for i, v := range idx {
			face[i] = int(v)
		}
		m.Faces = append(m.Faces, face)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
