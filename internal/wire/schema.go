package wire

import (
	"fmt"

	"thepipe/internal/geometry"
)

// Field IDs. IDs are never reused across schema versions.
const (
	FieldNode    uint16 = 1
	FieldPayload uint16 = 2
	FieldChild   uint16 = 3

	FieldKind uint16 = 10

	FieldNumber uint16 = 20
	FieldText   uint16 = 21

	FieldCoords        uint16 = 30
	FieldStart         uint16 = 31
	FieldEnd           uint16 = 32
	FieldCenter        uint16 = 33
	FieldNormal        uint16 = 34
	FieldDirection     uint16 = 35
	FieldSurfaceNormal uint16 = 36
	FieldPoint         uint16 = 37

	FieldRadius     uint16 = 40
	FieldStartAngle uint16 = 41
	FieldEndAngle   uint16 = 42
	FieldHeight     uint16 = 43

	FieldClosed   uint16 = 50
	FieldClosedU  uint16 = 51
	FieldClosedV  uint16 = 52
	FieldCapStart uint16 = 53
	FieldCapEnd   uint16 = 54

	FieldDegree  uint16 = 60
	FieldUDegree uint16 = 61
	FieldVDegree uint16 = 62
	FieldUCount  uint16 = 63
	FieldVCount  uint16 = 64
	FieldWeights uint16 = 65
	FieldKnots   uint16 = 66
	FieldUKnots  uint16 = 67
	FieldVKnots  uint16 = 68

	FieldProfile uint16 = 70
	FieldHole    uint16 = 71
	FieldFace    uint16 = 72
)

type Requirement struct {
	ID   uint16
	Type uint8
}

// ValidationError reports a record that does not satisfy its field table.
type ValidationError struct {
	Record  string
	FieldID uint16
	Reason  string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("wire: record=%s: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("wire: record=%s field=%d: %s", e.Record, e.FieldID, e.Reason)
}

var messageRequirements = map[uint32][]Requirement{
	MsgTree: {{FieldNode, TypeRecord}},
	MsgPeek: {},
	MsgTake: {},
	MsgAck:  {},
}

var kindRequirements = map[geometry.Kind][]Requirement{
	geometry.KindNumber: {{FieldNumber, TypeF64}},
	geometry.KindText:   {{FieldText, TypeString}},
	geometry.KindVec:    {{FieldCoords, TypeF64List}},
	geometry.KindLine: {
		{FieldStart, TypeF64List},
		{FieldEnd, TypeF64List},
	},
	geometry.KindPolyline: {{FieldClosed, TypeBool}},
	geometry.KindArc: {
		{FieldCenter, TypeF64List},
		{FieldNormal, TypeF64List},
		{FieldRadius, TypeF64},
		{FieldStartAngle, TypeF64},
		{FieldEndAngle, TypeF64},
	},
	geometry.KindNurbsCurve: {
		{FieldDegree, TypeU32},
		{FieldWeights, TypeF64List},
		{FieldKnots, TypeF64List},
		{FieldClosed, TypeBool},
	},
	geometry.KindExtrusion: {
		{FieldProfile, TypeRecord},
		{FieldDirection, TypeF64List},
		{FieldHeight, TypeF64},
		{FieldCapStart, TypeBool},
		{FieldCapEnd, TypeBool},
	},
	geometry.KindNurbsSurface: {
		{FieldUCount, TypeU32},
		{FieldVCount, TypeU32},
		{FieldUDegree, TypeU32},
		{FieldVDegree, TypeU32},
		{FieldWeights, TypeF64List},
		{FieldUKnots, TypeF64List},
		{FieldVKnots, TypeF64List},
		{FieldClosedU, TypeBool},
		{FieldClosedV, TypeBool},
	},
	geometry.KindMesh: {},
}

// ValidateMessage enforces the required fields of a message payload.
// Unknown fields are ignored.
func ValidateMessage(messageType uint32, fields []Field) error {
	reqs, ok := messageRequirements[messageType]
	if !ok {
		return ValidationError{Record: fmt.Sprintf("message(%d)", messageType), Reason: "unknown message_type"}
	}
	return check(fmt.Sprintf("message(%d)", messageType), reqs, fields)
}

// ValidateValue enforces the required fields of a value record of kind.
// Unknown fields are ignored.
func ValidateValue(kind geometry.Kind, fields []Field) error {
	reqs, ok := kindRequirements[kind]
	if !ok {
		return ValidationError{Record: kind.String(), FieldID: FieldKind, Reason: "unknown kind"}
	}
	return check(kind.String(), reqs, fields)
}

func check(record string, reqs []Requirement, fields []Field) error {
	for _, req := range reqs {
		f, found := GetField(fields, req.ID)
		if !found {
			return ValidationError{Record: record, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			return ValidationError{Record: record, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
