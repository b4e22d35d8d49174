package geometry

import (
	"fmt"
	"strings"
)

// Kind tags a payload type. The numeric values are part of the wire schema
// and must never be reused.
type Kind uint16

const (
	KindInvalid      Kind = 0
	KindNumber       Kind = 1
	KindText         Kind = 2
	KindVec          Kind = 10
	KindLine         Kind = 20
	KindPolyline     Kind = 21
	KindArc          Kind = 22
	KindNurbsCurve   Kind = 23
	KindExtrusion    Kind = 30
	KindNurbsSurface Kind = 31
	KindMesh         Kind = 40
)

var kindNames = map[Kind]string{
	KindNumber:       "number",
	KindText:         "text",
	KindVec:          "vec",
	KindLine:         "line",
	KindPolyline:     "polyline",
	KindArc:          "arc",
	KindNurbsCurve:   "nurbs_curve",
	KindExtrusion:    "extrusion",
	KindNurbsSurface: "nurbs_surface",
	KindMesh:         "mesh",
}

// AllKinds lists every supported kind in tag order.
func AllKinds() []Kind {
	return []Kind{
		KindNumber,
		KindText,
		KindVec,
		KindLine,
		KindPolyline,
		KindArc,
		KindNurbsCurve,
		KindExtrusion,
		KindNurbsSurface,
		KindMesh,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// Valid reports whether k is a member of the enumeration.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsCurve reports whether values of k implement Curve.
func (k Kind) IsCurve() bool {
	switch k {
	case KindLine, KindPolyline, KindArc, KindNurbsCurve:
		return true
	default:
		return false
	}
}

// IsSurface reports whether values of k implement Surface.
func (k Kind) IsSurface() bool {
	return k == KindExtrusion || k == KindNurbsSurface
}

// ParseKind resolves a kind from its canonical name.
func ParseKind(name string) (Kind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for kind, candidate := range kindNames {
		if candidate == normalized {
			return kind, true
		}
	}
	return KindInvalid, false
}
