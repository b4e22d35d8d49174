package geometry

// Value is the structural-equality capability every payload implements.
//
// EqualWithin must return false, not panic, when other is nil or of a
// different kind. Equal is EqualWithin under DefaultTolerance.
type Value interface {
	Kind() Kind
	Equal(other Value) bool
	EqualWithin(other Value, tol Tolerance) bool
}

// Curve is a parametric curve value.
type Curve interface {
	Value
	curve()
}

// Surface is a surface value that caches its normal for orientation checks.
type Surface interface {
	Value
	Normal() Vec
	surface()
}

// Equal compares two possibly nil values under DefaultTolerance.
func Equal(a, b Value) bool {
	return EqualWithin(a, b, DefaultTolerance)
}

// EqualWithin compares two possibly nil values. Two nil values are equal.
func EqualWithin(a, b Value, tol Tolerance) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	return a.EqualWithin(b, tol)
}

func isNil(v Value) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case *Polyline:
		return t == nil
	case *NurbsCurve:
		return t == nil
	case *Extrusion:
		return t == nil
	case *NurbsSurface:
		return t == nil
	case *Mesh:
		return t == nil
	}
	return false
}

// Number is a plain numeric payload.
type Number struct {
	Value float64
}

func (Number) Kind() Kind { return KindNumber }

func (n Number) Equal(other Value) bool { return n.EqualWithin(other, DefaultTolerance) }

func (n Number) EqualWithin(other Value, tol Tolerance) bool {
	o, ok := other.(Number)
	return ok && tol.Floats(n.Value, o.Value)
}

// Text is a plain string payload.
type Text struct {
	Value string
}

func (Text) Kind() Kind { return KindText }

func (t Text) Equal(other Value) bool { return t.EqualWithin(other, DefaultTolerance) }

func (t Text) EqualWithin(other Value, _ Tolerance) bool {
	o, ok := other.(Text)
	return ok && t.Value == o.Value
}
