package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const FieldHeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("wire: short field header")
	ErrShortFieldValue  = errors.New("wire: short field value")
)

// Field value types.
const (
	TypeU8      uint8 = 1
	TypeU16     uint8 = 2
	TypeU32     uint8 = 3
	TypeU64     uint8 = 4
	TypeBool    uint8 = 5
	TypeString  uint8 = 6
	TypeBytes   uint8 = 7
	TypeF64     uint8 = 8
	TypeF64List uint8 = 9
	TypeU32List uint8 = 10
	TypeRecord  uint8 = 11
)

// Field is one decoded TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) []byte {
	buf := make([]byte, FieldHeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

// DecodeFields splits payload into fields. Values alias payload, so nested
// records are parsed in place rather than copied level by level.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	i := 0
	for i < len(payload) {
		if len(payload)-i < FieldHeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		typeID := payload[i+2]
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += FieldHeaderLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		end := i + int(l)
		val := payload[i:end:end]
		i = end
		fields = append(fields, Field{ID: id, Type: typeID, Value: val})
	}
	return fields, nil
}

func EncodeFields(fields []Field) []byte {
	size := 0
	for _, f := range fields {
		size += FieldHeaderLen + len(f.Value)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// AllFields returns every occurrence of a repeated field in order.
func AllFields(fields []Field, id uint16) []Field {
	var out []Field
	for _, f := range fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("wire: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}

func U32Field(id uint16, v uint32) Field {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return Field{ID: id, Type: TypeU32, Value: b}
}

func U16Field(id uint16, v uint16) Field {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return Field{ID: id, Type: TypeU16, Value: b}
}

func BoolField(id uint16, v bool) Field {
	b := []byte{0}
	if v {
		b[0] = 1
	}
	return Field{ID: id, Type: TypeBool, Value: b}
}

func StringField(id uint16, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

func F64Field(id uint16, v float64) Field {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return Field{ID: id, Type: TypeF64, Value: b}
}

func F64ListField(id uint16, vs []float64) Field {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return Field{ID: id, Type: TypeF64List, Value: b}
}

func U32ListField(id uint16, vs []uint32) Field {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint32(b[i*4:], v)
	}
	return Field{ID: id, Type: TypeU32List, Value: b}
}

func RecordField(id uint16, fields []Field) Field {
	return Field{ID: id, Type: TypeRecord, Value: EncodeFields(fields)}
}

func (f Field) U32() (uint32, error) {
	if err := MustType(f, TypeU32); err != nil {
		return 0, err
	}
	if len(f.Value) != 4 {
		return 0, fmt.Errorf("wire: field %d invalid u32 length: %d", f.ID, len(f.Value))
	}
	return binary.BigEndian.Uint32(f.Value), nil
}

func (f Field) U16() (uint16, error) {
	if err := MustType(f, TypeU16); err != nil {
		return 0, err
	}
	if len(f.Value) != 2 {
		return 0, fmt.Errorf("wire: field %d invalid u16 length: %d", f.ID, len(f.Value))
	}
	return binary.BigEndian.Uint16(f.Value), nil
}

func (f Field) Bool() (bool, error) {
	if err := MustType(f, TypeBool); err != nil {
		return false, err
	}
	if len(f.Value) != 1 {
		return false, fmt.Errorf("wire: field %d invalid bool length: %d", f.ID, len(f.Value))
	}
	return f.Value[0] != 0, nil
}

func (f Field) String() (string, error) {
	if err := MustType(f, TypeString); err != nil {
		return "", err
	}
	return string(f.Value), nil
}

func (f Field) F64() (float64, error) {
	if err := MustType(f, TypeF64); err != nil {
		return 0, err
	}
	if len(f.Value) != 8 {
		return 0, fmt.Errorf("wire: field %d invalid f64 length: %d", f.ID, len(f.Value))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(f.Value)), nil
}

func (f Field) F64List() ([]float64, error) {
	if err := MustType(f, TypeF64List); err != nil {
		return nil, err
	}
	if len(f.Value)%8 != 0 {
		return nil, fmt.Errorf("wire: field %d invalid f64 list length: %d", f.ID, len(f.Value))
	}
	out := make([]float64, len(f.Value)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(f.Value[i*8:]))
	}
	return out, nil
}

func (f Field) U32List() ([]uint32, error) {
	if err := MustType(f, TypeU32List); err != nil {
		return nil, err
	}
	if len(f.Value)%4 != 0 {
		return nil, fmt.Errorf("wire: field %d invalid u32 list length: %d", f.ID, len(f.Value))
	}
	out := make([]uint32, len(f.Value)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(f.Value[i*4:])
	}
	return out, nil
}

func (f Field) Record() ([]Field, error) {
	if err := MustType(f, TypeRecord); err != nil {
		return nil, err
	}
	return DecodeFields(f.Value)
}
