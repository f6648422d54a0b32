package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"go-aggr/util/helpers"

	"github.com/pkg/errors"
)

var float64Meta = &DataTypeFLOATMeta{ByteSize: 8}

func init() {
	numericTypes[TYPE_FLOAT] = struct{}{}

	typesMap[TYPE_FLOAT] = newable{
		newInstance: func(meta DataTypeMeta) DataType {
			m := meta.(*DataTypeFLOATMeta)
			return &DataTypeFLOAT{
				value: make([]byte, m.ByteSize),
				Code:  m.GetCode(),
				Meta:  m,
			}
		},
		newMeta: func(args ...interface{}) DataTypeMeta {
			if len(args) == 0 {
				return &DataTypeFLOATMeta{ByteSize: 8}
			}

			return &DataTypeFLOATMeta{
				ByteSize: uint8(helpers.ToUint64(args[0])),
			}
		},
	}
}

type DataTypeFLOATMeta struct {
	ByteSize uint8 `json:"bit_size"`
}

func (m *DataTypeFLOATMeta) GetCode() TypeCode {
	return TYPE_FLOAT
}

func (m *DataTypeFLOATMeta) Size() int {
	return int(m.ByteSize)
}

func (m *DataTypeFLOATMeta) IsFixedSize() bool {
	return true
}

func (m *DataTypeFLOATMeta) IsNumeric() bool {
	return true
}

func (m *DataTypeFLOATMeta) MarshalBinary() ([]byte, error) {
	return []byte{m.ByteSize}, nil
}

func (m *DataTypeFLOATMeta) UnmarshalBinary(d []byte) error {
	if len(d) != 1 || (d[0] != 4 && d[0] != 8) {
		return errors.Errorf("invalid FLOAT meta %v", d)
	}
	m.ByteSize = d[0]
	return nil
}

type DataTypeFLOAT struct {
	value []byte
	Code  TypeCode           `json:"code"`
	Meta  *DataTypeFLOATMeta `json:"meta"`
}

func (t *DataTypeFLOAT) MarshalBinary() (data []byte, err error) {
	return slices.Clone(t.value), nil
}

func (t *DataTypeFLOAT) UnmarshalBinary(data []byte) error {
	if len(data) != len(t.value) {
		return errors.Errorf("invalid FLOAT size %d (expected: %d)", len(data), len(t.value))
	}
	copy(t.value, data)
	return nil
}

func (t *DataTypeFLOAT) Copy() DataType {
	return &DataTypeFLOAT{
		value: slices.Clone(t.value),
		Code:  t.Code,
		Meta:  t.MetaCopy().(*DataTypeFLOATMeta),
	}
}

func (t *DataTypeFLOAT) MetaCopy() DataTypeMeta {
	return &DataTypeFLOATMeta{
		ByteSize: t.Meta.ByteSize,
	}
}

func (t *DataTypeFLOAT) Bytes() []byte {
	return slices.Clone(t.value)
}

func (t *DataTypeFLOAT) float64() float64 {
	switch t.Meta.ByteSize {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(t.value)))
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(t.value))
	}
	panic(fmt.Errorf("invalid byte size => %v", t.Meta.ByteSize))
}

func (t *DataTypeFLOAT) Value() json.Token {
	if t.Meta.ByteSize == 4 {
		return float32(t.float64())
	}
	return t.float64()
}

func (t *DataTypeFLOAT) Set(value interface{}) DataType {
	f := helpers.ToFloat64(value)
	switch t.Meta.ByteSize {
	case 4:
		binary.BigEndian.PutUint32(t.value, math.Float32bits(float32(f)))
	case 8:
		binary.BigEndian.PutUint64(t.value, math.Float64bits(f))
	default:
		panic(fmt.Errorf("invalid byte size => %v", t.Meta.ByteSize))
	}
	return t
}

func (t *DataTypeFLOAT) GetCode() TypeCode {
	return t.Code
}

func (t *DataTypeFLOAT) GetMeta() DataTypeMeta {
	return t.Meta
}

func (t *DataTypeFLOAT) IsNumeric() bool {
	return t.Meta.IsNumeric()
}

func (t *DataTypeFLOAT) Size() int {
	return int(t.Meta.ByteSize)
}

func (t *DataTypeFLOAT) Compare(val DataType) int {
	v, err := Float64(val)
	if err != nil {
		panic(errors.Wrap(err, "failed to cast 'val' to float64"))
	}
	return helpers.CompareFloat(t.float64(), v)
}

func (t *DataTypeFLOAT) CompareOp(operator Operator, val DataType) bool {
	return compareOp(t.Compare(val), operator)
}

func (t *DataTypeFLOAT) Cast(meta DataTypeMeta) (DataType, error) {
	code := meta.GetCode()
	switch code {
	case TYPE_FLOAT:
		return Type(meta).Set(t.float64()), nil
	case TYPE_INTEGER:
		return Type(meta).Set(int64(t.float64())), nil
	case TYPE_VARCHAR:
		return Type(meta).Set(fmt.Sprint(t.Value())), nil
	}

	return nil, fmt.Errorf("typecast from %v to %v not supported", t.Code, code)
}
