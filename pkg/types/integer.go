package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"

	"go-aggr/util/helpers"

	"github.com/pkg/errors"
)

var int64Meta = &DataTypeINTEGERMeta{Signed: true, ByteSize: 8}

func init() {
	numericTypes[TYPE_INTEGER] = struct{}{}

	typesMap[TYPE_INTEGER] = newable{
		newInstance: func(meta DataTypeMeta) DataType {
			m := meta.(*DataTypeINTEGERMeta)
			return &DataTypeINTEGER{
				value: make([]byte, m.ByteSize),
				Code:  m.GetCode(),
				Meta:  m,
			}
		},
		newMeta: func(args ...interface{}) DataTypeMeta {
			if len(args) == 0 {
				return &DataTypeINTEGERMeta{Signed: true, ByteSize: 8}
			}

			return &DataTypeINTEGERMeta{
				Signed:   args[0].(bool),
				ByteSize: uint8(helpers.ToUint64(args[1])),
			}
		},
	}
}

type DataTypeINTEGERMeta struct {
	Signed   bool  `json:"signed"`
	ByteSize uint8 `json:"bit_size"`
}

func (m *DataTypeINTEGERMeta) GetCode() TypeCode {
	return TYPE_INTEGER
}

func (m *DataTypeINTEGERMeta) Size() int {
	return int(m.ByteSize)
}

func (m *DataTypeINTEGERMeta) IsFixedSize() bool {
	return true
}

func (m *DataTypeINTEGERMeta) IsNumeric() bool {
	return true
}

func (m *DataTypeINTEGERMeta) MarshalBinary() ([]byte, error) {
	var signed uint8
	if m.Signed {
		signed = 1
	}
	return []byte{signed, m.ByteSize}, nil
}

func (m *DataTypeINTEGERMeta) UnmarshalBinary(d []byte) error {
	if len(d) != 2 {
		return errors.Errorf("invalid INTEGER meta size %d", len(d))
	}
	switch d[1] {
	case 1, 2, 4, 8:
	default:
		return errors.Errorf("invalid INTEGER byte size %d", d[1])
	}
	m.Signed = d[0] == 1
	m.ByteSize = d[1]
	return nil
}

// DataTypeINTEGER keeps its value little-endian in ByteSize bytes.
type DataTypeINTEGER struct {
	value []byte
	Code  TypeCode             `json:"code"`
	Meta  *DataTypeINTEGERMeta `json:"meta"`
}

func (t *DataTypeINTEGER) MarshalBinary() (data []byte, err error) {
	return slices.Clone(t.value), nil
}

func (t *DataTypeINTEGER) UnmarshalBinary(data []byte) error {
	if len(data) != len(t.value) {
		return errors.Errorf("invalid INTEGER size %d (expected: %d)", len(data), len(t.value))
	}
	copy(t.value, data)
	return nil
}

func (t *DataTypeINTEGER) Copy() DataType {
	return &DataTypeINTEGER{
		value: slices.Clone(t.value),
		Code:  t.Code,
		Meta:  t.MetaCopy().(*DataTypeINTEGERMeta),
	}
}

func (t *DataTypeINTEGER) MetaCopy() DataTypeMeta {
	cp := *t.Meta
	return &cp
}

func (t *DataTypeINTEGER) Bytes() []byte {
	return slices.Clone(t.value)
}

func (t *DataTypeINTEGER) raw() uint64 {
	buf := make([]byte, 8)
	copy(buf, t.value)
	return binary.LittleEndian.Uint64(buf)
}

func (t *DataTypeINTEGER) int64() int64 {
	shift := 64 - 8*uint(t.Meta.ByteSize)
	return int64(t.raw()<<shift) >> shift
}

func (t *DataTypeINTEGER) Value() json.Token {
	switch t.Meta.ByteSize {
	case 1:
		if t.Meta.Signed {
			return int8(t.int64())
		}
		return uint8(t.raw())
	case 2:
		if t.Meta.Signed {
			return int16(t.int64())
		}
		return uint16(t.raw())
	case 4:
		if t.Meta.Signed {
			return int32(t.int64())
		}
		return uint32(t.raw())
	case 8:
		if t.Meta.Signed {
			return t.int64()
		}
		return t.raw()
	default:
		panic(fmt.Errorf("invalid byte size => %v", t.Meta.ByteSize))
	}
}

func (t *DataTypeINTEGER) Set(value interface{}) DataType {
	var raw uint64
	if t.Meta.Signed {
		raw = uint64(helpers.ToInt64(value))
	} else {
		raw = helpers.ToUint64(value)
	}

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, raw)
	copy(t.value, buf)
	return t
}

func (t *DataTypeINTEGER) GetCode() TypeCode {
	return t.Code
}

func (t *DataTypeINTEGER) GetMeta() DataTypeMeta {
	return t.Meta
}

func (t *DataTypeINTEGER) IsNumeric() bool {
	return t.Meta.IsNumeric()
}

func (t *DataTypeINTEGER) Size() int {
	return int(t.Meta.ByteSize)
}

func (t *DataTypeINTEGER) Compare(val DataType) int {
	if v, ok := val.(*DataTypeINTEGER); ok {
		switch {
		case t.Meta.Signed && v.Meta.Signed:
			return helpers.Compare(t.int64(), v.int64())
		case !t.Meta.Signed && !v.Meta.Signed:
			return helpers.Compare(t.raw(), v.raw())
		}
	}

	f1, err := Float64(t)
	if err != nil {
		panic(errors.Wrap(err, "failed to cast 't' to float64"))
	}
	f2, err := Float64(val)
	if err != nil {
		panic(errors.Wrap(err, "failed to cast 'val' to float64"))
	}
	return helpers.CompareFloat(f1, f2)
}

func (t *DataTypeINTEGER) CompareOp(operator Operator, val DataType) bool {
	return compareOp(t.Compare(val), operator)
}

func (t *DataTypeINTEGER) Cast(meta DataTypeMeta) (DataType, error) {
	code := meta.GetCode()
	switch code {
	case TYPE_INTEGER:
		return Type(meta).Set(t.Value()), nil
	case TYPE_FLOAT:
		return Type(meta).Set(helpers.ToFloat64(t.Value())), nil
	case TYPE_VARCHAR:
		return Type(meta).Set(fmt.Sprint(t.Value())), nil
	}

	return nil, fmt.Errorf("typecast from %v to %v not supported", t.Code, code)
}
