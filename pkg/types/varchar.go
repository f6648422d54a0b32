package types

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"go-aggr/util/helpers"

	"github.com/pkg/errors"
)

func init() {
	typesMap[TYPE_VARCHAR] = newable{
		newInstance: func(meta DataTypeMeta) DataType {
			m := meta.(*DataTypeVARCHARMeta)
			return &DataTypeVARCHAR{
				value: make([]byte, m.Cap),
				Code:  m.GetCode(),
				Meta:  m,
			}
		},
		newMeta: func(args ...interface{}) DataTypeMeta {
			if len(args) == 0 {
				return &DataTypeVARCHARMeta{}
			}

			return &DataTypeVARCHARMeta{
				Cap: uint16(helpers.ToUint64(args[0])),
			}
		},
	}
}

type DataTypeVARCHARMeta struct {
	Cap uint16 `json:"cap"`
}

func (m *DataTypeVARCHARMeta) GetCode() TypeCode {
	return TYPE_VARCHAR
}

func (m *DataTypeVARCHARMeta) Size() int {
	return 2 + int(m.Cap) // 2 for length size
}

func (m *DataTypeVARCHARMeta) IsFixedSize() bool {
	return true
}

func (m *DataTypeVARCHARMeta) IsNumeric() bool {
	return false
}

func (m *DataTypeVARCHARMeta) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, m.Cap)
	return buf, nil
}

func (m *DataTypeVARCHARMeta) UnmarshalBinary(d []byte) error {
	if len(d) != 2 {
		return errors.Errorf("invalid VARCHAR meta size %d", len(d))
	}
	m.Cap = binary.BigEndian.Uint16(d)
	return nil
}

type DataTypeVARCHAR struct {
	value []byte
	Code  TypeCode             `json:"code"`
	Len   uint16               `json:"len"`
	Meta  *DataTypeVARCHARMeta `json:"meta"`
}

func (t *DataTypeVARCHAR) MarshalBinary() (data []byte, err error) {
	buf := make([]byte, t.Size())
	binary.BigEndian.PutUint16(buf[:2], t.Len)
	copy(buf[2:], t.value)
	return buf, nil
}

func (t *DataTypeVARCHAR) UnmarshalBinary(data []byte) error {
	if len(data) != t.Size() {
		return errors.Errorf("invalid VARCHAR size %d (expected: %d)", len(data), t.Size())
	}
	l := binary.BigEndian.Uint16(data[:2])
	if l > t.Meta.Cap {
		return errors.Errorf("VARCHAR length %d exceeds capacity %d", l, t.Meta.Cap)
	}
	t.Len = l
	copy(t.value, data[2:])
	return nil
}

func (t *DataTypeVARCHAR) Copy() DataType {
	return &DataTypeVARCHAR{
		value: slices.Clone(t.value),
		Code:  t.Code,
		Len:   t.Len,
		Meta:  t.MetaCopy().(*DataTypeVARCHARMeta),
	}
}

func (t *DataTypeVARCHAR) MetaCopy() DataTypeMeta {
	return &DataTypeVARCHARMeta{
		Cap: t.Meta.Cap,
	}
}

func (t *DataTypeVARCHAR) Bytes() []byte {
	return slices.Clone(t.value[:t.Len])
}

func (t *DataTypeVARCHAR) Value() json.Token {
	return string(t.value[:t.Len])
}

// Set truncates values longer than the capacity.
func (t *DataTypeVARCHAR) Set(value interface{}) DataType {
	var n int
	switch v := value.(type) {
	case []byte:
		n = copy(t.value, v)
	case string:
		n = copy(t.value, v)
	default:
		panic(fmt.Errorf("invalid set data type => %v", value))
	}
	clear(t.value[n:])
	t.Len = uint16(n)
	return t
}

func (t *DataTypeVARCHAR) GetCode() TypeCode {
	return t.Code
}

func (t *DataTypeVARCHAR) GetMeta() DataTypeMeta {
	return t.Meta
}

func (t *DataTypeVARCHAR) IsNumeric() bool {
	return false
}

func (t *DataTypeVARCHAR) Size() int {
	return t.Meta.Size()
}

func (t *DataTypeVARCHAR) Compare(val DataType) int {
	return bytes.Compare(t.value[:t.Len], val.Bytes())
}

func (t *DataTypeVARCHAR) CompareOp(operator Operator, val DataType) bool {
	return compareOp(t.Compare(val), operator)
}

func (t *DataTypeVARCHAR) Cast(meta DataTypeMeta) (DataType, error) {
	code := meta.GetCode()
	s := string(t.value[:t.Len])
	switch code {
	case TYPE_INTEGER:
		number, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "typecast from %v to %v", t.Code, code)
		}
		return Type(meta).Set(number), nil
	case TYPE_FLOAT:
		number, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "typecast from %v to %v", t.Code, code)
		}
		return Type(meta).Set(number), nil
	case TYPE_VARCHAR:
		return Type(meta).Set(s), nil
	}

	return nil, fmt.Errorf("typecast from %v to %v not supported", t.Code, code)
}
