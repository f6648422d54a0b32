package types

import (
	"encoding"
	"encoding/json"
	"fmt"

	"go-aggr/pkg/customerrors"

	"github.com/pkg/errors"
)

type TypeCode uint8

const (
	TYPE_INTEGER TypeCode = iota // 8/16/32/64 bit [un]signed integer
	TYPE_VARCHAR                 // string with fixed capacity
	TYPE_FLOAT                   // 32/64 bit floating point number
)

func (c TypeCode) String() string {
	switch c {
	case TYPE_INTEGER:
		return "INTEGER"
	case TYPE_VARCHAR:
		return "VARCHAR"
	case TYPE_FLOAT:
		return "FLOAT"
	}
	return fmt.Sprintf("TypeCode(%d)", uint8(c))
}

type Operator string

const (
	Equal          Operator = "="
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
	Greater        Operator = ">"
	Less           Operator = "<"
	NotEqual       Operator = "!="
)

type newable struct {
	newInstance func(meta DataTypeMeta) DataType
	newMeta     func(args ...interface{}) DataTypeMeta
}

var typesMap = map[TypeCode]newable{}
var numericTypes = map[TypeCode]struct{}{}

// DataTypeMeta describes a column type. Its binary form is what the
// aggregate descriptors persist as declared input/result types.
type DataTypeMeta interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	GetCode() TypeCode
	Size() int
	IsFixedSize() bool
	IsNumeric() bool
}

// DataType is a single typed value. Values are mutable: Set and
// UnmarshalBinary overwrite them in place, so anything that keeps a value
// beyond the call that handed it over must keep a Copy.
type DataType interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	GetCode() TypeCode
	GetMeta() DataTypeMeta
	Size() int
	IsNumeric() bool

	Copy() DataType
	MetaCopy() DataTypeMeta
	Bytes() []byte
	Value() json.Token
	Set(value interface{}) DataType
	Compare(val DataType) int
	CompareOp(operator Operator, val DataType) bool
	Cast(meta DataTypeMeta) (DataType, error)
}

type DataRow map[string]DataType

func Type(meta DataTypeMeta) DataType {
	return typesMap[meta.GetCode()].newInstance(meta)
}

func Meta(typeCode TypeCode, args ...interface{}) DataTypeMeta {
	n, ok := typesMap[typeCode]
	if !ok {
		panic(fmt.Errorf("unknown type code %v", typeCode))
	}
	return n.newMeta(args...)
}

func IsNumeric(code TypeCode) bool {
	_, ok := numericTypes[code]
	return ok
}

// Float64 converts a numeric value to float64.
func Float64(v DataType) (float64, error) {
	if !v.IsNumeric() {
		return 0, errors.Wrapf(customerrors.ErrUnsupportedType, "%v is not numeric", v.GetCode())
	}
	f, err := v.Cast(float64Meta)
	if err != nil {
		return 0, err
	}
	return f.Value().(float64), nil
}

func compareOp(cmp int, operator Operator) bool {
	switch operator {
	case Equal:
		return cmp == 0
	case GreaterOrEqual:
		return cmp >= 0
	case LessOrEqual:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case Less:
		return cmp < 0
	case NotEqual:
		return cmp != 0
	}
	panic(fmt.Errorf("invalid operator:'%s'", operator))
}
