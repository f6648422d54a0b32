package types

import (
	"go-aggr/pkg/customerrors"

	"github.com/pkg/errors"
)

// EncodeMeta writes a type as [code][meta len][meta].
func EncodeMeta(meta DataTypeMeta) ([]byte, error) {
	m, err := meta.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal type meta")
	}
	if len(m) > 0xFF {
		return nil, errors.Errorf("type meta too large: %d bytes", len(m))
	}

	buf := make([]byte, 0, 2+len(m))
	buf = append(buf, byte(meta.GetCode()), byte(len(m)))
	return append(buf, m...), nil
}

// DecodeMeta reads a type written by EncodeMeta and reports how many bytes
// it consumed.
func DecodeMeta(data []byte) (DataTypeMeta, int, error) {
	if len(data) < 2 {
		return nil, 0, errors.Wrap(customerrors.ErrDecode, "in-sufficient data for type meta")
	}

	code := TypeCode(data[0])
	if _, ok := typesMap[code]; !ok {
		return nil, 0, errors.Wrapf(customerrors.ErrDecode, "unknown type code %d", uint8(code))
	}

	n := 2 + int(data[1])
	if len(data) < n {
		return nil, 0, errors.Wrap(customerrors.ErrDecode, "truncated type meta")
	}

	meta := Meta(code)
	if err := meta.UnmarshalBinary(data[2:n]); err != nil {
		return nil, 0, errors.Wrap(customerrors.ErrDecode, err.Error())
	}
	return meta, n, nil
}

// Encode writes a self-describing value: its type followed by the value
// bytes. The value bytes run to the end of the slice.
func Encode(v DataType) ([]byte, error) {
	buf, err := EncodeMeta(v.GetMeta())
	if err != nil {
		return nil, err
	}

	b, err := v.MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %v value", v.GetCode())
	}
	return append(buf, b...), nil
}

func Decode(data []byte) (DataType, error) {
	meta, n, err := DecodeMeta(data)
	if err != nil {
		return nil, err
	}

	v := Type(meta)
	if err := v.UnmarshalBinary(data[n:]); err != nil {
		return nil, errors.Wrap(customerrors.ErrDecode, err.Error())
	}
	return v, nil
}

// Codec adapts Encode/Decode to the aggregator value codec.
type Codec struct{}

func (Codec) EncodeValue(v DataType) ([]byte, error) {
	return Encode(v)
}

func (Codec) DecodeValue(data []byte) (DataType, error) {
	return Decode(data)
}
