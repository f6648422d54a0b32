package aggregator

import (
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"
	"go-aggr/pkg/types"
	"go-aggr/util/helpers"

	"github.com/pkg/errors"
)

const (
	flagDistinct uint8 = 0
	flagHasTypes uint8 = 1
)

// smallest possible info encoding: a v1 tag, three empty strings and the
// distinct flag.
const minInfoSize = 2 + 3*4 + 1

// Info describes one aggregate of a compiled statement. It is built once
// at compile time and not modified afterwards.
type Info struct {
	Name         string
	InputColumn  string
	OutputColumn string
	Distinct     bool

	// Declared types. Both are nil for infos persisted before types were
	// recorded.
	InputType  types.DataTypeMeta
	ResultType types.DataTypeMeta
}

func NewInfo(name, inputColumn, outputColumn string, distinct bool, inputType types.DataTypeMeta) (*Info, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	if _, err := NewKind(kind, inputType); err != nil {
		return nil, err
	}

	return &Info{
		Name:         kind.String(),
		InputColumn:  inputColumn,
		OutputColumn: outputColumn,
		Distinct:     distinct,
		InputType:    inputType,
		ResultType:   ResultMeta(kind, inputType),
	}, nil
}

func (i *Info) Kind() (Kind, error) {
	return ParseKind(i.Name)
}

// NewAggregator returns an empty aggregator for this info.
func (i *Info) NewAggregator() (DatumAggregator, error) {
	return New(i.Name, i.InputType)
}

func (i *Info) MarshalBinary() ([]byte, error) {
	w := format.NewWriter(FormatInfoV2)
	if err := i.write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (i *Info) UnmarshalBinary(data []byte) error {
	r := format.NewReader(data)
	info := &Info{}
	info.read(r)
	if err := r.Done(); err != nil {
		return err
	}
	*i = *info
	return nil
}

// write appends everything after the tag.
func (i *Info) write(w *format.Writer) error {
	w.PutString(i.Name)
	w.PutString(i.InputColumn)
	w.PutString(i.OutputColumn)

	var flags uint8
	helpers.SetBit(&flags, flagDistinct, i.Distinct)
	hasTypes := i.InputType != nil && i.ResultType != nil
	helpers.SetBit(&flags, flagHasTypes, hasTypes)
	w.PutUint8(flags)

	if hasTypes {
		for _, meta := range []types.DataTypeMeta{i.InputType, i.ResultType} {
			b, err := types.EncodeMeta(meta)
			if err != nil {
				return errors.Wrapf(err, "failed to encode types of %s(%s)", i.Name, i.InputColumn)
			}
			w.PutBytes(b)
		}
	}
	return nil
}

func (i *Info) read(r *format.Reader) {
	id := r.Expect(FormatInfoV1, FormatInfoV2)
	i.Name = r.Text()
	i.InputColumn = r.Text()
	i.OutputColumn = r.Text()

	switch id {
	case FormatInfoV1:
		i.Distinct = r.Bool()
	case FormatInfoV2:
		flags := r.Uint8()
		i.Distinct = helpers.GetBit(flags, flagDistinct)
		if helpers.GetBit(flags, flagHasTypes) {
			i.InputType = readMeta(r)
			i.ResultType = readMeta(r)
		}
	}
}

func readMeta(r *format.Reader) types.DataTypeMeta {
	b := r.Bytes()
	if r.Err() != nil {
		return nil
	}

	meta, n, err := types.DecodeMeta(b)
	if err == nil && n != len(b) {
		err = errors.Wrapf(customerrors.ErrDecode, "%d trailing bytes after type meta", len(b)-n)
	}
	if err != nil {
		r.Fail(err)
		return nil
	}
	return meta
}
