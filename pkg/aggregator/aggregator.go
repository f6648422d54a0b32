// Package aggregator implements mergeable aggregate functions.
//
// Every aggregator follows the same life cycle: it is created (or spawned
// from a template with NewInstanceLike), fed with Accumulate, optionally
// folded together with sibling partial aggregators through Merge, and
// finished with a single Terminate. Instances are owned by one goroutine at
// a time and carry no locks; Merge is the only point where two instances
// meet.
//
// Merge is commutative and associative: any merge tree over the partial
// aggregators of a partitioned input terminates to the same result as
// aggregating the whole input in one instance (up to floating point
// rounding for the variance family).
package aggregator

import (
	"encoding"
	"strings"

	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"
	"go-aggr/pkg/types"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

type Numeric interface {
	constraints.Float | constraints.Integer
}

// Value is the capability extremum aggregators need from their input: a
// total order and an independent deep copy.
type Value[T any] interface {
	Compare(other T) int
	Copy() T
}

// ValueCodec persists held values. The encoding must describe itself, the
// decoder receives exactly the bytes the encoder produced.
type ValueCodec[T any] interface {
	EncodeValue(v T) ([]byte, error)
	DecodeValue(data []byte) (T, error)
}

type Kind uint8

const (
	KindMax Kind = iota + 1
	KindMin
	KindVarPop
	KindVarSamp
)

const (
	MAX      = "MAX"
	MIN      = "MIN"
	VAR_POP  = "VAR_POP"
	VAR_SAMP = "VAR_SAMP"
	VARIANCE = "VARIANCE"
)

func (k Kind) String() string {
	switch k {
	case KindMax:
		return MAX
	case KindMin:
		return MIN
	case KindVarPop:
		return VAR_POP
	case KindVarSamp:
		return VAR_SAMP
	}
	return "UNKNOWN"
}

func ParseKind(name string) (Kind, error) {
	switch strings.ToUpper(name) {
	case MAX:
		return KindMax, nil
	case MIN:
		return KindMin, nil
	case VAR_POP:
		return KindVarPop, nil
	case VAR_SAMP, VARIANCE:
		return KindVarSamp, nil
	}
	return 0, errors.Wrapf(customerrors.ErrUnknownAggregate, "'%s'", name)
}

type Aggregator[In, Out any] interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	Kind() Kind

	// Init resets the instance to its empty state.
	Init()

	// Accumulate folds one non-null value into the running state.
	Accumulate(value In)

	// Merge folds the state of other into the receiver, as if every value
	// accumulated into other had been accumulated into the receiver. Both
	// must be of the same kind and configuration, otherwise an
	// ErrKindMismatch is returned and neither is modified. other is never
	// modified and shares no state with the receiver afterwards.
	Merge(other Aggregator[In, Out]) error

	// Terminate returns the result, or false when there is none (no input
	// for every kind, or a single input for VAR_SAMP).
	Terminate() (Out, bool)

	// NewInstanceLike returns an empty aggregator with the same
	// configuration.
	NewInstanceLike() Aggregator[In, Out]
}

// DatumAggregator is what the executor works with: typed values in, typed
// values out.
type DatumAggregator = Aggregator[types.DataType, types.DataType]

// New returns an aggregator for the named aggregate over values of the
// given type. A nil input type skips the type check.
func New(name string, input types.DataTypeMeta) (DatumAggregator, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return NewKind(kind, input)
}

func NewKind(kind Kind, input types.DataTypeMeta) (DatumAggregator, error) {
	switch kind {
	case KindMax:
		return NewMax[types.DataType](types.Codec{}), nil
	case KindMin:
		return NewMin[types.DataType](types.Codec{}), nil
	case KindVarPop, KindVarSamp:
		if input != nil && !input.IsNumeric() {
			return nil, errors.Wrapf(customerrors.ErrUnsupportedType, "%s over %v", kind, input.GetCode())
		}
		if kind == KindVarPop {
			return NewDatumVariance(Population), nil
		}
		return NewDatumVariance(Sample), nil
	}
	return nil, errors.Wrapf(customerrors.ErrUnknownAggregate, "kind %d", uint8(kind))
}

// ResultMeta returns the type Terminate produces for kind over input.
func ResultMeta(kind Kind, input types.DataTypeMeta) types.DataTypeMeta {
	switch kind {
	case KindVarPop, KindVarSamp:
		return types.Meta(types.TYPE_FLOAT, 8)
	}
	return input
}

// Decode restores a persisted aggregator of any kind.
func Decode(data []byte) (DatumAggregator, error) {
	id, err := format.Peek(data)
	if err != nil {
		return nil, err
	}

	var agg DatumAggregator
	switch id {
	case FormatExtremum:
		agg = &Extremum[types.DataType]{codec: types.Codec{}}
	case FormatVarPop, FormatVarSamp:
		agg = NewDatumVariance(Population)
	default:
		return nil, errors.Wrapf(customerrors.ErrDecode, "unknown aggregator format tag %#x", uint16(id))
	}

	if err := agg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return agg, nil
}

func mismatch(want, got interface{}) error {
	return errors.Wrapf(customerrors.ErrKindMismatch, "cannot merge %v into %v", got, want)
}
