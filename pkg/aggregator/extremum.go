package aggregator

import (
	"encoding/json"
	"fmt"

	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"

	"github.com/pkg/errors"
)

type Mode uint8

const (
	Max Mode = iota
	Min
)

func (m Mode) String() string {
	if m == Max {
		return MAX
	}
	return MIN
}

// Extremum keeps the largest (Max) or smallest (Min) value accumulated.
// Among equal values the first one seen is kept. The held value is always
// a private copy, callers may reuse what they pass to Accumulate.
type Extremum[T Value[T]] struct {
	mode  Mode
	codec ValueCodec[T]

	current T
	present bool
}

func NewExtremum[T Value[T]](mode Mode, codec ValueCodec[T]) *Extremum[T] {
	return &Extremum[T]{mode: mode, codec: codec}
}

func NewMax[T Value[T]](codec ValueCodec[T]) *Extremum[T] {
	return NewExtremum(Max, codec)
}

func NewMin[T Value[T]](codec ValueCodec[T]) *Extremum[T] {
	return NewExtremum(Min, codec)
}

func (e *Extremum[T]) Kind() Kind {
	if e.mode == Max {
		return KindMax
	}
	return KindMin
}

func (e *Extremum[T]) Mode() Mode {
	return e.mode
}

func (e *Extremum[T]) Init() {
	var zero T
	e.current = zero
	e.present = false
}

func (e *Extremum[T]) Accumulate(value T) {
	if e.present {
		cmp := value.Compare(e.current)
		if e.mode == Max && cmp <= 0 || e.mode == Min && cmp >= 0 {
			return
		}
	}
	e.current = value.Copy()
	e.present = true
}

func (e *Extremum[T]) Merge(other Aggregator[T, T]) error {
	o, ok := other.(*Extremum[T])
	if !ok {
		return mismatch(e, other)
	} else if o.mode != e.mode {
		return mismatch(e, o)
	} else if o == e {
		return errors.New("cannot merge aggregator into itself")
	}

	if o.present {
		e.Accumulate(o.current)
	}
	return nil
}

func (e *Extremum[T]) Terminate() (T, bool) {
	return e.current, e.present
}

func (e *Extremum[T]) NewInstanceLike() Aggregator[T, T] {
	return NewExtremum(e.mode, e.codec)
}

func (e *Extremum[T]) String() string {
	if !e.present {
		return fmt.Sprintf("%s(<none>)", e.mode)
	}
	switch v := any(e.current).(type) {
	case interface{ Value() json.Token }:
		return fmt.Sprintf("%s(%v)", e.mode, v.Value())
	case fmt.Stringer:
		return fmt.Sprintf("%s(%s)", e.mode, v.String())
	}
	return fmt.Sprintf("%s(%v)", e.mode, e.current)
}

func (e *Extremum[T]) MarshalBinary() ([]byte, error) {
	w := format.NewWriter(FormatExtremum)
	w.PutBool(e.mode == Max)
	w.PutBool(e.present)
	if e.present {
		if e.codec == nil {
			return nil, errors.New("extremum aggregator has no value codec")
		}
		b, err := e.codec.EncodeValue(e.current)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s value", e.mode)
		}
		w.PutRaw(b)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary restores mode and held value. The receiver keeps its
// codec and is left untouched on error.
func (e *Extremum[T]) UnmarshalBinary(data []byte) error {
	r := format.NewReader(data)
	r.Expect(FormatExtremum)
	isMax := r.Bool()
	present := r.Bool()

	var current T
	if present && r.Err() == nil {
		rest := r.Rest()
		if len(rest) == 0 {
			return errors.Wrap(customerrors.ErrDecode, "missing extremum value")
		} else if e.codec == nil {
			return errors.New("extremum aggregator has no value codec")
		}

		v, err := e.codec.DecodeValue(rest)
		if err != nil {
			return errors.Wrap(err, "failed to decode extremum value")
		}
		current = v
	}
	if err := r.Done(); err != nil {
		return err
	}

	e.mode = Min
	if isMax {
		e.mode = Max
	}
	e.current = current
	e.present = present
	return nil
}
