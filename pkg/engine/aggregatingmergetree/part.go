package aggregatingmergetree

import (
	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"

	"github.com/pkg/errors"
)

const (
	// [tag][count int32][count length-prefixed aggregator states]
	FormatStatePart format.ID = 0x0B01
	// FormatStatePart followed by [n int32][n length-prefixed part names],
	// the parts folded into this one.
	FormatMergedPart format.ID = 0x0B02
)

type state struct {
	aggs   []aggregator.DatumAggregator
	folded []string
}

func encodeState(aggs []aggregator.DatumAggregator, folded ...string) ([]byte, error) {
	id := FormatStatePart
	if len(folded) > 0 {
		id = FormatMergedPart
	}

	w := format.NewWriter(id)
	w.PutInt32(int32(len(aggs)))
	for i, agg := range aggs {
		b, err := agg.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode aggregate #%d", i)
		}
		w.PutBytes(b)
	}

	if id == FormatMergedPart {
		w.PutInt32(int32(len(folded)))
		for _, name := range folded {
			w.PutString(name)
		}
	}
	return w.Bytes(), nil
}

func decodeState(data []byte) (*state, error) {
	r := format.NewReader(data)
	id := r.Expect(FormatStatePart, FormatMergedPart)
	count := r.Int32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if count < 0 || int(count) > r.Remaining()/4 {
		return nil, errors.Wrapf(customerrors.ErrDecode, "invalid aggregate count %d", count)
	}

	st := &state{aggs: make([]aggregator.DatumAggregator, count)}
	for i := range st.aggs {
		b := r.Bytes()
		if err := r.Err(); err != nil {
			return nil, errors.Wrapf(err, "aggregate #%d of %d", i, count)
		}
		agg, err := aggregator.Decode(b)
		if err != nil {
			return nil, errors.Wrapf(err, "aggregate #%d of %d", i, count)
		}
		st.aggs[i] = agg
	}

	if id == FormatMergedPart {
		n := r.Int32()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if n < 0 || int(n) > r.Remaining()/4 {
			return nil, errors.Wrapf(customerrors.ErrDecode, "invalid folded part count %d", n)
		}
		st.folded = make([]string, n)
		for i := range st.folded {
			st.folded[i] = r.Text()
		}
	}

	if err := r.Done(); err != nil {
		return nil, err
	}
	return st, nil
}

// sameKinds fails unless both lists hold the same kinds in the same order.
func sameKinds(want, got []aggregator.DatumAggregator) error {
	if len(want) != len(got) {
		return errors.Wrapf(customerrors.ErrKindMismatch, "%d aggregates != %d", len(got), len(want))
	}
	for i := range want {
		if want[i].Kind() != got[i].Kind() {
			return errors.Wrapf(customerrors.ErrKindMismatch, "aggregate #%d: %s != %s", i, got[i].Kind(), want[i].Kind())
		}
	}
	return nil
}

// mergeStates folds src into dst position by position.
func mergeStates(dst, src []aggregator.DatumAggregator) error {
	if len(dst) != len(src) {
		return errors.Wrapf(customerrors.ErrKindMismatch, "%d aggregates != %d", len(src), len(dst))
	}
	for i := range dst {
		if err := dst[i].Merge(src[i]); err != nil {
			return errors.Wrapf(err, "aggregate #%d", i)
		}
	}
	return nil
}
