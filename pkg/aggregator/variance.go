package aggregator

import (
	"fmt"

	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"
	"go-aggr/pkg/types"

	"github.com/pkg/errors"
)

// Strategy selects how the shared variance state is finalized.
type Strategy uint8

const (
	Population Strategy = iota
	Sample
)

func (s Strategy) String() string {
	if s == Population {
		return VAR_POP
	}
	return VAR_SAMP
}

func (s Strategy) format() format.ID {
	if s == Population {
		return FormatVarPop
	}
	return FormatVarSamp
}

type finalizer func(count uint64, s sums) (float64, bool)

var finalizers = map[Strategy]finalizer{
	Population: func(count uint64, s sums) (float64, bool) {
		if count == 0 {
			return 0, false
		}
		n := float64(count)
		mean := s.sum / n
		return s.sumOfSquares/n - mean*mean, true
	},
	Sample: func(count uint64, s sums) (float64, bool) {
		if count <= 1 {
			return 0, false
		}
		n := float64(count)
		return (s.sumOfSquares - s.sum*s.sum/n) / (n - 1), true
	},
}

type sums struct {
	sum          float64
	sumOfSquares float64
}

func (s sums) write(w *format.Writer) {
	w.PutUint16(uint16(FormatVarianceSums))
	w.PutFloat64(s.sum)
	w.PutFloat64(s.sumOfSquares)
}

func (s *sums) read(r *format.Reader) {
	r.Expect(FormatVarianceSums)
	s.sum = r.Float64()
	s.sumOfSquares = r.Float64()
}

// Variance accumulates count, sum and sum of squares. VAR_POP and VAR_SAMP
// share this state and accumulation path and differ only in Strategy.
//
// The result is computed from the raw sums rather than with an online
// (Welford) update, which keeps results identical to previously persisted
// states at the cost of precision for large, tightly clustered inputs.
type Variance[T Numeric] struct {
	strategy Strategy
	count    uint64
	sums     sums
}

func NewVariance[T Numeric](strategy Strategy) *Variance[T] {
	return &Variance[T]{strategy: strategy}
}

func NewVarPop[T Numeric]() *Variance[T] {
	return NewVariance[T](Population)
}

func NewVarSamp[T Numeric]() *Variance[T] {
	return NewVariance[T](Sample)
}

func (v *Variance[T]) Kind() Kind {
	if v.strategy == Population {
		return KindVarPop
	}
	return KindVarSamp
}

func (v *Variance[T]) Strategy() Strategy {
	return v.strategy
}

func (v *Variance[T]) Count() uint64 {
	return v.count
}

func (v *Variance[T]) Init() {
	v.count = 0
	v.sums = sums{}
}

func (v *Variance[T]) Accumulate(value T) {
	v.add(float64(value))
}

func (v *Variance[T]) add(x float64) {
	v.sums.sum += x
	v.sums.sumOfSquares += x * x
	v.count++
}

func (v *Variance[T]) Merge(other Aggregator[T, float64]) error {
	o, ok := other.(*Variance[T])
	if !ok {
		return mismatch(v, other)
	}
	return v.merge(o)
}

func (v *Variance[T]) merge(o *Variance[T]) error {
	if o.strategy != v.strategy {
		return mismatch(v, o)
	} else if o == v {
		return errors.New("cannot merge aggregator into itself")
	}

	v.count += o.count
	v.sums.sum += o.sums.sum
	v.sums.sumOfSquares += o.sums.sumOfSquares
	return nil
}

func (v *Variance[T]) Terminate() (float64, bool) {
	return finalizers[v.strategy](v.count, v.sums)
}

func (v *Variance[T]) NewInstanceLike() Aggregator[T, float64] {
	return NewVariance[T](v.strategy)
}

func (v *Variance[T]) String() string {
	return fmt.Sprintf("%s(n=%d)", v.strategy, v.count)
}

func (v *Variance[T]) MarshalBinary() ([]byte, error) {
	w := format.NewWriter(v.strategy.format())
	w.PutUint64(v.count)
	v.sums.write(w)
	return w.Bytes(), nil
}

// UnmarshalBinary restores strategy and state; the strategy comes from the
// format tag.
func (v *Variance[T]) UnmarshalBinary(data []byte) error {
	r := format.NewReader(data)
	strategy := Population
	if r.Expect(FormatVarPop, FormatVarSamp) == FormatVarSamp {
		strategy = Sample
	}

	count := r.Uint64()
	var s sums
	s.read(r)
	if err := r.Done(); err != nil {
		return err
	}
	if count == 0 && (s.sum != 0 || s.sumOfSquares != 0) {
		return errors.Wrap(customerrors.ErrDecode, "non-zero sums with zero count")
	}

	v.strategy = strategy
	v.count = count
	v.sums = s
	return nil
}

// DatumVariance feeds typed numeric values into a Variance and returns
// its result as an 8 byte FLOAT.
type DatumVariance struct {
	v *Variance[float64]
}

func NewDatumVariance(strategy Strategy) *DatumVariance {
	return &DatumVariance{v: NewVariance[float64](strategy)}
}

func (d *DatumVariance) Kind() Kind {
	return d.v.Kind()
}

func (d *DatumVariance) Init() {
	d.v.Init()
}

// Accumulate panics on non-numeric input; New rejects such columns.
func (d *DatumVariance) Accumulate(value types.DataType) {
	x, err := types.Float64(value)
	if err != nil {
		panic(err)
	}
	d.v.add(x)
}

func (d *DatumVariance) Merge(other DatumAggregator) error {
	o, ok := other.(*DatumVariance)
	if !ok {
		return mismatch(d.v, other)
	}
	return d.v.merge(o.v)
}

func (d *DatumVariance) Terminate() (types.DataType, bool) {
	f, ok := d.v.Terminate()
	if !ok {
		return nil, false
	}
	return types.Type(types.Meta(types.TYPE_FLOAT, 8)).Set(f), true
}

func (d *DatumVariance) NewInstanceLike() DatumAggregator {
	return NewDatumVariance(d.v.strategy)
}

func (d *DatumVariance) String() string {
	return d.v.String()
}

func (d *DatumVariance) MarshalBinary() ([]byte, error) {
	return d.v.MarshalBinary()
}

func (d *DatumVariance) UnmarshalBinary(data []byte) error {
	return d.v.UnmarshalBinary(data)
}
