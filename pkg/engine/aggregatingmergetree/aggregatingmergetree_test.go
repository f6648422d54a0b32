package aggregatingmergetree

import (
	"os"
	"path/filepath"
	"testing"

	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/format"
	"go-aggr/pkg/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var intMeta = types.Meta(types.TYPE_INTEGER, true, 8)

func open(t *testing.T, compression string) *AggregatingMergeTree {
	t.Helper()
	tree, err := Open(&Options{DataPath: t.TempDir(), Compression: compression})
	require.NoError(t, err)
	return tree
}

func partial(t *testing.T, values ...int64) []aggregator.DatumAggregator {
	t.Helper()
	var aggs []aggregator.DatumAggregator
	for _, name := range []string{aggregator.MAX, aggregator.MIN, aggregator.VAR_POP, aggregator.VAR_SAMP} {
		agg, err := aggregator.New(name, intMeta)
		require.NoError(t, err)
		for _, v := range values {
			agg.Accumulate(types.Type(intMeta).Set(v))
		}
		aggs = append(aggs, agg)
	}
	return aggs
}

func results(t *testing.T, aggs []aggregator.DatumAggregator) []interface{} {
	t.Helper()
	out := make([]interface{}, len(aggs))
	for i, agg := range aggs {
		if v, ok := agg.Terminate(); ok {
			out[i] = v.Value()
		}
	}
	return out
}

func TestInsertLoad(t *testing.T) {
	for _, algo := range []string{"", "none", "snappy", "lz4", "zstd"} {
		tree := open(t, algo)

		_, err := tree.Load("sales")
		require.True(t, errors.Is(err, customerrors.ErrNotFound), algo)

		_, err = tree.Insert("sales", partial(t, 3, 1, 4, 1))
		require.NoError(t, err, algo)
		_, err = tree.Insert("sales", partial(t))
		require.NoError(t, err, algo)
		_, err = tree.Insert("sales", partial(t, 5, 9, 2, 6))
		require.NoError(t, err, algo)

		aggs, err := tree.Load("sales")
		require.NoError(t, err, algo)
		require.Equal(t, results(t, partial(t, 3, 1, 4, 1, 5, 9, 2, 6)), results(t, aggs), algo)
	}
}

func TestMerge(t *testing.T) {
	tree := open(t, "zstd")
	for _, v := range []int64{3, 1, 4, 1, 5, 9, 2, 6} {
		_, err := tree.Insert("k", partial(t, v))
		require.NoError(t, err)
	}
	before, err := tree.Load("k")
	require.NoError(t, err)

	n, err := tree.Merge("k")
	require.NoError(t, err)
	require.Equal(t, 8, n)

	parts, err := tree.parts("k")
	require.NoError(t, err)
	require.Len(t, parts, 1)

	after, err := tree.Load("k")
	require.NoError(t, err)
	require.Equal(t, results(t, before), results(t, after))

	// nothing left to fold
	n, err = tree.Merge("k")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, err = tree.Merge("missing")
	require.True(t, errors.Is(err, customerrors.ErrNotFound))
}

func TestDrop(t *testing.T) {
	tree := open(t, "")
	_, err := tree.Insert("k", partial(t, 1))
	require.NoError(t, err)
	require.NoError(t, tree.Drop("k"))

	_, err = tree.Load("k")
	require.True(t, errors.Is(err, customerrors.ErrNotFound))
}

func TestInvalidKeys(t *testing.T) {
	tree := open(t, "")
	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := tree.Insert(key, partial(t, 1))
		require.Error(t, err, key)
		require.Error(t, tree.PutPlan(key, aggregator.NewInfoList()), key)
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(&Options{})
	require.Error(t, err)
	_, err = Open(&Options{DataPath: t.TempDir(), Compression: "brotli"})
	require.Error(t, err)
}

func TestMismatchedParts(t *testing.T) {
	tree := open(t, "")
	name, err := tree.Insert("k", partial(t, 1))
	require.NoError(t, err)

	_, err = tree.Insert("k", partial(t, 2)[:2])
	require.True(t, errors.Is(err, customerrors.ErrKindMismatch))

	swapped := partial(t, 2)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = tree.Insert("k", swapped)
	require.True(t, errors.Is(err, customerrors.ErrKindMismatch))

	// refused parts leave nothing behind
	parts, err := tree.parts("k")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(tree.statesPath(), "k", name+partExt)}, parts)

	aggs, err := tree.Load("k")
	require.NoError(t, err)
	require.Equal(t, results(t, partial(t, 1)), results(t, aggs))

	// parts written around Insert are still checked on read
	payload, err := encodeState(partial(t, 2)[:2])
	require.NoError(t, err)
	require.NoError(t, tree.writeFile(filepath.Join(tree.statesPath(), "k", "zz"+partExt), contentState, payload))
	_, err = tree.Load("k")
	require.True(t, errors.Is(err, customerrors.ErrKindMismatch))
}

func TestMergeLeftoverParts(t *testing.T) {
	tree := open(t, "snappy")
	for _, v := range []int64{3, 1, 4} {
		_, err := tree.Insert("k", partial(t, v))
		require.NoError(t, err)
	}
	parts, err := tree.parts("k")
	require.NoError(t, err)
	leftover, err := os.ReadFile(parts[0])
	require.NoError(t, err)

	n, err := tree.Merge("k")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// an original part whose removal did not happen is not counted again
	require.NoError(t, os.WriteFile(parts[0], leftover, 0644))
	aggs, err := tree.Load("k")
	require.NoError(t, err)
	require.Equal(t, results(t, partial(t, 3, 1, 4)), results(t, aggs))

	_, err = tree.Insert("k", partial(t, 9))
	require.NoError(t, err)
	aggs, err = tree.Load("k")
	require.NoError(t, err)
	require.Equal(t, results(t, partial(t, 3, 1, 4, 9)), results(t, aggs))

	// the next merge folds the leftover away
	n, err = tree.Merge("k")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	parts, err = tree.parts("k")
	require.NoError(t, err)
	require.Len(t, parts, 1)

	aggs, err = tree.Load("k")
	require.NoError(t, err)
	require.Equal(t, results(t, partial(t, 3, 1, 4, 9)), results(t, aggs))
}

func TestCorruptPart(t *testing.T) {
	tree := open(t, "snappy")
	name, err := tree.Insert("k", partial(t, 1))
	require.NoError(t, err)

	path := filepath.Join(tree.statesPath(), "k", name+partExt)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	data[2] = version + 1
	require.NoError(t, os.WriteFile(path, data, 0644))
	_, err = tree.Load("k")
	require.True(t, errors.Is(err, customerrors.ErrDecode))

	require.NoError(t, os.WriteFile(path, data[:3], 0644))
	_, err = tree.Load("k")
	require.True(t, errors.Is(err, customerrors.ErrDecode))
}

func TestPlans(t *testing.T) {
	tree := open(t, "lz4")

	_, err := tree.LoadPlan("q1")
	require.True(t, errors.Is(err, customerrors.ErrNotFound))

	max, err := aggregator.NewInfo(aggregator.MAX, "amount", "top", false, intMeta)
	require.NoError(t, err)
	pop, err := aggregator.NewInfo(aggregator.VAR_POP, "amount", "spread", true, intMeta)
	require.NoError(t, err)
	require.NoError(t, tree.PutPlan("q1", aggregator.NewInfoList(max, pop)))

	plan, err := tree.LoadPlan("q1")
	require.NoError(t, err)
	require.Equal(t, 2, plan.Len())
	require.True(t, plan.HasDistinct())
	require.Equal(t, "spread", plan.Get(1).OutputColumn)
}

func TestPlanInvalidated(t *testing.T) {
	tree := open(t, "")

	// a plan list written under a tag this build does not know
	w := format.NewWriter(0x0A3F)
	w.PutInt32(0)
	path, err := tree.planPath("old")
	require.NoError(t, err)
	require.NoError(t, tree.writeFile(path, contentPlan, w.Bytes()))

	_, err = tree.LoadPlan("old")
	require.True(t, errors.Is(err, customerrors.ErrPlanInvalidated))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// gone for good
	_, err = tree.LoadPlan("old")
	require.True(t, errors.Is(err, customerrors.ErrNotFound))
}
