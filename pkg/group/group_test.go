package group

import (
	"context"
	"sort"
	"testing"

	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/types"
	"go-aggr/util/stream"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var (
	intMeta     = types.Meta(types.TYPE_INTEGER, true, 8)
	varcharMeta = types.Meta(types.TYPE_VARCHAR, 16)
)

func row(region string, amount interface{}) types.DataRow {
	r := types.DataRow{"region": types.Type(varcharMeta).Set(region)}
	if amount != nil {
		r["amount"] = types.Type(intMeta).Set(amount)
	}
	return r
}

func salesInfos(t *testing.T, distinct bool) *aggregator.InfoList {
	t.Helper()
	list := aggregator.NewInfoList()
	for _, fn := range []struct{ name, out string }{
		{aggregator.MAX, "max"},
		{aggregator.MIN, "min"},
		{aggregator.VAR_POP, "pop"},
		{aggregator.VAR_SAMP, "samp"},
	} {
		info, err := aggregator.NewInfo(fn.name, "amount", fn.out, distinct, intMeta)
		require.NoError(t, err)
		list.Add(info)
	}
	return list
}

func flush(t *testing.T, g *Group, dst stream.Stream[types.DataRow]) []types.DataRow {
	t.Helper()
	var n int
	var err error
	go func() {
		n, err = g.Flush()
		dst.Close()
	}()
	rows := dst.Slice()
	require.NoError(t, err)
	require.Equal(t, len(rows), n)

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i]["region"], rows[j]["region"]
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Compare(b) < 0
	})
	return rows
}

func TestGroupFlush(t *testing.T) {
	dst := stream.New[types.DataRow](16)
	g, err := New(salesInfos(t, false), []string{"region"}, dst)
	require.NoError(t, err)

	for _, r := range []types.DataRow{
		row("east", 3), row("west", 10), row("east", 1), row("east", nil),
		row("east", 4), row("west", 10), row("north", nil),
	} {
		require.NoError(t, g.Add(r))
	}

	rows := flush(t, g, dst)
	require.Len(t, rows, 3)

	east, north, west := rows[0], rows[1], rows[2]
	require.Equal(t, "east", east["region"].Value())
	require.Equal(t, int64(4), east["max"].Value())
	require.Equal(t, int64(1), east["min"].Value())
	require.InDelta(t, 14.0/9, east["pop"].Value(), 1e-9)
	require.InDelta(t, 7.0/3, east["samp"].Value(), 1e-9)

	// only NULL inputs
	require.Equal(t, "north", north["region"].Value())
	for _, col := range []string{"max", "min", "pop", "samp"} {
		v, ok := north[col]
		require.True(t, ok, col)
		require.Nil(t, v, col)
	}

	require.Equal(t, int64(10), west["max"].Value())
	require.Equal(t, 0.0, west["pop"].Value())
	require.Equal(t, 0.0, west["samp"].Value())
}

func TestGroupNoKeys(t *testing.T) {
	dst := stream.New[types.DataRow](4)
	g, err := New(salesInfos(t, false), nil, dst)
	require.NoError(t, err)

	rows := flush(t, g, dst)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0]["max"])
	require.Nil(t, rows[0]["samp"])
}

func TestGroupDistinct(t *testing.T) {
	dst := stream.New[types.DataRow](4)
	g, err := New(salesInfos(t, true), nil, dst)
	require.NoError(t, err)

	for _, v := range []int64{2, 2, 4, 4, 4} {
		require.NoError(t, g.Add(row("any", v)))
	}

	rows := flush(t, g, dst)
	require.Len(t, rows, 1)
	require.InDelta(t, 1.0, rows[0]["pop"].Value(), 1e-9)
	require.InDelta(t, 2.0, rows[0]["samp"].Value(), 1e-9)
}

func TestGroupKeyCopied(t *testing.T) {
	dst := stream.New[types.DataRow](4)
	g, err := New(salesInfos(t, false), []string{"region"}, dst)
	require.NoError(t, err)

	r := row("east", 1)
	require.NoError(t, g.Add(r))
	r["region"].Set("west")

	rows := flush(t, g, dst)
	require.Len(t, rows, 1)
	require.Equal(t, "east", rows[0]["region"].Value())
}

func TestGroupVarianceRejectsText(t *testing.T) {
	info := &aggregator.Info{Name: aggregator.VAR_POP, InputColumn: "region", OutputColumn: "v"}
	g, err := New(aggregator.NewInfoList(info), nil, stream.New[types.DataRow](1))
	require.NoError(t, err)

	err = g.Add(row("east", 1))
	require.True(t, errors.Is(err, customerrors.ErrUnsupportedType))
}

func TestGroupUnknownAggregate(t *testing.T) {
	info := &aggregator.Info{Name: "MEDIAN", InputColumn: "amount", OutputColumn: "m"}
	_, err := New(aggregator.NewInfoList(info), nil, stream.New[types.DataRow](1))
	require.True(t, errors.Is(err, customerrors.ErrUnknownAggregate))
}

func TestGroupMerge(t *testing.T) {
	infos := salesInfos(t, false)
	dst := stream.New[types.DataRow](8)

	a, err := New(infos, []string{"region"}, dst)
	require.NoError(t, err)
	b, err := New(infos, []string{"region"}, dst)
	require.NoError(t, err)

	require.NoError(t, a.Add(row("east", 3)))
	require.NoError(t, a.Add(row("east", 1)))
	require.NoError(t, b.Add(row("east", 4)))
	require.NoError(t, b.Add(row("west", 7)))

	require.NoError(t, a.Merge(b))

	rows := flush(t, a, dst)
	require.Len(t, rows, 2)
	require.Equal(t, int64(4), rows[0]["max"].Value())
	require.Equal(t, int64(1), rows[0]["min"].Value())
	require.InDelta(t, 14.0/9, rows[0]["pop"].Value(), 1e-9)
	require.Equal(t, int64(7), rows[1]["max"].Value())
}

func TestGroupMergeDistinct(t *testing.T) {
	infos := salesInfos(t, true)

	a, err := New(infos, []string{"region"}, nil)
	require.NoError(t, err)
	b, err := New(infos, []string{"region"}, nil)
	require.NoError(t, err)
	c, err := New(infos, []string{"region"}, nil)
	require.NoError(t, err)

	require.NoError(t, a.Add(row("east", 3)))
	require.NoError(t, b.Add(row("west", 3)))
	require.NoError(t, c.Add(row("east", 3)))

	// disjoint groups combine fine
	require.NoError(t, a.Merge(b))

	err = a.Merge(c)
	require.True(t, errors.Is(err, customerrors.ErrDistinctMerge))
}

func TestGroupMergeMismatch(t *testing.T) {
	a, err := New(salesInfos(t, false), []string{"region"}, nil)
	require.NoError(t, err)
	b, err := New(salesInfos(t, false), nil, nil)
	require.NoError(t, err)
	require.True(t, errors.Is(a.Merge(b), customerrors.ErrKindMismatch))

	info, err := aggregator.NewInfo(aggregator.MIN, "amount", "x", false, intMeta)
	require.NoError(t, err)
	c, err := New(aggregator.NewInfoList(info), nil, nil)
	require.NoError(t, err)
	require.True(t, errors.Is(b.Merge(c), customerrors.ErrKindMismatch))
}

func TestPartitioned(t *testing.T) {
	for _, distinct := range []bool{false, true} {
		infos := salesInfos(t, distinct)

		in := stream.New[types.DataRow](0)
		go func() {
			for i := 0; i < 1000; i++ {
				region := []string{"east", "west", "north"}[i%3]
				in.Push(row(region, i%17))
			}
			in.Close()
		}()

		dst := stream.New[types.DataRow](8)
		g, err := Partitioned(context.Background(), infos, []string{"region"}, in, 4, dst)
		require.NoError(t, err)
		parted := flush(t, g, dst)

		single, err := New(infos, []string{"region"}, dst)
		require.NoError(t, err)
		for i := 0; i < 1000; i++ {
			region := []string{"east", "west", "north"}[i%3]
			require.NoError(t, single.Add(row(region, i%17)))
		}
		dst = stream.New[types.DataRow](8)
		single.dst = dst
		want := flush(t, single, dst)

		require.Len(t, parted, len(want))
		for i := range want {
			for _, col := range []string{"region", "max", "min"} {
				require.Equal(t, want[i][col].Value(), parted[i][col].Value(), col)
			}
			for _, col := range []string{"pop", "samp"} {
				require.InDelta(t, want[i][col].Value(), parted[i][col].Value(), 1e-9, col)
			}
		}
	}
}

func TestPartitionedError(t *testing.T) {
	info := &aggregator.Info{Name: aggregator.VAR_SAMP, InputColumn: "region", OutputColumn: "v"}
	in := stream.New[types.DataRow](0)
	go func() {
		for i := 0; i < 100; i++ {
			in.Push(row("east", i))
		}
		in.Close()
	}()

	_, err := Partitioned(context.Background(), aggregator.NewInfoList(info), nil, in, 3, nil)
	require.True(t, errors.Is(err, customerrors.ErrUnsupportedType))
}
