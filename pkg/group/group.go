package group

import (
	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/types"
	"go-aggr/util/stream"

	"github.com/pkg/errors"
)

type subGroup struct {
	next       map[string]*subGroup
	aggs       []aggregator.DatumAggregator
	seen       []map[string]struct{}
	groupItems types.DataRow
}

// Group aggregates rows per distinct combination of the key columns. Each
// group owns one aggregator per info of the list.
type Group struct {
	infos  []*aggregator.Info
	kinds  []aggregator.Kind
	keys   []string
	groups *subGroup
	dst    stream.Writer[types.DataRow]

	hasDistinct bool
}

func New(infos *aggregator.InfoList, keys []string, dst stream.Writer[types.DataRow]) (*Group, error) {
	g := &Group{
		infos:       infos.Iterator(),
		keys:        keys,
		groups:      &subGroup{},
		dst:         dst,
		hasDistinct: infos.HasDistinct(),
	}

	g.kinds = make([]aggregator.Kind, len(g.infos))
	for i, info := range g.infos {
		kind, err := info.Kind()
		if err != nil {
			return nil, errors.Wrapf(err, "aggregate '%s'", info.OutputColumn)
		}
		g.kinds[i] = kind
	}
	return g, nil
}

func (g *Group) Add(row types.DataRow) error {
	gr := g.groups
	for _, k := range g.keys {
		if gr.next == nil {
			gr.next = map[string]*subGroup{}
		}

		key, err := valueKey(row[k])
		if err != nil {
			return errors.Wrapf(err, "group column '%s'", k)
		}

		next, ok := gr.next[key]
		if !ok {
			next = &subGroup{groupItems: make(types.DataRow, len(gr.groupItems)+1)}
			for col, v := range gr.groupItems {
				next.groupItems[col] = v
			}
			if v := row[k]; v != nil {
				next.groupItems[k] = v.Copy()
			} else {
				next.groupItems[k] = nil
			}
			gr.next[key] = next
		}
		gr = next
	}

	if err := g.init(gr); err != nil {
		return err
	}

	for i, info := range g.infos {
		v := row[info.InputColumn]
		if v == nil {
			continue
		}
		if !types.IsNumeric(v.GetCode()) && (g.kinds[i] == aggregator.KindVarPop || g.kinds[i] == aggregator.KindVarSamp) {
			return errors.Wrapf(customerrors.ErrUnsupportedType, "%s over %v column '%s'", g.kinds[i], v.GetCode(), info.InputColumn)
		}

		if info.Distinct {
			key, err := valueKey(v)
			if err != nil {
				return errors.Wrapf(err, "column '%s'", info.InputColumn)
			}
			if _, ok := gr.seen[i][key]; ok {
				continue
			}
			gr.seen[i][key] = struct{}{}
		}
		gr.aggs[i].Accumulate(v)
	}
	return nil
}

func (g *Group) init(gr *subGroup) error {
	if gr.aggs != nil {
		return nil
	}

	aggs := make([]aggregator.DatumAggregator, len(g.infos))
	seen := make([]map[string]struct{}, len(g.infos))
	for i, info := range g.infos {
		agg, err := info.NewAggregator()
		if err != nil {
			return errors.Wrapf(err, "aggregate '%s'", info.OutputColumn)
		}
		aggs[i] = agg
		if info.Distinct {
			seen[i] = map[string]struct{}{}
		}
	}
	gr.aggs, gr.seen = aggs, seen
	return nil
}

// Walk calls fn with the key values and aggregators of every group. The
// aggregators are live: merging into them changes what Flush emits.
func (g *Group) Walk(fn func(keys types.DataRow, aggs []aggregator.DatumAggregator) error) error {
	if len(g.keys) == 0 {
		if err := g.init(g.groups); err != nil {
			return err
		}
	}
	return g.walk(g.groups, fn)
}

func (g *Group) walk(gr *subGroup, fn func(keys types.DataRow, aggs []aggregator.DatumAggregator) error) error {
	if gr.next != nil {
		for _, sg := range gr.next {
			if err := g.walk(sg, fn); err != nil {
				return err
			}
		}
		return nil
	}
	if gr.aggs == nil {
		return nil
	}
	return fn(gr.groupItems, gr.aggs)
}

// Flush pushes one row per group to the destination: the key columns plus
// one column per aggregate, nil where the aggregate has no result. Without
// key columns exactly one row is emitted, even for empty input.
func (g *Group) Flush() (n int, err error) {
	err = g.Walk(func(keys types.DataRow, aggs []aggregator.DatumAggregator) error {
		record := make(types.DataRow, len(keys)+len(aggs))
		for col, v := range keys {
			record[col] = v
		}
		for i, info := range g.infos {
			if val, ok := aggs[i].Terminate(); ok {
				record[info.OutputColumn] = val
			} else {
				record[info.OutputColumn] = nil
			}
		}

		g.dst.Push(record)
		n++
		return nil
	})
	return n, err
}

// Merge folds other into g. Both must be built from the same aggregate list
// and keys; other must not be used afterwards. Groups present on both sides
// cannot be combined when the list has DISTINCT aggregates, in that case
// ErrDistinctMerge is returned and g is left unchanged.
func (g *Group) Merge(other *Group) error {
	if err := g.compatible(other); err != nil {
		return err
	}
	if g.hasDistinct && overlaps(g.groups, other.groups) {
		return errors.WithStack(customerrors.ErrDistinctMerge)
	}
	return g.merge(g.groups, other.groups)
}

func (g *Group) compatible(other *Group) error {
	if len(g.keys) != len(other.keys) || len(g.infos) != len(other.infos) {
		return errors.Wrap(customerrors.ErrKindMismatch, "groups differ in shape")
	}
	for i := range g.keys {
		if g.keys[i] != other.keys[i] {
			return errors.Wrapf(customerrors.ErrKindMismatch, "group key #%d: '%s' != '%s'", i, g.keys[i], other.keys[i])
		}
	}
	for i := range g.kinds {
		if g.kinds[i] != other.kinds[i] {
			return errors.Wrapf(customerrors.ErrKindMismatch, "aggregate #%d: %s != %s", i, g.kinds[i], other.kinds[i])
		}
	}
	return nil
}

func (g *Group) merge(dst, src *subGroup) error {
	if src.next != nil {
		if dst.next == nil {
			dst.next = make(map[string]*subGroup, len(src.next))
		}
		for key, s := range src.next {
			d, ok := dst.next[key]
			if !ok {
				dst.next[key] = s
				continue
			}
			if err := g.merge(d, s); err != nil {
				return err
			}
		}
		return nil
	}

	if src.aggs == nil {
		return nil
	} else if dst.aggs == nil {
		dst.aggs, dst.seen = src.aggs, src.seen
		return nil
	}

	for i := range dst.aggs {
		if err := dst.aggs[i].Merge(src.aggs[i]); err != nil {
			return errors.Wrapf(err, "aggregate '%s'", g.infos[i].OutputColumn)
		}
	}
	return nil
}

func overlaps(a, b *subGroup) bool {
	if a.next == nil || b.next == nil {
		return a.aggs != nil && b.aggs != nil
	}
	for key, sb := range b.next {
		if sa, ok := a.next[key]; ok && overlaps(sa, sb) {
			return true
		}
	}
	return false
}

// valueKey identifies a value by type and content. NULL has its own key.
func valueKey(v types.DataType) (string, error) {
	if v == nil {
		return "\x00", nil
	}
	b, err := types.Encode(v)
	if err != nil {
		return "", err
	}
	return "\x01" + string(b), nil
}
