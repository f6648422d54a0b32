package group

import (
	"context"
	"strings"

	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/types"
	"go-aggr/util/stream"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Partitioned aggregates the rows read from in across n concurrent
// partitions and folds the partial groups into one, which is returned
// unflushed.
//
// Rows are dealt round-robin. With DISTINCT aggregates they are routed by
// group key instead, so each group lives in exactly one partition and the
// fold never has to combine two dedup sets.
func Partitioned(ctx context.Context, infos *aggregator.InfoList, keys []string, in stream.Reader[types.DataRow], n int, dst stream.Writer[types.DataRow]) (*Group, error) {
	if n < 1 {
		n = 1
	}

	parts := make([]*Group, n)
	inputs := make([]stream.Stream[types.DataRow], n)
	for i := range parts {
		g, err := New(infos, keys, dst)
		if err != nil {
			return nil, err
		}
		parts[i] = g
		inputs[i] = stream.New[types.DataRow](64)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for i := range parts {
		part, input := parts[i], inputs[i]
		eg.Go(func() error {
			var err error
			// keep draining after a failure so the dispatcher never blocks
			for row, ok := input.Pop(); ok; row, ok = input.Pop() {
				if err == nil {
					err = part.Add(row)
				}
			}
			return err
		})
	}

	eg.Go(func() error {
		defer func() {
			for _, input := range inputs {
				input.Close()
			}
		}()

		route := roundRobin(n)
		if infos.HasDistinct() {
			route = byKey(keys, n)
		}
		for row, ok := in.Pop(); ok; row, ok = in.Pop() {
			if err := ctx.Err(); err != nil {
				return err
			}
			inputs[route(row)].Push(row)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "partitioned aggregation failed")
	}

	result := parts[0]
	for i, part := range parts[1:] {
		if err := result.Merge(part); err != nil {
			return nil, errors.Wrapf(err, "failed to merge partition #%d", i+1)
		}
	}
	return result, nil
}

func roundRobin(n int) func(types.DataRow) int {
	next := 0
	return func(types.DataRow) int {
		i := next
		next = (next + 1) % n
		return i
	}
}

func byKey(keys []string, n int) func(types.DataRow) int {
	var sb strings.Builder
	return func(row types.DataRow) int {
		sb.Reset()
		for _, k := range keys {
			// an unencodable key fails again in Add, any partition will do
			key, _ := valueKey(row[k])
			sb.WriteString(key)
		}
		return int(xxhash.Sum64String(sb.String()) % uint64(n))
	}
}
