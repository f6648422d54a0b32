package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go-aggr/pkg/aggregator"
	"go-aggr/pkg/customerrors"
	"go-aggr/pkg/engine/aggregatingmergetree"
	"go-aggr/pkg/group"
	"go-aggr/pkg/types"
	"go-aggr/util/logger"
	"go-aggr/util/stream"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	inputColumn = "value"
	maxLineSize = 64
)

type runOptions struct {
	partitions int
	key        string
	distinct   bool
	typ        string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [FUNC...]",
		Short: "Aggregate numbers read from stdin, one per line",
		Long: `Aggregate numbers read from stdin, one per line. Empty lines and NULL
are null values. FUNC is one of MAX, MIN, VAR_POP, VAR_SAMP or VARIANCE.

With --key the partial state of this run is stored under the key and the
printed result covers every run stored under it. When no FUNC is given the
aggregates of the previous run under --key are reused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.partitions, "partitions", "p", 0, "number of concurrent partitions (default from config)")
	cmd.Flags().StringVarP(&opts.key, "key", "k", "", "state key to merge with and store into")
	cmd.Flags().BoolVar(&opts.distinct, "distinct", false, "aggregate distinct values only")
	cmd.Flags().StringVarP(&opts.typ, "type", "t", "float", "input type: integer or float")
	return cmd
}

func run(ctx context.Context, opts *runOptions, funcs []string, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.partitions > 0 {
		cfg.Partitions = opts.partitions
	}

	meta, err := inputMeta(opts.typ)
	if err != nil {
		return err
	}

	var tree *aggregatingmergetree.AggregatingMergeTree
	if opts.key != "" {
		if tree, err = aggregatingmergetree.Open(&aggregatingmergetree.Options{
			DataPath:    cfg.Store.Path,
			Compression: cfg.Store.Compression,
		}); err != nil {
			return errors.Wrap(err, "failed to open store")
		}
	}

	infos, err := buildInfos(tree, opts, funcs, meta)
	if err != nil {
		return err
	}

	var stored []aggregator.DatumAggregator
	if tree != nil {
		if stored, err = loadStored(tree, opts.key, infos); err != nil {
			return err
		}
	}

	start := time.Now()
	rows := stream.New[types.DataRow](cfg.Partitions * 16)
	var readErr error
	var lines int
	go func() {
		defer rows.Close()
		lines, readErr = readRows(ctx, in, meta, rows)
	}()

	results := stream.New[types.DataRow](1)
	g, err := group.Partitioned(ctx, infos, nil, rows, cfg.Partitions, results)
	if err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}

	if tree != nil {
		if err := mergeStored(tree, opts.key, stored, g); err != nil {
			return err
		}
		if len(funcs) > 0 {
			if err := tree.PutPlan(opts.key, infos); err != nil {
				return errors.Wrap(err, "failed to store plan")
			}
		}
	}

	go func() {
		defer results.Close()
		if _, err := g.Flush(); err != nil {
			logger.L.WithError(err).Error("flush failed")
		}
	}()
	for _, row := range results.Slice() {
		printRow(out, infos, row)
	}

	logger.L.Infof("aggregated %d lines in %d partitions in %s", lines, cfg.Partitions, time.Since(start))
	return nil
}

func inputMeta(typ string) (types.DataTypeMeta, error) {
	switch strings.ToLower(typ) {
	case "integer", "int":
		return types.Meta(types.TYPE_INTEGER, true, 8), nil
	case "float":
		return types.Meta(types.TYPE_FLOAT, 8), nil
	}
	return nil, errors.Errorf("unsupported input type '%s'", typ)
}

func buildInfos(tree *aggregatingmergetree.AggregatingMergeTree, opts *runOptions, funcs []string, meta types.DataTypeMeta) (*aggregator.InfoList, error) {
	if len(funcs) == 0 {
		if tree == nil {
			return nil, errors.New("no aggregate functions given")
		}
		infos, err := tree.LoadPlan(opts.key)
		if err != nil {
			return nil, errors.Wrap(err, "no aggregate functions given and no usable stored plan")
		}
		return infos, nil
	}

	infos := aggregator.NewInfoList()
	for _, fn := range funcs {
		info, err := aggregator.NewInfo(fn, inputColumn, strings.ToLower(fn), opts.distinct, meta)
		if err != nil {
			return nil, err
		}
		infos.Add(info)
	}

	if tree != nil && infos.HasDistinct() {
		return nil, errors.Wrap(customerrors.ErrDistinctMerge, "--distinct cannot be combined with --key")
	}
	return infos, nil
}

// readRows parses one value per line into rows. It stops at the first
// unparsable line.
func readRows(ctx context.Context, in io.Reader, meta types.DataTypeMeta, rows stream.Writer[types.DataRow]) (int, error) {
	buf := types.Type(types.Meta(types.TYPE_VARCHAR, maxLineSize))
	scanner := bufio.NewScanner(in)

	n := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		n++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.EqualFold(line, "NULL") {
			rows.Push(types.DataRow{})
			continue
		} else if len(line) > maxLineSize {
			return n, errors.Errorf("line %d: value longer than %d bytes", n, maxLineSize)
		}

		v, err := buf.Set(line).Cast(meta)
		if err != nil {
			return n, errors.Wrapf(err, "line %d", n)
		}
		rows.Push(types.DataRow{inputColumn: v})
	}
	return n, errors.Wrap(scanner.Err(), "failed to read input")
}

// loadStored returns the state stored under key, nil if there is none. It
// fails unless the state holds the aggregates of infos in the same order.
func loadStored(tree *aggregatingmergetree.AggregatingMergeTree, key string, infos *aggregator.InfoList) ([]aggregator.DatumAggregator, error) {
	stored, err := tree.Load(key)
	if errors.Is(err, customerrors.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to load state '%s'", key)
	}

	if len(stored) != infos.Len() {
		return nil, errors.Wrapf(customerrors.ErrKindMismatch, "state '%s' holds %d aggregates, run has %d", key, len(stored), infos.Len())
	}
	for i, info := range infos.Iterator() {
		kind, err := info.Kind()
		if err != nil {
			return nil, err
		}
		if stored[i].Kind() != kind {
			return nil, errors.Wrapf(customerrors.ErrKindMismatch, "state '%s' holds %s at #%d, run has %s", key, stored[i].Kind(), i, kind)
		}
	}
	return stored, nil
}

// mergeStored stores this run's partial state under key and folds in the
// state of earlier runs.
func mergeStored(tree *aggregatingmergetree.AggregatingMergeTree, key string, stored []aggregator.DatumAggregator, g *group.Group) error {
	return g.Walk(func(_ types.DataRow, aggs []aggregator.DatumAggregator) error {
		if _, err := tree.Insert(key, aggs); err != nil {
			return errors.Wrapf(err, "failed to store state '%s'", key)
		}
		for i := range stored {
			if err := aggs[i].Merge(stored[i]); err != nil {
				return errors.Wrapf(err, "state '%s'", key)
			}
		}
		return nil
	})
}

func printRow(out io.Writer, infos *aggregator.InfoList, row types.DataRow) {
	for _, info := range infos.Iterator() {
		v := row[info.OutputColumn]
		if v == nil {
			fmt.Fprintf(out, "%s\tNULL\n", info.Name)
		} else {
			fmt.Fprintf(out, "%s\t%v\n", info.Name, v.Value())
		}
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge KEY...",
		Short: "Fold the stored parts of each key into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := openStore()
			if err != nil {
				return err
			}
			for _, key := range args {
				n, err := tree.Merge(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d parts merged\n", key, n)
			}
			return nil
		},
	}
}

func newDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop KEY...",
		Short: "Remove the stored state of each key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := openStore()
			if err != nil {
				return err
			}
			for _, key := range args {
				if err := tree.Drop(key); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func openStore() (*aggregatingmergetree.AggregatingMergeTree, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return aggregatingmergetree.Open(&aggregatingmergetree.Options{
		DataPath:    cfg.Store.Path,
		Compression: cfg.Store.Compression,
	})
}
