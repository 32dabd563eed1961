package main

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/columnar"
	"github.com/ajitpratap0/nebula-arrow/pkg/frame"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
)

// columnCommand declares the flags every column command shares and loads
// the column before handing it to run.
func (a *app) columnCommand(cmd *cobra.Command, run func(arr *columnar.Array) error) *cobra.Command {
	var src columnSource
	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().StringVarP(&src.column, "column", "c", "", "Name of the column to load (required)")
	cmd.Flags().StringVar(&src.dtype, "dtype", "", "Parse the column under this type instead of inferring it (e.g. int64, duration[ms])")
	cmd.Flags().StringVar(&src.comma, "delimiter", "", "Field delimiter (default ',')")
	_ = cmd.MarkFlagRequired("column")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		src.path = args[0]
		arr, err := src.load(a.cfg.Compute.NullTokens)
		if err != nil {
			return err
		}
		defer arr.Release()

		logger.Get().Info("running command",
			zap.String("command", cmd.Name()),
			zap.String("column", src.column),
			zap.String("dtype", arr.DType().String()),
			zap.Int("length", arr.Len()))
		return run(arr)
	}
	return cmd
}

func (a *app) kernelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kernels",
		Short: "List compute kernels and their capability level",
		RunE: func(cmd *cobra.Command, args []string) error {
			probe := capability.Current()
			rows := make([][]string, 0, len(probe.Kernels()))
			for _, name := range probe.Kernels() {
				rows = append(rows, []string{name, probe.Level(name).String()})
			}
			return a.writeRows([]string{"kernel", "level"}, rows)
		},
	}
}

func (a *app) describeCommand() *cobra.Command {
	return a.columnCommand(&cobra.Command{
		Use:   "describe <file.csv>",
		Short: "Show the dtype, length, missing count and every reduction of a column",
	}, func(arr *columnar.Array) error {
		return a.writeDescription(describe(arr))
	})
}

func (a *app) valueCountsCommand() *cobra.Command {
	var dropNA bool
	cmd := a.columnCommand(&cobra.Command{
		Use:   "value-counts <file.csv>",
		Short: "Count occurrences of each distinct value",
	}, func(arr *columnar.Array) error {
		counts, err := arr.ValueCounts(dropNA)
		if err != nil {
			return err
		}
		defer releaseSeries(counts)
		return a.writeSeries(counts)
	})
	cmd.Flags().BoolVar(&dropNA, "dropna", false, "Leave missing values out of the counts")
	return cmd
}

func (a *app) rankCommand() *cobra.Command {
	opts := columnar.DefaultRankOptions()
	var descending bool
	cmd := a.columnCommand(&cobra.Command{
		Use:   "rank <file.csv>",
		Short: "Rank the values of a column",
	}, func(arr *columnar.Array) error {
		opts.Ascending = !descending
		ranks, err := arr.Rank(opts)
		if err != nil {
			return err
		}
		defer ranks.Release()
		return a.writePositional(ranks, "rank", nil)
	})
	cmd.Flags().StringVar(&opts.Method, "method", opts.Method, "Tie method (average, min, max, first, dense)")
	cmd.Flags().StringVar(&opts.NAOption, "na-option", opts.NAOption, "Placement of missing values (keep, top, bottom)")
	cmd.Flags().BoolVar(&descending, "descending", false, "Rank the largest value first")
	cmd.Flags().BoolVar(&opts.Pct, "pct", false, "Report ranks as a fraction of the ranked count")
	return cmd
}

func (a *app) uniqueCommand() *cobra.Command {
	return a.columnCommand(&cobra.Command{
		Use:   "unique <file.csv>",
		Short: "List the distinct values in order of first appearance",
	}, func(arr *columnar.Array) error {
		uniq, err := arr.Unique()
		if err != nil {
			return err
		}
		defer uniq.Release()
		return a.writePositional(uniq, "unique", nil)
	})
}

func (a *app) sortCommand() *cobra.Command {
	var (
		descending bool
		naPosition string
	)
	cmd := a.columnCommand(&cobra.Command{
		Use:   "sort <file.csv>",
		Short: "Sort a column, labelling each value with its original row",
	}, func(arr *columnar.Array) error {
		order, err := arr.Argsort(!descending, naPosition)
		if err != nil {
			return err
		}
		sorted, err := arr.Take(order, false, nil)
		if err != nil {
			return err
		}
		defer sorted.Release()
		return a.writePositional(sorted, "value", order)
	})
	cmd.Flags().BoolVar(&descending, "descending", false, "Sort from largest to smallest")
	cmd.Flags().StringVar(&naPosition, "na-position", "last", "Placement of missing values (first, last)")
	return cmd
}

// writePositional renders values labelled by row. rows holds the original
// row of each value; nil labels values by their own position.
func (a *app) writePositional(values *columnar.Array, name string, rows []int) error {
	var index *frame.Index
	if rows != nil {
		labels := make([]int64, len(rows))
		for i, r := range rows {
			labels[i] = int64(r)
		}
		col, err := columnar.FromSequence(labels, arrow.PrimitiveTypes.Int64, false)
		if err != nil {
			return err
		}
		defer col.Release()
		index = frame.NewIndex(col, "row")
	}
	series, err := frame.NewSeries(values, index, name)
	if err != nil {
		return err
	}
	return a.writeSeries(series)
}

func releaseSeries(s *frame.Series) {
	if arr, ok := s.Values().(*columnar.Array); ok {
		arr.Release()
	}
	if s.Index() == nil {
		return
	}
	if arr, ok := s.Index().Values().(*columnar.Array); ok {
		arr.Release()
	}
}
