// Package kernels is the compute surface the columnar array runs on.
//
// Element-wise arithmetic, comparison, boolean logic, casts, take, filter
// and unique are served by the arrow-go compute registry. The vector and
// aggregate kernels arrow-go does not ship in Go (sort_indices, rank,
// quantile, mode, the hash kernels, aggregates, cumulative sums, fill_null,
// if_else, replace_with_mask and the temporal kernels) are implemented here
// over single contiguous arrays and registered by name so the capability
// probe can see them.
//
// Every entry point records a call against the "kernels" metrics collector.
// Errors wrap the arrow sentinel errors (arrow.ErrInvalid,
// arrow.ErrNotImplemented, arrow.ErrType, arrow.ErrIndex) so callers can
// classify them with errors.Is.
package kernels

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/ajitpratap0/nebula-arrow/pkg/metrics"
)

var collector = metrics.NewCollector("kernels")

// Extension kernel names.
const (
	SortIndicesKernel      = "sort_indices"
	RankKernel             = "rank"
	QuantileKernel         = "quantile"
	ModeKernel             = "mode"
	CountDistinctKernel    = "count_distinct"
	ValueCountsKernel      = "value_counts"
	DictionaryEncodeKernel = "dictionary_encode"
	IndexKernel            = "index"
	IsInKernel             = "is_in"
	FillNullKernel         = "fill_null"
	FillNullForwardKernel  = "fill_null_forward"
	FillNullBackwardKernel = "fill_null_backward"
	IfElseKernel           = "if_else"
	ReplaceWithMaskKernel  = "replace_with_mask"
	IsoCalendarKernel      = "iso_calendar"
	IsLeapYearKernel       = "is_leap_year"
	StrftimeKernel         = "strftime"
)

var extensions = map[string]struct{}{}

func register(names ...string) {
	for _, n := range names {
		extensions[n] = struct{}{}
	}
}

func init() {
	register(SortIndicesKernel, RankKernel, QuantileKernel, ModeKernel, CountDistinctKernel,
		ValueCountsKernel, DictionaryEncodeKernel, IndexKernel, IsInKernel,
		FillNullKernel, FillNullForwardKernel, FillNullBackwardKernel,
		IfElseKernel, ReplaceWithMaskKernel, IsoCalendarKernel, IsLeapYearKernel, StrftimeKernel)
	for name := range aggregates {
		register(name)
	}
	for name := range accumulators {
		register(name)
	}
	for f := Field(0); f < numFields; f++ {
		register(f.String())
	}
	for m := RoundMode(0); m < numRoundModes; m++ {
		register(m.kernelName())
	}
}

// Names lists the extension kernels in sorted order.
func Names() []string {
	out := make([]string, 0, len(extensions))
	for n := range extensions {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is an extension kernel or an arrow-go
// registry function.
func Has(name string) bool {
	if _, ok := extensions[name]; ok {
		return true
	}
	_, ok := compute.GetFunctionRegistry().GetFunction(name)
	return ok
}

// Allocator returns the allocator carried by ctx.
func Allocator(ctx context.Context) memory.Allocator {
	return exec.GetAllocator(ctx)
}

// WithAllocator attaches mem to ctx for kernel outputs.
func WithAllocator(ctx context.Context, mem memory.Allocator) context.Context {
	return exec.WithAllocator(ctx, mem)
}

// timed records one call of kernel when the returned func runs.
func timed(kernel string, err *error) func() {
	start := time.Now()
	return func() { collector.ObserveKernel(kernel, start, *err) }
}

func notImplemented(kernel string, dt arrow.DataType) error {
	return fmt.Errorf("%w: function '%s' has no kernel matching input type %s",
		arrow.ErrNotImplemented, kernel, dt)
}

// Call runs an arrow-go registry function over array or scalar datums and
// returns the array result. Scalar results are broadcast to length one.
func Call(ctx context.Context, name string, opts compute.FunctionOptions, args ...compute.Datum) (out arrow.Array, err error) {
	defer timed(name, &err)()

	res, err := compute.CallFunction(ctx, name, opts, args...)
	if err != nil {
		return nil, err
	}
	defer res.Release()

	switch d := res.(type) {
	case *compute.ArrayDatum:
		return d.MakeArray(), nil
	case *compute.ScalarDatum:
		return scalar.MakeArrayFromScalar(d.Value, 1, Allocator(ctx))
	case *compute.ChunkedDatum:
		return concat(ctx, d.Chunks())
	}
	return nil, fmt.Errorf("%w: unexpected %s result from %s", arrow.ErrInvalid, res.Kind(), name)
}

// CallArrays is Call over arrays.
func CallArrays(ctx context.Context, name string, opts compute.FunctionOptions, args ...arrow.Array) (arrow.Array, error) {
	datums := make([]compute.Datum, len(args))
	for i, a := range args {
		datums[i] = compute.NewDatum(a)
	}
	defer func() {
		for _, d := range datums {
			d.Release()
		}
	}()
	return Call(ctx, name, opts, datums...)
}

// Cast converts arr to the given type. Safe casts reject overflow and
// truncation.
func Cast(ctx context.Context, arr arrow.Array, to arrow.DataType, safe bool) (out arrow.Array, err error) {
	defer timed("cast", &err)()
	if arrow.TypeEqual(arr.DataType(), to) {
		arr.Retain()
		return arr, nil
	}
	opts := compute.UnsafeCastOptions(to)
	if safe {
		opts = compute.SafeCastOptions(to)
	}
	return compute.CastArray(ctx, arr, opts)
}

// Take gathers values at indices. Null indices produce nulls.
func Take(ctx context.Context, values, indices arrow.Array) (out arrow.Array, err error) {
	defer timed("take", &err)()
	if values.DataType().ID() == arrow.NULL {
		return nullArray(ctx, indices.Len()), nil
	}
	return compute.TakeArray(ctx, values, indices)
}

// Filter keeps values where mask is true. Null mask slots drop the value.
func Filter(ctx context.Context, values, mask arrow.Array) (out arrow.Array, err error) {
	defer timed("filter", &err)()
	return compute.FilterArray(ctx, values, mask, compute.FilterOptions{NullSelection: compute.SelectionDropNulls})
}

// Unique returns distinct values in order of first appearance.
func Unique(ctx context.Context, arr arrow.Array) (out arrow.Array, err error) {
	defer timed("unique", &err)()
	if arr.DataType().ID() == arrow.NULL {
		return nullArray(ctx, min(arr.Len(), 1)), nil
	}
	return compute.UniqueArray(ctx, arr)
}
