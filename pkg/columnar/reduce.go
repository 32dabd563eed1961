package columnar

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// Reduction names a scalar reduction.
type Reduction string

const (
	ReduceAny    Reduction = "any"
	ReduceAll    Reduction = "all"
	ReduceMin    Reduction = "min"
	ReduceMax    Reduction = "max"
	ReduceSum    Reduction = "sum"
	ReduceMean   Reduction = "mean"
	ReduceMedian Reduction = "median"
	ReduceProd   Reduction = "prod"
	ReduceStd    Reduction = "std"
	ReduceVar    Reduction = "var"
	ReduceSem    Reduction = "sem"
	ReduceKurt   Reduction = "kurt"
	ReduceSkew   Reduction = "skew"
)

var reductionKernels = map[Reduction]string{
	ReduceAny:    "any",
	ReduceAll:    "all",
	ReduceMin:    "min",
	ReduceMax:    "max",
	ReduceSum:    "sum",
	ReduceMean:   "mean",
	ReduceMedian: "approximate_median",
	ReduceProd:   "product",
	ReduceStd:    "stddev",
	ReduceVar:    "variance",
	ReduceSem:    "stddev",
	ReduceKurt:   "kurtosis",
	ReduceSkew:   "skew",
}

// Reductions lists every supported reduction name.
func Reductions() []Reduction {
	return []Reduction{
		ReduceAny, ReduceAll, ReduceMin, ReduceMax, ReduceSum, ReduceMean, ReduceMedian,
		ReduceProd, ReduceStd, ReduceVar, ReduceSem, ReduceKurt, ReduceSkew,
	}
}

type reduceConfig struct {
	ddof     int
	minCount int
}

// ReduceOption tunes Reduce.
type ReduceOption func(*reduceConfig)

// WithDDof sets the delta degrees of freedom of std, var and sem.
func WithDDof(ddof int) ReduceOption {
	return func(c *reduceConfig) { c.ddof = ddof }
}

// WithMinCount sets the number of valid values below which the result is
// missing.
func WithMinCount(n int) ReduceOption {
	return func(c *reduceConfig) { c.minCount = n }
}

// Reduce collapses the array to one native value, or dtype.NA when the
// result is missing. With skipNA false a missing element makes the result
// missing, except for any and all which use Kleene logic.
func (a *Array) Reduce(name Reduction, skipNA bool, opts ...ReduceOption) (any, error) {
	kernel, ok := reductionKernels[name]
	if !ok {
		return nil, unsupported("'%s' is not a supported reduction", name)
	}
	dt := a.DType()
	cfg := reduceConfig{ddof: computeDefaults().DefaultDDof, minCount: 1}
	if name == ReduceAny || name == ReduceAll {
		cfg.minCount = 0
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, back, err := a.reductionInput(name)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	arr, err := data.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	sc, err := kernels.Aggregate(a.ctx(), arr, kernel, kernels.AggregateOptions{
		SkipNulls:   skipNA,
		MinCount:    cfg.minCount,
		DDof:        cfg.ddof,
		Compression: computeDefaults().MedianCompression,
	})
	if err != nil {
		if isNotImplemented(err) {
			return nil, nebulaerrors.Reduction(dt.String(), string(name), capability.Current().Version(), err)
		}
		return nil, translate(err, string(name), dt)
	}
	if !sc.IsValid() {
		return dtype.NA, nil
	}

	if name == ReduceSem {
		count := arr.Len() - arr.NullN()
		std := sc.(*scalar.Float64).Value
		sc = scalar.NewFloat64Scalar(std / math.Sqrt(float64(count)))
	}
	if back != nil {
		sc = scalar.NewDurationScalar(arrow.Duration(sc.(*scalar.Int64).Value), back.(*arrow.DurationType))
	}
	return a.scalarValue(sc)
}

// reductionInput prepares the data a reduction runs on. Truthiness tests
// compare numeric and duration data against zero; duration min, max and
// sum run on int64 and report back as the original type.
func (a *Array) reductionInput(name Reduction) (*Array, arrow.DataType, error) {
	dt := a.DType()
	switch name {
	case ReduceAny, ReduceAll:
		k := dt.Kind()
		if k != dtype.KindInt && k != dtype.KindUint && k != dtype.KindFloat && k != dtype.KindDuration {
			return a.Pos(), nil, nil
		}
		data := a.Pos()
		if k == dtype.KindDuration {
			view, err := a.reinterpret(arrow.PrimitiveTypes.Int64)
			data.Release()
			if err != nil {
				return nil, nil, err
			}
			data = view
		}
		defer data.Release()
		truth, err := data.Compare(0, Ne)
		if err != nil {
			return nil, nil, err
		}
		out, err := truth.ToArray(WithAllocator(a.mem))
		return out, nil, err
	case ReduceMin, ReduceMax, ReduceSum:
		if isDuration(dt) {
			view, err := a.reinterpret(arrow.PrimitiveTypes.Int64)
			return view, a.data.DataType(), err
		}
	}
	return a.Pos(), nil, nil
}

// scalarValue converts a kernel scalar to its native form.
func (a *Array) scalarValue(sc scalar.Scalar) (any, error) {
	arr, err := scalar.MakeArrayFromScalar(sc, 1, a.mem)
	if err != nil {
		return nil, translate(err, "reduce", a.DType())
	}
	defer arr.Release()
	return dtype.ValueAt(arr, 0), nil
}

// Accumulation names a running reduction.
type Accumulation string

const (
	CumMin  Accumulation = "cummin"
	CumMax  Accumulation = "cummax"
	CumSum  Accumulation = "cumsum"
	CumProd Accumulation = "cumprod"
)

var accumulationKernels = map[Accumulation]string{
	CumMin:  "cumulative_min",
	CumMax:  "cumulative_max",
	CumSum:  "cumulative_sum_checked",
	CumProd: "cumulative_prod_checked",
}

// Accumulate computes a running reduction. Sums and products fail on
// overflow instead of wrapping.
func (a *Array) Accumulate(name Accumulation, skipNA bool) (*Array, error) {
	kernel, ok := accumulationKernels[name]
	dt := a.DType()
	if !ok || (name == CumProd && isDuration(dt)) {
		return a.accumulateGeneric(name)
	}

	view, err := a.viewAs(isDuration)
	if err != nil {
		return nil, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	out, err := kernels.Cumulative(a.ctx(), arr, kernel, kernels.CumulativeOptions{SkipNulls: skipNA})
	if err != nil {
		if isNotImplemented(err) {
			return a.accumulateGeneric(name)
		}
		return nil, translate(err, string(name), dt)
	}
	return view.restore(a.wrap(out))
}

func (a *Array) accumulateGeneric(name Accumulation) (*Array, error) {
	return nil, unsupported("cannot perform %s with type %s", name, a.DType())
}

// Quantile returns one value per q in qs. Temporal arrays keep their type;
// interpolated results are floored onto the time grid.
func (a *Array) Quantile(qs []float64, interpolation string) (*Array, error) {
	interp, err := kernels.ParseInterpolation(interpolation)
	if err != nil {
		return nil, translate(err, "quantile", a.DType())
	}
	view, err := a.viewAs(isTemporal)
	if err != nil {
		return nil, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	out, err := kernels.Quantile(a.ctx(), arr, qs, interp)
	if err != nil {
		return nil, translate(err, "quantile", a.DType())
	}
	res := a.wrap(out)
	if !view.active() || out.DataType().ID() != arrow.FLOAT64 {
		return view.restore(res)
	}

	defer res.Release()
	floored, err := res.unary("quantile", "floor", nil)
	if err != nil {
		return nil, err
	}
	defer floored.Release()
	grid, err := floored.castTo(view.storage, false)
	if err != nil {
		return nil, err
	}
	return view.restore(grid)
}

// Mode returns the most common values in ascending order. With dropNA
// false, missing values compete too and show up as a trailing missing
// element when they are among the most common.
func (a *Array) Mode(dropNA bool) (*Array, error) {
	view, err := a.viewAs(isTemporal)
	if err != nil {
		return nil, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	ctx := a.ctx()
	distinct, err := kernels.CountDistinct(ctx, arr, kernels.CountOnlyValid)
	if err != nil {
		return nil, translate(err, "mode", a.DType())
	}
	values, counts, err := kernels.Mode(ctx, arr, int(distinct))
	if err != nil {
		return nil, translate(err, "mode", a.DType())
	}
	defer values.Release()

	var top int64
	if len(counts) > 0 {
		top = counts[0]
	}
	keep := 0
	for keep < len(counts) && counts[keep] == top {
		keep++
	}
	nulls := int64(arr.NullN())
	if !dropNA && nulls > 0 && nulls > top {
		keep = 0
	}

	parts := []arrow.Array{array.NewSlice(values, 0, int64(keep))}
	if !dropNA && nulls > 0 && nulls >= top {
		parts = append(parts, array.MakeArrayOfNull(a.mem, arr.DataType(), 1))
	}
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()
	out, err := array.Concatenate(parts, a.mem)
	if err != nil {
		return nil, translate(err, "mode", a.DType())
	}
	return view.restore(a.wrap(out))
}
