package kernels

import (
	"context"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/influxdata/tdigest"
	"github.com/shopspring/decimal"
)

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	// SkipNulls ignores nulls; otherwise any null makes the result null.
	SkipNulls bool
	// MinCount is the number of valid values below which the result is null.
	MinCount int
	// DDof is the delta degrees of freedom of stddev and variance.
	DDof int
	// Compression is the t-digest compression of approximate_median.
	Compression float64
	// Biased selects population skew and kurtosis instead of the
	// sample-adjusted estimators.
	Biased bool
}

// DefaultAggregateOptions skips nulls and requires one valid value.
func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{SkipNulls: true, MinCount: 1, Compression: 100}
}

type aggregateFunc func(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error)

var aggregates = map[string]aggregateFunc{
	"any":                aggAny,
	"all":                aggAll,
	"min":                aggMinMax(false),
	"max":                aggMinMax(true),
	"sum":                aggSum,
	"product":            aggProduct,
	"mean":               aggMean,
	"stddev":             aggMoment("stddev", func(m moments, ddof int) float64 { return math.Sqrt(m.variance(ddof)) }),
	"variance":           aggMoment("variance", func(m moments, ddof int) float64 { return m.variance(ddof) }),
	"approximate_median": aggApproxMedian,
	"skew":               aggShape("skew", moments.skew),
	"kurtosis":           aggShape("kurtosis", moments.kurtosis),
	"count":              aggCount,
}

// IsAggregate reports whether name is a known aggregate kernel.
func IsAggregate(name string) bool {
	_, ok := aggregates[name]
	return ok
}

// Aggregate reduces arr to a scalar with the named kernel. A kernel that
// does not accept the input type returns an arrow.ErrNotImplemented error.
func Aggregate(ctx context.Context, arr arrow.Array, name string, opts AggregateOptions) (out scalar.Scalar, err error) {
	defer timed(name, &err)()
	fn, ok := aggregates[name]
	if !ok {
		return nil, fmt.Errorf("%w: no aggregate function '%s'", arrow.ErrNotImplemented, name)
	}
	return fn(ctx, arr, opts)
}

// nullResult reports whether null handling alone decides the result.
func nullResult(arr arrow.Array, opts AggregateOptions) bool {
	if !opts.SkipNulls && arr.NullN() > 0 {
		return true
	}
	return arr.Len()-arr.NullN() < opts.MinCount
}

func aggCount(_ context.Context, arr arrow.Array, _ AggregateOptions) (scalar.Scalar, error) {
	return scalar.NewInt64Scalar(int64(arr.Len() - arr.NullN())), nil
}

// aggAny and aggAll follow Kleene logic when nulls are not skipped.
func aggAny(_ context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
	b, ok := arr.(*array.Boolean)
	if !ok {
		return nil, notImplemented("any", arr.DataType())
	}
	if b.Len()-b.NullN() < opts.MinCount {
		return scalar.MakeNullScalar(arrow.FixedWidthTypes.Boolean), nil
	}
	for i := 0; i < b.Len(); i++ {
		if b.IsValid(i) && b.Value(i) {
			return scalar.NewBooleanScalar(true), nil
		}
	}
	if !opts.SkipNulls && b.NullN() > 0 {
		return scalar.MakeNullScalar(arrow.FixedWidthTypes.Boolean), nil
	}
	return scalar.NewBooleanScalar(false), nil
}

func aggAll(_ context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
	b, ok := arr.(*array.Boolean)
	if !ok {
		return nil, notImplemented("all", arr.DataType())
	}
	if b.Len()-b.NullN() < opts.MinCount {
		return scalar.MakeNullScalar(arrow.FixedWidthTypes.Boolean), nil
	}
	for i := 0; i < b.Len(); i++ {
		if b.IsValid(i) && !b.Value(i) {
			return scalar.NewBooleanScalar(false), nil
		}
	}
	if !opts.SkipNulls && b.NullN() > 0 {
		return scalar.MakeNullScalar(arrow.FixedWidthTypes.Boolean), nil
	}
	return scalar.NewBooleanScalar(true), nil
}

// aggMinMax skips NaNs unless every valid value is NaN.
func aggMinMax(isMax bool) aggregateFunc {
	name := "min"
	if isMax {
		name = "max"
	}
	return func(_ context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
		v, err := newView(name, arr)
		if err != nil {
			return nil, err
		}
		if nullResult(arr, opts) {
			return scalar.MakeNullScalar(arr.DataType()), nil
		}
		best, firstNaN := -1, -1
		for i := 0; i < v.Len(); i++ {
			if v.IsNull(i) {
				continue
			}
			if v.IsNaN(i) {
				if firstNaN < 0 {
					firstNaN = i
				}
				continue
			}
			if best < 0 {
				best = i
				continue
			}
			c := v.Compare(i, best)
			if (isMax && c > 0) || (!isMax && c < 0) {
				best = i
			}
		}
		if best < 0 {
			best = firstNaN
		}
		if best < 0 {
			return scalar.MakeNullScalar(arr.DataType()), nil
		}
		return scalar.GetScalar(arr, best)
	}
}

// widen casts integers to int64, unsigned integers to uint64 and floats
// and booleans to a 64-bit type so sums can be accumulated in one place.
func widen(ctx context.Context, kernel string, arr arrow.Array) (arrow.Array, error) {
	var to arrow.DataType
	switch arr.DataType().ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64, arrow.BOOL:
		to = arrow.PrimitiveTypes.Int64
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		to = arrow.PrimitiveTypes.Uint64
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		to = arrow.PrimitiveTypes.Float64
	default:
		return nil, notImplemented(kernel, arr.DataType())
	}
	return Cast(ctx, arr, to, false)
}

func aggSum(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
	return fold(ctx, "sum", arr, opts, 0, func(a, b int64) int64 { return a + b },
		func(a, b uint64) uint64 { return a + b }, func(a, b float64) float64 { return a + b },
		func(a, b decimal128.Num) decimal128.Num { return a.Add(b) })
}

func aggProduct(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
	if arr.DataType().ID() == arrow.DECIMAL128 {
		return nil, notImplemented("product", arr.DataType())
	}
	return fold(ctx, "product", arr, opts, 1, func(a, b int64) int64 { return a * b },
		func(a, b uint64) uint64 { return a * b }, func(a, b float64) float64 { return a * b }, nil)
}

// fold accumulates the valid values of arr starting from identity.
// Decimal sums keep the input scale at precision 38.
func fold(ctx context.Context, kernel string, arr arrow.Array, opts AggregateOptions, identity int64,
	fi func(a, b int64) int64, fu func(a, b uint64) uint64, ff func(a, b float64) float64,
	fd func(a, b decimal128.Num) decimal128.Num) (scalar.Scalar, error) {

	if d, ok := arr.(*array.Decimal128); ok && fd != nil {
		dt := d.DataType().(*arrow.Decimal128Type)
		out := &arrow.Decimal128Type{Precision: 38, Scale: dt.Scale}
		if nullResult(arr, opts) {
			return scalar.MakeNullScalar(out), nil
		}
		acc := decimal128.FromI64(0)
		for i := 0; i < d.Len(); i++ {
			if d.IsValid(i) {
				acc = fd(acc, d.Value(i))
			}
		}
		return scalar.NewDecimal128Scalar(acc, out), nil
	}

	wide, err := widen(ctx, kernel, arr)
	if err != nil {
		return nil, err
	}
	defer wide.Release()
	if nullResult(arr, opts) {
		return scalar.MakeNullScalar(wide.DataType()), nil
	}

	switch w := wide.(type) {
	case *array.Int64:
		acc := identity
		for i := 0; i < w.Len(); i++ {
			if w.IsValid(i) {
				acc = fi(acc, w.Value(i))
			}
		}
		return scalar.NewInt64Scalar(acc), nil
	case *array.Uint64:
		acc := uint64(identity)
		for i := 0; i < w.Len(); i++ {
			if w.IsValid(i) {
				acc = fu(acc, w.Value(i))
			}
		}
		return scalar.NewUint64Scalar(acc), nil
	case *array.Float64:
		acc := float64(identity)
		for i := 0; i < w.Len(); i++ {
			if w.IsValid(i) {
				acc = ff(acc, w.Value(i))
			}
		}
		return scalar.NewFloat64Scalar(acc), nil
	}
	return nil, notImplemented(kernel, arr.DataType())
}

func aggMean(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
	if d, ok := arr.(*array.Decimal128); ok {
		dt := d.DataType().(*arrow.Decimal128Type)
		if nullResult(arr, opts) {
			return scalar.MakeNullScalar(dt), nil
		}
		sum := decimal.Zero
		for i := 0; i < d.Len(); i++ {
			if d.IsValid(i) {
				sum = sum.Add(decimal.NewFromBigInt(d.Value(i).BigInt(), -dt.Scale))
			}
		}
		mean := sum.DivRound(decimal.NewFromInt(int64(d.Len()-d.NullN())), dt.Scale)
		n := decimal128.FromBigInt(mean.Shift(dt.Scale).BigInt())
		return scalar.NewDecimal128Scalar(n, dt), nil
	}

	values, err := floats(ctx, "mean", arr)
	if err != nil {
		return nil, err
	}
	if nullResult(arr, opts) {
		return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64), nil
	}
	var sum float64
	for _, x := range values {
		sum += x
	}
	return scalar.NewFloat64Scalar(sum / float64(len(values))), nil
}

// floats returns the valid values of a numeric array as float64.
func floats(ctx context.Context, kernel string, arr arrow.Array) ([]float64, error) {
	if d, ok := arr.(*array.Decimal128); ok {
		scale := d.DataType().(*arrow.Decimal128Type).Scale
		out := make([]float64, 0, d.Len()-d.NullN())
		for i := 0; i < d.Len(); i++ {
			if d.IsValid(i) {
				out = append(out, d.Value(i).ToFloat64(scale))
			}
		}
		return out, nil
	}
	wide, err := widen(ctx, kernel, arr)
	if err != nil {
		return nil, err
	}
	defer wide.Release()
	f, err := Cast(ctx, wide, arrow.PrimitiveTypes.Float64, false)
	if err != nil {
		return nil, err
	}
	defer f.Release()

	fa := f.(*array.Float64)
	out := make([]float64, 0, fa.Len()-fa.NullN())
	for i := 0; i < fa.Len(); i++ {
		if fa.IsValid(i) {
			out = append(out, fa.Value(i))
		}
	}
	return out, nil
}

// moments holds the central moments of a sample.
type moments struct {
	n          float64
	mean       float64
	m2, m3, m4 float64
	biased     bool
}

func newMoments(values []float64, biased bool) moments {
	m := moments{n: float64(len(values)), biased: biased}
	if m.n == 0 {
		return m
	}
	for _, x := range values {
		m.mean += x
	}
	m.mean /= m.n
	for _, x := range values {
		d := x - m.mean
		d2 := d * d
		m.m2 += d2
		m.m3 += d2 * d
		m.m4 += d2 * d2
	}
	m.m2 /= m.n
	m.m3 /= m.n
	m.m4 /= m.n
	return m
}

func (m moments) variance(ddof int) float64 {
	return m.m2 * m.n / (m.n - float64(ddof))
}

func (m moments) skew() (float64, bool) {
	if m.m2 == 0 {
		if m.biased {
			return math.NaN(), true
		}
		return 0, true
	}
	g1 := m.m3 / math.Pow(m.m2, 1.5)
	if m.biased {
		return g1, true
	}
	if m.n < 3 {
		return 0, false
	}
	return g1 * math.Sqrt(m.n*(m.n-1)) / (m.n - 2), true
}

func (m moments) kurtosis() (float64, bool) {
	if m.m2 == 0 {
		if m.biased {
			return math.NaN(), true
		}
		return 0, true
	}
	g2 := m.m4/(m.m2*m.m2) - 3
	if m.biased {
		return g2, true
	}
	if m.n < 4 {
		return 0, false
	}
	n := m.n
	return ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3)), true
}

func aggMoment(name string, fn func(m moments, ddof int) float64) aggregateFunc {
	return func(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
		values, err := floats(ctx, name, arr)
		if err != nil {
			return nil, err
		}
		if nullResult(arr, opts) || len(values)-opts.DDof <= 0 {
			return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64), nil
		}
		return scalar.NewFloat64Scalar(fn(newMoments(values, true), opts.DDof)), nil
	}
}

func aggShape(name string, fn func(m moments) (float64, bool)) aggregateFunc {
	return func(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
		values, err := floats(ctx, name, arr)
		if err != nil {
			return nil, err
		}
		if nullResult(arr, opts) || len(values) == 0 {
			return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64), nil
		}
		x, ok := fn(newMoments(values, opts.Biased))
		if !ok {
			return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64), nil
		}
		return scalar.NewFloat64Scalar(x), nil
	}
}

func aggApproxMedian(ctx context.Context, arr arrow.Array, opts AggregateOptions) (scalar.Scalar, error) {
	values, err := floats(ctx, "approximate_median", arr)
	if err != nil {
		return nil, err
	}
	if nullResult(arr, opts) {
		return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64), nil
	}
	compression := opts.Compression
	if compression <= 0 {
		compression = 100
	}
	td := tdigest.NewWithCompression(compression)
	for _, x := range values {
		if !math.IsNaN(x) {
			td.Add(x, 1)
		}
	}
	if td.Count() == 0 {
		return scalar.MakeNullScalar(arrow.PrimitiveTypes.Float64), nil
	}
	return scalar.NewFloat64Scalar(td.Quantile(0.5)), nil
}
