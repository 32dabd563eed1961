package columnar

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func TestReduce(t *testing.T) {
	ints := int64s(t, 1, 2, 3, 4, nil)
	floats := float64s(t, 1.0, 2.0, 3.0, 4.0)

	tests := []struct {
		name   string
		arr    *Array
		op     Reduction
		skipNA bool
		want   any
	}{
		{"min", ints, ReduceMin, true, int64(1)},
		{"max", ints, ReduceMax, true, int64(4)},
		{"sum", ints, ReduceSum, true, int64(10)},
		{"prod", ints, ReduceProd, true, int64(24)},
		{"mean", ints, ReduceMean, true, 2.5},
		{"max with missing", ints, ReduceMax, false, na},
		{"sum with missing", ints, ReduceSum, false, na},
		{"float sum", floats, ReduceSum, true, 10.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.arr.Reduce(tt.op, tt.skipNA)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduceMoments(t *testing.T) {
	arr := float64s(t, 1.0, 2.0, 3.0, 4.0)

	std, err := arr.Reduce(ReduceStd, true)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/3.0), std, 1e-12)

	population, err := arr.Reduce(ReduceVar, true, WithDDof(0))
	require.NoError(t, err)
	assert.InDelta(t, 1.25, population, 1e-12)

	sem, err := arr.Reduce(ReduceSem, true)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/3.0)/2, sem, 1e-12)

	median, err := int64s(t, 1, 2, 3, 4, 5).Reduce(ReduceMedian, true)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, median, 0.5)

	skew, err := float64s(t, 1.0, 2.0, 3.0, 10.0).Reduce(ReduceSkew, true)
	require.NoError(t, err)
	assert.Greater(t, skew.(float64), 0.0)

	kurt, err := float64s(t, 1.0, 2.0, 3.0).Reduce(ReduceKurt, true)
	require.NoError(t, err)
	assert.Equal(t, na, kurt)

	single, err := float64s(t, 1.0).Reduce(ReduceStd, true)
	require.NoError(t, err)
	assert.Equal(t, na, single)
}

func TestReduceAnyAll(t *testing.T) {
	tests := []struct {
		name   string
		arr    *Array
		op     Reduction
		skipNA bool
		want   any
	}{
		{"any ints", int64s(t, 0, 0, 5), ReduceAny, true, true},
		{"all ints", int64s(t, 0, 5), ReduceAll, true, false},
		{"all floats", float64s(t, 1.5, -1.0), ReduceAll, true, true},
		{"any empty", int64s(t), ReduceAny, true, false},
		{"all empty", int64s(t), ReduceAll, true, true},
		{"kleene any", newArray(t, []any{false, nil}, nil), ReduceAny, false, na},
		{"kleene any true", newArray(t, []any{true, nil}, nil), ReduceAny, false, true},
		{"kleene all false", newArray(t, []any{false, nil}, nil), ReduceAll, false, false},
		{"skipped missing", newArray(t, []any{true, nil}, nil), ReduceAll, true, true},
		{"durations", newArray(t, []any{time.Duration(0), time.Second}, arrow.FixedWidthTypes.Duration_ms), ReduceAny, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.arr.Reduce(tt.op, tt.skipNA)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduceDurations(t *testing.T) {
	arr := newArray(t, []any{time.Second, 2 * time.Second, nil}, arrow.FixedWidthTypes.Duration_ms)

	sum, err := arr.Reduce(ReduceSum, true)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, sum)

	maxv, err := arr.Reduce(ReduceMax, true)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, maxv)
}

func TestReduceMinCount(t *testing.T) {
	arr := int64s(t, nil, nil)

	got, err := arr.Reduce(ReduceSum, true)
	require.NoError(t, err)
	assert.Equal(t, na, got)

	got, err = arr.Reduce(ReduceSum, true, WithMinCount(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	got, err = int64s(t, 1, 2).Reduce(ReduceSum, true, WithMinCount(3))
	require.NoError(t, err)
	assert.Equal(t, na, got)
}

func TestReduceErrors(t *testing.T) {
	strs := newArray(t, []any{"a", "b"}, nil)

	_, err := strs.Reduce(ReduceMean, true)
	assertErrorType(t, err, nebulaerrors.ErrorTypeReduction)

	_, err = strs.Reduce(Reduction("nonsense"), true)
	assertErrorType(t, err, nebulaerrors.ErrorTypeUnsupported)

	assert.Len(t, Reductions(), 13)
}

func TestAccumulate(t *testing.T) {
	arr := int64s(t, 3, nil, 1, 4)

	tests := []struct {
		name   string
		op     Accumulation
		skipNA bool
		want   []any
	}{
		{"cumsum", CumSum, true, []any{int64(3), na, int64(4), int64(8)}},
		{"cumsum propagating", CumSum, false, []any{int64(3), na, na, na}},
		{"cumprod", CumProd, true, []any{int64(3), na, int64(3), int64(12)}},
		{"cummin", CumMin, true, []any{int64(3), na, int64(1), int64(1)}},
		{"cummax", CumMax, true, []any{int64(3), na, int64(3), int64(4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := arr.Accumulate(tt.op, tt.skipNA)
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestAccumulateDurations(t *testing.T) {
	arr := newArray(t, []any{time.Second, nil, 2 * time.Second}, arrow.FixedWidthTypes.Duration_ms)

	got, err := arr.Accumulate(CumSum, true)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, "duration[ms][arrow]", got.DType().String())
	assert.Equal(t, []any{time.Second, na, 3 * time.Second}, got.Values())

	_, err = arr.Accumulate(CumProd, true)
	assertErrorType(t, err, nebulaerrors.ErrorTypeUnsupported)
}

func TestAccumulateErrors(t *testing.T) {
	_, err := int64s(t, math.MaxInt64, 1).Accumulate(CumSum, true)
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)

	_, err = int64s(t, 1).Accumulate(Accumulation("cumcount"), true)
	assertErrorType(t, err, nebulaerrors.ErrorTypeUnsupported)
}

func TestQuantile(t *testing.T) {
	arr := float64s(t, 4.0, 1.0, nil, 3.0, 2.0)

	tests := []struct {
		interpolation string
		qs            []float64
		want          []any
	}{
		{"linear", []float64{0, 0.5, 1}, []any{1.0, 2.5, 4.0}},
		{"lower", []float64{0.5}, []any{2.0}},
		{"higher", []float64{0.5}, []any{3.0}},
		{"midpoint", []float64{0.25}, []any{1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.interpolation, func(t *testing.T) {
			got, err := arr.Quantile(tt.qs, tt.interpolation)
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, tt.want, got.Values())
		})
	}

	_, err := arr.Quantile([]float64{0.5}, "cubic")
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)
	_, err = arr.Quantile([]float64{1.5}, "linear")
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)
}

func TestQuantileDates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	arr := newArray(t, []any{day(1), day(4)}, arrow.FixedWidthTypes.Date32)

	got, err := arr.Quantile([]float64{0.5}, "linear")
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, "date32[arrow]", got.DType().String())
	v, err := got.At(0)
	require.NoError(t, err)
	assert.True(t, day(2).Equal(v.(time.Time)), "got %v", v)

	lower, err := arr.Quantile([]float64{1}, "lower")
	require.NoError(t, err)
	defer lower.Release()
	v, err = lower.At(0)
	require.NoError(t, err)
	assert.True(t, day(4).Equal(v.(time.Time)), "got %v", v)
}

func TestMode(t *testing.T) {
	tests := []struct {
		name   string
		arr    *Array
		dropNA bool
		want   []any
	}{
		{"ties ascending", int64s(t, 3, 1, 3, 1, 2, nil), true, []any{int64(1), int64(3)}},
		{"missing outnumbered", int64s(t, 3, 1, 3, 1, 2, nil), false, []any{int64(1), int64(3)}},
		{"missing tied", int64s(t, 1, nil), false, []any{int64(1), na}},
		{"missing wins", int64s(t, 1, nil, nil), false, []any{na}},
		{"all missing", int64s(t, nil, nil), true, []any{}},
		{"strings", newArray(t, []any{"b", "a", "b"}, nil), true, []any{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.arr.Mode(tt.dropNA)
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestModeDurations(t *testing.T) {
	arr := newArray(t, []any{time.Second, time.Second, time.Minute}, arrow.FixedWidthTypes.Duration_s)
	got, err := arr.Mode(true)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, "duration[s][arrow]", got.DType().String())
	assert.Equal(t, []any{time.Second}, got.Values())
}
