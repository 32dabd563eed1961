package kernels

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Interpolation picks a value when a quantile falls between two data points.
type Interpolation int

const (
	Linear Interpolation = iota
	Lower
	Higher
	Nearest
	Midpoint
)

var interpolationNames = map[string]Interpolation{
	"linear":   Linear,
	"lower":    Lower,
	"higher":   Higher,
	"nearest":  Nearest,
	"midpoint": Midpoint,
}

// ParseInterpolation resolves an interpolation name.
func ParseInterpolation(name string) (Interpolation, error) {
	if in, ok := interpolationNames[name]; ok {
		return in, nil
	}
	return 0, fmt.Errorf("%w: unknown interpolation '%s'", arrow.ErrInvalid, name)
}

// Quantile computes one quantile per entry of qs over the non-null,
// non-NaN values of arr. Linear and Midpoint interpolation produce
// float64; the others select an existing element and keep the input type.
// An input without values yields nulls.
func Quantile(ctx context.Context, arr arrow.Array, qs []float64, interp Interpolation) (out arrow.Array, err error) {
	defer timed(QuantileKernel, &err)()
	v, err := newView(QuantileKernel, arr)
	if err != nil {
		return nil, err
	}
	for _, q := range qs {
		if q < 0 || q > 1 || math.IsNaN(q) {
			return nil, fmt.Errorf("%w: quantile must be between 0 and 1, got %v", arrow.ErrInvalid, q)
		}
	}

	sorted := make([]int, 0, v.Len())
	for _, i := range sortIndices(v, SortOptions{}) {
		if isValue(v, i) {
			sorted = append(sorted, i)
		}
	}
	n := len(sorted)

	if interp == Linear || interp == Midpoint {
		if _, ok := v.Float(0); !ok && v.Len() > 0 {
			return nil, notImplemented(QuantileKernel, arr.DataType())
		}
		b := array.NewFloat64Builder(Allocator(ctx))
		defer b.Release()
		for _, q := range qs {
			if n == 0 {
				b.AppendNull()
				continue
			}
			pos := q * float64(n-1)
			lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
			flo, _ := v.Float(sorted[lo])
			fhi, _ := v.Float(sorted[hi])
			if interp == Midpoint {
				b.Append(flo + (fhi-flo)/2)
				continue
			}
			b.Append(flo + (pos-float64(lo))*(fhi-flo))
		}
		return b.NewArray(), nil
	}

	picks := make([]int, len(qs))
	for k, q := range qs {
		if n == 0 {
			picks[k] = -1
			continue
		}
		pos := q * float64(n-1)
		var at int
		switch interp {
		case Lower:
			at = int(math.Floor(pos))
		case Higher:
			at = int(math.Ceil(pos))
		case Nearest:
			at = int(math.RoundToEven(pos))
		}
		picks[k] = sorted[at]
	}
	idx := IndicesArray(ctx, picks)
	defer idx.Release()
	return Take(ctx, arr, idx)
}

// Mode returns up to n most common values with their counts, ordered by
// descending count and then ascending value. Nulls are not counted; NaNs
// count as one value placed after the others on ties.
func Mode(ctx context.Context, arr arrow.Array, n int) (values arrow.Array, counts []int64, err error) {
	defer timed(ModeKernel, &err)()
	v, err := newView(ModeKernel, arr)
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[any]int)
	var reps []int
	for i := 0; i < v.Len(); i++ {
		if v.IsNull(i) {
			continue
		}
		k := v.Key(i)
		g, ok := groups[k]
		if !ok {
			g = len(reps)
			groups[k] = g
			reps = append(reps, i)
			counts = append(counts, 0)
		}
		counts[g]++
	}

	order := make([]int, len(reps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ga, gb := order[a], order[b]
		if counts[ga] != counts[gb] {
			return counts[ga] > counts[gb]
		}
		na, nb := v.IsNaN(reps[ga]), v.IsNaN(reps[gb])
		if na || nb {
			return nb && !na
		}
		return v.Compare(reps[ga], reps[gb]) < 0
	})
	if n >= 0 && n < len(order) {
		order = order[:n]
	}

	picked := make([]int, len(order))
	top := make([]int64, len(order))
	for k, g := range order {
		picked[k] = reps[g]
		top[k] = counts[g]
	}
	idx := IndicesArray(ctx, picked)
	defer idx.Release()
	values, err = Take(ctx, arr, idx)
	if err != nil {
		return nil, nil, err
	}
	return values, top, nil
}

// CountMode selects which slots CountDistinct considers.
type CountMode int

const (
	CountOnlyValid CountMode = iota
	CountOnlyNull
	CountAll
)

// CountDistinct counts distinct values. All NaNs count once, and so does
// null under CountAll.
func CountDistinct(ctx context.Context, arr arrow.Array, mode CountMode) (out int64, err error) {
	defer timed(CountDistinctKernel, &err)()
	v, err := newView(CountDistinctKernel, arr)
	if err != nil {
		return 0, err
	}
	seen := make(map[any]struct{})
	sawNull := false
	for i := 0; i < v.Len(); i++ {
		if v.IsNull(i) {
			sawNull = true
			continue
		}
		seen[v.Key(i)] = struct{}{}
	}
	nullCount := int64(0)
	if sawNull {
		nullCount = 1
	}
	switch mode {
	case CountOnlyNull:
		return nullCount, nil
	case CountAll:
		return int64(len(seen)) + nullCount, nil
	}
	return int64(len(seen)), nil
}
