package kernels

import (
	"context"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// CumulativeOptions configures Cumulative.
type CumulativeOptions struct {
	// SkipNulls leaves nulls in place and keeps accumulating; otherwise
	// every slot from the first null on is null.
	SkipNulls bool
}

type accumulateFunc func(ctx context.Context, arr arrow.Array, opts CumulativeOptions) (arrow.Array, error)

var accumulators = map[string]accumulateFunc{
	"cumulative_sum":          accumulateArith("cumulative_sum", opAdd, false),
	"cumulative_sum_checked":  accumulateArith("cumulative_sum_checked", opAdd, true),
	"cumulative_prod":         accumulateArith("cumulative_prod", opMul, false),
	"cumulative_prod_checked": accumulateArith("cumulative_prod_checked", opMul, true),
	"cumulative_min":          accumulateExtreme("cumulative_min", false),
	"cumulative_max":          accumulateExtreme("cumulative_max", true),
}

// IsAccumulation reports whether name is a known cumulative kernel.
func IsAccumulation(name string) bool {
	_, ok := accumulators[name]
	return ok
}

// Cumulative runs the named cumulative kernel. Checked variants fail with
// an arrow.ErrInvalid overflow error when a running value leaves the range
// of the input type.
func Cumulative(ctx context.Context, arr arrow.Array, name string, opts CumulativeOptions) (out arrow.Array, err error) {
	defer timed(name, &err)()
	fn, ok := accumulators[name]
	if !ok {
		return nil, fmt.Errorf("%w: no cumulative function '%s'", arrow.ErrNotImplemented, name)
	}
	return fn(ctx, arr, opts)
}

type arithOp int

const (
	opAdd arithOp = iota
	opMul
)

var errOverflow = fmt.Errorf("%w: overflow", arrow.ErrInvalid)

// signedBounds returns the range of a signed integer type of the given width.
func signedBounds(bits int) (int64, int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	return -(int64(1) << (bits - 1)), int64(1)<<(bits-1) - 1
}

func unsignedBound(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return uint64(1)<<bits - 1
}

func addInt(a, b, lo, hi int64) (int64, bool) {
	if (b > 0 && a > hi-b) || (b < 0 && a < lo-b) {
		return 0, false
	}
	return a + b, true
}

func mulInt(a, b, lo, hi int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	if r < lo || r > hi {
		return 0, false
	}
	return r, true
}

func addUint(a, b, hi uint64) (uint64, bool) {
	if a > hi-b {
		return 0, false
	}
	return a + b, true
}

func mulUint(a, b, hi uint64) (uint64, bool) {
	if b != 0 && a > hi/b {
		return 0, false
	}
	return a * b, true
}

func accumulateArith(name string, op arithOp, checked bool) accumulateFunc {
	return func(ctx context.Context, arr arrow.Array, opts CumulativeOptions) (arrow.Array, error) {
		wide, err := widen(ctx, name, arr)
		if err != nil {
			return nil, err
		}
		defer wide.Release()
		if arr.DataType().ID() == arrow.BOOL {
			return nil, notImplemented(name, arr.DataType())
		}
		bits := arr.DataType().(arrow.FixedWidthDataType).BitWidth()
		mem := Allocator(ctx)

		var acc arrow.Array
		switch w := wide.(type) {
		case *array.Int64:
			lo, hi := signedBounds(bits)
			if !checked {
				lo, hi = math.MinInt64, math.MaxInt64
			}
			b := array.NewInt64Builder(mem)
			defer b.Release()
			running, ok := int64(0), true
			if op == opMul {
				running = 1
			}
			seenNull := false
			for i := 0; i < w.Len(); i++ {
				if w.IsNull(i) || (seenNull && !opts.SkipNulls) {
					seenNull = true
					b.AppendNull()
					continue
				}
				if op == opAdd {
					if checked {
						running, ok = addInt(running, w.Value(i), lo, hi)
					} else {
						running += w.Value(i)
					}
				} else {
					if checked {
						running, ok = mulInt(running, w.Value(i), lo, hi)
					} else {
						running *= w.Value(i)
					}
				}
				if !ok {
					return nil, errOverflow
				}
				b.Append(running)
			}
			acc = b.NewArray()
		case *array.Uint64:
			hi := unsignedBound(bits)
			if !checked {
				hi = math.MaxUint64
			}
			b := array.NewUint64Builder(mem)
			defer b.Release()
			running, ok := uint64(0), true
			if op == opMul {
				running = 1
			}
			seenNull := false
			for i := 0; i < w.Len(); i++ {
				if w.IsNull(i) || (seenNull && !opts.SkipNulls) {
					seenNull = true
					b.AppendNull()
					continue
				}
				if op == opAdd {
					if checked {
						running, ok = addUint(running, w.Value(i), hi)
					} else {
						running += w.Value(i)
					}
				} else {
					if checked {
						running, ok = mulUint(running, w.Value(i), hi)
					} else {
						running *= w.Value(i)
					}
				}
				if !ok {
					return nil, errOverflow
				}
				b.Append(running)
			}
			acc = b.NewArray()
		case *array.Float64:
			b := array.NewFloat64Builder(mem)
			defer b.Release()
			running := 0.0
			if op == opMul {
				running = 1
			}
			seenNull := false
			for i := 0; i < w.Len(); i++ {
				if w.IsNull(i) || (seenNull && !opts.SkipNulls) {
					seenNull = true
					b.AppendNull()
					continue
				}
				if op == opAdd {
					running += w.Value(i)
				} else {
					running *= w.Value(i)
				}
				b.Append(running)
			}
			acc = b.NewArray()
		default:
			return nil, notImplemented(name, arr.DataType())
		}
		defer acc.Release()
		return Cast(ctx, acc, arr.DataType(), false)
	}
}

// accumulateExtreme tracks the index of the running min or max and gathers
// the values at those indices. NaN never replaces a running value.
func accumulateExtreme(name string, isMax bool) accumulateFunc {
	return func(ctx context.Context, arr arrow.Array, opts CumulativeOptions) (arrow.Array, error) {
		v, err := newView(name, arr)
		if err != nil {
			return nil, err
		}
		picks := make([]int, v.Len())
		best, seenNull := -1, false
		for i := 0; i < v.Len(); i++ {
			if v.IsNull(i) || (seenNull && !opts.SkipNulls) {
				seenNull = true
				picks[i] = -1
				continue
			}
			switch {
			case best < 0 || v.IsNaN(best):
				best = i
			case v.IsNaN(i):
			default:
				c := v.Compare(i, best)
				if (isMax && c > 0) || (!isMax && c < 0) {
					best = i
				}
			}
			picks[i] = best
		}
		idx := IndicesArray(ctx, picks)
		defer idx.Release()
		return Take(ctx, arr, idx)
	}
}
