package kernels

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// The selection kernels below share one shape: concatenate the candidate
// arrays, compute an int64 index per output slot (null for a null output)
// and gather with Take.

func concat(ctx context.Context, arrs []arrow.Array) (arrow.Array, error) {
	if len(arrs) == 1 {
		arrs[0].Retain()
		return arrs[0], nil
	}
	return array.Concatenate(arrs, Allocator(ctx))
}

func nullArray(ctx context.Context, n int) arrow.Array {
	b := array.NewNullBuilder(Allocator(ctx))
	defer b.Release()
	b.AppendNulls(n)
	return b.NewArray()
}

func gather(ctx context.Context, parts []arrow.Array, picks []int) (arrow.Array, error) {
	combined, err := concat(ctx, parts)
	if err != nil {
		return nil, err
	}
	defer combined.Release()
	idx := IndicesArray(ctx, picks)
	defer idx.Release()
	return Take(ctx, combined, idx)
}

func requireSameType(kernel string, a, b arrow.DataType) error {
	if !arrow.TypeEqual(a, b) {
		return fmt.Errorf("%w: function '%s' requires matching types, got %s and %s",
			arrow.ErrNotImplemented, kernel, a, b)
	}
	return nil
}

// FillNull replaces nulls with fill, which is cast to the type of arr.
func FillNull(ctx context.Context, arr arrow.Array, fill scalar.Scalar) (out arrow.Array, err error) {
	defer timed(FillNullKernel, &err)()
	if arr.NullN() == 0 || !fill.IsValid() {
		arr.Retain()
		return arr, nil
	}
	fillArr, err := scalarArray(ctx, fill, arr.DataType())
	if err != nil {
		return nil, err
	}
	defer fillArr.Release()

	n := arr.Len()
	picks := make([]int, n)
	for i := range picks {
		picks[i] = i
		if arr.IsNull(i) {
			picks[i] = n
		}
	}
	return gather(ctx, []arrow.Array{arr, fillArr}, picks)
}

// FillNullForward carries the last valid value forward over nulls.
func FillNullForward(ctx context.Context, arr arrow.Array) (out arrow.Array, err error) {
	defer timed(FillNullForwardKernel, &err)()
	return fillDirectional(ctx, arr, true)
}

// FillNullBackward carries the next valid value backward over nulls.
func FillNullBackward(ctx context.Context, arr arrow.Array) (out arrow.Array, err error) {
	defer timed(FillNullBackwardKernel, &err)()
	return fillDirectional(ctx, arr, false)
}

func fillDirectional(ctx context.Context, arr arrow.Array, forward bool) (arrow.Array, error) {
	if arr.NullN() == 0 || arr.NullN() == arr.Len() {
		arr.Retain()
		return arr, nil
	}
	n := arr.Len()
	picks := make([]int, n)
	last := -1
	for k := 0; k < n; k++ {
		i := k
		if !forward {
			i = n - 1 - k
		}
		if arr.IsValid(i) {
			last = i
		}
		picks[i] = last
	}
	return gather(ctx, []arrow.Array{arr}, picks)
}

// IfElse picks left where cond is true and right where it is false. A null
// condition gives a null. Length-one operands broadcast.
func IfElse(ctx context.Context, cond *array.Boolean, left, right arrow.Array) (out arrow.Array, err error) {
	defer timed(IfElseKernel, &err)()
	if err := requireSameType(IfElseKernel, left.DataType(), right.DataType()); err != nil {
		return nil, err
	}
	n := cond.Len()
	for _, side := range []arrow.Array{left, right} {
		if side.Len() != n && side.Len() != 1 {
			return nil, fmt.Errorf("%w: if_else operand has length %d, expected %d",
				arrow.ErrInvalid, side.Len(), n)
		}
	}

	at := func(side arrow.Array, offset, i int) int {
		if side.Len() == 1 {
			return offset
		}
		return offset + i
	}
	picks := make([]int, n)
	for i := range picks {
		switch {
		case cond.IsNull(i):
			picks[i] = -1
		case cond.Value(i):
			picks[i] = at(left, 0, i)
		default:
			picks[i] = at(right, left.Len(), i)
		}
	}
	return gather(ctx, []arrow.Array{left, right}, picks)
}

// ReplaceWithMask replaces the slots of arr where mask is true with
// consecutive values of replacements. A null mask slot gives a null.
func ReplaceWithMask(ctx context.Context, arr arrow.Array, mask *array.Boolean, replacements arrow.Array) (out arrow.Array, err error) {
	defer timed(ReplaceWithMaskKernel, &err)()
	if err := requireSameType(ReplaceWithMaskKernel, arr.DataType(), replacements.DataType()); err != nil {
		return nil, err
	}
	if mask.Len() != arr.Len() {
		return nil, fmt.Errorf("%w: mask has length %d, expected %d", arrow.ErrInvalid, mask.Len(), arr.Len())
	}

	n := arr.Len()
	picks := make([]int, n)
	next := 0
	for i := range picks {
		switch {
		case mask.IsNull(i):
			picks[i] = -1
		case mask.Value(i):
			if next >= replacements.Len() {
				return nil, fmt.Errorf("%w: replacement array must be of appropriate length (expected at least %d items)",
					arrow.ErrInvalid, next+1)
			}
			picks[i] = n + next
			next++
		default:
			picks[i] = i
		}
	}
	return gather(ctx, []arrow.Array{arr, replacements}, picks)
}
