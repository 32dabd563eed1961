package kernels

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// NullPlacement decides where nulls and NaNs land in a sort order.
type NullPlacement int

const (
	AtEnd NullPlacement = iota
	AtStart
)

// SortOptions configures SortIndices and Rank.
type SortOptions struct {
	Descending    bool
	NullPlacement NullPlacement
}

// Tiebreaker assigns ranks to equal values.
type Tiebreaker int

const (
	// TiebreakMin gives every tie the lowest rank of the group.
	TiebreakMin Tiebreaker = iota
	// TiebreakMax gives every tie the highest rank of the group.
	TiebreakMax
	// TiebreakFirst ranks ties in order of appearance.
	TiebreakFirst
	// TiebreakDense is like min but ranks of distinct values are consecutive.
	TiebreakDense
)

// RankOptions configures Rank.
type RankOptions struct {
	SortOptions
	Tiebreaker Tiebreaker
}

// SortIndices returns the stable permutation that sorts arr. Valid values
// come first in the requested direction, then NaNs, then nulls; AtStart
// reverses the block order to nulls, NaNs, values.
func SortIndices(ctx context.Context, arr arrow.Array, opts SortOptions) (out []int, err error) {
	defer timed(SortIndicesKernel, &err)()
	v, err := newView(SortIndicesKernel, arr)
	if err != nil {
		return nil, err
	}
	return sortIndices(v, opts), nil
}

func sortIndices(v view, opts SortOptions) []int {
	n := v.Len()
	values := make([]int, 0, n)
	var nans, nulls []int
	for i := 0; i < n; i++ {
		switch {
		case v.IsNull(i):
			nulls = append(nulls, i)
		case v.IsNaN(i):
			nans = append(nans, i)
		default:
			values = append(values, i)
		}
	}

	sort.SliceStable(values, func(a, b int) bool {
		c := v.Compare(values[a], values[b])
		if opts.Descending {
			return c > 0
		}
		return c < 0
	})

	out := make([]int, 0, n)
	if opts.NullPlacement == AtStart {
		out = append(out, nulls...)
		out = append(out, nans...)
		return append(out, values...)
	}
	out = append(out, values...)
	out = append(out, nans...)
	return append(out, nulls...)
}

// Rank returns the 1-based rank of every slot. Nulls take part in the
// ranking and are placed by NullPlacement; all nulls tie with each other.
func Rank(ctx context.Context, arr arrow.Array, opts RankOptions) (out []uint64, err error) {
	defer timed(RankKernel, &err)()
	v, err := newView(RankKernel, arr)
	if err != nil {
		return nil, err
	}

	order := sortIndices(v, opts.SortOptions)
	ranks := make([]uint64, len(order))
	var dense uint64
	for start := 0; start < len(order); {
		end := start
		for end+1 < len(order) && equalSlots(v, order[start], order[end+1]) {
			end++
		}
		dense++
		for k := start; k <= end; k++ {
			var r uint64
			switch opts.Tiebreaker {
			case TiebreakMin:
				r = uint64(start + 1)
			case TiebreakMax:
				r = uint64(end + 1)
			case TiebreakFirst:
				r = uint64(k + 1)
			case TiebreakDense:
				r = dense
			}
			ranks[order[k]] = r
		}
		start = end + 1
	}
	return ranks, nil
}

// IndicesArray builds an int64 index array usable with Take. Negative
// entries become null indices.
func IndicesArray(ctx context.Context, idx []int) arrow.Array {
	b := array.NewInt64Builder(Allocator(ctx))
	defer b.Release()
	b.Reserve(len(idx))
	for _, i := range idx {
		if i < 0 {
			b.AppendNull()
			continue
		}
		b.Append(int64(i))
	}
	return b.NewArray()
}
