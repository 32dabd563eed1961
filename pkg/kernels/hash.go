package kernels

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

type nullKey struct{}

// groupKey is Key with nulls mapped to a dedicated group.
func groupKey(v view, i int) any {
	if v.IsNull(i) {
		return nullKey{}
	}
	return v.Key(i)
}

// ValueCounts counts occurrences of every distinct value, nulls included,
// in order of first appearance.
func ValueCounts(ctx context.Context, arr arrow.Array) (values arrow.Array, counts []int64, err error) {
	defer timed(ValueCountsKernel, &err)()
	v, err := newView(ValueCountsKernel, arr)
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[any]int)
	var reps []int
	for i := 0; i < v.Len(); i++ {
		k := groupKey(v, i)
		g, ok := groups[k]
		if !ok {
			g = len(reps)
			groups[k] = g
			reps = append(reps, i)
			counts = append(counts, 0)
		}
		counts[g]++
	}

	idx := IndicesArray(ctx, reps)
	defer idx.Release()
	values, err = Take(ctx, arr, idx)
	if err != nil {
		return nil, nil, err
	}
	return values, counts, nil
}

// NullEncoding controls how DictionaryEncode treats nulls.
type NullEncoding int

const (
	// NullMask leaves null slots as null codes.
	NullMask NullEncoding = iota
	// NullEncode gives nulls a code and a null dictionary entry.
	NullEncode
)

// DictionaryEncode returns int32 codes into a dictionary of distinct
// values ordered by first appearance.
func DictionaryEncode(ctx context.Context, arr arrow.Array, nulls NullEncoding) (codes *array.Int32, dict arrow.Array, err error) {
	defer timed(DictionaryEncodeKernel, &err)()
	v, err := newView(DictionaryEncodeKernel, arr)
	if err != nil {
		return nil, nil, err
	}

	b := array.NewInt32Builder(Allocator(ctx))
	defer b.Release()
	b.Reserve(v.Len())

	groups := make(map[any]int32)
	var reps []int
	for i := 0; i < v.Len(); i++ {
		if v.IsNull(i) && nulls == NullMask {
			b.AppendNull()
			continue
		}
		k := groupKey(v, i)
		code, ok := groups[k]
		if !ok {
			code = int32(len(reps))
			groups[k] = code
			reps = append(reps, i)
		}
		b.Append(code)
	}

	idx := IndicesArray(ctx, reps)
	defer idx.Release()
	dict, err = Take(ctx, arr, idx)
	if err != nil {
		return nil, nil, err
	}
	return b.NewInt32Array(), dict, nil
}

// Index returns the position of the first slot equal to value, or -1.
// A null value is never found.
func Index(ctx context.Context, arr arrow.Array, value scalar.Scalar) (out int64, err error) {
	defer timed(IndexKernel, &err)()
	if !value.IsValid() {
		return -1, nil
	}
	needle, err := scalarArray(ctx, value, arr.DataType())
	if err != nil {
		return -1, err
	}
	defer needle.Release()

	v, err := newView(IndexKernel, arr)
	if err != nil {
		return -1, err
	}
	nv, _ := newView(IndexKernel, needle)
	want := nv.Key(0)
	for i := 0; i < v.Len(); i++ {
		if !v.IsNull(i) && v.Key(i) == want {
			return int64(i), nil
		}
	}
	return -1, nil
}

// IsIn reports, per slot, whether the value occurs in valueSet. Unless
// skipNulls is set, a null slot matches a null in valueSet. The result has
// no nulls.
func IsIn(ctx context.Context, arr, valueSet arrow.Array, skipNulls bool) (out arrow.Array, err error) {
	defer timed(IsInKernel, &err)()
	set, err := Cast(ctx, valueSet, arr.DataType(), true)
	if err != nil {
		return nil, err
	}
	defer set.Release()

	v, err := newView(IsInKernel, arr)
	if err != nil {
		return nil, err
	}
	sv, err := newView(IsInKernel, set)
	if err != nil {
		return nil, err
	}
	members := make(map[any]struct{}, sv.Len())
	for i := 0; i < sv.Len(); i++ {
		members[groupKey(sv, i)] = struct{}{}
	}

	b := array.NewBooleanBuilder(Allocator(ctx))
	defer b.Release()
	b.Reserve(v.Len())
	for i := 0; i < v.Len(); i++ {
		if v.IsNull(i) && skipNulls {
			b.Append(false)
			continue
		}
		_, ok := members[groupKey(v, i)]
		b.Append(ok)
	}
	return b.NewArray(), nil
}

// scalarArray broadcasts sc to a length-one array of type dt.
func scalarArray(ctx context.Context, sc scalar.Scalar, dt arrow.DataType) (arrow.Array, error) {
	if !arrow.TypeEqual(sc.DataType(), dt) {
		cast, err := sc.CastTo(dt)
		if err != nil {
			return nil, err
		}
		sc = cast
	}
	return scalar.MakeArrayFromScalar(sc, 1, Allocator(ctx))
}
