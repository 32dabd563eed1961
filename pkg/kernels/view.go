package kernels

import (
	"cmp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// nanKey is the hash key shared by every NaN so NaNs group together.
type nanKey struct{}

// view gives the vector kernels uniform, allocation-free access to the
// values of one typed array.
type view interface {
	Len() int
	IsNull(i int) bool
	IsNaN(i int) bool
	// Compare orders two valid, non-NaN slots.
	Compare(i, j int) int
	// Key returns a comparable value identifying slot i.
	Key(i int) any
	// Float converts slot i to float64; ok is false for non-numeric views.
	Float(i int) (float64, bool)
}

type orderedView[T cmp.Ordered] struct {
	arr     arrow.Array
	value   func(int) T
	float   bool
	numeric bool
}

func (v orderedView[T]) Len() int          { return v.arr.Len() }
func (v orderedView[T]) IsNull(i int) bool { return v.arr.IsNull(i) }

func (v orderedView[T]) IsNaN(i int) bool {
	if !v.float {
		return false
	}
	x := v.value(i)
	return x != x
}

func (v orderedView[T]) Compare(i, j int) int { return cmp.Compare(v.value(i), v.value(j)) }

func (v orderedView[T]) Key(i int) any {
	if v.IsNaN(i) {
		return nanKey{}
	}
	return v.value(i)
}

func (v orderedView[T]) Float(i int) (float64, bool) {
	if !v.numeric {
		return 0, false
	}
	switch x := any(v.value(i)).(type) {
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func newOrdered[T cmp.Ordered](arr arrow.Array, value func(int) T, numeric bool) view {
	var zero T
	_, isFloat := any(zero).(float64)
	if !isFloat {
		_, isFloat = any(zero).(float32)
	}
	return orderedView[T]{arr: arr, value: value, float: isFloat, numeric: numeric}
}

type decimalView struct {
	arr   *array.Decimal128
	scale int32
}

func (v decimalView) Len() int             { return v.arr.Len() }
func (v decimalView) IsNull(i int) bool    { return v.arr.IsNull(i) }
func (v decimalView) IsNaN(int) bool       { return false }
func (v decimalView) Compare(i, j int) int { return v.arr.Value(i).Cmp(v.arr.Value(j)) }
func (v decimalView) Key(i int) any        { return v.arr.Value(i) }
func (v decimalView) Float(i int) (float64, bool) {
	return v.arr.Value(i).ToFloat64(v.scale), true
}

type nullView struct{ n int }

func (v nullView) Len() int                  { return v.n }
func (v nullView) IsNull(int) bool           { return true }
func (v nullView) IsNaN(int) bool            { return false }
func (v nullView) Compare(int, int) int      { return 0 }
func (v nullView) Key(int) any               { return nil }
func (v nullView) Float(int) (float64, bool) { return 0, false }

func boolToInt(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// newView wraps arr. Types with no ordering (struct, list, union) are not
// supported and report arrow.ErrNotImplemented through kernel.
func newView(kernel string, arr arrow.Array) (view, error) {
	switch a := arr.(type) {
	case *array.Null:
		return nullView{n: a.Len()}, nil
	case *array.Boolean:
		return newOrdered(arr, func(i int) uint8 { return boolToInt(a.Value(i)) }, false), nil
	case *array.Int8:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, true), nil
	case *array.Int16:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, true), nil
	case *array.Int32:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, true), nil
	case *array.Int64:
		return newOrdered(arr, a.Value, true), nil
	case *array.Uint8:
		return newOrdered(arr, func(i int) uint64 { return uint64(a.Value(i)) }, true), nil
	case *array.Uint16:
		return newOrdered(arr, func(i int) uint64 { return uint64(a.Value(i)) }, true), nil
	case *array.Uint32:
		return newOrdered(arr, func(i int) uint64 { return uint64(a.Value(i)) }, true), nil
	case *array.Uint64:
		return newOrdered(arr, a.Value, true), nil
	case *array.Float16:
		return newOrdered(arr, func(i int) float32 { return a.Value(i).Float32() }, true), nil
	case *array.Float32:
		return newOrdered(arr, a.Value, true), nil
	case *array.Float64:
		return newOrdered(arr, a.Value, true), nil
	case *array.String:
		return newOrdered(arr, a.Value, false), nil
	case *array.LargeString:
		return newOrdered(arr, a.Value, false), nil
	case *array.Binary:
		return newOrdered(arr, a.ValueString, false), nil
	case *array.LargeBinary:
		return newOrdered(arr, a.ValueString, false), nil
	case *array.FixedSizeBinary:
		return newOrdered(arr, func(i int) string { return string(a.Value(i)) }, false), nil
	case *array.Decimal128:
		return decimalView{arr: a, scale: a.DataType().(*arrow.Decimal128Type).Scale}, nil
	case *array.Date32:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, false), nil
	case *array.Date64:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, false), nil
	case *array.Time32:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, false), nil
	case *array.Time64:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, false), nil
	case *array.Timestamp:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, false), nil
	case *array.Duration:
		return newOrdered(arr, func(i int) int64 { return int64(a.Value(i)) }, false), nil
	}
	return nil, notImplemented(kernel, arr.DataType())
}

// isValue reports a slot that is neither null nor NaN.
func isValue(v view, i int) bool {
	return !v.IsNull(i) && !v.IsNaN(i)
}

// equalSlots treats nulls as equal to each other, and NaNs likewise.
func equalSlots(v view, i, j int) bool {
	ni, nj := v.IsNull(i), v.IsNull(j)
	if ni || nj {
		return ni && nj
	}
	ai, aj := v.IsNaN(i), v.IsNaN(j)
	if ai || aj {
		return ai && aj
	}
	return v.Compare(i, j) == 0
}
