package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/indexer"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// GetItem indexes the array. A single position yields a native value or
// dtype.NA; every other key kind yields a new *Array, even when it selects
// zero or one element. Keys are those accepted by package indexer plus
// *Array and *BooleanArray of boolean or integer type.
func (a *Array) GetItem(key any) (any, error) {
	key, err := indexer.Unwrap(key)
	if err != nil {
		return nil, err
	}
	switch k := key.(type) {
	case *Array:
		return a.getByArray(k)
	case *BooleanArray:
		return a.filter(k.Filled(false))
	}

	nk, err := indexer.Normalize(key, a.Len())
	if err != nil {
		return nil, err
	}
	switch nk.Kind {
	case indexer.KindPosition:
		return a.At(nk.Position)
	case indexer.KindSlice:
		if nk.Step == 1 {
			stop := max(nk.Start, nk.Stop)
			return &Array{data: array.NewChunkedSlice(a.data, int64(nk.Start), int64(stop)), mem: a.mem}, nil
		}
		return a.takePositions(nk.ToPositions())
	case indexer.KindMask:
		return a.filter(nk.Mask)
	}
	if len(nk.Positions) == 0 {
		return a.emptyLike(), nil
	}
	return a.takePositions(nk.Positions)
}

func (a *Array) getByArray(key *Array) (any, error) {
	if key.Len() == 0 {
		return a.emptyLike(), nil
	}
	dt := key.DType()
	switch {
	case dt.Kind() == dtype.KindBool:
		mask := make([]bool, 0, key.Len())
		for _, v := range key.Values() {
			b, _ := v.(bool)
			mask = append(mask, b)
		}
		if err := indexer.CheckMask(mask, a.Len()); err != nil {
			return nil, err
		}
		return a.filter(mask)
	case dt.IsInteger():
		if key.HasNA() {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeValidation,
				"Cannot index with an integer indexer containing NA values")
		}
		positions := make([]int, 0, key.Len())
		for _, v := range key.Values() {
			p, _ := indexer.Integer(v)
			positions = append(positions, p)
		}
		checked, err := indexer.CheckPositions(positions, a.Len())
		if err != nil {
			return nil, err
		}
		return a.takePositions(checked)
	}
	return nil, nebulaerrors.New(nebulaerrors.ErrorTypeIndex, "arrays used as indices must be of integer or boolean type").
		WithDetail(nebulaerrors.DetailDType, dt.String())
}

// emptyLike is a zero-length array of the same type.
func (a *Array) emptyLike() *Array {
	return a.wrap(array.MakeArrayOfNull(a.mem, a.data.DataType(), 0))
}

func (a *Array) filter(mask []bool) (*Array, error) {
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	m := boolArray(a, mask)
	defer m.Release()
	out, err := kernels.Filter(a.ctx(), arr, m)
	if err != nil {
		return nil, translate(err, "filter", a.DType())
	}
	return a.wrap(out), nil
}

// takePositions gathers in-range positions; negative entries give nulls.
func (a *Array) takePositions(positions []int) (*Array, error) {
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	idx := kernels.IndicesArray(a.ctx(), positions)
	defer idx.Release()
	out, err := kernels.Take(a.ctx(), arr, idx)
	if err != nil {
		return nil, translate(err, "take", a.DType())
	}
	return a.wrap(out), nil
}

// Take gathers elements at indices. With allowFill, -1 marks a position
// filled with fillValue (missing when fillValue is nil or dtype.NA) and
// other negative values are invalid; without it negative indices count
// from the end.
func (a *Array) Take(indices []int, allowFill bool, fillValue any) (*Array, error) {
	n := a.Len()
	if len(indices) == 0 {
		return a.emptyLike(), nil
	}
	if n == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeIndex, "cannot do a non-empty take from an empty axes.")
	}
	if !allowFill {
		positions, err := indexer.CheckPositions(indices, n)
		if err != nil {
			return nil, err
		}
		return a.takePositions(positions)
	}

	fills := 0
	for _, i := range indices {
		switch {
		case i < -1:
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
				"Invalid value in 'indices'. Must be between -1 and the length of the array, got %d", i)
		case i >= n:
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeIndex,
				"index %d is out of bounds for axis 0 with size %d", i, n)
		case i == -1:
			fills++
		}
	}
	taken, err := a.takePositions(indices)
	if err != nil || fills == 0 || fillValue == nil || dtype.IsNA(fillValue) {
		return taken, err
	}
	defer taken.Release()

	sc, err := dtype.ScalarFromNative(a.mem, a.data.DataType(), fillValue)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(indices))
	for j, i := range indices {
		mask[j] = i == -1
	}
	return taken.replaceScalar(mask, sc, fills)
}

// replaceScalar writes sc at the count positions where mask is true.
func (a *Array) replaceScalar(mask []bool, sc scalar.Scalar, count int) (*Array, error) {
	repl, err := scalar.MakeArrayFromScalar(sc, count, a.mem)
	if err != nil {
		return nil, translate(err, "take", a.DType())
	}
	defer repl.Release()
	return replaceWithMask(a, mask, repl)
}

func boolArray(a *Array, values []bool) arrow.Array {
	b := array.NewBooleanBuilder(a.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}
