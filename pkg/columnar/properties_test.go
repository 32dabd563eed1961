package columnar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func TestRoundTripThroughValues(t *testing.T) {
	for _, arr := range []*Array{
		int64s(t, 1, nil, 3),
		float64s(t, 1.5, nil),
		newArray(t, []any{"a", nil, "c"}, nil),
		newArray(t, []any{true, nil}, nil),
	} {
		back, err := FromSequence(arr.Values(), arr.DType().Arrow(), false)
		require.NoError(t, err)
		assert.True(t, back.Equals(arr), "%s", arr)
		back.Release()
	}
}

func TestMaskSelectsTrueElements(t *testing.T) {
	arr := int64s(t, 10, nil, 30, 40)
	mask := []bool{true, true, false, true}

	got, err := arr.GetItem(mask)
	require.NoError(t, err)
	sel := got.(*Array)
	defer sel.Release()
	require.Equal(t, 3, sel.Len())
	assert.Equal(t, []any{int64(10), na, int64(40)}, sel.Values())
}

func TestEmptyMaskSelectsNothing(t *testing.T) {
	arr := int64s(t, 1, 2, 3)
	got, err := arr.GetItem([]bool{})
	require.NoError(t, err)
	sel := got.(*Array)
	defer sel.Release()
	assert.Equal(t, 0, sel.Len())
	assert.True(t, arr.DType().Equal(sel.DType()))
}

func TestTakeEmptyAndOutOfRange(t *testing.T) {
	arr := int64s(t, 1, 2)

	empty, err := arr.Take([]int{}, false, nil)
	require.NoError(t, err)
	defer empty.Release()
	assert.Equal(t, 0, empty.Len())

	_, err = arr.Take([]int{2}, false, nil)
	assertErrorType(t, err, nebulaerrors.ErrorTypeIndex)
	_, err = arr.Take([]int{5}, true, nil)
	assertErrorType(t, err, nebulaerrors.ErrorTypeIndex)
	_, err = arr.Take([]int{-5}, true, nil)
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)
}

func TestFillNAKeepsPresentValues(t *testing.T) {
	arr := int64s(t, nil, 2, nil, 4)
	got, err := arr.FillNA(FillOptions{Value: 0})
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, 0, got.NullCount())
	for i, v := range arr.Values() {
		if v != na {
			assert.Equal(t, v, got.Values()[i])
		}
	}
}

func TestFactorizeReconstructs(t *testing.T) {
	arr := newArray(t, []any{"x", nil, "y", "x", nil}, nil)
	codes, uniques, err := arr.Factorize(true)
	require.NoError(t, err)
	defer uniques.Release()

	back, err := uniques.Take(codes, true, nil)
	require.NoError(t, err)
	defer back.Release()
	assert.True(t, back.Equals(arr))
}

func TestIntegerDivision(t *testing.T) {
	left, right := int64s(t, 4, 5), int64s(t, 2, 1)

	quo, err := left.Arith(right, Truediv)
	require.NoError(t, err)
	defer quo.Release()
	assert.Equal(t, []any{2.0, 5.0}, quo.Values())

	floor, err := left.Arith(right, Floordiv)
	require.NoError(t, err)
	defer floor.Release()
	assert.Equal(t, []any{int64(2), int64(5)}, floor.Values())
}

func TestAverageRankSplitsTies(t *testing.T) {
	got, err := int64s(t, 10, 20, 20, 30).Rank(DefaultRankOptions())
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, []any{1.0, 2.5, 2.5, 4.0}, got.Values())
}

func TestValueCountsDropsMissing(t *testing.T) {
	s, err := int64s(t, 1, 1, nil, 2).ValueCounts(true)
	require.NoError(t, err)
	counts := map[any]any{}
	for _, it := range s.Items() {
		counts[it.Label] = it.Value
	}
	assert.Equal(t, map[any]any{int64(1): int64(2), int64(2): int64(1)}, counts)
}

func TestModeKeepsAllTies(t *testing.T) {
	got, err := int64s(t, 1, 1, 2, 2, 3).Mode(true)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, []any{int64(1), int64(2)}, got.Values())
}

func TestSetItemMaskScalar(t *testing.T) {
	arr := int64s(t, 1, 2, 3)
	require.NoError(t, arr.SetItem([]bool{true, false, true}, 9))
	assert.Equal(t, []any{int64(9), int64(2), int64(9)}, arr.Values())
}
