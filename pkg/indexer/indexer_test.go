package indexer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func intp(i int) *int { return &i }

func TestNormalizeScalars(t *testing.T) {
	k, err := Normalize(-1, 5)
	require.NoError(t, err)
	assert.Equal(t, KindPosition, k.Kind)
	assert.Equal(t, 4, k.Position)

	k, err = Normalize(Tuple{int32(2)}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, k.Position)

	_, err = Normalize(5, 5)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex))
	assert.Contains(t, err.Error(), "index 5 is out of bounds for axis 0 with size 5")

	for _, bad := range []any{1.5, "a", nil, Tuple{1, 2}} {
		_, err = Normalize(bad, 5)
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex), "%v", bad)
	}
}

func TestSlices(t *testing.T) {
	tests := []struct {
		name string
		key  any
		want []int
	}{
		{"full", Full(), []int{0, 1, 2, 3, 4}},
		{"ellipsis", Ellipsis, []int{0, 1, 2, 3, 4}},
		{"range", Range(1, 3), []int{1, 2}},
		{"negative bounds", Slice{Start: intp(-2)}, []int{3, 4}},
		{"clamped", Range(-10, 10), []int{0, 1, 2, 3, 4}},
		{"reverse", Stepped(-1), []int{4, 3, 2, 1, 0}},
		{"reverse by two", Stepped(-2), []int{4, 2, 0}},
		{"every other", Slice{Start: intp(1), Step: intp(2)}, []int{1, 3}},
		{"empty", Range(3, 1), []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Normalize(tt.key, 5)
			require.NoError(t, err)
			assert.Equal(t, KindSlice, k.Kind)
			assert.Equal(t, tt.want, k.ToPositions())
			assert.Equal(t, len(tt.want), k.Len())
		})
	}

	k, err := Normalize(Full(), 5)
	require.NoError(t, err)
	assert.True(t, k.IsFull(5))

	_, err = Normalize(Stepped(0), 5)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeValidation))
}

func TestArrays(t *testing.T) {
	k, err := Normalize([]bool{true, false, true}, 3)
	require.NoError(t, err)
	assert.Equal(t, KindMask, k.Kind)
	assert.Equal(t, []int{0, 2}, k.ToPositions())
	assert.Equal(t, 2, k.Len())

	_, err = Normalize([]bool{true}, 3)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex))

	k, err = Normalize([]bool{}, 3)
	require.NoError(t, err)
	assert.Equal(t, KindPositions, k.Kind)
	assert.Empty(t, k.ToPositions())

	k, err = Normalize([]int64{0, -1}, 3)
	require.NoError(t, err)
	assert.Equal(t, KindPositions, k.Kind)
	assert.Equal(t, []int{0, 2}, k.Positions)

	k, err = Normalize([]any{true, true, false}, 3)
	require.NoError(t, err)
	assert.Equal(t, KindMask, k.Kind)

	k, err = Normalize([]any{}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, k.Len())

	_, err = Normalize([]int{3}, 3)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex))

	_, err = Normalize([]float64{1}, 3)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex))

	_, err = Normalize([]uint64{math.MaxUint64}, 3)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex))
}

func TestHugeUnsignedPositions(t *testing.T) {
	for _, key := range []any{uint64(math.MaxUint64), uint64(math.MaxInt64) + 1, uint(math.MaxUint)} {
		i, ok := Integer(key)
		require.True(t, ok)
		assert.Equal(t, math.MaxInt, i)

		_, err := Normalize(key, 3)
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeIndex), "%v", key)
	}
}
