package columnar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/config"
	"github.com/ajitpratap0/nebula-arrow/pkg/indexer"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func TestSetItem(t *testing.T) {
	tests := []struct {
		name  string
		key   any
		value any
		want  []any
	}{
		{"position", 1, 20, []any{int64(1), int64(20), int64(3), int64(4)}},
		{"negative position to missing", -1, nil, []any{int64(1), int64(2), int64(3), na}},
		{"mask scalar", []bool{true, false, true, false}, 0, []any{int64(0), int64(2), int64(0), int64(4)}},
		{"mask compact values", []bool{true, false, true, false}, []int{7, 8}, []any{int64(7), int64(2), int64(8), int64(4)}},
		{"mask full values", []bool{true, false, true, false}, []int{10, 20, 30, 40}, []any{int64(10), int64(2), int64(30), int64(4)}},
		{"empty mask", []bool{false, false, false, false}, 9, []any{int64(1), int64(2), int64(3), int64(4)}},
		{"positions last wins", []int{3, 0, 3}, []int{5, 6, 7}, []any{int64(6), int64(2), int64(3), int64(7)}},
		{"positions scalar", []int{2, 2}, nil, []any{int64(1), int64(2), na, int64(4)}},
		{"full slice scalar", indexer.Full(), 0, []any{int64(0), int64(0), int64(0), int64(0)}},
		{"full slice values", indexer.Full(), []int{9, 8, 7, 6}, []any{int64(9), int64(8), int64(7), int64(6)}},
		{"partial slice", indexer.Range(1, 3), 5, []any{int64(1), int64(5), int64(5), int64(4)}},
		{"tuple", indexer.Tuple{0}, 100, []any{int64(100), int64(2), int64(3), int64(4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := int64s(t, 1, 2, 3, 4)
			require.NoError(t, arr.SetItem(tt.key, tt.value))
			assert.Equal(t, tt.want, arr.Values())
			assert.Equal(t, "int64[arrow]", arr.DType().String())
		})
	}
}

func TestSetItemLeavesSharedBufferAlone(t *testing.T) {
	arr := int64s(t, 1, 2, 3)
	before := arr.Pos()
	defer before.Release()

	require.NoError(t, arr.SetItem(0, 10))
	assert.Equal(t, []any{int64(10), int64(2), int64(3)}, arr.Values())
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, before.Values())
}

func TestSetItemArrayKeys(t *testing.T) {
	arr := int64s(t, 1, 2, 3)
	cmp, err := arr.Compare(1, Gt)
	require.NoError(t, err)
	require.NoError(t, arr.SetItem(cmp, 0))
	assert.Equal(t, []any{int64(1), int64(0), int64(0)}, arr.Values())

	require.NoError(t, arr.SetItem(int64s(t, 0), -1))
	assert.Equal(t, []any{int64(-1), int64(0), int64(0)}, arr.Values())

	mask := newArray(t, []any{false, nil, true}, nil)
	require.NoError(t, arr.SetItem(mask, 7))
	assert.Equal(t, []any{int64(-1), int64(0), int64(7)}, arr.Values())

	err = arr.SetItem(int64s(t, nil), 1)
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)
}

func TestSetItemErrors(t *testing.T) {
	arr := int64s(t, 1, 2, 3)

	tests := []struct {
		name  string
		key   any
		value any
		want  nebulaerrors.ErrorType
	}{
		{"sequence into position", 0, []int{1, 2}, nebulaerrors.ErrorTypeValidation},
		{"positions length", []int{0, 1}, []int{1}, nebulaerrors.ErrorTypeValidation},
		{"mask length", []bool{true, false, true}, []int{1, 2, 3, 4}, nebulaerrors.ErrorTypeValidation},
		{"full slice length", indexer.Full(), []int{1}, nebulaerrors.ErrorTypeValidation},
		{"bad scalar", 0, "x", nebulaerrors.ErrorTypeConversion},
		{"bad sequence", []int{0, 1}, []any{"x", "y"}, nebulaerrors.ErrorTypeConversion},
		{"out of bounds", 5, 1, nebulaerrors.ErrorTypeIndex},
		{"tuple", indexer.Tuple{0, 1}, 1, nebulaerrors.ErrorTypeIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := arr.SetItem(tt.key, tt.value)
			assertErrorType(t, err, tt.want)
			assert.Equal(t, []any{int64(1), int64(2), int64(3)}, arr.Values())
		})
	}
}

func TestIfElse(t *testing.T) {
	cond := &BooleanArray{Values: []bool{true, false, true}, Mask: []bool{false, false, true}}

	t.Run("array and scalar", func(t *testing.T) {
		got, err := IfElse(cond, int64s(t, 1, 2, 3), 0)
		require.NoError(t, err)
		defer got.Release()
		assert.Equal(t, []any{int64(1), int64(0), na}, got.Values())
	})

	t.Run("scalars", func(t *testing.T) {
		got, err := IfElse(cond, "yes", "no")
		require.NoError(t, err)
		defer got.Release()
		assert.Equal(t, []any{"yes", "no", na}, got.Values())
	})

	t.Run("missing operand", func(t *testing.T) {
		got, err := IfElse(cond, int64s(t, 1, 2, 3), nil)
		require.NoError(t, err)
		defer got.Release()
		assert.Equal(t, []any{int64(1), na, na}, got.Values())
	})

	t.Run("mixed types infer the result", func(t *testing.T) {
		got, err := IfElse(cond, int64s(t, 1, 2, 3), 2.5)
		require.NoError(t, err)
		defer got.Release()
		assert.Equal(t, "float64[arrow]", got.DType().String())
		assert.Equal(t, []any{1.0, 2.5, na}, got.Values())
	})

	t.Run("incompatible types", func(t *testing.T) {
		_, err := IfElse(cond, int64s(t, 1, 2, 3), "x")
		assertErrorType(t, err, nebulaerrors.ErrorTypeConversion)
	})
}

func TestReplaceWithMask(t *testing.T) {
	levels := []struct {
		name      string
		overrides map[string]string
	}{
		{"kernel", nil},
		{"caveat", map[string]string{kernels.ReplaceWithMaskKernel: config.LevelCaveat}},
		{"unsupported", map[string]string{kernels.ReplaceWithMaskKernel: config.LevelUnsupported}},
	}
	mask := []bool{false, true, false, true}

	for _, level := range levels {
		t.Run(level.name, func(t *testing.T) {
			withOverrides(t, level.overrides)
			arr := int64s(t, 1, 2, 3, 4)

			got, err := ReplaceWithMask(arr, mask, []int{20, 40})
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, []any{int64(1), int64(20), int64(3), int64(40)}, got.Values())

			missing, err := ReplaceWithMask(arr, mask, []any{nil, 40})
			require.NoError(t, err)
			defer missing.Release()
			assert.Equal(t, []any{int64(1), na, int64(3), int64(40)}, missing.Values())

			scalarOut, err := ReplaceWithMask(arr, mask, 0)
			require.NoError(t, err)
			defer scalarOut.Release()
			assert.Equal(t, []any{int64(1), int64(0), int64(3), int64(0)}, scalarOut.Values())

			filled, err := arr.Take([]int{-1, 0}, true, 7)
			require.NoError(t, err)
			defer filled.Release()
			assert.Equal(t, []any{int64(7), int64(1)}, filled.Values())

			assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, arr.Values())
		})
	}
}

func TestReplaceWithMaskErrors(t *testing.T) {
	arr := int64s(t, 1, 2, 3)

	_, err := ReplaceWithMask(arr, []bool{true, true, false}, []int{1})
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)

	_, err = ReplaceWithMask(arr, []bool{true}, []int{1})
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)

	_, err = ReplaceWithMask(arr, []bool{true, false, false}, "x")
	assertErrorType(t, err, nebulaerrors.ErrorTypeConversion)
}

func TestFillNA(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		opts   FillOptions
		want   []any
	}{
		{"scalar", []any{1, nil, 3, nil}, FillOptions{Value: 0}, []any{int64(1), int64(0), int64(3), int64(0)}},
		{"sequence", []any{1, nil, 3, nil}, FillOptions{Value: []int{9, 8, 7, 6}}, []any{int64(1), int64(8), int64(3), int64(6)}},
		{"scalar with limit", []any{nil, 1, nil, nil}, FillOptions{Value: 0, Limit: 2}, []any{int64(0), int64(1), int64(0), na}},
		{"ffill", []any{nil, 1, nil, nil, 4}, FillOptions{Method: "ffill"}, []any{na, int64(1), int64(1), int64(1), int64(4)}},
		{"pad", []any{nil, 1, nil, nil, 4}, FillOptions{Method: "pad"}, []any{na, int64(1), int64(1), int64(1), int64(4)}},
		{"bfill", []any{nil, 1, nil, nil, 4}, FillOptions{Method: "bfill"}, []any{int64(1), int64(1), int64(4), int64(4), int64(4)}},
		{"ffill with limit", []any{nil, 1, nil, nil, 4}, FillOptions{Method: "ffill", Limit: 1}, []any{na, int64(1), int64(1), na, int64(4)}},
		{"backfill with limit", []any{nil, 1, nil, nil, 4}, FillOptions{Method: "backfill", Limit: 1}, []any{int64(1), int64(1), na, int64(4), int64(4)}},
		{"nothing missing", []any{1, 2}, FillOptions{Value: 0}, []any{int64(1), int64(2)}},
	}

	paths := []struct {
		name      string
		overrides map[string]string
	}{
		{"kernel", nil},
		{"generic", map[string]string{
			kernels.FillNullForwardKernel:  config.LevelCaveat,
			kernels.FillNullBackwardKernel: config.LevelCaveat,
		}},
	}
	for _, path := range paths {
		t.Run(path.name, func(t *testing.T) {
			withOverrides(t, path.overrides)
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					arr := newArray(t, tt.values, nil)
					got, err := arr.FillNA(tt.opts)
					require.NoError(t, err)
					defer got.Release()
					assert.Equal(t, tt.want, got.Values())
				})
			}
		})
	}
}

func TestFillNAErrors(t *testing.T) {
	arr := int64s(t, 1, nil)

	tests := []struct {
		name string
		opts FillOptions
		want nebulaerrors.ErrorType
	}{
		{"both", FillOptions{Value: 0, Method: "ffill"}, nebulaerrors.ErrorTypeValidation},
		{"neither", FillOptions{}, nebulaerrors.ErrorTypeValidation},
		{"negative limit", FillOptions{Method: "ffill", Limit: -1}, nebulaerrors.ErrorTypeValidation},
		{"unknown method", FillOptions{Method: "nearest"}, nebulaerrors.ErrorTypeValidation},
		{"value length", FillOptions{Value: []int{1, 2, 3}}, nebulaerrors.ErrorTypeValidation},
		{"bad value", FillOptions{Value: "x"}, nebulaerrors.ErrorTypeConversion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := arr.FillNA(tt.opts)
			assertErrorType(t, err, tt.want)
		})
	}
}
