package columnar

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func TestOperatorNames(t *testing.T) {
	assert.Equal(t, "eq", Eq.String())
	assert.Equal(t, "ge", Ge.String())
	assert.Equal(t, "rxor", Rxor.String())
	assert.Equal(t, "floordiv", Floordiv.String())
	assert.Equal(t, "rdivmod", Rdivmod.String())
	assert.Equal(t, "ArithOp(99)", ArithOp(99).String())
}

func TestCompare(t *testing.T) {
	arr := int64s(t, 1, nil, 3)

	t.Run("scalar with missing", func(t *testing.T) {
		got, err := arr.Compare(2, Lt)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, false}, got.Values)
		assert.Equal(t, []bool{false, true, false}, got.Mask)
		assert.Equal(t, true, got.At(0))
		assert.Equal(t, na, got.At(1))
		assert.Equal(t, []bool{true, true, false}, got.Filled(true))
	})

	t.Run("array", func(t *testing.T) {
		got, err := int64s(t, 1, 2, 3).Compare(int64s(t, 3, 2, 1), Ge)
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true, true}, got.Values)
		assert.Nil(t, got.Mask)
	})

	t.Run("missing scalar", func(t *testing.T) {
		got, err := arr.Compare(nil, Eq)
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true, true}, got.Mask)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := arr.Compare([]int64{1, 2}, Eq)
		assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)
	})

	t.Run("strings", func(t *testing.T) {
		s := newArray(t, []any{"a", "c", nil}, nil)
		got, err := s.Compare("b", Gt)
		require.NoError(t, err)
		assert.Equal(t, []any{false, true, na}, []any{got.At(0), got.At(1), got.At(2)})
	})
}

func TestCompareIncompatibleScalar(t *testing.T) {
	arr := int64s(t, 1, nil, 3)

	eq, err := arr.Compare("a", Eq)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, eq.Values)
	assert.Equal(t, []bool{false, true, false}, eq.Mask)

	ne, err := arr.Compare("a", Ne)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, ne.Values)

	_, err = arr.Compare("a", Lt)
	assertErrorType(t, err, nebulaerrors.ErrorTypeConversion)
}

func TestLogicalKleene(t *testing.T) {
	arr := newArray(t, []any{true, false, nil}, nil)

	tests := []struct {
		name  string
		other any
		op    LogicalOp
		want  []any
	}{
		{"and true", true, And, []any{true, false, na}},
		{"and false", false, And, []any{false, false, false}},
		{"or true", true, Or, []any{true, true, true}},
		{"or false", false, Ror, []any{true, false, na}},
		{"xor true", true, Xor, []any{false, true, na}},
		{"array", []bool{false, false, true}, Or, []any{true, false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := arr.Logical(tt.other, tt.op)
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, tt.want, got.Values())
		})
	}
}

func TestArith(t *testing.T) {
	tests := []struct {
		name  string
		arr   *Array
		other any
		op    ArithOp
		want  []any
		dtype string
	}{
		{"add", int64s(t, 1, nil, 3), 1, Add, []any{int64(2), na, int64(4)}, "int64[arrow]"},
		{"reflected sub", int64s(t, 1, 2), 10, Rsub, []any{int64(9), int64(8)}, "int64[arrow]"},
		{"mul array", int64s(t, 2, 3), []int64{4, 5}, Mul, []any{int64(8), int64(15)}, "int64[arrow]"},
		{"int truediv", int64s(t, 1, 2, 3), 2, Truediv, []any{0.5, 1.0, 1.5}, "float64[arrow]"},
		{"int floordiv", int64s(t, 7, -7), 2, Floordiv, []any{int64(3), int64(-4)}, "int64[arrow]"},
		{"float floordiv", float64s(t, 7.5, -7.5), 2.0, Floordiv, []any{3.0, -4.0}, "float64[arrow]"},
		{"reflected floordiv", int64s(t, 2, 4), 9, Rfloordiv, []any{int64(4), int64(2)}, "int64[arrow]"},
		{"pow", float64s(t, 2.0, 3.0), 2.0, Pow, []any{4.0, 9.0}, "float64[arrow]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.arr.Arith(tt.other, tt.op)
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, tt.want, got.Values())
			assert.Equal(t, tt.dtype, got.DType().String())
		})
	}
}

func TestArithErrors(t *testing.T) {
	arr := int64s(t, 1, 2)

	for _, op := range []ArithOp{Mod, Rmod, Divmod, Rdivmod} {
		_, err := arr.Arith(2, op)
		assertErrorType(t, err, nebulaerrors.ErrorTypeUnsupported)
	}

	_, err := arr.Arith([]int64{1, 2, 3}, Add)
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)

	_, err = int64s(t, math.MaxInt64).Arith(1, Add)
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)

	_, err = newArray(t, []any{"a"}, nil).Arith(1, Sub)
	require.Error(t, err)
}

func TestUnary(t *testing.T) {
	arr := int64s(t, -1, nil, 2)

	neg, err := arr.Negate()
	require.NoError(t, err)
	defer neg.Release()
	assert.Equal(t, []any{int64(1), na, int64(-2)}, neg.Values())

	abs, err := arr.Abs()
	require.NoError(t, err)
	defer abs.Release()
	assert.Equal(t, []any{int64(1), na, int64(2)}, abs.Values())

	inv, err := int64s(t, 0).Invert()
	require.NoError(t, err)
	defer inv.Release()
	assert.Equal(t, []any{int64(-1)}, inv.Values())

	not, err := newArray(t, []any{true, nil}, nil).Invert()
	require.NoError(t, err)
	defer not.Release()
	assert.Equal(t, []any{false, na}, not.Values())

	pos := arr.Pos()
	defer pos.Release()
	assert.True(t, pos.Equals(arr))

	_, err = int64s(t, math.MinInt64).Negate()
	assertErrorType(t, err, nebulaerrors.ErrorTypeValidation)
}

func TestRound(t *testing.T) {
	got, err := float64s(t, 0.5, 1.5, 2.5, nil).Round(0)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, []any{0.0, 2.0, 2.0, na}, got.Values())

	ints := int64s(t, 15, 25)
	same, err := ints.Round(0)
	require.NoError(t, err)
	defer same.Release()
	assert.True(t, same.Equals(ints))
	assert.Equal(t, arrow.PrimitiveTypes.Int64, same.DType().Arrow())
}
