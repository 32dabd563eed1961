package dtype

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want arrow.DataType
		kind Kind
	}{
		{"int64", arrow.PrimitiveTypes.Int64, KindInt},
		{"int64[arrow]", arrow.PrimitiveTypes.Int64, KindInt},
		{"uint8[pyarrow]", arrow.PrimitiveTypes.Uint8, KindUint},
		{"double", arrow.PrimitiveTypes.Float64, KindFloat},
		{"bool", arrow.FixedWidthTypes.Boolean, KindBool},
		{"string", arrow.BinaryTypes.String, KindString},
		{"large_binary", arrow.BinaryTypes.LargeBinary, KindBinary},
		{"decimal128(10, 2)", &arrow.Decimal128Type{Precision: 10, Scale: 2}, KindDecimal},
		{"date32[day]", arrow.FixedWidthTypes.Date32, KindDate},
		{"time64[ns]", arrow.FixedWidthTypes.Time64ns, KindTime},
		{"timestamp[us]", &arrow.TimestampType{Unit: arrow.Microsecond}, KindTimestamp},
		{"timestamp[ns, tz=America/New_York][arrow]", &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "America/New_York"}, KindTimestamp},
		{"duration[ms]", &arrow.DurationType{Unit: arrow.Millisecond}, KindDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.name)
			require.NoError(t, err)
			assert.True(t, arrow.TypeEqual(tt.want, d.Arrow()), "got %s", d.Arrow())
			assert.Equal(t, tt.kind, d.Kind())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, name := range []string{"int128", "decimal128(40, 2)", "time32[us]", "time64[s]"} {
		_, err := Parse(name)
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion), name)
	}
}

func TestDTypeAccessors(t *testing.T) {
	d := MustParse("timestamp[ms, tz=UTC]")
	unit, ok := d.Unit()
	require.True(t, ok)
	assert.Equal(t, arrow.Millisecond, unit)
	assert.Equal(t, "UTC", d.TZ())
	assert.True(t, d.IsTemporal())
	assert.Equal(t, 64, d.BitWidth())
	assert.Equal(t, "timestamp[ms, tz=UTC][arrow]", d.String())
	assert.Equal(t, NA, d.NAValue())

	assert.True(t, MustParse("int32").Equal(New(arrow.PrimitiveTypes.Int32)))
	assert.False(t, MustParse("int32").Equal(MustParse("int64")))
	assert.True(t, MustParse("decimal128(5, 1)").IsNumeric())
	assert.False(t, MustParse("string").IsNumeric())
}

func TestBuildArrayAndValueAt(t *testing.T) {
	mem := memory.NewGoAllocator()
	ts := time.Date(2023, 3, 14, 15, 9, 26, 535000000, time.UTC)
	dec := decimal.RequireFromString("12.34")

	tests := []struct {
		name   string
		dt     arrow.DataType
		values []any
	}{
		{"int8", arrow.PrimitiveTypes.Int8, []any{int64(1), NA, int64(-3)}},
		{"uint32", arrow.PrimitiveTypes.Uint32, []any{uint64(7), uint64(0), NA}},
		{"float64", arrow.PrimitiveTypes.Float64, []any{1.5, NA, -2.25}},
		{"bool", arrow.FixedWidthTypes.Boolean, []any{true, false, NA}},
		{"string", arrow.BinaryTypes.String, []any{"a", NA, "ccc"}},
		{"binary", arrow.BinaryTypes.Binary, []any{[]byte("x"), NA}},
		{"decimal", &arrow.Decimal128Type{Precision: 10, Scale: 2}, []any{dec, NA}},
		{"timestamp", &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}, []any{ts, NA}},
		{"date32", arrow.FixedWidthTypes.Date32, []any{time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), NA}},
		{"time64", arrow.FixedWidthTypes.Time64us, []any{NewTimeOfDay(13, 45, 0, 1000), NA}},
		{"duration", arrow.FixedWidthTypes.Duration_ms, []any{1500 * time.Millisecond, NA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr, err := BuildArray(mem, tt.dt, tt.values)
			require.NoError(t, err)
			defer arr.Release()

			require.Equal(t, len(tt.values), arr.Len())
			for i, want := range tt.values {
				got := ValueAt(arr, i)
				if d, ok := want.(decimal.Decimal); ok {
					assert.True(t, d.Equal(got.(decimal.Decimal)))
					continue
				}
				if tm, ok := want.(time.Time); ok {
					assert.True(t, tm.Equal(got.(time.Time)), "%v != %v", tm, got)
					continue
				}
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestBuildArrayConversionErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	tests := []struct {
		name  string
		dt    arrow.DataType
		value any
	}{
		{"string into int", arrow.PrimitiveTypes.Int64, "1"},
		{"overflow int8", arrow.PrimitiveTypes.Int8, 300},
		{"truncated float", arrow.PrimitiveTypes.Int64, 1.5},
		{"negative uint", arrow.PrimitiveTypes.Uint16, -1},
		{"bool into float", arrow.PrimitiveTypes.Float64, true},
		{"precision", &arrow.Decimal128Type{Precision: 3, Scale: 2}, decimal.RequireFromString("123.4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildArray(mem, tt.dt, []any{tt.value})
			require.Error(t, err)
			assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion))
		})
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   arrow.DataType
	}{
		{"empty", nil, arrow.Null},
		{"all missing", []any{NA, nil}, arrow.Null},
		{"ints", []any{1, int64(2), NA}, arrow.PrimitiveTypes.Int64},
		{"ints and floats", []any{1, 2.5}, arrow.PrimitiveTypes.Float64},
		{"unsigned", []any{uint8(1), uint64(2)}, arrow.PrimitiveTypes.Uint64},
		{"strings", []any{"a", "b"}, arrow.BinaryTypes.String},
		{"durations", []any{time.Second}, arrow.FixedWidthTypes.Duration_ns},
		{"decimals", []any{decimal.RequireFromString("1.5"), decimal.RequireFromString("2.25")}, &arrow.Decimal128Type{Precision: 38, Scale: 2}},
		{"utc times are naive", []any{time.Unix(0, 0).UTC()}, &arrow.TimestampType{Unit: arrow.Nanosecond}},
		{"aware utc times", []any{time.Unix(0, 0).In(awareUTC)}, &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferType(tt.values)
			require.NoError(t, err)
			assert.True(t, arrow.TypeEqual(tt.want, got), "got %s", got)
		})
	}

	_, err := InferType([]any{1, "a"})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion))
}

func TestReinterpret(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewDurationBuilder(mem, &arrow.DurationType{Unit: arrow.Second})
	defer b.Release()
	b.AppendValues([]arrow.Duration{5, 0, 7}, []bool{true, false, true})
	arr := b.NewArray()
	defer arr.Release()

	sliced := array.NewSlice(arr, 1, 3)
	defer sliced.Release()

	ints, err := Reinterpret(sliced, arrow.PrimitiveTypes.Int64)
	require.NoError(t, err)
	defer ints.Release()

	require.Equal(t, 2, ints.Len())
	assert.True(t, ints.IsNull(0))
	assert.Equal(t, int64(7), ints.(*array.Int64).Value(1))

	_, err = Reinterpret(sliced, arrow.PrimitiveTypes.Int32)
	assert.Error(t, err)

	st, err := StorageType(arrow.FixedWidthTypes.Date32)
	require.NoError(t, err)
	assert.Equal(t, arrow.PrimitiveTypes.Int32, st)

	_, err = StorageType(arrow.BinaryTypes.String)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeUnsupported))
}

func TestToSlice(t *testing.T) {
	got, ok := ToSlice([]int{1, 2})
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, got)

	_, ok = ToSlice("abc")
	assert.False(t, ok)
	_, ok = ToSlice(3)
	assert.False(t, ok)
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05:01", NewTimeOfDay(9, 5, 1, 0).String())
	assert.Equal(t, "09:05:01.000000500", NewTimeOfDay(9, 5, 1, 500).String())
}
