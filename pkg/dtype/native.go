package dtype

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// ValueAt returns element i of arr as a native Go value, or NA when the
// slot is null.
func ValueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return NA
	}
	switch a := arr.(type) {
	case *array.Null:
		return NA
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return uint64(a.Value(i))
	case *array.Uint16:
		return uint64(a.Value(i))
	case *array.Uint32:
		return uint64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float16:
		return float64(a.Value(i).Float32())
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return cloneBytes(a.Value(i))
	case *array.LargeBinary:
		return cloneBytes(a.Value(i))
	case *array.FixedSizeBinary:
		return cloneBytes(a.Value(i))
	case *array.Decimal128:
		return DecimalFromNum(a.Value(i), a.DataType().(*arrow.Decimal128Type).Scale)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Time32:
		unit := a.DataType().(*arrow.Time32Type).Unit
		return TimeOfDay(time.Duration(a.Value(i)) * unit.Multiplier())
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return TimeOfDay(time.Duration(a.Value(i)) * unit.Multiplier())
	case *array.Timestamp:
		tt := a.DataType().(*arrow.TimestampType)
		toTime, err := tt.GetToTimeFunc()
		if err != nil {
			return a.Value(i).ToTime(tt.Unit)
		}
		t := toTime(a.Value(i))
		if tt.TimeZone != "" && t.Location() == time.UTC {
			t = t.In(awareUTC)
		}
		return t
	case *array.Duration:
		unit := a.DataType().(*arrow.DurationType).Unit
		return time.Duration(a.Value(i)) * unit.Multiplier()
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		out := make(map[string]any, a.NumField())
		for f := 0; f < a.NumField(); f++ {
			out[st.Field(f).Name] = ValueAt(a.Field(f), i)
		}
		return out
	}
	return arr.GetOneForMarshal(i)
}

// Values materializes the whole array as native values.
func Values(arr arrow.Array) []any {
	out := make([]any, arr.Len())
	for i := range out {
		out[i] = ValueAt(arr, i)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// DecimalFromNum converts an arrow decimal with the given scale to a
// shopspring decimal.
func DecimalFromNum(n decimal128.Num, scale int32) decimal.Decimal {
	return decimal.NewFromBigInt(n.BigInt(), -scale)
}

// NumFromDecimal converts d to an arrow decimal of the given precision and
// scale, rounding half away from zero when d carries more digits.
func NumFromDecimal(d decimal.Decimal, precision, scale int32) (decimal128.Num, error) {
	shifted := d.Shift(scale).Round(0)
	n := decimal128.FromBigInt(shifted.BigInt())
	if !n.FitsInPrecision(precision) {
		return decimal128.Num{}, fmt.Errorf("%s does not fit in decimal128(%d, %d)", d.String(), precision, scale)
	}
	return n, nil
}

// ToSlice turns a native collection (any slice or array) into []any.
// It reports false when v is not a collection.
func ToSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// BuildArray builds an arrow array of type dt from native values. NA and
// nil become nulls. A value that cannot be represented in dt yields an
// ErrorTypeConversion error naming the value and the type.
func BuildArray(mem memory.Allocator, dt arrow.DataType, values []any) (arrow.Array, error) {
	b := array.NewBuilder(mem, dt)
	defer b.Release()
	b.Reserve(len(values))

	for _, v := range values {
		if IsNA(v) {
			b.AppendNull()
			continue
		}
		if err := appendNative(b, v); err != nil {
			return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion,
				"Could not convert %v with type %T: tried to convert to %s", v, v, dt)
		}
	}
	return b.NewArray(), nil
}

// ScalarFromNative converts one native value into an arrow scalar of type dt.
func ScalarFromNative(mem memory.Allocator, dt arrow.DataType, v any) (scalar.Scalar, error) {
	if IsNA(v) {
		return scalar.MakeNullScalar(dt), nil
	}
	arr, err := BuildArray(mem, dt, []any{v})
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	return scalar.GetScalar(arr, 0)
}

func appendNative(b array.Builder, v any) error {
	switch bb := b.(type) {
	case *array.NullBuilder:
		return fmt.Errorf("null type accepts only missing values")
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return errMismatch
		}
		bb.Append(x)
	case *array.Int8Builder:
		x, err := toSigned(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		bb.Append(int8(x))
	case *array.Int16Builder:
		x, err := toSigned(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		bb.Append(int16(x))
	case *array.Int32Builder:
		x, err := toSigned(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		bb.Append(int32(x))
	case *array.Int64Builder:
		x, err := toSigned(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Uint8Builder:
		x, err := toUnsigned(v, math.MaxUint8)
		if err != nil {
			return err
		}
		bb.Append(uint8(x))
	case *array.Uint16Builder:
		x, err := toUnsigned(v, math.MaxUint16)
		if err != nil {
			return err
		}
		bb.Append(uint16(x))
	case *array.Uint32Builder:
		x, err := toUnsigned(v, math.MaxUint32)
		if err != nil {
			return err
		}
		bb.Append(uint32(x))
	case *array.Uint64Builder:
		x, err := toUnsigned(v, math.MaxUint64)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.Float16Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(float16.New(float32(x)))
	case *array.Float32Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(float32(x))
	case *array.Float64Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		bb.Append(x)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return errMismatch
		}
		bb.Append(x)
	case *array.LargeStringBuilder:
		x, ok := v.(string)
		if !ok {
			return errMismatch
		}
		bb.Append(x)
	case *array.BinaryBuilder:
		switch x := v.(type) {
		case []byte:
			bb.Append(x)
		case string:
			bb.AppendString(x)
		default:
			return errMismatch
		}
	case *array.FixedSizeBinaryBuilder:
		x, ok := v.([]byte)
		if !ok {
			return errMismatch
		}
		if want := bb.Type().(*arrow.FixedSizeBinaryType).ByteWidth; len(x) != want {
			return fmt.Errorf("expected %d bytes, got %d", want, len(x))
		}
		bb.Append(x)
	case *array.Decimal128Builder:
		dt := bb.Type().(*arrow.Decimal128Type)
		d, err := toDecimal(v)
		if err != nil {
			return err
		}
		n, err := NumFromDecimal(d, dt.Precision, dt.Scale)
		if err != nil {
			return err
		}
		bb.Append(n)
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return errMismatch
		}
		bb.Append(arrow.Date32FromTime(t))
	case *array.Date64Builder:
		t, ok := v.(time.Time)
		if !ok {
			return errMismatch
		}
		bb.Append(arrow.Date64FromTime(t))
	case *array.Time32Builder:
		d, err := toTimeOfDay(v)
		if err != nil {
			return err
		}
		unit := bb.Type().(*arrow.Time32Type).Unit
		bb.Append(arrow.Time32(time.Duration(d) / unit.Multiplier()))
	case *array.Time64Builder:
		d, err := toTimeOfDay(v)
		if err != nil {
			return err
		}
		unit := bb.Type().(*arrow.Time64Type).Unit
		bb.Append(arrow.Time64(time.Duration(d) / unit.Multiplier()))
	case *array.TimestampBuilder:
		unit := bb.Type().(*arrow.TimestampType).Unit
		switch x := v.(type) {
		case time.Time:
			ts, err := arrow.TimestampFromTime(x, unit)
			if err != nil {
				return err
			}
			bb.Append(ts)
		case int64:
			bb.Append(arrow.Timestamp(x))
		default:
			return errMismatch
		}
	case *array.DurationBuilder:
		unit := bb.Type().(*arrow.DurationType).Unit
		switch x := v.(type) {
		case time.Duration:
			bb.Append(arrow.Duration(x / unit.Multiplier()))
		case int64:
			bb.Append(arrow.Duration(x))
		default:
			return errMismatch
		}
	case *array.StructBuilder:
		m, ok := v.(map[string]any)
		if !ok {
			return errMismatch
		}
		st := bb.Type().(*arrow.StructType)
		bb.Append(true)
		for f := 0; f < st.NumFields(); f++ {
			fv, present := m[st.Field(f).Name]
			if !present || IsNA(fv) {
				bb.FieldBuilder(f).AppendNull()
				continue
			}
			if err := appendNative(bb.FieldBuilder(f), fv); err != nil {
				return fmt.Errorf("field %s: %w", st.Field(f).Name, err)
			}
		}
	default:
		return fmt.Errorf("%w: no native conversion for %s", arrow.ErrNotImplemented, b.Type())
	}
	return nil
}

// awareUTC marks values read from timestamps with an explicit UTC zone.
// time.UTC itself is reserved for naive timestamps so that InferType can
// tell the two apart.
var awareUTC = time.FixedZone("UTC", 0)

var errMismatch = fmt.Errorf("%w: value kind does not match the target type", arrow.ErrType)

func toSigned(v any, lo, hi int64) (int64, error) {
	var x int64
	switch n := v.(type) {
	case int:
		x = int64(n)
	case int8:
		x = int64(n)
	case int16:
		x = int64(n)
	case int32:
		x = int64(n)
	case int64:
		x = n
	case uint, uint8, uint16, uint32, uint64:
		u, _ := toUnsigned(v, math.MaxUint64)
		if u > math.MaxInt64 {
			return 0, errOverflow
		}
		x = int64(u)
	case float32, float64:
		f, _ := toFloat(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: float value %v was truncated", arrow.ErrInvalid, f)
		}
		if f < float64(lo) || f > float64(hi) {
			return 0, errOverflow
		}
		x = int64(f)
	default:
		return 0, errMismatch
	}
	if x < lo || x > hi {
		return 0, errOverflow
	}
	return x, nil
}

func toUnsigned(v any, hi uint64) (uint64, error) {
	var x uint64
	switch n := v.(type) {
	case uint:
		x = uint64(n)
	case uint8:
		x = uint64(n)
	case uint16:
		x = uint64(n)
	case uint32:
		x = uint64(n)
	case uint64:
		x = n
	case int, int8, int16, int32, int64:
		s, _ := toSigned(v, math.MinInt64, math.MaxInt64)
		if s < 0 {
			return 0, errOverflow
		}
		x = uint64(s)
	case float32, float64:
		f, _ := toFloat(v)
		if f != math.Trunc(f) || f < 0 || f > float64(hi) {
			return 0, errOverflow
		}
		x = uint64(f)
	default:
		return 0, errMismatch
	}
	if x > hi {
		return 0, errOverflow
	}
	return x, nil
}

var errOverflow = fmt.Errorf("%w: integer value out of range", arrow.ErrInvalid)

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, nil
	}
	return 0, errMismatch
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, fmt.Errorf("%w: %v has no decimal representation", arrow.ErrInvalid, n)
		}
		return decimal.NewFromFloat(n), nil
	case *big.Int:
		return decimal.NewFromBigInt(n, 0), nil
	}
	if i, err := toSigned(v, math.MinInt64, math.MaxInt64); err == nil {
		return decimal.NewFromInt(i), nil
	}
	if u, err := toUnsigned(v, math.MaxUint64); err == nil {
		return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0), nil
	}
	return decimal.Decimal{}, errMismatch
}

func toTimeOfDay(v any) (TimeOfDay, error) {
	switch x := v.(type) {
	case TimeOfDay:
		return x, nil
	case time.Time:
		return NewTimeOfDay(x.Hour(), x.Minute(), x.Second(), x.Nanosecond()), nil
	case time.Duration:
		if x < 0 || x >= 24*time.Hour {
			return 0, fmt.Errorf("%w: %s is not a time of day", arrow.ErrInvalid, x)
		}
		return TimeOfDay(x), nil
	}
	return 0, errMismatch
}

// InferType picks an arrow type able to hold every non-missing value.
// All-missing input infers the null type.
func InferType(values []any) (arrow.DataType, error) {
	var (
		kind     Kind = KindNull
		tz       string
		maxScale int32
		sawFloat bool
		sawUint  bool
		sawInt   bool
	)
	for _, v := range values {
		if IsNA(v) {
			continue
		}
		var k Kind
		switch x := v.(type) {
		case bool:
			k = KindBool
		case int, int8, int16, int32, int64:
			k = KindInt
			sawInt = true
		case uint, uint8, uint16, uint32, uint64:
			k = KindInt
			sawUint = true
		case float32, float64:
			k = KindInt
			sawFloat = true
		case string:
			k = KindString
		case []byte:
			k = KindBinary
		case decimal.Decimal:
			k = KindDecimal
			if s := -x.Exponent(); s > maxScale {
				maxScale = s
			}
		case time.Time:
			k = KindTimestamp
			if loc := x.Location(); loc != time.UTC && loc != time.Local {
				tz = loc.String()
			}
		case time.Duration:
			k = KindDuration
		case TimeOfDay:
			k = KindTime
		default:
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
				"Could not convert %v with type %T: did not recognize Go value type when inferring an Arrow data type", v, v)
		}
		if kind == KindNull {
			kind = k
		} else if kind != k {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
				"Could not convert %v with type %T: tried to convert to %s", v, v, kind)
		}
	}

	switch kind {
	case KindNull:
		return arrow.Null, nil
	case KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case KindInt:
		switch {
		case sawFloat:
			return arrow.PrimitiveTypes.Float64, nil
		case sawUint && !sawInt:
			return arrow.PrimitiveTypes.Uint64, nil
		}
		return arrow.PrimitiveTypes.Int64, nil
	case KindString:
		return arrow.BinaryTypes.String, nil
	case KindBinary:
		return arrow.BinaryTypes.Binary, nil
	case KindDecimal:
		return &arrow.Decimal128Type{Precision: 38, Scale: maxScale}, nil
	case KindTimestamp:
		return &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: tz}, nil
	case KindDuration:
		return arrow.FixedWidthTypes.Duration_ns, nil
	case KindTime:
		return arrow.FixedWidthTypes.Time64ns, nil
	}
	return nil, nebulaerrors.New(nebulaerrors.ErrorTypeInternal, "unreachable inference state")
}
