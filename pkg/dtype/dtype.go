// Package dtype describes the logical element type of a columnar array.
//
// A DType wraps an arrow.DataType and adds what the array layer needs on top
// of it: a coarse Kind tag used for dispatch, the missing-value sentinel, the
// mapping between arrow values and native Go scalars, and the zero-copy
// reinterpretation used to run integer kernels over temporal data.
//
// Native scalar mapping:
//
//	signed integers     int64
//	unsigned integers   uint64
//	floating point      float64
//	bool                bool
//	string, large_string string
//	binary kinds        []byte
//	decimal128          decimal.Decimal (github.com/shopspring/decimal)
//	date, timestamp     time.Time (in the type's zone when one is set)
//	time-of-day         TimeOfDay
//	duration            time.Duration
//	struct              map[string]any
//
// Missing elements read back as NA.
package dtype

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// Kind is the coarse physical category of a DType.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBinary
	KindDecimal
	KindDate
	KindTime
	KindTimestamp
	KindDuration
	KindStruct
	KindOther
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindUint:      "uint",
	KindFloat:     "float",
	KindString:    "string",
	KindBinary:    "binary",
	KindDecimal:   "decimal",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindDuration:  "duration",
	KindStruct:    "struct",
	KindOther:     "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

type naType struct{}

func (naType) String() string { return "<NA>" }

// MarshalJSON renders NA as JSON null.
func (naType) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// NA is the missing-value sentinel shared by every DType.
var NA any = naType{}

// IsNA reports whether v denotes a missing value. A nil interface counts.
func IsNA(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(naType)
	return ok
}

// TimeOfDay is the native value of time32 and time64 elements: the
// duration elapsed since midnight.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second, nanosecond int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second + time.Duration(nanosecond))
}

// Duration returns the time since midnight.
func (t TimeOfDay) Duration() time.Duration { return time.Duration(t) }

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	if d == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%09d", h, m, s, d)
}

// DType is an immutable logical type descriptor.
type DType struct {
	typ arrow.DataType
}

// New wraps an arrow type.
func New(dt arrow.DataType) DType {
	return DType{typ: dt}
}

// Arrow returns the wrapped arrow type.
func (d DType) Arrow() arrow.DataType { return d.typ }

// NAValue returns the missing-value sentinel.
func (d DType) NAValue() any { return NA }

// Equal reports whether both descriptors carry the same arrow type.
func (d DType) Equal(o DType) bool {
	if d.typ == nil || o.typ == nil {
		return d.typ == o.typ
	}
	return arrow.TypeEqual(d.typ, o.typ)
}

// String renders the descriptor the way users name it, e.g. "int64[arrow]".
func (d DType) String() string {
	if d.typ == nil {
		return "null[arrow]"
	}
	return d.typ.String() + "[arrow]"
}

// Kind classifies the arrow type.
func (d DType) Kind() Kind {
	if d.typ == nil {
		return KindNull
	}
	return KindOf(d.typ)
}

// KindOf classifies an arrow type.
func KindOf(dt arrow.DataType) Kind {
	switch dt.ID() {
	case arrow.NULL:
		return KindNull
	case arrow.BOOL:
		return KindBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return KindInt
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindUint
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat
	case arrow.STRING, arrow.LARGE_STRING:
		return KindString
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return KindBinary
	case arrow.DECIMAL128:
		return KindDecimal
	case arrow.DATE32, arrow.DATE64:
		return KindDate
	case arrow.TIME32, arrow.TIME64:
		return KindTime
	case arrow.TIMESTAMP:
		return KindTimestamp
	case arrow.DURATION:
		return KindDuration
	case arrow.STRUCT:
		return KindStruct
	}
	return KindOther
}

// IsNumeric reports integer, unsigned, float and decimal kinds.
func (d DType) IsNumeric() bool {
	switch d.Kind() {
	case KindInt, KindUint, KindFloat, KindDecimal:
		return true
	}
	return false
}

// IsInteger reports signed or unsigned integer kinds.
func (d DType) IsInteger() bool {
	k := d.Kind()
	return k == KindInt || k == KindUint
}

// IsTemporal reports date, time, timestamp and duration kinds.
func (d DType) IsTemporal() bool {
	switch d.Kind() {
	case KindDate, KindTime, KindTimestamp, KindDuration:
		return true
	}
	return false
}

// BitWidth returns the element width for fixed-width types, 0 otherwise.
func (d DType) BitWidth() int {
	if fw, ok := d.typ.(arrow.FixedWidthDataType); ok {
		return fw.BitWidth()
	}
	return 0
}

// Unit returns the time unit of time, timestamp and duration types.
func (d DType) Unit() (arrow.TimeUnit, bool) {
	switch t := d.typ.(type) {
	case *arrow.TimestampType:
		return t.Unit, true
	case *arrow.DurationType:
		return t.Unit, true
	case *arrow.Time32Type:
		return t.Unit, true
	case *arrow.Time64Type:
		return t.Unit, true
	}
	return 0, false
}

// TZ returns the timezone of a timestamp type; empty when naive.
func (d DType) TZ() string {
	if t, ok := d.typ.(*arrow.TimestampType); ok {
		return t.TimeZone
	}
	return ""
}

var (
	reDecimal  = regexp.MustCompile(`^decimal(?:128)?\((\d+),\s*(-?\d+)\)$`)
	reUnitType = regexp.MustCompile(`^(?i)(timestamp|duration|time32|time64)\[(s|ms|us|ns)(?:,\s*tz=([^\]]+))?\]$`)
)

var simpleTypes = map[string]arrow.DataType{
	"null":         arrow.Null,
	"bool":         arrow.FixedWidthTypes.Boolean,
	"boolean":      arrow.FixedWidthTypes.Boolean,
	"int8":         arrow.PrimitiveTypes.Int8,
	"int16":        arrow.PrimitiveTypes.Int16,
	"int32":        arrow.PrimitiveTypes.Int32,
	"int64":        arrow.PrimitiveTypes.Int64,
	"uint8":        arrow.PrimitiveTypes.Uint8,
	"uint16":       arrow.PrimitiveTypes.Uint16,
	"uint32":       arrow.PrimitiveTypes.Uint32,
	"uint64":       arrow.PrimitiveTypes.Uint64,
	"halffloat":    arrow.FixedWidthTypes.Float16,
	"float16":      arrow.FixedWidthTypes.Float16,
	"float":        arrow.PrimitiveTypes.Float32,
	"float32":      arrow.PrimitiveTypes.Float32,
	"double":       arrow.PrimitiveTypes.Float64,
	"float64":      arrow.PrimitiveTypes.Float64,
	"string":       arrow.BinaryTypes.String,
	"utf8":         arrow.BinaryTypes.String,
	"large_string": arrow.BinaryTypes.LargeString,
	"large_utf8":   arrow.BinaryTypes.LargeString,
	"binary":       arrow.BinaryTypes.Binary,
	"large_binary": arrow.BinaryTypes.LargeBinary,
	"date32":       arrow.FixedWidthTypes.Date32,
	"date32[day]":  arrow.FixedWidthTypes.Date32,
	"date64":       arrow.FixedWidthTypes.Date64,
	"date64[ms]":   arrow.FixedWidthTypes.Date64,
}

var unitNames = map[string]arrow.TimeUnit{
	"s": arrow.Second, "ms": arrow.Millisecond, "us": arrow.Microsecond, "ns": arrow.Nanosecond,
}

// Parse resolves a textual type name such as "int64", "decimal128(10, 2)",
// "timestamp[us, tz=UTC]" or "duration[ms][arrow]".
func Parse(name string) (DType, error) {
	raw := strings.TrimSpace(name)
	for _, suffix := range []string{"[pyarrow]", "[arrow]"} {
		if strings.HasSuffix(strings.ToLower(raw), suffix) {
			raw = raw[:len(raw)-len(suffix)]
		}
	}
	s := strings.ToLower(raw)

	if dt, ok := simpleTypes[s]; ok {
		return New(dt), nil
	}
	if m := reDecimal.FindStringSubmatch(s); m != nil {
		prec, _ := strconv.Atoi(m[1])
		scale, _ := strconv.Atoi(m[2])
		if prec < 1 || prec > 38 {
			return DType{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "decimal precision %d out of range [1, 38]", prec)
		}
		return New(&arrow.Decimal128Type{Precision: int32(prec), Scale: int32(scale)}), nil
	}
	if m := reUnitType.FindStringSubmatch(raw); m != nil {
		unit := unitNames[strings.ToLower(m[2])]
		switch strings.ToLower(m[1]) {
		case "timestamp":
			return New(&arrow.TimestampType{Unit: unit, TimeZone: strings.TrimSpace(m[3])}), nil
		case "duration":
			return New(&arrow.DurationType{Unit: unit}), nil
		case "time32":
			if unit != arrow.Second && unit != arrow.Millisecond {
				return DType{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "time32 requires s or ms, got %s", unit)
			}
			return New(&arrow.Time32Type{Unit: unit}), nil
		case "time64":
			if unit != arrow.Microsecond && unit != arrow.Nanosecond {
				return DType{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "time64 requires us or ns, got %s", unit)
			}
			return New(&arrow.Time64Type{Unit: unit}), nil
		}
	}
	return DType{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "data type '%s' not understood", name)
}

// MustParse is Parse that panics, for static type tables and tests.
func MustParse(name string) DType {
	d, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return d
}
