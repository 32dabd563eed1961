package kernels

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/ncruces/go-strftime"

	"github.com/ajitpratap0/nebula-arrow/pkg/pool"
)

// Field is a calendar or clock component extracted by Component.
type Field int

const (
	FieldYear Field = iota
	FieldMonth
	FieldDay
	FieldDayOfWeek
	FieldDayOfYear
	FieldQuarter
	FieldHour
	FieldMinute
	FieldSecond
	FieldMillisecond
	FieldMicrosecond
	FieldNanosecond
	FieldISOYear
	FieldISOWeek
	FieldISODayOfWeek
	numFields
)

var fieldNames = [numFields]string{
	FieldYear:         "year",
	FieldMonth:        "month",
	FieldDay:          "day",
	FieldDayOfWeek:    "day_of_week",
	FieldDayOfYear:    "day_of_year",
	FieldQuarter:      "quarter",
	FieldHour:         "hour",
	FieldMinute:       "minute",
	FieldSecond:       "second",
	FieldMillisecond:  "millisecond",
	FieldMicrosecond:  "microsecond",
	FieldNanosecond:   "nanosecond",
	FieldISOYear:      "iso_year",
	FieldISOWeek:      "iso_week",
	FieldISODayOfWeek: "iso_day_of_week",
}

func (f Field) String() string {
	if f >= 0 && f < numFields {
		return fieldNames[f]
	}
	return "Field(" + strconv.Itoa(int(f)) + ")"
}

func (f Field) isClock() bool { return f >= FieldHour && f <= FieldNanosecond }

// clock reads slot i as a wall-clock time. Dates read as UTC midnight and
// times of day as an instant on 1970-01-01.
type clock struct {
	at      func(i int) time.Time
	hasDate bool
	hasTime bool
}

func newClock(kernel string, arr arrow.Array) (clock, error) {
	switch a := arr.(type) {
	case *array.Timestamp:
		toTime, err := a.DataType().(*arrow.TimestampType).GetToTimeFunc()
		if err != nil {
			return clock{}, fmt.Errorf("%w: %s", arrow.ErrInvalid, err)
		}
		return clock{at: func(i int) time.Time { return toTime(a.Value(i)) }, hasDate: true, hasTime: true}, nil
	case *array.Date32:
		return clock{at: func(i int) time.Time { return a.Value(i).ToTime() }, hasDate: true}, nil
	case *array.Date64:
		return clock{at: func(i int) time.Time { return a.Value(i).ToTime() }, hasDate: true}, nil
	case *array.Time32:
		unit := a.DataType().(*arrow.Time32Type).Unit
		return clock{at: func(i int) time.Time {
			return time.Unix(0, int64(time.Duration(a.Value(i))*unit.Multiplier())).UTC()
		}, hasTime: true}, nil
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return clock{at: func(i int) time.Time {
			return time.Unix(0, int64(time.Duration(a.Value(i))*unit.Multiplier())).UTC()
		}, hasTime: true}, nil
	}
	return clock{}, notImplemented(kernel, arr.DataType())
}

func extract(f Field, t time.Time) int64 {
	switch f {
	case FieldYear:
		return int64(t.Year())
	case FieldMonth:
		return int64(t.Month())
	case FieldDay:
		return int64(t.Day())
	case FieldDayOfWeek:
		return int64((t.Weekday() + 6) % 7)
	case FieldDayOfYear:
		return int64(t.YearDay())
	case FieldQuarter:
		return int64((t.Month()-1)/3 + 1)
	case FieldHour:
		return int64(t.Hour())
	case FieldMinute:
		return int64(t.Minute())
	case FieldSecond:
		return int64(t.Second())
	case FieldMillisecond:
		return int64(t.Nanosecond() / 1e6)
	case FieldMicrosecond:
		return int64(t.Nanosecond() / 1e3 % 1e3)
	case FieldNanosecond:
		return int64(t.Nanosecond() % 1e3)
	case FieldISOYear:
		y, _ := t.ISOWeek()
		return int64(y)
	case FieldISOWeek:
		_, w := t.ISOWeek()
		return int64(w)
	case FieldISODayOfWeek:
		return int64((t.Weekday()+6)%7 + 1)
	}
	return 0
}

// Component extracts f from every slot into an int64 array. Millisecond,
// Microsecond and Nanosecond are each the sub-unit remainder (0-999).
// Day of week counts from Monday=0.
func Component(ctx context.Context, arr arrow.Array, f Field) (out arrow.Array, err error) {
	name := f.String()
	defer timed(name, &err)()
	c, err := newClock(name, arr)
	if err != nil {
		return nil, err
	}
	if (f.isClock() && !c.hasTime) || (!f.isClock() && !c.hasDate) {
		return nil, notImplemented(name, arr.DataType())
	}

	b := array.NewInt64Builder(Allocator(ctx))
	defer b.Release()
	b.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(extract(f, c.at(i)))
	}
	return b.NewArray(), nil
}

// IsoCalendarType is the struct type returned by IsoCalendar.
var IsoCalendarType = arrow.StructOf(
	arrow.Field{Name: "iso_year", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	arrow.Field{Name: "iso_week", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	arrow.Field{Name: "iso_day_of_week", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
)

// IsoCalendar returns the ISO year, week and weekday (Monday=1) of every
// slot as a struct array.
func IsoCalendar(ctx context.Context, arr arrow.Array) (out arrow.Array, err error) {
	defer timed(IsoCalendarKernel, &err)()
	c, err := newClock(IsoCalendarKernel, arr)
	if err != nil {
		return nil, err
	}
	if !c.hasDate {
		return nil, notImplemented(IsoCalendarKernel, arr.DataType())
	}

	b := array.NewStructBuilder(Allocator(ctx), IsoCalendarType)
	defer b.Release()
	year := b.FieldBuilder(0).(*array.Int64Builder)
	week := b.FieldBuilder(1).(*array.Int64Builder)
	day := b.FieldBuilder(2).(*array.Int64Builder)
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		t := c.at(i)
		b.Append(true)
		year.Append(extract(FieldISOYear, t))
		week.Append(extract(FieldISOWeek, t))
		day.Append(extract(FieldISODayOfWeek, t))
	}
	return b.NewArray(), nil
}

// IsLeapYear flags slots that fall in a leap year.
func IsLeapYear(ctx context.Context, arr arrow.Array) (out arrow.Array, err error) {
	defer timed(IsLeapYearKernel, &err)()
	c, err := newClock(IsLeapYearKernel, arr)
	if err != nil {
		return nil, err
	}
	if !c.hasDate {
		return nil, notImplemented(IsLeapYearKernel, arr.DataType())
	}
	b := array.NewBooleanBuilder(Allocator(ctx))
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		y := c.at(i).Year()
		b.Append(y%4 == 0 && (y%100 != 0 || y%400 == 0))
	}
	return b.NewArray(), nil
}

// CalendarUnit is the unit of a temporal rounding multiple.
type CalendarUnit int

const (
	UnitNanosecond CalendarUnit = iota
	UnitMicrosecond
	UnitMillisecond
	UnitSecond
	UnitMinute
	UnitHour
	UnitDay
	UnitWeek
	UnitMonth
	UnitQuarter
	UnitYear
)

var unitDurations = map[CalendarUnit]time.Duration{
	UnitNanosecond:  time.Nanosecond,
	UnitMicrosecond: time.Microsecond,
	UnitMillisecond: time.Millisecond,
	UnitSecond:      time.Second,
	UnitMinute:      time.Minute,
	UnitHour:        time.Hour,
	UnitDay:         24 * time.Hour,
	UnitWeek:        7 * 24 * time.Hour,
}

// RoundMode selects floor, ceil or round-to-nearest.
type RoundMode int

const (
	RoundFloor RoundMode = iota
	RoundCeil
	RoundNearest
	numRoundModes
)

func (m RoundMode) kernelName() string {
	switch m {
	case RoundFloor:
		return "floor_temporal"
	case RoundCeil:
		return "ceil_temporal"
	}
	return "round_temporal"
}

// weekOrigin is the Monday weeks are counted from.
var weekOrigin = time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC)

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// roundWall rounds a wall-clock time expressed in UTC. Ties round up.
func roundWall(w time.Time, mode RoundMode, multiple int, unit CalendarUnit) time.Time {
	var lo, hi time.Time
	if d, ok := unitDurations[unit]; ok {
		step := int64(d) * int64(multiple)
		origin := time.Unix(0, 0).UTC()
		if unit == UnitWeek {
			origin = weekOrigin
		}
		off := int64(w.Sub(origin))
		lo = origin.Add(time.Duration(floorDiv(off, step) * step))
		hi = lo.Add(time.Duration(step))
	} else {
		step := int64(multiple)
		switch unit {
		case UnitQuarter:
			step *= 3
		case UnitYear:
			step *= 12
		}
		months := int64(w.Year()-1970)*12 + int64(w.Month()-1)
		start := floorDiv(months, step) * step
		lo = monthStart(start)
		hi = monthStart(start + step)
	}

	switch {
	case w.Equal(lo):
		return lo
	case mode == RoundFloor:
		return lo
	case mode == RoundCeil:
		return hi
	}
	if w.Sub(lo) >= hi.Sub(w) {
		return hi
	}
	return lo
}

func monthStart(months int64) time.Time {
	y := floorDiv(months, 12)
	m := months - y*12
	return time.Date(int(1970+y), time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
}

func toWall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func fromWall(w time.Time, loc *time.Location) time.Time {
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

// RoundTemporal rounds timestamps and dates to a multiple of unit on the
// local wall clock. Weeks start on Monday; months, quarters and years are
// counted from January 1970.
func RoundTemporal(ctx context.Context, arr arrow.Array, mode RoundMode, multiple int, unit CalendarUnit) (out arrow.Array, err error) {
	name := mode.kernelName()
	defer timed(name, &err)()
	if multiple <= 0 {
		return nil, fmt.Errorf("%w: rounding multiple must be positive, got %d", arrow.ErrInvalid, multiple)
	}
	mem := Allocator(ctx)

	switch a := arr.(type) {
	case *array.Timestamp:
		tt := a.DataType().(*arrow.TimestampType)
		loc, err := tt.GetZone()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", arrow.ErrInvalid, err)
		}
		b := array.NewTimestampBuilder(mem, tt)
		defer b.Release()
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				b.AppendNull()
				continue
			}
			local := a.Value(i).ToTime(tt.Unit).In(loc)
			r := fromWall(roundWall(toWall(local), mode, multiple, unit), loc)
			ts, err := arrow.TimestampFromTime(r, tt.Unit)
			if err != nil {
				return nil, err
			}
			b.Append(ts)
		}
		return b.NewArray(), nil
	case *array.Date32:
		b := array.NewDate32Builder(mem)
		defer b.Release()
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Date32FromTime(roundWall(a.Value(i).ToTime(), mode, multiple, unit)))
		}
		return b.NewArray(), nil
	case *array.Date64:
		b := array.NewDate64Builder(mem)
		defer b.Release()
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Date64FromTime(roundWall(a.Value(i).ToTime(), mode, multiple, unit)))
		}
		return b.NewArray(), nil
	}
	return nil, notImplemented(name, arr.DataType())
}

// Strftime formats timestamps and dates with C99 strftime directives,
// plus %L, %f and %N for milli, micro and nanoseconds.
func Strftime(ctx context.Context, arr arrow.Array, format string) (out arrow.Array, err error) {
	defer timed(StrftimeKernel, &err)()
	c, err := newClock(StrftimeKernel, arr)
	if err != nil {
		return nil, err
	}
	if !c.hasDate {
		return nil, notImplemented(StrftimeKernel, arr.DataType())
	}
	b := array.NewStringBuilder(Allocator(ctx))
	defer b.Release()
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(FormatTime(c.at(i), format))
	}
	return b.NewArray(), nil
}

// FormatTime renders t with the directives understood by Strftime.
func FormatTime(t time.Time, format string) string {
	buf := pool.Buffers.Get()
	defer pool.Buffers.Put(buf)
	buf.Write(strftime.AppendFormat(buf.AvailableBuffer(), format, t))
	return buf.String()
}
