package columnar

import (
	"regexp"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func (a *Array) component(f kernels.Field) (*Array, error) {
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.Component(a.ctx(), arr, f)
	if err != nil {
		return nil, translate(err, f.String(), a.DType())
	}
	return a.wrap(out), nil
}

// Year is the calendar year.
func (a *Array) Year() (*Array, error) { return a.component(kernels.FieldYear) }

// Month is the month, January=1.
func (a *Array) Month() (*Array, error) { return a.component(kernels.FieldMonth) }

// Day is the day of the month.
func (a *Array) Day() (*Array, error) { return a.component(kernels.FieldDay) }

// DayOfWeek counts from Monday=0.
func (a *Array) DayOfWeek() (*Array, error) { return a.component(kernels.FieldDayOfWeek) }

// DayOfYear counts from January 1st=1.
func (a *Array) DayOfYear() (*Array, error) { return a.component(kernels.FieldDayOfYear) }

func (a *Array) Quarter() (*Array, error) { return a.component(kernels.FieldQuarter) }

func (a *Array) Hour() (*Array, error) { return a.component(kernels.FieldHour) }

func (a *Array) Minute() (*Array, error) { return a.component(kernels.FieldMinute) }

func (a *Array) Second() (*Array, error) { return a.component(kernels.FieldSecond) }

// Microsecond is the sub-second part in microseconds (0-999999).
func (a *Array) Microsecond() (*Array, error) {
	ms, err := a.component(kernels.FieldMillisecond)
	if err != nil {
		return nil, err
	}
	defer ms.Release()
	us, err := a.component(kernels.FieldMicrosecond)
	if err != nil {
		return nil, err
	}
	defer us.Release()
	scaled, err := ms.Arith(1000, Mul)
	if err != nil {
		return nil, err
	}
	defer scaled.Release()
	return scaled.Arith(us, Add)
}

// Nanosecond is the sub-microsecond part (0-999).
func (a *Array) Nanosecond() (*Array, error) { return a.component(kernels.FieldNanosecond) }

// IsoCalendar returns a struct array of iso_year, iso_week and
// iso_day_of_week.
func (a *Array) IsoCalendar() (*Array, error) {
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.IsoCalendar(a.ctx(), arr)
	if err != nil {
		return nil, translate(err, "isocalendar", a.DType())
	}
	return a.wrap(out), nil
}

// IsLeapYear flags elements in leap years.
func (a *Array) IsLeapYear() (*Array, error) {
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.IsLeapYear(a.ctx(), arr)
	if err != nil {
		return nil, translate(err, "is_leap_year", a.DType())
	}
	return a.wrap(out), nil
}

// TZ is the timezone of a timestamp array; empty when naive.
func (a *Array) TZ() string { return a.DType().TZ() }

// timestamps returns the data as one timestamp array with its type and
// zone, or an Unsupported error for other types.
func (a *Array) timestamps(op string) (*array.Timestamp, *arrow.TimestampType, *time.Location, error) {
	tt, ok := a.data.DataType().(*arrow.TimestampType)
	if !ok {
		return nil, nil, nil, unsupported("%s is not supported for dtype %s", op, a.DType())
	}
	loc, err := tt.GetZone()
	if err != nil {
		return nil, nil, nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeValidation, "invalid timezone %q", tt.TimeZone)
	}
	arr, err := a.combined()
	if err != nil {
		return nil, nil, nil, err
	}
	return arr.(*array.Timestamp), tt, loc, nil
}

// Date is the local calendar date as date64.
func (a *Array) Date() (*Array, error) {
	ts, tt, loc, err := a.timestamps("date")
	if err != nil {
		return nil, err
	}
	defer ts.Release()
	b := array.NewDate64Builder(a.mem)
	defer b.Release()
	for i := 0; i < ts.Len(); i++ {
		if ts.IsNull(i) {
			b.AppendNull()
			continue
		}
		t := ts.Value(i).ToTime(tt.Unit).In(loc)
		b.Append(arrow.Date64FromTime(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)))
	}
	return a.wrap(b.NewArray()), nil
}

// Time is the local time of day as time64, in nanoseconds for nanosecond
// timestamps and microseconds otherwise.
func (a *Array) Time() (*Array, error) {
	ts, tt, loc, err := a.timestamps("time")
	if err != nil {
		return nil, err
	}
	defer ts.Release()
	unit := arrow.Microsecond
	if tt.Unit == arrow.Nanosecond {
		unit = arrow.Nanosecond
	}
	b := array.NewTime64Builder(a.mem, &arrow.Time64Type{Unit: unit})
	defer b.Release()
	for i := 0; i < ts.Len(); i++ {
		if ts.IsNull(i) {
			b.AppendNull()
			continue
		}
		t := ts.Value(i).ToTime(tt.Unit).In(loc)
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		b.Append(arrow.Time64(wall.Sub(midnight) / unit.Multiplier()))
	}
	return a.wrap(b.NewArray()), nil
}

// Strftime formats dates and timestamps with C-style directives.
func (a *Array) Strftime(format string) (*Array, error) {
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.Strftime(a.ctx(), arr, format)
	if err != nil {
		return nil, translate(err, "strftime", a.DType())
	}
	return a.wrap(out), nil
}

var freqUnits = map[string]kernels.CalendarUnit{
	"A": kernels.UnitYear, "AS": kernels.UnitYear, "Y": kernels.UnitYear,
	"Q": kernels.UnitQuarter, "QS": kernels.UnitQuarter,
	"M": kernels.UnitMonth, "MS": kernels.UnitMonth,
	"W": kernels.UnitWeek,
	"D": kernels.UnitDay,
	"H": kernels.UnitHour, "h": kernels.UnitHour,
	"T": kernels.UnitMinute, "min": kernels.UnitMinute,
	"S": kernels.UnitSecond, "s": kernels.UnitSecond,
	"L": kernels.UnitMillisecond, "ms": kernels.UnitMillisecond,
	"U": kernels.UnitMicrosecond, "us": kernels.UnitMicrosecond,
	"N": kernels.UnitNanosecond, "ns": kernels.UnitNanosecond,
}

var freqPattern = regexp.MustCompile(`^(\d*)([A-Za-z]+)$`)

// parseFreq splits a frequency such as "15min" or "D" into a multiple and
// a unit.
func parseFreq(freq string) (int, kernels.CalendarUnit, error) {
	m := freqPattern.FindStringSubmatch(freq)
	if m == nil {
		return 0, 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation, "Invalid frequency: %s", freq)
	}
	unit, ok := freqUnits[m[2]]
	if !ok {
		return 0, 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation, "Invalid frequency: %s", freq)
	}
	multiple := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation, "Invalid frequency: %s", freq)
		}
		multiple = n
	}
	return multiple, unit, nil
}

// checkRaise rejects every ambiguous and nonexistent policy but "raise".
func checkRaise(ambiguous, nonexistent string) error {
	if ambiguous != "raise" {
		return unsupported("ambiguous=%q is not supported, only 'raise'", ambiguous)
	}
	if nonexistent != "raise" {
		return unsupported("nonexistent=%q is not supported, only 'raise'", nonexistent)
	}
	return nil
}

func (a *Array) roundTemporal(mode kernels.RoundMode, op, freq, ambiguous, nonexistent string) (*Array, error) {
	if err := checkRaise(ambiguous, nonexistent); err != nil {
		return nil, err
	}
	multiple, unit, err := parseFreq(freq)
	if err != nil {
		return nil, err
	}
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.RoundTemporal(a.ctx(), arr, mode, multiple, unit)
	if err != nil {
		return nil, translate(err, op, a.DType())
	}
	return a.wrap(out), nil
}

// Ceil rounds up to a multiple of freq on the local wall clock.
func (a *Array) Ceil(freq, ambiguous, nonexistent string) (*Array, error) {
	return a.roundTemporal(kernels.RoundCeil, "ceil", freq, ambiguous, nonexistent)
}

// Floor rounds down to a multiple of freq on the local wall clock.
func (a *Array) Floor(freq, ambiguous, nonexistent string) (*Array, error) {
	return a.roundTemporal(kernels.RoundFloor, "floor", freq, ambiguous, nonexistent)
}

// RoundTo rounds to the nearest multiple of freq on the local wall clock.
func (a *Array) RoundTo(freq, ambiguous, nonexistent string) (*Array, error) {
	return a.roundTemporal(kernels.RoundNearest, "round", freq, ambiguous, nonexistent)
}

// TZLocalize relabels the timestamp type with tz, or drops the zone when
// tz is empty. The stored values are unchanged.
func (a *Array) TZLocalize(tz, ambiguous, nonexistent string) (*Array, error) {
	if err := checkRaise(ambiguous, nonexistent); err != nil {
		return nil, err
	}
	tt, ok := a.data.DataType().(*arrow.TimestampType)
	if !ok {
		return nil, unsupported("tz_localize is not supported for dtype %s", a.DType())
	}
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeValidation, "Unknown time zone %q", tz)
		}
	}
	return a.reinterpret(&arrow.TimestampType{Unit: tt.Unit, TimeZone: tz})
}

// TZConvert relabels aware timestamps with another zone. The instants are
// unchanged.
func (a *Array) TZConvert(tz string) (*Array, error) {
	tt, ok := a.data.DataType().(*arrow.TimestampType)
	if !ok {
		return nil, unsupported("tz_convert is not supported for dtype %s", a.DType())
	}
	if tt.TimeZone == "" {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConversion,
			"Cannot convert tz-naive timestamps, use TZLocalize to localize")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeValidation, "Unknown time zone %q", tz)
	}
	return a.reinterpret(&arrow.TimestampType{Unit: tt.Unit, TimeZone: tz})
}
