// Package parse converts string columns into native values ahead of array
// construction. Every parser returns a []any aligned with its input where
// missing entries are dtype.NA, so the result can be handed straight to
// columnar.FromSequence.
package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// DefaultNullTokens are the strings read as missing values when no tokens
// are configured.
var DefaultNullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "NaT", "<NA>"}

// Tokens is a set of null tokens.
type Tokens map[string]struct{}

// NewTokens builds a token set; an empty list selects DefaultNullTokens.
func NewTokens(tokens []string) Tokens {
	if len(tokens) == 0 {
		tokens = DefaultNullTokens
	}
	set := make(Tokens, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// IsNull reports whether s is a null token.
func (t Tokens) IsNull(s string) bool {
	_, ok := t[strings.TrimSpace(s)]
	return ok
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"20060102",
	time.RFC1123Z,
	time.RFC1123,
}

// Time parses a date or date-time. Strings without an offset are read in
// loc; strings with one are converted to loc.
func Time(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as a datetime", s)
}

// Duration parses Go durations ("1h30m"), Prometheus durations ("1d",
// "2w") and bare integers, which count nanoseconds.
func Duration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	neg := strings.HasPrefix(s, "-")
	d, err := model.ParseDuration(strings.TrimPrefix(s, "-"))
	if err != nil {
		return 0, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as a duration", s)
	}
	if neg {
		return -time.Duration(d), nil
	}
	return time.Duration(d), nil
}

var clockLayouts = []string{
	"15:04:05.999999999",
	"15:04",
	"3:04:05PM",
	"3:04PM",
	"3:04:05 PM",
	"3:04 PM",
	"150405",
}

// TimeOfDay parses a wall-clock time without a date.
func TimeOfDay(s string) (dtype.TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dtype.NewTimeOfDay(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil
		}
	}
	return 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as a time", s)
}

var boolWords = map[string]bool{
	"true": true, "t": true, "1": true, "1.0": true, "yes": true, "y": true,
	"false": false, "f": false, "0": false, "0.0": false, "no": false, "n": false,
}

// Bool parses the usual spellings of true and false, ignoring case.
func Bool(s string) (bool, error) {
	v, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return false, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "%s cannot be cast to bool", s)
	}
	return v, nil
}

// Int parses a signed integer. Values like "3.0" with no fractional part
// are accepted.
func Int(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as an integer", s)
	}
	return d.IntPart(), nil
}

// Uint parses an unsigned integer.
func Uint(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as an unsigned integer", s)
	}
	return n, nil
}

// Float parses a float, including "inf" and "nan" spellings.
func Float(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as a float", s)
	}
	return f, nil
}

// Decimal parses an exact decimal.
func Decimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion, "Unable to parse string %q as a decimal", s)
	}
	return d, nil
}

// Each applies fn to every non-null string. The first failure is returned
// with the offending position attached.
func Each[T any](values []string, tokens Tokens, fn func(string) (T, error)) ([]any, error) {
	out := make([]any, len(values))
	for i, s := range values {
		if tokens.IsNull(s) {
			out[i] = dtype.NA
			continue
		}
		v, err := fn(s)
		if err != nil {
			if e, ok := err.(*nebulaerrors.Error); ok {
				return nil, e.WithDetail("position", i)
			}
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Coerce is Each with failures turned into missing values.
func Coerce[T any](values []string, tokens Tokens, fn func(string) (T, error)) []any {
	out := make([]any, len(values))
	for i, s := range values {
		out[i] = dtype.NA
		if tokens.IsNull(s) {
			continue
		}
		if v, err := fn(s); err == nil {
			out[i] = v
		}
	}
	return out
}

// Times parses a column of date-times in loc.
func Times(values []string, tokens Tokens, loc *time.Location) ([]any, error) {
	return Each(values, tokens, func(s string) (time.Time, error) { return Time(s, loc) })
}
