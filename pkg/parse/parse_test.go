package parse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

func TestTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"2024-03-01", nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01 12:30:00.5", nil, time.Date(2024, 3, 1, 12, 30, 0, 500000000, time.UTC)},
		{"2024-03-01T12:30:00Z", ny, time.Date(2024, 3, 1, 7, 30, 0, 0, ny)},
		{"2024-03-01 12:30", ny, time.Date(2024, 3, 1, 12, 30, 0, 0, ny)},
		{"03/01/2024", nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Time(tt.in, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	_, err = Time("yesterday", nil)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1h30m", 90 * time.Minute},
		{"1d", 24 * time.Hour},
		{"1w2d", 9 * 24 * time.Hour},
		{"-1d", -24 * time.Hour},
		{"1500", 1500 * time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Duration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := Duration("soon")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion))
}

func TestScalars(t *testing.T) {
	tod, err := TimeOfDay("13:05:07.25")
	require.NoError(t, err)
	assert.Equal(t, dtype.NewTimeOfDay(13, 5, 7, 250000000), tod)

	tod, err = TimeOfDay("1:05PM")
	require.NoError(t, err)
	assert.Equal(t, dtype.NewTimeOfDay(13, 5, 0, 0), tod)

	b, err := Bool("TRUE")
	require.NoError(t, err)
	assert.True(t, b)
	b, err = Bool("0.0")
	require.NoError(t, err)
	assert.False(t, b)
	_, err = Bool("maybe")
	assert.Error(t, err)

	n, err := Int("3.0")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_, err = Int("3.5")
	assert.Error(t, err)

	u, err := Uint("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), u)

	f, err := Float("-inf")
	require.NoError(t, err)
	assert.True(t, f < 0)

	d, err := Decimal("12.345")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.345")))
}

func TestEachAndCoerce(t *testing.T) {
	tokens := NewTokens(nil)
	assert.True(t, tokens.IsNull(" NA "))
	assert.False(t, tokens.IsNull("0"))

	got, err := Each([]string{"1", "", "3"}, tokens, Int)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), dtype.NA, int64(3)}, got)

	_, err = Each([]string{"1", "x"}, tokens, Int)
	require.Error(t, err)
	pos, ok := err.(*nebulaerrors.Error).Detail("position")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	coerced := Coerce([]string{"10:00", "noon", "NaT"}, tokens, TimeOfDay)
	assert.Equal(t, []any{dtype.NewTimeOfDay(10, 0, 0, 0), dtype.NA, dtype.NA}, coerced)

	custom := NewTokens([]string{"-"})
	got, err = Each([]string{"-", ""}, custom, func(s string) (string, error) { return s, nil })
	require.NoError(t, err)
	assert.Equal(t, []any{dtype.NA, ""}, got)
}
