package frame

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
)

type sliceColumn struct {
	values []any
	dt     dtype.DType
}

func (c sliceColumn) Len() int              { return len(c.values) }
func (c sliceColumn) At(i int) (any, error) { return c.values[i], nil }
func (c sliceColumn) DType() dtype.DType    { return c.dt }

func TestSeriesLookup(t *testing.T) {
	labels := sliceColumn{[]any{int64(1), dtype.NA, int64(2)}, dtype.New(arrow.PrimitiveTypes.Int64)}
	counts := sliceColumn{[]any{int64(2), int64(1), int64(1)}, dtype.New(arrow.PrimitiveTypes.Int64)}

	s, err := NewSeries(counts, NewIndex(labels, ""), "count")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "count", s.Name())

	v, ok := s.Get(int64(1))
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	v, ok = s.Get(dtype.NA)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	_, ok = s.Get(1)
	assert.False(t, ok, "labels match on type as well as value")

	assert.Equal(t, []Item{{int64(1), int64(2)}, {dtype.NA, int64(1)}, {int64(2), int64(1)}}, s.Items())
}

func TestSeriesLengthMismatch(t *testing.T) {
	a := sliceColumn{[]any{int64(1)}, dtype.New(arrow.PrimitiveTypes.Int64)}
	b := sliceColumn{[]any{int64(1), int64(2)}, dtype.New(arrow.PrimitiveTypes.Int64)}
	_, err := NewSeries(a, NewIndex(b, ""), "x")
	assert.Error(t, err)
}

func TestSeriesOutput(t *testing.T) {
	labels := sliceColumn{[]any{"a", "b"}, dtype.New(arrow.BinaryTypes.String)}
	counts := sliceColumn{[]any{int64(3), int64(1)}, dtype.New(arrow.PrimitiveTypes.Int64)}
	s, err := NewSeries(counts, NewIndex(labels, "word"), "count")
	require.NoError(t, err)

	raw, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"count","dtype":"int64[arrow]","items":[{"label":"a","value":3},{"label":"b","value":1}]}`, string(raw))

	var buf bytes.Buffer
	s.Render(&buf)
	assert.Contains(t, buf.String(), "word")
	assert.Contains(t, buf.String(), "int64[arrow]")
}
