package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `n,label,wait
3,b,1s
,a,2s
1,b,
3,,500ms
2,c,1m
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	return out.String(), err
}

type seriesJSON struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Items []struct {
		Label any `json:"label"`
		Value any `json:"value"`
	} `json:"items"`
}

func decodeSeries(t *testing.T, out string) seriesJSON {
	t.Helper()
	var s seriesJSON
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	return s
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nebula-arrow v"+version)
	assert.Contains(t, out, "arrow-go:")
}

func TestKernels(t *testing.T) {
	out, err := run(t, "kernels")
	require.NoError(t, err)
	assert.Contains(t, out, "sort_indices")
	assert.Contains(t, out, "kernel")

	cfg := writeFile(t, "config.yaml", "capability:\n  overrides:\n    rank: unsupported\n")
	out, err = run(t, "kernels", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	levels := map[string]string{}
	for _, r := range rows {
		levels[r["kernel"]] = r["level"]
	}
	assert.Equal(t, "unsupported", levels["rank"])
}

func TestDescribe(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	out, err := run(t, "describe", path, "--column", "n", "--format", "json")
	require.NoError(t, err)
	var d Description
	require.NoError(t, json.Unmarshal([]byte(out), &d), out)
	assert.Equal(t, "int64[arrow]", d.DType)
	assert.Equal(t, 5, d.Length)
	assert.Equal(t, 1, d.Nulls)

	stats := map[string]Stat{}
	for _, st := range d.Stats {
		stats[st.Name] = st
	}
	assert.Len(t, stats, 13)
	assert.EqualValues(t, 9, stats["sum"].Value)
	assert.EqualValues(t, 1, stats["min"].Value)
	assert.EqualValues(t, 2.25, stats["mean"].Value)
	assert.Empty(t, stats["max"].Error)

	out, err = run(t, "describe", path, "-c", "label")
	require.NoError(t, err)
	assert.Contains(t, out, "utf8[arrow]")
	assert.Contains(t, out, "n/a")
}

func TestDescribeExplicitDType(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	out, err := run(t, "describe", path, "-c", "wait", "--dtype", "duration[ms]", "--format", "json")
	require.NoError(t, err)
	var d Description
	require.NoError(t, json.Unmarshal([]byte(out), &d), out)
	assert.Equal(t, "duration[ms][arrow]", d.DType)
	assert.Equal(t, 1, d.Nulls)
	for _, st := range d.Stats {
		if st.Name == "max" {
			assert.EqualValues(t, 60_000_000_000, st.Value)
		}
	}

	_, err = run(t, "describe", path, "-c", "label", "--dtype", "int64")
	assert.Error(t, err)
}

func TestValueCounts(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	out, err := run(t, "value-counts", path, "-c", "n", "--format", "json")
	require.NoError(t, err)
	s := decodeSeries(t, out)
	assert.Equal(t, "count", s.Name)
	require.Len(t, s.Items, 4)
	assert.EqualValues(t, 3, s.Items[0].Label)
	assert.EqualValues(t, 2, s.Items[0].Value)
	assert.Nil(t, s.Items[1].Label)

	out, err = run(t, "value-counts", path, "-c", "n", "--dropna", "--format", "json")
	require.NoError(t, err)
	assert.Len(t, decodeSeries(t, out).Items, 3)

	out, err = run(t, "value-counts", path, "-c", "label")
	require.NoError(t, err)
	assert.Contains(t, out, "count")
	assert.Contains(t, out, "int64[arrow]")
}

func TestRank(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	out, err := run(t, "rank", path, "-c", "n", "--method", "min", "--format", "json")
	require.NoError(t, err)
	s := decodeSeries(t, out)
	assert.Equal(t, "rank", s.Name)
	var ranks []any
	for _, it := range s.Items {
		ranks = append(ranks, it.Value)
	}
	assert.Equal(t, []any{float64(3), nil, float64(1), float64(3), float64(2)}, ranks)

	out, err = run(t, "rank", path, "-c", "n", "--pct", "--descending", "--na-option", "top", "--format", "json")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, decodeSeries(t, out).Items[1].Value, 1e-12)

	_, err = run(t, "rank", path, "-c", "n", "--method", "median")
	assert.Error(t, err)
}

func TestUnique(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	out, err := run(t, "unique", path, "-c", "label", "--format", "json")
	require.NoError(t, err)
	var values []any
	for _, it := range decodeSeries(t, out).Items {
		values = append(values, it.Value)
	}
	assert.Equal(t, []any{"b", "a", nil, "c"}, values)
}

func TestSort(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	for _, override := range []string{"", "capability:\n  overrides:\n    sort_indices: unsupported\n"} {
		args := []string{"sort", path, "-c", "n", "--format", "json"}
		if override != "" {
			args = append(args, "--config", writeFile(t, "config.yaml", override))
		}
		out, err := run(t, args...)
		require.NoError(t, err)
		var labels, values []any
		for _, it := range decodeSeries(t, out).Items {
			labels = append(labels, it.Label)
			values = append(values, it.Value)
		}
		assert.Equal(t, []any{float64(2), float64(4), float64(0), float64(3), float64(1)}, labels)
		assert.Equal(t, []any{float64(1), float64(2), float64(3), float64(3), nil}, values)
	}

	out, err := run(t, "sort", path, "-c", "n", "--descending", "--na-position", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "row")
}

func TestErrors(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)

	tests := []struct {
		name string
		args []string
	}{
		{"missing column flag", []string{"unique", path}},
		{"unknown column", []string{"unique", path, "-c", "nope"}},
		{"missing file", []string{"unique", filepath.Join(t.TempDir(), "none.csv"), "-c", "n"}},
		{"unknown format", []string{"unique", path, "-c", "n", "--format", "xml"}},
		{"bad log level", []string{"unique", path, "-c", "n", "--log-level", "loud"}},
		{"bad config", []string{"unique", path, "-c", "n", "--config", writeFile(t, "bad.yaml", "compute:\n  default_ddof: -1\n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverridesFormat(t *testing.T) {
	path := writeFile(t, "sample.csv", sample)
	t.Setenv("NEBULA_ARROW_FORMAT", "json")

	out, err := run(t, "unique", path, "-c", "n")
	require.NoError(t, err)
	assert.Equal(t, "unique", decodeSeries(t, out).Name)
}
