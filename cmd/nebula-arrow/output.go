package main

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/ajitpratap0/nebula-arrow/pkg/columnar"
	"github.com/ajitpratap0/nebula-arrow/pkg/frame"
)

// Stat is one reduction result. Error is set instead of Value when the
// reduction does not apply to the column's dtype.
type Stat struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Description summarises a column. Non-finite float results are carried
// as strings since JSON has no encoding for them.
type Description struct {
	DType  string `json:"dtype"`
	Length int    `json:"length"`
	Nulls  int    `json:"nulls"`
	Stats  []Stat `json:"stats"`
}

func describe(arr *columnar.Array) Description {
	d := Description{
		DType:  arr.DType().String(),
		Length: arr.Len(),
		Nulls:  arr.NullCount(),
	}
	for _, name := range columnar.Reductions() {
		v, err := arr.Reduce(name, true)
		if err != nil {
			d.Stats = append(d.Stats, Stat{Name: string(name), Error: err.Error()})
			continue
		}
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = fmt.Sprint(f)
		}
		d.Stats = append(d.Stats, Stat{Name: string(name), Value: v})
	}
	return d
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) writeSeries(s *frame.Series) error {
	if a.format() == formatJSON {
		return a.writeJSON(s)
	}
	s.Render(a.out)
	return nil
}

func (a *app) writeRows(header []string, rows [][]string) error {
	if a.format() == formatJSON {
		records := make([]map[string]string, len(rows))
		for i, row := range rows {
			records[i] = make(map[string]string, len(header))
			for j, h := range header {
				records[i][h] = row[j]
			}
		}
		return a.writeJSON(records)
	}
	table := tablewriter.NewWriter(a.out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func (a *app) writeDescription(d Description) error {
	if a.format() == formatJSON {
		return a.writeJSON(d)
	}
	rows := [][]string{
		{"dtype", d.DType},
		{"length", fmt.Sprint(d.Length)},
		{"nulls", fmt.Sprint(d.Nulls)},
	}
	for _, st := range d.Stats {
		if st.Error != "" {
			rows = append(rows, []string{st.Name, "n/a"})
			continue
		}
		rows = append(rows, []string{st.Name, fmt.Sprint(st.Value)})
	}
	return a.writeRows([]string{"statistic", "value"}, rows)
}
