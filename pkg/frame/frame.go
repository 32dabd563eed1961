// Package frame provides the labelled one-dimensional containers returned
// by columnar operations that produce keyed results, such as value counts.
package frame

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// Column is the read surface frame needs from an array.
type Column interface {
	Len() int
	At(i int) (any, error)
	DType() dtype.DType
}

// Index labels the rows of a Series.
type Index struct {
	name   string
	values Column
}

// NewIndex wraps values as an index.
func NewIndex(values Column, name string) *Index {
	return &Index{name: name, values: values}
}

func (ix *Index) Name() string       { return ix.name }
func (ix *Index) Len() int           { return ix.values.Len() }
func (ix *Index) Values() Column     { return ix.values }
func (ix *Index) DType() dtype.DType { return ix.values.DType() }

// Label returns the label at position i.
func (ix *Index) Label(i int) any {
	v, err := ix.values.At(i)
	if err != nil {
		return dtype.NA
	}
	return v
}

// Position returns the first position holding label, or -1. NA matches NA.
func (ix *Index) Position(label any) int {
	for i := 0; i < ix.Len(); i++ {
		if sameLabel(ix.Label(i), label) {
			return i
		}
	}
	return -1
}

func sameLabel(a, b any) bool {
	if dtype.IsNA(a) || dtype.IsNA(b) {
		return dtype.IsNA(a) && dtype.IsNA(b)
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

// Series is a named column aligned with an Index.
type Series struct {
	name   string
	index  *Index
	values Column
}

// NewSeries pairs values with index. Both must have the same length.
func NewSeries(values Column, index *Index, name string) (*Series, error) {
	if index != nil && index.Len() != values.Len() {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"Length of values (%d) does not match length of index (%d)", values.Len(), index.Len())
	}
	return &Series{name: name, index: index, values: values}, nil
}

func (s *Series) Name() string   { return s.name }
func (s *Series) Index() *Index  { return s.index }
func (s *Series) Values() Column { return s.values }
func (s *Series) Len() int       { return s.values.Len() }

// Get returns the value for label.
func (s *Series) Get(label any) (any, bool) {
	if s.index == nil {
		i, ok := label.(int)
		if !ok || i < 0 || i >= s.Len() {
			return nil, false
		}
		v, err := s.values.At(i)
		return v, err == nil
	}
	i := s.index.Position(label)
	if i < 0 {
		return nil, false
	}
	v, err := s.values.At(i)
	return v, err == nil
}

// Item is one label/value pair.
type Item struct {
	Label any `json:"label"`
	Value any `json:"value"`
}

// Items lists the pairs in order. Without an index labels are positions.
func (s *Series) Items() []Item {
	out := make([]Item, s.Len())
	for i := range out {
		var label any = i
		if s.index != nil {
			label = s.index.Label(i)
		}
		v, err := s.values.At(i)
		if err != nil {
			v = dtype.NA
		}
		out[i] = Item{Label: label, Value: v}
	}
	return out
}

// MarshalJSON encodes the series as its name, dtype and items.
func (s *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		DType string `json:"dtype"`
		Items []Item `json:"items"`
	}{s.name, s.values.DType().String(), s.Items()})
}

// Render writes the series as a two column table.
func (s *Series) Render(w io.Writer) {
	labelHeader := "index"
	if s.index != nil && s.index.Name() != "" {
		labelHeader = s.index.Name()
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{labelHeader, s.name})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, it := range s.Items() {
		table.Append([]string{fmt.Sprint(it.Label), fmt.Sprint(it.Value)})
	}
	table.SetFooter([]string{"dtype", s.values.DType().String()})
	table.Render()
}
