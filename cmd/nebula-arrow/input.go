package main

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-arrow/pkg/columnar"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
)

// columnSource names the column to load and how to type it.
type columnSource struct {
	path   string
	column string
	dtype  string
	comma  string
}

// load reads the column into an Array. Without an explicit dtype the
// column type is inferred by the CSV reader and null tokens come from the
// configuration; with one the raw strings are parsed under that type.
func (s columnSource) load(nullTokens []string) (*columnar.Array, error) {
	f, err := os.Open(s.path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	opts := []csv.Option{
		csv.WithHeader(true),
		csv.WithChunk(-1),
		csv.WithIncludeColumns([]string{s.column}),
	}
	if s.comma != "" {
		opts = append(opts, csv.WithComma([]rune(s.comma)[0]))
	}

	var target arrow.DataType
	if s.dtype != "" {
		dt, err := dtype.Parse(s.dtype)
		if err != nil {
			return nil, err
		}
		target = dt.Arrow()
		opts = append(opts, csv.WithColumnTypes(map[string]arrow.DataType{s.column: arrow.BinaryTypes.String}))
	} else {
		opts = append(opts, csv.WithNullReader(true, nullTokens...))
	}

	r := csv.NewInferringReader(f, opts...)
	defer r.Release()

	var chunks []arrow.Array
	defer func() {
		for _, c := range chunks {
			c.Release()
		}
	}()
	for r.Next() {
		rec := r.Record()
		if rec.NumCols() != 1 {
			return nil, fmt.Errorf("column %q not found in %s", s.column, s.path)
		}
		col := rec.Column(0)
		col.Retain()
		chunks = append(chunks, col)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("column %q not found in %s", s.column, s.path)
	}

	logger.Debug("column loaded",
		zap.String("path", s.path),
		zap.String("column", s.column),
		zap.Int("chunks", len(chunks)))

	if target != nil {
		var strs []string
		for _, c := range chunks {
			sa := c.(*array.String)
			for i := 0; i < sa.Len(); i++ {
				strs = append(strs, sa.Value(i))
			}
		}
		return columnar.FromStrings(strs, target, false)
	}

	chunked := arrow.NewChunked(chunks[0].DataType(), chunks)
	defer chunked.Release()
	arr, err := columnar.FromBuffer(chunked)
	if err != nil {
		return nil, err
	}
	// The reader falls back to binary for text it cannot type.
	if chunked.DataType().ID() == arrow.BINARY {
		defer arr.Release()
		return arr.Cast(arrow.BinaryTypes.String)
	}
	return arr, nil
}
