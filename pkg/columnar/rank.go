package columnar

import (
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-arrow/pkg/pool"
)

// RankOptions configures Rank.
type RankOptions struct {
	// Axis must be 0 for the vectorized path.
	Axis int
	// Method is one of average, min, max, first or dense.
	Method string
	// NAOption is keep, top or bottom.
	NAOption  string
	Ascending bool
	// Pct reports ranks as a fraction of the ranked count.
	Pct bool
}

// DefaultRankOptions ranks ascending with averaged ties, keeping missing
// values missing.
func DefaultRankOptions() RankOptions {
	return RankOptions{Method: "average", NAOption: "keep", Ascending: true}
}

var tiebreakers = map[string]kernels.Tiebreaker{
	"average": kernels.TiebreakMin,
	"min":     kernels.TiebreakMin,
	"max":     kernels.TiebreakMax,
	"first":   kernels.TiebreakFirst,
	"dense":   kernels.TiebreakDense,
}

func (o RankOptions) validate() error {
	if _, ok := tiebreakers[o.Method]; !ok {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"method must be one of average, min, max, first, dense; got '%s'", o.Method)
	}
	switch o.NAOption {
	case "keep", "top", "bottom":
		return nil
	}
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
		"na_option must be one of 'keep', 'top', or 'bottom'; got '%s'", o.NAOption)
}

// floatRanks reports whether ranks are fractional.
func (o RankOptions) floatRanks() bool { return o.Method == "average" || o.Pct }

// Rank assigns 1-based ranks. The result is float64 for average or pct
// ranking and uint64 otherwise.
func (a *Array) Rank(opts RankOptions) (*Array, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Axis != 0 {
		degrade("rank", "axis", a.DType())
		return a.rankGeneric(opts)
	}
	if !capability.Current().Supports(kernels.RankKernel) {
		degrade("rank", "capability", a.DType())
		return a.rankGeneric(opts)
	}

	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	sortOpts := kernels.SortOptions{Descending: !opts.Ascending}
	if opts.NAOption == "top" {
		sortOpts.NullPlacement = kernels.AtStart
	}
	ctx := a.ctx()
	low, err := kernels.Rank(ctx, arr, kernels.RankOptions{SortOptions: sortOpts, Tiebreaker: tiebreakers[opts.Method]})
	if err != nil {
		if isNotImplemented(err) {
			degrade("rank", "type", a.DType())
			return a.rankGeneric(opts)
		}
		return nil, translate(err, "rank", a.DType())
	}

	ranks := make([]float64, len(low))
	for i, r := range low {
		ranks[i] = float64(r)
	}
	if opts.Method == "average" {
		high, err := kernels.Rank(ctx, arr, kernels.RankOptions{SortOptions: sortOpts, Tiebreaker: kernels.TiebreakMax})
		if err != nil {
			return nil, translate(err, "rank", a.DType())
		}
		for i := range ranks {
			ranks[i] = (ranks[i] + float64(high[i])) / 2
		}
	}

	var valid []bool
	if opts.NAOption == "keep" && arr.NullN() > 0 {
		valid = make([]bool, arr.Len())
		for i := range valid {
			valid[i] = arr.IsValid(i)
		}
	}
	return a.encodeRanks(ranks, valid, opts)
}

// rankGeneric ranks the materialized values. NaN sorts after every other
// value and ties with itself; missing values are ranked per NAOption.
func (a *Array) rankGeneric(opts RankOptions) (*Array, error) {
	values := a.Values()
	n := len(values)
	class := func(v any) int {
		if dtype.IsNA(v) {
			return 2
		}
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			return 1
		}
		if f, ok := v.(float32); ok && math.IsNaN(float64(f)) {
			return 1
		}
		return 0
	}
	compare := func(x, y any) (int, error) {
		cx, cy := class(x), class(y)
		if cx != cy {
			if opts.NAOption == "top" {
				return cy - cx, nil
			}
			return cx - cy, nil
		}
		if cx != 0 {
			return 0, nil
		}
		c, ok := orderNatives(x, y)
		if !ok {
			return 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
				"cannot rank values of type %s", a.DType())
		}
		if !opts.Ascending {
			c = -c
		}
		return c, nil
	}

	positions := pool.GetPositions(n)
	defer pool.PutPositions(positions)
	order := *positions
	var cmpErr error
	sort.SliceStable(order, func(i, j int) bool {
		c, err := compare(values[order[i]], values[order[j]])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}

	ranks := make([]float64, n)
	dense := 0.0
	for start := 0; start < n; {
		end := start
		for end+1 < n {
			c, _ := compare(values[order[start]], values[order[end+1]])
			if c != 0 {
				break
			}
			end++
		}
		dense++
		for k := start; k <= end; k++ {
			var r float64
			switch opts.Method {
			case "average":
				r = float64(start+end+2) / 2
			case "min":
				r = float64(start + 1)
			case "max":
				r = float64(end + 1)
			case "first":
				r = float64(k + 1)
			case "dense":
				r = dense
			}
			ranks[order[k]] = r
		}
		start = end + 1
	}

	var valid []bool
	if opts.NAOption == "keep" && a.HasNA() {
		valid = make([]bool, n)
		for i, v := range values {
			valid[i] = !dtype.IsNA(v)
		}
	}
	return a.encodeRanks(ranks, valid, opts)
}

// encodeRanks applies pct scaling and builds the result array. valid, when
// non-nil, marks ranks to keep.
func (a *Array) encodeRanks(ranks []float64, valid []bool, opts RankOptions) (*Array, error) {
	if opts.Pct {
		divisor := 0.0
		for i, r := range ranks {
			if valid != nil && !valid[i] {
				continue
			}
			if opts.Method == "dense" {
				divisor = math.Max(divisor, r)
			} else {
				divisor++
			}
		}
		for i := range ranks {
			ranks[i] /= divisor
		}
	}

	var out arrow.Array
	if opts.floatRanks() {
		b := array.NewFloat64Builder(a.mem)
		defer b.Release()
		b.AppendValues(ranks, valid)
		out = b.NewArray()
	} else {
		ints := make([]uint64, len(ranks))
		for i, r := range ranks {
			ints[i] = uint64(r)
		}
		b := array.NewUint64Builder(a.mem)
		defer b.Release()
		b.AppendValues(ints, valid)
		out = b.NewArray()
	}
	return a.wrap(out), nil
}
