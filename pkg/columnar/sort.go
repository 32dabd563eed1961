package columnar

import (
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/frame"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

var nullPlacements = map[string]kernels.NullPlacement{
	"last":  kernels.AtEnd,
	"first": kernels.AtStart,
}

// Argsort returns the stable permutation that sorts the array. naPosition
// is "last" or "first".
func (a *Array) Argsort(ascending bool, naPosition string) ([]int, error) {
	placement, ok := nullPlacements[naPosition]
	if !ok {
		degrade("argsort", "null_placement", a.DType())
		return a.argsortGeneric(ascending, naPosition)
	}
	if !capability.Current().Supports(kernels.SortIndicesKernel) {
		degrade("argsort", "capability", a.DType())
		return a.argsortGeneric(ascending, naPosition)
	}

	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.SortIndices(a.ctx(), arr, kernels.SortOptions{Descending: !ascending, NullPlacement: placement})
	if err != nil {
		if isNotImplemented(err) {
			degrade("argsort", "type", a.DType())
			return a.argsortGeneric(ascending, naPosition)
		}
		return nil, translate(err, "argsort", a.DType())
	}
	return out, nil
}

// argsortGeneric sorts materialized values; NaN is placed with the
// missing values.
func (a *Array) argsortGeneric(ascending bool, naPosition string) ([]int, error) {
	if _, ok := nullPlacements[naPosition]; !ok {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation, "invalid na_position: %s", naPosition)
	}
	values := a.Values()
	var present, missing []int
	for i, v := range values {
		if isMissingOrNaN(v) {
			missing = append(missing, i)
			continue
		}
		present = append(present, i)
	}

	var cmpErr error
	sort.SliceStable(present, func(i, j int) bool {
		c, ok := orderNatives(values[present[i]], values[present[j]])
		if !ok && cmpErr == nil {
			cmpErr = nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "cannot sort values of type %s", a.DType())
		}
		if !ascending {
			c = -c
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	if naPosition == "first" {
		return append(missing, present...), nil
	}
	return append(present, missing...), nil
}

func isMissingOrNaN(v any) bool {
	if dtype.IsNA(v) {
		return true
	}
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

// ArgMin returns the position of the smallest value.
func (a *Array) ArgMin(skipNA bool) (int, error) { return a.argExtreme("argmin", "min", skipNA) }

// ArgMax returns the position of the largest value.
func (a *Array) ArgMax(skipNA bool) (int, error) { return a.argExtreme("argmax", "max", skipNA) }

func (a *Array) argExtreme(op, kernel string, skipNA bool) (int, error) {
	if a.Len() == 0 || a.NullCount() == a.Len() {
		return 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
			"attempt to get %s of an empty sequence", op)
	}
	if !skipNA && a.HasNA() {
		return 0, unsupported("%s with skipna=False is not supported when the array has missing values", op)
	}

	view, err := a.viewAs(isDuration)
	if err != nil {
		return 0, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return 0, err
	}
	defer arr.Release()

	ctx := a.ctx()
	sc, err := kernels.Aggregate(ctx, arr, kernel, kernels.AggregateOptions{SkipNulls: true, MinCount: 1})
	if err != nil {
		return 0, translate(err, op, a.DType())
	}
	pos, err := kernels.Index(ctx, arr, sc)
	if err != nil {
		return 0, translate(err, op, a.DType())
	}
	return int(pos), nil
}

// Unique returns the distinct values in order of first appearance.
func (a *Array) Unique() (*Array, error) {
	view, err := a.viewAs(isDuration)
	if err != nil {
		return nil, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.Unique(a.ctx(), arr)
	if err != nil {
		return nil, translate(err, "unique", a.DType())
	}
	return view.restore(a.wrap(out))
}

// ValueCounts counts occurrences per distinct value, in order of first
// appearance. The result is an int64 series named "count" indexed by the
// values; missing values form their own entry unless dropNA is set.
func (a *Array) ValueCounts(dropNA bool) (*frame.Series, error) {
	view, err := a.viewAs(isDuration)
	if err != nil {
		return nil, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	values, counts, err := kernels.ValueCounts(a.ctx(), arr)
	if err != nil {
		return nil, translate(err, "value_counts", a.DType())
	}
	index, err := view.restore(a.wrap(values))
	if err != nil {
		return nil, err
	}
	if dropNA && index.HasNA() {
		keep := index.IsNA()
		kept := counts[:0:0]
		for i, na := range keep {
			keep[i] = !na
			if !na {
				kept = append(kept, counts[i])
			}
		}
		dropped, err := index.filter(keep)
		index.Release()
		if err != nil {
			return nil, err
		}
		index, counts = dropped, kept
	}

	b := array.NewInt64Builder(a.mem)
	defer b.Release()
	b.AppendValues(counts, nil)
	countArr := a.wrap(b.NewArray())
	return frame.NewSeries(countArr, frame.NewIndex(index, ""), "count")
}

// Factorize encodes the array as codes into its distinct values. With
// useNASentinel missing values get code -1 and are left out of uniques;
// otherwise they are encoded like any other value.
func (a *Array) Factorize(useNASentinel bool) ([]int, *Array, error) {
	view, err := a.viewAs(isDuration)
	if err != nil {
		return nil, nil, err
	}
	defer view.release()
	arr, err := view.view.combined()
	if err != nil {
		return nil, nil, err
	}
	defer arr.Release()

	nulls := kernels.NullEncode
	if useNASentinel {
		nulls = kernels.NullMask
	}
	codes, dict, err := kernels.DictionaryEncode(a.ctx(), arr, nulls)
	if err != nil {
		return nil, nil, translate(err, "factorize", a.DType())
	}
	defer codes.Release()

	out := make([]int, codes.Len())
	for i := range out {
		if codes.IsNull(i) {
			out[i] = -1
			continue
		}
		out[i] = int(codes.Value(i))
	}
	uniques, err := view.restore(a.wrap(dict))
	if err != nil {
		return nil, nil, err
	}
	return out, uniques, nil
}

// SearchSorted finds the insertion points of value, a scalar or a
// sequence, that keep the array sorted. side is "left" or "right"; sorter,
// when non-nil, is the permutation that sorts the array.
func (a *Array) SearchSorted(value any, side string, sorter []int) ([]int, error) {
	if a.HasNA() {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeValidation,
			"searchsorted requires array to be sorted, which is impossible with NAs present.")
	}
	if side != "left" && side != "right" {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"side must be 'left' or 'right', got '%s'", side)
	}
	values := a.Values()
	if sorter != nil {
		checked, err := checkSorter(sorter, len(values))
		if err != nil {
			return nil, err
		}
		sorted := make([]any, len(values))
		for i, p := range checked {
			sorted[i] = values[p]
		}
		values = sorted
	}

	needles, isSeq := dtype.ToSlice(value)
	if !isSeq {
		needles = []any{value}
	}
	out := make([]int, len(needles))
	for k, needle := range needles {
		var cmpErr error
		out[k] = sort.Search(len(values), func(i int) bool {
			c, ok := orderNatives(values[i], needle)
			if !ok && cmpErr == nil {
				cmpErr = nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
					"Invalid comparison between dtype=%s and %T", a.DType(), needle)
			}
			if side == "left" {
				return c >= 0
			}
			return c > 0
		})
		if cmpErr != nil {
			return nil, cmpErr
		}
	}
	return out, nil
}

func checkSorter(sorter []int, n int) ([]int, error) {
	if len(sorter) != n {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"sorter length %d does not match array length %d", len(sorter), n)
	}
	for _, p := range sorter {
		if p < 0 || p >= n {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeIndex,
				"index %d is out of bounds for axis 0 with size %d", p, n)
		}
	}
	return sorter, nil
}

// IsIn reports, per element, whether it occurs in values. A missing
// element matches a missing entry of values.
func (a *Array) IsIn(values any) (*BooleanArray, error) {
	set, err := FromSequence(values, nil, false, WithAllocator(a.mem))
	if err != nil {
		return a.isInNative(values)
	}
	defer set.Release()
	if set.Len() == 0 {
		return &BooleanArray{Values: make([]bool, a.Len())}, nil
	}

	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	setArr, err := set.combined()
	if err != nil {
		return nil, err
	}
	defer setArr.Release()

	out, err := kernels.IsIn(a.ctx(), arr, setArr, false)
	if err != nil {
		return a.isInNative(values)
	}
	defer out.Release()
	return booleanFrom(out), nil
}

func (a *Array) isInNative(values any) (*BooleanArray, error) {
	set, ok := dtype.ToSlice(values)
	if !ok {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
			"only list-like objects are allowed to be passed to isin(), you passed a %T", values)
	}
	out := &BooleanArray{Values: make([]bool, a.Len())}
	for i, v := range a.Values() {
		for _, s := range set {
			if dtype.IsNA(v) || s == nil || dtype.IsNA(s) {
				if dtype.IsNA(v) && (s == nil || dtype.IsNA(s)) {
					out.Values[i] = true
					break
				}
				continue
			}
			if eq, _ := compareNatives(v, s, Eq); eq {
				out.Values[i] = true
				break
			}
		}
	}
	return out, nil
}
