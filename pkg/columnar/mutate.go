package columnar

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/indexer"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// SetItem assigns value at key and swaps the receiver onto a new buffer.
// Other arrays sharing the old buffer are unaffected. value is a scalar,
// broadcast to every selected position, or a sequence with one element
// per selected position.
func (a *Array) SetItem(key, value any) error {
	key, err := indexer.Unwrap(key)
	if err != nil {
		return err
	}
	var nk indexer.Key
	switch k := key.(type) {
	case *BooleanArray:
		nk = indexer.Key{Kind: indexer.KindMask, Mask: k.Filled(false)}
	case *Array:
		nk, err = a.keyFromArray(k)
	default:
		nk, err = indexer.Normalize(key, a.Len())
	}
	if err != nil {
		return err
	}

	var next *Array
	switch {
	case nk.Kind == indexer.KindSlice && nk.IsFull(a.Len()):
		next, err = a.setAll(value)
	case nk.Kind == indexer.KindPosition:
		if !isScalarValue(value) {
			return nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "setting an array element with a sequence.")
		}
		mask := make([]bool, a.Len())
		mask[nk.Position] = true
		next, err = a.setScalar(mask, value, 1)
	case nk.Kind == indexer.KindMask:
		next, err = a.setMask(nk.Mask, value)
	default:
		next, err = a.setPositions(nk.ToPositions(), value)
	}
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	old := a.data
	a.data = next.data
	old.Release()
	logger.Debug("swapped array buffer", zap.String("dtype", a.DType().String()), zap.Int("length", a.Len()))
	return nil
}

func (a *Array) keyFromArray(k *Array) (indexer.Key, error) {
	if k.DType().Kind() == dtype.KindBool {
		mask := make([]bool, k.Len())
		for i, v := range k.Values() {
			mask[i], _ = v.(bool)
		}
		if err := indexer.CheckMask(mask, a.Len()); err != nil {
			return indexer.Key{}, err
		}
		return indexer.Key{Kind: indexer.KindMask, Mask: mask}, nil
	}
	if k.HasNA() {
		return indexer.Key{}, nebulaerrors.New(nebulaerrors.ErrorTypeValidation,
			"Cannot index with an integer indexer containing NA values")
	}
	return indexer.Normalize(k.Values(), a.Len())
}

// setAll replaces every element.
func (a *Array) setAll(value any) (*Array, error) {
	n := a.Len()
	if isScalarValue(value) {
		mask := make([]bool, n)
		for i := range mask {
			mask[i] = true
		}
		return a.setScalar(mask, value, n)
	}
	repl, err := a.coerceSequence(value)
	if err != nil {
		return nil, err
	}
	if repl.Len() != n {
		repl.Release()
		return nil, lengthMismatch(n, repl.Len())
	}
	return repl, nil
}

func (a *Array) setScalar(mask []bool, value any, count int) (*Array, error) {
	if count == 0 {
		return nil, nil
	}
	sc, err := a.coerceScalar(value)
	if err != nil {
		return nil, err
	}
	return a.replaceScalar(mask, sc, count)
}

func (a *Array) setMask(mask []bool, value any) (*Array, error) {
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	if isScalarValue(value) {
		return a.setScalar(mask, value, count)
	}
	repl, err := a.coerceSequence(value)
	if err != nil {
		return nil, err
	}
	defer repl.Release()
	switch repl.Len() {
	case count:
	case a.Len():
		positions := make([]int, 0, count)
		for i, m := range mask {
			if m {
				positions = append(positions, i)
			}
		}
		picked, err := repl.takePositions(positions)
		if err != nil {
			return nil, err
		}
		defer picked.Release()
		repl = picked
	default:
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"NumPy boolean array indexing assignment cannot assign %d input values to the %d output values where the mask is true",
			repl.Len(), count)
	}
	if count == 0 {
		return nil, nil
	}
	arr, err := repl.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	return replaceWithMask(a, mask, arr)
}

// setPositions writes values at arbitrary positions. Positions are
// applied in ascending order; for a repeated position the last value wins.
func (a *Array) setPositions(positions []int, value any) (*Array, error) {
	if len(positions) == 0 {
		return nil, nil
	}
	mask := make([]bool, a.Len())
	if isScalarValue(value) {
		count := 0
		for _, p := range positions {
			if !mask[p] {
				mask[p] = true
				count++
			}
		}
		return a.setScalar(mask, value, count)
	}

	repl, err := a.coerceSequence(value)
	if err != nil {
		return nil, err
	}
	defer repl.Release()
	if repl.Len() != len(positions) {
		return nil, lengthMismatch(len(positions), repl.Len())
	}

	last := make(map[int]int, len(positions))
	for j, p := range positions {
		last[p] = j
	}
	order := make([]int, 0, len(last))
	for p := range last {
		order = append(order, p)
		mask[p] = true
	}
	sort.Ints(order)
	picks := make([]int, len(order))
	for k, p := range order {
		picks[k] = last[p]
	}
	ordered, err := repl.takePositions(picks)
	if err != nil {
		return nil, err
	}
	defer ordered.Release()
	arr, err := ordered.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	return replaceWithMask(a, mask, arr)
}

func lengthMismatch(want, got int) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
		"Length of indexer and values mismatch: expected %d values, got %d", want, got)
}

// coerceScalar converts a native value to a scalar of the array's type.
// nil and dtype.NA give a null scalar.
func (a *Array) coerceScalar(value any) (scalar.Scalar, error) {
	dt := a.data.DataType()
	if value == nil || dtype.IsNA(value) {
		return scalar.MakeNullScalar(dt), nil
	}
	sc, err := dtype.ScalarFromNative(a.mem, dt, value)
	if err != nil {
		return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion,
			"Invalid value '%v' for dtype %s", value, a.DType())
	}
	return sc, nil
}

// coerceSequence converts a sequence to an *Array of the array's type.
func (a *Array) coerceSequence(value any) (*Array, error) {
	out, err := FromSequence(value, a.data.DataType(), false, WithAllocator(a.mem))
	if err != nil {
		return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion,
			"Invalid values for dtype %s", a.DType())
	}
	return out, nil
}

// IfElse picks from left where cond is true and from right where it is
// false; missing conditions give missing values. left and right are
// *Array values of the condition's length or scalars. When the operands
// do not share a type the choice is made element by element and the
// result type is inferred.
func IfElse(cond *BooleanArray, left, right any, opts ...Option) (*Array, error) {
	o := buildOptions(opts)
	dt, err := operandType(left, right)
	if err != nil {
		return nil, err
	}
	l, err := broadcastable(o.mem, left, dt)
	if err != nil {
		return ifElseNative(o.mem, cond, left, right)
	}
	defer l.Release()
	r, err := broadcastable(o.mem, right, dt)
	if err != nil {
		return ifElseNative(o.mem, cond, left, right)
	}
	defer r.Release()

	c := cond.rawArray(o.mem)
	defer c.Release()
	ctx := kernels.WithAllocator(context.Background(), o.mem)
	out, err := kernels.IfElse(ctx, c, l, r)
	if err != nil {
		if isNotImplemented(err) {
			return ifElseNative(o.mem, cond, left, right)
		}
		return nil, translate(err, "if_else", dtype.New(dt))
	}
	return FromArrow(out, WithAllocator(o.mem))
}

// operandType is the type of the first *Array operand, or the type
// inferred from the scalars.
func operandType(left, right any) (arrow.DataType, error) {
	for _, v := range []any{left, right} {
		if arr, ok := v.(*Array); ok {
			return arr.data.DataType(), nil
		}
	}
	return dtype.InferType([]any{left, right})
}

// broadcastable converts an operand to an arrow array of type dt. Scalars
// become length-one arrays.
func broadcastable(mem memory.Allocator, v any, dt arrow.DataType) (arrow.Array, error) {
	if arr, ok := v.(*Array); ok {
		if !arrow.TypeEqual(arr.data.DataType(), dt) {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "operand type %s does not match %s", arr.DType(), dtype.New(dt))
		}
		return arr.combined()
	}
	if v == nil || dtype.IsNA(v) {
		return array.MakeArrayOfNull(mem, dt, 1), nil
	}
	return dtype.BuildArray(mem, dt, []any{v})
}

func ifElseNative(mem memory.Allocator, cond *BooleanArray, left, right any) (*Array, error) {
	pick := func(v any, i int) (any, error) {
		if arr, ok := v.(*Array); ok {
			return arr.At(i)
		}
		if v == nil {
			return dtype.NA, nil
		}
		return v, nil
	}
	values := make([]any, cond.Len())
	for i := range values {
		side := right
		switch c := cond.At(i).(type) {
		case bool:
			if c {
				side = left
			}
		default:
			values[i] = dtype.NA
			continue
		}
		v, err := pick(side, i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	var target arrow.DataType
	if arr, ok := left.(*Array); ok {
		target = arr.data.DataType()
	}
	arr, err := buildNative(mem, values, target)
	if err != nil {
		return nil, err
	}
	return FromArrow(arr, WithAllocator(mem))
}

// rawArray builds the arrow boolean array of b.
func (b *BooleanArray) rawArray(mem memory.Allocator) *array.Boolean {
	bb := array.NewBooleanBuilder(mem)
	defer bb.Release()
	var valid []bool
	if b.Mask != nil {
		valid = make([]bool, len(b.Mask))
		for i, m := range b.Mask {
			valid[i] = !m
		}
	}
	bb.AppendValues(b.Values, valid)
	return bb.NewBooleanArray()
}

// ReplaceWithMask returns values with the positions where mask is true
// replaced, in order, by replacements: an *Array, a sequence with one
// element per true position, or a scalar.
func ReplaceWithMask(values *Array, mask []bool, replacements any) (*Array, error) {
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	if isScalarValue(replacements) {
		sc, err := values.coerceScalar(replacements)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return values.Pos(), nil
		}
		return values.replaceScalar(mask, sc, count)
	}
	repl, err := values.coerceSequence(replacements)
	if err != nil {
		return nil, err
	}
	defer repl.Release()
	arr, err := repl.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	return replaceWithMask(values, mask, arr)
}

// replaceWithMask is the masked assignment behind SetItem, Take and
// ReplaceWithMask. repl holds one value per true position.
func replaceWithMask(a *Array, mask []bool, repl arrow.Array) (*Array, error) {
	if len(mask) != a.Len() {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"mask has length %d, expected %d", len(mask), a.Len())
	}
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	if repl.Len() < count {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
			"replacement array must be of appropriate length (expected at least %d items, got %d)", count, repl.Len())
	}
	if !arrow.TypeEqual(repl.DataType(), a.data.DataType()) {
		cast, err := kernels.Cast(a.ctx(), repl, a.data.DataType(), true)
		if err != nil {
			return nil, translate(err, "replace_with_mask", a.DType())
		}
		defer cast.Release()
		repl = cast
	}

	switch capability.Current().Level(kernels.ReplaceWithMaskKernel) {
	case capability.Unsupported:
		return replaceNative(a, mask, repl)
	case capability.SupportedWithCaveat:
		return replaceByTake(a, mask, repl)
	}

	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	m := boolArray(a, mask).(*array.Boolean)
	defer m.Release()
	out, err := kernels.ReplaceWithMask(a.ctx(), arr, m, repl)
	if err != nil {
		if isNotImplemented(err) {
			return replaceNative(a, mask, repl)
		}
		return nil, translate(err, "replace_with_mask", a.DType())
	}
	return a.wrap(out), nil
}

// replaceByTake spreads the replacements to full length with take and
// then selects with if_else.
func replaceByTake(a *Array, mask []bool, repl arrow.Array) (*Array, error) {
	ctx := a.ctx()
	remap := make([]int, len(mask))
	next := 0
	for i, m := range mask {
		remap[i] = -1
		if m {
			remap[i] = next
			next++
		}
	}
	idx := kernels.IndicesArray(ctx, remap)
	defer idx.Release()
	spread, err := kernels.Take(ctx, repl, idx)
	if err != nil {
		return nil, translate(err, "replace_with_mask", a.DType())
	}
	defer spread.Release()

	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	cond := boolArray(a, mask).(*array.Boolean)
	defer cond.Release()
	out, err := kernels.IfElse(ctx, cond, spread, arr)
	if err != nil {
		return nil, translate(err, "replace_with_mask", a.DType())
	}
	return a.wrap(out), nil
}

func replaceNative(a *Array, mask []bool, repl arrow.Array) (*Array, error) {
	values := a.Values()
	replacements := dtype.Values(repl)
	next := 0
	for i, m := range mask {
		if m {
			values[i] = replacements[next]
			next++
		}
	}
	arr, err := dtype.BuildArray(a.mem, a.data.DataType(), values)
	if err != nil {
		return nil, translate(err, "replace_with_mask", a.DType())
	}
	return a.wrap(arr), nil
}

// FillOptions configures FillNA. Exactly one of Value and Method is set.
type FillOptions struct {
	// Value is a scalar or a sequence of the array's length.
	Value any
	// Method is pad/ffill or backfill/bfill.
	Method string
	// Limit caps how many consecutive missing values a method fills, or
	// how many missing values a Value fills in total. Zero means no limit.
	Limit int
}

var fillMethods = map[string]string{
	"pad":      kernels.FillNullForwardKernel,
	"ffill":    kernels.FillNullForwardKernel,
	"backfill": kernels.FillNullBackwardKernel,
	"bfill":    kernels.FillNullBackwardKernel,
}

// FillNA replaces missing values with a value or by propagating
// neighbouring values.
func (a *Array) FillNA(opts FillOptions) (*Array, error) {
	hasValue := opts.Value != nil && !dtype.IsNA(opts.Value)
	switch {
	case hasValue && opts.Method != "":
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "Cannot specify both 'value' and 'method'.")
	case !hasValue && opts.Method == "":
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "Must specify a fill 'value' or 'method'.")
	case opts.Limit < 0:
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "Limit must be greater than 0")
	}
	kernel := ""
	if opts.Method != "" {
		var ok bool
		if kernel, ok = fillMethods[opts.Method]; !ok {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
				"Invalid fill method. Expecting pad (ffill) or backfill (bfill). Got %s", opts.Method)
		}
	}

	var fill *Array
	var sc scalar.Scalar
	if hasValue {
		if isScalarValue(opts.Value) {
			var err error
			if sc, err = a.coerceScalar(opts.Value); err != nil {
				return nil, err
			}
		} else {
			var err error
			if fill, err = a.coerceSequence(opts.Value); err != nil {
				return nil, err
			}
			defer fill.Release()
			if fill.Len() != a.Len() {
				return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation,
					"Length of 'value' does not match. Got (%d) expected %d", fill.Len(), a.Len())
			}
		}
	}

	if !a.HasNA() {
		return a.Pos(), nil
	}
	if opts.Limit > 0 {
		return a.fillGeneric(opts, fill)
	}

	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	ctx := a.ctx()

	var out arrow.Array
	switch {
	case kernel != "":
		if !capability.Current().Reliable(kernel) {
			degrade("fillna", "capability", a.DType())
			return a.fillGeneric(opts, fill)
		}
		if kernel == kernels.FillNullForwardKernel {
			out, err = kernels.FillNullForward(ctx, arr)
		} else {
			out, err = kernels.FillNullBackward(ctx, arr)
		}
	case sc != nil:
		out, err = kernels.FillNull(ctx, arr, sc)
	default:
		var f arrow.Array
		if f, err = fill.combined(); err != nil {
			return nil, err
		}
		defer f.Release()
		isNull := boolArray(a, a.IsNA()).(*array.Boolean)
		defer isNull.Release()
		out, err = kernels.IfElse(ctx, isNull, f, arr)
	}
	if err != nil {
		if isNotImplemented(err) {
			return a.fillGeneric(opts, fill)
		}
		return nil, translate(err, "fillna", a.DType())
	}
	return a.wrap(out), nil
}

// fillGeneric fills materialized values, honouring Limit.
func (a *Array) fillGeneric(opts FillOptions, fill *Array) (*Array, error) {
	values := a.Values()
	limit := opts.Limit
	if limit == 0 {
		limit = len(values)
	}

	switch fillMethods[opts.Method] {
	case kernels.FillNullForwardKernel:
		carryFill(values, limit, false)
	case kernels.FillNullBackwardKernel:
		carryFill(values, limit, true)
	default:
		filled := 0
		for i, v := range values {
			if !dtype.IsNA(v) || filled == limit {
				continue
			}
			if fill != nil {
				fv, err := fill.At(i)
				if err != nil {
					return nil, err
				}
				values[i] = fv
			} else {
				values[i] = opts.Value
			}
			filled++
		}
	}

	arr, err := dtype.BuildArray(a.mem, a.data.DataType(), values)
	if err != nil {
		return nil, translate(err, "fillna", a.DType())
	}
	return a.wrap(arr), nil
}

// carryFill propagates valid values over at most limit consecutive
// missing values, forward or, when reverse is set, backward.
func carryFill(values []any, limit int, reverse bool) {
	n := len(values)
	var last any = dtype.NA
	run := 0
	for k := 0; k < n; k++ {
		i := k
		if reverse {
			i = n - 1 - k
		}
		if !dtype.IsNA(values[i]) {
			last, run = values[i], 0
			continue
		}
		if dtype.IsNA(last) || run >= limit {
			continue
		}
		values[i] = last
		run++
	}
}
