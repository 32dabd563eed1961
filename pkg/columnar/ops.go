package columnar

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// CmpOp is a comparison operator.
type CmpOp int

const (
	Eq CmpOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
	numCmpOps
)

var cmpTable = [numCmpOps]struct{ name, kernel string }{
	Eq: {"eq", "equal"},
	Ne: {"ne", "not_equal"},
	Lt: {"lt", "less"},
	Gt: {"gt", "greater"},
	Le: {"le", "less_equal"},
	Ge: {"ge", "greater_equal"},
}

func (op CmpOp) String() string {
	if op < 0 || op >= numCmpOps {
		return fmt.Sprintf("CmpOp(%d)", int(op))
	}
	return cmpTable[op].name
}

// LogicalOp is a Kleene boolean operator. The R variants take the
// operands in reverse order.
type LogicalOp int

const (
	And LogicalOp = iota
	Rand
	Or
	Ror
	Xor
	Rxor
	numLogicalOps
)

var logicalTable = [numLogicalOps]struct {
	name, kernel string
	reflected    bool
}{
	And:  {"and", "and_kleene", false},
	Rand: {"rand", "and_kleene", true},
	Or:   {"or", "or_kleene", false},
	Ror:  {"ror", "or_kleene", true},
	Xor:  {"xor", "xor", false},
	Rxor: {"rxor", "xor", true},
}

func (op LogicalOp) String() string {
	if op < 0 || op >= numLogicalOps {
		return fmt.Sprintf("LogicalOp(%d)", int(op))
	}
	return logicalTable[op].name
}

// ArithOp is an arithmetic operator. The R variants take the operands in
// reverse order.
type ArithOp int

const (
	Add ArithOp = iota
	Radd
	Sub
	Rsub
	Mul
	Rmul
	Truediv
	Rtruediv
	Floordiv
	Rfloordiv
	Pow
	Rpow
	Mod
	Rmod
	Divmod
	Rdivmod
	numArithOps
)

type divMode int

const (
	divNone divMode = iota
	divTrue
	divFloor
)

type arithEntry struct {
	kernel    string
	reflected bool
	div       divMode
}

var arithNames = [numArithOps]string{
	"add", "radd", "sub", "rsub", "mul", "rmul", "truediv", "rtruediv",
	"floordiv", "rfloordiv", "pow", "rpow", "mod", "rmod", "divmod", "rdivmod",
}

// A nil entry is an operator with no kernel.
var arithTable = [numArithOps]*arithEntry{
	Add:       {kernel: "add"},
	Radd:      {kernel: "add", reflected: true},
	Sub:       {kernel: "subtract"},
	Rsub:      {kernel: "subtract", reflected: true},
	Mul:       {kernel: "multiply"},
	Rmul:      {kernel: "multiply", reflected: true},
	Truediv:   {kernel: "divide", div: divTrue},
	Rtruediv:  {kernel: "divide", reflected: true, div: divTrue},
	Floordiv:  {kernel: "divide", div: divFloor},
	Rfloordiv: {kernel: "divide", reflected: true, div: divFloor},
	Pow:       {kernel: "power"},
	Rpow:      {kernel: "power", reflected: true},
	Mod:       nil,
	Rmod:      nil,
	Divmod:    nil,
	Rdivmod:   nil,
}

func (op ArithOp) String() string {
	if op < 0 || op >= numArithOps {
		return fmt.Sprintf("ArithOp(%d)", int(op))
	}
	return arithNames[op]
}

// BooleanArray is a comparison result: Values holds the outcome and Mask,
// when non-nil, marks missing positions.
type BooleanArray struct {
	Values []bool
	Mask   []bool
}

func (b *BooleanArray) Len() int { return len(b.Values) }

// At returns the value at i or dtype.NA.
func (b *BooleanArray) At(i int) any {
	if b.Mask != nil && b.Mask[i] {
		return dtype.NA
	}
	return b.Values[i]
}

// Filled returns Values with missing positions set to fill.
func (b *BooleanArray) Filled(fill bool) []bool {
	out := append([]bool(nil), b.Values...)
	for i := range b.Mask {
		if b.Mask[i] {
			out[i] = fill
		}
	}
	return out
}

// ToArray converts b to a boolean *Array.
func (b *BooleanArray) ToArray(opts ...Option) (*Array, error) {
	o := buildOptions(opts)
	bb := array.NewBooleanBuilder(o.mem)
	defer bb.Release()
	var valid []bool
	if b.Mask != nil {
		valid = make([]bool, len(b.Mask))
		for i, m := range b.Mask {
			valid[i] = !m
		}
	}
	bb.AppendValues(b.Values, valid)
	return FromArrow(bb.NewArray(), opts...)
}

func booleanFrom(arr arrow.Array) *BooleanArray {
	b := arr.(*array.Boolean)
	out := &BooleanArray{Values: make([]bool, b.Len())}
	if b.NullN() > 0 {
		out.Mask = make([]bool, b.Len())
	}
	for i := range out.Values {
		if b.IsNull(i) {
			out.Mask[i] = true
			continue
		}
		out.Values[i] = b.Value(i)
	}
	return out
}

// operand is the right-hand side of a binary operation: exactly one of
// arr and sc is set.
type operand struct {
	arr arrow.Array
	sc  scalar.Scalar
}

func (o operand) dataType() arrow.DataType {
	if o.arr != nil {
		return o.arr.DataType()
	}
	return o.sc.DataType()
}

func (o operand) datum() compute.Datum {
	if o.arr != nil {
		return compute.NewDatum(o.arr)
	}
	return compute.NewDatum(o.sc)
}

func (o operand) release() {
	if o.arr != nil {
		o.arr.Release()
	}
}

func (o operand) castTo(a *Array, to arrow.DataType) (operand, error) {
	if o.arr != nil {
		out, err := kernels.Cast(a.ctx(), o.arr, to, true)
		if err != nil {
			return operand{}, err
		}
		return operand{arr: out}, nil
	}
	sc, err := o.sc.CastTo(to)
	if err != nil {
		return operand{}, err
	}
	return operand{sc: sc}, nil
}

func (a *Array) self() (operand, error) {
	arr, err := a.combined()
	if err != nil {
		return operand{}, err
	}
	return operand{arr: arr}, nil
}

// operand converts other into an array or scalar operand. Scalars are
// built under the array's own type first and inferred otherwise.
func (a *Array) operand(other any) (operand, error) {
	n := a.Len()
	lengthErr := func(m int) error {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeValidation, "Lengths must match: %d != %d", n, m)
	}
	switch o := other.(type) {
	case *Array:
		if o.Len() != n {
			return operand{}, lengthErr(o.Len())
		}
		return o.self()
	case *BooleanArray:
		if o.Len() != n {
			return operand{}, lengthErr(o.Len())
		}
		arr, err := o.ToArray(WithAllocator(a.mem))
		if err != nil {
			return operand{}, err
		}
		defer arr.Release()
		return arr.self()
	case arrow.Array:
		if o.Len() != n {
			return operand{}, lengthErr(o.Len())
		}
		o.Retain()
		return operand{arr: o}, nil
	case *arrow.Chunked:
		if o.Len() != n {
			return operand{}, lengthErr(o.Len())
		}
		arr, err := array.Concatenate(o.Chunks(), a.mem)
		if err != nil {
			return operand{}, err
		}
		return operand{arr: arr}, nil
	}

	if values, ok := dtype.ToSlice(other); ok {
		if len(values) != n {
			return operand{}, lengthErr(len(values))
		}
		arr, err := buildNative(a.mem, values, nil)
		if err != nil {
			return operand{}, err
		}
		return operand{arr: arr}, nil
	}

	if other == nil || dtype.IsNA(other) {
		return operand{sc: scalar.MakeNullScalar(a.data.DataType())}, nil
	}
	if sc, err := dtype.ScalarFromNative(a.mem, a.data.DataType(), other); err == nil {
		return operand{sc: sc}, nil
	}
	inferred, err := dtype.InferType([]any{other})
	if err != nil {
		return operand{}, err
	}
	sc, err := dtype.ScalarFromNative(a.mem, inferred, other)
	if err != nil {
		return operand{}, err
	}
	return operand{sc: sc}, nil
}

func (a *Array) call(kernel string, opts compute.FunctionOptions, args ...operand) (*Array, error) {
	datums := make([]compute.Datum, len(args))
	for i, arg := range args {
		datums[i] = arg.datum()
	}
	defer func() {
		for _, d := range datums {
			d.Release()
		}
	}()
	out, err := kernels.Call(a.ctx(), kernel, opts, datums...)
	if err != nil {
		return nil, err
	}
	return a.wrap(out), nil
}

// Compare applies op element-wise. A scalar whose type has no comparison
// kernel against this array is compared natively; missing positions are
// masked in the result.
func (a *Array) Compare(other any, op CmpOp) (*BooleanArray, error) {
	if op < 0 || op >= numCmpOps {
		return nil, unsupported("comparison operator %s is not supported", op)
	}
	isScalar := isScalarValue(other)

	right, err := a.operand(other)
	if err != nil {
		if isScalar {
			return a.compareNative(other, op)
		}
		return nil, translate(err, op.String(), a.DType())
	}
	defer right.release()
	left, err := a.self()
	if err != nil {
		return nil, err
	}
	defer left.release()

	out, err := a.call(cmpTable[op].kernel, nil, left, right)
	if err != nil {
		if isScalar && (isNotImplemented(err) || isTypeError(err)) {
			return a.compareNative(other, op)
		}
		return nil, translate(err, op.String(), a.DType())
	}
	defer out.Release()
	arr, err := out.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	return booleanFrom(arr), nil
}

func isScalarValue(v any) bool {
	switch v.(type) {
	case *Array, arrow.Array, *arrow.Chunked, *BooleanArray:
		return false
	}
	_, isSeq := dtype.ToSlice(v)
	return !isSeq
}

func isTypeError(err error) bool {
	return nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion) || strings.Contains(err.Error(), arrow.ErrType.Error())
}

func (a *Array) compareNative(other any, op CmpOp) (*BooleanArray, error) {
	values := a.Values()
	out := &BooleanArray{Values: make([]bool, len(values)), Mask: make([]bool, len(values))}
	masked := false
	for i, v := range values {
		if dtype.IsNA(v) || other == nil || dtype.IsNA(other) {
			out.Mask[i] = true
			masked = true
			continue
		}
		r, err := compareNatives(v, other, op)
		if err != nil {
			return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion,
				"Invalid comparison between dtype=%s and %T", a.DType(), other)
		}
		out.Values[i] = r
	}
	if !masked {
		out.Mask = nil
	}
	return out, nil
}

func nativeFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case time.Duration, dtype.TimeOfDay:
		return 0, false
	case decimal.Decimal:
		return x.InexactFloat64(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// compareNatives orders two non-missing values. Values of unrelated kinds
// are unequal and cannot be ordered.
func compareNatives(x, y any, op CmpOp) (bool, error) {
	c, ordered := orderNatives(x, y)
	switch op {
	case Eq:
		return ordered && c == 0, nil
	case Ne:
		return !ordered || c != 0, nil
	}
	if !ordered {
		return false, fmt.Errorf("'%s' not supported between %T and %T", op, x, y)
	}
	switch op {
	case Lt:
		return c < 0, nil
	case Gt:
		return c > 0, nil
	case Le:
		return c <= 0, nil
	}
	return c >= 0, nil
}

func orderNatives(x, y any) (int, bool) {
	if fx, ok := nativeFloat(x); ok {
		if fy, ok := nativeFloat(y); ok {
			return cmpFloat(fx, fy), true
		}
		return 0, false
	}
	switch xv := x.(type) {
	case string:
		if yv, ok := y.(string); ok {
			return strings.Compare(xv, yv), true
		}
	case bool:
		if yv, ok := y.(bool); ok {
			return cmpFloat(b2f(xv), b2f(yv)), true
		}
	case time.Time:
		if yv, ok := y.(time.Time); ok {
			return xv.Compare(yv), true
		}
	case time.Duration:
		if yv, ok := y.(time.Duration); ok {
			return cmpFloat(float64(xv), float64(yv)), true
		}
	case dtype.TimeOfDay:
		if yv, ok := y.(dtype.TimeOfDay); ok {
			return cmpFloat(float64(xv), float64(yv)), true
		}
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Logical applies a Kleene boolean operator.
func (a *Array) Logical(other any, op LogicalOp) (*Array, error) {
	if op < 0 || op >= numLogicalOps {
		return nil, unsupported("logical operator %s is not supported", op)
	}
	entry := logicalTable[op]
	right, err := a.operand(other)
	if err != nil {
		return nil, translate(err, op.String(), a.DType())
	}
	defer right.release()
	left, err := a.self()
	if err != nil {
		return nil, err
	}
	defer left.release()
	if entry.reflected {
		left, right = right, left
	}
	out, err := a.call(entry.kernel, nil, left, right)
	return out, translate(err, op.String(), a.DType())
}

func isIntType(dt arrow.DataType) bool {
	k := dtype.KindOf(dt)
	return k == dtype.KindInt || k == dtype.KindUint
}

// Arith applies an arithmetic operator with overflow checking. Integer
// true division divides in float64; integer floor division floors the
// float64 quotient and casts back to the left operand's type.
func (a *Array) Arith(other any, op ArithOp) (*Array, error) {
	if op < 0 || op >= numArithOps || arithTable[op] == nil {
		return nil, unsupported("operator '%s' is not supported for dtype %s", op, a.DType())
	}
	entry := arithTable[op]
	right, err := a.operand(other)
	if err != nil {
		return nil, translate(err, op.String(), a.DType())
	}
	defer right.release()
	left, err := a.self()
	if err != nil {
		return nil, err
	}
	defer left.release()
	if entry.reflected {
		left, right = right, left
	}

	out, err := a.arith(op, entry, left, right)
	return out, translate(err, op.String(), a.DType())
}

func (a *Array) arith(op ArithOp, entry *arithEntry, left, right operand) (*Array, error) {
	bothInt := isIntType(left.dataType()) && isIntType(right.dataType())
	leftType := left.dataType()
	if entry.div != divNone && bothInt {
		f, err := left.castTo(a, arrow.PrimitiveTypes.Float64)
		if err != nil {
			return nil, err
		}
		defer f.release()
		left = f
	}
	quotient, err := a.call(entry.kernel, nil, left, right)
	if err != nil || entry.div != divFloor {
		return quotient, err
	}
	defer quotient.Release()

	if k := quotient.DType().Kind(); k != dtype.KindFloat && k != dtype.KindDecimal {
		return quotient.Pos(), nil
	}
	q, err := quotient.self()
	if err != nil {
		return nil, err
	}
	defer q.release()
	floored, err := a.call("floor", nil, q)
	if err != nil || !bothInt {
		return floored, err
	}
	defer floored.Release()
	return floored.castTo(leftType, true)
}

func (a *Array) unary(name, kernel string, opts compute.FunctionOptions) (*Array, error) {
	self, err := a.self()
	if err != nil {
		return nil, err
	}
	defer self.release()
	out, err := a.call(kernel, opts, self)
	return out, translate(err, name, a.DType())
}

// Invert is logical not for booleans and bitwise not for integers.
func (a *Array) Invert() (*Array, error) {
	if a.DType().IsInteger() {
		return a.unary("invert", "bit_wise_not", nil)
	}
	return a.unary("invert", "not", nil)
}

// Negate flips the sign, failing on overflow.
func (a *Array) Negate() (*Array, error) { return a.unary("neg", "negate", nil) }

// Abs is the absolute value, failing on overflow.
func (a *Array) Abs() (*Array, error) { return a.unary("abs", "abs", nil) }

// Pos returns the array unchanged.
func (a *Array) Pos() *Array {
	a.data.Retain()
	return &Array{data: a.data, mem: a.mem}
}

// Round rounds to decimals digits, ties to even. Integer arrays are
// returned unchanged for non-negative decimals.
func (a *Array) Round(decimals int) (*Array, error) {
	if a.DType().IsInteger() && decimals >= 0 {
		return a.Pos(), nil
	}
	return a.unary("round", "round", &compute.RoundOptions{NDigits: int64(decimals), Mode: compute.RoundHalfToEven})
}
