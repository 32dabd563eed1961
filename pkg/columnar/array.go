package columnar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/config"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/kernels"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
	"github.com/ajitpratap0/nebula-arrow/pkg/metrics"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-arrow/pkg/parse"
)

// Array is a nullable, chunked, immutable column. Operations never modify
// the underlying buffer; SetItem swaps in a new one on the receiver.
type Array struct {
	data *arrow.Chunked
	mem  memory.Allocator
}

var (
	defaultsMu sync.RWMutex
	defaults   = config.Default().Compute
)

func computeDefaults() config.ComputeConfig {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaults
}

// Configure applies cfg to the process: it initializes the logger,
// toggles metrics, re-runs the capability probe and installs the compute
// defaults used by reductions and string parsing.
func Configure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	metrics.SetEnabled(cfg.Metrics.Enabled)
	probe := capability.Configure(cfg.Capability)

	defaultsMu.Lock()
	defaults = cfg.Compute
	defaultsMu.Unlock()

	logger.Info("columnar configured",
		zap.String("arrow_version", probe.Version()),
		zap.Bool("meets_minimum", probe.MeetsMinimum()),
		zap.Int("default_ddof", cfg.Compute.DefaultDDof))
	return nil
}

// Option configures construction.
type Option func(*options)

type options struct {
	mem    memory.Allocator
	tokens []string
}

// WithAllocator sets the allocator used for the array's buffers and for
// every kernel result derived from it.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithNullTokens overrides the strings FromStrings reads as missing.
func WithNullTokens(tokens ...string) Option {
	return func(o *options) { o.tokens = tokens }
}

func buildOptions(opts []Option) options {
	o := options{mem: memory.DefaultAllocator, tokens: computeDefaults().NullTokens}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func checkCapability() error {
	p := capability.Current()
	if !p.MeetsMinimum() {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
			"arrow-go>=%s is required for arrow-backed arrays, linked version is %s", p.MinimumVersion(), p.Version()).
			WithDetail(nebulaerrors.DetailVersion, p.Version())
	}
	return nil
}

// FromBuffer wraps chunked. The array takes its own reference.
func FromBuffer(chunked *arrow.Chunked, opts ...Option) (*Array, error) {
	if err := checkCapability(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	chunked.Retain()
	return &Array{data: chunked, mem: o.mem}, nil
}

// FromArrow wraps a single arrow array as a one-chunk Array.
func FromArrow(arr arrow.Array, opts ...Option) (*Array, error) {
	if err := checkCapability(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Array{data: arrow.NewChunked(arr.DataType(), []arrow.Array{arr}), mem: o.mem}, nil
}

// FromSequence builds an Array from an *Array, an arrow array or chunked
// array, or a native collection. With target set the result always has
// that type; values are built directly under target and, when that fails,
// built under the inferred type and cast. copy makes a private copy of a
// native collection before reading it.
func FromSequence(scalars any, target arrow.DataType, copy bool, opts ...Option) (*Array, error) {
	if err := checkCapability(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	var out *Array
	switch s := scalars.(type) {
	case *Array:
		s.data.Retain()
		out = &Array{data: s.data, mem: o.mem}
	case *arrow.Chunked:
		s.Retain()
		out = &Array{data: s, mem: o.mem}
	case arrow.Array:
		out = &Array{data: arrow.NewChunked(s.DataType(), []arrow.Array{s}), mem: o.mem}
	default:
		values, ok := dtype.ToSlice(scalars)
		if !ok {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
				"Could not convert %v with type %T: expected a sequence", scalars, scalars)
		}
		if copy {
			values = append([]any(nil), values...)
		}
		arr, err := buildNative(o.mem, values, target)
		if err != nil {
			return nil, err
		}
		out = &Array{data: arrow.NewChunked(arr.DataType(), []arrow.Array{arr}), mem: o.mem}
		arr.Release()
	}

	if target == nil {
		return out, nil
	}
	cast, err := out.castTo(target, true)
	out.Release()
	return cast, err
}

func buildNative(mem memory.Allocator, values []any, target arrow.DataType) (arrow.Array, error) {
	if target != nil {
		arr, err := dtype.BuildArray(mem, target, values)
		if err == nil {
			return arr, nil
		}
		if !nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConversion) {
			return nil, err
		}
		logger.Debug("direct build failed, inferring type",
			zap.String("target", target.String()), zap.Error(err))
	}
	inferred, err := dtype.InferType(values)
	if err != nil {
		return nil, err
	}
	return dtype.BuildArray(mem, inferred, values)
}

// FromStrings parses strs according to target and builds the Array.
// Null tokens are read as missing unless target is a string type.
func FromStrings(strs []string, target arrow.DataType, copy bool, opts ...Option) (*Array, error) {
	o := buildOptions(opts)
	tokens := parse.NewTokens(o.tokens)

	var (
		values []any
		err    error
	)
	kind := dtype.KindNull
	if target != nil {
		kind = dtype.KindOf(target)
	}
	switch kind {
	case dtype.KindNull:
		values = make([]any, len(strs))
		for i, s := range strs {
			if target != nil {
				values[i] = dtype.NA
			} else {
				values[i] = s
			}
		}
	case dtype.KindString:
		values = make([]any, len(strs))
		for i, s := range strs {
			values[i] = s
		}
	case dtype.KindBinary:
		values = make([]any, len(strs))
		for i, s := range strs {
			values[i] = []byte(s)
		}
	case dtype.KindTimestamp:
		loc, zerr := target.(*arrow.TimestampType).GetZone()
		if zerr != nil {
			return nil, nebulaerrors.Wrap(zerr, nebulaerrors.ErrorTypeConversion, "invalid timestamp zone")
		}
		values, err = parse.Times(strs, tokens, loc)
	case dtype.KindDate:
		values, err = parse.Times(strs, tokens, nil)
	case dtype.KindDuration:
		values, err = parse.Each(strs, tokens, parse.Duration)
	case dtype.KindTime:
		values = parse.Coerce(strs, tokens, parse.TimeOfDay)
	case dtype.KindBool:
		values, err = parse.Each(strs, tokens, parse.Bool)
	case dtype.KindInt:
		values, err = parse.Each(strs, tokens, parse.Int)
	case dtype.KindUint:
		values, err = parse.Each(strs, tokens, parse.Uint)
	case dtype.KindFloat:
		values, err = parse.Each(strs, tokens, parse.Float)
	case dtype.KindDecimal:
		values, err = parse.Each(strs, tokens, parse.Decimal)
	default:
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeUnsupported,
			"Converting strings to %s is not implemented.", dtype.New(target))
	}
	if err != nil {
		return nil, err
	}
	return FromSequence(values, target, copy, opts...)
}

func (a *Array) wrap(arr arrow.Array) *Array {
	out := &Array{data: arrow.NewChunked(arr.DataType(), []arrow.Array{arr}), mem: a.mem}
	arr.Release()
	return out
}

func (a *Array) ctx() context.Context {
	return kernels.WithAllocator(context.Background(), a.mem)
}

// combined returns the data as one contiguous array. The caller releases it.
func (a *Array) combined() (arrow.Array, error) {
	chunks := a.data.Chunks()
	switch len(chunks) {
	case 0:
		return array.MakeArrayOfNull(a.mem, a.data.DataType(), 0), nil
	case 1:
		chunks[0].Retain()
		return chunks[0], nil
	}
	return array.Concatenate(chunks, a.mem)
}

func (a *Array) castTo(to arrow.DataType, safe bool) (*Array, error) {
	if arrow.TypeEqual(a.data.DataType(), to) {
		a.data.Retain()
		return &Array{data: a.data, mem: a.mem}, nil
	}
	arr, err := a.combined()
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	out, err := kernels.Cast(a.ctx(), arr, to, safe)
	if err != nil {
		return nil, nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion,
			"Could not convert %s to %s", a.DType(), dtype.New(to))
	}
	return a.wrap(out), nil
}

// Cast converts the array to another type, rejecting lossy conversions.
func (a *Array) Cast(to arrow.DataType) (*Array, error) {
	return a.castTo(to, true)
}

// Release drops the array's reference to its buffer.
func (a *Array) Release() {
	if a.data != nil {
		a.data.Release()
	}
}

// DType describes the element type. It is derived from the buffer.
func (a *Array) DType() dtype.DType { return dtype.New(a.data.DataType()) }

// Len is the total element count across chunks.
func (a *Array) Len() int { return a.data.Len() }

// Chunked returns the underlying buffer without adding a reference.
func (a *Array) Chunked() *arrow.Chunked { return a.data }

// NullCount is the number of missing elements.
func (a *Array) NullCount() int { return a.data.NullN() }

// HasNA reports whether any element is missing.
func (a *Array) HasNA() bool { return a.data.NullN() > 0 }

// IsNA returns the missing-value mask.
func (a *Array) IsNA() []bool {
	out := make([]bool, 0, a.Len())
	for _, c := range a.data.Chunks() {
		for i := 0; i < c.Len(); i++ {
			out = append(out, c.IsNull(i))
		}
	}
	return out
}

// At returns element i as a native value, or dtype.NA when missing.
func (a *Array) At(i int) (any, error) {
	if i < 0 || i >= a.Len() {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeIndex,
			"index %d is out of bounds for axis 0 with size %d", i, a.Len())
	}
	for _, c := range a.data.Chunks() {
		if i < c.Len() {
			return dtype.ValueAt(c, i), nil
		}
		i -= c.Len()
	}
	return nil, nebulaerrors.New(nebulaerrors.ErrorTypeInternal, "chunk lengths do not add up")
}

// Values materializes every element; missing ones are dtype.NA.
func (a *Array) Values() []any {
	out := make([]any, 0, a.Len())
	for _, c := range a.data.Chunks() {
		out = append(out, dtype.Values(c)...)
	}
	return out
}

// ToNative is Values with missing elements replaced by naValue.
func (a *Array) ToNative(naValue any) []any {
	out := a.Values()
	for i, v := range out {
		if dtype.IsNA(v) {
			out[i] = naValue
		}
	}
	return out
}

// Equals reports structural equality with another *Array: same type, same
// null pattern and same values. Anything else is unequal.
func (a *Array) Equals(other any) bool {
	o, ok := other.(*Array)
	if !ok || o == nil {
		return false
	}
	return array.ChunkedEqual(a.data, o.data)
}

// Copy returns an array backed by a fresh contiguous buffer.
func (a *Array) Copy() (*Array, error) {
	chunks := a.data.Chunks()
	if len(chunks) == 0 {
		return a.wrap(array.MakeArrayOfNull(a.mem, a.data.DataType(), 0)), nil
	}
	arr, err := array.Concatenate(chunks, a.mem)
	if err != nil {
		return nil, translate(err, "copy", a.DType())
	}
	return a.wrap(arr), nil
}

// Concat joins arrays of identical type without copying their chunks.
func Concat(arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "need at least one array to concatenate")
	}
	dt := arrays[0].data.DataType()
	var chunks []arrow.Array
	for _, arr := range arrays {
		if !arrow.TypeEqual(arr.data.DataType(), dt) {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion,
				"cannot concatenate %s with %s", dtype.New(dt), arr.DType())
		}
		chunks = append(chunks, arr.data.Chunks()...)
	}
	return &Array{data: arrow.NewChunked(dt, chunks), mem: arrays[0].mem}, nil
}

// DropNA returns the array without its missing elements.
func (a *Array) DropNA() (*Array, error) {
	if !a.HasNA() {
		a.data.Retain()
		return &Array{data: a.data, mem: a.mem}, nil
	}
	mask := a.IsNA()
	for i := range mask {
		mask[i] = !mask[i]
	}
	return a.filter(mask)
}

// String renders a short preview.
func (a *Array) String() string {
	const preview = 10
	values := a.Values()
	parts := make([]string, 0, min(len(values), preview+1))
	for i, v := range values {
		if i == preview {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return fmt.Sprintf("<Array>\n[%s]\nLength: %d, dtype: %s", strings.Join(parts, ", "), a.Len(), a.DType())
}

// MarshalJSON encodes the elements as a JSON list with null for missing.
func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Values())
}
