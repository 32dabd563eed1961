// Package indexer validates and canonicalizes indexing keys against the
// length of the array they address.
//
// Accepted keys:
//
//	int and the sized integer types   one position, negative counts from the end
//	Slice                             start:stop:step with optional parts
//	Tuple of one element              unwrapped
//	Ellipsis                          the full range
//	[]bool                            a mask of matching length
//	[]int and typed integer slices    positions, negative counts from the end
//	[]any                             all bools (mask) or all integers (positions)
package indexer

import (
	"fmt"
	"math"
	"reflect"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// Slice selects start:stop:step. Nil fields take their defaults.
type Slice struct {
	Start, Stop, Step *int
}

// Range is a Slice with start and stop set and unit step.
func Range(start, stop int) Slice {
	return Slice{Start: &start, Stop: &stop}
}

// Stepped is a Slice over the whole length with the given step.
func Stepped(step int) Slice {
	return Slice{Step: &step}
}

// Full selects everything.
func Full() Slice { return Slice{} }

// Tuple wraps keys the way a multi-axis subscript would. Only single
// element tuples are valid for one-dimensional arrays.
type Tuple []any

type ellipsis struct{}

// Ellipsis stands for the full range.
var Ellipsis = ellipsis{}

// Kind tells which field of Key is set.
type Kind int

const (
	KindPosition Kind = iota
	KindSlice
	KindMask
	KindPositions
)

// Key is a normalized indexing key.
type Key struct {
	Kind Kind
	// Position is a single in-range position.
	Position int
	// Start, Stop and Step describe a slice already clamped to the length.
	Start, Stop, Step int
	// Mask has exactly one entry per element.
	Mask []bool
	// Positions are all in range.
	Positions []int
}

// Len is the number of elements the key selects.
func (k Key) Len() int {
	switch k.Kind {
	case KindPosition:
		return 1
	case KindSlice:
		return sliceLen(k.Start, k.Stop, k.Step)
	case KindMask:
		n := 0
		for _, m := range k.Mask {
			if m {
				n++
			}
		}
		return n
	}
	return len(k.Positions)
}

// IsFull reports whether the key selects every element once, in order.
func (k Key) IsFull(length int) bool {
	switch k.Kind {
	case KindSlice:
		return k.Step == 1 && k.Start == 0 && k.Stop == length
	case KindMask:
		return k.Len() == length
	}
	return false
}

// ToPositions expands any key into explicit positions.
func (k Key) ToPositions() []int {
	switch k.Kind {
	case KindPosition:
		return []int{k.Position}
	case KindSlice:
		out := make([]int, 0, sliceLen(k.Start, k.Stop, k.Step))
		for i := k.Start; (k.Step > 0 && i < k.Stop) || (k.Step < 0 && i > k.Stop); i += k.Step {
			out = append(out, i)
		}
		return out
	case KindMask:
		out := make([]int, 0, len(k.Mask))
		for i, m := range k.Mask {
			if m {
				out = append(out, i)
			}
		}
		return out
	}
	return k.Positions
}

func sliceLen(start, stop, step int) int {
	if step > 0 && start < stop {
		return (stop - start + step - 1) / step
	}
	if step < 0 && start > stop {
		return (start - stop - step - 1) / -step
	}
	return 0
}

const invalidKeyMsg = "only integers, slices (`:`), ellipsis (`...`), numpy.newaxis (`None`) and integer or boolean arrays are valid indices"

// Unwrap strips a single-element Tuple.
func Unwrap(key any) (any, error) {
	t, ok := key.(Tuple)
	if !ok {
		return key, nil
	}
	if len(t) != 1 {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeIndex,
			"too many indices for array: array is 1-dimensional, but %d were indexed", len(t))
	}
	return t[0], nil
}

// Integer reports whether v is a Go integer (not bool) and returns it.
// Unsigned values beyond the int range saturate to math.MaxInt, which no
// array length can reach, so Check rejects them as out of bounds.
func Integer(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		if x > math.MaxInt {
			return math.MaxInt, true
		}
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		if x > math.MaxInt {
			return math.MaxInt, true
		}
		return int(x), true
	}
	return 0, false
}

// Check wraps a possibly negative position into [0, length) or fails with
// an index error.
func Check(i, length int) (int, error) {
	if i < -length || i >= length {
		return 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeIndex,
			"index %d is out of bounds for axis 0 with size %d", i, length)
	}
	if i < 0 {
		i += length
	}
	return i, nil
}

// CheckPositions wraps every position with Check.
func CheckPositions(positions []int, length int) ([]int, error) {
	out := make([]int, len(positions))
	for j, i := range positions {
		p, err := Check(i, length)
		if err != nil {
			return nil, err
		}
		out[j] = p
	}
	return out, nil
}

// CheckMask fails unless mask has one entry per element.
func CheckMask(mask []bool, length int) error {
	if len(mask) != length {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeIndex,
			"boolean index did not match indexed array along axis 0; size of axis is %d but size of corresponding boolean axis is %d",
			length, len(mask))
	}
	return nil
}

// Bounds clamps s to length the way Python slices do.
func (s Slice) Bounds(length int) (start, stop, step int, err error) {
	step = 1
	if s.Step != nil {
		step = *s.Step
	}
	if step == 0 {
		return 0, 0, 0, nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "slice step cannot be zero")
	}
	lower, upper := 0, length
	if step < 0 {
		lower, upper = -1, length-1
	}
	clamp := func(p *int, def int) int {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += length
			if v < lower {
				v = lower
			}
			return v
		}
		if v > upper {
			v = upper
		}
		return v
	}
	if step > 0 {
		return clamp(s.Start, lower), clamp(s.Stop, upper), step, nil
	}
	return clamp(s.Start, upper), clamp(s.Stop, lower), step, nil
}

// Normalize validates key against length and returns its canonical form.
func Normalize(key any, length int) (Key, error) {
	key, err := Unwrap(key)
	if err != nil {
		return Key{}, err
	}
	if i, ok := Integer(key); ok {
		p, err := Check(i, length)
		if err != nil {
			return Key{}, err
		}
		return Key{Kind: KindPosition, Position: p}, nil
	}

	switch k := key.(type) {
	case ellipsis:
		return Key{Kind: KindSlice, Start: 0, Stop: length, Step: 1}, nil
	case Slice:
		start, stop, step, err := k.Bounds(length)
		if err != nil {
			return Key{}, err
		}
		return Key{Kind: KindSlice, Start: start, Stop: stop, Step: step}, nil
	case *Slice:
		return Normalize(*k, length)
	case []bool:
		if len(k) == 0 {
			return Key{Kind: KindPositions, Positions: []int{}}, nil
		}
		if err := CheckMask(k, length); err != nil {
			return Key{}, err
		}
		return Key{Kind: KindMask, Mask: k}, nil
	case []int:
		positions, err := CheckPositions(k, length)
		if err != nil {
			return Key{}, err
		}
		return Key{Kind: KindPositions, Positions: positions}, nil
	case []any:
		return normalizeList(k, length)
	case nil, string, []byte:
		return Key{}, nebulaerrors.New(nebulaerrors.ErrorTypeIndex, invalidKeyMsg)
	}

	rv := reflect.ValueOf(key)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return normalizeList(list, length)
	}
	return Key{}, nebulaerrors.New(nebulaerrors.ErrorTypeIndex, invalidKeyMsg).
		WithDetail("key_type", fmt.Sprintf("%T", key))
}

func normalizeList(list []any, length int) (Key, error) {
	if len(list) == 0 {
		return Key{Kind: KindPositions, Positions: []int{}}, nil
	}
	if _, isBool := list[0].(bool); isBool {
		mask := make([]bool, len(list))
		for i, v := range list {
			b, ok := v.(bool)
			if !ok {
				return Key{}, nebulaerrors.New(nebulaerrors.ErrorTypeIndex, invalidKeyMsg)
			}
			mask[i] = b
		}
		return Normalize(mask, length)
	}
	positions := make([]int, len(list))
	for i, v := range list {
		p, ok := Integer(v)
		if !ok {
			return Key{}, nebulaerrors.New(nebulaerrors.ErrorTypeIndex, invalidKeyMsg)
		}
		positions[i] = p
	}
	return Normalize(positions, length)
}
