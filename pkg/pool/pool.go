// Package pool provides typed object pooling for scratch buffers: the row
// permutations sorted by the generic (non-kernel) code paths and the byte
// buffers used to format values row by row.
//
// Example usage:
//
//	order := pool.GetPositions(n)
//	defer pool.PutPositions(order)
//	sort.SliceStable(*order, less)
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool with type safety. It wraps sync.Pool with
// statistics and an optional reset hook. The pool is safe for concurrent
// use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated atomic.Int64
		inUse     atomic.Int64
		gets      atomic.Int64
	}
}

// Stats is a snapshot of pool activity.
type Stats struct {
	// Allocated counts objects created by the factory
	Allocated int64
	// InUse counts objects checked out and not yet returned
	InUse int64
	// Gets counts every Get call; Gets - Allocated were served from the pool
	Gets int64
}

// New creates a pool. reset, when non-nil, runs before an object is
// returned to the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		p.stats.allocated.Add(1)
		return newFn()
	}
	return p
}

// Get retrieves an object, creating one when the pool is empty.
func (p *Pool[T]) Get() T {
	p.stats.gets.Add(1)
	p.stats.inUse.Add(1)
	return p.pool.Get().(T)
}

// Put returns obj to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.stats.inUse.Add(-1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Allocated: p.stats.allocated.Load(),
		InUse:     p.stats.inUse.Load(),
		Gets:      p.stats.gets.Load(),
	}
}

// maxPooledPositions caps the capacity kept in the pool so one huge
// fallback does not pin its scratch memory for the life of the process.
const maxPooledPositions = 1 << 20

// Positions pools row-position slices.
var Positions = New(
	func() *[]int {
		s := make([]int, 0, 1024)
		return &s
	},
	func(s *[]int) { *s = (*s)[:0] },
)

// GetPositions returns the identity permutation 0..n-1 in a pooled slice.
func GetPositions(n int) *[]int {
	p := Positions.Get()
	if cap(*p) < n {
		*p = make([]int, n)
	}
	*p = (*p)[:n]
	for i := range *p {
		(*p)[i] = i
	}
	return p
}

// PutPositions returns a slice obtained from GetPositions. The caller must
// not use it afterwards.
func PutPositions(p *[]int) {
	if cap(*p) > maxPooledPositions {
		Positions.stats.inUse.Add(-1)
		return
	}
	Positions.Put(p)
}

// Buffers pools byte buffers for per-row string formatting.
var Buffers = New(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 64)) },
	func(b *bytes.Buffer) { b.Reset() },
)
