// Package metrics provides performance tracking for nebula-arrow using
// Prometheus metrics. Every compute kernel invocation and every fallback to
// a non-vectorized implementation is counted, so operators can see which
// arrays are running on slow paths.
//
// # Overview
//
// The metrics package provides:
//   - Kernel call counters labelled by kernel and outcome
//   - A latency histogram per kernel
//   - Fallback counters labelled by operation and reason
//   - A Collector that components use to record all of the above
//
// # Basic Usage
//
//	c := metrics.NewCollector("columnar")
//	start := time.Now()
//	out, err := compute.CallFunction(ctx, "add", nil, l, r)
//	c.ObserveKernel("add", start, err)
//
//	// When a generic implementation is used instead of a kernel
//	c.Fallback("argsort", "capability")
//
// Metrics are registered against the default Prometheus registry at package
// initialization; expose them with promhttp.Handler().
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Kernel outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var enabled atomic.Bool

func init() {
	enabled.Store(true)
}

// SetEnabled switches recording on or off globally.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether recording is switched on.
func Enabled() bool {
	return enabled.Load()
}

// Collector records kernel and fallback metrics for one component.
// It is safe for concurrent use.
type Collector struct {
	name      string
	calls     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
	startTime time.Time

	mu     sync.RWMutex
	counts map[string]int64 // kernel -> calls seen by this collector
}

// NewCollector creates a new metrics collector for a component.
// The name parameter identifies the component in metrics labels.
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		calls:     KernelCalls,
		latency:   KernelLatency,
		fallbacks: Fallbacks,
		startTime: time.Now(),
		counts:    make(map[string]int64),
	}
}

// ObserveKernel records one invocation of kernel that started at start.
func (c *Collector) ObserveKernel(kernel string, start time.Time, err error) {
	if !Enabled() {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.calls.WithLabelValues(c.name, kernel, outcome).Inc()
	c.latency.WithLabelValues(c.name, kernel).Observe(float64(time.Since(start).Nanoseconds()))

	c.mu.Lock()
	c.counts[kernel]++
	c.mu.Unlock()
}

// Fallback records that operation ran on its generic implementation.
func (c *Collector) Fallback(operation, reason string) {
	if !Enabled() {
		return
	}
	c.fallbacks.WithLabelValues(c.name, operation, reason).Inc()
}

// Calls returns how many times kernel was observed by this collector.
func (c *Collector) Calls(kernel string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[kernel]
}

// GetAll returns a snapshot of the collector state.
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kernels := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		kernels[k] = v
	}
	return map[string]interface{}{
		"component":  c.name,
		"start_time": c.startTime,
		"uptime":     time.Since(c.startTime).Seconds(),
		"kernels":    kernels,
	}
}

var (
	// KernelCalls counts compute kernel invocations.
	// Labels: component, kernel (function name), outcome (success/error)
	KernelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_arrow_kernel_calls_total",
			Help: "Total number of compute kernel invocations",
		},
		[]string{"component", "kernel", "outcome"},
	)

	// KernelLatency tracks the distribution of kernel latencies in nanoseconds.
	KernelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nebula_arrow_kernel_latency_nanoseconds",
			Help: "Compute kernel latency in nanoseconds",
			Buckets: []float64{
				1000,   // 1μs
				10000,  // 10μs
				100000, // 100μs
				1e6,    // 1ms
				1e7,    // 10ms
				1e8,    // 100ms
				1e9,    // 1s
			},
		},
		[]string{"component", "kernel"},
	)

	// Fallbacks counts operations that ran on a generic implementation.
	// Labels: component, operation, reason (capability/type/option)
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_arrow_fallbacks_total",
			Help: "Total number of operations served by a non-vectorized fallback",
		},
		[]string{"component", "operation", "reason"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
