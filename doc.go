// Package nebula provides nullable, immutable columnar arrays backed by
// Apache Arrow, with the analytics surface of a dataframe column: element
// access, vectorized operators, reductions, ranking, sorting, mutation
// through copy-on-write, and calendar and time zone accessors.
//
// # Architecture
//
// nebula-arrow is built on four principles:
//
// 1. Arrow-First: Every array wraps an arrow chunked buffer and every
// operation is dispatched to an arrow compute kernel when one exists.
//
// 2. Closed Dispatch: Comparison, logical and arithmetic operators are
// closed enums mapped through fixed tables; a missing entry means the
// operation is permanently unsupported, never looked up at runtime.
//
// 3. Graceful Degradation: A capability probe decides once per process
// which kernels are usable. Rank, argsort and fill methods fall back to
// generic implementations with a performance warning and a metric.
//
// 4. Typed Errors: Every failure is a *nebulaerrors.Error carrying one of a
// small set of types (validation, index, conversion, unsupported,
// reduction) so callers can branch without string matching.
//
// # Quick Start
//
//	import (
//	    "github.com/apache/arrow-go/v18/arrow"
//	    "github.com/ajitpratap0/nebula-arrow/pkg/columnar"
//	)
//
//	arr, err := columnar.FromSequence([]any{3, 1, nil, 2}, arrow.PrimitiveTypes.Int64, false)
//	if err != nil {
//	    return err
//	}
//	defer arr.Release()
//
//	mean, _ := arr.Reduce(columnar.ReduceMean, true)  // 2.0
//	ranks, _ := arr.Rank(columnar.DefaultRankOptions()) // [3 1 <NA> 2]
//
// # Key Packages
//
//	pkg/columnar     - The Array type and every operation on it
//	pkg/kernels      - Compute kernels on top of arrow-go compute
//	pkg/capability   - Kernel availability probe and overrides
//	pkg/dtype        - Arrow-backed dtypes and native value conversion
//	pkg/indexer      - Positional keys: slices, masks and position lists
//	pkg/frame        - Index and Series results of value counts
//	pkg/parse        - String parsing for FromStrings
//	pkg/pool         - Scratch buffer pooling for generic code paths
//	pkg/config       - YAML configuration with ${ENV} substitution
//	pkg/nebulaerrors - Structured error handling
//	pkg/logger       - Structured logging with zap
//	pkg/metrics      - Prometheus kernel and fallback metrics
//
// # Configuration
//
//	type Config struct {
//	    Logging    logger.Config    // Level, encoding, outputs
//	    Capability CapabilityConfig // Minimum arrow-go version, kernel overrides
//	    Compute    ComputeConfig    // ddof, median compression, null tokens
//	    Metrics    MetricsConfig    // Kernel instrumentation
//	}
//
// Apply a configuration with columnar.Configure. The nebula-arrow command
// reads the same file with --config and honours NEBULA_ARROW_* variables.
//
// # Command Line
//
//	nebula-arrow describe data.csv --column price
//	nebula-arrow value-counts data.csv -c city --dropna --format json
//	nebula-arrow rank data.csv -c score --method dense --descending
//	nebula-arrow sort data.csv -c created --dtype "timestamp[s, tz=UTC]"
//	nebula-arrow kernels
package nebula
