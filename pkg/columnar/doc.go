// Package columnar implements Array, a nullable, immutable column of
// values backed by an arrow chunked array.
//
// # Overview
//
// An Array owns a reference to one *arrow.Chunked buffer and derives its
// dtype from it. Every operation returns a new Array or a native value;
// SetItem is the only mutator and it swaps the receiver onto a freshly
// built buffer, so arrays that shared the old buffer keep seeing the old
// values.
//
// The package covers:
//   - Construction from arrow data, native slices and strings
//   - Element access with positions, slices, masks and position lists
//   - Comparison, Kleene logic and arithmetic through closed operator tables
//   - Reductions, running reductions, rank, quantile and mode
//   - Sorting, searching, uniqueness, value counts and factorization
//   - Take, SetItem, IfElse, ReplaceWithMask and FillNA
//   - Calendar and clock accessors, temporal rounding and time zones
//
// # Kernels and fallbacks
//
// Operations run on the compute kernels of package kernels. Package
// capability decides once per process whether a kernel may be used as-is,
// used with a caveat, or must not be used. When a kernel is ruled out, or
// rejects the input type, rank, argsort, fillna with a method,
// if_else and replace_with_mask switch to a generic implementation over
// native values. Rank, argsort and fillna log a performance warning and
// count the switch in the nebula_arrow_fallbacks_total metric when they do.
//
// Temporal types without a kernel of their own run on their integer
// storage and are relabelled afterwards; durations are summed as int64,
// and dates are ranked by their int32 day count.
//
// # Missing values
//
// Missing elements read as dtype.NA. Comparisons and arithmetic propagate
// them, and any and all follow Kleene logic when skipNA is false.
//
// # Errors
//
// Every error is a *nebulaerrors.Error. Kernel errors are translated at the
// operation boundary: unsupported input types become ErrorTypeUnsupported
// (ErrorTypeReduction for reductions), bad values ErrorTypeConversion or
// ErrorTypeValidation, and out-of-range positions ErrorTypeIndex.
//
// # Usage Example
//
//	arr, err := columnar.FromSequence([]any{3, 1, nil, 2}, arrow.PrimitiveTypes.Int64, false)
//	if err != nil {
//		return err
//	}
//	defer arr.Release()
//
//	total, _ := arr.Reduce(columnar.ReduceSum, true) // int64(6)
//	ranks, _ := arr.Rank(columnar.DefaultRankOptions())
//	defer ranks.Release()
//
//	gt, _ := arr.Compare(1, columnar.Gt)
//	picked, _ := arr.GetItem(gt)
//
// # Configuration
//
// Configure applies a config.Config: it initializes logging and metrics,
// installs the capability probe and sets the ddof, t-digest compression and
// null-token defaults read by later operations.
package columnar
