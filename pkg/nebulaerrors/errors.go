// Package nebulaerrors provides structured error handling for nebula-arrow with
// rich context, stack traces, and error categorization. Every failure surfaced
// by the columnar array belongs to one of a small, closed set of categories so
// callers can branch on the kind of problem instead of parsing messages.
//
// # Overview
//
// The nebulaerrors package extends Go's standard error handling with:
//   - Error categorization through ErrorType
//   - Structured context with key-value details
//   - Automatic stack trace capture
//   - Error wrapping with cause preservation
//
// # Basic Usage
//
//	// Create a new error
//	err := nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "Length of indexer and values mismatch")
//
//	// Add context
//	err = err.WithDetail("indexer", 3).
//	         WithDetail("values", 2)
//
//	// Wrap errors coming out of a compute kernel
//	if _, err := compute.CastArray(ctx, arr, opts); err != nil {
//	    return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConversion, "cannot cast values").
//	        WithDetail("dtype", arr.DataType().String())
//	}
//
// # Error Types
//
// The array contract distinguishes five failure categories:
//   - ErrorTypeValidation: bad argument shape or length
//   - ErrorTypeIndex: positions outside the valid range
//   - ErrorTypeConversion: values that cannot be represented in a type
//   - ErrorTypeUnsupported: operators or modes that are permanently absent
//   - ErrorTypeReduction: reductions with no kernel for the element type
//
// ErrorTypeConfig and ErrorTypeInternal cover configuration loading and
// broken invariants respectively.
//
// # Stack Traces
//
// Stack traces are automatically captured at error creation points,
// providing valuable debugging information without manual intervention.
//
// # Thread Safety
//
// Error instances are not thread-safe for modification. Create new
// instances or use WithDetail before sharing across goroutines.
package nebulaerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error, used by callers to decide
// how to react to a failed array operation.
type ErrorType string

const (
	// ErrorTypeInternal represents broken invariants inside the library
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents bad argument shapes or lengths
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeIndex represents positions outside the valid range
	ErrorTypeIndex ErrorType = "index_out_of_bounds"
	// ErrorTypeConversion represents values that cannot be cast to a type
	ErrorTypeConversion ErrorType = "type_conversion"
	// ErrorTypeUnsupported represents permanently unavailable operations
	ErrorTypeUnsupported ErrorType = "unsupported"
	// ErrorTypeReduction represents reductions with no kernel for a type
	ErrorTypeReduction ErrorType = "reduction_unsupported"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// Detail keys carried by reduction errors.
const (
	DetailDType     = "dtype"
	DetailOperation = "operation"
	DetailVersion   = "version"
)

// Error represents a structured error with context, providing rich debugging
// information and enabling category-based error handling.
//
// Fields:
//   - Type: Categorizes the error
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack, capturing
// the function name, file path, and line number for debugging.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface, returning a formatted error message
// that includes the error type, message, and cause (if present).
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, enabling compatibility with errors.Is
// and errors.As for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. This method can be
// chained for adding multiple details.
//
// Example:
//
//	err := nebulaerrors.New(nebulaerrors.ErrorTypeIndex, "index 7 is out of bounds for axis 0 with size 3").
//	    WithDetail("index", 7).
//	    WithDetail("length", 3)
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns the detail stored under key, if any.
func (e *Error) Detail(key string) (interface{}, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// New creates a new error with the given type and message, automatically
// capturing the call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the original
// error as the cause. If the error is already a structured Error, its stack
// trace is preserved. Returns nil if the input error is nil.
//
// Example:
//
//	out, err := compute.CallFunction(ctx, "divide", nil, left, right)
//	if err != nil {
//	    return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConversion, "cannot divide").
//	        WithDetail("dtype", dt.String())
//	}
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, errType, fmt.Sprintf(format, args...))
	if wrapped.Stack == nil {
		wrapped.Stack = captureStack(2)
	}
	return wrapped
}

// Reduction builds the error returned when no kernel can compute the named
// reduction for dtype at the given compute library version.
//
// Example:
//
//	err := nebulaerrors.Reduction("string[arrow]", "sum", "v18.1.0", cause)
//	dt, _ := err.Detail(nebulaerrors.DetailDType)
func Reduction(dtype, operation, version string, cause error) *Error {
	msg := fmt.Sprintf("'Array' with dtype %s does not support reduction '%s' with arrow-go version %s. '%s' may be supported by upgrading arrow-go.",
		dtype, operation, version, operation)
	return &Error{
		Type:    ErrorTypeReduction,
		Message: msg,
		Cause:   cause,
		Stack:   captureStack(2),
		Details: map[string]interface{}{
			DetailDType:     dtype,
			DetailOperation: operation,
			DetailVersion:   version,
		},
	}
}

// IsType checks if the error is of the given type, useful for error handling
// strategies and conditional logic based on error categories.
//
// Example:
//
//	if nebulaerrors.IsType(err, nebulaerrors.ErrorTypeUnsupported) {
//	    // fall back to a boxed implementation
//	}
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the category of the outermost structured error in err's
// chain, or the empty string for plain errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
