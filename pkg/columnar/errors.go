package columnar

import (
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
	"github.com/ajitpratap0/nebula-arrow/pkg/metrics"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

var collector = metrics.NewCollector("columnar")

// translate maps a kernel error onto the error taxonomy. Errors that are
// already classified pass through; raw arrow errors survive only as Cause.
func translate(err error, op string, dt dtype.DType) error {
	if err == nil {
		return nil
	}
	var ne *nebulaerrors.Error
	if errors.As(err, &ne) {
		return err
	}

	var e *nebulaerrors.Error
	switch {
	case errors.Is(err, arrow.ErrNotImplemented):
		e = nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeUnsupported,
			"operation '%s' is not supported for dtype %s", op, dt)
	case errors.Is(err, arrow.ErrIndex):
		e = nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeIndex,
			"operation '%s' used an index out of bounds for dtype %s", op, dt)
	case errors.Is(err, arrow.ErrType):
		e = nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeConversion,
			"operation '%s' received a value incompatible with dtype %s", op, dt)
	case errors.Is(err, arrow.ErrInvalid):
		e = nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeValidation,
			"operation '%s' failed for dtype %s", op, dt)
	default:
		e = nebulaerrors.Wrapf(err, nebulaerrors.ErrorTypeInternal,
			"operation '%s' failed for dtype %s", op, dt)
	}
	return e.WithDetail(nebulaerrors.DetailOperation, op).WithDetail(nebulaerrors.DetailDType, dt.String())
}

// isNotImplemented reports a kernel that rejected the input type.
func isNotImplemented(err error) bool {
	return errors.Is(err, arrow.ErrNotImplemented) || nebulaerrors.IsType(err, nebulaerrors.ErrorTypeUnsupported)
}

// degrade records a switch to a generic implementation and warns loudly.
func degrade(operation, reason string, dt dtype.DType) {
	collector.Fallback(operation, reason)
	logger.PerformanceWarning(operation, reason,
		zap.String("dtype", dt.String()),
		zap.String("arrow_version", capability.Current().Version()))
}

func unsupported(format string, args ...any) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeUnsupported, format, args...)
}
