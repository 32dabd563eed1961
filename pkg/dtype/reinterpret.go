package dtype

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// Reinterpret returns a zero-copy view of arr typed as to. Both types must
// be fixed-width with the same bit width, e.g. duration[ns] and int64 or
// date32 and int32. The validity bitmap and offset are shared.
func Reinterpret(arr arrow.Array, to arrow.DataType) (arrow.Array, error) {
	from, ok := arr.DataType().(arrow.FixedWidthDataType)
	if !ok {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "cannot reinterpret non fixed-width type %s", arr.DataType())
	}
	target, ok := to.(arrow.FixedWidthDataType)
	if !ok || target.BitWidth() != from.BitWidth() || from.BitWidth() < 8 {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConversion, "cannot reinterpret %s as %s", arr.DataType(), to)
	}
	if arrow.TypeEqual(arr.DataType(), to) {
		arr.Retain()
		return arr, nil
	}

	src := arr.Data()
	data := array.NewData(to, src.Len(), src.Buffers(), nil, src.NullN(), src.Offset())
	defer data.Release()
	return array.MakeFromData(data), nil
}

// StorageType returns the integer type sharing the physical layout of a
// temporal type: 32-bit kinds map to int32, 64-bit kinds to int64. Any
// other width is an ErrorTypeUnsupported error.
func StorageType(dt arrow.DataType) (arrow.DataType, error) {
	fw, ok := dt.(arrow.FixedWidthDataType)
	if ok {
		switch fw.BitWidth() {
		case 32:
			return arrow.PrimitiveTypes.Int32, nil
		case 64:
			return arrow.PrimitiveTypes.Int64, nil
		}
	}
	return nil, nebulaerrors.New(nebulaerrors.ErrorTypeUnsupported,
		fmt.Sprintf("no integer storage for %s", dt))
}
