package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/nebula-arrow/pkg/dtype"
)

// reinterpret relabels every chunk as to without copying. Both types must
// share a physical layout; see dtype.Reinterpret.
func (a *Array) reinterpret(to arrow.DataType) (*Array, error) {
	chunks := a.data.Chunks()
	out := make([]arrow.Array, len(chunks))
	for i, c := range chunks {
		r, err := dtype.Reinterpret(c, to)
		if err != nil {
			for _, done := range out[:i] {
				done.Release()
			}
			return nil, err
		}
		out[i] = r
	}
	chunked := arrow.NewChunked(to, out)
	for _, c := range out {
		c.Release()
	}
	return &Array{data: chunked, mem: a.mem}, nil
}

// storageView is the pairing of an array with the integer view used to run
// kernels that do not accept its temporal type.
type storageView struct {
	orig    arrow.DataType
	storage arrow.DataType
	view    *Array
}

// viewAs reinterprets a as its integer storage when pick accepts its
// dtype; otherwise the view is a itself. Results of the storage type are
// mapped back with restore.
func (a *Array) viewAs(pick func(dtype.DType) bool) (*storageView, error) {
	dt := a.DType()
	if !pick(dt) {
		return &storageView{orig: a.data.DataType(), view: a.Pos()}, nil
	}
	storage, err := dtype.StorageType(a.data.DataType())
	if err != nil {
		return nil, err
	}
	view, err := a.reinterpret(storage)
	if err != nil {
		return nil, err
	}
	return &storageView{orig: a.data.DataType(), storage: storage, view: view}, nil
}

func (s *storageView) active() bool { return s.storage != nil }

// restore maps a result back to the original type when it carries the
// storage type; other results pass through.
func (s *storageView) restore(out *Array) (*Array, error) {
	if !s.active() || !arrow.TypeEqual(out.data.DataType(), s.storage) {
		return out, nil
	}
	back, err := out.reinterpret(s.orig)
	out.Release()
	return back, err
}

func (s *storageView) release() { s.view.Release() }

func isDuration(dt dtype.DType) bool { return dt.Kind() == dtype.KindDuration }

func isTemporal(dt dtype.DType) bool { return dt.IsTemporal() }
